package proxy

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-logr/logr"
)

func TestReceptorStoresCallbackPair(t *testing.T) {
	storage := &mapStorage{entries: map[string]string{}}
	handler := ReceptorHandler(storage, logr.Discard())

	request := httptest.NewRequest("GET", "/proxyCallback?pgtIou=PGTIOU-1-abc&pgtId=PGT-xyz", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != 200 {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "proxySuccess") {
		t.Fatalf("expected proxySuccess body, got %q", recorder.Body.String())
	}

	pgt, ok, err := storage.Retrieve(context.Background(), "PGTIOU-1-abc")
	if err != nil || !ok {
		t.Fatalf("expected stored mapping, ok=%v err=%v", ok, err)
	}
	if pgt != "PGT-xyz" {
		t.Fatalf("expected PGT-xyz, got %q", pgt)
	}
}

func TestReceptorProbeStoresNothing(t *testing.T) {
	storage := &mapStorage{entries: map[string]string{}}
	handler := ReceptorHandler(storage, logr.Discard())

	request := httptest.NewRequest("GET", "/proxyCallback", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != 200 {
		t.Fatalf("expected 200 for reachability probe, got %d", recorder.Code)
	}
	if len(storage.entries) != 0 {
		t.Fatalf("probe must not store anything, got %v", storage.entries)
	}
}

func TestReceptorWithoutStorage(t *testing.T) {
	handler := ReceptorHandler(nil, logr.Discard())

	request := httptest.NewRequest("GET", "/proxyCallback?pgtIou=PGTIOU-1&pgtId=PGT-1", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != 200 {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
}

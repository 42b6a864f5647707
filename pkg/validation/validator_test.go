package validation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-logr/logr"
	oerrors "github.com/porthorian/casclient/pkg/errors"
	"github.com/porthorian/casclient/pkg/proxy"
	"github.com/porthorian/casclient/pkg/proxy/memory"
)

func newTestValidator(t *testing.T, server *httptest.Server, storage proxy.Storage, mutate func(*Config)) *ServiceValidator {
	t.Helper()

	cfg := Config{
		ServerURLPrefix: server.URL,
		HTTPClient:      server.Client(),
		Resolver:        proxy.NewResolver(storage, nil, logr.Discard()),
		Logger:          logr.Discard(),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	validator, err := NewServiceValidator(cfg)
	if err != nil {
		t.Fatalf("build validator: %v", err)
	}
	return validator
}

func TestValidateSuccessWithStoredPGT(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/serviceValidate" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("ticket"); got != "ST-1-abc" {
			t.Fatalf("unexpected ticket %q", got)
		}
		if got := r.URL.Query().Get("service"); got != "https://app.example.org/" {
			t.Fatalf("unexpected service %q", got)
		}
		_, _ = w.Write([]byte(`<response><authenticationSuccess><user>alice</user><proxyGrantingTicket>PGTIOU-1-abc</proxyGrantingTicket></authenticationSuccess></response>`))
	}))
	defer server.Close()

	storage := memory.NewAdapter(time.Minute)
	if err := storage.Save(context.Background(), "PGTIOU-1-abc", "PGT-xyz"); err != nil {
		t.Fatalf("seed storage: %v", err)
	}

	validator := newTestValidator(t, server, storage, nil)

	assertion, err := validator.Validate(context.Background(), "ST-1-abc", "https://app.example.org/")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if assertion.Principal != "alice" {
		t.Fatalf("expected principal alice, got %q", assertion.Principal)
	}
	if assertion.ProxyGrantingTicket != "PGT-xyz" {
		t.Fatalf("expected PGT-xyz, got %q", assertion.ProxyGrantingTicket)
	}
	if len(assertion.Attributes) != 0 {
		t.Fatalf("expected no attributes, got %v", assertion.Attributes)
	}
}

func TestValidateFailureCodeWins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<response>
  <authenticationFailure code="INVALID_TICKET">Ticket ST-1 not recognized</authenticationFailure>
  <authenticationSuccess><user>mallory</user></authenticationSuccess>
</response>`))
	}))
	defer server.Close()

	validator := newTestValidator(t, server, nil, nil)

	_, err := validator.Validate(context.Background(), "ST-1", "https://app.example.org/")
	if !oerrors.IsCode(err, oerrors.CodeAuthenticationFailed) {
		t.Fatalf("expected authentication failure, got %v", err)
	}
}

func TestValidateMissingPrincipal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<response><authenticationSuccess></authenticationSuccess></response>`))
	}))
	defer server.Close()

	validator := newTestValidator(t, server, nil, nil)

	_, err := validator.Validate(context.Background(), "ST-2", "https://app.example.org/")
	if !oerrors.IsCode(err, oerrors.CodeInvalidResponse) {
		t.Fatalf("expected invalid response error, got %v", err)
	}
}

func TestValidateTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	validator := newTestValidator(t, server, nil, nil)

	_, err := validator.Validate(context.Background(), "ST-3", "https://app.example.org/")
	if !oerrors.IsCode(err, oerrors.CodeTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestValidateServerErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	validator := newTestValidator(t, server, nil, nil)

	_, err := validator.Validate(context.Background(), "ST-4", "https://app.example.org/")
	if !oerrors.IsCode(err, oerrors.CodeTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestValidateRemovesPGTFromAttributes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<response><authenticationSuccess>
  <user>bob</user>
  <proxyGrantingTicket>PGTIOU-2-def</proxyGrantingTicket>
  <attributes>
    <email>bob@example.org</email>
    <proxyGrantingTicket>PGTIOU-2-def</proxyGrantingTicket>
  </attributes>
</authenticationSuccess></response>`))
	}))
	defer server.Close()

	storage := memory.NewAdapter(time.Minute)
	if err := storage.Save(context.Background(), "PGTIOU-2-def", "PGT-123"); err != nil {
		t.Fatalf("seed storage: %v", err)
	}

	validator := newTestValidator(t, server, storage, nil)

	assertion, err := validator.Validate(context.Background(), "ST-5", "https://app.example.org/")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if assertion.ProxyGrantingTicket != "PGT-123" {
		t.Fatalf("expected PGT-123, got %q", assertion.ProxyGrantingTicket)
	}
	if _, present := assertion.Attributes[PGTAttribute]; present {
		t.Fatal("resolved PGT must be removed from the attribute map")
	}
	if assertion.Attributes["email"] != "bob@example.org" {
		t.Fatalf("unrelated attributes must be kept, got %v", assertion.Attributes)
	}
}

func TestValidateUnresolvedPGTDoesNotFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<response><authenticationSuccess><user>carol</user><proxyGrantingTicket>PGTIOU-unknown</proxyGrantingTicket></authenticationSuccess></response>`))
	}))
	defer server.Close()

	validator := newTestValidator(t, server, memory.NewAdapter(time.Minute), nil)

	assertion, err := validator.Validate(context.Background(), "ST-6", "https://app.example.org/")
	if err != nil {
		t.Fatalf("PGT resolution failure must not abort validation: %v", err)
	}
	if assertion.ProxyGrantingTicket != "" {
		t.Fatalf("expected no PGT, got %q", assertion.ProxyGrantingTicket)
	}
	if assertion.Principal != "carol" {
		t.Fatalf("expected carol, got %q", assertion.Principal)
	}
}

func TestValidateRequestParameters(t *testing.T) {
	var query map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		_, _ = w.Write([]byte(`<response><authenticationSuccess><user>dave</user></authenticationSuccess></response>`))
	}))
	defer server.Close()

	validator := newTestValidator(t, server, nil, func(cfg *Config) {
		cfg.Renew = true
		cfg.ProxyCallbackURL = "https://app.example.org/proxyCallback"
		cfg.ExtraParams = func(params url.Values) {
			params.Set("format", "XML")
		}
	})

	if _, err := validator.Validate(context.Background(), "ST-7", "https://app.example.org/"); err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	if got := query["renew"]; len(got) != 1 || got[0] != "true" {
		t.Fatalf("expected renew=true, got %v", got)
	}
	if got := query["pgtUrl"]; len(got) != 1 || got[0] != "https://app.example.org/proxyCallback" {
		t.Fatalf("expected pgtUrl parameter, got %v", got)
	}
	if got := query["format"]; len(got) != 1 || got[0] != "XML" {
		t.Fatalf("expected extra format parameter, got %v", got)
	}
}

func TestValidatePostProcessCanVeto(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<response><authenticationSuccess><user>erin</user></authenticationSuccess></response>`))
	}))
	defer server.Close()

	vetoed := errors.New("assertion rejected by policy")
	validator := newTestValidator(t, server, nil, func(cfg *Config) {
		cfg.PostProcess = func(ctx context.Context, body string, assertion *Assertion) error {
			if assertion.Principal == "erin" {
				return vetoed
			}
			return nil
		}
	})

	_, err := validator.Validate(context.Background(), "ST-8", "https://app.example.org/")
	if !oerrors.IsCode(err, oerrors.CodeAuthenticationFailed) {
		t.Fatalf("expected authentication failure from post-processing, got %v", err)
	}
	if !errors.Is(err, vetoed) {
		t.Fatalf("expected wrapped veto error, got %v", err)
	}
}

func TestNewServiceValidatorRequiresServerURL(t *testing.T) {
	_, err := NewServiceValidator(Config{})
	if !oerrors.IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestDefaultRegistryVariants(t *testing.T) {
	registry := DefaultRegistry()

	for name, suffix := range map[string]string{
		"serviceValidate": "serviceValidate",
		"proxyValidate":   "proxyValidate",
	} {
		factory, ok := registry.Factory(name)
		if !ok {
			t.Fatalf("expected variant %q to be registered", name)
		}
		validator, err := factory(Config{ServerURLPrefix: "https://cas.example.org/cas", Logger: logr.Discard()})
		if err != nil {
			t.Fatalf("build %q validator: %v", name, err)
		}
		if validator.config.URLSuffix != suffix {
			t.Fatalf("expected suffix %q, got %q", suffix, validator.config.URLSuffix)
		}
	}

	if _, ok := registry.Factory("samlValidate"); ok {
		t.Fatal("unregistered variant must not resolve")
	}
}

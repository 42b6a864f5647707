package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/porthorian/casclient/pkg/proxy"
)

// DefaultTTL bounds how long an unclaimed IOU to PGT mapping is kept.
// The CAS server delivers the pair moments before the validation response
// is parsed, so unclaimed entries are abandoned callbacks.
const DefaultTTL = 60 * time.Second

type entry struct {
	pgt     string
	expires time.Time
}

type Adapter struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
}

var _ proxy.Storage = (*Adapter)(nil)

func NewAdapter(ttl time.Duration) *Adapter {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Adapter{
		ttl:     ttl,
		entries: map[string]entry{},
	}
}

func (a *Adapter) Save(ctx context.Context, iou string, pgt string) error {
	if iou == "" {
		return errors.New("memory pgt storage: iou is required")
	}

	a.mu.Lock()
	a.entries[iou] = entry{
		pgt:     pgt,
		expires: time.Now().UTC().Add(a.ttl),
	}
	a.mu.Unlock()
	return nil
}

func (a *Adapter) Retrieve(ctx context.Context, iou string) (string, bool, error) {
	now := time.Now().UTC()

	a.mu.RLock()
	stored, ok := a.entries[iou]
	a.mu.RUnlock()
	if !ok {
		return "", false, nil
	}

	if now.After(stored.expires) {
		a.mu.Lock()
		delete(a.entries, iou)
		a.mu.Unlock()
		return "", false, nil
	}

	return stored.pgt, true, nil
}

func (a *Adapter) Delete(ctx context.Context, iou string) error {
	a.mu.Lock()
	delete(a.entries, iou)
	a.mu.Unlock()
	return nil
}

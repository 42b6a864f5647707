package gateway

import "sync"

// Resolver tracks which service URLs a session has already been sent
// through a gateway authentication attempt for, so the surrounding
// request handling can avoid redirect loops.
type Resolver interface {
	// HasGatewayedAlready reports whether a gateway attempt was recorded
	// for this session and service URL.
	HasGatewayedAlready(sessionKey string, serviceURL string) bool

	// StoreGatewayInformation records the attempt and returns the service
	// URL it was given. It is idempotent: repeated calls with the same
	// session and URL leave a single marker.
	StoreGatewayInformation(sessionKey string, serviceURL string) string
}

// MemoryResolver keeps gateway markers in process memory, keyed by
// session. Safe for concurrent use.
type MemoryResolver struct {
	mu       sync.Mutex
	sessions map[string]map[string]struct{}
}

var _ Resolver = (*MemoryResolver)(nil)

func NewMemoryResolver() *MemoryResolver {
	return &MemoryResolver{
		sessions: map[string]map[string]struct{}{},
	}
}

func (r *MemoryResolver) HasGatewayedAlready(sessionKey string, serviceURL string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	urls, ok := r.sessions[sessionKey]
	if !ok {
		return false
	}
	_, ok = urls[serviceURL]
	return ok
}

func (r *MemoryResolver) StoreGatewayInformation(sessionKey string, serviceURL string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	urls, ok := r.sessions[sessionKey]
	if !ok {
		urls = map[string]struct{}{}
		r.sessions[sessionKey] = urls
	}
	urls[serviceURL] = struct{}{}

	return serviceURL
}

// ClearSession drops every marker recorded for a session, for use when
// the session itself is destroyed.
func (r *MemoryResolver) ClearSession(sessionKey string) {
	r.mu.Lock()
	delete(r.sessions, sessionKey)
	r.mu.Unlock()
}

package cache

import (
	"context"
	"sync"
	"time"

	apptransfer "github.com/wms/backend/internal/application/transfer"
)

// guardEntry is a held key with its expiration
type guardEntry struct {
	expiresAt time.Time
}

// InMemoryPostingGuard implements the posting guard with an in-memory map.
// Suitable for single-instance deployments and testing.
type InMemoryPostingGuard struct {
	mu      sync.Mutex
	entries map[string]guardEntry
}

// NewInMemoryPostingGuard creates a new in-memory posting guard
func NewInMemoryPostingGuard() *InMemoryPostingGuard {
	return &InMemoryPostingGuard{entries: make(map[string]guardEntry)}
}

// Acquire claims the key with a TTL. Returns false when the key is held and
// not yet expired.
func (g *InMemoryPostingGuard) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if e, exists := g.entries[key]; exists && time.Now().Before(e.expiresAt) {
		return false, nil
	}
	g.entries[key] = guardEntry{expiresAt: time.Now().Add(ttl)}
	return true, nil
}

// Release frees the key so a retry can acquire it again
func (g *InMemoryPostingGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, key)
	return nil
}

// Size returns the number of held keys (for testing/monitoring)
func (g *InMemoryPostingGuard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Ensure InMemoryPostingGuard implements PostingGuard
var _ apptransfer.PostingGuard = (*InMemoryPostingGuard)(nil)

package memory

import (
	"context"
	"sync"
	"time"
)

// Guard implements ports.FireGuard for a single process.
type Guard struct {
	mu      sync.Mutex
	claimed map[string]time.Time // key -> expiry
	now     func() time.Time
}

// NewGuard creates an in-memory guard.
func NewGuard() *Guard {
	return &Guard{
		claimed: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Claim records the key and reports whether this caller was first within ttl.
func (g *Guard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for k, exp := range g.claimed {
		if !now.Before(exp) {
			delete(g.claimed, k)
		}
	}

	if _, ok := g.claimed[key]; ok {
		return false, nil
	}
	g.claimed[key] = now.Add(ttl)
	return true, nil
}

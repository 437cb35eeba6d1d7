package ports

import (
	"context"
	"time"
)

// FireGuard deduplicates scheduled triggers.
// Claim returns true for the first caller of a key within ttl and false for
// everyone after, so a trigger runs once even when the process restarts or
// several replicas share the backend.
type FireGuard interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// Guard implements ports.FireGuard using Redis SET NX PX.
// The key expires on its own, so no release step is needed.
type Guard struct {
	client *backend.Client
	prefix string
}

// NewGuard creates a new Redis guard.
func NewGuard(client *backend.Client, prefix string) *Guard {
	return &Guard{
		client: client,
		prefix: prefix,
	}
}

// Claim sets the key only if absent and reports whether this caller set it.
func (g *Guard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	claimKey := g.prefix + "fire:" + key
	val := strconv.FormatInt(time.Now().UnixNano(), 10)

	ok, err := g.client.SetNX(ctx, claimKey, val, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis error claiming %s: %w", key, err)
	}
	return ok, nil
}

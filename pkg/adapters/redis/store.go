package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/domainwatch/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.CredentialStore using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for stored credentials.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "domainwatch:",
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client exposes the underlying client so other adapters can share the connection pool.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(account string) string {
	return s.prefix + "creds:" + account
}

// Save persists the blob.
func (s *Store) Save(ctx context.Context, account string, blob []byte) error {
	if err := s.client.Set(ctx, s.key(account), blob, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save credentials to redis: %w", err)
	}
	return nil
}

// Load retrieves the blob.
func (s *Store) Load(ctx context.Context, account string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.key(account)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to get credentials from redis: %w", err)
	}
	return val, nil
}

// Delete removes the blob.
func (s *Store) Delete(ctx context.Context, account string) error {
	if err := s.client.Del(ctx, s.key(account)).Err(); err != nil {
		return fmt.Errorf("failed to delete credentials from redis: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

package memory

import (
	"context"
	"sync"

	"github.com/aretw0/domainwatch/pkg/domain"
)

// Store implements ports.CredentialStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

// Save keeps a private copy of the blob.
func (s *Store) Save(ctx context.Context, account string, blob []byte) error {
	copied := append([]byte(nil), blob...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[account] = copied
	return nil
}

// Load returns a copy so callers can't mutate the stored blob.
func (s *Store) Load(ctx context.Context, account string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.data[account]
	if !ok {
		return nil, domain.ErrCredentialsNotFound
	}
	return append([]byte(nil), blob...), nil
}

// Delete removes the blob.
func (s *Store) Delete(ctx context.Context, account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, account)
	return nil
}

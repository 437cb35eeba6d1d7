package ports_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/domainwatch/pkg/domain"
	"github.com/aretw0/domainwatch/pkg/ports"
)

// MockStore is a minimal CredentialStore used to exercise the contract itself.
type MockStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string][]byte)}
}

func (m *MockStore) Save(ctx context.Context, account string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[account] = append([]byte(nil), blob...)
	return nil
}

func (m *MockStore) Load(ctx context.Context, account string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.data[account]
	if !ok {
		return nil, domain.ErrCredentialsNotFound
	}
	return append([]byte(nil), blob...), nil
}

func (m *MockStore) Delete(ctx context.Context, account string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, account)
	return nil
}

type mockGuard struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (g *mockGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seen[key] {
		return false, nil
	}
	g.seen[key] = true
	return true, nil
}

func TestCredentialStore_Contract(t *testing.T) {
	ports.RunCredentialStoreContract(t, NewMockStore())
}

func TestFireGuard_Contract(t *testing.T) {
	ports.RunFireGuardContract(t, &mockGuard{seen: make(map[string]bool)})
}

package middleware_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/aretw0/domainwatch/pkg/adapters/memory"
	"github.com/aretw0/domainwatch/pkg/domain"
	"github.com/aretw0/domainwatch/pkg/persistence/middleware"
	"github.com/aretw0/domainwatch/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func wrap(t *testing.T, cfg middleware.EncryptionConfig, next ports.CredentialStore) ports.CredentialStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return mw(next)
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	store := wrap(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, memory.NewStore())
	ports.RunCredentialStoreContract(t, store)
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	secure := wrap(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, underlying)

	secret := []byte(`{"noise_key":"my-secret-sauce"}`)
	require.NoError(t, secure.Save(ctx, "default", secret))

	stored, err := underlying.Load(ctx, "default")
	require.NoError(t, err)
	assert.False(t, bytes.Contains(stored, []byte("my-secret-sauce")), "blob must be sealed at rest")

	loaded, err := secure.Load(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, secret, loaded)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)

	require.NoError(t, wrap(t, middleware.EncryptionConfig{ActiveKey: oldKey}, underlying).Save(ctx, "default", []byte("blob")))

	rotated := wrap(t, middleware.EncryptionConfig{ActiveKey: newKey, FallbackKeys: [][]byte{oldKey}}, underlying)
	loaded, err := rotated.Load(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "blob", string(loaded))

	withoutOld := wrap(t, middleware.EncryptionConfig{ActiveKey: newKey}, underlying)
	_, err = withoutOld.Load(ctx, "default")
	assert.ErrorContains(t, err, "decryption failed")
}

func TestEncryptionMiddleware_RejectsPlainBlob(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	require.NoError(t, underlying.Save(ctx, "default", []byte("plain")))

	_, err := wrap(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, underlying).Load(ctx, "default")
	assert.ErrorIs(t, err, middleware.ErrNotEncrypted)
}

func TestEncryptionMiddleware_PassesThroughNotFound(t *testing.T) {
	secure := wrap(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, memory.NewStore())
	_, err := secure.Load(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrCredentialsNotFound)
}

func TestNewEncryptionMiddleware_KeySize(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	assert.Error(t, err)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	assert.Error(t, err)
}

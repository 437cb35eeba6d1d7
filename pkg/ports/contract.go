package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/domainwatch/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCredentialStoreContract runs a suite of tests to verify that a CredentialStore
// implementation adheres to the defined interface contract.
func RunCredentialStoreContract(t *testing.T, store CredentialStore) {
	ctx := context.Background()
	account := "contract-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		blob := []byte(`{"noise_key":"abc","registration_id":42}`)

		err := store.Save(ctx, account, blob)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, account)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, blob, loaded)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, account, []byte("first")))
		require.NoError(t, store.Save(ctx, account, []byte("second")))

		loaded, err := store.Load(ctx, account)
		require.NoError(t, err)
		assert.Equal(t, "second", string(loaded))
	})

	t.Run("Load Returns Copy", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, account, []byte("stable")))

		loaded, err := store.Load(ctx, account)
		require.NoError(t, err)
		loaded[0] = 'X'

		again, err := store.Load(ctx, account)
		require.NoError(t, err)
		assert.Equal(t, "stable", string(again))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+account)
		assert.ErrorIs(t, err, domain.ErrCredentialsNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, account, []byte("bye")))

		err := store.Delete(ctx, account)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, account)
		assert.ErrorIs(t, err, domain.ErrCredentialsNotFound, "Load after Delete should return ErrCredentialsNotFound")

		assert.NoError(t, store.Delete(ctx, account), "Deleting twice should not fail")
	})
}

// RunFireGuardContract verifies the once-per-key semantics of a FireGuard.
func RunFireGuardContract(t *testing.T, guard FireGuard) {
	ctx := context.Background()
	key := "contract-" + time.Now().Format("20060102150405")

	first, err := guard.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, first, "first claim should win")

	second, err := guard.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, second, "second claim of the same key should lose")

	other, err := guard.Claim(ctx, key+"-other", time.Minute)
	require.NoError(t, err)
	assert.True(t, other, "a different key is independent")
}

package ports

import "context"

// CredentialStore persists the opaque credential blob of a platform account.
// Implementations never interpret the blob.
type CredentialStore interface {
	// Save persists the blob for the given account, replacing any previous one.
	Save(ctx context.Context, account string, blob []byte) error

	// Load retrieves the blob for the given account.
	// Returns domain.ErrCredentialsNotFound if nothing is stored.
	Load(ctx context.Context, account string) ([]byte, error)

	// Delete removes the blob. Deleting a missing account is not an error.
	Delete(ctx context.Context, account string) error
}

package cli

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/domainwatch/pkg/domain"
	"github.com/aretw0/domainwatch/pkg/ports"
)

// InspectCredentials prints whether account has stored credentials.
// The blob itself is never printed, only its size and a fingerprint.
func InspectCredentials(ctx context.Context, store ports.CredentialStore, account string, w io.Writer) error {
	blob, err := store.Load(ctx, account)
	if errors.Is(err, domain.ErrCredentialsNotFound) {
		fmt.Fprintf(w, "account %s: no stored credentials (a challenge will be issued on next connect)\n", account)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	sum := sha256.Sum256(blob)
	fmt.Fprintf(w, "account %s: %d bytes, sha256 %s\n", account, len(blob), hex.EncodeToString(sum[:8]))
	return nil
}

// ResetCredentials removes the stored credentials so the next connect starts
// a fresh login. This is the way out of a terminal close.
func ResetCredentials(ctx context.Context, store ports.CredentialStore, account string, w io.Writer) error {
	if err := store.Delete(ctx, account); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	fmt.Fprintf(w, "account %s: credentials removed\n", account)
	return nil
}

package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/domainwatch/pkg/domain"
)

// Store implements ports.CredentialStore using the local filesystem.
// Each account's blob is a single file in the configured directory.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".domainwatch/auth".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".domainwatch", "auth")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(account string) (string, error) {
	if account == "" {
		return "", fmt.Errorf("account cannot be empty")
	}
	if strings.ContainsAny(account, `/\`) || account == "." || account == ".." {
		return "", fmt.Errorf("invalid account name %q", account)
	}
	return filepath.Join(s.BasePath, account+".creds"), nil
}

// Save persists the blob atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, account string, blob []byte) error {
	destPath, err := s.path(account)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.BasePath, 0o700); err != nil {
		return fmt.Errorf("failed to ensure credentials directory: %w", err)
	}

	// Same directory as the destination, required for an atomic rename.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+account+"-*.creds")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if err := tmpFile.Chmod(0o600); err != nil {
		return fmt.Errorf("failed to restrict temp file: %w", err)
	}
	if _, err := tmpFile.Write(blob); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Close before rename (Windows cannot rename an open file).
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing credentials for overwrite: %w", err)
		}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to credentials: %w", err)
	}
	return nil
}

// Load reads the blob for the account.
func (s *Store) Load(ctx context.Context, account string) ([]byte, error) {
	filePath, err := s.path(account)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	return data, nil
}

// Delete removes the credentials file.
func (s *Store) Delete(ctx context.Context, account string) error {
	filePath, err := s.path(account)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete credentials file: %w", err)
	}
	return nil
}

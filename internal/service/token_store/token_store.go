package token_store

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const tokenFileName = "authtoken"

// TokenStore persists the bearer token to the user config dir. The token is
// treated as an opaque string, no format validation happens here.
type TokenStore struct {
	path string
}

func NewTokenStore(configDir string) *TokenStore {
	return &TokenStore{
		path: filepath.Join(configDir, tokenFileName),
	}
}

// Restore reads the stored token. A missing file is not an error and yields
// an empty token.
func (ts *TokenStore) Restore() (string, error) {

	data, err := os.ReadFile(ts.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "ReadFile")
	}

	return string(data), nil
}

// Store writes the token with owner-only permissions, replacing any previous
// content. The chmod covers the case where the file already existed with
// wider permissions.
func (ts *TokenStore) Store(token string) error {

	if err := os.WriteFile(ts.path, []byte(token), 0o600); err != nil {
		return errors.Wrap(err, "WriteFile")
	}

	if err := os.Chmod(ts.path, 0o600); err != nil {
		return errors.Wrap(err, "Chmod")
	}

	return nil
}

// Remove deletes the token file. A missing file is not an error.
func (ts *TokenStore) Remove() error {

	err := os.Remove(ts.path)
	if os.IsNotExist(err) {
		return nil
	}

	return err
}

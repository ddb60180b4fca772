package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/testerhome/ruby-china-ios/internal/crypto"
	"github.com/testerhome/ruby-china-ios/internal/domain"
)

const (
	credentialKeySuffix = ".oauth.accessToken"
	profileKeyName      = "loginUserJSON"
)

// FileCredentialStore keeps the encrypted credential in a single file under
// the data directory, named <namespace>.oauth.accessToken.
type FileCredentialStore struct {
	path   string
	crypto crypto.Service
}

func NewFileCredentialStore(dir, namespace string, svc crypto.Service) (*FileCredentialStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileCredentialStore{
		path:   filepath.Join(dir, namespace+credentialKeySuffix),
		crypto: svc,
	}, nil
}

func (s *FileCredentialStore) Get() (*domain.Credential, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		slog.Warn("Credential read failed, treating as absent", "path", s.path, "error", err)
		return nil, nil
	}

	plain, err := s.crypto.Decrypt(string(raw))
	if err != nil {
		slog.Warn("Credential decrypt failed, treating as absent", "path", s.path, "error", err)
		return nil, nil
	}

	var cred domain.Credential
	if err := json.Unmarshal([]byte(plain), &cred); err != nil {
		slog.Warn("Credential unmarshal failed, treating as absent", "path", s.path, "error", err)
		return nil, nil
	}
	if cred.AccessToken == "" {
		return nil, nil
	}
	return &cred, nil
}

func (s *FileCredentialStore) Set(cred domain.Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	sealed, err := s.crypto.Encrypt(string(data))
	if err != nil {
		return fmt.Errorf("failed to encrypt credential: %w", err)
	}
	return writeFileAtomic(s.path, []byte(sealed))
}

func (s *FileCredentialStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}
	return nil
}

// FileProfileCache keeps the serialized profile under <dir>/loginUserJSON.
type FileProfileCache struct {
	path string
}

func NewFileProfileCache(dir string) (*FileProfileCache, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileProfileCache{path: filepath.Join(dir, profileKeyName)}, nil
}

func (c *FileProfileCache) Get() (*domain.UserProfile, error) {
	raw, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		slog.Warn("Profile cache read failed, treating as absent", "path", c.path, "error", err)
		return nil, nil
	}

	var profile domain.UserProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		slog.Warn("Profile cache unmarshal failed, treating as absent", "path", c.path, "error", err)
		return nil, nil
	}
	if profile.ID == 0 {
		return nil, nil
	}
	return &profile, nil
}

func (c *FileProfileCache) Set(profile domain.UserProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	return writeFileAtomic(c.path, data)
}

func (c *FileProfileCache) Clear() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove profile cache file: %w", err)
	}
	return nil
}

// writeFileAtomic writes via a temp file and rename so readers never observe
// a partially written value.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

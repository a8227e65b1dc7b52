package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/zalando/go-keyring"

	"github.com/dshills/flowedit/pkg/validation"
)

const (
	// ServiceName is the identifier used for all flowedit credentials in the system keyring.
	ServiceName = "flowedit"

	indexKey = "__flowedit_index__"
)

// ErrCredentialNotFound is returned when no credential is stored under a key
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialStore defines the interface for secure credential storage.
// Backend passwords (Redis, Postgres) are resolved through it.
type CredentialStore interface {
	// Set stores a credential securely
	Set(key string, value string) error
	// Get retrieves a credential
	Get(key string) (string, error)
	// Delete removes a credential
	Delete(key string) error
	// List returns all credential keys (not the values)
	List() ([]string, error)
}

// KeyringCredentialStore implements CredentialStore using the system keyring.
// - macOS: Uses Keychain
// - Windows: Uses Credential Manager
// - Linux: Uses Secret Service (GNOME Keyring, KWallet)
type KeyringCredentialStore struct {
	service string
	logger  *slog.Logger
}

// NewKeyringCredentialStore creates a new keyring-based credential store.
func NewKeyringCredentialStore(logger *slog.Logger) *KeyringCredentialStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &KeyringCredentialStore{
		service: ServiceName,
		logger:  logger.With("component", "credentials"),
	}
}

// Set stores a credential securely in the system keyring.
// The key is used as the account name, and value is the password.
func (s *KeyringCredentialStore) Set(key string, value string) error {
	if err := checkCredentialKey(key); err != nil {
		return err
	}

	if err := keyring.Set(s.service, key, value); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	// The credential is stored even if the index cannot be updated
	if err := s.addToIndex(key); err != nil {
		s.logger.Warn("failed to update credential index", "key", key, "error", err)
	}

	return nil
}

// Get retrieves a credential from the system keyring.
func (s *KeyringCredentialStore) Get(key string) (string, error) {
	if err := checkCredentialKey(key); err != nil {
		return "", err
	}

	value, err := keyring.Get(s.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrCredentialNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to retrieve credential: %w", err)
	}

	return value, nil
}

// Delete removes a credential from the system keyring.
func (s *KeyringCredentialStore) Delete(key string) error {
	if err := checkCredentialKey(key); err != nil {
		return err
	}

	err := keyring.Delete(s.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrCredentialNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	if err := s.removeFromIndex(key); err != nil {
		s.logger.Warn("failed to update credential index", "key", key, "error", err)
	}

	return nil
}

// List returns all credential keys stored by flowedit, sorted.
// The keyring cannot enumerate accounts, so keys are tracked in an index entry.
func (s *KeyringCredentialStore) List() ([]string, error) {
	indexJSON, err := keyring.Get(s.service, indexKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve credential index: %w", err)
	}

	var keys []string
	if err := json.Unmarshal([]byte(indexJSON), &keys); err != nil {
		return nil, fmt.Errorf("failed to parse credential index: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// ResolvePassword returns the credential stored under name. An empty name
// means no password is configured.
func ResolvePassword(store CredentialStore, name string) (string, error) {
	if name == "" || store == nil {
		return "", nil
	}
	return store.Get(name)
}

func checkCredentialKey(key string) error {
	if err := validation.Identifier("credential key", key); err != nil {
		return err
	}
	if key == indexKey {
		return fmt.Errorf("credential key %q is reserved", key)
	}
	return nil
}

func (s *KeyringCredentialStore) addToIndex(key string) error {
	keys, err := s.List()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if k == key {
			return nil
		}
	}
	return s.saveIndex(append(keys, key))
}

func (s *KeyringCredentialStore) removeFromIndex(key string) error {
	keys, err := s.List()
	if err != nil {
		return err
	}
	kept := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != key {
			kept = append(kept, k)
		}
	}
	return s.saveIndex(kept)
}

func (s *KeyringCredentialStore) saveIndex(keys []string) error {
	indexJSON, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("failed to marshal credential index: %w", err)
	}
	if err := keyring.Set(s.service, indexKey, string(indexJSON)); err != nil {
		return fmt.Errorf("failed to save credential index: %w", err)
	}
	return nil
}

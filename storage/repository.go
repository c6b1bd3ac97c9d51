package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Repository gives typed access to the persisted keys
type Repository struct {
	store   Store
	secrets *secretBox
}

// NewRepository wraps store. A non-empty encryptionKey seals the API key at rest.
func NewRepository(store Store, encryptionKey string) (*Repository, error) {
	repo := &Repository{store: store}
	if encryptionKey != "" {
		box, err := newSecretBox(encryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to init secret box: %w", err)
		}
		repo.secrets = box
	}
	return repo, nil
}

// Close closes the underlying store
func (r *Repository) Close() error {
	return r.store.Close()
}

// getJSON decodes key into v, reporting whether the key existed
func (r *Repository) getJSON(scope Scope, key string, v interface{}) (bool, error) {
	data, err := r.store.Get(scope, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (r *Repository) putJSON(scope Scope, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := r.store.Put(scope, key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// updateJSON decodes key, lets fn mutate it, and writes it back in one transaction when fn asks to
func updateJSON[T any](s Store, scope Scope, key string, fn func(v *T, found bool) (bool, error)) error {
	return s.Update(scope, key, func(current []byte) ([]byte, error) {
		var v T
		found := current != nil
		if found {
			if err := json.Unmarshal(current, &v); err != nil {
				return nil, fmt.Errorf("failed to unmarshal %s: %w", key, err)
			}
		}

		save, err := fn(&v, found)
		if err != nil || !save {
			return nil, err
		}
		return json.Marshal(v)
	})
}

// APIKey returns the stored completion API key, or "" when none is set
func (r *Repository) APIKey() (string, error) {
	var stored string
	found, err := r.getJSON(ScopeSync, KeyAPIKey, &stored)
	if err != nil || !found {
		return "", err
	}
	if r.secrets == nil {
		return stored, nil
	}
	return r.secrets.open(stored)
}

// SaveAPIKey overwrites the stored API key
func (r *Repository) SaveAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if r.secrets != nil && key != "" {
		sealed, err := r.secrets.seal(key)
		if err != nil {
			return fmt.Errorf("failed to seal api key: %w", err)
		}
		key = sealed
	}
	return r.putJSON(ScopeSync, KeyAPIKey, key)
}

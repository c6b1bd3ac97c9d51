package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Scope separates values that follow the user from values local to this install
type Scope string

const (
	ScopeSync  Scope = "sync"
	ScopeLocal Scope = "local"
)

// Persisted keys
const (
	KeyAPIKey      = "openaiApiKey"
	KeyUserProfile = "userProfile"
	KeyDrafts      = "drafts"
	KeyRateLimit   = "rateLimitData"
	KeyStats       = "stats"
)

// ErrNotFound is returned by Get for absent keys
var ErrNotFound = errors.New("key not found")

// UpdateFunc receives the current value (nil if absent) and returns the value to write.
// Returning nil leaves the key untouched. Returning an error aborts the update.
type UpdateFunc func(current []byte) ([]byte, error)

// Store is the key/value persistence shared by the coordinator and the settings surface
type Store interface {
	Get(scope Scope, key string) ([]byte, error)
	Put(scope Scope, key string, value []byte) error
	// Update runs a read-modify-write of one key as a single transaction
	Update(scope Scope, key string, fn UpdateFunc) error
	Close() error
}

// Open opens the store for the configured driver under dataDir
func Open(driver, dataDir string) (Store, error) {
	switch strings.ToLower(driver) {
	case "", "bolt":
		return OpenBolt(dataDir)
	case "sqlite":
		return OpenSQLite(filepath.Join(dataDir, "smartdraft.sqlite"))
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

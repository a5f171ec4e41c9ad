package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SlotFileName is the single named slot holding the persisted credential.
const SlotFileName = "session.json"

// storedSlot is the on-disk form. Claims are re-derived from the token on load.
type storedSlot struct {
	Token    string    `json:"token"`
	StoredAt time.Time `json:"storedAt"`
}

// Store persists the credential slot.
//
// SECURITY: The slot holds a live bearer token.
//   - The file is written with 0600 permissions, the directory with 0700
//   - Token values are never logged
type Store struct {
	mu         sync.Mutex
	storageDir string
	fileMode   bool
	memory     *storedSlot
}

// StoreConfig configures a Store.
type StoreConfig struct {
	// StorageDir holds session.json.
	StorageDir string

	// FileMode enables file persistence. If false the slot lives in memory only.
	FileMode bool
}

// NewStore creates a store, creating the storage directory in file mode.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.FileMode {
		if cfg.StorageDir == "" {
			return nil, errors.New("session storage directory is required in file mode")
		}
		if err := os.MkdirAll(cfg.StorageDir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create session storage directory: %w", err)
		}
	}
	return &Store{
		storageDir: cfg.StorageDir,
		fileMode:   cfg.FileMode,
	}, nil
}

// Path returns the slot file path. Empty in memory mode.
func (s *Store) Path() string {
	if !s.fileMode {
		return ""
	}
	return filepath.Join(s.storageDir, SlotFileName)
}

// FileMode reports whether the slot is persisted to disk.
func (s *Store) FileMode() bool {
	return s.fileMode
}

// Save writes token into the slot, replacing any previous value.
func (s *Store) Save(token string, storedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := &storedSlot{Token: token, StoredAt: storedAt}
	if !s.fileMode {
		s.memory = slot
		return nil
	}

	data, err := json.MarshalIndent(slot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Write to a temp file and rename so concurrent readers never see a
	// partial slot.
	tmp, err := os.CreateTemp(s.storageDir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmpName, s.Path()); err != nil {
		slog.Warn("SECURITY_AUDIT: session storage failed",
			"event", "session_store_failed",
			"path", s.Path(),
			"error", err.Error(),
		)
		return fmt.Errorf("failed to write session file: %w", err)
	}

	slog.Debug("SECURITY_AUDIT: session stored",
		"event", "session_stored",
		"path", s.Path(),
	)
	return nil
}

// Load reads the slot. It returns "", zero time and no error when the slot is empty.
func (s *Store) Load() (string, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fileMode {
		if s.memory == nil {
			return "", time.Time{}, nil
		}
		return s.memory.Token, s.memory.StoredAt, nil
	}

	// #nosec G304 -- path is built from the configured storage dir and a constant name
	data, err := os.ReadFile(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to read session file: %w", err)
	}

	var slot storedSlot
	if err := json.Unmarshal(data, &slot); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to parse session file %s: %w", s.Path(), err)
	}
	return slot.Token, slot.StoredAt, nil
}

// Delete empties the slot. Deleting an empty slot is not an error.
func (s *Store) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.memory = nil
	if !s.fileMode {
		return nil
	}

	err := os.Remove(s.Path())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("SECURITY_AUDIT: session deletion failed",
			"event", "session_delete_failed",
			"path", s.Path(),
			"error", err.Error(),
		)
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

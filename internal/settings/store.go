package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	pkgconfig "github.com/starford/temple/pkg/config"
)

// Store owns the process-wide settings. Readers take immutable snapshots;
// every mutation is validated and persisted before it becomes visible.
type Store struct {
	path    string
	logger  *slog.Logger
	mu      sync.Mutex
	current atomic.Pointer[Settings]
}

// New returns a store holding initial. An empty path disables persistence.
func New(initial Settings, path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{path: path, logger: logger}
	s.current.Store(&initial)
	return s
}

// Load reads the settings file at path and merges it over the defaults.
// A missing file yields the defaults. A malformed or invalid file is logged
// and replaced by the defaults; only read failures are returned.
func Load(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("settings: no persisted settings, using defaults", slog.String("path", path))
			return New(defaults, path, logger), nil
		}
		return nil, fmt.Errorf("settings: read %s: %w", path, err)
	}

	merged, err := Merge(defaults, data)
	if err != nil {
		logger.Warn("settings: malformed settings, using defaults",
			slog.String("path", path), slog.String("error", err.Error()))
		return New(defaults, path, logger), nil
	}
	if err := merged.Validate(); err != nil {
		logger.Warn("settings: invalid settings, using defaults",
			slog.String("path", path), slog.String("error", err.Error()))
		return New(defaults, path, logger), nil
	}
	return New(merged, path, logger), nil
}

// Path returns the persistence path ("" when persistence is disabled).
func (s *Store) Path() string {
	return s.path
}

// Snapshot returns a copy of the current settings.
func (s *Store) Snapshot() Settings {
	return *s.current.Load()
}

// Update applies fn to a copy of the current settings, validates and persists
// the result, then publishes it. Concurrent updates are serialized; the last
// writer wins.
func (s *Store) Update(fn func(*Settings) error) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.current.Load()
	if err := fn(&next); err != nil {
		return Settings{}, err
	}
	if err := next.Validate(); err != nil {
		return Settings{}, err
	}
	if s.path != "" {
		if err := pkgconfig.Save(s.path, &next); err != nil {
			return Settings{}, fmt.Errorf("settings: persist: %w", err)
		}
	}
	s.current.Store(&next)
	s.logger.Debug("settings: updated", slog.String("path", s.path))
	return next, nil
}

// Set updates a single field by key.
func (s *Store) Set(key, value string) (Settings, error) {
	return s.Update(func(st *Settings) error {
		return Set(st, key, value)
	})
}

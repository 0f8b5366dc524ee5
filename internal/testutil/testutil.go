// Package testutil provides shared test helpers for vaults, databases and settings.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/temple/internal/index"
	"github.com/starford/temple/internal/settings"
	"github.com/starford/temple/internal/storage"
)

// Now is the instant returned by Clock.
var Now = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

// Clock returns a fixed clock at Now.
func Clock() func() time.Time {
	return func() time.Time { return Now }
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDB opens a SQLite database in a temporary directory.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "temple-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a filesystem store.
func TestVault(t *testing.T) (string, *storage.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// WriteFiles writes path -> content into the vault.
func WriteFiles(t *testing.T, store storage.Provider, files map[string]string) {
	t.Helper()
	for p, content := range files {
		if err := store.Write(p, []byte(content)); err != nil {
			t.Fatal(err)
		}
	}
}

// Settings returns an in-memory settings store at the defaults, pinned to UTC,
// after applying mutate.
func Settings(t *testing.T, mutate func(*settings.Settings)) *settings.Store {
	t.Helper()
	s := settings.Defaults()
	s.DateTime.Timezone = "UTC"
	if mutate != nil {
		mutate(&s)
	}
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	return settings.New(s, "", Logger())
}

package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/starford/temple/internal/storage"
)

func watcherTestEnv(t *testing.T) (string, *storage.FS, *DB) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	require.NoError(t, err)
	return vaultDir, store, testDB(t)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) record(kind, path string) {
	r.mu.Lock()
	r.events = append(r.events, kind+":"+path)
	r.mu.Unlock()
}

func (r *recorder) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

func startWatch(t *testing.T, db *DB, store storage.Provider, root string, cb EventCallback) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, db, store, root, quietLogger(), cb)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
}

func TestWatcher_NewFileIndexedAndCreated(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	rec := &recorder{}
	startWatch(t, db, store, vaultDir, rec.record)

	require.NoError(t, os.WriteFile(filepath.Join(vaultDir, "new.md"), []byte("# New"), 0o644))

	require.Eventually(t, func() bool {
		cs, _ := db.GetChecksum("new.md")
		return cs != "" && rec.count("created:new.md") == 1
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatcher_RewriteOfKnownDocumentIsUpdate(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(vaultDir, "note.md"), []byte("v1"), 0o644))
	require.NoError(t, Sync(db, store, quietLogger()))

	rec := &recorder{}
	startWatch(t, db, store, vaultDir, rec.record)

	// storage writes through temp file and rename, which surfaces as Create.
	require.NoError(t, store.Write("note.md", []byte("v2")))

	require.Eventually(t, func() bool {
		return rec.count("updated:note.md") > 0
	}, 5*time.Second, 50*time.Millisecond)
	require.Zero(t, rec.count("created:note.md"))
}

func TestWatcher_NewDirWatched(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	startWatch(t, db, store, vaultDir, nil)

	subDir := filepath.Join(vaultDir, "subdir")
	require.NoError(t, os.MkdirAll(subDir, 0o755))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(subDir, "deep.md"), []byte("# Deep"), 0o644))

	require.Eventually(t, func() bool {
		cs, _ := db.GetChecksum("subdir/deep.md")
		return cs != ""
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(vaultDir, "del.md"), []byte("# Delete Me"), 0o644))
	require.NoError(t, Sync(db, store, quietLogger()))

	startWatch(t, db, store, vaultDir, nil)
	require.NoError(t, os.Remove(filepath.Join(vaultDir, "del.md")))

	require.Eventually(t, func() bool {
		cs, _ := db.GetChecksum("del.md")
		return cs == ""
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatcher_RenameReconciles(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(vaultDir, "old.md"), []byte("# Rename"), 0o644))
	require.NoError(t, Sync(db, store, quietLogger()))

	startWatch(t, db, store, vaultDir, nil)
	require.NoError(t, os.Rename(filepath.Join(vaultDir, "old.md"), filepath.Join(vaultDir, "renamed.md")))

	require.Eventually(t, func() bool {
		oldCS, _ := db.GetChecksum("old.md")
		newCS, _ := db.GetChecksum("renamed.md")
		return oldCS == "" && newCS != ""
	}, 5*time.Second, 50*time.Millisecond)
}

func TestSync_RemovesStale(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	require.NoError(t, db.UpsertDocument(DocumentRow{Path: "gone.md", Basename: "gone", Checksum: "x"}))
	require.NoError(t, os.WriteFile(filepath.Join(vaultDir, "kept.md"), []byte("---\ntitle: Kept\n---\n"), 0o644))

	require.NoError(t, Sync(db, store, quietLogger()))

	rows, err := db.Documents("")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Kept", rows[0].Title)
}

func TestWatcher_RenameReportsMoveNotCreate(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(vaultDir, "old.md"), []byte("# Moving"), 0o644))
	require.NoError(t, Sync(db, store, quietLogger()))

	rec := &recorder{}
	startWatch(t, db, store, vaultDir, rec.record)
	require.NoError(t, os.Rename(filepath.Join(vaultDir, "old.md"), filepath.Join(vaultDir, "new.md")))

	require.Eventually(t, func() bool {
		return rec.count("moved:new.md") == 1 && rec.count("deleted:old.md") == 1
	}, 5*time.Second, 50*time.Millisecond)
	time.Sleep(2 * reconcileDelay)
	require.Zero(t, rec.count("created:new.md"))
}

func TestWatcher_DirectoryMoveReportsMoves(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Join(vaultDir, "a"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(vaultDir, "a", "n.md"), []byte("# In a"), 0o644))
	require.NoError(t, Sync(db, store, quietLogger()))

	rec := &recorder{}
	startWatch(t, db, store, vaultDir, rec.record)
	require.NoError(t, os.Rename(filepath.Join(vaultDir, "a"), filepath.Join(vaultDir, "b")))

	require.Eventually(t, func() bool {
		return rec.count("moved:b/n.md") == 1
	}, 5*time.Second, 50*time.Millisecond)
	time.Sleep(2 * reconcileDelay)
	require.Zero(t, rec.count("created:b/n.md"))
	cs, err := db.GetChecksum("a/n.md")
	require.NoError(t, err)
	require.Empty(t, cs)
}

func TestMovesExpire(t *testing.T) {
	mv := moves{}
	mv.departed("abc")
	require.True(t, mv.arrived("abc"))
	require.False(t, mv.arrived("abc"))

	mv["old"] = time.Now().Add(-2 * moveWindow)
	require.False(t, mv.arrived("old"))
	mv["old"] = time.Now().Add(-2 * moveWindow)
	mv.expire()
	require.Empty(t, mv)
}

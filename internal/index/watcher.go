package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/temple/internal/storage"
)

// Event kinds passed to EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
	EventMoved   = "moved"
)

// EventCallback is called after the index has absorbed a change, so a
// consumer may rely on the document being indexed. "created" is reported
// only for paths the index did not know; an atomic rewrite of an existing
// document is an update, and a document renamed within the vault arrives
// at its new path as "moved".
type EventCallback func(kind string, path string)

const (
	reconcileDelay = 200 * time.Millisecond
	moveWindow     = 2 * time.Second
)

// moves remembers checksums of documents renamed away, so that the same
// content appearing at an unknown path reads as a move. Owned by the
// watcher goroutine.
type moves map[string]time.Time

func (m moves) departed(checksum string) {
	if checksum != "" {
		m[checksum] = time.Now()
	}
}

// arrived reports whether checksum left another path within moveWindow.
func (m moves) arrived(checksum string) bool {
	at, ok := m[checksum]
	if !ok {
		return false
	}
	delete(m, checksum)
	return time.Since(at) <= moveWindow
}

func (m moves) expire() {
	for cs, at := range m {
		if time.Since(at) > moveWindow {
			delete(m, cs)
		}
	}
}

// Watch starts an fsnotify watcher on the vault root and processes changes
// until ctx is cancelled. Directories created at runtime are added to the
// watch list. Renames trigger a debounced reconciliation pass.
func Watch(ctx context.Context, db *DB, store storage.Provider, vaultRoot string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}
	if cb == nil {
		cb = func(string, string) {}
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot))

	mv := moves{}
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, logger, cb, mv)
			mv.expire()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			handle(w, ev, db, store, vaultRoot, logger, cb, mv, scheduleReconcile)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func handle(w *fsnotify.Watcher, ev fsnotify.Event, db *DB, store storage.Provider, vaultRoot string, logger *slog.Logger, cb EventCallback, mv moves, scheduleReconcile func()) {
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := addDirsRecursive(w, ev.Name); err != nil {
				logger.Warn("watcher: add new dir failed", slog.String("path", ev.Name), slog.String("error", err.Error()))
			}
			indexNewDir(db, store, vaultRoot, ev.Name, logger, cb, mv)
			return
		}
	}
	rel, err := filepath.Rel(vaultRoot, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasSuffix(rel, storage.DocumentExt) {
		if ev.Op&fsnotify.Rename != 0 && !strings.HasPrefix(filepath.Base(rel), ".") {
			departDir(db, rel, cb, mv)
			scheduleReconcile()
		}
		return
	}

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		kind, err := absorb(db, store, rel, mv)
		if err != nil {
			logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("kind", kind))
		cb(kind, rel)

	case ev.Op&fsnotify.Remove != 0:
		if err := db.DeleteDocument(rel); err != nil {
			logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		cb(EventDeleted, rel)

	case ev.Op&fsnotify.Rename != 0:
		// Rename fires on the old path only; the new path arrives as Create.
		checksum, _ := db.GetChecksum(rel)
		if err := db.DeleteDocument(rel); err == nil {
			mv.departed(checksum)
			cb(EventDeleted, rel)
		}
		scheduleReconcile()
	}
}

// departDir drops the documents of a directory renamed away.
func departDir(db *DB, dir string, cb EventCallback, mv moves) {
	rows, err := db.Documents(dir + "/")
	if err != nil {
		return
	}
	for _, r := range rows {
		if err := db.DeleteDocument(r.Path); err == nil {
			mv.departed(r.Checksum)
			cb(EventDeleted, r.Path)
		}
	}
}

// absorb indexes one document and reports whether it was new to the
// index, moved from another path, or an update.
func absorb(db *DB, store storage.Provider, rel string, mv moves) (string, error) {
	before, err := db.GetChecksum(rel)
	if err != nil {
		return "", err
	}
	data, err := store.Read(rel)
	if err != nil {
		return "", err
	}
	if err := indexFile(db, rel, data); err != nil {
		return "", err
	}
	switch {
	case before != "":
		return EventUpdated, nil
	case mv.arrived(storage.Checksum(data)):
		return EventMoved, nil
	}
	return EventCreated, nil
}

// reconcile removes index entries without a file and indexes files the
// index is missing or has stale.
func reconcile(db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback, mv moves) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	docs, err := store.List("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(docs))
	for _, d := range docs {
		disk[d.Path] = d.Checksum
	}
	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteDocument(p); err == nil {
			cb(EventDeleted, p)
		}
	}
	for p, cs := range disk {
		known, ok := checksums[p]
		if ok && known == cs {
			continue
		}
		data, err := store.Read(p)
		if err != nil {
			continue
		}
		if err := indexFile(db, p, data); err != nil {
			continue
		}
		switch {
		case ok:
			cb(EventUpdated, p)
		case mv.arrived(cs):
			cb(EventMoved, p)
		default:
			cb(EventCreated, p)
		}
	}
}

func indexNewDir(db *DB, store storage.Provider, vaultRoot, dir string, logger *slog.Logger, cb EventCallback, mv moves) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, storage.DocumentExt) {
			return nil
		}
		rel, err := filepath.Rel(vaultRoot, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		kind, err := absorb(db, store, rel, mv)
		if err != nil {
			logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
			return nil
		}
		cb(kind, rel)
		return nil
	})
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}

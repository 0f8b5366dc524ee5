package index

import (
	"log/slog"
	"time"

	"github.com/starford/temple/internal/models"
	"github.com/starford/temple/internal/parser"
	"github.com/starford/temple/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed documents are upserted
//   - documents removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	docs, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		disk[d.Path] = struct{}{}

		if checksums[d.Path] == d.Checksum {
			continue
		}

		data, err := store.Read(d.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", d.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, d.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", d.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", d.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteDocument(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("path", p))
		}
	}

	logger.Info("sync: done", slog.Int("documents", len(docs)))
	return nil
}

// indexFile upserts the row describing data at path.
func indexFile(db *DB, path string, data []byte) error {
	doc := models.NewDocument(path)
	return db.UpsertDocument(DocumentRow{
		Path:      doc.Path,
		Basename:  doc.Basename,
		Title:     parser.Parse(data).Title,
		Checksum:  storage.Checksum(data),
		IndexedAt: time.Now(),
	})
}

// IndexDocument upserts the row for data written at path.
func (db *DB) IndexDocument(path string, data []byte) error {
	return indexFile(db, path, data)
}

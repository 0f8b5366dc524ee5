package index

import (
	"context"

	"github.com/starford/temple/internal/models"
)

// DocumentIndex is the catalogue of vault documents.
type DocumentIndex interface {
	UpsertDocument(row DocumentRow) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	Documents(prefix string) ([]DocumentRow, error)
}

// Journal records render outcomes.
type Journal interface {
	RecordRender(ctx context.Context, rec models.RenderRecord) error
	Renders(ctx context.Context, q RenderQuery) ([]models.RenderRecord, error)
}

var (
	_ DocumentIndex = (*DB)(nil)
	_ Journal       = (*DB)(nil)
)

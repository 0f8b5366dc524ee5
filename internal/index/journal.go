package index

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/temple/internal/models"
)

// RenderQuery filters the journal. Zero values mean no filter.
type RenderQuery struct {
	Target string
	Status string
	Limit  int
}

// RecordRender appends one journal row, assigning an ID and timestamp when missing.
func (db *DB) RecordRender(ctx context.Context, rec models.RenderRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.RenderedAt.IsZero() {
		rec.RenderedAt = time.Now()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO renders (id, command, target, template, status, error, duration_ms, rendered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Command, rec.Target, rec.Template, rec.Status, rec.Error,
		rec.Duration.Milliseconds(), rec.RenderedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("index: record render: %w", err)
	}
	return nil
}

// Renders returns journal rows, newest first.
func (db *DB) Renders(ctx context.Context, q RenderQuery) ([]models.RenderRecord, error) {
	var where []string
	var args []any
	if q.Target != "" {
		where = append(where, "target = ?")
		args = append(args, q.Target)
	}
	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, q.Status)
	}
	query := `SELECT id, command, target, template, status, error, duration_ms, rendered_at FROM renders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rendered_at DESC, rowid DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: renders: %w", err)
	}
	defer rows.Close()

	out := []models.RenderRecord{}
	for rows.Next() {
		var r models.RenderRecord
		var durMS, atMS int64
		if err := rows.Scan(&r.ID, &r.Command, &r.Target, &r.Template, &r.Status, &r.Error, &durMS, &atMS); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(durMS) * time.Millisecond
		r.RenderedAt = time.UnixMilli(atMS)
		out = append(out, r)
	}
	return out, rows.Err()
}

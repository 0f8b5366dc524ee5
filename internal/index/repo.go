package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	Path      string    `json:"path"`
	Basename  string    `json:"basename"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	IndexedAt time.Time `json:"indexed_at"`
}

// UpsertDocument inserts or replaces a document row.
func (db *DB) UpsertDocument(row DocumentRow) error {
	if row.IndexedAt.IsZero() {
		row.IndexedAt = time.Now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO documents (path, basename, title, checksum, indexed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			basename   = excluded.basename,
			title      = excluded.title,
			checksum   = excluded.checksum,
			indexed_at = excluded.indexed_at
	`, row.Path, row.Basename, row.Title, row.Checksum, row.IndexedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}
	return nil
}

// DeleteDocument removes a document row.
func (db *DB) DeleteDocument(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete document: %w", err)
	}
	return nil
}

// GetChecksum returns the stored checksum, or "" when the path is not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path -> checksum for every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Documents lists indexed documents whose path starts with prefix, ordered by path.
func (db *DB) Documents(prefix string) ([]DocumentRow, error) {
	rows, err := db.conn.Query(`
		SELECT path, basename, title, checksum, indexed_at
		FROM documents
		WHERE substr(path, 1, length(?)) = ?
		ORDER BY path
	`, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("index: documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		var r DocumentRow
		var ms int64
		if err := rows.Scan(&r.Path, &r.Basename, &r.Title, &r.Checksum, &ms); err != nil {
			return nil, err
		}
		r.IndexedAt = time.UnixMilli(ms)
		out = append(out, r)
	}
	return out, rows.Err()
}

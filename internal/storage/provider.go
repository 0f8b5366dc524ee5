// Package storage is the vault document store: listing, reading and overwriting markdown files.
package storage

import "github.com/starford/temple/internal/models"

// Provider is the document surface the render path consumes.
type Provider interface {
	// List returns every .md document under dir (relative to the vault root), sorted by path.
	List(dir string) ([]models.Document, error)
	// Read returns the full content of the document at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the content of the document at path.
	Write(path string, content []byte) error
}

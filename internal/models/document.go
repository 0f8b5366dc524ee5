// Package models defines the domain types for Temple.
package models

import (
	"path"
	"strings"
	"time"
)

// Document is a reference to a markdown file in the vault.
type Document struct {
	Path      string    `json:"path"`
	Basename  string    `json:"basename"`
	Extension string    `json:"extension"`
	Checksum  string    `json:"checksum,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDocument derives a Document from a vault-relative path.
func NewDocument(p string) Document {
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	name := path.Base(p)
	ext := path.Ext(name)
	return Document{
		Path:      p,
		Basename:  strings.TrimSuffix(name, ext),
		Extension: strings.TrimPrefix(ext, "."),
	}
}

// Name returns the file name including its extension.
func (d Document) Name() string {
	return path.Base(d.Path)
}

// Parent returns the vault-relative directory holding the document ("" for the root).
func (d Document) Parent() string {
	dir := path.Dir(d.Path)
	if dir == "." {
		return ""
	}
	return dir
}

// Render statuses recorded in the journal.
const (
	StatusRendered  = "rendered"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// RenderRecord is one row of the render journal.
type RenderRecord struct {
	ID         string        `json:"id"`
	Command    string        `json:"command"`
	Target     string        `json:"target"`
	Template   string        `json:"template,omitempty"`
	Status     string        `json:"status"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	RenderedAt time.Time     `json:"rendered_at"`
}

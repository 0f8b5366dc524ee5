// Package renderctx assembles the data a template is rendered against.
package renderctx

import (
	"context"
	"log/slog"

	"github.com/starford/temple/internal/models"
	"github.com/starford/temple/internal/parser"
	"github.com/starford/temple/internal/storage"
	"github.com/starford/temple/internal/structured"
)

// Well-known top-level keys.
const (
	KeyFile       = "file"
	KeyStructured = "structured"
	KeyNote       = "note"
)

// Context is the template data, keyed by namespace.
type Context map[string]any

// Provider contributes one optional namespace. A failing provider is skipped.
type Provider interface {
	Key() string
	Provide(ctx context.Context, doc models.Document) (any, error)
}

// Defaulter is implemented by providers whose namespace stays present, with
// an empty value, when the provider is skipped or fails.
type Defaulter interface {
	Default() any
}

// Builder produces a Context for a target document.
type Builder struct {
	providers []Provider
	logger    *slog.Logger
}

// NewBuilder creates a builder that appends the given optional providers.
func NewBuilder(logger *slog.Logger, providers ...Provider) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{providers: providers, logger: logger}
}

// Build always sets "file" and "structured"; optional namespaces follow
// when doc refers to a vault document. Providers implementing Defaulter
// always contribute their key.
func (b *Builder) Build(ctx context.Context, doc models.Document, layers []structured.Layer) (Context, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := Context{
		KeyFile:       doc,
		KeyStructured: structured.Parse(layers, doc.Basename),
	}
	for _, p := range b.providers {
		if d, ok := p.(Defaulter); ok {
			out[p.Key()] = d.Default()
		}
		if doc.Path == "" {
			continue
		}
		v, err := p.Provide(ctx, doc)
		if err != nil {
			b.logger.Warn("renderctx: provider failed",
				slog.String("provider", p.Key()),
				slog.String("path", doc.Path),
				slog.String("error", err.Error()))
			continue
		}
		out[p.Key()] = v
	}
	return out, nil
}

// NoteProvider exposes frontmatter, title, tags and links of the target.
type NoteProvider struct {
	Store storage.Provider
}

func (NoteProvider) Key() string { return KeyNote }

func (NoteProvider) Default() any { return parser.Note{} }

func (p NoteProvider) Provide(_ context.Context, doc models.Document) (any, error) {
	data, err := p.Store.Read(doc.Path)
	if err != nil {
		return nil, err
	}
	return parser.Parse(data), nil
}

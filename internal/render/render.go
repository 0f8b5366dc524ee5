// Package render runs templates through text/template with Sprig and the date
// filters. It keeps no state between calls.
package render

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"text/template/parse"

	"github.com/starford/temple/internal/apperr"
	"github.com/starford/temple/internal/filters"
	"github.com/starford/temple/internal/renderctx"
	"github.com/starford/temple/internal/storage"
)

// blankFunc ends every printing action so that an absent value prints as
// nothing instead of text/template's "<no value>".
const blankFunc = "templeBlankAbsent"

func blankAbsent(v any) any {
	if v == nil {
		return ""
	}
	return v
}

// Source is the template to render: literal text or a vault document.
type Source struct {
	Text string
	Path string
}

// Literal renders text as given.
func Literal(text string) Source { return Source{Text: text} }

// Document renders the content of the document at path.
func Document(path string) Source { return Source{Path: path} }

func (s Source) name() string {
	if s.Path != "" {
		return s.Path
	}
	return "inline"
}

// Pipeline renders sources against a context.
type Pipeline struct {
	store storage.Provider
}

// NewPipeline creates a pipeline reading document sources from store.
func NewPipeline(store storage.Provider) *Pipeline {
	return &Pipeline{store: store}
}

// Render produces the rendered text. Parse failures, including calls to
// unknown functions, are TemplateSyntaxError; filter failures keep their kind.
func (p *Pipeline) Render(ctx context.Context, src Source, data renderctx.Context, env filters.Env) (string, error) {
	text := src.Text
	if src.Path != "" {
		raw, err := p.store.Read(src.Path)
		if err != nil {
			return "", &apperr.DocumentIOError{Op: "read", Path: src.Path, Err: err}
		}
		text = string(raw)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return Execute(src.name(), text, data, env)
}

// Execute parses and runs one template.
func Execute(name, text string, data renderctx.Context, env filters.Env) (string, error) {
	funcs := filters.FuncMap(env)
	funcs[blankFunc] = blankAbsent
	tmpl, err := template.New(name).
		Option("missingkey=zero").
		Funcs(funcs).
		Parse(text)
	if err != nil {
		return "", &apperr.TemplateSyntaxError{Template: name, Err: err}
	}
	for _, t := range tmpl.Templates() {
		if t.Tree != nil {
			blankActions(t.Tree.Root)
		}
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, map[string]any(data)); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return b.String(), nil
}

// blankActions appends blankFunc to the pipeline of every action that
// prints its value. Declarations and control conditions are left alone.
func blankActions(n parse.Node) {
	switch n := n.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, c := range n.Nodes {
			blankActions(c)
		}
	case *parse.ActionNode:
		if len(n.Pipe.Decl) > 0 {
			return
		}
		n.Pipe.Cmds = append(n.Pipe.Cmds, &parse.CommandNode{
			NodeType: parse.NodeCommand,
			Pos:      n.Pos,
			Args:     []parse.Node{parse.NewIdentifier(blankFunc).SetTree(nil).SetPos(n.Pos)},
		})
	case *parse.IfNode:
		blankActions(n.List)
		blankActions(n.ElseList)
	case *parse.RangeNode:
		blankActions(n.List)
		blankActions(n.ElseList)
	case *parse.WithNode:
		blankActions(n.List)
		blankActions(n.ElseList)
	}
}

// Package commands is the host command surface: each command has an
// availability check evaluated against the editor state, and runs through
// the render service.
package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/starford/temple/internal/apperr"
	"github.com/starford/temple/internal/noteservice"
	"github.com/starford/temple/internal/picker"
	"github.com/starford/temple/internal/render"
)

// State is what the host knows when a command is invoked.
type State struct {
	Path      string
	Selection render.Span
	Picker    picker.Picker
}

// Command is one user-invocable action.
type Command struct {
	ID    string
	Name  string
	Check func(State) bool
	Run   func(ctx context.Context, st State) (noteservice.Outcome, error)
}

// Registry holds the commands by ID.
type Registry struct {
	byID map[string]Command
}

// NewRegistry registers the render commands against svc.
func NewRegistry(svc *noteservice.Service) *Registry {
	r := &Registry{byID: map[string]Command{}}
	r.add(Command{
		ID:    noteservice.CommandInsertTemplate,
		Name:  "Insert template",
		Check: func(st State) bool { return st.Path != "" },
		Run: func(ctx context.Context, st State) (noteservice.Outcome, error) {
			p := st.Picker
			if p == nil {
				p = picker.Dismiss
			}
			return svc.InsertTemplate(ctx, st.Path, st.Selection, p)
		},
	})
	r.add(Command{
		ID:    noteservice.CommandRenderFile,
		Name:  "Render current file",
		Check: func(st State) bool { return st.Path != "" && st.Selection.Empty() },
		Run: func(ctx context.Context, st State) (noteservice.Outcome, error) {
			return svc.RenderFile(ctx, st.Path)
		},
	})
	r.add(Command{
		ID:    noteservice.CommandRenderSelection,
		Name:  "Render selection",
		Check: func(st State) bool { return st.Path != "" && !st.Selection.Empty() },
		Run: func(ctx context.Context, st State) (noteservice.Outcome, error) {
			return svc.RenderSelection(ctx, st.Path, st.Selection)
		},
	})
	return r
}

func (r *Registry) add(c Command) { r.byID[c.ID] = c }

// Get returns the command with id.
func (r *Registry) Get(id string) (Command, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// List returns every command sorted by ID.
func (r *Registry) List() []Command {
	out := make([]Command, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Available returns the commands whose check passes for st.
func (r *Registry) Available(st State) []Command {
	var out []Command
	for _, c := range r.List() {
		if c.Check(st) {
			out = append(out, c)
		}
	}
	return out
}

// Execute runs id if it is enabled for st.
func (r *Registry) Execute(ctx context.Context, id string, st State) (noteservice.Outcome, error) {
	c, ok := r.Get(id)
	if !ok {
		return noteservice.Outcome{}, fmt.Errorf("command %q: %w", id, apperr.ErrNotFound)
	}
	if !c.Check(st) {
		return noteservice.Outcome{}, fmt.Errorf("command %q: %w", id, apperr.ErrCommandDisabled)
	}
	return c.Run(ctx, st)
}

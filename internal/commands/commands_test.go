package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/temple/internal/apperr"
	"github.com/starford/temple/internal/noteservice"
	"github.com/starford/temple/internal/picker"
	"github.com/starford/temple/internal/render"
	"github.com/starford/temple/internal/testutil"
)

func ids(cmds []Command) []string {
	out := make([]string, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.ID)
	}
	return out
}

func newRegistry(t *testing.T) (*Registry, func(string) string) {
	t.Helper()
	_, store := testutil.TestVault(t)
	testutil.WriteFiles(t, store, map[string]string{
		"_templates/sig.md": "-- {{ .file.Basename }}",
		"note.md":           "{{ 1 | add 1 }}!",
	})
	svc := noteservice.NewService(store, testutil.Settings(t, nil),
		noteservice.WithClock(testutil.Clock()), noteservice.WithLogger(testutil.Logger()))
	read := func(p string) string {
		data, err := store.Read(p)
		require.NoError(t, err)
		return string(data)
	}
	return NewRegistry(svc), read
}

func TestAvailability(t *testing.T) {
	r, _ := newRegistry(t)

	assert.Empty(t, r.Available(State{}))
	assert.Equal(t, []string{"insert-template", "render-file"}, ids(r.Available(State{Path: "note.md"})))
	assert.Equal(t, []string{"insert-template", "render-selection"},
		ids(r.Available(State{Path: "note.md", Selection: render.Span{Start: 0, End: 3}})))
	assert.Len(t, r.List(), 3)
}

func TestExecuteDisabled(t *testing.T) {
	r, _ := newRegistry(t)
	_, err := r.Execute(context.Background(), noteservice.CommandRenderSelection, State{Path: "note.md"})
	assert.ErrorIs(t, err, apperr.ErrCommandDisabled)

	_, err = r.Execute(context.Background(), "nope", State{Path: "note.md"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestExecuteRenderFile(t *testing.T) {
	r, read := newRegistry(t)
	out, err := r.Execute(context.Background(), noteservice.CommandRenderFile, State{Path: "note.md"})
	require.NoError(t, err)
	assert.Equal(t, "rendered", out.Status)
	assert.Equal(t, "2!", read("note.md"))
}

func TestExecuteInsertWithoutPickerCancels(t *testing.T) {
	r, read := newRegistry(t)
	out, err := r.Execute(context.Background(), noteservice.CommandInsertTemplate, State{Path: "note.md"})
	require.NoError(t, err)
	assert.True(t, out.Cancelled())
	assert.Equal(t, "{{ 1 | add 1 }}!", read("note.md"))
}

func TestExecuteInsertAtCursor(t *testing.T) {
	r, read := newRegistry(t)
	end := len("{{ 1 | add 1 }}!")
	_, err := r.Execute(context.Background(), noteservice.CommandInsertTemplate, State{
		Path:      "note.md",
		Selection: render.Span{Start: end, End: end},
		Picker:    picker.ByName("sig"),
	})
	require.NoError(t, err)
	assert.Equal(t, "{{ 1 | add 1 }}!-- note", read("note.md"))
}

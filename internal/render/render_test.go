package render

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/temple/internal/apperr"
	"github.com/starford/temple/internal/datetime"
	"github.com/starford/temple/internal/filters"
	"github.com/starford/temple/internal/models"
	"github.com/starford/temple/internal/renderctx"
	"github.com/starford/temple/internal/structured"
	"github.com/starford/temple/internal/testutil"
)

func fixedEnv() filters.Env {
	return filters.Env{
		Localization:  datetime.Localization{Zone: "UTC"},
		DefaultFormat: "yyyy-MM-dd HH:mm",
		Clock:         func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) },
	}
}

func contextFor(t *testing.T, path string) renderctx.Context {
	t.Helper()
	layers, err := structured.Layers("")
	require.NoError(t, err)
	data, err := renderctx.NewBuilder(nil).Build(context.Background(), models.NewDocument(path), layers)
	require.NoError(t, err)
	return data
}

func TestRenderEndToEnd(t *testing.T) {
	_, store := testutil.TestVault(t)
	p := NewPipeline(store)

	got, err := p.Render(context.Background(),
		Literal(`Hello {{ .file.Basename }}, today is {{ now | formatDate "yyyy-MM-dd" }}`),
		contextFor(t, "Inbox.md"), fixedEnv())
	require.NoError(t, err)
	assert.Equal(t, "Hello Inbox, today is 2024-03-15", got)
}

func TestRenderDocumentSource(t *testing.T) {
	_, store := testutil.TestVault(t)
	require.NoError(t, store.Write("_templates/daily.md", []byte("# {{ .structured.title }} ({{ .structured.uid }})")))

	got, err := NewPipeline(store).Render(context.Background(), Document("_templates/daily.md"),
		contextFor(t, "notes/7 - Standup.md"), fixedEnv())
	require.NoError(t, err)
	assert.Equal(t, "# Standup (7)", got)
}

func TestRenderMissingKeysAreEmpty(t *testing.T) {
	got, err := Execute("t", `[{{ .structured.title }}][{{ .nothing }}][{{ .file.Basename }}]`, contextFor(t, "plain.md"), fixedEnv())
	require.NoError(t, err)
	assert.Equal(t, "[][][plain]", got)
}

func TestRenderKeepsLiteralNoValueText(t *testing.T) {
	text := "text/template prints <no value> for nil interfaces. [{{ .nothing }}]"
	got, err := Execute("t", text, contextFor(t, "plain.md"), fixedEnv())
	require.NoError(t, err)
	assert.Equal(t, "text/template prints <no value> for nil interfaces. []", got)
}

func TestRenderAbsentValuesInsideBlocks(t *testing.T) {
	data := contextFor(t, "plain.md")
	data["meta"] = map[string]any{"tags": []any{"a", nil}}
	text := `{{ define "x" }}<{{ .missing }}>{{ end }}` +
		`{{ with .meta }}{{ .gone }}{{ range .tags }}({{ . }}){{ end }}{{ end }}` +
		`{{ if .nothing }}yes{{ else }}{{ .nothing }}no{{ end }}` +
		`{{ $v := .nothing }}{{ $v }}{{ template "x" . }}`
	got, err := Execute("t", text, data, fixedEnv())
	require.NoError(t, err)
	assert.Equal(t, "(a)()no<>", got)
}

func TestRenderSyntaxErrors(t *testing.T) {
	for _, text := range []string{`{{ .file.Basename`, `{{ nosuchfilter "x" }}`, `{{ end }}`} {
		_, err := Execute("t", text, contextFor(t, "a.md"), fixedEnv())
		require.Error(t, err, text)
		assert.True(t, errors.Is(err, apperr.ErrTemplateSyntax), text)
		var syn *apperr.TemplateSyntaxError
		require.ErrorAs(t, err, &syn)
		assert.Equal(t, "t", syn.Template)
	}
}

func TestRenderFilterErrorsKeepKind(t *testing.T) {
	data := contextFor(t, "a.md")
	cases := []struct {
		text string
		kind error
	}{
		{`{{ "2024-01-01" | parseDate "" }}`, apperr.ErrMissingArgument},
		{`{{ "nope" | parseDate "yyyy-MM-dd" }}`, apperr.ErrDateTimeParsing},
		{`{{ "2024" | formatDate "yyyy" }}`, apperr.ErrInvalidInputType},
	}
	for _, tc := range cases {
		_, err := Execute("t", tc.text, data, fixedEnv())
		require.Error(t, err, tc.text)
		assert.True(t, errors.Is(err, tc.kind), "%s: %v", tc.text, err)
		assert.True(t, apperr.IsRenderFailure(err))
	}

	_, err := Execute("t", `{{ "nope" | parseDate "yyyy-MM-dd" }}`, data, fixedEnv())
	var perr *apperr.DateTimeParsingError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, datetime.ReasonUnparsable, perr.Reason)
	assert.NotEmpty(t, perr.Explanation)
}

func TestRenderMissingDocument(t *testing.T) {
	_, store := testutil.TestVault(t)
	_, err := NewPipeline(store).Render(context.Background(), Document("_templates/gone.md"), contextFor(t, "a.md"), fixedEnv())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrDocumentIO))
}

func TestRenderHonoursCancellation(t *testing.T) {
	_, store := testutil.TestVault(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPipeline(store).Render(ctx, Literal("x"), contextFor(t, "a.md"), fixedEnv())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSpan(t *testing.T) {
	content := []byte("hello world")

	sel, err := Span{Start: 6, End: 11}.Text(content)
	require.NoError(t, err)
	assert.Equal(t, "world", string(sel))

	out, err := Span{Start: 6, End: 11}.Replace(content, "there")
	require.NoError(t, err)
	assert.Equal(t, "hello there", string(out))

	out, err = Span{Start: 5, End: 5}.Replace(content, ",")
	require.NoError(t, err)
	assert.Equal(t, "hello, world", string(out))
	assert.True(t, Span{Start: 5, End: 5}.Empty())

	for _, bad := range []Span{{-1, 2}, {4, 2}, {0, 12}} {
		_, err := bad.Replace(content, "x")
		assert.ErrorIs(t, err, apperr.ErrInvalidSpan)
	}
}

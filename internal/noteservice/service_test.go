package noteservice

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/temple/internal/apperr"
	"github.com/starford/temple/internal/index"
	"github.com/starford/temple/internal/metrics"
	"github.com/starford/temple/internal/models"
	"github.com/starford/temple/internal/picker"
	"github.com/starford/temple/internal/render"
	"github.com/starford/temple/internal/settings"
	"github.com/starford/temple/internal/sse"
	"github.com/starford/temple/internal/storage"
	"github.com/starford/temple/internal/testutil"
)

type capture struct {
	mu     sync.Mutex
	events []sse.Event
}

func (c *capture) Publish(e sse.Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
}

type fixture struct {
	svc    *Service
	store  *storage.FS
	db     *index.DB
	events *capture
}

func newFixture(t *testing.T, mutate func(*settings.Settings)) fixture {
	t.Helper()
	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	events := &capture{}
	svc := NewService(store, testutil.Settings(t, mutate),
		WithJournal(db),
		WithIndexer(db),
		WithMetrics(metrics.New()),
		WithPublisher(events),
		WithClock(testutil.Clock()),
		WithLogger(testutil.Logger()),
	)
	return fixture{svc: svc, store: store, db: db, events: events}
}

func (f fixture) read(t *testing.T, path string) string {
	t.Helper()
	data, err := f.store.Read(path)
	require.NoError(t, err)
	return string(data)
}

func (f fixture) journal(t *testing.T) []models.RenderRecord {
	t.Helper()
	recs, err := f.db.Renders(context.Background(), index.RenderQuery{})
	require.NoError(t, err)
	return recs
}

func TestInsertTemplate(t *testing.T) {
	f := newFixture(t, nil)
	testutil.WriteFiles(t, f.store, map[string]string{
		"_templates/daily.md":   `## {{ .structured.title }} {{ now | formatDate "yyyy-MM-dd" }}`,
		"notes/12 - Standup.md": "before|after",
	})

	out, err := f.svc.InsertTemplate(context.Background(), "notes/12 - Standup.md", render.Span{Start: 7, End: 7}, picker.ByName("daily"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusRendered, out.Status)
	assert.Equal(t, "_templates/daily.md", out.Template)
	assert.Equal(t, "before|## Standup 2024-03-15after", f.read(t, "notes/12 - Standup.md"))

	recs := f.journal(t)
	require.Len(t, recs, 1)
	assert.Equal(t, CommandInsertTemplate, recs[0].Command)
	assert.Equal(t, out.ID, recs[0].ID)

	cs, err := f.db.GetChecksum("notes/12 - Standup.md")
	require.NoError(t, err)
	assert.NotEmpty(t, cs, "written document is re-indexed")
}

func TestInsertTemplateDismissedPickerChangesNothing(t *testing.T) {
	f := newFixture(t, nil)
	testutil.WriteFiles(t, f.store, map[string]string{
		"_templates/daily.md": "x",
		"note.md":             "unchanged",
	})

	out, err := f.svc.InsertTemplate(context.Background(), "note.md", render.Span{}, picker.Dismiss)
	require.NoError(t, err)
	assert.True(t, out.Cancelled())
	assert.Equal(t, "unchanged", f.read(t, "note.md"))

	recs := f.journal(t)
	require.Len(t, recs, 1)
	assert.Equal(t, models.StatusCancelled, recs[0].Status)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, sse.TypeRenderCancelled, f.events.events[0].Type)
}

func TestInsertTemplateEmptyPoolIsCancelledByPrompt(t *testing.T) {
	f := newFixture(t, nil)
	testutil.WriteFiles(t, f.store, map[string]string{"note.md": "x"})

	out, err := f.svc.InsertTemplate(context.Background(), "note.md", render.Span{}, picker.Prompt{In: nilReader{}, Out: discard{}})
	require.NoError(t, err)
	assert.True(t, out.Cancelled())
}

func TestInsertTemplateUnknownTemplate(t *testing.T) {
	f := newFixture(t, nil)
	testutil.WriteFiles(t, f.store, map[string]string{"_templates/a.md": "x", "note.md": "y"})

	out, err := f.svc.InsertTemplate(context.Background(), "note.md", render.Span{}, picker.ByName("zzz"))
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, models.StatusFailed, out.Status)
}

func TestInsertTemplateInvalidSpan(t *testing.T) {
	f := newFixture(t, nil)
	testutil.WriteFiles(t, f.store, map[string]string{"_templates/a.md": "x", "note.md": "y"})

	_, err := f.svc.InsertTemplate(context.Background(), "note.md", render.Span{Start: 5, End: 9}, picker.ByName("a"))
	require.ErrorIs(t, err, apperr.ErrInvalidSpan)
	assert.Equal(t, "y", f.read(t, "note.md"))
}

func TestRenderFile(t *testing.T) {
	f := newFixture(t, nil)
	testutil.WriteFiles(t, f.store, map[string]string{
		"Inbox.md": `Hello {{ .file.Basename }}, today is {{ now | formatDate "yyyy-MM-dd" }}`,
	})

	out, err := f.svc.RenderFile(context.Background(), "Inbox.md")
	require.NoError(t, err)
	assert.Equal(t, "Hello Inbox, today is 2024-03-15", f.read(t, "Inbox.md"))
	assert.Equal(t, "Hello Inbox, today is 2024-03-15", out.Output)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, sse.TypeRenderCompleted, f.events.events[0].Type)
}

func TestRenderFileFailureLeavesDocument(t *testing.T) {
	f := newFixture(t, nil)
	testutil.WriteFiles(t, f.store, map[string]string{"bad.md": `{{ "x" | parseDate "yyyy" }}`})

	out, err := f.svc.RenderFile(context.Background(), "bad.md")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrDateTimeParsing))
	assert.Equal(t, models.StatusFailed, out.Status)
	assert.Equal(t, `{{ "x" | parseDate "yyyy" }}`, f.read(t, "bad.md"))

	recs := f.journal(t)
	require.Len(t, recs, 1)
	assert.NotEmpty(t, recs[0].Error)
	assert.Equal(t, "datetime_parsing", f.events.events[0].Data.(map[string]any)["kind"])
}

func TestRenderFileKeepsLiteralText(t *testing.T) {
	f := newFixture(t, nil)
	testutil.WriteFiles(t, f.store, map[string]string{
		"doc.md": "Go prints <no value> for nil. [{{ .note.Frontmatter.absent }}][{{ .note.Title }}]",
	})

	_, err := f.svc.RenderFile(context.Background(), "doc.md")
	require.NoError(t, err)
	assert.Equal(t, "Go prints <no value> for nil. [][]", f.read(t, "doc.md"))
}

func TestRenderFileMissingDocument(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.RenderFile(context.Background(), "nope.md")
	require.ErrorIs(t, err, apperr.ErrDocumentIO)
}

func TestRenderSelection(t *testing.T) {
	f := newFixture(t, nil)
	content := `keep {{ .file.Basename }} | {{ today | formatDate "HH:mm" }}`
	testutil.WriteFiles(t, f.store, map[string]string{"sel.md": content})

	start := len("keep {{ .file.Basename }} | ")
	_, err := f.svc.RenderSelection(context.Background(), "sel.md", render.Span{Start: start, End: len(content)})
	require.NoError(t, err)
	assert.Equal(t, "keep {{ .file.Basename }} | 00:00", f.read(t, "sel.md"))
}

func TestRenderTextUsesSettings(t *testing.T) {
	f := newFixture(t, func(s *settings.Settings) {
		s.DateTime.DefaultFormat = "dd/MM/yyyy"
		s.DateTime.Timezone = "Asia/Tokyo"
	})

	out, err := f.svc.RenderText(context.Background(), `{{ now | formatDate }} {{ .file.Basename }}`, "notes/Plan.md")
	require.NoError(t, err)
	assert.Equal(t, "15/03/2024 Plan", out.Output)

	out, err = f.svc.RenderText(context.Background(), `[{{ .file.Basename }}][{{ .note.Title }}]`, "")
	require.NoError(t, err)
	assert.Equal(t, "[][]", out.Output)
}

func TestRenderTextSyntaxError(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.RenderText(context.Background(), `{{ nosuch }}`, "")
	require.ErrorIs(t, err, apperr.ErrTemplateSyntax)
	assert.Equal(t, "template_syntax", Kind(err))
}

func TestInvalidStructuredPatternIsConfigurationError(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Settings().Update(func(s *settings.Settings) error {
		s.Structured.Pattern = "("
		return nil
	})
	require.Error(t, err, "invalid pattern is rejected by validation")

	_, err = f.svc.RenderText(context.Background(), "x", "")
	require.NoError(t, err)
}

func TestTemplates(t *testing.T) {
	f := newFixture(t, nil)
	testutil.WriteFiles(t, f.store, map[string]string{
		"_templates/a.md":  "",
		"_templates/_b.md": "",
		"c.md":             "",
	})
	docs, err := f.svc.Templates(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0].Basename)
}

type nilReader struct{}

func (nilReader) Read([]byte) (int, error) { return 0, errors.New("must not be read") }

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// Package noteservice runs the render commands against the vault: it picks
// templates, renders them against a target document and writes the result,
// recording every invocation.
package noteservice

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/temple/internal/apperr"
	"github.com/starford/temple/internal/filters"
	"github.com/starford/temple/internal/index"
	"github.com/starford/temple/internal/metrics"
	"github.com/starford/temple/internal/models"
	"github.com/starford/temple/internal/picker"
	"github.com/starford/temple/internal/render"
	"github.com/starford/temple/internal/renderctx"
	"github.com/starford/temple/internal/resolver"
	"github.com/starford/temple/internal/settings"
	"github.com/starford/temple/internal/sse"
	"github.com/starford/temple/internal/storage"
	"github.com/starford/temple/internal/structured"
)

// Command names used in outcomes, the journal and metrics.
const (
	CommandInsertTemplate  = "insert-template"
	CommandRenderFile      = "render-file"
	CommandRenderSelection = "render-selection"
	CommandRenderText      = "render-text"
	CommandAutoRender      = "auto-render"
)

// Outcome describes one finished invocation.
type Outcome struct {
	ID       string        `json:"id"`
	Command  string        `json:"command"`
	Target   string        `json:"target,omitempty"`
	Template string        `json:"template,omitempty"`
	Status   string        `json:"status"`
	Output   string        `json:"output,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Cancelled reports whether the user dismissed the picker.
func (o Outcome) Cancelled() bool { return o.Status == models.StatusCancelled }

// Publisher receives render events.
type Publisher interface {
	Publish(sse.Event)
}

// Indexer keeps the catalogue in step with documents the service writes.
type Indexer interface {
	IndexDocument(path string, data []byte) error
}

// Service coordinates settings, storage and the render pipeline.
type Service struct {
	store    storage.Provider
	settings *settings.Store
	pipeline *render.Pipeline
	builder  *renderctx.Builder

	journal   index.Journal
	indexer   Indexer
	metrics   *metrics.Metrics
	publisher Publisher
	clock     func() time.Time
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithJournal records every invocation.
func WithJournal(j index.Journal) Option { return func(s *Service) { s.journal = j } }

// WithIndexer re-indexes documents after the service writes them.
func WithIndexer(ix Indexer) Option { return func(s *Service) { s.indexer = ix } }

// WithMetrics updates render metrics.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithPublisher streams render events.
func WithPublisher(p Publisher) Option { return func(s *Service) { s.publisher = p } }

// WithClock overrides the clock seen by the now and today filters.
func WithClock(clock func() time.Time) Option { return func(s *Service) { s.clock = clock } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// NewService creates a render service.
func NewService(store storage.Provider, st *settings.Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		settings: st,
		pipeline: render.NewPipeline(store),
		clock:    time.Now,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.builder = renderctx.NewBuilder(s.logger, renderctx.NoteProvider{Store: store})
	return s
}

// Settings returns the settings store.
func (s *Service) Settings() *settings.Store { return s.settings }

// Templates lists the candidate templates under the current settings.
func (s *Service) Templates(ctx context.Context) ([]models.Document, error) {
	docs, err := resolver.ListCandidates(ctx, s.store, s.settings.Snapshot().Core)
	if err != nil {
		return nil, err
	}
	s.metrics.SetCandidates(len(docs))
	return docs, nil
}

// InsertTemplate asks p for a template, renders it against the document at
// path and replaces at with the result. A dismissed picker ends the command
// with a cancelled outcome and no changes.
func (s *Service) InsertTemplate(ctx context.Context, path string, at render.Span, p picker.Picker) (Outcome, error) {
	out, start := s.begin(CommandInsertTemplate, path)

	candidates, err := s.Templates(ctx)
	if err != nil {
		return s.finish(ctx, out, start, err)
	}
	choice, err := p.Pick(ctx, candidates, resolver.Label)
	if err != nil {
		return s.finish(ctx, out, start, err)
	}
	if choice.Cancelled {
		out.Status = models.StatusCancelled
		return s.finish(ctx, out, start, nil)
	}
	out.Template = choice.Item.Path

	err = s.rewrite(ctx, path, func(content []byte, data renderctx.Context, env filters.Env) ([]byte, string, error) {
		if err := at.Check(len(content)); err != nil {
			return nil, "", err
		}
		rendered, err := s.pipeline.Render(ctx, render.Document(choice.Item.Path), data, env)
		if err != nil {
			return nil, "", err
		}
		next, err := at.Replace(content, rendered)
		return next, rendered, err
	}, &out)
	return s.finish(ctx, out, start, err)
}

// RenderFile renders the whole document at path in place.
func (s *Service) RenderFile(ctx context.Context, path string) (Outcome, error) {
	return s.renderFile(ctx, CommandRenderFile, path)
}

// RenderCreated renders a newly created document in place.
func (s *Service) RenderCreated(ctx context.Context, path string) (Outcome, error) {
	return s.renderFile(ctx, CommandAutoRender, path)
}

func (s *Service) renderFile(ctx context.Context, command, path string) (Outcome, error) {
	out, start := s.begin(command, path)
	err := s.rewrite(ctx, path, func(content []byte, data renderctx.Context, env filters.Env) ([]byte, string, error) {
		rendered, err := render.Execute(path, string(content), data, env)
		return []byte(rendered), rendered, err
	}, &out)
	return s.finish(ctx, out, start, err)
}

// RenderSelection renders only the text inside span and replaces it.
func (s *Service) RenderSelection(ctx context.Context, path string, span render.Span) (Outcome, error) {
	out, start := s.begin(CommandRenderSelection, path)
	err := s.rewrite(ctx, path, func(content []byte, data renderctx.Context, env filters.Env) ([]byte, string, error) {
		sel, err := span.Text(content)
		if err != nil {
			return nil, "", err
		}
		rendered, err := render.Execute(path, string(sel), data, env)
		if err != nil {
			return nil, "", err
		}
		next, err := span.Replace(content, rendered)
		return next, rendered, err
	}, &out)
	return s.finish(ctx, out, start, err)
}

// RenderText renders literal text without writing anything. When path is
// set the text sees that document as its target.
func (s *Service) RenderText(ctx context.Context, text, path string) (Outcome, error) {
	out, start := s.begin(CommandRenderText, path)
	st, layers, err := s.prepare()
	if err != nil {
		return s.finish(ctx, out, start, err)
	}
	doc := models.Document{}
	if path != "" {
		doc = models.NewDocument(path)
	}
	data, err := s.builder.Build(ctx, doc, layers)
	if err != nil {
		return s.finish(ctx, out, start, err)
	}
	out.Output, err = s.pipeline.Render(ctx, render.Literal(text), data, s.env(st))
	return s.finish(ctx, out, start, err)
}

type transform func(content []byte, data renderctx.Context, env filters.Env) (next []byte, rendered string, err error)

// rewrite reads the target, applies fn and writes the result back.
func (s *Service) rewrite(ctx context.Context, path string, fn transform, out *Outcome) error {
	st, layers, err := s.prepare()
	if err != nil {
		return err
	}
	content, err := s.store.Read(path)
	if err != nil {
		return &apperr.DocumentIOError{Op: "read", Path: path, Err: err}
	}
	data, err := s.builder.Build(ctx, models.NewDocument(path), layers)
	if err != nil {
		return err
	}
	next, rendered, err := fn(content, data, s.env(st))
	if err != nil {
		return err
	}
	if err := s.store.Write(path, next); err != nil {
		return &apperr.DocumentIOError{Op: "write", Path: path, Err: err}
	}
	if s.indexer != nil {
		if err := s.indexer.IndexDocument(path, next); err != nil {
			s.logger.Warn("noteservice: reindex failed", slog.String("path", path), slog.String("error", err.Error()))
		}
	}
	out.Output = rendered
	return nil
}

func (s *Service) prepare() (settings.Settings, []structured.Layer, error) {
	st := s.settings.Snapshot()
	layers, err := structured.Layers(st.Structured.Pattern)
	if err != nil {
		return st, nil, err
	}
	return st, layers, nil
}

func (s *Service) env(st settings.Settings) filters.Env {
	return filters.EnvFor(st.DateTime, s.clock)
}

func (s *Service) begin(command, target string) (Outcome, time.Time) {
	return Outcome{ID: uuid.NewString(), Command: command, Target: target}, time.Now()
}

// finish stamps the outcome, then journals, counts and publishes it.
func (s *Service) finish(ctx context.Context, out Outcome, start time.Time, err error) (Outcome, error) {
	out.Duration = time.Since(start)
	rec := models.RenderRecord{
		ID:         out.ID,
		Command:    out.Command,
		Target:     out.Target,
		Template:   out.Template,
		Duration:   out.Duration,
		RenderedAt: start,
	}
	event := sse.TypeRenderCompleted
	switch {
	case err != nil:
		out.Status = models.StatusFailed
		rec.Error = err.Error()
		event = sse.TypeRenderFailed
		s.logger.Warn("noteservice: render failed",
			slog.String("command", out.Command),
			slog.String("target", out.Target),
			slog.String("error", err.Error()))
	case out.Status == models.StatusCancelled:
		event = sse.TypeRenderCancelled
		s.logger.Info("noteservice: render cancelled", slog.String("command", out.Command), slog.String("target", out.Target))
	default:
		out.Status = models.StatusRendered
		s.logger.Info("noteservice: rendered",
			slog.String("command", out.Command),
			slog.String("target", out.Target),
			slog.String("template", out.Template),
			slog.Duration("duration", out.Duration))
	}
	rec.Status = out.Status

	if s.journal != nil {
		// recorded even when ctx is already cancelled
		if jerr := s.journal.RecordRender(context.WithoutCancel(ctx), rec); jerr != nil {
			s.logger.Warn("noteservice: journal failed", slog.String("error", jerr.Error()))
		}
	}
	s.metrics.ObserveRender(out.Command, out.Status, out.Duration)
	if s.publisher != nil {
		s.publisher.Publish(sse.Event{Type: event, Data: eventData(out, err)})
	}
	return out, err
}

func eventData(out Outcome, err error) map[string]any {
	data := map[string]any{
		"id":       out.ID,
		"command":  out.Command,
		"target":   out.Target,
		"template": out.Template,
		"status":   out.Status,
	}
	if err != nil {
		data["error"] = err.Error()
		data["kind"] = Kind(err)
	}
	return data
}

// Kind names the error category for transports.
func Kind(err error) string {
	switch {
	case errors.Is(err, apperr.ErrInvalidInputType):
		return "invalid_input_type"
	case errors.Is(err, apperr.ErrMissingArgument):
		return "missing_argument"
	case errors.Is(err, apperr.ErrDateTimeParsing):
		return "datetime_parsing"
	case errors.Is(err, apperr.ErrTemplateSyntax):
		return "template_syntax"
	case errors.Is(err, apperr.ErrConfiguration):
		return "configuration"
	case errors.Is(err, apperr.ErrDocumentIO):
		return "document_io"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrInvalidSpan):
		return "invalid_span"
	case errors.Is(err, apperr.ErrCommandDisabled):
		return "command_disabled"
	}
	return "internal"
}

// Package autorender renders documents when they are created in the vault.
package autorender

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/starford/temple/internal/index"
	"github.com/starford/temple/internal/resolver"
	"github.com/starford/temple/internal/settings"
)

// Event is a vault change as reported by the index watcher.
type Event struct {
	Kind string
	Path string
}

// Renderer renders a created document in place.
type Renderer interface {
	RenderCreated(ctx context.Context, path string) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, path string) error

func (f RendererFunc) RenderCreated(ctx context.Context, path string) error { return f(ctx, path) }

// Subscriber listens for creation events. Failures are logged, never returned.
type Subscriber struct {
	settings *settings.Store
	renderer Renderer
	logger   *slog.Logger

	events chan Event
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]*pending
}

// pending is a created document waiting to go quiet. Later events for the
// same path restart the wait; a deletion drops the render.
type pending struct {
	touched chan struct{}
	deleted bool
}

// New creates a stopped subscriber.
func New(st *settings.Store, r Renderer, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		settings: st,
		renderer: r,
		logger:   logger,
		events:   make(chan Event, 64),
		pending:  make(map[string]*pending),
	}
}

// Start begins consuming events until ctx ends or Stop is called.
func (s *Subscriber) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop(ctx)
	s.logger.Info("autorender: started")
}

// Stop ends consumption and waits for in-flight renders.
func (s *Subscriber) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Info("autorender: stopped")
}

// Notify queues ev. Events are dropped when the queue is full.
func (s *Subscriber) Notify(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("autorender: queue full, dropping event", slog.String("path", ev.Path))
	}
}

// OnIndexEvent adapts Notify to the index watcher callback.
func (s *Subscriber) OnIndexEvent(kind, path string) {
	s.Notify(Event{Kind: kind, Path: path})
}

func (s *Subscriber) loop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.events:
			if s.touch(ev) {
				continue
			}
			cfg := s.settings.Snapshot().Core
			if !Eligible(ev, cfg) {
				continue
			}
			p := s.track(ev.Path)
			s.wg.Add(1)
			go s.handle(ctx, ev, cfg.AutoRender.SettleDelay, p)
		}
	}
}

// touch restarts the wait of a pending render of ev.Path and reports
// whether one existed.
func (s *Subscriber) touch(ev Event) bool {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	p, ok := s.pending[ev.Path]
	if !ok {
		return false
	}
	p.deleted = ev.Kind == index.EventDeleted
	select {
	case p.touched <- struct{}{}:
	default:
	}
	return true
}

func (s *Subscriber) track(path string) *pending {
	p := &pending{touched: make(chan struct{}, 1)}
	s.pendingMu.Lock()
	s.pending[path] = p
	s.pendingMu.Unlock()
	return p
}

// release forgets path and reports whether it was deleted while pending.
func (s *Subscriber) release(path string) bool {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	p, ok := s.pending[path]
	if !ok {
		return false
	}
	delete(s.pending, path)
	return p.deleted
}

// handle renders ev.Path once it has seen no change for settle. The index
// sees a file as soon as it is created, which may be before its writer is
// done, so being indexed is not a readiness signal.
func (s *Subscriber) handle(ctx context.Context, ev Event, settle time.Duration, p *pending) {
	defer s.wg.Done()
	if settle > 0 {
		t := time.NewTimer(settle)
		defer t.Stop()
	wait:
		for {
			select {
			case <-ctx.Done():
				s.release(ev.Path)
				return
			case <-p.touched:
				t.Reset(settle)
			case <-t.C:
				break wait
			}
		}
	}
	if s.release(ev.Path) {
		s.logger.Debug("autorender: deleted before render", slog.String("path", ev.Path))
		return
	}
	if err := s.renderer.RenderCreated(ctx, ev.Path); err != nil {
		s.logger.Warn("autorender: render failed", slog.String("path", ev.Path), slog.String("error", err.Error()))
	}
}

// Eligible reports whether ev should be rendered under cfg: enabled, a
// creation, outside the template directory and matching the include glob.
func Eligible(ev Event, cfg settings.CoreSettings) bool {
	if !cfg.AutoRender.Enable || ev.Kind != index.EventCreated {
		return false
	}
	if resolver.InDirectory(ev.Path, cfg.TemplateDirectory) {
		return false
	}
	include := cfg.AutoRender.Include
	if include == "" {
		return true
	}
	ok, err := doublestar.Match(include, ev.Path)
	return err == nil && ok
}

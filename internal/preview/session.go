// Package preview owns the live composition a user is working on. A
// session re-renders when its spec changes or when the client reports a
// new measured width, and it guarantees that a superseded render can
// never overwrite a newer one.
package preview

import (
	"context"
	"errors"
	"image"
	"sync"

	"go.uber.org/zap"

	"github.com/bravetux/greetcard/internal/compose"
)

// ErrExportBusy is returned when an export is triggered while a previous
// capture of the same session is still in flight.
var ErrExportBusy = errors.New("an export is already in progress")

// ErrNotReady is returned when no render has completed yet.
var ErrNotReady = errors.New("the composition has not finished rendering")

type Session struct {
	renderer *compose.Renderer
	logger   *zap.Logger

	mu        sync.Mutex
	spec      *compose.Spec
	width     int
	gen       uint64
	cancel    context.CancelFunc
	current   image.Image
	exporting bool
	closed    bool
}

func NewSession(renderer *compose.Renderer, logger *zap.Logger) *Session {
	return &Session{
		renderer: renderer,
		logger:   logger,
		width:    compose.DefaultWidth,
	}
}

// SetSpec validates and installs a new spec, cancelling any render still
// running for the previous one. The render happens asynchronously; its
// result is discarded if yet another spec (or width) lands first.
func (s *Session) SetSpec(spec *compose.Spec) error {
	spec.ApplyDefaults()
	if err := spec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("session is closed")
	}
	s.spec = spec
	gen, ctx := s.restartLocked()
	width := s.width
	s.mu.Unlock()

	go s.render(ctx, gen, spec, width)
	return nil
}

// Resize re-renders the current spec at a newly measured width. It is a
// no-op until a spec has been set.
func (s *Session) Resize(width int) {
	if width <= 0 {
		return
	}
	s.mu.Lock()
	if s.closed || width == s.width {
		s.mu.Unlock()
		return
	}
	s.width = width
	if s.spec == nil {
		// Width recorded; there is nothing to re-render yet.
		s.mu.Unlock()
		return
	}
	spec := s.spec
	gen, ctx := s.restartLocked()
	s.mu.Unlock()

	go s.render(ctx, gen, spec, width)
}

// restartLocked bumps the generation and replaces the render context.
// Callers must hold s.mu.
func (s *Session) restartLocked() (uint64, context.Context) {
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.gen++
	return s.gen, ctx
}

func (s *Session) render(ctx context.Context, gen uint64, spec *compose.Spec, width int) {
	img, err := s.renderer.RenderAt(ctx, spec, width)
	if err != nil {
		s.logger.Warn("preview render failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.closed {
		// A newer spec or width arrived while this render ran.
		return
	}
	s.current = img
}

// Image returns the most recently completed render, if any.
func (s *Session) Image() (image.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.current != nil
}

// Export rasterizes the current spec synchronously and hands the result
// to fn. Only one export may be in flight per session; a second trigger
// during capture fails with ErrExportBusy so two rasterizations can never
// race against the same composition.
func (s *Session) Export(ctx context.Context, fn func(image.Image) error) error {
	s.mu.Lock()
	if s.exporting {
		s.mu.Unlock()
		return ErrExportBusy
	}
	if s.spec == nil {
		s.mu.Unlock()
		return ErrNotReady
	}
	s.exporting = true
	spec := s.spec
	width := s.width
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.exporting = false
		s.mu.Unlock()
	}()

	img, err := s.renderer.RenderAt(ctx, spec, width)
	if err != nil {
		return err
	}
	return fn(img)
}

// Close tears the session down: the pending render is cancelled and its
// result will never apply.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.current = nil
}

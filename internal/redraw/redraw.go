// Package redraw binds a view function to a store so that every committed
// state change produces exactly one render.
package redraw

import (
	"fmt"
	"log/slog"

	"github.com/jask/tealens/internal/metrics"
	"github.com/jask/tealens/internal/store"
)

// Renderer reconciles a freshly produced tree with whatever it rendered last.
// A failed Patch must leave the previous tree as the baseline.
type Renderer[T any] interface {
	Patch(tree T) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc[T any] func(T) error

// Patch calls f.
func (f RendererFunc[T]) Patch(tree T) error { return f(tree) }

// View produces a tree from the current state. Handlers embedded in the tree
// write back through the store it was given.
type View[S, T any] func(*store.Store[S]) T

// RenderError reports a failed frame: either the view panicked or the
// renderer rejected the tree.
type RenderError struct {
	Panic any
	Err   error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("redraw: patch: %v", e.Err)
	}
	return fmt.Sprintf("redraw: view panicked: %v", e.Panic)
}

func (e *RenderError) Unwrap() error { return e.Err }

type options struct {
	log     *slog.Logger
	metrics *metrics.Metrics
	onError func(error)
}

// Option configures a Binding.
type Option func(*options)

// WithLogger sets the logger used for failed frames.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records renders on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithErrorHandler receives render failures raised on the notification path,
// where there is no caller to return them to.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) { o.onError = fn }
}

// Binding is one live subscription between a store and a renderer.
type Binding[S, T any] struct {
	store    *store.Store[S]
	view     View[S, T]
	renderer Renderer[T]
	opts     options
	off      func()
}

// Bind subscribes to st and renders once immediately. If that first render
// fails the binding is still live and is returned together with the error.
func Bind[S, T any](st *store.Store[S], view View[S, T], r Renderer[T], opts ...Option) (*Binding[S, T], error) {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	b := &Binding[S, T]{store: st, view: view, renderer: r, opts: o}
	b.off = st.On(func(S) {
		if err := b.Redraw(); err != nil {
			b.report(err)
		}
	})
	return b, b.Redraw()
}

// Redraw renders the current state once. The view runs inside a store
// transaction, so writes it issues are coalesced and surface afterwards as at
// most one follow-up notification.
func (b *Binding[S, T]) Redraw() (err error) {
	b.store.Transaction(func() {
		err = b.render()
	})
	b.opts.metrics.Render(err)
	return err
}

func (b *Binding[S, T]) render() (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &RenderError{Panic: p}
		}
	}()
	tree := b.view(b.store)
	if perr := b.renderer.Patch(tree); perr != nil {
		return &RenderError{Err: perr}
	}
	return nil
}

func (b *Binding[S, T]) report(err error) {
	if b.opts.onError != nil {
		b.opts.onError(err)
		return
	}
	b.opts.log.Error("render failed", slog.Any("err", err))
}

// Unbind releases the subscription. Calling it more than once is a no-op.
func (b *Binding[S, T]) Unbind() {
	if b.off == nil {
		return
	}
	b.off()
	b.off = nil
}

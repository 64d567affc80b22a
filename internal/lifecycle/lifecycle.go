// Package lifecycle runs a managed application: a view bound to a store plus
// an ordered bundle of side-effect services, each owning one teardown.
//
// The manager owns exactly one set of teardowns at a time. Stop releases the
// redraw binding first and then every service in reverse start order. Swap
// replaces the whole application against the same store, keeping the running
// one intact when the replacement cannot be constructed.
package lifecycle

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jask/tealens/internal/metrics"
	"github.com/jask/tealens/internal/redraw"
	"github.com/jask/tealens/internal/store"
)

var (
	// ErrConstruct wraps failures of a MakeApp function.
	ErrConstruct = errors.New("lifecycle: construct app")
	// ErrStopped is returned by Swap once the manager has been stopped.
	ErrStopped = errors.New("lifecycle: manager stopped")
)

// Teardown releases whatever a service acquired.
type Teardown func()

// Once wraps td so that only the first call has an effect.
func Once(td Teardown) Teardown {
	done := false
	return func() {
		if done || td == nil {
			return
		}
		done = true
		td()
	}
}

// Launch tells a starting service what it is starting into.
type Launch struct {
	Generation string
	// Relaunch is set when the store already holds live state: on a swap and
	// when a failed swap restores the previous app. Services must not replace
	// that state from their sources.
	Relaunch bool
}

// Service is a side-effect channel started alongside a view. Start may be
// called again after the returned teardown ran.
type Service[S any] interface {
	Name() string
	Start(st *store.Store[S], l Launch) (Teardown, error)
}

type funcService[S any] struct {
	name  string
	start func(*store.Store[S], Launch) (Teardown, error)
}

func (f funcService[S]) Name() string { return f.name }

func (f funcService[S]) Start(st *store.Store[S], l Launch) (Teardown, error) { return f.start(st, l) }

// NewService adapts a start function to Service.
func NewService[S any](name string, start func(*store.Store[S], Launch) (Teardown, error)) Service[S] {
	return funcService[S]{name: name, start: start}
}

// App is a view plus its services, in start order.
type App[S, T any] struct {
	View     redraw.View[S, T]
	Services []Service[S]
}

// MakeApp builds an App for a store. It must not start anything itself.
type MakeApp[S, T any] func(st *store.Store[S]) (App[S, T], error)

// DebugHook receives the live store each time an application is launched.
type DebugHook[S any] func(st *store.Store[S], generation string)

type options[S any] struct {
	log     *slog.Logger
	metrics *metrics.Metrics
	onError func(error)
	debug   DebugHook[S]
}

// Option configures a Manager.
type Option[S any] func(*options[S])

// WithLogger sets the manager logger.
func WithLogger[S any](l *slog.Logger) Option[S] {
	return func(o *options[S]) { o.log = l }
}

// WithMetrics records swaps, services and renders on m.
func WithMetrics[S any](m *metrics.Metrics) Option[S] {
	return func(o *options[S]) { o.metrics = m }
}

// WithErrorHandler receives render failures of the bound view.
func WithErrorHandler[S any](fn func(error)) Option[S] {
	return func(o *options[S]) { o.onError = fn }
}

// WithDebugHook installs an inspection hook called on every launch.
func WithDebugHook[S any](hook DebugHook[S]) Option[S] {
	return func(o *options[S]) { o.debug = hook }
}

type running[S, T any] struct {
	app        App[S, T]
	generation string
	binding    *redraw.Binding[S, T]
	teardowns  []Teardown
}

// Manager owns the running application of one store.
type Manager[S, T any] struct {
	store    *store.Store[S]
	renderer redraw.Renderer[T]
	opts     options[S]
	current  *running[S, T]
	stopped  bool
}

// Start constructs the application returned by makeApp, starts its services
// in order and binds its view to r.
func Start[S, T any](st *store.Store[S], r redraw.Renderer[T], makeApp MakeApp[S, T], opts ...Option[S]) (*Manager[S, T], error) {
	o := options[S]{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	m := &Manager[S, T]{store: st, renderer: r, opts: o}
	app, err := m.construct(makeApp)
	if err != nil {
		return nil, err
	}
	if err := m.launch(app, false); err != nil {
		return nil, err
	}
	return m, nil
}

// Generation identifies the running application instance; empty once stopped.
func (m *Manager[S, T]) Generation() string {
	if m.current == nil {
		return ""
	}
	return m.current.generation
}

// Stop unbinds the view and tears down every service in reverse start order.
// Calling Stop again is a no-op.
func (m *Manager[S, T]) Stop() {
	m.stopped = true
	m.halt()
}

// Swap replaces the running application with the one built by makeApp,
// keeping the store and its state. If makeApp fails the running application
// is left untouched and the failure is returned. If the replacement fails to
// start, the previous application is started again. Either way services are
// started with Launch.Relaunch set.
func (m *Manager[S, T]) Swap(makeApp MakeApp[S, T]) error {
	if m.stopped {
		return ErrStopped
	}
	next, err := m.construct(makeApp)
	if err != nil {
		m.opts.metrics.Swap("rejected")
		m.opts.log.Warn("swap rejected, keeping running app",
			slog.String("generation", m.Generation()), slog.Any("err", err))
		return err
	}
	var prev App[S, T]
	if m.current != nil {
		prev = m.current.app
	}
	m.halt()
	if err := m.launch(next, true); err != nil {
		m.opts.metrics.Swap("rolled_back")
		m.opts.log.Error("swap failed to start, restoring previous app", slog.Any("err", err))
		if prev.View == nil {
			return err
		}
		if rerr := m.launch(prev, true); rerr != nil {
			return errors.Join(err, fmt.Errorf("lifecycle: restore previous app: %w", rerr))
		}
		return err
	}
	m.opts.metrics.Swap("ok")
	m.opts.log.Info("app swapped", slog.String("generation", m.current.generation))
	return nil
}

func (m *Manager[S, T]) construct(makeApp MakeApp[S, T]) (app App[S, T], err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: panic: %v", ErrConstruct, p)
		}
	}()
	app, err = makeApp(m.store)
	if err != nil {
		return App[S, T]{}, fmt.Errorf("%w: %w", ErrConstruct, err)
	}
	if app.View == nil {
		return App[S, T]{}, fmt.Errorf("%w: app has no view", ErrConstruct)
	}
	return app, nil
}

// launch starts app's services and binds its view. On a service failure the
// services already started are released in reverse order.
func (m *Manager[S, T]) launch(app App[S, T], relaunch bool) error {
	run := &running[S, T]{app: app, generation: uuid.NewString()}
	l := Launch{Generation: run.generation, Relaunch: relaunch}
	log := m.opts.log.With(slog.String("generation", run.generation))
	for _, svc := range app.Services {
		td, err := svc.Start(m.store, l)
		if err != nil {
			release(run.teardowns)
			m.opts.metrics.ServicesStarted(-len(run.teardowns))
			return fmt.Errorf("lifecycle: start service %s: %w", svc.Name(), err)
		}
		run.teardowns = append(run.teardowns, Once(td))
		m.opts.metrics.ServicesStarted(1)
		log.Debug("service started", slog.String("service", svc.Name()))
	}
	if m.opts.debug != nil {
		m.opts.debug(m.store, run.generation)
	}
	bopts := []redraw.Option{redraw.WithLogger(log), redraw.WithMetrics(m.opts.metrics)}
	if m.opts.onError != nil {
		bopts = append(bopts, redraw.WithErrorHandler(m.opts.onError))
	}
	b, err := redraw.Bind(m.store, app.View, m.renderer, bopts...)
	run.binding = b
	m.current = run
	if err != nil {
		log.Error("first frame failed", slog.Any("err", err))
		if m.opts.onError != nil {
			m.opts.onError(err)
		}
	}
	log.Info("app started", slog.Int("services", len(run.teardowns)))
	return nil
}

func (m *Manager[S, T]) halt() {
	run := m.current
	if run == nil {
		return
	}
	m.current = nil
	run.binding.Unbind()
	release(run.teardowns)
	m.opts.metrics.ServicesStarted(-len(run.teardowns))
}

func release(tds []Teardown) {
	for i := len(tds) - 1; i >= 0; i-- {
		tds[i]()
	}
}

// Package extsync mirrors a slice of store state into an external mutable
// source (a URL-like fragment, a persisted snapshot) in both directions.
//
// The store is authoritative. External values that decode are written into
// the store; values that do not decode are never written and the source is
// corrected back to the encoding of the current state. A reentrancy guard
// absorbs the source's echo of the connector's own writes, so one genuine
// change costs one round trip.
package extsync

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jask/tealens/internal/lifecycle"
	"github.com/jask/tealens/internal/metrics"
	"github.com/jask/tealens/internal/store"
)

// ErrMalformed is wrapped by Codec.Decode failures.
var ErrMalformed = errors.New("extsync: malformed external value")

// Source is an external mutable value. Watchers are notified only when the
// value actually changes, either synchronously from Store or later from
// another event source.
type Source[E comparable] interface {
	// Load returns the current value; ok is false when the source is empty.
	Load() (v E, ok bool, err error)
	Store(v E) error
	Watch(fn func(E)) (cancel func())
}

// Codec converts between store values and external values.
type Codec[T any, E comparable] interface {
	Encode(v T) (E, error)
	Decode(e E) (T, error)
}

type options struct {
	name        string
	log         *slog.Logger
	metrics     *metrics.Metrics
	hydrate     bool
	initialPush bool
	relaunch    bool
}

// Option configures a connector.
type Option func(*options)

// WithName labels the connector in logs and metrics.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the connector logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records connector events on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithHydrate reads the source once before subscribing and adopts its value
// as store state when it decodes. Otherwise the store keeps its state.
func WithHydrate() Option {
	return func(o *options) { o.hydrate = true }
}

// WithInitialPush writes the current store value to the source on connect.
func WithInitialPush() Option {
	return func(o *options) { o.initialPush = true }
}

// WithRelaunch marks a connect into a store that already holds live state.
// Hydration is skipped and the current value is pushed instead. It overrides
// WithHydrate regardless of order.
func WithRelaunch() Option {
	return func(o *options) { o.relaunch = true }
}

type connector[T any, E comparable] struct {
	store  *store.Store[T]
	codec  Codec[T, E]
	source Source[E]
	opts   options
	log    *slog.Logger
	guard  guard[E]
}

// Connect mirrors st into src through codec. The returned function detaches
// both directions; calling it again is a no-op.
func Connect[T any, E comparable](st *store.Store[T], codec Codec[T, E], src Source[E], opts ...Option) (disconnect func(), err error) {
	o := options{name: "extsync", log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	c := &connector[T, E]{
		store:  st,
		codec:  codec,
		source: src,
		opts:   o,
		log:    o.log.With(slog.String("connector", o.name)),
	}
	if o.relaunch {
		o.hydrate, o.initialPush = false, true
	}
	if o.hydrate {
		if err := c.hydrate(); err != nil {
			return nil, err
		}
	}
	if o.initialPush {
		c.push(st.Get())
	}
	off := st.On(c.push)
	cancel := src.Watch(c.pull)
	done := false
	return func() {
		if done {
			return
		}
		done = true
		cancel()
		off()
	}, nil
}

func (c *connector[T, E]) hydrate() error {
	e, ok, err := c.source.Load()
	if err != nil {
		return fmt.Errorf("extsync: %s: load: %w", c.opts.name, err)
	}
	if !ok {
		return nil
	}
	v, err := c.codec.Decode(e)
	if err != nil {
		c.opts.metrics.Sync(c.opts.name, metrics.SyncDiscarded)
		c.log.Warn("discarding external value", slog.Any("err", err))
		return nil
	}
	c.store.Set(v)
	c.opts.metrics.Sync(c.opts.name, metrics.SyncHydrated)
	c.log.Debug("hydrated from external source")
	return nil
}

// push writes the encoding of v to the source unless it already holds it.
func (c *connector[T, E]) push(v T) {
	e, err := c.codec.Encode(v)
	if err != nil {
		c.log.Error("encode state", slog.Any("err", err))
		return
	}
	cur, ok, err := c.source.Load()
	if err != nil {
		c.log.Error("load external value", slog.Any("err", err))
		return
	}
	if ok && cur == e {
		return
	}
	c.guard.arm(e)
	if err := c.source.Store(e); err != nil {
		c.guard.absorb(e)
		c.log.Error("store external value", slog.Any("err", err))
		return
	}
	c.opts.metrics.Sync(c.opts.name, metrics.SyncPush)
}

// pull handles a source notification.
func (c *connector[T, E]) pull(e E) {
	if c.guard.absorb(e) {
		c.opts.metrics.Sync(c.opts.name, metrics.SyncAbsorbed)
		return
	}
	v, err := c.codec.Decode(e)
	if err != nil {
		c.opts.metrics.Sync(c.opts.name, metrics.SyncCorrected)
		c.log.Warn("correcting external value", slog.Any("err", err))
		c.push(c.store.Get())
		return
	}
	c.opts.metrics.Sync(c.opts.name, metrics.SyncPull)
	c.store.Set(v)
}

// Service wraps a connector over the part of the root store selected by lens
// as a lifecycle service. On a relaunch the connector never hydrates.
func Service[S, T any, E comparable](name string, lens store.Lens[S, T], codec Codec[T, E], src Source[E], opts ...Option) lifecycle.Service[S] {
	opts = append([]Option{WithName(name)}, opts...)
	return lifecycle.NewService(name, func(st *store.Store[S], l lifecycle.Launch) (lifecycle.Teardown, error) {
		disconnect, err := Connect(store.Zoom(st, lens), codec, src, LaunchOptions(l, opts...)...)
		if err != nil {
			return nil, err
		}
		return lifecycle.Teardown(disconnect), nil
	})
}

// LaunchOptions returns opts, adding WithRelaunch when l is a relaunch.
func LaunchOptions(l lifecycle.Launch, opts ...Option) []Option {
	if !l.Relaunch {
		return opts
	}
	return append(opts[:len(opts):len(opts)], WithRelaunch())
}

// Identity is the lens selecting the whole state.
func Identity[S any]() store.Lens[S, S] {
	return store.Lens[S, S]{
		Get: func(s S) S { return s },
		Set: func(_ S, v S) S { return v },
	}
}

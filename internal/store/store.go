// Package store implements the observable state container the UI runtime
// binds against: a single mutable value with synchronous subscriptions,
// transactional batching and zoomed handles that share one notification core.
//
// A Store is not safe for concurrent use. All reads, writes and
// subscriptions are expected to happen on one event-loop goroutine.
package store

import (
	"errors"
	"reflect"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// maxFlushPasses bounds the number of notification passes a single commit may
// trigger when subscribers keep writing back into the store.
const maxFlushPasses = 64

// ErrFlushLoop reports subscribers that kept changing the state for more than
// maxFlushPasses consecutive notification passes. It goes to the handler
// installed with WithLoopHandler, or is raised as a panic from the write that
// started the flush when there is none.
var ErrFlushLoop = errors.New("store: subscribers did not settle")

// Lens focuses a value of type S onto a part of type T.
type Lens[S, T any] struct {
	Get func(S) T
	Set func(S, T) S
}

// Index returns a lens onto element i of a slice. Set copies the slice.
func Index[T any](i int) Lens[[]T, T] {
	return Lens[[]T, T]{
		Get: func(xs []T) T { return xs[i] },
		Set: func(xs []T, x T) []T {
			out := make([]T, len(xs))
			copy(out, xs)
			out[i] = x
			return out
		},
	}
}

// core is the state and subscriber list shared by a root store and every
// zoom derived from it.
type core struct {
	value    any
	depth    int
	dirty    bool
	flushing bool
	nextID   int
	subs     []*subscription
	onLoop   func(error)
}

type subscription struct {
	handle int
	check  func()
	active bool
}

// Store is a handle onto shared state of type S. The root handle is created
// with New; narrowed handles are created with Zoom.
type Store[S any] struct {
	c      *core
	handle int
	get    func() S
	set    func(S)
	equal  func(a, b S) bool
}

// Option configures a Store.
type Option[S any] func(*Store[S])

// WithEqual replaces the structural equality used to decide whether a
// subscriber observed a change.
func WithEqual[S any](eq func(a, b S) bool) Option[S] {
	return func(s *Store[S]) { s.equal = eq }
}

// WithLoopHandler receives ErrFlushLoop instead of the writer panicking. The
// pending notifications are dropped and the state keeps the last value
// written.
func WithLoopHandler[S any](fn func(error)) Option[S] {
	return func(s *Store[S]) { s.c.onLoop = fn }
}

// New creates a root store holding initial.
func New[S any](initial S, opts ...Option[S]) *Store[S] {
	c := &core{value: initial}
	get := func() S {
		v, _ := c.value.(S)
		return v
	}
	s := &Store[S]{
		c:     c,
		get:   get,
		set:   func(v S) { c.write(v) },
		equal: defaultEqual[S],
	}
	s.handle = c.newHandle()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Zoom narrows s to the part selected by l. The returned store shares s's
// notification core: writes through either handle are visible through both.
func Zoom[S, T any](s *Store[S], l Lens[S, T], opts ...Option[T]) *Store[T] {
	z := &Store[T]{
		c:     s.c,
		get:   func() T { return l.Get(s.get()) },
		set:   func(v T) { s.set(l.Set(s.get(), v)) },
		equal: defaultEqual[T],
	}
	z.handle = s.c.newHandle()
	for _, opt := range opts {
		opt(z)
	}
	return z
}

// allFields lets cmp descend into unexported fields.
var allFields = cmp.Exporter(func(reflect.Type) bool { return true })

func defaultEqual[S any](a, b S) bool {
	return cmp.Equal(a, b, cmpopts.EquateEmpty(), allFields)
}

// Get returns the current value.
func (s *Store[S]) Get() S { return s.get() }

// Set replaces the current value. Subscribers are notified once the
// outermost transaction, if any, closes. Set panics with ErrFlushLoop when
// subscribers never settle and no loop handler is installed.
func (s *Store[S]) Set(v S) { s.set(v) }

// Modify replaces the current value with f applied to it. It panics like Set.
func (s *Store[S]) Modify(f func(S) S) { s.set(f(s.get())) }

// Transaction runs fn with notifications suppressed. Subscribers see at most
// one notification after the outermost transaction returns.
func (s *Store[S]) Transaction(fn func()) { s.c.transaction(fn) }

// On subscribes fn to changes of the value observed through s. fn runs after
// every committed change that makes the observed value differ from the value
// fn last saw. The returned function unsubscribes; calling it again is a no-op.
func (s *Store[S]) On(fn func(S)) (off func()) {
	last := s.get()
	sub := &subscription{handle: s.handle, active: true}
	sub.check = func() {
		cur := s.get()
		if s.equal(cur, last) {
			return
		}
		last = cur
		fn(cur)
	}
	s.c.subscribe(sub)
	return func() { s.c.unsubscribe(sub) }
}

// Disconnect removes every subscriber installed through this handle.
func (s *Store[S]) Disconnect() {
	for _, sub := range s.c.subs {
		if sub.handle == s.handle {
			s.c.unsubscribe(sub)
		}
	}
}

// Subscribers reports the number of live subscribers on the shared core.
func (s *Store[S]) Subscribers() int { return len(s.c.subs) }

func (c *core) newHandle() int {
	c.nextID++
	return c.nextID
}

func (c *core) subscribe(sub *subscription) {
	c.subs = append(c.subs, sub)
}

func (c *core) unsubscribe(sub *subscription) {
	if !sub.active {
		return
	}
	sub.active = false
	for i, x := range c.subs {
		if x == sub {
			c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
			return
		}
	}
}

func (c *core) write(v any) {
	c.value = v
	c.dirty = true
	if c.depth == 0 {
		c.flush()
	}
}

func (c *core) transaction(fn func()) {
	c.depth++
	defer func() {
		c.depth--
		if c.depth == 0 && c.dirty {
			c.flush()
		}
	}()
	fn()
}

// flush notifies subscribers until no subscriber callback leaves the state
// dirty. Writes made by callbacks are picked up by the next pass instead of
// being delivered re-entrantly.
func (c *core) flush() {
	if c.flushing {
		return
	}
	c.flushing = true
	defer func() { c.flushing = false }()
	for pass := 0; c.dirty; pass++ {
		if pass == maxFlushPasses {
			c.dirty = false
			if c.onLoop != nil {
				c.onLoop(ErrFlushLoop)
				return
			}
			panic(ErrFlushLoop)
		}
		c.dirty = false
		subs := make([]*subscription, len(c.subs))
		copy(subs, c.subs)
		for _, sub := range subs {
			if sub.active {
				sub.check()
			}
		}
	}
}

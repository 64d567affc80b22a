package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type counter struct {
	A    int
	B    int
	Tags []string
}

var fieldA = Lens[counter, int]{
	Get: func(c counter) int { return c.A },
	Set: func(c counter, a int) counter { c.A = a; return c },
}

var fieldB = Lens[counter, int]{
	Get: func(c counter) int { return c.B },
	Set: func(c counter, b int) counter { c.B = b; return c },
}

func TestTransactionCoalescesWrites(t *testing.T) {
	t.Parallel()

	s := New(counter{})
	var seen []counter
	s.On(func(c counter) { seen = append(seen, c) })

	s.Transaction(func() {
		for i := 1; i <= 5; i++ {
			s.Modify(func(c counter) counter { c.A = i; return c })
		}
	})
	require.Equal(t, []counter{{A: 5}}, seen)

	s.Transaction(func() {
		s.Set(counter{A: 9})
		s.Set(counter{A: 5})
	})
	require.Len(t, seen, 1, "net no-op transaction must not notify")
}

func TestEqualWriteDoesNotNotify(t *testing.T) {
	t.Parallel()

	s := New(counter{A: 1, Tags: []string{"x"}})
	calls := 0
	s.On(func(counter) { calls++ })

	s.Set(counter{A: 1, Tags: []string{"x"}})
	require.Zero(t, calls)

	s.Set(counter{A: 1, Tags: []string{"y"}})
	require.Equal(t, 1, calls)
}

func TestNilAndEmptySlicesAreEqual(t *testing.T) {
	s := New(counter{Tags: nil})
	calls := 0
	s.On(func(counter) { calls++ })
	s.Set(counter{Tags: []string{}})
	require.Zero(t, calls)
}

func TestZoomSharesIdentity(t *testing.T) {
	t.Parallel()

	root := New(counter{})
	a := Zoom(root, fieldA)
	b := Zoom(root, fieldB)

	var aSeen, bSeen, rootSeen int
	a.On(func(int) { aSeen++ })
	b.On(func(int) { bSeen++ })
	root.On(func(counter) { rootSeen++ })

	a.Set(3)
	require.Equal(t, 3, root.Get().A)
	require.Equal(t, 1, aSeen)
	require.Zero(t, bSeen, "zoom must only notify for its own path")
	require.Equal(t, 1, rootSeen)

	root.Modify(func(c counter) counter { c.B = 7; return c })
	require.Equal(t, 7, b.Get())
	require.Equal(t, 1, aSeen)
	require.Equal(t, 1, bSeen)
	require.Equal(t, 2, rootSeen)
}

func TestIndexLensCopies(t *testing.T) {
	xs := New([]int{1, 2, 3})
	orig := xs.Get()
	Zoom(xs, Index[int](1)).Set(20)
	require.Equal(t, []int{1, 20, 3}, xs.Get())
	require.Equal(t, []int{1, 2, 3}, orig)
}

func TestWritesDuringNotificationAreNotReentrant(t *testing.T) {
	t.Parallel()

	s := New(counter{})
	depth, maxDepth := 0, 0
	var order []int
	s.On(func(c counter) {
		depth++
		defer func() { depth-- }()
		if depth > maxDepth {
			maxDepth = depth
		}
		order = append(order, c.A)
		if c.A < 3 {
			s.Modify(func(c counter) counter { c.A++; return c })
		}
	})

	s.Set(counter{A: 1})
	require.Equal(t, 1, maxDepth)
	require.Equal(t, []int{1, 2, 3}, order)
}

func TestTransactionInsideNotificationSchedulesFollowUp(t *testing.T) {
	s := New(counter{})
	renders := 0
	s.On(func(c counter) {
		s.Transaction(func() {
			renders++
			if c.B == 0 {
				s.Modify(func(c counter) counter { c.B = 1; return c })
			}
		})
	})

	s.Set(counter{A: 1})
	require.Equal(t, 2, renders)
	require.Equal(t, counter{A: 1, B: 1}, s.Get())
}

func TestRunawayLoopPanics(t *testing.T) {
	s := New(0)
	s.On(func(n int) { s.Set(n + 1) })
	require.PanicsWithValue(t, ErrFlushLoop, func() { s.Set(1) })
}

func TestRunawayLoopGoesToHandler(t *testing.T) {
	var got []error
	s := New(0, WithLoopHandler[int](func(err error) { got = append(got, err) }))
	s.On(func(n int) { s.Set(n + 1) })

	require.NotPanics(t, func() { s.Set(1) })
	require.Len(t, got, 1)
	require.ErrorIs(t, got[0], ErrFlushLoop)

	z := Zoom(s, Lens[int, int]{Get: func(n int) int { return n }, Set: func(_ int, n int) int { return n }})
	require.NotPanics(t, func() { z.Set(-100) })
	require.Len(t, got, 2, "zooms share the handler")
}

type hidden struct {
	n    int
	tags []string
}

func TestUnexportedFieldsCompare(t *testing.T) {
	t.Parallel()

	s := New(hidden{})
	var seen []hidden
	s.On(func(h hidden) { seen = append(seen, h) })

	s.Set(hidden{n: 1})
	s.Set(hidden{n: 1, tags: []string{}})
	s.Set(hidden{n: 2, tags: []string{"a"}})
	require.Equal(t, []hidden{{n: 1}, {n: 2, tags: []string{"a"}}}, seen)
}

func TestUnsubscribeAndDisconnect(t *testing.T) {
	t.Parallel()

	root := New(counter{})
	a := Zoom(root, fieldA)

	calls := 0
	off := root.On(func(counter) { calls++ })
	a.On(func(int) { calls++ })
	a.On(func(int) { calls++ })
	require.Equal(t, 3, root.Subscribers())

	a.Disconnect()
	require.Equal(t, 1, root.Subscribers())

	off()
	off()
	require.Zero(t, root.Subscribers())

	a.Set(4)
	require.Zero(t, calls)
}

func TestUnsubscribeDuringFlushSkipsRemaining(t *testing.T) {
	s := New(0)
	var offB func()
	calls := 0
	s.On(func(int) { offB() })
	offB = s.On(func(int) { calls++ })

	s.Set(1)
	require.Zero(t, calls)
}

func TestWithEqual(t *testing.T) {
	s := New(counter{}, WithEqual(func(a, b counter) bool { return a.A == b.A }))
	calls := 0
	s.On(func(counter) { calls++ })
	s.Set(counter{B: 10})
	require.Zero(t, calls)
	s.Set(counter{A: 1})
	require.Equal(t, 1, calls)
}

package extsync

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/tealens/internal/lifecycle"
	"github.com/jask/tealens/internal/store"
)

// memSource is a synchronous source that echoes every change to its watchers,
// like a URL fragment.
type memSource struct {
	value    string
	set      bool
	writes   []string
	watchers map[int]func(string)
	next     int
}

func newMemSource(v string) *memSource {
	return &memSource{value: v, set: v != "", watchers: map[int]func(string){}}
}

func (m *memSource) Load() (string, bool, error) { return m.value, m.set, nil }

func (m *memSource) Store(v string) error {
	m.writes = append(m.writes, v)
	m.change(v)
	return nil
}

// external simulates a change made by someone other than the connector.
func (m *memSource) external(v string) { m.change(v) }

func (m *memSource) change(v string) {
	if m.set && m.value == v {
		return
	}
	m.value, m.set = v, true
	for _, fn := range m.watchers {
		fn(v)
	}
}

func (m *memSource) Watch(fn func(string)) func() {
	id := m.next
	m.next++
	m.watchers[id] = fn
	return func() { delete(m.watchers, id) }
}

// quietSource never echoes the connector's own writes; external changes are
// delivered later by deliver, like a file watcher.
type quietSource struct {
	memSource
	queued []string
}

func (q *quietSource) Store(v string) error {
	q.writes = append(q.writes, v)
	q.value, q.set = v, true
	return nil
}

func (q *quietSource) deliver() {
	for _, v := range q.queued {
		q.change(v)
	}
	q.queued = nil
}

type intCodec struct{}

func (intCodec) Encode(n int) (string, error) { return "#/" + strconv.Itoa(n), nil }

func (intCodec) Decode(e string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(e, "#/"))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, e)
	}
	return n, nil
}

func TestPushAbsorbsEcho(t *testing.T) {
	t.Parallel()

	st := store.New(1)
	src := newMemSource("#/1")
	storeWrites := 0
	st.On(func(int) { storeWrites++ })

	disconnect, err := Connect[int, string](st, intCodec{}, src)
	require.NoError(t, err)
	defer disconnect()

	st.Set(2)
	require.Equal(t, []string{"#/2"}, src.writes)
	require.Equal(t, 1, storeWrites)

	// the echo was absorbed, so the next genuine change is honoured
	src.external("#/40")
	require.Equal(t, 40, st.Get())
	require.Len(t, src.writes, 1)
}

func TestExternalChangeIsOneRoundTrip(t *testing.T) {
	t.Parallel()

	st := store.New(0)
	src := newMemSource("#/0")
	var storeWrites []int
	st.On(func(n int) { storeWrites = append(storeWrites, n) })

	disconnect, err := Connect[int, string](st, intCodec{}, src)
	require.NoError(t, err)
	defer disconnect()

	src.external("#/5")
	require.Equal(t, []int{5}, storeWrites)
	require.Empty(t, src.writes, "a decodable external value must not be written back")
}

func TestNonCanonicalExternalValueIsNormalized(t *testing.T) {
	st := store.New(0)
	src := newMemSource("#/0")
	disconnect, err := Connect[int, string](st, intCodec{}, src)
	require.NoError(t, err)
	defer disconnect()

	src.external("#/007")
	require.Equal(t, 7, st.Get())
	require.Equal(t, []string{"#/7"}, src.writes)
}

func TestMalformedExternalValueIsCorrected(t *testing.T) {
	t.Parallel()

	st := store.New(3)
	src := newMemSource("#/3")
	storeWrites := 0
	st.On(func(int) { storeWrites++ })

	disconnect, err := Connect[int, string](st, intCodec{}, src)
	require.NoError(t, err)
	defer disconnect()

	src.external("#/bogus")
	require.Equal(t, 3, st.Get())
	require.Zero(t, storeWrites)
	require.Equal(t, []string{"#/3"}, src.writes)
	require.Equal(t, "#/3", src.value)
}

func TestHydrateAndInitialPush(t *testing.T) {
	t.Parallel()

	t.Run("valid external value wins", func(t *testing.T) {
		st := store.New(1)
		src := newMemSource("#/9")
		disconnect, err := Connect[int, string](st, intCodec{}, src, WithHydrate(), WithInitialPush())
		require.NoError(t, err)
		defer disconnect()
		require.Equal(t, 9, st.Get())
		require.Empty(t, src.writes)
	})

	t.Run("malformed external value is replaced", func(t *testing.T) {
		st := store.New(1)
		src := newMemSource("#/x")
		disconnect, err := Connect[int, string](st, intCodec{}, src, WithHydrate(), WithInitialPush())
		require.NoError(t, err)
		defer disconnect()
		require.Equal(t, 1, st.Get())
		require.Equal(t, []string{"#/1"}, src.writes)
	})

	t.Run("empty source without push stays empty", func(t *testing.T) {
		st := store.New(1)
		src := newMemSource("")
		disconnect, err := Connect[int, string](st, intCodec{}, src, WithHydrate())
		require.NoError(t, err)
		defer disconnect()
		require.Equal(t, 1, st.Get())
		require.Empty(t, src.writes)

		st.Set(2)
		require.Equal(t, []string{"#/2"}, src.writes)
	})
}

func TestQuietSourceLeavesGuardHarmless(t *testing.T) {
	t.Parallel()

	st := store.New(0)
	src := &quietSource{memSource: *newMemSource("#/0")}
	disconnect, err := Connect[int, string](st, intCodec{}, src)
	require.NoError(t, err)
	defer disconnect()

	st.Set(1)
	require.Equal(t, []string{"#/1"}, src.writes)

	src.queued = []string{"#/6"}
	src.deliver()
	require.Equal(t, 6, st.Get(), "a genuine change after an unechoed write must not be swallowed")
}

func TestDisconnectDetachesBothDirections(t *testing.T) {
	t.Parallel()

	st := store.New(0)
	src := newMemSource("#/0")
	disconnect, err := Connect[int, string](st, intCodec{}, src)
	require.NoError(t, err)
	require.Equal(t, 1, st.Subscribers())

	disconnect()
	disconnect()
	require.Zero(t, st.Subscribers())
	require.Empty(t, src.watchers)

	st.Set(4)
	src.external("#/8")
	require.Empty(t, src.writes)
	require.Equal(t, 4, st.Get())
}

type failingSource struct{ memSource }

func (f *failingSource) Load() (string, bool, error) { return "", false, errors.New("disk gone") }

func TestHydrateLoadErrorFailsConnect(t *testing.T) {
	st := store.New(0)
	src := &failingSource{memSource: *newMemSource("")}
	_, err := Connect[int, string](st, intCodec{}, src, WithHydrate())
	require.Error(t, err)
	require.Zero(t, st.Subscribers())
}

type pair struct {
	Page int
	Note string
}

func TestServiceZoomsIntoRoot(t *testing.T) {
	t.Parallel()

	root := store.New(pair{Page: 2, Note: "keep"})
	src := newMemSource("")
	page := store.Lens[pair, int]{
		Get: func(p pair) int { return p.Page },
		Set: func(p pair, n int) pair { p.Page = n; return p },
	}
	svc := Service[pair, int, string]("page", page, intCodec{}, src, WithInitialPush())
	require.Equal(t, "page", svc.Name())

	td, err := svc.Start(root, lifecycle.Launch{})
	require.NoError(t, err)
	require.Equal(t, []string{"#/2"}, src.writes)

	root.Modify(func(p pair) pair { p.Note = "edited"; return p })
	require.Len(t, src.writes, 1, "changes outside the zoom must not be pushed")

	src.external("#/4")
	require.Equal(t, pair{Page: 4, Note: "edited"}, root.Get())

	td()
	require.Zero(t, root.Subscribers())
}

func TestIdentityLens(t *testing.T) {
	l := Identity[int]()
	require.Equal(t, 3, l.Get(3))
	require.Equal(t, 5, l.Set(3, 5))
}

func TestGuardStates(t *testing.T) {
	var g guard[string]
	require.False(t, g.absorb("a"), "idle guard absorbs nothing")

	g.arm("a")
	require.True(t, g.absorb("a"))
	require.Equal(t, guardIdle, g.state)

	g.arm("a")
	require.False(t, g.absorb("b"), "a different value is a genuine change")
	require.Equal(t, guardIdle, g.state)
}

func TestRelaunchNeverHydrates(t *testing.T) {
	t.Parallel()

	st := store.New(3)
	src := newMemSource("#/9")
	storeWrites := 0
	st.On(func(int) { storeWrites++ })

	disconnect, err := Connect[int, string](st, intCodec{}, src, WithRelaunch(), WithHydrate())
	require.NoError(t, err)
	defer disconnect()
	require.Equal(t, 3, st.Get())
	require.Zero(t, storeWrites)
	require.Equal(t, []string{"#/3"}, src.writes)

	src.external("#/4")
	require.Equal(t, 4, st.Get())
}

func TestLaunchOptions(t *testing.T) {
	base := []Option{WithHydrate()}
	require.Len(t, LaunchOptions(lifecycle.Launch{}, base...), 1)
	require.Len(t, LaunchOptions(lifecycle.Launch{Relaunch: true}, base...), 2)
	require.Len(t, base, 1)

	st := store.New(pair{Page: 2})
	src := newMemSource("#/8")
	page := store.Lens[pair, int]{
		Get: func(p pair) int { return p.Page },
		Set: func(p pair, n int) pair { p.Page = n; return p },
	}
	td, err := Service[pair, int, string]("page", page, intCodec{}, src, WithHydrate()).Start(st, lifecycle.Launch{Relaunch: true})
	require.NoError(t, err)
	defer td()
	require.Equal(t, 2, st.Get().Page)
	require.Equal(t, "#/2", src.value)
}

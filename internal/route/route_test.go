package route

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/tealens/internal/extsync"
	"github.com/jask/tealens/internal/lifecycle"
	"github.com/jask/tealens/internal/store"
)

type visibility string

const (
	all        visibility = "all"
	complete   visibility = "complete"
	incomplete visibility = "incomplete"
)

type state struct {
	Items      []string
	Visibility visibility
}

var visibilityLens = store.Lens[state, visibility]{
	Get: func(s state) visibility { return s.Visibility },
	Set: func(s state, v visibility) state { s.Visibility = v; return s },
}

var codec = Enum(all, complete, incomplete)

// countingLocation records the writes made through the Source interface.
type countingLocation struct {
	*Location
	writes []string
}

func (c *countingLocation) Store(hash string) error {
	c.writes = append(c.writes, hash)
	return c.Location.Store(hash)
}

func connect(t *testing.T, st *store.Store[state], hash string) *countingLocation {
	t.Helper()
	loc := &countingLocation{Location: NewLocation(hash)}
	disconnect, err := extsync.Connect[visibility, string](store.Zoom(st, visibilityLens), codec, loc,
		extsync.WithHydrate(), extsync.WithInitialPush())
	require.NoError(t, err)
	t.Cleanup(disconnect)
	return loc
}

func TestFragmentDrivesStoreOnce(t *testing.T) {
	t.Parallel()

	st := store.New(state{Visibility: all})
	loc := connect(t, st, "")
	require.Equal(t, []string{"#/all"}, loc.writes)

	var storeWrites []visibility
	st.On(func(s state) { storeWrites = append(storeWrites, s.Visibility) })

	loc.Navigate("#/complete")
	require.Equal(t, []visibility{complete}, storeWrites)
	require.Equal(t, []string{"#/all"}, loc.writes, "no further fragment writes")
	require.Equal(t, "#/complete", loc.Hash())
}

func TestBogusFragmentIsCorrected(t *testing.T) {
	t.Parallel()

	st := store.New(state{Visibility: incomplete})
	loc := connect(t, st, "#/incomplete")
	require.Empty(t, loc.writes)

	storeWrites := 0
	st.On(func(state) { storeWrites++ })

	loc.Navigate("#/bogus")
	require.Zero(t, storeWrites)
	require.Equal(t, incomplete, st.Get().Visibility)
	require.Equal(t, []string{"#/incomplete"}, loc.writes)
	require.Equal(t, "#/incomplete", loc.Hash())
}

func TestStoreDrivesFragment(t *testing.T) {
	t.Parallel()

	st := store.New(state{Visibility: all})
	loc := connect(t, st, "#/all")

	hashChanges := 0
	loc.Watch(func(string) { hashChanges++ })

	st.Modify(func(s state) state { s.Visibility = incomplete; return s })
	require.Equal(t, []string{"#/incomplete"}, loc.writes)
	require.Equal(t, 1, hashChanges)

	st.Modify(func(s state) state { s.Items = append(s.Items, "milk"); return s })
	require.Len(t, loc.writes, 1, "unrelated changes leave the fragment alone")
}

func TestDeepLinkHydrates(t *testing.T) {
	st := store.New(state{Visibility: all})
	loc := connect(t, st, "/complete")
	require.Equal(t, complete, st.Get().Visibility)
	require.Empty(t, loc.writes)
}

func TestServiceLifecycle(t *testing.T) {
	st := store.New(state{Visibility: all})
	loc := NewLocation("#/nope")
	svc := Service(visibilityLens, codec, loc)
	require.Equal(t, "route", svc.Name())

	td, err := svc.Start(st, lifecycle.Launch{})
	require.NoError(t, err)
	require.Equal(t, "#/all", loc.Hash())
	require.Equal(t, 1, loc.Listeners())

	loc.Navigate("#/complete")
	require.Equal(t, complete, st.Get().Visibility)

	td()
	require.Zero(t, loc.Listeners())
	require.Zero(t, st.Subscribers())
}

func TestDecodeSuggestsClosestRoute(t *testing.T) {
	_, err := codec.Decode("#/complet")
	require.ErrorIs(t, err, extsync.ErrMalformed)
	require.Contains(t, err.Error(), `did you mean "#/complete"`)

	_, err = codec.Decode("#/zzzzzzzzzzz")
	require.ErrorIs(t, err, extsync.ErrMalformed)
	require.NotContains(t, err.Error(), "did you mean")

	_, err = codec.Decode("complete")
	require.ErrorIs(t, err, extsync.ErrMalformed, "fragments need the route prefix")

	v, err := codec.Decode("#/incomplete")
	require.NoError(t, err)
	require.Equal(t, incomplete, v)
}

func TestEncodeRejectsUnknown(t *testing.T) {
	_, err := codec.Encode("sideways")
	require.Error(t, err)
	require.Equal(t, "#/all", Fragment(all))
}

func TestLocationNotifiesOnlyOnChange(t *testing.T) {
	loc := NewLocation("all")
	require.Equal(t, "#all", loc.Hash())

	var seen []string
	cancel := loc.Watch(func(h string) { seen = append(seen, h) })
	loc.Navigate("#all")
	loc.Navigate("#/x")
	loc.Navigate("  #/x ")
	require.Equal(t, []string{"#/x"}, seen)

	cancel()
	cancel()
	loc.Navigate("#/y")
	require.Len(t, seen, 1)

	_, ok, err := NewLocation("").Load()
	require.NoError(t, err)
	require.False(t, ok)
}

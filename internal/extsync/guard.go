package extsync

// guardState is the state of a connector's reentrancy guard.
type guardState int

const (
	// guardIdle: the next source notification is a genuine external change.
	guardIdle guardState = iota
	// guardSuppressing: the connector wrote pending to the source and the
	// notification echoing that write must be absorbed.
	guardSuppressing
)

// guard tells notifications caused by the connector's own writes apart from
// genuine external changes. Sources that never echo their own writes leave
// the guard armed; the next genuine notification then carries a different
// value and is still recognized as external.
type guard[E comparable] struct {
	state   guardState
	pending E
}

// arm records that v is about to be written to the source.
func (g *guard[E]) arm(v E) {
	g.state = guardSuppressing
	g.pending = v
}

// absorb consumes a notification carrying v. It reports true when the
// notification is the echo of the connector's own write.
func (g *guard[E]) absorb(v E) bool {
	if g.state != guardSuppressing {
		return false
	}
	g.state = guardIdle
	var zero E
	echo := g.pending == v
	g.pending = zero
	return echo
}

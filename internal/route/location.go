// Package route mirrors one piece of state into a URL-style fragment.
package route

import "strings"

// Location holds a fragment identifier such as "#/complete" and notifies
// listeners synchronously when it changes, the way a browser fires
// hashchange. It implements extsync.Source[string].
type Location struct {
	hash      string
	listeners []*listener
}

type listener struct {
	fn     func(string)
	active bool
}

// NewLocation returns a Location holding the normalized form of hash.
func NewLocation(hash string) *Location {
	return &Location{hash: Normalize(hash)}
}

// Normalize prefixes a non-empty fragment with '#'.
func Normalize(hash string) string {
	hash = strings.TrimSpace(hash)
	if hash == "" || strings.HasPrefix(hash, "#") {
		return hash
	}
	return "#" + hash
}

// Hash returns the current fragment.
func (l *Location) Hash() string { return l.hash }

// Navigate changes the fragment. Listeners run before Navigate returns, and
// only when the fragment actually changed.
func (l *Location) Navigate(hash string) {
	hash = Normalize(hash)
	if hash == l.hash {
		return
	}
	l.hash = hash
	ls := make([]*listener, len(l.listeners))
	copy(ls, l.listeners)
	for _, x := range ls {
		if x.active {
			x.fn(hash)
		}
	}
}

// Load implements extsync.Source.
func (l *Location) Load() (string, bool, error) {
	return l.hash, l.hash != "", nil
}

// Store implements extsync.Source.
func (l *Location) Store(hash string) error {
	l.Navigate(hash)
	return nil
}

// Watch implements extsync.Source.
func (l *Location) Watch(fn func(string)) (cancel func()) {
	x := &listener{fn: fn, active: true}
	l.listeners = append(l.listeners, x)
	return func() {
		if !x.active {
			return
		}
		x.active = false
		for i, y := range l.listeners {
			if y == x {
				l.listeners = append(l.listeners[:i:i], l.listeners[i+1:]...)
				return
			}
		}
	}
}

// Listeners reports the number of installed listeners.
func (l *Location) Listeners() int { return len(l.listeners) }

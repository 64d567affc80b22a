// Package snapshot persists whole-state snapshots and restores them on start.
//
// A snapshot is the JSON envelope {"version": <tag>, "state": <state>}. The
// tag is compared verbatim with the running application's version before a
// snapshot is accepted as initial state.
package snapshot

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jask/tealens/internal/extsync"
)

// ErrVersionMismatch reports a snapshot written by another application version.
var ErrVersionMismatch = fmt.Errorf("%w: snapshot version mismatch", extsync.ErrMalformed)

// Envelope is the persisted form of a state.
type Envelope[S any] struct {
	Version string `json:"version"`
	State   S      `json:"state"`
}

// Codec encodes states as versioned envelopes.
type Codec[S any] struct {
	Version string
}

// Encode implements extsync.Codec.
func (c Codec[S]) Encode(s S) (string, error) {
	b, err := json.Marshal(Envelope[S]{Version: c.Version, State: s})
	if err != nil {
		return "", fmt.Errorf("snapshot: encode: %w", err)
	}
	return string(b), nil
}

// Decode implements extsync.Codec. The version tag may be a JSON string or
// number; either way its text must equal c.Version.
func (c Codec[S]) Decode(text string) (S, error) {
	var zero S
	var raw struct {
		Version json.RawMessage `json:"version"`
		State   json.RawMessage `json:"state"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return zero, fmt.Errorf("%w: %v", extsync.ErrMalformed, err)
	}
	if v := versionText(raw.Version); v != c.Version {
		return zero, fmt.Errorf("%w: have %q, want %q", ErrVersionMismatch, v, c.Version)
	}
	if len(raw.State) == 0 {
		return zero, fmt.Errorf("%w: snapshot has no state", extsync.ErrMalformed)
	}
	var s S
	if err := json.Unmarshal(raw.State, &s); err != nil {
		return zero, fmt.Errorf("%w: %v", extsync.ErrMalformed, err)
	}
	return s, nil
}

func versionText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

package route

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/jask/tealens/internal/extsync"
	"github.com/jask/tealens/internal/lifecycle"
	"github.com/jask/tealens/internal/store"
)

// prefix precedes every route value in a fragment.
const prefix = "#/"

// EnumCodec encodes one of a fixed set of string values as "#/<value>".
type EnumCodec[T ~string] struct {
	values []T
}

// Enum returns a codec accepting exactly values.
func Enum[T ~string](values ...T) EnumCodec[T] {
	return EnumCodec[T]{values: values}
}

// Encode implements extsync.Codec.
func (c EnumCodec[T]) Encode(v T) (string, error) {
	for _, x := range c.values {
		if x == v {
			return prefix + string(v), nil
		}
	}
	return "", fmt.Errorf("route: %q is not a known route", v)
}

// Decode implements extsync.Codec. Unknown fragments fail with
// extsync.ErrMalformed and name the closest known route.
func (c EnumCodec[T]) Decode(hash string) (T, error) {
	bare := strings.TrimPrefix(hash, prefix)
	for _, x := range c.values {
		if string(x) == bare && strings.HasPrefix(hash, prefix) {
			return x, nil
		}
	}
	var zero T
	if s, ok := c.Suggest(bare); ok {
		return zero, fmt.Errorf("%w: %q (did you mean %q?)", extsync.ErrMalformed, hash, prefix+string(s))
	}
	return zero, fmt.Errorf("%w: %q", extsync.ErrMalformed, hash)
}

// Suggest returns the known value closest to s by edit distance, if any is
// within half of s's length.
func (c EnumCodec[T]) Suggest(s string) (T, bool) {
	var best T
	bestDist := -1
	for _, x := range c.values {
		d := levenshtein.ComputeDistance(s, string(x))
		if bestDist < 0 || d < bestDist {
			best, bestDist = x, d
		}
	}
	if bestDist < 0 || bestDist > len(s)/2 {
		var zero T
		return zero, false
	}
	return best, true
}

// Fragment returns the fragment for v without validating it.
func Fragment[T ~string](v T) string { return prefix + string(v) }

// Service mirrors the part of the state selected by lens into loc. The
// current fragment is adopted on start when it decodes (deep links); the
// canonical fragment of the resulting state is then written back, so a
// malformed initial fragment is corrected.
func Service[S any, T ~string](lens store.Lens[S, T], codec EnumCodec[T], loc *Location, opts ...extsync.Option) lifecycle.Service[S] {
	opts = append([]extsync.Option{extsync.WithHydrate(), extsync.WithInitialPush()}, opts...)
	return extsync.Service[S, T, string]("route", lens, codec, loc, opts...)
}

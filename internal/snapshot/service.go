package snapshot

import (
	"log/slog"

	"github.com/jask/tealens/internal/extsync"
	"github.com/jask/tealens/internal/lifecycle"
	"github.com/jask/tealens/internal/store"
)

// Backend is a snapshot source that holds resources until closed.
type Backend interface {
	extsync.Source[string]
	Reset() error
	Close() error
}

// Opener acquires a backend for one run of the storage service.
type Opener func() (Backend, error)

// Service persists the whole state through the backend returned by open.
// On a first launch the stored snapshot is adopted only if its version
// matches codec.Version. On a relaunch the live state is written to the
// backend instead. After that every change is written unconditionally.
func Service[S any](codec Codec[S], open Opener, opts ...extsync.Option) lifecycle.Service[S] {
	opts = append([]extsync.Option{extsync.WithName("storage"), extsync.WithHydrate()}, opts...)
	return lifecycle.NewService("storage", func(st *store.Store[S], l lifecycle.Launch) (lifecycle.Teardown, error) {
		b, err := open()
		if err != nil {
			return nil, err
		}
		disconnect, err := extsync.Connect[S, string](st, codec, b, extsync.LaunchOptions(l, opts...)...)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		return func() {
			disconnect()
			if err := b.Close(); err != nil {
				slog.Warn("close snapshot backend", slog.Any("err", err))
			}
		}, nil
	})
}

// Package prefs stores state snapshots in a JSON file and watches it for
// changes made by other processes.
package prefs

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

const stateFile = "state.json"

// DefaultPath returns the state file under the user config directory,
// creating the directory if needed.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir = filepath.Join(dir, "tealens")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, stateFile), nil
}

// Dispatch runs fn on the goroutine that owns the store.
type Dispatch func(fn func())

// FileSource is an extsync.Source backed by a file. Writes are atomic
// (tmp + rename). Changes made by other processes are picked up by an
// fsnotify watcher and handed to Dispatch; watchers only see content that
// differs from the last value read or written.
//
// Load, Store and the watch callbacks must all run on the dispatch goroutine.
type FileSource struct {
	path     string
	dispatch Dispatch
	log      *slog.Logger

	mu      sync.Mutex
	last    string
	lastSet bool
	closers []func()
}

// Option configures a FileSource.
type Option func(*FileSource)

// WithDispatch sets how watcher events reach the owning goroutine.
func WithDispatch(d Dispatch) Option {
	return func(f *FileSource) {
		if d != nil {
			f.dispatch = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *FileSource) {
		if l != nil {
			f.log = l
		}
	}
}

// Open returns a FileSource for path. The file need not exist yet.
func Open(path string, opts ...Option) (*FileSource, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("prefs: %w", err)
		}
		path = p
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("prefs: %w", err)
	}
	f := &FileSource{path: path, dispatch: func(fn func()) { fn() }, log: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Path returns the file path.
func (f *FileSource) Path() string { return f.path }

func (f *FileSource) read() (string, bool, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

// Load implements extsync.Source.
func (f *FileSource) Load() (string, bool, error) {
	v, ok, err := f.read()
	if err != nil {
		return "", false, fmt.Errorf("prefs: read %s: %w", f.path, err)
	}
	if ok {
		f.remember(v)
	}
	return v, ok, nil
}

// Store implements extsync.Source.
func (f *FileSource) Store(v string) error {
	// remembered before the rename lands
	f.remember(v)
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(v), 0o600); err != nil {
		return fmt.Errorf("prefs: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("prefs: rename %s: %w", tmp, err)
	}
	return nil
}

func (f *FileSource) remember(v string) {
	f.mu.Lock()
	f.last, f.lastSet = v, true
	f.mu.Unlock()
}

// changed records v and reports whether it differs from the last value seen.
func (f *FileSource) changed(v string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastSet && v == f.last {
		return false
	}
	f.last, f.lastSet = v, true
	return true
}

// Watch implements extsync.Source. The directory is watched rather than the
// file so renames over it are seen.
func (f *FileSource) Watch(fn func(string)) (cancel func()) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		f.log.Error("create file watcher", slog.Any("err", err))
		return func() {}
	}
	if err := w.Add(filepath.Dir(f.path)); err != nil {
		f.log.Error("watch state dir", slog.String("path", f.path), slog.Any("err", err))
		_ = w.Close()
		return func() {}
	}
	var active atomic.Bool
	active.Store(true)
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(f.path) || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
					continue
				}
				v, present, err := f.read()
				// skip the truncated file os.WriteFile leaves between syscalls
				if err != nil || !present || v == "" {
					continue
				}
				f.dispatch(func() {
					if active.Load() && f.changed(v) {
						fn(v)
					}
				})
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				f.log.Warn("file watcher", slog.Any("err", err))
			}
		}
	}()
	stopped := false
	stop := func() {
		if stopped {
			return
		}
		stopped = true
		active.Store(false)
		_ = w.Close()
	}
	f.closers = append(f.closers, stop)
	return stop
}

// Reset removes the file.
func (f *FileSource) Reset() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("prefs: %w", err)
	}
	f.mu.Lock()
	f.last, f.lastSet = "", false
	f.mu.Unlock()
	return nil
}

// Close stops every watcher.
func (f *FileSource) Close() error {
	for _, c := range f.closers {
		c()
	}
	f.closers = nil
	return nil
}

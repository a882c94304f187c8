package config

import (
	"context"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/edgehunter/kernel/internal/telemetry/logging"
)

// TunablesWatcher holds the current Tunables behind an atomic pointer and,
// if backed by a file, reloads it on write events — the same atomic-swap
// discipline the DataHub uses for snapshots, applied to config instead.
// The engine loop calls Current() once per cycle rather than re-reading the
// file itself.
type TunablesWatcher struct {
	current atomic.Pointer[Tunables]
	path    string
	watcher *fsnotify.Watcher
	log     logging.Logger
}

// NewTunablesWatcher loads path (if non-empty) and, when the file exists,
// starts a background fsnotify watch that reloads and swaps Tunables on
// every write. If path is empty the watcher just serves DefaultTunables.
func NewTunablesWatcher(ctx context.Context, path string, log logging.Logger) (*TunablesWatcher, error) {
	t, err := LoadTunables(path)
	if err != nil {
		return nil, err
	}
	w := &TunablesWatcher{path: path, log: log}
	w.current.Store(&t)

	if path == "" {
		return w, nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		log.WarnCtx(ctx, "tunables: fsnotify unavailable, hot-reload disabled", "error", err)
		return w, nil
	}
	if err := fw.Add(path); err != nil {
		log.WarnCtx(ctx, "tunables: cannot watch file, hot-reload disabled", "path", path, "error", err)
		_ = fw.Close()
		return w, nil
	}
	w.watcher = fw
	go w.watchLoop(ctx)
	return w, nil
}

func (w *TunablesWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			t, err := LoadTunables(w.path)
			if err != nil {
				w.log.WarnCtx(ctx, "tunables: reload failed, keeping previous values", "error", err)
				continue
			}
			w.current.Store(&t)
			w.log.InfoCtx(ctx, "tunables: reloaded", "path", w.path)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.WarnCtx(ctx, "tunables: watch error", "error", err)
		}
	}
}

// Current returns the currently-active Tunables snapshot.
func (w *TunablesWatcher) Current() Tunables {
	return *w.current.Load()
}

// Close stops the watch goroutine, if any.
func (w *TunablesWatcher) Close() error {
	if w.watcher == nil {
		return nil
	}
	return w.watcher.Close()
}

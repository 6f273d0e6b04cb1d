// internal/watch/watcher.go
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/colebrumley/regexlab/internal/session"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the file must be quiet before a reload.
const DefaultDebounce = 200 * time.Millisecond

// Handler receives each recompute, or the error that prevented one.
type Handler func(res session.Result, err error)

// Watcher re-renders a session whenever its YAML file changes
type Watcher struct {
	path     string
	sess     *session.Session
	debounce time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// New creates a watcher for path feeding sess
func New(path string, sess *session.Session, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		sess:     sess,
		debounce: debounce,
		logger:   logger.With("file", path),
	}
}

// Run loads the file once, then reloads after every burst of changes until
// ctx is cancelled. Parse errors go to h and the watcher keeps going.
func (w *Watcher) Run(ctx context.Context, h Handler) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	// Editors often replace the file instead of writing it, so the
	// directory is watched and events are filtered by name.
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(w.path), err)
	}

	reload := make(chan struct{}, 1)
	defer w.stopTimer()

	w.reload(h)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule(reload)
		case <-reload:
			w.reload(h)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) schedule(reload chan<- struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case reload <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) reload(h Handler) {
	st, err := LoadFile(w.path)
	if err != nil {
		w.logger.Warn("session file not loaded", "error", err)
		h(session.Result{}, err)
		return
	}
	res := w.sess.Update(st)
	w.logger.Debug("session file reloaded", "status", res.Status)
	h(res, nil)
}

// Package watcher re-runs a callback when watched files change.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher watches files and calls back after a quiet period. Parent
// directories are watched instead of the files themselves so that editors
// replacing a file by rename are still seen. Callbacks never run
// concurrently.
type Watcher struct {
	fsw      *fsnotify.Watcher
	logger   *zap.Logger
	debounce time.Duration

	mu        sync.Mutex
	callbacks map[string]func(string)
	timers    map[string]*time.Timer
	dirs      map[string]bool
	closed    bool

	running sync.Mutex
}

// New creates a watcher. A nil logger disables logging.
func New(debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	return &Watcher{
		fsw:       fsw,
		logger:    logger,
		debounce:  debounce,
		callbacks: make(map[string]func(string)),
		timers:    make(map[string]*time.Timer),
		dirs:      make(map[string]bool),
	}, nil
}

// Watch registers callback for each of files.
func (w *Watcher) Watch(files []string, callback func(string)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", file, err)
		}
		dir := filepath.Dir(abs)
		if !w.dirs[dir] {
			if err := w.fsw.Add(dir); err != nil {
				return fmt.Errorf("watching %s: %w", dir, err)
			}
			w.dirs[dir] = true
		}
		w.callbacks[abs] = callback
		w.logger.Debug("watching", zap.String("path", abs))
	}
	return nil
}

// Run dispatches file events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				w.changed(filepath.Clean(ev.Name))
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) changed(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	callback, ok := w.callbacks[path]
	if !ok || w.closed {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.running.Lock()
		defer w.running.Unlock()
		w.logger.Debug("changed", zap.String("path", path))
		callback(path)
	})
}

// Close stops pending callbacks and the underlying watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = make(map[string]*time.Timer)
	w.mu.Unlock()
	return w.fsw.Close()
}

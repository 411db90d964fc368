package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fumiya-kume/secpatch/pkg/logger"
)

// DefaultDebounce coalesces the burst of events editors emit for one save
const DefaultDebounce = 500 * time.Millisecond

// Watcher re-runs a function whenever one file changes
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	log      *logger.Logger
}

// NewWatcher starts watching the directory holding path. Watching the
// directory keeps the watch alive across editors that save by rename.
func NewWatcher(path string, debounce time.Duration, log *logger.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{path: abs, watcher: w, debounce: debounce, log: log.WithPrefix("watch")}, nil
}

// Run blocks until ctx is done, calling fn after each settled change to the
// watched file. Errors from fn are logged and watching continues.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context) error) error {
	defer func() { _ = w.watcher.Close() }()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.log.Info("%s changed, re-running", w.path)
			if err := fn(ctx); err != nil {
				w.log.Error("re-run failed: %v", err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watcher error: %v", err)
		}
	}
}

// Watch is NewWatcher followed by Run
func Watch(ctx context.Context, path string, fn func(context.Context) error, log *logger.Logger) error {
	w, err := NewWatcher(path, DefaultDebounce, log)
	if err != nil {
		return err
	}
	return w.Run(ctx, fn)
}

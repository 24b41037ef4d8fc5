package schema

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"querybar/internal/logging"
)

// Watcher serves a schema loaded from a file and reloads it when the file
// changes. A reload that fails to parse keeps the previous schema.
// Safe for concurrent use; the schema pointer is swapped atomically.
type Watcher struct {
	current atomic.Pointer[Schema]
	path    string
	logger  *slog.Logger

	mu        sync.Mutex
	watcher   *fsnotify.Watcher
	watchDone chan struct{}
	onReload  func(*Schema)
}

var _ Provider = (*Watcher)(nil)

// NewWatcher loads path and starts watching it for writes.
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:   path,
		logger: logging.Default(logger).With("component", "schema", "path", path),
	}
	w.current.Store(s)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(path); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %q: %w", path, err)
	}
	w.watcher = fw
	w.watchDone = make(chan struct{})
	go w.watchLoop(fw, w.watchDone)

	w.logger.Info("schema loaded", "fields", s.Len())
	return w, nil
}

// Current returns the schema in effect.
func (w *Watcher) Current() *Schema {
	return w.current.Load()
}

// OnReload registers a callback invoked after every successful reload.
func (w *Watcher) OnReload(fn func(*Schema)) {
	w.mu.Lock()
	w.onReload = fn
	w.mu.Unlock()
}

// Reload re-reads the file immediately.
func (w *Watcher) Reload() error {
	s, err := Load(w.path)
	if err != nil {
		return err
	}
	w.current.Store(s)

	w.mu.Lock()
	fn := w.onReload
	w.mu.Unlock()
	if fn != nil {
		fn(s)
	}
	return nil
}

func (w *Watcher) watchLoop(fw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := w.Reload(); err != nil {
				w.logger.Warn("schema reload failed, keeping previous", "error", err)
				continue
			}
			w.logger.Info("schema reloaded", "fields", w.Current().Len())
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("schema watch error", "error", err)
		}
	}
}

// Close stops watching. The last loaded schema stays available.
func (w *Watcher) Close() error {
	w.mu.Lock()
	fw, done := w.watcher, w.watchDone
	w.watcher, w.watchDone = nil, nil
	w.mu.Unlock()

	if fw == nil {
		return nil
	}
	// The loop may be inside Reload, which takes mu, so wait unlocked.
	err := fw.Close()
	<-done
	return err
}

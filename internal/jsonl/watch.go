package jsonl

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/taskgraph/tg/internal/storage"
)

// watchDebounce coalesces a burst of filesystem events (an editor saving
// in several writes, `dolt checkout` touching multiple files at once)
// into one Import call.
const watchDebounce = 750 * time.Millisecond

// Watcher re-imports a Bridge's JSONL mirror into store whenever
// tasks.jsonl or dependencies.jsonl changes on disk — grounded on the
// debounced directory watch in the cklxx-elephant.ai example's
// internal/config.RuntimeConfigWatcher, generalized from a single config
// file to the bridge's two JSONL files.
type Watcher struct {
	bridge *Bridge
	store  storage.TaskStore
	onErr  func(error)

	mu      sync.Mutex
	timer   *time.Timer
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	once    sync.Once
}

// NewWatcher builds a Watcher for bridge's directory. onErr receives any
// error from a triggered Import or from the underlying fsnotify watch;
// pass nil to discard them.
func NewWatcher(bridge *Bridge, store storage.TaskStore, onErr func(error)) *Watcher {
	if onErr == nil {
		onErr = func(error) {}
	}
	return &Watcher{bridge: bridge, store: store, onErr: onErr, stopCh: make(chan struct{})}
}

// Start begins watching. It returns once the watch is registered; events
// are handled on a background goroutine until ctx is done or Stop is
// called.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.bridge.Dir); err != nil {
		_ = fsw.Close()
		return err
	}

	w.mu.Lock()
	w.watcher = fsw
	w.mu.Unlock()

	go w.loop()
	if ctx != nil {
		go func() {
			<-ctx.Done()
			w.Stop()
		}()
	}
	return nil
}

// Stop terminates the watch. Safe to call more than once.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		close(w.stopCh)
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		if w.watcher != nil {
			_ = w.watcher.Close()
		}
		w.mu.Unlock()
	})
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.onErr(err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if name != "tasks.jsonl" && name != "dependencies.jsonl" {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(watchDebounce, func() {
		if _, err := w.bridge.Import(context.Background(), w.store); err != nil {
			w.onErr(err)
		}
	})
}

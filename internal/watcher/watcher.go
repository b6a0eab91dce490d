// Package watcher monitors the site source for changes and reports them via callbacks.
package watcher

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/CageChen/inlineh/internal/config"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for events to settle
// before reporting them.
const DefaultDebounce = 200 * time.Millisecond

// EventType represents the type of file system event
type EventType int

// File system event types.
const (
	EventCreate EventType = iota
	EventWrite
	EventRemove
	EventRename
)

func (t EventType) String() string {
	switch t {
	case EventCreate:
		return "create"
	case EventWrite:
		return "update"
	case EventRemove:
		return "remove"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Event represents a file system change event
type Event struct {
	Type EventType
	Path string
}

// Callback is called with the changes collected during one debounce window.
type Callback func([]Event)

// Watcher monitors the source tree, including the embed directory,
// and skips the destination so that builds do not trigger themselves.
type Watcher struct {
	watcher  *fsnotify.Watcher
	cfg      *config.Config
	debounce time.Duration

	mu        sync.Mutex
	callbacks []Callback
	pending   []Event
	timer     *time.Timer

	done chan struct{}
}

// New creates a new file system watcher
func New(cfg *config.Config) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:  w,
		cfg:      cfg,
		debounce: DefaultDebounce,
		done:     make(chan struct{}),
	}, nil
}

// SetDebounce changes the settle time. It must be called before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// OnChange registers a callback for file change events
func (w *Watcher) OnChange(cb Callback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Start begins watching every directory of the source tree
func (w *Watcher) Start() error {
	err := filepath.Walk(w.cfg.Source, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if w.skipped(path) && !w.isLayout(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			log.Printf("Warning: cannot watch %s: %v", path, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	go w.eventLoop()
	return nil
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	close(w.done)

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	return w.watcher.Close()
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.done:
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
			log.Printf("Watcher error: %v", err)
		}
	}
}

// skipped reports whether path is the destination, inside it,
// or excluded by name. The source root itself is never skipped.
func (w *Watcher) skipped(path string) bool {
	if path == w.cfg.Source {
		return false
	}
	dest := filepath.Clean(w.cfg.Destination)
	if path == dest || strings.HasPrefix(path, dest+string(filepath.Separator)) {
		return true
	}
	// Excluded names are matched on every component below the source.
	rel, err := filepath.Rel(w.cfg.Source, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if w.cfg.IsExcluded(part) {
			return true
		}
	}
	return false
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if w.skipped(event.Name) && !w.isLayout(event.Name) {
		return
	}

	var eventType EventType
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		eventType = EventCreate
		// If a new directory is created, watch it
		if isDir(event.Name) {
			_ = w.watcher.Add(event.Name)
		}
	case event.Op&fsnotify.Write == fsnotify.Write:
		eventType = EventWrite
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		eventType = EventRemove
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		eventType = EventRename
	default:
		return
	}

	w.enqueue(Event{Type: eventType, Path: event.Name})
}

// isLayout reports whether path is in the layout directory, which is
// excluded from the output but still affects every page.
func (w *Watcher) isLayout(path string) bool {
	rel, err := filepath.Rel(w.cfg.Source, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel == config.LayoutDir || strings.HasPrefix(rel, config.LayoutDir+"/")
}

func (w *Watcher) enqueue(e Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, e)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	events := w.pending
	w.pending = nil
	callbacks := make([]Callback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	if len(events) == 0 {
		return
	}
	for _, cb := range callbacks {
		cb(events)
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

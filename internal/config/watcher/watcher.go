// Package watcher provides file watching for configuration live reload.
//
// Watched files need not exist: the watcher subscribes to their parent
// directories and filters events by file name, so creating, rewriting,
// replacing (rename over) or deleting a settings file are all reported.
// Bursts of events on one file are coalesced into a single event once the
// file has been quiet for the debounce period.
package watcher

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event represents a file change event.
type Event struct {
	// Path is the absolute path to the changed file.
	Path string

	// Op is the operation that triggered the event.
	Op Operation

	// Time is when the event occurred.
	Time time.Time
}

// Operation represents the type of file operation.
type Operation int

const (
	// OpWrite indicates the file was modified.
	OpWrite Operation = iota

	// OpCreate indicates a new file was created.
	OpCreate

	// OpRemove indicates the file was deleted.
	OpRemove

	// OpRename indicates the file was renamed away.
	OpRename
)

// String returns the operation name.
func (op Operation) String() string {
	switch op {
	case OpWrite:
		return "write"
	case OpCreate:
		return "create"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Handler is called when a file change is detected.
type Handler func(event Event)

// ErrorHandler is called for errors reported by the OS watcher.
type ErrorHandler func(err error)

// DefaultDebounce is the quiet period used unless WithDebounce says
// otherwise.
const DefaultDebounce = 100 * time.Millisecond

// Watcher monitors files for changes.
type Watcher struct {
	mu sync.Mutex

	files map[string]struct{} // absolute paths
	dirs  map[string]int      // watched files per directory

	handlers      []Handler
	errorHandlers []ErrorHandler

	debounce time.Duration
	pending  map[string]*pending

	// fsw is nil while stopped.
	fsw *fsnotify.Watcher
	wg  sync.WaitGroup
}

// pending is a debounced event waiting for its file to go quiet.
type pending struct {
	op    Operation
	timer *time.Timer
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period. Zero delivers every event
// immediately.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// New creates a stopped watcher.
func New(opts ...Option) *Watcher {
	w := &Watcher{
		files:    make(map[string]struct{}),
		dirs:     make(map[string]int),
		debounce: DefaultDebounce,
		pending:  make(map[string]*pending),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch adds a file to the watch list. The file may not exist yet; its
// directory must exist for changes to be seen while running.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.files[abs]; ok {
		return nil
	}
	w.files[abs] = struct{}{}

	dir := filepath.Dir(abs)
	w.dirs[dir]++
	if w.fsw != nil && w.dirs[dir] == 1 {
		return addDir(w.fsw, dir)
	}
	return nil
}

// addDir subscribes to dir. A missing directory is not an error.
func addDir(fsw *fsnotify.Watcher, dir string) error {
	if err := fsw.Add(dir); err != nil && !errors.Is(err, fs.ErrNotExist) && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// OnChange registers a handler for file change events.
func (w *Watcher) OnChange(handler Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// OnError registers a handler for watcher errors.
func (w *Watcher) OnError(handler ErrorHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errorHandlers = append(w.errorHandlers, handler)
}

// Start begins watching. Starting a running watcher does nothing.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fsw != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for dir := range w.dirs {
		if err := addDir(fsw, dir); err != nil {
			_ = fsw.Close()
			return err
		}
	}
	w.fsw = fsw

	w.wg.Add(1)
	go w.loop(fsw)
	return nil
}

// Stop stops watching and drops events still being debounced. Stopping a
// stopped watcher does nothing.
func (w *Watcher) Stop() {
	w.mu.Lock()
	fsw := w.fsw
	w.fsw = nil
	for path, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	if fsw == nil {
		return
	}
	_ = fsw.Close()
	w.wg.Wait()
}

// loop runs until fsw is closed.
func (w *Watcher) loop(fsw *fsnotify.Watcher) {
	defer w.wg.Done()

	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			event, ok := w.convert(ev)
			if !ok {
				continue
			}
			if w.debounce == 0 {
				w.emit(event)
			} else {
				w.schedule(event)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.emitError(err)
		}
	}
}

// convert maps an fsnotify event to an Event for a watched file.
func (w *Watcher) convert(ev fsnotify.Event) (Event, bool) {
	path, err := filepath.Abs(ev.Name)
	if err != nil {
		return Event{}, false
	}

	w.mu.Lock()
	_, watched := w.files[path]
	w.mu.Unlock()
	if !watched {
		return Event{}, false
	}

	var op Operation
	switch {
	case ev.Has(fsnotify.Remove):
		op = OpRemove
	case ev.Has(fsnotify.Rename):
		op = OpRename
	case ev.Has(fsnotify.Create):
		op = OpCreate
	case ev.Has(fsnotify.Write):
		op = OpWrite
	default:
		// Chmod only.
		return Event{}, false
	}
	return Event{Path: path, Op: op, Time: time.Now()}, true
}

// schedule records event and restarts the quiet period of its file.
func (w *Watcher) schedule(event Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fsw == nil {
		return
	}
	if p, ok := w.pending[event.Path]; ok {
		p.op = coalesce(p.op, event.Op)
		p.timer.Reset(w.debounce)
		return
	}
	path := event.Path
	w.pending[path] = &pending{
		op:    event.Op,
		timer: time.AfterFunc(w.debounce, func() { w.fire(path) }),
	}
}

// fire delivers the pending event of a file that went quiet.
func (w *Watcher) fire(path string) {
	w.mu.Lock()
	p, ok := w.pending[path]
	delete(w.pending, path)
	w.mu.Unlock()

	if ok {
		w.emit(Event{Path: path, Op: p.op, Time: time.Now()})
	}
}

// coalesce folds next into the pending operation prev. A file that is
// removed and then created again was replaced, which reads as a write; a
// create followed by writes stays a create.
func coalesce(prev, next Operation) Operation {
	replaced := prev == OpRemove || prev == OpRename
	switch next {
	case OpCreate:
		if replaced {
			return OpWrite
		}
		return OpCreate
	case OpWrite:
		if replaced {
			return OpWrite
		}
		return prev
	default:
		return next
	}
}

// emit calls the change handlers. A panicking handler does not stop the
// others or the watcher.
func (w *Watcher) emit(event Event) {
	w.mu.Lock()
	handlers := slices.Clone(w.handlers)
	w.mu.Unlock()

	for _, h := range handlers {
		func() {
			defer func() { _ = recover() }()
			h(event)
		}()
	}
}

func (w *Watcher) emitError(err error) {
	w.mu.Lock()
	handlers := slices.Clone(w.errorHandlers)
	w.mu.Unlock()

	for _, h := range handlers {
		h(err)
	}
}

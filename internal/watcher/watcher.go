// Package watcher turns raw fsnotify notifications under a project root into
// debounced, classified ChangeEvents. fsnotify is not recursive on every
// platform, so each non-ignored directory is registered explicitly and new
// directories are picked up as they are created.
package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrWatch matches every WatchError.
var ErrWatch = errors.New("watch failed")

// WatchError reports that the root could not be resolved or registered.
type WatchError struct {
	Root string
	Err  error
}

func (e *WatchError) Error() string {
	return fmt.Sprintf("watch %s: %v", e.Root, e.Err)
}

func (e *WatchError) Unwrap() error { return e.Err }

func (e *WatchError) Is(target error) bool { return target == ErrWatch }

type Options struct {
	Root string
	// Filter defaults to one that ignores nothing.
	Filter *Filter
	// Debouncer defaults to an unbounded store.
	Debouncer *Debouncer
	// Window is the debounce window. Zero means DefaultDebounce and a
	// negative value disables debouncing.
	Window  time.Duration
	Verbose bool
}

// Watcher is a running recursive watch. Its events are read from Events until
// the channel is closed.
type Watcher struct {
	root      string
	filter    *Filter
	debouncer *Debouncer
	window    time.Duration
	verbose   bool

	fs  *fsnotify.Watcher
	in  chan ChangeEvent
	out chan ChangeEvent

	closeOnce sync.Once
	closeErr  error
}

// Start resolves the root, registers it and every non-ignored directory below
// it, and begins emitting events.
func Start(opts Options) (*Watcher, error) {
	root, err := resolveRoot(opts.Root)
	if err != nil {
		return nil, &WatchError{Root: opts.Root, Err: err}
	}

	w := newWatcher(root, opts)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &WatchError{Root: root, Err: err}
	}
	w.fs = fw

	if err := w.addTree(root, false); err != nil {
		fw.Close()
		return nil, &WatchError{Root: root, Err: err}
	}

	go pump(w.in, w.out)
	go w.loop()

	log.Printf("watcher: watching %s", root)
	return w, nil
}

func newWatcher(root string, opts Options) *Watcher {
	w := &Watcher{
		root:      root,
		filter:    opts.Filter,
		debouncer: opts.Debouncer,
		window:    opts.Window,
		verbose:   opts.Verbose,
		in:        make(chan ChangeEvent),
		out:       make(chan ChangeEvent),
	}
	if w.filter == nil {
		w.filter = &Filter{}
	}
	if w.debouncer == nil {
		w.debouncer = NewDebouncer(0)
	}
	if w.window == 0 {
		w.window = DefaultDebounce
	}
	return w
}

func resolveRoot(root string) (string, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", resolved)
	}
	return resolved, nil
}

// Root returns the resolved absolute root.
func (w *Watcher) Root() string { return w.root }

// Events delivers classified changes in the order they were accepted.
func (w *Watcher) Events() <-chan ChangeEvent { return w.out }

// Close stops raw event delivery. Events already accepted are still delivered
// before Events is closed.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.fs.Close()
	})
	return w.closeErr
}

// addTree registers dir and every non-ignored directory below it. With
// announce set, everything found below dir is also emitted as a change: the
// entries of a freshly created directory can land before its watch does.
func (w *Watcher) addTree(dir string, announce bool) error {
	now := time.Now()
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if announce && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if announce && path != dir {
			w.emit(path, now)
		}
		if !d.IsDir() {
			return nil
		}
		if rel, ok := w.relative(path); ok && w.filter.ShouldIgnore(rel) {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
}

func (w *Watcher) loop() {
	defer close(w.in)

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Printf("watcher: %v", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !isContentChange(ev.Op) {
		return
	}
	w.emit(ev.Name, time.Now())

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name, true); err != nil {
				log.Printf("watcher: adding %s: %v", ev.Name, err)
			}
		}
	}
}

func (w *Watcher) emit(abs string, now time.Time) {
	if change, ok := w.process(abs, now); ok {
		if w.verbose {
			log.Printf("watcher: %s %s", change.Kind, change.Path)
		}
		w.in <- change
	}
}

// isContentChange keeps create, write, remove and rename (the old name is
// gone). Chmod is metadata only.
func isContentChange(op fsnotify.Op) bool {
	return op.Has(fsnotify.Create) || op.Has(fsnotify.Write) ||
		op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename)
}

// process runs one absolute path through filter, debounce and classification.
func (w *Watcher) process(abs string, now time.Time) (ChangeEvent, bool) {
	rel, ok := w.relative(abs)
	if !ok {
		return ChangeEvent{}, false
	}
	if w.filter.ShouldIgnore(rel) {
		if w.verbose {
			log.Printf("watcher: ignoring %s", rel)
		}
		return ChangeEvent{}, false
	}
	if !w.debouncer.Accept(abs, now, w.window) {
		if w.verbose {
			log.Printf("watcher: debounced %s", rel)
		}
		return ChangeEvent{}, false
	}
	return ChangeEvent{Kind: Classify(rel), Path: rel}, true
}

// relative returns abs relative to the root with forward slashes. It fails
// for the root itself and for anything outside it.
func (w *Watcher) relative(abs string) (string, bool) {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

package modules

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchOp is a bitmask of file events relevant to re-parsing.
type WatchOp uint8

const (
	OpCreate WatchOp = 1 << iota
	OpWrite
	OpRemove
	OpRename
)

// Event is one file change seen by the watcher.
type Event struct {
	Path string
	Op   WatchOp
}

// Watcher wraps fsnotify for the front-end's watch mode: it forwards
// create/write/remove/rename events on watched source files so the
// driver can re-run the scan/parse pipeline.
type Watcher struct {
	w   *fsnotify.Watcher
	evC chan Event
	erC chan error
}

// NewWatcher creates a watcher with running event loop.
func NewWatcher() (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	mw := &Watcher{w: w, evC: make(chan Event, 128), erC: make(chan error, 1)}
	go mw.loop()
	return mw, nil
}

func (mw *Watcher) loop() {
	for {
		select {
		case ev, ok := <-mw.w.Events:
			if !ok {
				close(mw.evC)
				return
			}
			var op WatchOp
			if ev.Op&fsnotify.Create != 0 {
				op |= OpCreate
			}
			if ev.Op&fsnotify.Write != 0 {
				op |= OpWrite
			}
			if ev.Op&fsnotify.Remove != 0 {
				op |= OpRemove
			}
			if ev.Op&fsnotify.Rename != 0 {
				op |= OpRename
			}
			if op == 0 {
				continue
			}
			mw.evC <- Event{Path: filepath.Clean(ev.Name), Op: op}
		case err, ok := <-mw.w.Errors:
			if !ok {
				return
			}
			mw.erC <- err
		}
	}
}

// Events returns the change stream.
func (mw *Watcher) Events() <-chan Event {
	return mw.evC
}

// Errors returns the watcher's error stream.
func (mw *Watcher) Errors() <-chan error {
	return mw.erC
}

// Add watches a file or directory.
func (mw *Watcher) Add(name string) error {
	return mw.w.Add(name)
}

// Remove stops watching a file or directory.
func (mw *Watcher) Remove(name string) error {
	return mw.w.Remove(name)
}

// Close shuts the watcher down.
func (mw *Watcher) Close() error {
	return mw.w.Close()
}

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

type watchEntry struct {
	ctx       context.Context
	callbacks []func()
}

// Watcher dispatches fsnotify events to per-file callbacks. Directories are
// watched instead of files so atomic editor saves still fire.
type Watcher struct {
	watcher   *fsnotify.Watcher
	mu        sync.RWMutex
	files     map[string]*watchEntry
	dirs      map[string]struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

func NewWatcher() (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		watcher: fsWatcher,
		files:   make(map[string]*watchEntry),
		dirs:    make(map[string]struct{}),
	}, nil
}

// Watch registers callback for writes to path until ctx is done.
func (w *Watcher) Watch(ctx context.Context, path string, callback func()) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	dir := filepath.Dir(absPath)
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.dirs[dir]; !ok {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		w.dirs[dir] = struct{}{}
	}
	entry, ok := w.files[absPath]
	if !ok {
		entry = &watchEntry{ctx: ctx}
		w.files[absPath] = entry
	}
	if callback != nil {
		entry.callbacks = append(entry.callbacks, callback)
	}
	w.startOnce.Do(func() {
		go w.loop()
	})
	return nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.dispatch(event.Name)
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) dispatch(name string) {
	absPath, err := filepath.Abs(name)
	if err != nil {
		return
	}
	w.mu.RLock()
	entry, ok := w.files[absPath]
	var callbacks []func()
	if ok && (entry.ctx == nil || entry.ctx.Err() == nil) {
		callbacks = append(callbacks, entry.callbacks...)
	}
	w.mu.RUnlock()
	for _, callback := range callbacks {
		callback()
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	var closeErr error
	w.closeOnce.Do(func() {
		if err := w.watcher.Close(); err != nil {
			closeErr = fmt.Errorf("failed to close watcher: %w", err)
		}
	})
	return closeErr
}

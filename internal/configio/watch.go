package configio

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-parses an atrion config file whenever it's written, and
// pushes the new Document to a caller-supplied callback. Grounded on
// 99souls-ariadne's HotReloadSystem: watch the file's directory (more
// reliable across editors' write-via-rename than watching the file
// directly), filter to the exact path, re-load on fsnotify.Write or Create.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher

	mu        sync.Mutex
	watching  bool
}

// NewWatcher constructs a Watcher for the config file at path. It does not
// start watching until Watch is called.
func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{path: path, watcher: fw}, nil
}

// Watch begins watching the config file's directory and invokes onChange
// with each successfully re-parsed Document. Parse errors are reported via
// onError rather than silently dropped or crashing the watch loop,
// matching spec.md §9's "provider I/O failures ... logged, never
// surfaced on the hot path" posture extended to config reload. Watch
// blocks until ctx is canceled or Close is called.
func (w *Watcher) Watch(ctx context.Context, onChange func(*Document), onError func(error)) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return err
	}

	w.mu.Lock()
	w.watching = true
	w.mu.Unlock()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			doc, err := Load(w.path)
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if onChange != nil {
				onChange(doc)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// Close stops the underlying fsnotify watcher. Safe to call multiple
// times.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.watching {
		return nil
	}
	w.watching = false
	return w.watcher.Close()
}

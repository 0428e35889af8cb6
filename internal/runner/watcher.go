package runner

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watchDocument watches the draft document's directory and forwards its
// path on the returned channel whenever the file is written. Watching the
// directory rather than the file tolerates the file not existing yet — the
// common case, since most runs never produce a document.
//
// The returned stop function releases the watcher. A nil channel (and
// no-op stop) is returned when the directory cannot be watched; document
// tracking then degrades to the end-of-run fallback.
func watchDocument(path string) (<-chan struct{}, func()) {
	if path == "" {
		return nil, func() {}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, func() {}
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, func() {}
	}

	changes := make(chan struct{}, 1)
	go func() {
		defer close(changes)
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name != path {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				// Coalesce bursts: one pending notification is enough,
				// the consumer re-reads the file on receipt.
				select {
				case changes <- struct{}{}:
				default:
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return changes, func() { _ = watcher.Close() }
}

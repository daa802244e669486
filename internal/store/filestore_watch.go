package store

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces bursts of filesystem events into one reload.
const reloadDebounce = 200 * time.Millisecond

// Watch starts picking up external writes to the data file and
// republishing them as change events, so a second process (another "tab")
// editing the same guest file is observed live. The returned error is
// non-nil when the watcher cannot be created; runtime watch errors are
// ignored. Close stops the watcher.
func (s *FileStore) Watch() error {
	if s.stopWatch != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	// Watch the directory, not the file: atomic writes (tmp + rename)
	// replace the inode and would silently detach a file watch.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching data directory: %w", err)
	}

	done := make(chan struct{})

	go func() {
		var debounceTimer *time.Timer

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(s.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}

				// Debounce: wait for the burst to settle, then reload.
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(reloadDebounce, func() {
					s.reload()
				})

			case <-watcher.Errors:
				// Ignore watcher errors silently.

			case <-done:
				return
			}
		}
	}()

	s.stopWatch = func() {
		close(done)
		watcher.Close()
	}
	return nil
}

// reload re-reads the document from disk and publishes a coarse store
// event. Reloading after our own save is harmless: the content matches.
func (s *FileStore) reload() {
	s.lock()
	err := s.load()
	s.unlock()
	if err != nil {
		return
	}
	s.events.Publish(Event{Entity: EntityStore, Op: OpUpdate})
}

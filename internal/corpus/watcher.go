/*-------------------------------------------------------------------------
 *
 * stockchat - Natural Language Inventory Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package corpus

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"stockchat/internal/logging"
)

// Watcher watches a corpus file and triggers a reload callback when it
// changes. Editors often delete and recreate files on save, so the parent
// directory is watched rather than the file itself.
type Watcher struct {
	watcher  *fsnotify.Watcher
	filePath string
	reloadFn func() error
	done     chan struct{}
}

// NewWatcher creates a watcher for the given corpus file
func NewWatcher(filePath string, reloadFn func() error) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fsw,
		filePath: filepath.Clean(filePath),
		reloadFn: reloadFn,
		done:     make(chan struct{}),
	}

	dir := filepath.Dir(w.filePath)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	return w, nil
}

// Start begins watching for corpus file changes
func (w *Watcher) Start() {
	go w.watch()
}

// Stop stops watching
func (w *Watcher) Stop() {
	close(w.done)
	w.watcher.Close()
}

func (w *Watcher) watch() {
	// Debounce so a burst of editor events triggers one reload
	var debounce *time.Timer
	const debounceDelay = 200 * time.Millisecond

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// Event names arrive cleaned; the configured path may not be.
			if filepath.Clean(event.Name) != w.filePath {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceDelay, func() {
					if err := w.reloadFn(); err != nil {
						logging.Warn("corpus reload failed", "path", w.filePath, "error", err.Error())
					} else {
						logging.Info("corpus reloaded", "path", w.filePath)
					}
				})
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("corpus watcher error", "path", w.filePath, "error", err.Error())

		case <-w.done:
			if debounce != nil {
				debounce.Stop()
			}
			return
		}
	}
}

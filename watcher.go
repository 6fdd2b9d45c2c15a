package agentos

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce batches the burst of filesystem events a single editor
// save or deploy produces into one rescan.
const defaultDebounce = 500 * time.Millisecond

// ManifestWatcher watches module roots for manifest changes and triggers a
// manager scan after a debounce window. It is optional machinery: runtimes
// built without WithManifestWatch never construct one.
type ManifestWatcher struct {
	manager  *Manager
	logger   Logger
	roots    []string
	debounce time.Duration

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewManifestWatcher creates a watcher over the given roots. debounce <= 0
// uses the default window.
func NewManifestWatcher(manager *Manager, logger Logger, debounce time.Duration, roots ...string) *ManifestWatcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &ManifestWatcher{
		manager:  manager,
		logger:   logger,
		roots:    roots,
		debounce: debounce,
	}
}

// Start begins watching. The watch loop runs until Stop is called or ctx is
// cancelled.
func (w *ManifestWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	for _, root := range w.roots {
		if err := watcher.Add(root); err != nil {
			w.logger.Warn("Cannot watch module root", "root", root, "error", err)
		}
	}
	w.watcher = watcher
	w.done = make(chan struct{})

	go w.loop(ctx)
	return nil
}

// Stop ends the watch loop and releases the underlying watcher.
func (w *ManifestWatcher) Stop() {
	if w.watcher == nil {
		return
	}
	close(w.done)
	_ = w.watcher.Close()
	w.watcher = nil
}

func (w *ManifestWatcher) loop(ctx context.Context) {
	var timer *time.Timer
	var pending <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("Module root changed", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Filesystem watcher error", "error", err)
		case <-pending:
			pending = nil
			if _, err := w.manager.Scan(ctx); err != nil {
				w.logger.Error("Triggered rescan failed", "error", err)
			}
		}
	}
}

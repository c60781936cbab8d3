package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// eventChannelBuffer is the size of the watch event channel.
const eventChannelBuffer = 256

// defaultDebounce is applied when no debounce delay is configured.
const defaultDebounce = 500 * time.Millisecond

// Watcher watches a library's directory and keeps it synchronized with
// file changes. Rapid change bursts are debounced so each save triggers
// one re-parse.
type Watcher struct {
	library  *Library
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op
}

// NewWatcher creates a watcher over the given library.
func NewWatcher(library *Library, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		library:  library,
		debounce: debounce,
		watcher:  fsw,
		logger:   logger,
		pending:  make(map[string]fsnotify.Op),
	}, nil
}

// Run performs the initial scan, then processes file events until the
// context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.library.Scan(); err != nil {
		return err
	}
	if err := w.addRecursive(w.library.Root()); err != nil {
		return err
	}

	w.logger.Info("Watching documents",
		"dir", w.library.Root(),
		"documents", w.library.DocumentCount())

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watch error", "error", err)

		case <-timer.C:
			w.flush()
		}
	}
}

// handleEvent records a change for the next flush. New directories are
// added to the watch set immediately.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("Failed to watch new directory", "dir", event.Name, "error", err)
			}
			return
		}
	}

	rel, err := filepath.Rel(w.library.Root(), event.Name)
	if err != nil || !w.library.Matches(rel) {
		return
	}

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if len(w.pending) >= eventChannelBuffer {
		// Burst too large to track individually; a full rescan on flush
		// covers everything.
		w.pending["*"] = 0
		return
	}
	w.pending[rel] |= event.Op
}

// flush applies all pending changes to the library.
func (w *Watcher) flush() {
	w.pendingMu.Lock()
	pending := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	if len(pending) == 0 {
		return
	}

	if _, rescan := pending["*"]; rescan {
		if err := w.library.Scan(); err != nil {
			w.logger.Warn("Rescan failed", "error", err)
		}
		return
	}

	for rel, op := range pending {
		if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
			w.library.Remove(rel)
		} else {
			w.library.Reload(rel)
		}
	}

	w.logger.Debug("Documents updated",
		"changed", len(pending),
		"documents", w.library.DocumentCount())
}

// addRecursive watches a directory tree.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		switch d.Name() {
		case ".git", "node_modules", "vendor":
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

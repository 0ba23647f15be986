// Package watcher ingests files into the knowledge base as they
// appear or change on disk.
//
// Events are debounced per path: editors typically emit a burst of
// create and write events for one save, and a file is only ingested
// once its events have settled for the debounce window.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/corpora-labs/recall-cli/internal/core/domain"
	"github.com/corpora-labs/recall-cli/internal/core/ports/driving"
	"github.com/corpora-labs/recall-cli/internal/logger"
)

// DefaultDebounce is how long a file's events must settle before it
// is ingested.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a directory tree and feeds supported files to the
// knowledge service.
type Watcher struct {
	service  driving.KnowledgeService
	debounce time.Duration
}

// Option configures the watcher.
type Option func(*Watcher)

// WithDebounce sets the settle window before a changed file is ingested.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// New creates a watcher feeding the given service.
func New(service driving.KnowledgeService, opts ...Option) *Watcher {
	w := &Watcher{
		service:  service,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch blocks, ingesting supported files created or modified under
// dir until ctx is cancelled. Files already present when watching
// starts are left alone; only subsequent changes are ingested.
func (w *Watcher) Watch(ctx context.Context, dir string) error {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", dir, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, dir, nil); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Info("Watching %s", dir)

	interval := w.debounce / 2
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pending := make(map[string]time.Time)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, dir, event, pending)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)

		case now := <-ticker.C:
			w.flush(ctx, pending, now)
		}
	}
}

// handleEvent queues supported created or modified files and extends
// the watch into newly created directories. Everything else is
// ignored: removals, chmods, hidden files, unsupported extensions.
func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, root string, event fsnotify.Event, pending map[string]time.Time) {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return
	}
	if isHidden(root, event.Name) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		// Gone again before we could look at it.
		return
	}

	if info.IsDir() {
		if event.Op.Has(fsnotify.Create) {
			if err := w.addTree(fsw, event.Name, pending); err != nil {
				logger.Warn("Watch %s: %v", event.Name, err)
			}
		}
		return
	}

	if _, err := domain.FormatFromPath(event.Name); err != nil {
		return
	}

	pending[event.Name] = time.Now().Add(w.debounce)
	logger.Debug("Queued %s", event.Name)
}

// addTree watches dir and its subdirectories. With a non-nil pending
// map, supported files already inside are queued too: files written
// into a fresh directory before its watch registers would otherwise
// be missed.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string, pending map[string]time.Time) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && isHidden(dir, path) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		if pending != nil {
			if _, err := domain.FormatFromPath(path); err == nil {
				pending[path] = time.Now().Add(w.debounce)
			}
		}
		return nil
	})
}

// flush ingests every queued path whose debounce window has passed.
func (w *Watcher) flush(ctx context.Context, pending map[string]time.Time, now time.Time) {
	for path, due := range pending {
		if now.Before(due) {
			continue
		}
		delete(pending, path)

		result, err := w.service.AddDocument(ctx, path)
		if err != nil {
			if errors.Is(err, domain.ErrLockContention) {
				// Another process is ingesting; try again next tick.
				pending[path] = now.Add(w.debounce)
				continue
			}
			logger.Warn("Ingest %s: %v", path, err)
			continue
		}

		if result.Status == domain.IngestDuplicate {
			logger.Debug("Unchanged: %s", path)
			continue
		}
		logger.Info("Ingested %s: %d chunks", path, result.ChunkCount)
	}
}

// isHidden reports whether path has a dot-prefixed element below root.
// The root itself may live under a hidden directory without hiding
// everything inside it.
func isHidden(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}

	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part == "." || part == ".." || part == "" {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// WeightsWatcher keeps a Scorer in sync with a weights file on disk. A
// reload that fails to parse keeps the previous table.
type WeightsWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	current atomic.Pointer[Scorer]

	// reloads counts successful reloads after the initial load.
	reloads atomic.Int64

	// onReload is called after every successful reload.
	onReload func(*Scorer)
}

// NewWeightsWatcher loads path and prepares a watcher for it.
func NewWeightsWatcher(path string, logger *slog.Logger) (*WeightsWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	w, err := LoadWeights(path)
	if err != nil {
		return nil, err
	}
	scorer, err := NewScorer(w)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create weights watcher: %w", err)
	}

	ww := &WeightsWatcher{
		path:    filepath.Clean(path),
		watcher: fsw,
		logger:  logger,
	}
	ww.current.Store(scorer)
	return ww, nil
}

// OnReload registers a callback invoked after each successful reload.
// It must be called before Start.
func (w *WeightsWatcher) OnReload(fn func(*Scorer)) {
	w.onReload = fn
}

// Scorer returns the scorer for the most recently loaded table.
func (w *WeightsWatcher) Scorer() *Scorer {
	return w.current.Load()
}

// Reloads returns how many times the table was reloaded.
func (w *WeightsWatcher) Reloads() int64 {
	return w.reloads.Load()
}

// Start begins watching. The directory is watched rather than the file so
// that editors replacing the file by rename are observed.
func (w *WeightsWatcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch weights directory: %w", err)
	}

	go w.processEvents(ctx)

	w.logger.Info("Weights watcher started",
		"path", w.path,
		"version", w.Scorer().Weights().Version)
	return nil
}

// Stop stops the watcher.
func (w *WeightsWatcher) Stop() error {
	return w.watcher.Close()
}

func (w *WeightsWatcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.reload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Weights watcher error", "error", err)
		}
	}
}

// reload re-reads the weights file and swaps the active scorer.
func (w *WeightsWatcher) reload() {
	weights, err := LoadWeights(w.path)
	if err != nil {
		w.logger.Warn("Keeping previous weights", "path", w.path, "error", err)
		return
	}
	scorer, err := NewScorer(weights)
	if err != nil {
		w.logger.Warn("Keeping previous weights", "path", w.path, "error", err)
		return
	}

	w.current.Store(scorer)
	w.reloads.Add(1)
	w.logger.Info("Weights reloaded", "path", w.path, "version", weights.Version)

	if w.onReload != nil {
		w.onReload(scorer)
	}
}

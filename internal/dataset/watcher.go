// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/velodash/velodash/internal/config"
	"github.com/velodash/velodash/internal/logging"
	"github.com/velodash/velodash/internal/models"
)

// Reloader triggers a dataset reload. Satisfied by *Manager.
type Reloader interface {
	Reload(ctx context.Context) (*models.LoadRecord, error)
}

// Watcher reloads the dataset when either CSV file changes on disk.
// It implements suture.Service so the supervisor restarts it if the
// underlying fsnotify watcher fails.
type Watcher struct {
	reloader Reloader
	dir      string
	targets  map[string]bool
	debounce time.Duration
}

// NewWatcher creates a watcher for the configured data directory.
// Only events on the hour and day file names trigger a reload; editors
// and download tools touching other files in the directory are ignored.
func NewWatcher(r Reloader, cfg config.DataConfig) *Watcher {
	debounce := cfg.ReloadDebounce
	if debounce <= 0 {
		debounce = 2 * time.Second
	}

	return &Watcher{
		reloader: r,
		dir:      cfg.Dir,
		targets: map[string]bool{
			filepath.Base(cfg.HourFile): true,
			filepath.Base(cfg.DayFile):  true,
		},
		debounce: debounce,
	}
}

// String identifies the service in supervisor logs
func (w *Watcher) String() string {
	return "dataset-watcher"
}

// Serve watches the data directory until the context is canceled.
// Events are debounced: a CSV pair copied in with two writes produces a
// single reload once the quiet period elapses.
func (w *Watcher) Serve(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if cerr := fsw.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("failed to close file watcher")
		}
	}()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	logging.Info().Str("dir", w.dir).Dur("debounce", w.debounce).Msg("watching data directory")

	// Timer starts stopped; it is armed by the first relevant event
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("file watcher event channel closed")
			}
			if !w.relevant(event) {
				continue
			}
			logging.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("data file changed")
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("file watcher error channel closed")
			}
			logging.Warn().Err(err).Msg("file watcher error")

		case <-timer.C:
			if _, err := w.reloader.Reload(ctx); err != nil {
				// Keep watching: a half-copied CSV fails validation now
				// but succeeds once the writer finishes.
				logging.Error().Err(err).Msg("watched reload failed")
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return false
	}
	return w.targets[filepath.Base(event.Name)]
}

// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/velodash/velodash/internal/config"
	"github.com/velodash/velodash/internal/models"
)

type countingReloader struct {
	calls atomic.Int64
}

func (r *countingReloader) Reload(ctx context.Context) (*models.LoadRecord, error) {
	r.calls.Add(1)
	return &models.LoadRecord{}, nil
}

func startWatcher(t *testing.T, r Reloader, dir string, debounce time.Duration) {
	t.Helper()

	w := NewWatcher(r, config.DataConfig{
		Dir:            dir,
		HourFile:       "hour.csv",
		DayFile:        "day.csv",
		ReloadDebounce: debounce,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve returned %v, want context.Canceled", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop after cancel")
		}
	})

	// Give fsnotify a moment to establish the watch
	time.Sleep(50 * time.Millisecond)
}

func waitForCalls(t *testing.T, r *countingReloader, want int64) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if r.calls.Load() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("reload calls = %d, want %d", r.calls.Load(), want)
}

func TestWatcherReloadsOnCSVWrite(t *testing.T) {
	dir := t.TempDir()
	r := &countingReloader{}
	startWatcher(t, r, dir, 50*time.Millisecond)

	writeFixture(t, filepath.Join(dir, "hour.csv"), hourCSV)

	waitForCalls(t, r, 1)
}

func TestWatcherDebouncesCoalescesWrites(t *testing.T) {
	dir := t.TempDir()
	r := &countingReloader{}
	startWatcher(t, r, dir, 200*time.Millisecond)

	// A CSV pair arriving as separate writes should reload once
	writeFixture(t, filepath.Join(dir, "hour.csv"), hourCSV)
	time.Sleep(20 * time.Millisecond)
	writeFixture(t, filepath.Join(dir, "day.csv"), dayCSV)

	waitForCalls(t, r, 1)

	// No further reloads after the quiet period
	time.Sleep(300 * time.Millisecond)
	if got := r.calls.Load(); got != 1 {
		t.Errorf("reload calls = %d after quiet period, want 1", got)
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	r := &countingReloader{}
	startWatcher(t, r, dir, 50*time.Millisecond)

	writeFixture(t, filepath.Join(dir, "notes.txt"), "not a dataset")
	writeFixture(t, filepath.Join(dir, "hour.csv.tmp"), "partial download")

	time.Sleep(300 * time.Millisecond)
	if got := r.calls.Load(); got != 0 {
		t.Errorf("reload calls = %d for unrelated files, want 0", got)
	}
}

func TestWatcherMissingDirectory(t *testing.T) {
	r := &countingReloader{}
	w := NewWatcher(r, config.DataConfig{
		Dir:      filepath.Join(t.TempDir(), "does-not-exist"),
		HourFile: "hour.csv",
		DayFile:  "day.csv",
	})

	err := w.Serve(context.Background())
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
	if errors.Is(err, os.ErrExist) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWatcherString(t *testing.T) {
	w := NewWatcher(nil, config.DataConfig{Dir: ".", HourFile: "h", DayFile: "d"})
	if w.String() != "dataset-watcher" {
		t.Errorf("String = %q", w.String())
	}
}

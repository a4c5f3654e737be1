// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// CONFIG WATCHER
// =============================================================================

// defaultDebounce coalesces the write+rename burst an atomic save produces.
const defaultDebounce = 250 * time.Millisecond

// Watcher reloads the configuration when its file changes on disk.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	pending bool
}

// Watch begins watching path and returns a channel that delivers the freshly
// loaded Config after each change. Reloads that fail to parse are dropped;
// the previous configuration stays in effect. The channel closes when ctx is
// cancelled.
func Watch(ctx context.Context, path string) (<-chan *Config, error) {
	w, err := NewWatcher(path)
	if err != nil {
		return nil, err
	}
	return w.Run(ctx), nil
}

// NewWatcher creates a watcher for the config file at path. The parent
// directory is watched rather than the file itself so atomic renames are
// observed.
func NewWatcher(path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{
		path:     path,
		watcher:  fsw,
		debounce: defaultDebounce,
	}, nil
}

// Run starts event processing and returns the reload channel. It closes the
// channel and releases the underlying watcher when ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) <-chan *Config {
	out := make(chan *Config, 1)

	go func() {
		defer close(out)
		defer w.watcher.Close()

		timer := time.NewTimer(w.debounce)
		if !timer.Stop() {
			<-timer.C
		}

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(w.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				w.mu.Lock()
				if !w.pending {
					w.pending = true
					timer.Reset(w.debounce)
				}
				w.mu.Unlock()

			case <-timer.C:
				w.mu.Lock()
				w.pending = false
				w.mu.Unlock()

				cfg, err := LoadFromPath(w.path)
				if err != nil {
					continue
				}
				cfg.ApplyEnvOverrides()

				select {
				case out <- cfg:
				case <-ctx.Done():
					return
				}

			case _, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return out
}

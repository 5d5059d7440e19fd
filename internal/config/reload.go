// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ManuGH/mediablock/internal/log"
)

const reloadDebounce = 500 * time.Millisecond

// Listener is called with the new configuration after a successful reload.
type Listener func(AppConfig)

// Holder keeps the active configuration and reloads it when the file changes.
type Holder struct {
	mu        sync.RWMutex
	current   AppConfig
	loader    *Loader
	listeners []Listener

	watchMu sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewHolder creates a holder seeded with an already loaded configuration.
func NewHolder(initial AppConfig, loader *Loader) *Holder {
	return &Holder{current: initial, loader: loader}
}

// Get returns a copy of the current configuration.
func (h *Holder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// OnReload registers a listener for successful reloads.
func (h *Holder) OnReload(fn Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// Reload re-reads the configuration. On failure the current config is kept.
func (h *Holder) Reload() error {
	logger := log.WithComponent("config")
	if h.loader == nil {
		return errors.New("config holder has no loader")
	}
	next, err := h.loader.Load()
	if err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "config.reload_failed").Msg("configuration reload rejected, keeping current config")
		return err
	}

	h.mu.Lock()
	h.current = next
	listeners := append([]Listener(nil), h.listeners...)
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	logger.Info().Str(log.FieldEvent, "config.reloaded").Str(log.FieldPath, h.loader.Path()).Msg("configuration reloaded")
	return nil
}

// StartWatcher watches the config file's directory and reloads on change.
// It is a no-op when no file is configured.
func (h *Holder) StartWatcher(ctx context.Context) error {
	if h.loader == nil || h.loader.Path() == "" {
		return nil
	}

	h.watchMu.Lock()
	defer h.watchMu.Unlock()
	if h.watcher != nil {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	path := filepath.Clean(h.loader.Path())
	// Editors replace files via rename, so the directory is watched.
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	h.watcher = w
	h.cancel = cancel
	h.done = make(chan struct{})
	go h.watch(ctx, w, path, h.done)
	return nil
}

func (h *Holder) watch(ctx context.Context, w *fsnotify.Watcher, path string, done chan struct{}) {
	defer close(done)
	logger := log.WithComponent("config")

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			_ = h.Reload()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("config watcher error")
		}
	}
}

// Stop terminates the watcher goroutine and waits for it to exit.
func (h *Holder) Stop() {
	h.watchMu.Lock()
	defer h.watchMu.Unlock()
	if h.watcher == nil {
		return
	}
	h.cancel()
	_ = h.watcher.Close()
	<-h.done
	h.watcher = nil
}

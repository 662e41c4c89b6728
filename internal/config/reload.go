// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	xglog "github.com/ManuGH/plutosync/internal/log"
	"github.com/ManuGH/plutosync/internal/metrics"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const reloadDebounce = 500 * time.Millisecond

// ConfigHolder holds the active configuration and swaps it atomically on
// reload. Invalid configurations are rejected and the old one is kept.
type ConfigHolder struct {
	mu      sync.RWMutex
	current AppConfig
	loader  *Loader
	watcher *fsnotify.Watcher
	logger  zerolog.Logger

	listenMu  sync.RWMutex
	listeners []chan<- AppConfig
}

// NewConfigHolder creates a new configuration holder with initial config.
func NewConfigHolder(initial AppConfig, loader *Loader) *ConfigHolder {
	return &ConfigHolder{
		current: initial,
		loader:  loader,
		logger:  xglog.WithComponent("config"),
	}
}

// Get returns the current configuration.
func (h *ConfigHolder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload loads and validates the configuration, then notifies listeners.
func (h *ConfigHolder) Reload(_ context.Context) error {
	h.logger.Info().Str("event", "config.reload_start").Msg("reloading configuration")

	newCfg, err := h.loader.Load()
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("event", "config.reload_failed").
			Msg("failed to load new configuration")
		metrics.IncConfigReload("failure")
		return fmt.Errorf("load config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.current
	h.current = newCfg
	h.mu.Unlock()

	h.notifyListeners(newCfg)
	h.logChanges(oldCfg, newCfg)
	metrics.IncConfigReload("success")

	h.logger.Info().
		Str("event", "config.reload_success").
		Msg("configuration reloaded successfully")
	return nil
}

// StartWatcher watches the config file and reloads on change. It is a no-op
// for environment-only configurations.
func (h *ConfigHolder) StartWatcher(ctx context.Context) error {
	path := h.loader.Path()
	if path == "" {
		h.logger.Info().
			Str("event", "config.watcher_disabled").
			Msg("config file watcher disabled (using ENV-only configuration)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config file: %w", err)
	}
	h.watcher = watcher

	h.logger.Info().
		Str("event", "config.watcher_started").
		Str("path", path).
		Msg("watching config file for changes")

	go h.watchLoop(ctx, watcher)
	return nil
}

func (h *ConfigHolder) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str("event", "config.watcher_stopped").Msg("config watcher stopped")
			_ = watcher.Close()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			h.logger.Debug().
				Str("event", "config.file_changed").
				Str("op", event.Op.String()).
				Msg("config file changed")

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				if err := h.Reload(ctx); err != nil {
					h.logger.Error().
						Err(err).
						Str("event", "config.auto_reload_failed").
						Msg("automatic config reload failed")
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Str("event", "config.watcher_error").Msg("config watcher error")
		}
	}
}

// Stop stops the config watcher (if running).
func (h *ConfigHolder) Stop() {
	if h.watcher != nil {
		_ = h.watcher.Close()
	}
}

// RegisterListener registers a channel receiving each successfully
// reloaded configuration. Sends are non-blocking.
func (h *ConfigHolder) RegisterListener(ch chan<- AppConfig) {
	h.listenMu.Lock()
	defer h.listenMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

func (h *ConfigHolder) notifyListeners(newCfg AppConfig) {
	h.listenMu.RLock()
	defer h.listenMu.RUnlock()

	for _, ch := range h.listeners {
		select {
		case ch <- newCfg:
		default:
			h.logger.Warn().
				Str("event", "config.listener_skip").
				Msg("skipped notifying listener (channel full)")
		}
	}
}

func (h *ConfigHolder) logChanges(old, newCfg AppConfig) {
	added, removed := RegionDiff(old, newCfg)
	if len(added) > 0 || len(removed) > 0 {
		h.logger.Info().
			Strs("added", added).
			Strs("removed", removed).
			Msg("config changed: bouquets")
	}
	if old.LiveMode != newCfg.LiveMode {
		h.logger.Info().Str("old", old.LiveMode).Str("new", newCfg.LiveMode).Msg("config changed: liveMode")
	}
	if old.UpdateInterval != newCfg.UpdateInterval {
		h.logger.Info().Int("old", old.UpdateInterval).Int("new", newCfg.UpdateInterval).Msg("config changed: updateInterval")
	}
	if old.OpenWebIF.BaseURL != newCfg.OpenWebIF.BaseURL {
		h.logger.Info().Msg("config changed: openWebIF.baseURL")
	}
}

// RegionDiff reports regions present in newCfg but not old (added) and
// present in old but not newCfg (removed).
func RegionDiff(old, newCfg AppConfig) (added, removed []string) {
	oldCodes := old.RegionCodes()
	newCodes := newCfg.RegionCodes()
	for _, c := range newCodes {
		if !slices.Contains(oldCodes, c) {
			added = append(added, c)
		}
	}
	for _, c := range oldCodes {
		if !slices.Contains(newCodes, c) {
			removed = append(removed, c)
		}
	}
	return added, removed
}

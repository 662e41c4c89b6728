// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/plutosync/internal/api"
	"github.com/ManuGH/plutosync/internal/config"
	"github.com/ManuGH/plutosync/internal/jobs"
	"github.com/ManuGH/plutosync/internal/log"
	"github.com/ManuGH/plutosync/internal/scheduler"
)

const shutdownTimeout = 15 * time.Second

// passControl is the part of the updater a configuration change touches.
type passControl interface {
	RunBackground(regions []string) bool
	RemoveRegions(ctx context.Context, regions []string) error
	SetOptions(opts jobs.Options)
}

type intervalSetter interface {
	SetInterval(d time.Duration)
}

// syncControl starts on-demand passes through the scheduler and reports
// on the updater.
type syncControl struct {
	sched   *scheduler.Scheduler
	updater *jobs.Updater
}

func (c syncControl) RunBackground(regions []string) bool { return c.sched.RunBackground(regions) }
func (c syncControl) Cancel() bool                        { return c.updater.Cancel() }
func (c syncControl) Status() jobs.Status                 { return c.updater.Status() }

type guideSources interface {
	WriteSources(regions []string) error
	Remove(region string) error
}

// App owns the long-lived runtime: config watcher, reload handling, the
// scheduler and the control API.
type App struct {
	logger       zerolog.Logger
	holder       *config.ConfigHolder
	rt           *Runtime
	sched        *scheduler.Scheduler
	server       *api.Server
	reloadSignal os.Signal

	passes   passControl
	interval intervalSetter
	sources  guideSources

	mu  sync.RWMutex
	cfg config.AppConfig
}

// NewApp wires the scheduler and the control API around rt.
func NewApp(holder *config.ConfigHolder, rt *Runtime) (*App, error) {
	if rt == nil || rt.Updater == nil {
		return nil, ErrMissingRuntime
	}
	if holder == nil {
		return nil, ErrMissingConfig
	}
	cfg := holder.Get()
	a := &App{
		logger:       log.WithComponent("daemon"),
		holder:       holder,
		rt:           rt,
		reloadSignal: syscall.SIGHUP,
		passes:       rt.Updater,
		sources:      rt.EPG,
		cfg:          cfg,
	}
	a.sched = scheduler.New(rt.Updater, a.configured, cfg.UpdateEvery())
	a.interval = a.sched
	a.server = api.New(api.Config{
		Listen:         cfg.API.Listen,
		RateLimit:      cfg.API.RateLimit,
		CacheTTL:       cfg.Cache.TTL,
		TracingService: cfg.LogService,
	}, api.Deps{
		Sync:       syncControl{sched: a.sched, updater: rt.Updater},
		Regions:    rt.Regions,
		VOD:        rt.Catalog,
		Cache:      rt.Cache,
		UserData:   rt.UserData,
		Configured: a.configured,
		NextRun:    a.sched.Next,
	})
	return a, nil
}

// configured returns the region codes of the active configuration.
func (a *App) configured() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg.RegionCodes()
}

// Run blocks until ctx is cancelled or a subsystem fails, then releases
// the runtime.
func (a *App) Run(ctx context.Context) error {
	if err := a.sources.WriteSources(a.configured()); err != nil {
		a.logger.Warn().Err(err).Str(log.FieldEvent, "epg.sources_failed").Msg("unable to write EPG sources")
	}

	g, gctx := errgroup.WithContext(ctx)

	// Watching is best-effort; SIGHUP still reloads.
	if err := a.holder.StartWatcher(gctx); err != nil {
		a.logger.Warn().Err(err).Str(log.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
	}

	applyCh := make(chan config.AppConfig, 1)
	a.holder.RegisterListener(applyCh)
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case cfg := <-applyCh:
				a.apply(gctx, cfg)
			}
		}
	})

	if a.reloadSignal != nil {
		g.Go(func() error {
			hup := make(chan os.Signal, 1)
			signal.Notify(hup, a.reloadSignal)
			defer signal.Stop(hup)
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-hup:
					a.logger.Info().
						Str(log.FieldEvent, "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")
					if err := a.holder.Reload(gctx); err != nil {
						a.logger.Warn().Err(err).Str(log.FieldEvent, "config.reload_failed").Msg("config reload failed")
					}
				}
			}
		})
	}

	g.Go(func() error { return a.sched.Run(gctx) })
	g.Go(func() error { return a.server.ListenAndServe(gctx) })

	err := g.Wait()
	a.holder.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return errors.Join(err, a.rt.Close(shutdownCtx))
}

// apply reacts to a reloaded configuration: bouquets of dropped regions
// are removed, new regions are synchronized at once and the schedule and
// pass options follow the new values.
func (a *App) apply(ctx context.Context, cfg config.AppConfig) {
	a.mu.Lock()
	old := a.cfg
	a.cfg = cfg
	a.mu.Unlock()

	a.warnRestartRequired(old, cfg)

	if opts, err := UpdaterOptions(cfg); err != nil {
		a.logger.Warn().Err(err).Str(log.FieldEvent, "config.options_invalid").Msg("keeping previous pass options")
	} else {
		a.passes.SetOptions(opts)
	}

	added, removed := config.RegionDiff(old, cfg)
	if len(removed) > 0 {
		if err := a.passes.RemoveRegions(ctx, removed); err != nil {
			a.logger.Warn().Err(err).Str(log.FieldEvent, "bouquet.remove_failed").Msg("unable to remove bouquets")
		}
		for _, code := range removed {
			if err := a.sources.Remove(code); err != nil {
				a.logger.Warn().Err(err).Str(log.FieldRegion, code).Str(log.FieldEvent, "epg.remove_failed").Msg("unable to remove EPG files")
			}
		}
	}
	if len(added) > 0 || len(removed) > 0 {
		if err := a.sources.WriteSources(cfg.RegionCodes()); err != nil {
			a.logger.Warn().Err(err).Str(log.FieldEvent, "epg.sources_failed").Msg("unable to write EPG sources")
		}
	}

	if old.UpdateInterval != cfg.UpdateInterval {
		a.interval.SetInterval(cfg.UpdateEvery())
	}

	if len(added) > 0 && !a.passes.RunBackground(added) {
		a.logger.Info().
			Strs("regions", added).
			Str(log.FieldEvent, "sync.deferred").
			Msg("update in progress, new regions follow with the next pass")
	}
}

// warnRestartRequired logs settings that only take effect after a restart.
func (a *App) warnRestartRequired(old, cfg config.AppConfig) {
	changed := map[string]bool{
		"dataDir":     old.DataDir != cfg.DataDir,
		"numberStore": old.NumberStore != cfg.NumberStore,
		"openWebIF":   old.OpenWebIF != cfg.OpenWebIF,
		"epg":         old.EPG != cfg.EPG,
		"api":         old.API != cfg.API,
		"cache":       old.Cache != cfg.Cache,
		"userdata":    old.Userdata != cfg.Userdata,
		"telemetry":   old.Telemetry != cfg.Telemetry,
		"regionFile":  old.RegionFile != cfg.RegionFile,
	}
	for key, diff := range changed {
		if diff {
			a.logger.Warn().
				Str("setting", key).
				Str(log.FieldEvent, "config.restart_required").
				Msg("setting changed; restart to apply")
		}
	}
}

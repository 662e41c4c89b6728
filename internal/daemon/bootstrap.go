// SPDX-License-Identifier: MIT

// Package daemon wires the synchronization engine, the scheduler and the
// control API, and owns their lifecycle.
package daemon

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/plutosync/internal/bouquet"
	"github.com/ManuGH/plutosync/internal/cache"
	"github.com/ManuGH/plutosync/internal/catalog"
	"github.com/ManuGH/plutosync/internal/config"
	"github.com/ManuGH/plutosync/internal/epg"
	"github.com/ManuGH/plutosync/internal/fsutil"
	"github.com/ManuGH/plutosync/internal/jobs"
	"github.com/ManuGH/plutosync/internal/log"
	"github.com/ManuGH/plutosync/internal/numbering"
	"github.com/ManuGH/plutosync/internal/openwebif"
	"github.com/ManuGH/plutosync/internal/picon"
	"github.com/ManuGH/plutosync/internal/region"
	"github.com/ManuGH/plutosync/internal/streamurl"
	"github.com/ManuGH/plutosync/internal/telemetry"
	"github.com/ManuGH/plutosync/internal/userdata"
)

// Picon downloads are paced to stay polite with the image CDN.
const (
	piconRate  = rate.Limit(10)
	piconBurst = 5
)

// Runtime holds the components built from one configuration.
type Runtime struct {
	Config   config.AppConfig
	Regions  *region.Table
	Catalog  *catalog.Client
	EPG      *epg.XMLTVCache
	Updater  *jobs.Updater
	Cache    cache.Cache
	UserData userdata.Store

	hooks shutdownHooks
}

// BuildOptions select optional parts of a Runtime.
type BuildOptions struct {
	// Progress observes pass progress.
	Progress jobs.ProgressFunc
	// Serve builds the parts only the control API needs: cache, user data
	// and tracing.
	Serve bool
}

// UpdaterOptions maps the configuration onto pass options.
func UpdaterOptions(cfg config.AppConfig) (jobs.Options, error) {
	live, err := streamurl.ParseMode(cfg.LiveMode)
	if err != nil {
		return jobs.Options{}, err
	}
	policy, err := numbering.ParsePolicy(cfg.Numbering)
	if err != nil {
		return jobs.Options{}, err
	}
	pmode, err := picon.ParseMode(cfg.PiconMode)
	if err != nil {
		return jobs.Options{}, err
	}
	types := make(map[string]bouquet.ServiceType, len(cfg.Regions))
	for _, r := range cfg.Regions {
		types[r.Region] = bouquet.ServiceType(r.ServiceType)
	}
	return jobs.Options{
		LiveMode:     live,
		Numbering:    policy,
		PiconMode:    pmode,
		PiconDir:     cfg.PiconPath,
		ForcePicons:  cfg.ForcePiconDownload,
		Descriptions: cfg.AddDescriptions,
		AddSamsung:   cfg.AddSamsung,
		AddXiaomi:    cfg.AddXiaomi,
		ServiceTypes: types,
		TimerPath:    cfg.TimerPath(),
	}, nil
}

// Build creates the components for cfg. Close releases them.
func Build(ctx context.Context, cfg config.AppConfig, opts BuildOptions) (_ *Runtime, err error) {
	logger := log.WithComponent("daemon")
	rt := &Runtime{Config: cfg}
	defer func() {
		if err != nil {
			_ = rt.Close(context.WithoutCancel(ctx))
		}
	}()

	if opts.Serve {
		if err := rt.initTelemetry(ctx, logger); err != nil {
			return nil, err
		}
	}

	regions, err := region.Load(cfg.RegionFile)
	if err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}
	rt.Regions = regions

	store, err := rt.numberStore(ctx)
	if err != nil {
		return nil, err
	}

	passOpts, err := UpdaterOptions(cfg)
	if err != nil {
		return nil, err
	}

	rt.Catalog = catalog.New(catalog.Options{})
	rt.EPG = epg.NewXMLTVCache(cfg.EPGDir())

	var host jobs.Host = openwebif.Nop{}
	if cfg.OpenWebIF.BaseURL != "" {
		host = openwebif.New(openwebif.Options{
			BaseURL:  cfg.OpenWebIF.BaseURL,
			Username: cfg.OpenWebIF.Username,
			Password: cfg.OpenWebIF.Password,
			Timeout:  cfg.OpenWebIF.Timeout,
		})
	}

	rt.Updater = jobs.NewUpdater(jobs.Deps{
		Catalog:  rt.Catalog,
		Regions:  regions,
		Numbers:  store,
		Picons:   picon.NewFetcher(picon.Options{Rate: piconRate, Burst: piconBurst}),
		Bouquets: &bouquet.Writer{Dir: cfg.DataDir},
		Index:    bouquet.NewIndex(cfg.DataDir),
		EPG:      rt.EPG,
		Host:     host,
		Progress: opts.Progress,
	}, passOpts)

	if !opts.Serve {
		return rt, nil
	}
	if err := rt.initCache(ctx, logger); err != nil {
		return nil, err
	}
	if err := rt.initUserData(logger); err != nil {
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) numberStore(ctx context.Context) (numbering.Store, error) {
	cfg := rt.Config
	switch cfg.NumberStore.Backend {
	case config.NumberStoreSQLite:
		s, err := numbering.OpenSQLiteStore(ctx, cfg.NumbersPath())
		if err != nil {
			return nil, fmt.Errorf("open number store: %w", err)
		}
		rt.hooks.add("number-store", func(context.Context) error { return s.Close() })
		return s, nil
	case config.NumberStoreMemory:
		return numbering.NewMemoryStore(numbering.NewTable()), nil
	default:
		return numbering.NewJSONStore(cfg.NumbersPath()), nil
	}
}

func (rt *Runtime) initTelemetry(ctx context.Context, logger zerolog.Logger) error {
	tc := rt.Config.Telemetry
	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        tc.Enabled,
		ServiceName:    rt.Config.LogService,
		ServiceVersion: rt.Config.Version,
		Environment:    tc.Environment,
		ExporterType:   tc.ExporterType,
		Endpoint:       tc.Endpoint,
		SamplingRate:   tc.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("telemetry init failed: %w", err)
	}
	rt.hooks.add("telemetry", provider.Shutdown)
	if tc.Enabled {
		logger.Info().
			Str(log.FieldEvent, "telemetry.enabled").
			Str(log.FieldEndpoint, tc.Endpoint).
			Float64("sampling_rate", tc.SamplingRate).
			Msg("tracing enabled")
	}
	return nil
}

func (rt *Runtime) initCache(ctx context.Context, logger zerolog.Logger) error {
	if addr := rt.Config.Cache.RedisAddr; addr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: addr}, logger)
		if err != nil {
			return fmt.Errorf("connect cache: %w", err)
		}
		rt.Cache = rc
		rt.hooks.add("redis-cache", func(context.Context) error { return rc.Close() })
		return nil
	}
	mc := cache.NewMemoryCache(5 * time.Minute)
	rt.Cache = mc
	rt.hooks.add("memory-cache", func(context.Context) error {
		mc.Stop()
		return nil
	})
	return nil
}

func (rt *Runtime) initUserData(logger zerolog.Logger) error {
	dir := rt.Config.Userdata.Dir
	if dir == "" {
		dir = filepath.Join(fsutil.FindStoragePath(fsutil.MinStorageFree, rt.Config.DataDir), "plutosync")
	}
	store, err := userdata.NewStore("badger", dir)
	if err != nil {
		return fmt.Errorf("open user data: %w", err)
	}
	logger.Info().
		Str(log.FieldEvent, "userdata.opened").
		Str(log.FieldPath, dir).
		Msg("user data store opened")
	rt.UserData = store
	rt.hooks.add("userdata", func(context.Context) error { return store.Close() })
	return nil
}

// Close waits for background passes and releases the components in
// reverse order of creation.
func (rt *Runtime) Close(ctx context.Context) error {
	if rt.Updater != nil {
		rt.Updater.Cancel()
		rt.Updater.Wait()
	}
	return rt.hooks.run(ctx)
}

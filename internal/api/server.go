// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the control surface of the daemon: pass control,
// status, VOD browsing data and user data.
package api

import (
	"context"
	_ "embed"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/plutosync/internal/api/middleware"
	"github.com/ManuGH/plutosync/internal/cache"
	"github.com/ManuGH/plutosync/internal/catalog"
	"github.com/ManuGH/plutosync/internal/jobs"
	"github.com/ManuGH/plutosync/internal/log"
	"github.com/ManuGH/plutosync/internal/region"
	"github.com/ManuGH/plutosync/internal/userdata"
)

//go:embed openapi.yaml
var openAPIDocument []byte

// OpenAPIDocument returns the embedded API description.
func OpenAPIDocument() []byte { return openAPIDocument }

// Syncer controls synchronization passes.
type Syncer interface {
	RunBackground(regions []string) bool
	Cancel() bool
	Status() jobs.Status
}

// VODSource fetches VOD browsing data.
type VODSource interface {
	VODCategories(ctx context.Context, r region.Region) []catalog.VODCategory
	Seasons(ctx context.Context, r region.Region, seriesID string) catalog.VODSeries
}

// Regions resolves and lists regions.
type Regions interface {
	Lookup(code string) (region.Region, error)
	All() []region.Region
}

// Config tunes the server.
type Config struct {
	Listen         string
	RateLimit      int           // requests per minute and IP, 0 disables
	CacheTTL       time.Duration // VOD response lifetime
	TracingService string
}

// Deps are the collaborators of the server.
type Deps struct {
	Sync     Syncer
	Regions  Regions
	VOD      VODSource
	Cache    cache.Cache
	UserData userdata.Store
	// Configured returns the regions of the current configuration.
	Configured func() []string
	// NextRun returns the next scheduled pass, zero when disabled.
	NextRun func() time.Time
}

// Server is the control API.
type Server struct {
	cfg  Config
	deps Deps
}

// New returns a server. Missing optional dependencies get inert defaults.
func New(cfg Config, deps Deps) *Server {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewNoOpCache()
	}
	if deps.UserData == nil {
		deps.UserData = userdata.NewMemoryStore()
	}
	if deps.Configured == nil {
		deps.Configured = func() []string { return nil }
	}
	if deps.NextRun == nil {
		deps.NextRun = func() time.Time { return time.Time{} }
	}
	return &Server{cfg: cfg, deps: deps}
}

// Handler returns the routed handler with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableMetrics:  true,
		TracingService: s.cfg.TracingService,
		EnableLogging:  true,
		RateLimit:      s.cfg.RateLimit,
	})

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/openapi.yaml", s.handleOpenAPI)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.With(middleware.SyncRateLimit()).Post("/sync", s.handleSyncStart)
		r.Delete("/sync", s.handleSyncCancel)

		r.Get("/regions", s.handleRegions)
		r.Get("/regions/{region}/vod", s.handleVOD)
		r.Get("/regions/{region}/series/{id}/seasons", s.handleSeasons)

		r.Get("/resume/{id}", s.handleResumeGet)
		r.Put("/resume/{id}", s.handleResumePut)

		r.Get("/favorites/{region}", s.handleFavorites)
		r.Put("/favorites/{region}/{id}", s.handleFavoriteAdd)
		r.Delete("/favorites/{region}/{id}", s.handleFavoriteRemove)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	logger := log.WithComponent("api")

	errc := make(chan error, 1)
	go func() {
		logger.Info().
			Str(log.FieldEvent, "api.listen").
			Str("addr", s.cfg.Listen).
			Msg("control API listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info().Str(log.FieldEvent, "api.stopped").Msg("control API stopped")
	return nil
}

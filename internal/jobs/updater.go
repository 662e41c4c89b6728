// SPDX-License-Identifier: MIT

// Package jobs runs the bouquet and guide synchronization pass.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/plutosync/internal/bouquet"
	"github.com/ManuGH/plutosync/internal/catalog"
	"github.com/ManuGH/plutosync/internal/guide"
	"github.com/ManuGH/plutosync/internal/log"
	"github.com/ManuGH/plutosync/internal/metrics"
	"github.com/ManuGH/plutosync/internal/numbering"
	"github.com/ManuGH/plutosync/internal/picon"
	"github.com/ManuGH/plutosync/internal/region"
	"github.com/ManuGH/plutosync/internal/streamurl"
	"github.com/ManuGH/plutosync/internal/telemetry"
)

// Catalog fetches the per-region data of a pass.
type Catalog interface {
	Lineup(ctx context.Context, r region.Region) []catalog.Channel
	Guide(ctx context.Context, r region.Region, now time.Time) []catalog.GuideChannel
}

// Regions resolves region codes.
type Regions interface {
	Lookup(code string) (region.Region, error)
}

// PiconFetcher stores channel logos.
type PiconFetcher interface {
	Fetch(ctx context.Context, url, dest string, overwrite bool) bool
}

// Host is the receiver whose service lists are reloaded after a bouquet
// changed.
type Host interface {
	ReloadServices(ctx context.Context) error
	ReloadBouquets(ctx context.Context) error
}

// EPGCache receives the synthesized guide of a region. Imported events
// become the region's guide on Commit; Discard abandons them.
type EPGCache interface {
	guide.Cache
	Commit(ctx context.Context, region string) error
	Discard()
}

// Progress is the progress screen state of a pass.
type Progress struct {
	Region  string `json:"region,omitempty"`
	Percent int    `json:"percent"`
	Status  string `json:"status,omitempty"`
}

// ProgressFunc observes progress updates.
type ProgressFunc func(Progress)

// Deps are the collaborators of an Updater.
type Deps struct {
	Catalog  Catalog
	Regions  Regions
	Numbers  numbering.Store
	Picons   PiconFetcher
	Bouquets *bouquet.Writer
	Index    *bouquet.Index
	EPG      EPGCache
	Host     Host
	Progress ProgressFunc
	Clock    func() time.Time
}

// Options tune a pass.
type Options struct {
	LiveMode     streamurl.Mode
	Numbering    numbering.Policy
	PiconMode    picon.Mode
	PiconDir     string
	ForcePicons  bool
	Descriptions bool
	AddSamsung   bool
	AddXiaomi    bool
	ServiceTypes map[string]bouquet.ServiceType
	// TimerPath is the last-run file. Empty disables it.
	TimerPath string
}

// RegionResult summarizes one region of a pass.
type RegionResult struct {
	Region   string `json:"region"`
	Channels int    `json:"channels"`
	Events   int    `json:"events"`
	Skipped  bool   `json:"skipped,omitempty"`
}

// Result is the outcome of a pass.
type Result struct {
	JobID      string         `json:"jobId,omitempty"`
	State      State          `json:"state"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Regions    []RegionResult `json:"regions,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Duration returns how long the pass took.
func (r Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Status is a snapshot of the updater.
type Status struct {
	State      State     `json:"state"`
	JobID      string    `json:"jobId,omitempty"`
	Progress   Progress  `json:"progress"`
	LastRun    time.Time `json:"lastRun"`
	LastResult *Result   `json:"lastResult,omitempty"`
}

type nopHost struct{}

func (nopHost) ReloadServices(context.Context) error { return nil }
func (nopHost) ReloadBouquets(context.Context) error { return nil }

// Updater runs at most one pass at a time.
type Updater struct {
	deps Deps
	opts Options

	running atomic.Bool
	wg      sync.WaitGroup

	mu     sync.RWMutex
	status Status
	cancel context.CancelFunc
	next   *Options
}

// NewUpdater returns an idle updater. The last-run time is read from
// opts.TimerPath.
func NewUpdater(deps Deps, opts Options) *Updater {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Host == nil {
		deps.Host = nopHost{}
	}
	if deps.EPG == nil {
		deps.EPG = guide.NewMemoryCache()
	}
	u := &Updater{deps: deps, opts: withDefaults(opts)}
	if opts.TimerPath != "" {
		last, err := ReadLastRun(opts.TimerPath)
		if err != nil {
			logger := log.WithComponent("jobs")
			logger.Warn().
				Err(err).
				Str(log.FieldEvent, "sync.timer_read_failed").
				Str(log.FieldPath, opts.TimerPath).
				Msg("ignoring unreadable last-run file")
		}
		u.status.LastRun = last
	}
	return u
}

func withDefaults(opts Options) Options {
	if opts.LiveMode == "" {
		opts.LiveMode = streamurl.DefaultMode
	}
	if opts.Numbering == "" {
		opts.Numbering = numbering.PolicyOriginal
	}
	if opts.PiconMode == "" {
		opts.PiconMode = picon.ModeSRP
	}
	return opts
}

// SetOptions replaces the pass options. An active pass keeps the options it
// started with.
func (u *Updater) SetOptions(opts Options) {
	opts = withDefaults(opts)
	u.mu.Lock()
	u.next = &opts
	u.mu.Unlock()
}

// Run performs a pass over regions and blocks until it ends. A call while
// another pass is active returns StateAlreadyRunning at once.
func (u *Updater) Run(ctx context.Context, regions []string) Result {
	if !u.running.CompareAndSwap(false, true) {
		return u.alreadyRunning(ctx)
	}
	return u.run(ctx, regions)
}

// RunBackground starts a pass in a new goroutine. It reports false when a
// pass is already active.
func (u *Updater) RunBackground(regions []string) bool {
	if !u.running.CompareAndSwap(false, true) {
		u.alreadyRunning(context.Background())
		return false
	}
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		u.run(context.Background(), regions)
	}()
	return true
}

// Wait blocks until background passes have ended.
func (u *Updater) Wait() {
	u.wg.Wait()
}

// Cancel asks the active pass to stop. It reports whether a pass was
// active.
func (u *Updater) Cancel() bool {
	u.mu.RLock()
	cancel := u.cancel
	u.mu.RUnlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// Running reports whether a pass is active.
func (u *Updater) Running() bool {
	return u.running.Load()
}

// Status returns a snapshot of the updater state.
func (u *Updater) Status() Status {
	u.mu.RLock()
	defer u.mu.RUnlock()
	st := u.status
	if st.LastResult != nil {
		res := *st.LastResult
		st.LastResult = &res
	}
	return st
}

// LastRun returns the end time of the last pass.
func (u *Updater) LastRun() time.Time {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.status.LastRun
}

func (u *Updater) alreadyRunning(ctx context.Context) Result {
	now := u.deps.Clock()
	msg, _ := StateAlreadyRunning.Message()
	logger := log.WithComponentFromContext(ctx, "jobs")
	logger.Warn().
		Str(log.FieldEvent, "sync.already_running").
		Msg(msg)
	metrics.RecordSyncResult(StateAlreadyRunning.String(), 0, now)
	return Result{State: StateAlreadyRunning, StartedAt: now, FinishedAt: now}
}

func (u *Updater) run(parent context.Context, regions []string) Result {
	defer u.running.Store(false)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	jobID := uuid.NewString()
	ctx = log.ContextWithJobID(ctx, jobID)
	ctx, span := telemetry.Tracer("plutosync/jobs").Start(ctx, "sync.pass")
	defer span.End()
	logger := log.WithComponentFromContext(ctx, "jobs")

	start := u.deps.Clock()
	u.mu.Lock()
	if u.next != nil {
		u.opts, u.next = *u.next, nil
	}
	u.cancel = cancel
	u.status.State = StateRunning
	u.status.JobID = jobID
	u.status.Progress = Progress{}
	u.mu.Unlock()
	metrics.RecordSyncStart()
	logger.Info().
		Str(log.FieldEvent, "sync.start").
		Strs("regions", regions).
		Msg("starting bouquet update")

	res := Result{JobID: jobID, StartedAt: start}
	reg := numbering.Load(ctx, u.deps.Numbers)

	state := u.syncRegions(ctx, reg, regions, &res)
	if state == StateDone && ctx.Err() != nil {
		state = StateAborted
	}

	if state != StateAborted && reg.Modified() {
		if err := reg.Save(context.WithoutCancel(ctx)); err != nil {
			logger.Error().
				Err(err).
				Str(log.FieldEvent, "numbering.save_failed").
				Msg("unable to save channel numbers")
		}
	}

	finished := u.deps.Clock()
	if u.opts.TimerPath != "" {
		if err := WriteLastRun(u.opts.TimerPath, finished); err != nil {
			logger.Error().
				Err(err).
				Str(log.FieldEvent, "sync.timer_write_failed").
				Str(log.FieldPath, u.opts.TimerPath).
				Msg("unable to write last-run file")
		}
	}

	res.State = state
	res.FinishedAt = finished
	metrics.RecordSyncResult(state.String(), res.Duration(), finished)
	span.SetAttributes(telemetry.SyncAttributes(state.String(), len(res.Regions), res.Duration().Milliseconds())...)
	if state == StateError {
		span.SetStatus(codes.Error, res.Error)
	}

	msg, _ := state.Message()
	ev := logger.Info()
	if state == StateError {
		ev = logger.Error().Str("error", res.Error)
	}
	ev.Str(log.FieldEvent, "sync.finished").
		Str(log.FieldNewState, state.String()).
		Dur("duration", res.Duration()).
		Msg(msg)

	final := res
	u.mu.Lock()
	u.cancel = nil
	u.status.State = state
	u.status.LastRun = finished
	u.status.LastResult = &final
	progress := u.status.Progress
	u.mu.Unlock()

	progress.Status = msg
	u.emit(progress)
	return res
}

// syncRegions processes regions in order and returns the terminal state.
func (u *Updater) syncRegions(ctx context.Context, reg *numbering.Registry, regions []string, res *Result) (state State) {
	logger := log.WithComponentFromContext(ctx, "jobs")
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Str(log.FieldEvent, "sync.panic").
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("update failed unexpectedly")
			res.Error = fmt.Sprint(r)
			state = StateError
		}
	}()

	for _, code := range regions {
		if ctx.Err() != nil {
			return StateAborted
		}
		rr, err := u.syncRegion(ctx, reg, code)
		res.Regions = append(res.Regions, rr)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return StateAborted
			}
			logger.Error().
				Err(err).
				Str(log.FieldEvent, "sync.region_failed").
				Str(log.FieldRegion, code).
				Msg("update of region failed")
			res.Error = err.Error()
			return StateError
		}
	}
	return StateDone
}

// tracker accumulates the progress of one region.
type tracker struct {
	u      *Updater
	region string
	value  float64
	status string
}

func (t *tracker) set(v float64, status string) {
	t.value = v
	if status != "" {
		t.status = status
	}
	t.u.emit(Progress{Region: t.region, Percent: int(math.Round(t.value)), Status: t.status})
}

func (t *tracker) add(d float64, status string) {
	t.set(t.value+d, status)
}

func (u *Updater) emit(p Progress) {
	u.mu.Lock()
	u.status.Progress = p
	u.mu.Unlock()
	if p.Region != "" {
		metrics.SetSyncProgress(p.Region, p.Percent)
	}
	if u.deps.Progress != nil {
		u.deps.Progress(p)
	}
}

func (u *Updater) serviceType(code string) bouquet.ServiceType {
	if st, ok := u.opts.ServiceTypes[code]; ok && st.Valid() {
		return st
	}
	return bouquet.DefaultServiceType
}

func (u *Updater) syncRegion(ctx context.Context, reg *numbering.Registry, code string) (RegionResult, error) {
	ctx = log.ContextWithRegion(ctx, code)
	logger := log.WithComponentFromContext(ctx, "jobs")
	rr := RegionResult{Region: code}

	r, err := u.deps.Regions.Lookup(code)
	if err != nil {
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "sync.region_skipped").
			Msg("skipping unknown region")
		metrics.IncRegionSkipped(code)
		rr.Skipped = true
		return rr, nil
	}

	ctx, span := telemetry.Tracer("plutosync/jobs").Start(ctx, "sync.region",
		trace.WithAttributes(attribute.String(telemetry.RegionKey, r.Code)))
	defer span.End()

	// Events of a region that never reaches Commit must not leak into the
	// next one.
	u.deps.EPG.Discard()
	committed := false
	defer func() {
		if !committed {
			u.deps.EPG.Discard()
		}
	}()

	p := &tracker{u: u, region: r.Code}
	p.set(0, fmt.Sprintf("Fetching channel information for '%s'.", r.Name))
	channels := u.deps.Catalog.Lineup(ctx, r)
	p.add(1, "Processing channel information.")

	categories, count, err := u.categorize(ctx, reg, channels)
	if err != nil {
		return rr, err
	}
	if count == 0 {
		msg := fmt.Sprintf("Pluto TV may not be available in '%s'.", r.Name)
		logger.Warn().
			Str(log.FieldEvent, "sync.region_unavailable").
			Msg(msg)
		p.set(p.value, msg)
		metrics.IncRegionSkipped(r.Code)
		rr.Skipped = true
		return rr, nil
	}

	p.add(1, fmt.Sprintf("Building bouquet '%s' for '%s'.", r.Code, r.Name))
	st := u.serviceType(r.Code)
	b := bouquet.Build(r.Code, r.TIDs, categories, st, u.opts.Descriptions)

	increment := 48.0 / float64(len(channels))
	for _, cat := range categories {
		for _, ch := range cat.Channels {
			if err := ctx.Err(); err != nil {
				return rr, err
			}
			p.add(increment, fmt.Sprintf("Downloading '%s' picon.", ch.Name))
			u.fetchPicon(ctx, st, r.TIDs, ch)
		}
	}
	p.value = math.Round(p.value)

	if _, err := u.deps.Bouquets.Write(ctx, b); err != nil {
		return rr, err
	}
	rr.Channels = count
	metrics.RecordChannels(r.Code, count)

	p.set(p.value, "Fetching EPG data.")
	guides := u.deps.Catalog.Guide(ctx, r, u.deps.Clock())
	segments := make(map[string][]guide.Segment, len(guides))
	counter := 0
	for _, g := range guides {
		if g.ID == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return rr, err
		}
		name := g.Name
		if name == "" {
			name = "* Unknown *"
		}
		p.set(float64(counter*50/len(guides)+50), fmt.Sprintf("Processing '%s' guides.", name))
		segments[g.ID] = guide.Synthesize(ctx, g)
		counter++
	}
	p.set(99, "")
	if err := ctx.Err(); err != nil {
		return rr, err
	}

	u.install(ctx, b)

	events, err := guide.Merge(ctx, u.deps.EPG, b.Refs, segments)
	if err != nil {
		if ctx.Err() != nil {
			return rr, ctx.Err()
		}
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "epg.merge_failed").
			Msg("guide merge failed")
	} else {
		committed = true
		if err := u.deps.EPG.Commit(ctx, r.Code); err != nil {
			logger.Warn().
				Err(err).
				Str(log.FieldEvent, "epg.commit_failed").
				Msg("guide export failed")
		}
	}
	rr.Events = events
	metrics.RecordEPGEvents(r.Code, events)
	span.SetAttributes(telemetry.RegionAttributes(r.Code, count, events)...)
	logger.Info().
		Str(log.FieldEvent, "sync.region_done").
		Int("events", events).
		Int("channels", count).
		Msgf("%d events merged, for %d channels", events, count)
	p.set(100, "")
	return rr, nil
}

// categorize filters channels and groups them by category in lineup order.
func (u *Updater) categorize(ctx context.Context, reg *numbering.Registry, channels []catalog.Channel) ([]bouquet.Category, int, error) {
	logger := log.WithComponentFromContext(ctx, "jobs")
	var categories []bouquet.Category
	index := map[string]int{}
	count := 0
	for _, ch := range channels {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		if (ch.Category == numbering.CategorySamsung && !u.opts.AddSamsung) ||
			(ch.Category == numbering.CategoryXiaomi && !u.opts.AddXiaomi) {
			metrics.IncChannelSkipped("partner")
			continue
		}
		if len(ch.Stitched.URLs) == 0 {
			logger.Debug().
				Str(log.FieldEvent, "sync.channel_skipped").
				Str(log.FieldChannelID, ch.ID).
				Msg("channel without stream URLs")
			metrics.IncChannelSkipped("no_urls")
			continue
		}
		url, ok := streamurl.Build(ch.ID, ch.Stitched.URLs, u.opts.LiveMode)
		if !ok {
			logger.Debug().
				Str(log.FieldEvent, "sync.channel_skipped").
				Str(log.FieldChannelID, ch.ID).
				Msg("channel without usable stream")
			metrics.IncChannelSkipped("no_stream")
			continue
		}
		number, err := numbering.ForChannel(u.opts.Numbering, reg, ch)
		if err != nil {
			return nil, 0, err
		}
		i, ok := index[ch.Category]
		if !ok {
			i = len(categories)
			index[ch.Category] = i
			categories = append(categories, bouquet.Category{Name: ch.Category})
		}
		categories[i].Channels = append(categories[i].Channels, bouquet.Channel{
			ID:      ch.ID,
			Number:  number,
			Name:    ch.Name,
			URL:     url,
			LogoURL: ch.ColorLogoPNG.Path,
		})
		count++
	}
	return categories, count, nil
}

func (u *Updater) fetchPicon(ctx context.Context, st bouquet.ServiceType, tids string, ch bouquet.Channel) {
	if u.deps.Picons == nil || u.opts.PiconDir == "" {
		return
	}
	ref := bouquet.ServiceRef(st, ch.Number, tids)
	dest := picon.Path(u.opts.PiconDir, picon.BaseName(u.opts.PiconMode, ref, ch.Name))
	logo := ""
	if ch.LogoURL != "" {
		logo = picon.LogoURL(ch.LogoURL)
	}
	u.deps.Picons.Fetch(ctx, logo, dest, u.opts.ForcePicons)
}

// install registers the bouquet and reloads the receiver. Failures are
// logged; the bouquet file itself is already in place.
func (u *Updater) install(ctx context.Context, b bouquet.Bouquet) {
	logger := log.WithComponentFromContext(ctx, "jobs")
	if u.deps.Index != nil {
		if _, err := u.deps.Index.Ensure(ctx, b.File); err != nil {
			logger.Warn().
				Err(err).
				Str(log.FieldEvent, "bouquet.install_failed").
				Str("file", b.File).
				Msg("unable to register bouquet")
		}
	}
	if err := u.deps.Host.ReloadServices(ctx); err != nil {
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "host.reload_failed").
			Msg("receiver did not reload its services")
	}
}

// RemoveRegions unregisters the bouquets of regions and reloads the
// receiver bouquets when the index changed.
func (u *Updater) RemoveRegions(ctx context.Context, regions []string) error {
	if u.deps.Index == nil || len(regions) == 0 {
		return nil
	}
	changed := false
	var errs []error
	for _, code := range regions {
		logger := log.WithComponentFromContext(ctx, "jobs")
		logger.Info().
			Str(log.FieldEvent, "bouquet.remove").
			Str(log.FieldRegion, code).
			Msg("removing bouquet for region")
		ok, err := u.deps.Index.Remove(ctx, bouquet.FileName(code))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		changed = changed || ok
	}
	if changed {
		if err := u.deps.Host.ReloadBouquets(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

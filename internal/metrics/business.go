// SPDX-License-Identifier: MIT
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Catalog metrics
	catalogRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plutosync_catalog_requests_total",
		Help: "Catalog API requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"}) // outcome=success|transport_error|http_error|decode_error

	// Sync metrics
	syncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plutosync_sync_runs_total",
		Help: "Synchronization passes by terminal state",
	}, []string{"state"}) // state=done|aborted|error|already_running

	syncDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "plutosync_sync_duration_seconds",
		Help:    "Duration of completed synchronization passes",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	syncRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "plutosync_sync_running",
		Help: "Whether a synchronization pass is active (1) or not (0)",
	})

	syncProgress = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "plutosync_sync_progress_percent",
		Help: "Progress of the current region (0-100)",
	}, []string{"region"})

	lastSyncTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "plutosync_last_sync_timestamp_seconds",
		Help: "Unix time of the last finished synchronization pass",
	})

	regionsSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plutosync_regions_skipped_total",
		Help: "Regions skipped because the catalog returned no channels",
	}, []string{"region"})

	channelsTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "plutosync_channels",
		Help: "Channels written to the bouquet per region (last pass)",
	}, []string{"region"})

	channelsSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plutosync_channels_skipped_total",
		Help: "Channels excluded from bouquets by reason",
	}, []string{"reason"}) // reason=partner|no_urls|no_stream

	numbersAssignedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plutosync_channel_numbers_assigned_total",
		Help: "Channel numbers newly allocated by the registry",
	})

	epgEventsMerged = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "plutosync_epg_events_merged",
		Help: "Guide events merged into the EPG cache per region (last pass)",
	}, []string{"region"})

	piconsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plutosync_picons_total",
		Help: "Logo fetches by outcome",
	}, []string{"outcome"}) // outcome=downloaded|cached|placeholder

	// Operational metrics
	cacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plutosync_cache_requests_total",
		Help: "VOD cache lookups by backend and result",
	}, []string{"backend", "result"}) // result=hit|miss|error

	configReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plutosync_config_reloads_total",
		Help: "Configuration reloads by outcome",
	}, []string{"outcome"})
)

func RecordCatalogRequest(endpoint, outcome string) {
	catalogRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
}

// RecordSyncStart marks a pass as active.
func RecordSyncStart() { syncRunning.Set(1) }

// RecordSyncResult records the terminal state of a pass. AlreadyRunning
// rejections do not touch the running gauge.
func RecordSyncResult(state string, d time.Duration, finishedAt time.Time) {
	syncRunsTotal.WithLabelValues(state).Inc()
	if state == "already_running" {
		return
	}
	syncRunning.Set(0)
	syncDurationSeconds.Observe(d.Seconds())
	lastSyncTimestamp.Set(float64(finishedAt.Unix()))
}

func SetSyncProgress(region string, percent int) {
	syncProgress.WithLabelValues(region).Set(float64(percent))
}

func IncRegionSkipped(region string) { regionsSkippedTotal.WithLabelValues(region).Inc() }

func RecordChannels(region string, n int) { channelsTotal.WithLabelValues(region).Set(float64(n)) }

func IncChannelSkipped(reason string) { channelsSkippedTotal.WithLabelValues(reason).Inc() }

func IncNumberAssigned() { numbersAssignedTotal.Inc() }

func RecordEPGEvents(region string, n int) { epgEventsMerged.WithLabelValues(region).Set(float64(n)) }

func IncPicon(outcome string) { piconsTotal.WithLabelValues(outcome).Inc() }

func RecordCacheLookup(backend, result string) {
	cacheRequestsTotal.WithLabelValues(backend, result).Inc()
}

func IncConfigReload(outcome string) { configReloadsTotal.WithLabelValues(outcome).Inc() }

package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Redirect outcomes: redirected or not_found
	qrResolveTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qr_resolve_total",
			Help: "Redirect resolutions partitioned by outcome",
		},
		[]string{"outcome"},
	)

	qrLookupCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qr_lookup_cache_total",
			Help: "Redirect lookup cache hits and misses",
		},
		[]string{"result"},
	)

	// Scan logging results: recorded, insert_failed, increment_failed
	qrScanLogTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qr_scan_log_total",
			Help: "Background scan log jobs partitioned by result",
		},
		[]string{"result"},
	)

	qrScanLogDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qr_scan_log_dropped_total",
			Help: "Scan log jobs dropped because the logger was saturated or stopped",
		},
	)

	qrScanLogInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "qr_scan_log_inflight",
			Help: "Scan log jobs currently running",
		},
	)

	sessionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_events_total",
			Help: "Published identity session events partitioned by type",
		},
		[]string{"type"},
	)

	sessionEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_events_dropped_total",
			Help: "Session events dropped for slow subscribers",
		},
	)
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DeltasEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txsync_deltas_emitted_total",
			Help: "Deltas emitted by the fetch loop",
		},
		[]string{"collab"},
	)

	UpdatesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txsync_updates_skipped_total",
			Help: "Updates dropped because they failed to parse",
		},
		[]string{"collab"},
	)

	FetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txsync_fetch_errors_total",
			Help: "Fetch cycles that ended in an error",
		},
		[]string{"collab"},
	)

	BatchSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "txsync_batch_size",
			Help: "Accumulated updates in the last fetch cycle",
		},
		[]string{"collab"},
	)

	SignalsStored = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "txsync_signals_stored",
			Help: "Projected signals currently stored",
		},
		[]string{"collab", "signal_type"},
	)

	LastSyncTime = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "txsync_last_sync_timestamp_seconds",
			Help: "Unix time of the last successful sync cycle",
		},
		[]string{"collab"},
	)
)

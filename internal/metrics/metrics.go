// Package metrics exposes the collector's and cloud sync worker's counters
// and gauges as Prometheus metrics, served by the HTTP boundary at /metrics.
//
// Grounded on Pasithea0-api-insight's internal/http/handlers/ingest.go and
// prometheus_metrics.go: package-level CounterVec/HistogramVec built with
// github.com/prometheus/client_golang/prometheus and registered once at
// startup. Here the metrics are held on a struct instead of package
// globals so a test can register against its own prometheus.Registry
// without colliding with other packages' registrations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every counter and gauge titrack exports.
type Metrics struct {
	LinesProcessed   prometheus.Counter
	DeltasPersisted  *prometheus.CounterVec
	RunsOpened       prometheus.Counter
	RunsClosed       prometheus.Counter
	PricesLearned    prometheus.Counter
	UplinkOutcomes   *prometheus.CounterVec
	DownlinkOutcomes *prometheus.CounterVec
	OutboxDepth      prometheus.Gauge
	CollectorRunning prometheus.Gauge
	IngestLatency    prometheus.Histogram
}

// New creates and registers the metric set against reg. Pass
// prometheus.DefaultRegisterer in production so promhttp.Handler's default
// gatherer picks them up; tests should pass a fresh prometheus.NewRegistry()
// to avoid "duplicate metrics collector registration" panics across runs.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LinesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "titrack",
			Name:      "lines_processed_total",
			Help:      "Total number of game log lines processed by the collector.",
		}),
		DeltasPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "titrack",
			Name:      "deltas_persisted_total",
			Help:      "Total number of inventory deltas persisted, by context.",
		}, []string{"context"}),
		RunsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "titrack",
			Name:      "runs_opened_total",
			Help:      "Total number of runs opened by the run segmenter.",
		}),
		RunsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "titrack",
			Name:      "runs_closed_total",
			Help:      "Total number of runs closed by the run segmenter.",
		}),
		PricesLearned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "titrack",
			Name:      "prices_learned_total",
			Help:      "Total number of reference prices learned from exchange search windows.",
		}),
		UplinkOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "titrack",
			Name:      "cloud_uplink_outcomes_total",
			Help:      "Outcomes of cloud sync outbox uplink attempts.",
		}, []string{"outcome"}),
		DownlinkOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "titrack",
			Name:      "cloud_downlink_outcomes_total",
			Help:      "Outcomes of cloud sync aggregate downlink attempts.",
		}, []string{"outcome"}),
		OutboxDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "titrack",
			Name:      "cloud_outbox_depth",
			Help:      "Current number of entries queued in the cloud sync outbox.",
		}),
		CollectorRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "titrack",
			Name:      "collector_running",
			Help:      "1 if the collector currently has its log source open, 0 otherwise.",
		}),
		IngestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "titrack",
			Name:      "ingest_poll_duration_seconds",
			Help:      "Time spent processing one collector poll cycle.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}

	reg.MustRegister(
		m.LinesProcessed, m.DeltasPersisted, m.RunsOpened, m.RunsClosed,
		m.PricesLearned, m.UplinkOutcomes, m.DownlinkOutcomes, m.OutboxDepth,
		m.CollectorRunning, m.IngestLatency,
	)
	return m
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	SessionsCompleted prometheus.Counter
	SessionsSkipped   prometheus.Counter
	SessionsFailed    *prometheus.CounterVec
	SessionDuration   prometheus.Histogram
	MediaBytesServed  prometheus.Counter

	registry prometheus.Registerer
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_sessions_completed_total",
			Help: "Total number of notifications confirmed played to completion.",
		}),
		SessionsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_sessions_skipped_total",
			Help: "Total number of notifications skipped (muted or unavailable target).",
		}),
		SessionsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_sessions_failed_total",
			Help: "Total number of failed notification sessions, by failure reason.",
		}, []string{"reason"}),
		SessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "notification_session_seconds",
			Help:    "End-to-end session time from dequeue through restore.",
			Buckets: []float64{1, 2.5, 5, 10, 15, 30, 60, 120},
		}),
		MediaBytesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "media_bytes_served_total",
			Help: "Total audio bytes streamed to playback devices.",
		}),
		registry: reg,
	}

	reg.MustRegister(
		m.SessionsCompleted,
		m.SessionsSkipped,
		m.SessionsFailed,
		m.SessionDuration,
		m.MediaBytesServed,
	)

	return m
}

// RegisterQueueDepth exposes the live queue depth as a gauge. Taken as a
// callback because the queue has no dependency on this package.
func (m *Metrics) RegisterQueueDepth(depth func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "notification_queue_depth",
		Help: "Current number of pending requests in the notification queue.",
	}, func() float64 { return float64(depth()) }))
}

// WorkerHooks returns the metric callback functions expected by
// worker.MetricHooks. Centralises the prometheus observation calls so the
// worker stays import-free.
func (m *Metrics) WorkerHooks() (
	onCompleted func(time.Duration),
	onSkipped func(),
	onFailed func(reason string),
) {
	onCompleted = func(elapsed time.Duration) {
		m.SessionsCompleted.Inc()
		m.SessionDuration.Observe(elapsed.Seconds())
	}
	onSkipped = func() {
		m.SessionsSkipped.Inc()
	}
	onFailed = func(reason string) {
		m.SessionsFailed.WithLabelValues(reason).Inc()
	}
	return
}

// ServerHook returns the byte-count callback for the media server.
func (m *Metrics) ServerHook() func(int64) {
	return func(n int64) {
		m.MediaBytesServed.Add(float64(n))
	}
}

package telemetry

import (
	"context"

	"SignalFeed/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exports run outcomes as Prometheus metrics.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	FeedFailures    prometheus.Counter
	GeneratorTokens prometheus.Counter
	AlertsTotal     *prometheus.CounterVec
}

// NewMetrics registers the metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "signalfeed_runs_total",
			Help: "Recommendation runs by outcome",
		}, []string{"status"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalfeed_run_duration_seconds",
			Help:    "Wall time of recommendation runs",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		FeedFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "signalfeed_feed_failures_total",
			Help: "Per-user feeds that could not be written",
		}),
		GeneratorTokens: f.NewCounter(prometheus.CounterOpts{
			Name: "signalfeed_generator_tokens_total",
			Help: "Tokens consumed by the candidate generator",
		}),
		AlertsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "signalfeed_alerts_total",
			Help: "Alerts produced by monitor passes",
		}, []string{"type"}),
	}
}

// RecordRun implements Sink.
func (m *Metrics) RecordRun(_ context.Context, rec model.RunRecord) error {
	status := "success"
	if !rec.Success {
		status = "failure"
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(float64(rec.DurationMs) / 1000)
	m.GeneratorTokens.Add(float64(rec.Usage.TotalTokens))
	if rec.Summary != nil {
		m.FeedFailures.Add(float64(rec.Summary.UsersFailed))
	}
	return nil
}

// RecordAlerts counts alerts by type.
func (m *Metrics) RecordAlerts(alerts []model.Alert) {
	for _, a := range alerts {
		m.AlertsTotal.WithLabelValues(string(a.Type)).Inc()
	}
}

// Package metrics provides Prometheus metrics for publish runs.
//
// The CLI is short-lived, so metrics are written to a node-exporter
// textfile at the end of a run instead of being served.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run results recorded on relaypub_runs_total.
const (
	ResultSuccess   = "success"
	ResultFailure   = "failure"
	ResultCancelled = "cancelled"
	ResultRejected  = "rejected"
)

// Metrics holds the collectors for one orchestrator. All methods are safe
// on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	runs         *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	stepFailures *prometheus.CounterVec
	authRetries  prometheus.Counter
	lastSuccess  prometheus.Gauge
	inFlight     prometheus.Gauge
}

// New creates collectors registered on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relaypub_runs_total",
				Help: "Publish runs by result (success, failure, cancelled, rejected)",
			},
			[]string{"result"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relaypub_step_duration_seconds",
				Help:    "Duration of each pipeline step",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"step"},
		),
		stepFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relaypub_step_failures_total",
				Help: "Failed pipeline steps",
			},
			[]string{"step"},
		),
		authRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "relaypub_vcs_auth_retries_total",
				Help: "Sync retries after an authentication failure",
			},
		),
		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "relaypub_last_success_timestamp_seconds",
				Help: "Unix time of the last successful publish",
			},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "relaypub_run_in_progress",
				Help: "1 while a publish run holds the admission gate",
			},
		),
	}
	m.registry.MustRegister(m.runs, m.stepDuration, m.stepFailures, m.authRetries, m.lastSuccess, m.inFlight)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveStep records one step's duration and outcome.
func (m *Metrics) ObserveStep(step string, d time.Duration, succeeded bool) {
	if m == nil {
		return
	}
	m.stepDuration.WithLabelValues(step).Observe(d.Seconds())
	if !succeeded {
		m.stepFailures.WithLabelValues(step).Inc()
	}
}

// ObserveRun records the terminal result of a run.
func (m *Metrics) ObserveRun(result string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(result).Inc()
	if result == ResultSuccess {
		m.lastSuccess.SetToCurrentTime()
	}
}

// AuthRetry counts a sync retry with new credentials.
func (m *Metrics) AuthRetry() {
	if m == nil {
		return
	}
	m.authRetries.Inc()
}

// SetInFlight marks whether a run currently holds the gate.
func (m *Metrics) SetInFlight(running bool) {
	if m == nil {
		return
	}
	if running {
		m.inFlight.Set(1)
		return
	}
	m.inFlight.Set(0)
}

// WriteTextfile writes all metrics in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

// Package metrics records recording sessions and report generation on a
// private prometheus registry, optionally exported as a node-exporter
// textfile at the end of a suite.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result label values for ReportsTotal.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the collectors of one suite run.
type Metrics struct {
	registry *prometheus.Registry

	// SessionsTotal counts recording sessions by event (started, stopped).
	SessionsTotal *prometheus.CounterVec

	// SessionDuration tracks how long each session was recording.
	SessionDuration prometheus.Histogram

	// ReportsTotal counts report generations by format and result.
	ReportsTotal *prometheus.CounterVec

	// CoveredLines reports executable and executed line totals of the model.
	CoveredLines *prometheus.GaugeVec

	// SuiteAborted is 1 when the suite was cut short.
	SuiteAborted prometheus.Gauge
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SessionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "speccov_sessions_total",
				Help: "Total number of coverage recording session events",
			},
			[]string{"event"},
		),
		SessionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "speccov_session_duration_seconds",
				Help:    "Duration of coverage recording sessions in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		ReportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "speccov_reports_total",
				Help: "Total number of report generations",
			},
			[]string{"format", "result"},
		),
		CoveredLines: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "speccov_lines",
				Help: "Line totals of the accumulated coverage model",
			},
			[]string{"state"},
		),
		SuiteAborted: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "speccov_suite_aborted",
				Help: "Whether the suite was aborted (1) or completed (0)",
			},
		),
	}
	m.registry.MustRegister(
		m.SessionsTotal,
		m.SessionDuration,
		m.ReportsTotal,
		m.CoveredLines,
		m.SuiteAborted,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// SessionStarted records the start of a session.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsTotal.WithLabelValues("started").Inc()
}

// SessionStopped records the end of a session that ran for d.
func (m *Metrics) SessionStopped(d time.Duration) {
	if m == nil {
		return
	}
	m.SessionsTotal.WithLabelValues("stopped").Inc()
	m.SessionDuration.Observe(d.Seconds())
}

// ReportGenerated records one report generation attempt.
func (m *Metrics) ReportGenerated(format string, err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	m.ReportsTotal.WithLabelValues(format, result).Inc()
}

// SetLines records the model's line totals.
func (m *Metrics) SetLines(executable, executed int) {
	if m == nil {
		return
	}
	m.CoveredLines.WithLabelValues("executable").Set(float64(executable))
	m.CoveredLines.WithLabelValues("executed").Set(float64(executed))
}

// SetAborted records whether the suite was aborted.
func (m *Metrics) SetAborted(aborted bool) {
	if m == nil {
		return
	}
	v := 0.0
	if aborted {
		v = 1
	}
	m.SuiteAborted.Set(v)
}

// WriteTextfile writes every collector in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}

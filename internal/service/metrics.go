package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/jjenkins/recnotify/internal/model"
)

const metricsJob = "recnotify"

// Metrics holds the Prometheus collectors for notification runs. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	contactResolutions *prometheus.CounterVec
	dispatches         *prometheus.CounterVec
	runDuration        prometheus.Histogram

	lastRunRows       prometheus.Gauge
	lastRunOwners     prometheus.Gauge
	lastRunRecordings prometheus.Gauge
	lastRunUnresolved prometheus.Gauge
	lastRunTimestamp  prometheus.Gauge
}

// NewMetrics registers the collectors on a private registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		contactResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recnotify_contact_resolutions_total",
			Help: "Owner contact resolutions by source",
		}, []string{"source"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recnotify_dispatch_total",
			Help: "Notifier dispatch attempts by HTTP status",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "recnotify_run_duration_seconds",
			Help:    "Duration of notification runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		lastRunRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "recnotify_last_run_rows",
			Help: "Recording rows scanned by the last run",
		}),
		lastRunOwners: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "recnotify_last_run_owners",
			Help: "Owners with pending recordings in the last run",
		}),
		lastRunRecordings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "recnotify_last_run_pending_recordings",
			Help: "Pending recordings found by the last run",
		}),
		lastRunUnresolved: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "recnotify_last_run_unresolved_contacts",
			Help: "Owners without a contact email in the last run",
		}),
		lastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "recnotify_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}

	registry.MustRegister(
		m.contactResolutions,
		m.dispatches,
		m.runDuration,
		m.lastRunRows,
		m.lastRunOwners,
		m.lastRunRecordings,
		m.lastRunUnresolved,
		m.lastRunTimestamp,
	)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ContactResolved counts one resolution
func (m *Metrics) ContactResolved(source model.ContactSource) {
	if m == nil {
		return
	}
	m.contactResolutions.WithLabelValues(string(source)).Inc()
}

// Dispatched counts one notifier call. statusCode 0 means the request failed before a response.
func (m *Metrics) Dispatched(statusCode int) {
	if m == nil {
		return
	}
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	m.dispatches.WithLabelValues(status).Inc()
}

// ObserveRun records the outcome of a finished run
func (m *Metrics) ObserveRun(record *model.RunRecord) {
	if m == nil || record == nil {
		return
	}
	if !record.StartedAt.IsZero() && !record.FinishedAt.IsZero() {
		m.runDuration.Observe(record.FinishedAt.Sub(record.StartedAt).Seconds())
	}
	m.SetLastRun(record)
}

// SetLastRun sets the last-run gauges without observing a duration. The
// inspection server uses it to publish a run loaded from the cache.
func (m *Metrics) SetLastRun(record *model.RunRecord) {
	if m == nil || record == nil {
		return
	}
	m.lastRunRows.Set(float64(record.RowsScanned))
	m.lastRunOwners.Set(float64(record.Owners))
	m.lastRunRecordings.Set(float64(record.Recordings))
	m.lastRunUnresolved.Set(float64(record.UnresolvedContacts))
	if !record.FinishedAt.IsZero() {
		m.lastRunTimestamp.Set(float64(record.FinishedAt.Unix()))
	}
}

// Push sends the registry to a Prometheus pushgateway
func (m *Metrics) Push(ctx context.Context, gatewayURL string, timeout time.Duration) error {
	if m == nil || gatewayURL == "" {
		return nil
	}
	client := &http.Client{Timeout: timeout}
	err := push.New(gatewayURL, metricsJob).
		Gatherer(m.registry).
		Client(client).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}

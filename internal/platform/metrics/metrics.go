package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the fall monitor.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal prometheus.Counter
	errorsTotal   prometheus.Counter

	framesTotal          prometheus.Counter
	framesUnmeasured     prometheus.Counter
	alertsDispatched     prometheus.Counter
	alertsSuppressed     prometheus.Counter
	reportsSent          prometheus.Counter
	notificationFailures *prometheus.CounterVec
	queueDrops           prometheus.Counter

	classification prometheus.Gauge
	streak         prometheus.Gauge
	angle          prometheus.Gauge
}

// New creates and registers Prometheus metrics for the monitor.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fall_monitor_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fall_monitor_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		framesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fall_monitor_frames_total",
			Help: "Frames processed by the acquisition loop",
		}),
		framesUnmeasured: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fall_monitor_frames_unmeasured_total",
			Help: "Frames without usable torso landmarks",
		}),
		alertsDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fall_monitor_alerts_dispatched_total",
			Help: "Fall alerts handed to the dispatcher",
		}),
		alertsSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fall_monitor_alerts_suppressed_total",
			Help: "Danger frames whose alert was suppressed by the cooldown",
		}),
		reportsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fall_monitor_reports_total",
			Help: "Scheduled and on-demand reports handed to the dispatcher",
		}),
		notificationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fall_monitor_collaborator_failures_total",
			Help: "Failed calls to external collaborators",
		}, []string{"collaborator"}),
		queueDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fall_monitor_dispatch_queue_drops_total",
			Help: "Dispatch intents dropped because the queue was full",
		}),
		classification: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fall_monitor_classification",
			Help: "Current classification (0 searching, 1 normal, 2 warning, 3 danger)",
		}),
		streak: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fall_monitor_abnormal_streak",
			Help: "Current abnormal frame streak",
		}),
		angle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fall_monitor_torso_angle_degrees",
			Help: "Last measured torso tilt angle",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.framesTotal,
		m.framesUnmeasured,
		m.alertsDispatched,
		m.alertsSuppressed,
		m.reportsSent,
		m.notificationFailures,
		m.queueDrops,
		m.classification,
		m.streak,
		m.angle,
	)

	return m
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// ObserveFrame records one processed frame and the state it produced.
func (m *Metrics) ObserveFrame(measured bool, classification int, streak int, angle float64) {
	m.framesTotal.Inc()
	if !measured {
		m.framesUnmeasured.Inc()
	}
	m.classification.Set(float64(classification))
	m.streak.Set(float64(streak))
	m.angle.Set(angle)
}

// IncAlertsDispatched increments the dispatched alerts counter.
func (m *Metrics) IncAlertsDispatched() {
	m.alertsDispatched.Inc()
}

// IncAlertsSuppressed increments the cooldown suppression counter.
func (m *Metrics) IncAlertsSuppressed() {
	m.alertsSuppressed.Inc()
}

// IncReports increments the reports counter.
func (m *Metrics) IncReports() {
	m.reportsSent.Inc()
}

// IncCollaboratorFailure counts a failed call to an external collaborator
// ("imgbb", "gemini", "notify").
func (m *Metrics) IncCollaboratorFailure(name string) {
	m.notificationFailures.WithLabelValues(name).Inc()
}

// IncQueueDrops increments the dispatch queue drop counter.
func (m *Metrics) IncQueueDrops() {
	m.queueDrops.Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

// Package metrics provides Prometheus metrics collection for the flow
// engine and scenario execution service.
package metrics

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// HTTP metrics (thin health/websocket surface)
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Error metrics
	ErrorsTotal *prometheus.CounterVec

	// Flow execution metrics
	FlowExecutionsTotal   *prometheus.CounterVec
	FlowNodeResultsTotal  *prometheus.CounterVec
	FlowExecutionDuration *prometheus.HistogramVec

	// Scenario execution metrics
	ScenarioExecutionsTotal  *prometheus.CounterVec
	ScenarioStepResultsTotal *prometheus.CounterVec
	ScenarioActiveExecutions prometheus.Gauge

	// Service health
	ServiceUptime prometheus.Gauge
	ServiceInfo   *prometheus.GaugeVec
}

// New creates a new Metrics instance with all collectors registered.
func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new Metrics instance with a custom registry.
func NewWithRegistry(serviceName string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"service", "method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"service", "method", "path"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errors_total",
				Help: "Total number of errors",
			},
			[]string{"service", "type", "operation"},
		),

		FlowExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flow_executions_total",
				Help: "Total number of flow executions by terminal status",
			},
			[]string{"service", "status"},
		),
		FlowNodeResultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flow_node_results_total",
				Help: "Total number of flow node results by node type and status",
			},
			[]string{"service", "node_type", "status"},
		),
		FlowExecutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flow_execution_duration_seconds",
				Help:    "Flow execution wall-clock duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"service"},
		),

		ScenarioExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scenario_executions_total",
				Help: "Total number of scenario executions by terminal status",
			},
			[]string{"service", "status"},
		),
		ScenarioStepResultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scenario_step_results_total",
				Help: "Total number of scenario step results by status",
			},
			[]string{"service", "status"},
		),
		ScenarioActiveExecutions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "scenario_active_executions",
				Help: "Current number of in-flight scenario executions",
			},
		),

		ServiceUptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "service_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
		ServiceInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "service_info",
				Help: "Service information",
			},
			[]string{"service", "version", "environment"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.RequestsTotal,
			m.RequestDuration,
			m.RequestsInFlight,
			m.ErrorsTotal,
			m.FlowExecutionsTotal,
			m.FlowNodeResultsTotal,
			m.FlowExecutionDuration,
			m.ScenarioExecutionsTotal,
			m.ScenarioStepResultsTotal,
			m.ScenarioActiveExecutions,
			m.ServiceUptime,
			m.ServiceInfo,
		)
	}

	m.ServiceInfo.WithLabelValues(serviceName, "1.0.0", getEnvironment()).Set(1)

	return m
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(service, method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(service, method, path, status).Inc()
	m.RequestDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

// RecordError records an error.
func (m *Metrics) RecordError(service, errorType, operation string) {
	m.ErrorsTotal.WithLabelValues(service, errorType, operation).Inc()
}

// RecordFlowExecution records a completed flow execution's terminal status
// and total duration.
func (m *Metrics) RecordFlowExecution(service, status string, duration time.Duration) {
	m.FlowExecutionsTotal.WithLabelValues(service, status).Inc()
	m.FlowExecutionDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordFlowNodeResult records a single node's terminal status within a flow
// walk.
func (m *Metrics) RecordFlowNodeResult(service, nodeType, status string) {
	m.FlowNodeResultsTotal.WithLabelValues(service, nodeType, status).Inc()
}

// RecordScenarioExecution records a completed scenario execution's terminal
// status.
func (m *Metrics) RecordScenarioExecution(service, status string) {
	m.ScenarioExecutionsTotal.WithLabelValues(service, status).Inc()
}

// RecordScenarioStepResult records a single step's terminal status.
func (m *Metrics) RecordScenarioStepResult(service, status string) {
	m.ScenarioStepResultsTotal.WithLabelValues(service, status).Inc()
}

// SetActiveExecutions sets the gauge of in-flight scenario executions.
func (m *Metrics) SetActiveExecutions(count int) {
	m.ScenarioActiveExecutions.Set(float64(count))
}

// UpdateUptime updates the service uptime.
func (m *Metrics) UpdateUptime(startTime time.Time) {
	m.ServiceUptime.Set(time.Since(startTime).Seconds())
}

// IncrementInFlight increments the in-flight requests counter.
func (m *Metrics) IncrementInFlight() {
	m.RequestsInFlight.Inc()
}

// DecrementInFlight decrements the in-flight requests counter.
func (m *Metrics) DecrementInFlight() {
	m.RequestsInFlight.Dec()
}

func getEnvironment() string {
	env := strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV")))
	if env == "" {
		return "development"
	}
	return env
}

// Enabled returns whether Prometheus metrics should be exposed.
//
// Defaults:
//   - production: disabled unless explicitly enabled via METRICS_ENABLED
//   - non-production: enabled unless explicitly disabled via METRICS_ENABLED
func Enabled() bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("METRICS_ENABLED")))
	if raw == "" {
		return getEnvironment() != "production"
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

var (
	globalMetrics *Metrics
	globalMu      sync.Mutex
)

// Init initializes the global metrics instance.
func Init(serviceName string) *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New(serviceName)
	}
	return globalMetrics
}

// Global returns the global metrics instance.
func Global() *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New("unknown")
	}
	return globalMetrics
}

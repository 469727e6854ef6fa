package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "kbweb/pkg/errors"
)

// Collector holds all Prometheus metrics for the application.
// A nil *Collector is valid and records nothing.
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Graph Service client metrics
	GraphRequests *prometheus.CounterVec
	GraphDuration *prometheus.HistogramVec
	BreakerState  prometheus.Gauge

	// Assembly metrics
	Assemblies       *prometheus.CounterVec
	AssemblyDuration prometheus.Histogram
	AssembledObjects *prometheus.CounterVec

	// Bus metrics
	Dispatches       *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec

	// Agent and viewer metrics
	AgentRuns         *prometheus.CounterVec
	ViewerConnections prometheus.Gauge
}

// NewCollector creates a collector with its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		GraphRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "graph_service",
				Name:      "requests_total",
				Help:      "Graph Service requests by type and outcome",
			},
			[]string{"type", "status"},
		),
		GraphDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "graph_service",
				Name:      "request_duration_seconds",
				Help:      "Graph Service round trip duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"type"},
		),
		BreakerState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "graph_service",
				Name:      "breaker_state",
				Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open",
			},
		),
		Assemblies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assemblies_total",
				Help:      "Result graph assemblies by outcome",
			},
			[]string{"status"},
		),
		AssemblyDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "assembly_duration_seconds",
				Help:      "Result graph assembly duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		AssembledObjects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assembled_elements_total",
				Help:      "Elements emitted into result graphs",
			},
			[]string{"kind"},
		),
		Dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bus_dispatches_total",
				Help:      "Commands and queries dispatched through the buses",
			},
			[]string{"bus", "name", "status"},
		),
		DispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "bus_dispatch_duration_seconds",
				Help:      "Command and query handling duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"bus", "name"},
		),
		AgentRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agent_runs_total",
				Help:      "Agent runs by agent and outcome",
			},
			[]string{"agent", "status"},
		),
		ViewerConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "viewer_connections",
				Help:      "Connected result viewers",
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.GraphRequests,
		c.GraphDuration,
		c.BreakerState,
		c.Assemblies,
		c.AssemblyDuration,
		c.AssembledObjects,
		c.Dispatches,
		c.DispatchDuration,
		c.AgentRuns,
		c.ViewerConnections,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordHTTP records one served request
func (c *Collector) RecordHTTP(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordGraphRequest records one Graph Service round trip
func (c *Collector) RecordGraphRequest(requestType string, duration time.Duration, err error) {
	if c == nil {
		return
	}
	c.GraphRequests.WithLabelValues(requestType, outcome(err)).Inc()
	c.GraphDuration.WithLabelValues(requestType).Observe(duration.Seconds())
}

// SetBreakerState records the circuit breaker state
func (c *Collector) SetBreakerState(state int) {
	if c == nil {
		return
	}
	c.BreakerState.Set(float64(state))
}

// RecordAssembly records one assembly and the size of the produced graph
func (c *Collector) RecordAssembly(duration time.Duration, objects, connections int, err error) {
	if c == nil {
		return
	}
	c.Assemblies.WithLabelValues(outcome(err)).Inc()
	c.AssemblyDuration.Observe(duration.Seconds())
	if err == nil {
		c.AssembledObjects.WithLabelValues("object").Add(float64(objects))
		c.AssembledObjects.WithLabelValues("connection").Add(float64(connections))
	}
}

// RecordDispatch records a command or query handled by a bus
func (c *Collector) RecordDispatch(bus, name string, duration time.Duration, err error) {
	if c == nil {
		return
	}
	c.Dispatches.WithLabelValues(bus, name, outcome(err)).Inc()
	c.DispatchDuration.WithLabelValues(bus, name).Observe(duration.Seconds())
}

// RecordAgentRun records one agent run
func (c *Collector) RecordAgentRun(agent string, err error) {
	if c == nil {
		return
	}
	c.AgentRuns.WithLabelValues(agent, outcome(err)).Inc()
}

// ViewerConnected adjusts the connected viewer gauge by delta
func (c *Collector) ViewerConnected(delta int) {
	if c == nil {
		return
	}
	c.ViewerConnections.Add(float64(delta))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case apperrors.IsCountMismatch(err):
		return "count_mismatch"
	case apperrors.IsProtocol(err):
		return "protocol_error"
	case apperrors.IsType(err, apperrors.ErrorTypeTimeout):
		return "timeout"
	case apperrors.IsType(err, apperrors.ErrorTypeUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

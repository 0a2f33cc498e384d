// Package metrics exposes Prometheus collectors for canvas editing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector on its own prometheus registry.
type Registry struct {
	registry *prometheus.Registry

	NodesCreated   *prometheus.CounterVec
	NodesRemoved   prometheus.Counter
	EdgesCreated   *prometheus.CounterVec
	EdgesRemoved   prometheus.Counter
	RemoteCalls    *prometheus.CounterVec
	RemoteDuration *prometheus.HistogramVec
	Sessions       prometheus.Gauge
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
}

// NewRegistry creates and registers all collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Registry{
		registry: reg,
		NodesCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canvas_nodes_created_total",
				Help: "Nodes created on canvases",
			},
			[]string{"kind", "origin"}, // origin: diagram, spacing, menu, api
		),
		NodesRemoved: f.NewCounter(prometheus.CounterOpts{
			Name: "canvas_nodes_removed_total",
			Help: "Nodes removed from canvases",
		}),
		EdgesCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canvas_edges_created_total",
				Help: "Edges created on canvases",
			},
			[]string{"type"},
		),
		EdgesRemoved: f.NewCounter(prometheus.CounterOpts{
			Name: "canvas_edges_removed_total",
			Help: "Edges removed from canvases",
		}),
		RemoteCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canvas_remote_calls_total",
				Help: "Backend calls by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		RemoteDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "canvas_remote_call_duration_seconds",
				Help:    "Backend call latency",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"operation"},
		),
		Sessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "canvas_sessions_open",
			Help: "Canvas sessions currently held in memory",
		}),
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canvas_http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "canvas_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// ObserveRemote records a settled backend call.
func (r *Registry) ObserveRemote(operation string, err error, elapsed time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.RemoteCalls.WithLabelValues(operation, outcome).Inc()
	r.RemoteDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// RecordHTTPRequest records one served request.
func (r *Registry) RecordHTTPRequest(method, route, status string, elapsed time.Duration) {
	r.HTTPRequests.WithLabelValues(method, route, status).Inc()
	r.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

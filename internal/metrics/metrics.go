// Package metrics exports annealing, pipeline, cache and HTTP events as
// Prometheus metrics by implementing the observability hook interfaces.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/graphanneal/pkg/observability"
)

const namespace = "graphanneal"

// Metrics holds every collector. Each instance owns its registry, so tests
// can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	annealRuns         *prometheus.CounterVec
	annealDuration     prometheus.Histogram
	annealSteps        prometheus.Histogram
	annealEnergy       prometheus.Histogram
	annealImprovements prometheus.Counter
	annealActive       prometheus.Gauge

	layouts        *prometheus.CounterVec
	layoutDuration *prometheus.HistogramVec
	renders        *prometheus.CounterVec
	renderDuration prometheus.Histogram

	cacheOps   *prometheus.CounterVec
	cacheBytes *prometheus.CounterVec

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestErrors   *prometheus.CounterVec
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		annealRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anneal_runs_total",
			Help:      "Annealing runs by outcome.",
		}, []string{"outcome"}),
		annealDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "anneal_duration_seconds",
			Help:      "Wall time of annealing runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		annealSteps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "anneal_steps",
			Help:      "Steps performed per run.",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
		}),
		annealEnergy: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "anneal_final_energy",
			Help:      "Best energy at the end of each run.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		annealImprovements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anneal_improvements_total",
			Help:      "Strict improvements of the best energy.",
		}),
		annealActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "anneal_active_runs",
			Help:      "Runs currently in progress.",
		}),

		layouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layouts_total",
			Help:      "Layout pipeline executions by variant and outcome.",
		}, []string{"variant", "outcome"}),
		layoutDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "layout_duration_seconds",
			Help:      "Duration of layout pipeline executions.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"variant"}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Render executions by outcome.",
		}, []string{"outcome"}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Duration of render executions.",
			Buckets:   prometheus.DefBuckets,
		}),

		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Cache lookups and writes by key type and result.",
		}, []string{"key_type", "result"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache by key type.",
		}, []string{"key_type"}),

		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP responses by route, method and status code.",
		}, []string{"method", "route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		requestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Handler failures by route.",
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		m.annealRuns, m.annealDuration, m.annealSteps, m.annealEnergy, m.annealImprovements, m.annealActive,
		m.layouts, m.layoutDuration, m.renders, m.renderDuration,
		m.cacheOps, m.cacheBytes,
		m.requests, m.requestDuration, m.requestErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Install creates a Metrics and registers it as every observability hook.
func Install() *Metrics {
	m := New()
	observability.SetAnnealHooks(m)
	observability.SetPipelineHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

func (m *Metrics) OnAnnealStart(ctx context.Context, nodes, edges, steps int) {
	m.annealActive.Inc()
}

func (m *Metrics) OnImprovement(ctx context.Context, step int, energy float64) {
	m.annealImprovements.Inc()
}

func (m *Metrics) OnAnnealComplete(ctx context.Context, steps int, energy float64, duration time.Duration, err error) {
	m.annealActive.Dec()
	m.annealRuns.WithLabelValues(outcome(err)).Inc()
	m.annealDuration.Observe(duration.Seconds())
	m.annealSteps.Observe(float64(steps))
	m.annealEnergy.Observe(energy)
}

func (m *Metrics) OnLayoutStart(ctx context.Context, variant string, nodeCount int) {}

func (m *Metrics) OnLayoutComplete(ctx context.Context, variant string, duration time.Duration, err error) {
	m.layouts.WithLabelValues(variant, outcome(err)).Inc()
	m.layoutDuration.WithLabelValues(variant).Observe(duration.Seconds())
}

func (m *Metrics) OnRenderStart(ctx context.Context, formats []string) {}

func (m *Metrics) OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error) {
	m.renders.WithLabelValues(outcome(err)).Inc()
	m.renderDuration.Observe(duration.Seconds())
}

func (m *Metrics) OnCacheHit(ctx context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(ctx context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(ctx context.Context, keyType string, size int) {
	m.cacheOps.WithLabelValues(keyType, "set").Inc()
	m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (m *Metrics) OnRequest(ctx context.Context, method, route string) {}

func (m *Metrics) OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) OnError(ctx context.Context, method, route string, err error) {
	m.requestErrors.WithLabelValues(method, route).Inc()
}

var (
	_ observability.AnnealHooks   = (*Metrics)(nil)
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
)

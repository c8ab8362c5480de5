// Package prom implements the observability hooks with Prometheus
// collectors.
//
// # Usage
//
// Register the collectors once at startup and install them as hooks:
//
//	m := prom.New(prometheus.DefaultRegisterer)
//	m.Install()
//	http.Handle("/metrics", promhttp.Handler())
//
// Every metric is prefixed with "dyntopo_".
package prom

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/dyntopo/pkg/observability"
)

const namespace = "dyntopo"

// Metrics holds the collectors. It implements every hook interface of
// package observability.
type Metrics struct {
	remeshTotal    *prometheus.CounterVec
	remeshDuration *prometheus.HistogramVec
	remeshSteps    prometheus.Histogram
	remeshOps      *prometheus.CounterVec
	remeshFaces    prometheus.Histogram

	loadDuration   prometheus.Histogram
	loadErrors     prometheus.Counter
	exportDuration *prometheus.HistogramVec
	exportBytes    *prometheus.CounterVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheBytes  *prometheus.CounterVec

	httpInFlight *prometheus.GaugeVec
	httpTotal    *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		remeshTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remesh_passes_total",
			Help:      "Total remesh passes by mode and whether they changed the mesh",
		}, []string{"mode", "modified"}),
		remeshDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remesh_pass_duration_seconds",
			Help:      "Remesh pass duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		}, []string{"mode"}),
		remeshSteps: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remesh_pass_steps",
			Help:      "Queue steps per remesh pass",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		remeshOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remesh_operations_total",
			Help:      "Topology operations applied by remesh passes",
		}, []string{"op"}), // split, collapse, fin, dissolve
		remeshFaces: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remesh_input_faces",
			Help:      "Face count of meshes entering a remesh pass",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		}),

		loadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Mesh decode duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		loadErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_errors_total",
			Help:      "Meshes that failed to load",
		}),
		exportDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_duration_seconds",
			Help:      "Export duration in seconds by format",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}, []string{"format"}),
		exportBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_bytes_total",
			Help:      "Bytes exported by format",
		}, []string{"format"}),

		cacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Cache hits by key type",
		}, []string{"key_type"}),
		cacheMisses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Cache misses by key type",
		}, []string{"key_type"}),
		cacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache by key type",
		}, []string{"key_type"}),

		httpInFlight: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Requests currently being served",
		}, []string{"route"}),
		httpTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Served requests by route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Install registers m as the remesh, pipeline, cache and HTTP hooks.
func (m *Metrics) Install() {
	observability.SetRemeshHooks(m)
	observability.SetPipelineHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

func (m *Metrics) OnRemeshStart(_ context.Context, _ string, faces int) {
	m.remeshFaces.Observe(float64(faces))
}

func (m *Metrics) OnRemeshComplete(_ context.Context, r observability.RemeshReport) {
	m.remeshTotal.WithLabelValues(r.Mode, strconv.FormatBool(r.Modified)).Inc()
	m.remeshDuration.WithLabelValues(r.Mode).Observe(r.Duration.Seconds())
	m.remeshSteps.Observe(float64(r.Steps))
	m.remeshOps.WithLabelValues("split").Add(float64(r.Splits))
	m.remeshOps.WithLabelValues("collapse").Add(float64(r.Collapses))
	m.remeshOps.WithLabelValues("fin").Add(float64(r.FinsRemoved))
	m.remeshOps.WithLabelValues("dissolve").Add(float64(r.Dissolved))
}

func (m *Metrics) OnLoadStart(context.Context, string) {}

func (m *Metrics) OnLoadComplete(_ context.Context, _ string, _ int, d time.Duration, err error) {
	if err != nil {
		m.loadErrors.Inc()
		return
	}
	m.loadDuration.Observe(d.Seconds())
}

func (m *Metrics) OnExportStart(context.Context, string) {}

func (m *Metrics) OnExportComplete(_ context.Context, format string, size int, d time.Duration, err error) {
	if err != nil {
		return
	}
	m.exportDuration.WithLabelValues(format).Observe(d.Seconds())
	m.exportBytes.WithLabelValues(format).Add(float64(size))
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheHits.WithLabelValues(keyType).Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheMisses.WithLabelValues(keyType).Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (m *Metrics) OnRequest(_ context.Context, _, route string) {
	m.httpInFlight.WithLabelValues(route).Inc()
}

func (m *Metrics) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	m.httpInFlight.WithLabelValues(route).Dec()
	m.httpTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ observability.RemeshHooks   = (*Metrics)(nil)
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
)

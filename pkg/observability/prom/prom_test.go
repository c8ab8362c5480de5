package prom

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matzehuels/dyntopo/pkg/observability"
)

func TestRemeshMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())
	ctx := context.Background()

	m.OnRemeshStart(ctx, "subdivide", 128)
	m.OnRemeshComplete(ctx, observability.RemeshReport{
		Mode:      "subdivide",
		Modified:  true,
		Steps:     12,
		Duration:  time.Millisecond,
		Splits:    7,
		Collapses: 2,
	})
	m.OnRemeshComplete(ctx, observability.RemeshReport{Mode: "subdivide", Splits: 1})

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"modified passes", m.remeshTotal.WithLabelValues("subdivide", "true"), 1},
		{"unmodified passes", m.remeshTotal.WithLabelValues("subdivide", "false"), 1},
		{"splits", m.remeshOps.WithLabelValues("split"), 8},
		{"collapses", m.remeshOps.WithLabelValues("collapse"), 2},
		{"fins", m.remeshOps.WithLabelValues("fin"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.c); got != tt.want {
				t.Errorf("ToFloat64() = %g, want %g", got, tt.want)
			}
		})
	}
	if got := testutil.CollectAndCount(m.remeshDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestPipelineAndCacheMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())
	ctx := context.Background()

	m.OnLoadComplete(ctx, "a.obj", 10, time.Millisecond, nil)
	m.OnLoadComplete(ctx, "b.obj", 0, time.Millisecond, errors.New("boom"))
	m.OnExportComplete(ctx, "obj", 100, time.Millisecond, nil)
	m.OnExportComplete(ctx, "obj", 50, time.Millisecond, nil)
	m.OnExportComplete(ctx, "svg", 50, time.Millisecond, errors.New("boom"))
	m.OnCacheHit(ctx, "remesh")
	m.OnCacheMiss(ctx, "remesh")
	m.OnCacheMiss(ctx, "remesh")
	m.OnCacheSet(ctx, "render", 512)

	if got := testutil.ToFloat64(m.loadErrors); got != 1 {
		t.Errorf("load errors = %g, want 1", got)
	}
	if got := testutil.ToFloat64(m.exportBytes.WithLabelValues("obj")); got != 150 {
		t.Errorf("obj bytes = %g, want 150", got)
	}
	if got := testutil.ToFloat64(m.exportBytes.WithLabelValues("svg")); got != 0 {
		t.Errorf("svg bytes = %g, want 0", got)
	}
	if got := testutil.ToFloat64(m.cacheHits.WithLabelValues("remesh")); got != 1 {
		t.Errorf("cache hits = %g, want 1", got)
	}
	if got := testutil.ToFloat64(m.cacheMisses.WithLabelValues("remesh")); got != 2 {
		t.Errorf("cache misses = %g, want 2", got)
	}
	if got := testutil.ToFloat64(m.cacheBytes.WithLabelValues("render")); got != 512 {
		t.Errorf("cache bytes = %g, want 512", got)
	}
}

func TestHTTPMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())
	ctx := context.Background()

	m.OnRequest(ctx, "POST", "/remesh")
	if got := testutil.ToFloat64(m.httpInFlight.WithLabelValues("/remesh")); got != 1 {
		t.Errorf("in flight = %g, want 1", got)
	}
	m.OnResponse(ctx, "POST", "/remesh", 200, 10*time.Millisecond)
	if got := testutil.ToFloat64(m.httpInFlight.WithLabelValues("/remesh")); got != 0 {
		t.Errorf("in flight after response = %g, want 0", got)
	}
	if got := testutil.ToFloat64(m.httpTotal.WithLabelValues("POST", "/remesh", "200")); got != 1 {
		t.Errorf("requests = %g, want 1", got)
	}
}

func TestInstall(t *testing.T) {
	defer observability.Reset()
	m := New(prometheus.NewRegistry())
	m.Install()
	if observability.Remesh() != observability.RemeshHooks(m) {
		t.Error("Install() did not set remesh hooks")
	}
	if observability.Cache() != observability.CacheHooks(m) {
		t.Error("Install() did not set cache hooks")
	}
}

func TestNewRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Error("second New() on the same registry did not panic")
		}
	}()
	New(reg)
}

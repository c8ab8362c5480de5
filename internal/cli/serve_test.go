package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/dyntopo/pkg/cache"
	"github.com/matzehuels/dyntopo/pkg/errors"
	"github.com/matzehuels/dyntopo/pkg/observability"
	"github.com/matzehuels/dyntopo/pkg/observability/prom"
	"github.com/matzehuels/dyntopo/pkg/pipeline"
)

func newTestServer(t *testing.T, defaults pipeline.Options) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	prom.New(reg).Install()
	t.Cleanup(observability.Reset)

	logger := log.New(io.Discard)
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := pipeline.NewRunner(fc, nil, logger)
	return newServer(runner, defaults, logger, reg).routes()
}

func gridOBJ(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(writeGrid(t, "grid.obj"))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func postRemesh(t *testing.T, h http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/remesh", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServeHealth(t *testing.T) {
	h := newTestServer(t, pipeline.Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /healthz status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if resp.Status != "ok" || resp.Build.GoVersion == "" {
		t.Errorf("health = %+v, want status ok with a Go version", resp)
	}
}

func TestServeRemesh(t *testing.T) {
	h := newTestServer(t, pipeline.Options{Passes: 2})
	body := map[string]any{
		"mesh":        gridOBJ(t),
		"detail_size": 0.5,
		"formats":     []string{"obj", "dot"},
	}

	rec := postRemesh(t, h, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /remesh status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}
	var first remeshResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if first.RequestID == "" || first.InputHash == "" {
		t.Errorf("response ids = %q, %q, want both set", first.RequestID, first.InputHash)
	}
	if first.Cached {
		t.Error("first request Cached = true, want false")
	}
	if first.Remesh.Faces <= 8 || first.Remesh.Edits.Splits == 0 {
		t.Errorf("remesh = %+v, want splits on a grid with detail 0.5", first.Remesh)
	}
	if !strings.HasPrefix(first.Artifacts["obj"], "# dyntopo:") {
		t.Errorf("obj artifact starts with %q", first.Artifacts["obj"][:min(20, len(first.Artifacts["obj"]))])
	}
	if !strings.HasPrefix(first.Artifacts["dot"], "graph G {") {
		t.Error("dot artifact is not a graph")
	}

	rec = postRemesh(t, h, body)
	var second remeshResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !second.Cached {
		t.Error("second request Cached = false, want a cache hit")
	}
	if second.Remesh.Faces != first.Remesh.Faces {
		t.Errorf("cached faces = %d, want %d", second.Remesh.Faces, first.Remesh.Faces)
	}
	if second.RequestID == first.RequestID {
		t.Error("requests share an ID")
	}

	// Metrics saw both requests under the route pattern.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	metrics := rec.Body.String()
	for _, want := range []string{
		`dyntopo_http_requests_total{method="POST",route="/remesh",status="200"} 2`,
		`dyntopo_cache_hits_total{key_type="remesh"} 1`,
		`dyntopo_remesh_passes_total`,
	} {
		if !strings.Contains(metrics, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestServeRemeshErrors(t *testing.T) {
	h := newTestServer(t, pipeline.Options{})
	obj := gridOBJ(t)

	tests := []struct {
		name   string
		body   any
		status int
		code   errors.Code
	}{
		{"no mesh", map[string]any{"mode": "both"}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad mode", map[string]any{"mesh": obj, "mode": "explode"}, http.StatusBadRequest, errors.ErrCodeInvalidConfig},
		{"bad format", map[string]any{"mesh": obj, "formats": []string{"png"}}, http.StatusBadRequest, errors.ErrCodeInvalidFormat},
		{"bad mesh", map[string]any{"mesh": "f 1 2 3\n"}, http.StatusBadRequest, errors.ErrCodeInvalidMesh},
		{"bad field type", map[string]any{"mesh": obj, "passes": "two"}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"zero view normal", map[string]any{"mesh": obj, "view_normal": []float64{0, 0, 0}}, http.StatusBadRequest, errors.ErrCodeInvalidConfig},
		{"negative edge limit", map[string]any{"mesh": obj, "edge_limit_multiplier": -1}, http.StatusBadRequest, errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postRemesh(t, h, tt.body)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if resp.Code != tt.code {
				t.Errorf("code = %s, want %s (%s)", resp.Code, tt.code, resp.Error)
			}
		})
	}
}

func TestServeRemeshViewNormal(t *testing.T) {
	h := newTestServer(t, pipeline.Options{})
	obj := gridOBJ(t)

	tests := []struct {
		name       string
		view       []float64
		wantSplits bool
	}{
		{"facing", []float64{0, 0, 1}, true},
		{"facing away", []float64{0, 0, -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := map[string]any{"mesh": obj, "detail_size": 0.5, "view_normal": tt.view, "edge_limit_multiplier": 1}
			rec := postRemesh(t, h, body)
			if rec.Code != http.StatusOK {
				t.Fatalf("POST /remesh status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
			}
			var resp remeshResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if got := resp.Remesh.Edits.Splits > 0; got != tt.wantSplits {
				t.Errorf("splits = %d, want splits %v", resp.Remesh.Edits.Splits, tt.wantSplits)
			}
		})
	}
}

func TestServeRequestsDoNotReadFiles(t *testing.T) {
	h := newTestServer(t, pipeline.Options{})
	path := writeGrid(t, "secret.obj")

	rec := postRemesh(t, h, map[string]any{"input": path})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestServeDefaultsNotShared(t *testing.T) {
	defaults := pipeline.Options{
		Formats:    []string{"obj"},
		Brush:      &pipeline.Brush{Radius: 100},
		ViewNormal: &[3]float64{0, 0, 1},
	}
	s := newServer(nil, defaults, log.New(io.Discard), prometheus.NewRegistry())

	opts := s.requestDefaults()
	opts.Formats[0] = "svg"
	opts.Brush.Radius = 1
	opts.ViewNormal[2] = -1

	if defaults.Formats[0] != "obj" || defaults.Brush.Radius != 100 || defaults.ViewNormal[2] != 1 {
		t.Errorf("request changed server defaults: %v, %v, %v", defaults.Formats, defaults.Brush, defaults.ViewNormal)
	}
}

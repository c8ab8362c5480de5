package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/dyntopo/pkg/buildinfo"
	"github.com/matzehuels/dyntopo/pkg/errors"
	"github.com/matzehuels/dyntopo/pkg/observability"
	"github.com/matzehuels/dyntopo/pkg/observability/prom"
	"github.com/matzehuels/dyntopo/pkg/pipeline"
)

const (
	defaultAddr = ":8080"

	// maxRequestBytes bounds the body of a remesh request.
	maxRequestBytes = 64 << 20

	shutdownTimeout = 10 * time.Second
)

// serveCommand creates the serve command, which exposes the pipeline over
// HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		configPath string
		redisAddr  string
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the remesh pipeline over HTTP",
		Long: `Serve the remesh pipeline over HTTP.

Endpoints:
  POST /remesh   remesh the mesh in the JSON request body
  GET  /healthz  build information
  GET  /metrics  Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if redisAddr != "" {
				cfg.Cache.Backend = backendRedis
				cfg.Cache.Redis.Addr = redisAddr
			}
			return c.runServe(cmd.Context(), addr, cfg, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default: ./dyntopo.toml)")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "cache results in the Redis server at this address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, cfg config, noCache bool) error {
	runner, err := c.newRunner(ctx, cfg.Cache, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom.New(reg).Install()
	defer observability.Reset()

	srv := &http.Server{
		Addr:              addr,
		Handler:           newServer(runner, cfg.options(), c.Logger, reg).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.Logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		c.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// server holds the HTTP handlers of the API.
type server struct {
	runner   *pipeline.Runner
	defaults pipeline.Options
	logger   *log.Logger
	gatherer prometheus.Gatherer
}

func newServer(runner *pipeline.Runner, defaults pipeline.Options, logger *log.Logger, gatherer prometheus.Gatherer) *server {
	return &server{runner: runner, defaults: defaults, logger: logger, gatherer: gatherer}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	route(r, http.MethodGet, "/healthz", http.HandlerFunc(s.handleHealth))
	route(r, http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	route(r, http.MethodPost, "/remesh", http.HandlerFunc(s.handleRemesh))
	return r
}

// route registers h under pattern and reports its requests to the HTTP
// hooks.
func route(r chi.Router, method, pattern string, h http.Handler) {
	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hooks := observability.HTTP()
		hooks.OnRequest(req.Context(), method, pattern)
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)

		h.ServeHTTP(ww, req)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks.OnResponse(req.Context(), method, pattern, status, time.Since(start))
	}))
}

type healthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Build: buildinfo.Get()})
}

// remeshRequest is the body of POST /remesh. Mesh holds the file content
// in the format named by input_format (obj when empty). Unset options
// fall back to the server config.
type remeshRequest struct {
	Mesh string `json:"mesh"`
	pipeline.Options
}

type remeshResponse struct {
	RequestID string              `json:"request_id"`
	InputHash string              `json:"input_hash"`
	Cached    bool                `json:"cached"`
	Remesh    pipeline.RemeshInfo `json:"remesh"`
	Artifacts map[string]string   `json:"artifacts"`
	ElapsedMS int64               `json:"elapsed_ms"`
}

type errorResponse struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code,omitempty"`
}

func (s *server) handleRemesh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	req := remeshRequest{Options: s.requestDefaults()}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request"))
		return
	}
	if req.Mesh == "" {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "mesh is required"))
		return
	}

	opts := req.Options
	// Requests never read server files.
	opts.Input = ""
	opts.Data = []byte(req.Mesh)
	opts.Logger = s.logger

	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := remeshResponse{
		RequestID: result.RequestID,
		InputHash: result.InputHash,
		Cached:    result.CacheInfo.RemeshHit,
		Remesh:    result.Remesh,
		Artifacts: make(map[string]string, len(result.Artifacts)),
		ElapsedMS: time.Since(start).Milliseconds(),
	}
	for format, data := range result.Artifacts {
		resp.Artifacts[format] = string(data)
	}
	writeJSON(w, http.StatusOK, resp)
}

// requestDefaults returns a copy of the server defaults that decoding a
// request may overwrite.
func (s *server) requestDefaults() pipeline.Options {
	opts := s.defaults
	opts.Formats = slices.Clone(opts.Formats)
	if opts.Brush != nil {
		b := *opts.Brush
		opts.Brush = &b
	}
	if opts.ViewNormal != nil {
		n := *opts.ViewNormal
		opts.ViewNormal = &n
	}
	return opts
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	} else {
		s.logger.Debug("request rejected", "err", err)
	}
	writeJSON(w, status, errorResponse{Error: errors.UserMessage(err), Code: errors.GetCode(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/dyntopo/pkg/cache"
	meshio "github.com/matzehuels/dyntopo/pkg/io"
	"github.com/matzehuels/dyntopo/pkg/mesh"
	"github.com/matzehuels/dyntopo/pkg/observability"
)

// Cache key types reported to the cache hooks.
const (
	keyTypeRemesh = "remesh"
	keyTypeRender = "render"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// cachedRemesh is the cache entry of a remesh result.
type cachedRemesh struct {
	Info RemeshInfo      `json:"info"`
	Mesh json.RawMessage `json:"mesh"`
}

// Execute runs the complete load → remesh → export pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	result := &Result{RequestID: uuid.NewString()}
	opts.Logger = opts.Logger.With("request", result.RequestID[:8])

	// Stage 1: Load
	loadStart := time.Now()
	data, err := ReadInput(opts)
	if err != nil {
		return nil, err
	}
	result.InputHash = cache.Hash(data)
	key := r.Keyer.RemeshKey(result.InputHash, opts.RemeshKeyOpts())
	result.Stats.LoadTime = time.Since(loadStart)

	if !opts.Refresh {
		if m, info, ok := r.cachedResult(ctx, key, opts); ok {
			result.Mesh = m
			result.Remesh = info
			result.CacheInfo.RemeshHit = true
		}
	}

	// Stage 2: Remesh
	if !result.CacheInfo.RemeshHit {
		loaded, _, err := Load(ctx, Options{
			Data:        data,
			Input:       opts.Input,
			InputFormat: opts.InputFormat,
			Logger:      opts.Logger,
		})
		if err != nil {
			return nil, err
		}
		result.Stats.LoadTime = time.Since(loadStart)
		opts.Logger.Info("loaded mesh",
			"verts", loaded.Mesh.NumVerts(),
			"faces", loaded.Mesh.NumFaces(),
			"ngons", loaded.NGons,
			"duration", result.Stats.LoadTime)

		remeshStart := time.Now()
		session, err := NewSession(loaded.Mesh, opts)
		if err != nil {
			return nil, err
		}
		info, err := Remesh(ctx, session, opts)
		if err != nil {
			return nil, err
		}
		info.Skipped = loaded.Skipped
		result.Mesh = loaded.Mesh
		result.Remesh = info
		result.Stats.RemeshTime = time.Since(remeshStart)
		opts.Logger.Info("remeshed",
			"mode", opts.Mode,
			"passes", info.Passes,
			"splits", info.Edits.Splits,
			"collapses", info.Edits.Collapses,
			"faces", info.Faces,
			"duration", result.Stats.RemeshTime)

		r.storeResult(ctx, key, result.Mesh, info)
	}

	// Stage 3: Export
	exportStart := time.Now()
	artifacts, err := r.export(ctx, result.Mesh, key, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.ExportTime = time.Since(exportStart)

	opts.Logger.Info("exported outputs",
		"formats", opts.Formats,
		"duration", result.Stats.ExportTime)

	return result, nil
}

func (r *Runner) cachedResult(ctx context.Context, key string, opts Options) (*mesh.Mesh, RemeshInfo, bool) {
	hooks := observability.Cache()
	var data []byte
	err := cache.RetryWithBackoff(ctx, func() error {
		var err error
		data, err = cache.GetOrMiss(ctx, r.Cache, key)
		return err
	})
	if err != nil {
		if !stderrors.Is(err, cache.ErrCacheMiss) {
			opts.Logger.Warn("cache lookup failed", "key", key, "err", err)
		}
		hooks.OnCacheMiss(ctx, keyTypeRemesh)
		return nil, RemeshInfo{}, false
	}

	var entry cachedRemesh
	if err := json.Unmarshal(data, &entry); err != nil {
		opts.Logger.Warn("discarding corrupt cache entry", "key", key, "err", err)
		hooks.OnCacheMiss(ctx, keyTypeRemesh)
		return nil, RemeshInfo{}, false
	}
	res, err := meshio.ReadJSON(bytes.NewReader(entry.Mesh))
	if err != nil {
		opts.Logger.Warn("discarding corrupt cache entry", "key", key, "err", err)
		hooks.OnCacheMiss(ctx, keyTypeRemesh)
		return nil, RemeshInfo{}, false
	}
	hooks.OnCacheHit(ctx, keyTypeRemesh)
	opts.Logger.Debug("remesh cache hit", "key", key)
	return res.Mesh, entry.Info, true
}

func (r *Runner) storeResult(ctx context.Context, key string, m *mesh.Mesh, info RemeshInfo) {
	var buf bytes.Buffer
	if err := meshio.WriteJSON(m, &buf); err != nil {
		return
	}
	data, err := json.Marshal(cachedRemesh{Info: info, Mesh: buf.Bytes()})
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, cache.TTLRemesh); err != nil {
		r.Logger.Warn("cache store failed", "key", key, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyTypeRemesh, len(data))
}

// export encodes every format, caching rendered SVGs under the remesh key.
func (r *Runner) export(ctx context.Context, m *mesh.Mesh, remeshKey string, opts Options) (map[string][]byte, error) {
	hooks := observability.Cache()
	artifacts := make(map[string][]byte, len(opts.Formats))
	var rest []string
	for _, format := range opts.Formats {
		if format != FormatSVG || opts.Refresh {
			rest = append(rest, format)
			continue
		}
		key := r.Keyer.RenderKey(cache.Hash([]byte(remeshKey)), opts.RenderKeyOpts(format))
		if data, ok, err := r.Cache.Get(ctx, key); err == nil && ok {
			hooks.OnCacheHit(ctx, keyTypeRender)
			artifacts[format] = data
			continue
		}
		hooks.OnCacheMiss(ctx, keyTypeRender)
		rest = append(rest, format)
	}
	if len(rest) == 0 {
		return artifacts, nil
	}

	sub := opts
	sub.Formats = rest
	rendered, err := Export(ctx, m, sub)
	if err != nil {
		return nil, err
	}
	for format, data := range rendered {
		artifacts[format] = data
		if format != FormatSVG {
			continue
		}
		key := r.Keyer.RenderKey(cache.Hash([]byte(remeshKey)), opts.RenderKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, cache.TTLRender); err == nil {
			hooks.OnCacheSet(ctx, keyTypeRender, len(data))
		}
	}
	return artifacts, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

package cli

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/matzehuels/dyntopo/pkg/errors"
	"github.com/matzehuels/dyntopo/pkg/pipeline"
)

// defaultConfigFile is read from the working directory when --config is
// not given.
const defaultConfigFile = appName + ".toml"

// config is the content of a dyntopo.toml file. Zero values leave the
// pipeline defaults in place.
//
//	mode    = "subdivide+collapse"
//	detail  = 0.02
//	ratio   = 0.4
//	passes  = 3
//	formats = ["obj", "svg"]
//
//	edge_limit  = 1.5
//	view_normal = [0, 0, 1]
//
//	[brush]
//	center = [0, 0, 1]
//	radius = 0.5
//
//	[cache]
//	backend = "redis"
//	redis   = { addr = "localhost:6379" }
type config struct {
	Mode       string       `toml:"mode"`
	Detail     float64      `toml:"detail"`
	Ratio      float64      `toml:"ratio"`
	Passes     int          `toml:"passes"`
	Smooth     float64      `toml:"smooth"`
	Cleanup    bool         `toml:"cleanup"`
	Mask       string       `toml:"mask"`
	Workers    int          `toml:"workers"`
	EdgeLimit  float64      `toml:"edge_limit"`
	ViewNormal *[3]float64  `toml:"view_normal"`
	Formats    []string     `toml:"formats"`
	View       string       `toml:"view"`
	Brush      *brushConfig `toml:"brush"`
	Cache      cacheConfig  `toml:"cache"`
}

type brushConfig struct {
	Center [3]float64 `toml:"center"`
	Radius float64    `toml:"radius"`
}

type cacheConfig struct {
	Backend string      `toml:"backend"` // file (default), redis or none
	Dir     string      `toml:"dir"`
	Redis   redisConfig `toml:"redis"`
}

type redisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// loadConfig reads path, or dyntopo.toml in the working directory when
// path is empty. A missing default file yields the zero config; a missing
// explicit file is an error.
func loadConfig(path string) (config, error) {
	var cfg config
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, errors.New(errors.ErrCodeInvalidConfig, "config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	switch cfg.Cache.Backend {
	case "", backendFile, backendRedis, backendNone:
	default:
		return cfg, errors.New(errors.ErrCodeInvalidConfig, "config %s: unknown cache backend %q", path, cfg.Cache.Backend)
	}
	if cfg.Cache.Backend == backendRedis && cfg.Cache.Redis.Addr == "" {
		return cfg, errors.New(errors.ErrCodeInvalidConfig, "config %s: redis cache needs an address", path)
	}
	return cfg, nil
}

// options converts the config into pipeline options.
func (cfg config) options() pipeline.Options {
	opts := pipeline.Options{
		Mode:                cfg.Mode,
		DetailSize:          cfg.Detail,
		DetailRatio:         cfg.Ratio,
		Passes:              cfg.Passes,
		Smooth:              cfg.Smooth,
		Cleanup:             cfg.Cleanup,
		Mask:                cfg.Mask,
		Workers:             cfg.Workers,
		EdgeLimitMultiplier: cfg.EdgeLimit,
		ViewNormal:          cfg.ViewNormal,
		Formats:             cfg.Formats,
		View:                cfg.View,
	}
	if cfg.Brush != nil {
		opts.Brush = &pipeline.Brush{Center: cfg.Brush.Center, Radius: cfg.Brush.Radius}
	}
	return opts
}

// remeshFlags holds the command-line flags shared by remesh and serve.
type remeshFlags struct {
	mode       string
	detail     float64
	ratio      float64
	passes     int
	smooth     float64
	cleanup    bool
	brush      string
	mask       string
	workers    int
	edgeLimit  float64
	viewNormal string
	formats    string
	view       string
}

func (f *remeshFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "", "operations: subdivide, collapse, both, cleanup, local-subdivide, local-collapse (joined with +)")
	cmd.Flags().Float64VarP(&f.detail, "detail", "d", 0, "target edge length (default: mean edge length)")
	cmd.Flags().Float64Var(&f.ratio, "ratio", 0, "collapse length as a fraction of the detail size (default 0.4)")
	cmd.Flags().IntVarP(&f.passes, "passes", "n", 0, "maximum number of remesh passes (default 1)")
	cmd.Flags().Float64Var(&f.smooth, "smooth", 0, "tangential smoothing factor in [0, 1]")
	cmd.Flags().BoolVar(&f.cleanup, "cleanup", false, "dissolve degree 3 and 4 vertices after each pass")
	cmd.Flags().StringVar(&f.brush, "brush", "", "restrict to a sphere: x,y,z,radius")
	cmd.Flags().StringVar(&f.mask, "mask", "", "vertex layer used as edit mask")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "collection workers (default: number of CPUs)")
	cmd.Flags().Float64Var(&f.edgeLimit, "edge-limit", 0, "scale both edge length limits and the step budget (default 1)")
	cmd.Flags().StringVar(&f.viewNormal, "view-normal", "", "only edit faces facing along x,y,z")
	cmd.Flags().StringVarP(&f.formats, "format", "f", "", "output format(s): obj (default), json, dot, svg (comma-separated)")
	cmd.Flags().StringVar(&f.view, "view", "", "wireframe view for dot and svg: top (default), front, side")

	_ = cmd.RegisterFlagCompletionFunc("mode", cobra.FixedCompletions(modeChoices, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(outputFormats(), cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("view", cobra.FixedCompletions(viewChoices, cobra.ShellCompDirectiveNoFileComp))
}

// apply overrides opts with every flag set on the command line.
func (f *remeshFlags) apply(cmd *cobra.Command, opts *pipeline.Options) error {
	changed := cmd.Flags().Changed
	if changed("mode") {
		opts.Mode = f.mode
	}
	if changed("detail") {
		opts.DetailSize = f.detail
	}
	if changed("ratio") {
		opts.DetailRatio = f.ratio
	}
	if changed("passes") {
		opts.Passes = f.passes
	}
	if changed("smooth") {
		opts.Smooth = f.smooth
	}
	if changed("cleanup") {
		opts.Cleanup = f.cleanup
	}
	if changed("mask") {
		opts.Mask = f.mask
	}
	if changed("workers") {
		opts.Workers = f.workers
	}
	if changed("edge-limit") {
		opts.EdgeLimitMultiplier = f.edgeLimit
	}
	if changed("view-normal") {
		n, err := parseViewNormal(f.viewNormal)
		if err != nil {
			return err
		}
		opts.ViewNormal = n
	}
	if changed("format") {
		opts.Formats = parseFormats(f.formats)
	}
	if changed("view") {
		opts.View = f.view
	}
	if changed("brush") {
		b, err := parseBrush(f.brush)
		if err != nil {
			return err
		}
		opts.Brush = b
	}
	return nil
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatOBJ}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(strings.ToLower(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// parseBrush parses "x,y,z,radius". The empty string clears the brush.
func parseBrush(s string) (*pipeline.Brush, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "brush must be x,y,z,radius, got %q", s)
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "brush component %d", i+1)
		}
		vals[i] = v
	}
	return &pipeline.Brush{Center: [3]float64{vals[0], vals[1], vals[2]}, Radius: vals[3]}, nil
}

// parseViewNormal parses "x,y,z". The empty string clears the normal.
func parseViewNormal(s string) (*[3]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "view normal must be x,y,z, got %q", s)
	}
	var n [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "view normal component %d", i+1)
		}
		n[i] = v
	}
	return &n, nil
}

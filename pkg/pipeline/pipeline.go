// Package pipeline provides the load → remesh → export pipeline of dyntopo.
//
// This package implements the complete pipeline that is used by the CLI and
// by the HTTP API. By centralizing this logic, both entry points share
// defaults, validation and result caching.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: Decode an OBJ or JSON mesh from a file or from request bytes
//  2. Remesh: Build the spatial index and run one or more remesh passes
//  3. Export: Encode the result as OBJ, JSON, a DOT wireframe or SVG
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Input:      "bunny.obj",
//	    Mode:       "both",
//	    DetailSize: 0.02,
//	    Formats:    []string{"obj", "svg"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	obj := result.Artifacts["obj"]
//
// Remesh results are cached by the hash of the input bytes and the remesh
// options, so re-exporting a result in another format skips the remesh.
package pipeline

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/dyntopo/pkg/brush"
	"github.com/matzehuels/dyntopo/pkg/cache"
	"github.com/matzehuels/dyntopo/pkg/dyntopo"
	"github.com/matzehuels/dyntopo/pkg/errors"
	"github.com/matzehuels/dyntopo/pkg/mesh"
	"github.com/matzehuels/dyntopo/pkg/render/wire"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultMode runs subdivision and collapsing together.
	DefaultMode = "both"

	// DefaultDetailRatio is the ratio of the collapse length to the split
	// length.
	DefaultDetailRatio = dyntopo.DefaultDetailRatio

	// DefaultPasses is the number of remesh passes per run. A run stops
	// early once a pass changes nothing.
	DefaultPasses = 1

	// DefaultLeafLimit is the face count per spatial index leaf.
	DefaultLeafLimit = 1000
)

// Format constants for input and output formats.
const (
	FormatOBJ  = "obj"
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatOBJ:  true,
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
}

// ValidInputFormats is the set of supported input formats.
var ValidInputFormats = map[string]bool{
	FormatOBJ:  true,
	FormatJSON: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Brush restricts a run to a sphere.
type Brush struct {
	Center [3]float64 `json:"center"`
	Radius float64    `json:"radius"`
}

// Sphere returns the brush as a range tester.
func (b Brush) Sphere() brush.Sphere {
	return brush.Sphere{
		Center: r3.Vec{X: b.Center[0], Y: b.Center[1], Z: b.Center[2]},
		Radius: b.Radius,
	}
}

func (b *Brush) String() string {
	if b == nil {
		return ""
	}
	return fmt.Sprintf("sphere(%g,%g,%g;%g)", b.Center[0], b.Center[1], b.Center[2], b.Radius)
}

// Options contains all configuration for the remesh pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Load options
	Input       string `json:"input,omitempty"`        // Mesh file path (CLI)
	Data        []byte `json:"-"`                      // Mesh file content (API)
	InputFormat string `json:"input_format,omitempty"` // obj or json; derived from Input when empty

	// Remesh options
	Mode        string  `json:"mode,omitempty"`
	DetailSize  float64 `json:"detail_size,omitempty"` // Zero keeps the mean edge length
	DetailRatio float64 `json:"detail_ratio,omitempty"`
	Passes      int     `json:"passes,omitempty"`
	Smooth      float64 `json:"smooth,omitempty"`
	Cleanup     bool    `json:"cleanup,omitempty"`
	Brush       *Brush  `json:"brush,omitempty"`
	Mask        string  `json:"mask,omitempty"` // Vertex layer used as mask
	Workers     int     `json:"workers,omitempty"`
	LeafLimit   int     `json:"leaf_limit,omitempty"`
	Refresh     bool    `json:"refresh,omitempty"` // Ignore cached results

	// EdgeLimitMultiplier scales both edge length limits and the step
	// budget of every pass. Zero means 1.
	EdgeLimitMultiplier float64 `json:"edge_limit_multiplier,omitempty"`
	// ViewNormal restricts edits to faces facing along it.
	ViewNormal *[3]float64 `json:"view_normal,omitempty"`

	// Export options
	Formats []string `json:"formats,omitempty"`
	View    string   `json:"view,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	mode      dyntopo.Mode
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RequestID identifies the run in logs and API responses.
	RequestID string

	// Mesh is the remeshed mesh.
	Mesh *mesh.Mesh

	// InputHash is the content hash of the input bytes.
	InputHash string

	// Artifacts contains encoded outputs keyed by format.
	Artifacts map[string][]byte

	// Remesh summarizes the edits of all passes.
	Remesh RemeshInfo

	// Stats contains timing information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// RemeshInfo summarizes the remesh stage.
type RemeshInfo struct {
	Edits       dyntopo.Stats `json:"edits"`
	Passes      int           `json:"passes"`
	Checkpoints int           `json:"checkpoints"`
	Skipped     int           `json:"skipped_faces"`
	Verts       int           `json:"verts"`
	Faces       int           `json:"faces"`
}

// Stats contains pipeline execution statistics.
type Stats struct {
	LoadTime   time.Duration
	RemeshTime time.Duration
	ExportTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	RemeshHit bool // Whether the remeshed mesh came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that an output format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: obj, json, dot, svg)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := o.ValidateForRemesh(); err != nil {
		return err
	}
	if err := o.ValidateForExport(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks the input and derives its format.
func (o *Options) ValidateForLoad() error {
	if o.Input == "" && len(o.Data) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "input file or mesh data is required")
	}
	if o.Input != "" {
		if err := errors.ValidateMeshFile(o.Input); err != nil {
			return err
		}
		if o.InputFormat == "" {
			o.InputFormat = strings.TrimPrefix(strings.ToLower(filepath.Ext(o.Input)), ".")
		}
	}
	if o.InputFormat == "" {
		o.InputFormat = FormatOBJ
	}
	if !ValidInputFormats[o.InputFormat] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid input format: %q (must be one of: obj, json)", o.InputFormat)
	}
	o.setLogger()
	return nil
}

// ValidateForRemesh parses the mode and checks the detail settings.
func (o *Options) ValidateForRemesh() error {
	if o.Mode == "" {
		o.Mode = DefaultMode
	}
	mode, err := dyntopo.ParseMode(o.Mode)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "mode")
	}
	if o.Cleanup {
		mode |= dyntopo.Cleanup
	}
	o.mode = mode
	o.Mode = mode.String()

	if o.DetailRatio == 0 {
		o.DetailRatio = DefaultDetailRatio
	}
	size := o.DetailSize
	if size == 0 {
		size = 1 // checked against the mesh once loaded
	}
	if err := errors.ValidateDetail(size, o.DetailRatio); err != nil {
		return err
	}
	if o.Passes == 0 {
		o.Passes = DefaultPasses
	}
	if err := errors.ValidatePasses(o.Passes); err != nil {
		return err
	}
	if o.Smooth < 0 || o.Smooth > 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "smooth must be in [0, 1], got %g", o.Smooth)
	}
	if o.EdgeLimitMultiplier < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "edge limit multiplier must not be negative, got %g", o.EdgeLimitMultiplier)
	}
	if o.ViewNormal != nil && *o.ViewNormal == ([3]float64{}) {
		return errors.New(errors.ErrCodeInvalidConfig, "view normal must not be zero")
	}
	if o.Brush != nil && !(o.Brush.Radius > 0) {
		return errors.New(errors.ErrCodeInvalidConfig, "brush radius must be positive, got %g", o.Brush.Radius)
	}
	if o.LeafLimit == 0 {
		o.LeafLimit = DefaultLeafLimit
	}
	o.setLogger()
	return nil
}

// ValidateForExport checks the output formats and the wireframe view.
func (o *Options) ValidateForExport() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatOBJ}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	view, err := wire.ParseView(o.View)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "view")
	}
	o.View = string(view)
	o.setLogger()
	return nil
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// RemeshMode returns the parsed mode. It is valid after
// [Options.ValidateForRemesh].
func (o *Options) RemeshMode() dyntopo.Mode {
	return o.mode
}

// RemeshKeyOpts returns cache key options for the remesh stage.
func (o *Options) RemeshKeyOpts() cache.RemeshKeyOpts {
	return cache.RemeshKeyOpts{
		Mode:        o.Mode,
		DetailSize:  o.DetailSize,
		DetailRatio: o.DetailRatio,
		Passes:      o.Passes,
		Smooth:      o.Smooth,
		Cleanup:     o.Cleanup,
		Brush:       o.Brush.String(),
		Mask:        o.Mask,
		EdgeLimit:   o.EdgeLimitMultiplier,
		ViewNormal:  o.ViewNormal,
	}
}

// RenderKeyOpts returns cache key options for a rendered format.
func (o *Options) RenderKeyOpts(format string) cache.RenderKeyOpts {
	return cache.RenderKeyOpts{Format: format, View: o.View}
}

// PassOptions builds the options of one remesh pass over m.
func (o *Options) PassOptions(m *mesh.Mesh) (dyntopo.Options, error) {
	opts := dyntopo.Options{
		Mode:                o.mode,
		SmoothFactor:        o.Smooth,
		Workers:             o.Workers,
		EdgeLimitMultiplier: o.EdgeLimitMultiplier,
	}
	if o.Brush != nil {
		opts.Range = o.Brush.Sphere()
	}
	if n := o.ViewNormal; n != nil {
		opts.ViewNormal = &r3.Vec{X: n[0], Y: n[1], Z: n[2]}
	}
	if o.Mask != "" {
		fn, ok := brush.MaskLayer(m, o.Mask)
		if !ok {
			return dyntopo.Options{}, errors.New(errors.ErrCodeInvalidInput, "mesh has no vertex layer %q", o.Mask)
		}
		opts.Mask = fn
	}
	return opts, nil
}

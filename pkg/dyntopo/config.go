package dyntopo

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Mode selects the operations of a remesh pass.
type Mode uint8

const (
	// Subdivide splits edges longer than the maximum length.
	Subdivide Mode = 1 << iota
	// Collapse collapses edges shorter than the minimum length.
	Collapse
	// Cleanup dissolves low-valence vertices when the pass finishes.
	Cleanup
	// LocalSubdivide derives the maximum length from the lengths found in
	// range instead of the detail size. It implies Subdivide.
	LocalSubdivide
	// LocalCollapse derives the minimum length from the lengths found in
	// range. It implies Collapse.
	LocalCollapse
)

// Both runs subdivision and collapsing in one pass.
const Both = Subdivide | Collapse

var modeNames = []struct {
	m    Mode
	name string
}{
	{Subdivide, "subdivide"},
	{Collapse, "collapse"},
	{Cleanup, "cleanup"},
	{LocalSubdivide, "local-subdivide"},
	{LocalCollapse, "local-collapse"},
}

// String returns the "+"-joined names of the set bits.
func (m Mode) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	for _, n := range modeNames {
		if m&n.m != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "+")
}

// ParseMode parses names joined by "+" or ",", such as "subdivide+collapse".
// "both" is accepted for [Both].
func ParseMode(s string) (Mode, error) {
	var m Mode
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '+' || r == ',' }) {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "both" {
			m |= Both
			continue
		}
		found := false
		for _, n := range modeNames {
			if n.name == part {
				m |= n.m
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown remesh mode %q", part)
		}
	}
	if m == 0 {
		return 0, fmt.Errorf("empty remesh mode %q", s)
	}
	return m, nil
}

// normalize turns the local variants on their matching operation.
func (m Mode) normalize() Mode {
	if m&LocalSubdivide != 0 {
		m |= Subdivide
	}
	if m&LocalCollapse != 0 {
		m |= Collapse
	}
	return m
}

// Op is the operation a [QueueContext] is currently running.
type Op uint8

const (
	OpNone Op = iota
	OpSubdivide
	OpCollapse
)

func (o Op) String() string {
	switch o {
	case OpSubdivide:
		return "subdivide"
	case OpCollapse:
		return "collapse"
	default:
		return "none"
	}
}

const (
	// MaxIter is the base step budget of a pass.
	MaxIter = 4096
	// MaxIterSubdivide and MaxIterCollapse are the per-turn step budgets
	// when both operations alternate.
	MaxIterSubdivide = 2048
	MaxIterCollapse  = 1024

	// DefaultMaxDegree is the vertex degree above which collapses and
	// splits around the vertex are refused.
	DefaultMaxDegree = 128

	// EvenEdgeLenThreshold and EvenGenerationScale shape the neighbourhood
	// walk of long edges: a neighbour is followed when it is this much
	// longer than the edge it was reached from, and the length floor grows
	// by the scale per level.
	EvenEdgeLenThreshold = 1.2
	EvenGenerationScale  = 1.1

	// DepthStartLimit is the walk depth after which only front-facing
	// faces are expanded. MaxExpandDepth stops the walk.
	DepthStartLimit = 5
	MaxExpandDepth  = 64

	// MaxFinFaces caps the flap size fin repair deletes.
	MaxFinFaces = 64

	// HighlyNonManifold is the radial count above which an edge is reported
	// and not expanded.
	HighlyNonManifold = 5

	// SafeSmoothFactor and SubdivideOnlySmoothFactor are the tangential
	// smoothing strengths used when smoothing is enabled.
	SafeSmoothFactor          = 0.05
	SubdivideOnlySmoothFactor = 0.075

	// StaleTolerance is the relative score drift above which a popped heap
	// entry is re-scored instead of processed.
	StaleTolerance = 0.1

	// CleanupMaxLenFactor and CleanupMinMask restrict valence cleanup
	// candidates.
	CleanupMaxLenFactor = 1.2
	CleanupMinMask      = 0.5

	// uvSeamEpsilon is the squared UV distance above which two corners of a
	// vertex are considered on different sides of a seam.
	uvSeamEpsilon = 1e-6

	// minDetailRatio and maxDetailRatio bound [Remesher.SetDetailSize].
	minDetailRatio = 0.1
	maxDetailRatio = 1.0

	// DefaultDetailRatio is the ratio of [New].
	DefaultDetailRatio = 0.4
)

// Options configures one remesh pass.
type Options struct {
	// Range selects the geometry to edit. Nil edits everything.
	Range RangeTester
	// Mode selects the operations. Zero means [Both].
	Mode Mode
	// ViewNormal, when set, restricts expansion to faces facing the viewer.
	ViewNormal *r3.Vec
	// Mask biases the operations away from protected vertices. Nil treats
	// every vertex as fully editable.
	Mask MaskFunc
	// EdgeLimitMultiplier scales both length thresholds and the step
	// budget. Zero means 1.
	EdgeLimitMultiplier float64
	// SmoothFactor enables tangential smoothing of in-range vertices during
	// collection. Zero disables it.
	SmoothFactor float64
	// ReprojectAttrs re-interpolates UVs of smoothed vertices from their
	// fan. It forces single-threaded collection.
	ReprojectAttrs bool
	// Workers bounds collection concurrency. Zero means GOMAXPROCS.
	Workers int
}

func (o Options) withDefaults() Options {
	if o.Range == nil {
		o.Range = everywhere{}
	}
	if o.Mode == 0 {
		o.Mode = Both
	}
	o.Mode = o.Mode.normalize()
	if o.Mask == nil {
		o.Mask = fullMask
	}
	if o.EdgeLimitMultiplier <= 0 {
		o.EdgeLimitMultiplier = 1
	}
	return o
}

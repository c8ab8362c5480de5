package dyntopo

import (
	"context"
	"io"
	"math"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dyntopo/pkg/mesh"
	"github.com/matzehuels/dyntopo/pkg/minmax"
	"github.com/matzehuels/dyntopo/pkg/observability"
	"github.com/matzehuels/dyntopo/pkg/spatial"
)

// Remesher owns the remeshing state of one sculpting session: the mesh, its
// spatial index, the undo log and the detail settings.
//
// Remesher is not safe for concurrent use except for [Remesher.RequestStop],
// which may be called from any goroutine to end a running pass early.
type Remesher struct {
	Mesh         *mesh.Mesh
	Index        SpatialIndex
	Undo         UndoLog
	Triangulator Triangulator
	Logger       *log.Logger

	// MaxDegree is the vertex degree above which collapses are refused.
	MaxDegree int

	detailSize  float64
	detailRatio float64
	stop        atomic.Bool
	pass        uint64
	total       Stats
}

// New returns a remesher for m indexed by index. Undo logging is disabled
// until [Remesher.Undo] is set. The detail size defaults to the mean edge
// length of m.
func New(m *mesh.Mesh, index SpatialIndex) *Remesher {
	r := &Remesher{
		Mesh:         m,
		Index:        index,
		Undo:         nopUndo{},
		Triangulator: TriangulatorFunc(mesh.EarClip),
		MaxDegree:    DefaultMaxDegree,
	}
	r.SetDetailSize(meanEdgeLength(m), DefaultDetailRatio)
	return r
}

func meanEdgeLength(m *mesh.Mesh) float64 {
	var sum float64
	n := 0
	for e := range m.Edges() {
		sum += math.Sqrt(m.EdgeLenSq(e))
		n++
	}
	if n == 0 {
		return 1
	}
	return sum / float64(n)
}

// SetDetailSize sets the target edge length. Edges longer than size are
// split and edges shorter than size*ratio are collapsed. The ratio is
// clamped to [0.1, 1].
func (r *Remesher) SetDetailSize(size, ratio float64) {
	r.detailSize = size
	r.detailRatio = min(max(ratio, minDetailRatio), maxDetailRatio)
}

// DetailSize returns the target edge length and the detail ratio.
func (r *Remesher) DetailSize() (size, ratio float64) {
	return r.detailSize, r.detailRatio
}

// Limits returns the minimum and maximum edge lengths for multiplier.
func (r *Remesher) Limits(multiplier float64) (minLen, maxLen float64) {
	if multiplier <= 0 {
		multiplier = 1
	}
	maxLen = r.detailSize * multiplier
	return maxLen * r.detailRatio, maxLen
}

// RequestStop asks a running pass to end after its current step.
func (r *Remesher) RequestStop() { r.stop.Store(true) }

// ClearStop re-arms the remesher after [Remesher.RequestStop].
func (r *Remesher) ClearStop() { r.stop.Store(false) }

// Stats returns the edits of every pass so far.
func (r *Remesher) Stats() Stats { return r.total }

// BeginStroke snapshots the position and normal of every vertex as the
// stroke-start shadow.
func (r *Remesher) BeginStroke() {
	for v := range r.Mesh.Verts() {
		vp := r.Mesh.Vert(v)
		vp.OrigCo, vp.OrigNo = vp.Co, vp.No
		vp.Flags |= mesh.OrigCurrent
	}
}

func (r *Remesher) editor() *editor {
	logger := r.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	undo := r.Undo
	if undo == nil {
		undo = nopUndo{}
	}
	tri := r.Triangulator
	if tri == nil {
		tri = TriangulatorFunc(mesh.EarClip)
	}
	maxDegree := r.MaxDegree
	if maxDegree <= 0 {
		maxDegree = DefaultMaxDegree
	}
	return &editor{
		m:         r.Mesh,
		index:     r.Index,
		undo:      undo,
		tri:       tri,
		log:       logger,
		stop:      &r.stop,
		maxDegree: maxDegree,
	}
}

// NewContext opens a pass over the leaves flagged [spatial.UpdateTopology]
// and fills its queue. The caller drives it with Step and must call Finish.
func (r *Remesher) NewContext(ctx context.Context, opts Options) *QueueContext {
	opts = opts.withDefaults()
	r.pass++
	minLen, maxLen := r.Limits(opts.EdgeLimitMultiplier)

	c := &QueueContext{
		editor:  r.editor(),
		ctx:     ctx,
		opts:    opts,
		weights: NewWeightPolicy(r.Mesh, opts.Mask, opts.Mode, minLen, maxLen),
		rt:      opts.Range,
		view:    opts.ViewNormal,
		ratio:   r.detailRatio,
		pass:    r.pass,
		heap:    minmax.New[mesh.EdgeID](256),
		inHeap:  make(map[mesh.EdgeID]minmax.Handle),
	}

	switch {
	case opts.Mode&Both == Both:
		c.ops = []Op{OpSubdivide, OpCollapse}
		c.budgets = []int{MaxIterSubdivide, MaxIterCollapse}
	case opts.Mode&Subdivide != 0:
		c.ops = []Op{OpSubdivide}
	default:
		c.ops = []Op{OpCollapse}
	}
	c.maxSteps = int(float64(MaxIter)*opts.EdgeLimitMultiplier) << (len(c.ops) - 1)
	if c.budgets == nil {
		c.budgets = []int{c.maxSteps}
	}
	c.exhausted = make([]bool, len(c.ops))
	c.batchCap = MaxIterSubdivide

	c.nodes = c.dirtyLeaves()
	if opts.Mode&(LocalSubdivide|LocalCollapse) != 0 {
		c.collectLocal()
	} else {
		c.collect()
	}
	return c
}

// Remesh runs a full pass: it opens a context, steps it until done and
// finishes it. It reports whether the mesh changed.
func (r *Remesher) Remesh(ctx context.Context, opts Options) bool {
	start := time.Now()
	mode := opts.withDefaults().Mode
	hooks := observability.Remesh()
	hooks.OnRemeshStart(ctx, mode.String(), r.Mesh.NumFaces())

	c := r.NewContext(ctx, opts)
	for !c.Done() {
		c.Step()
	}
	modified := c.Finish()

	s := c.Stats()
	r.total = r.total.Add(s)
	c.log.Debug("remesh pass finished",
		"mode", mode, "modified", modified, "steps", s.Steps,
		"splits", s.Splits, "collapses", s.Collapses, "elapsed", time.Since(start))
	hooks.OnRemeshComplete(ctx, observability.RemeshReport{
		Mode:         mode.String(),
		Modified:     modified,
		Steps:        s.Steps,
		Duration:     time.Since(start),
		VertsAdded:   s.VertsAdded,
		VertsRemoved: s.VertsRemoved,
		EdgesAdded:   s.EdgesAdded,
		EdgesRemoved: s.EdgesRemoved,
		FacesAdded:   s.FacesAdded,
		FacesRemoved: s.FacesRemoved,
		Splits:       s.Splits,
		Collapses:    s.Collapses,
		FinsRemoved:  s.FinsRemoved,
		Dissolved:    s.Dissolved,
	})
	return modified
}

// =============================================================================
// Single operations
// =============================================================================

// The methods below run one operation outside a pass. Each mirrors its
// edits to the undo log and spatial index and refreshes the touched leaves,
// but records no checkpoint.

// SplitEdges splits every edge of batch at its midpoint and returns the
// number split.
func (r *Remesher) SplitEdges(batch []mesh.EdgeID) int {
	ed := r.editor()
	_, n := ed.splitEdges(batch)
	r.settle(ed)
	return n
}

// CollapseOptions adjusts [Remesher.CollapseEdge] and
// [Remesher.CollapseInto].
type CollapseOptions struct {
	// Mask picks the survivor of CollapseEdge: the more editable endpoint
	// dies. Nil keeps V1.
	Mask MaskFunc
	// KeepPosition leaves the survivor in place instead of moving it to the
	// edge midpoint.
	KeepPosition bool
}

// CollapseEdge merges the endpoints of e and returns the survivor. ok is
// false when the collapse was refused.
func (r *Remesher) CollapseEdge(e mesh.EdgeID, opts CollapseOptions) (mesh.VertID, bool) {
	return r.collapse(e, mesh.NoVert, opts)
}

// CollapseInto merges the endpoints of e into keep, which must be one of
// them.
func (r *Remesher) CollapseInto(e mesh.EdgeID, keep mesh.VertID, opts CollapseOptions) (mesh.VertID, bool) {
	if !r.Mesh.EdgeAlive(e) {
		return mesh.NoVert, false
	}
	if ep := r.Mesh.Edge(e); keep != ep.V1 && keep != ep.V2 {
		return mesh.NoVert, false
	}
	return r.collapse(e, keep, opts)
}

func (r *Remesher) collapse(e mesh.EdgeID, keep mesh.VertID, opts CollapseOptions) (mesh.VertID, bool) {
	ed := r.editor()
	v, ok, _ := ed.collapseEdge(e, collapseOpts{keep: keep, keepPosition: opts.KeepPosition, mask: opts.Mask})
	r.settle(ed)
	return v, ok
}

// RepairFins deletes the smallest flap on the non-manifold edge e and
// reports whether it did.
func (r *Remesher) RepairFins(e mesh.EdgeID) bool {
	ed := r.editor()
	ok := ed.repairFins(e)
	r.settle(ed)
	return ok
}

// CheckFins repairs every non-manifold edge in the faces around v.
func (r *Remesher) CheckFins(v mesh.VertID) bool {
	ed := r.editor()
	ok := ed.checkFins(v)
	r.settle(ed)
	return ok
}

// CleanupValence dissolves degree 3 and 4 vertices among cands that lie in
// rt (nil for everywhere) and have no edge longer than 1.2 times the
// maximum length. It reports whether anything changed.
func (r *Remesher) CleanupValence(cands []mesh.VertID, rt RangeTester, mask MaskFunc) bool {
	if rt == nil {
		rt = everywhere{}
	}
	if mask == nil {
		mask = fullMask
	}
	_, maxLen := r.Limits(1)
	ed := r.editor()
	ok := ed.cleanupValence(cands, rt, mask, maxLen)
	r.settle(ed)
	return ok
}

func (r *Remesher) settle(ed *editor) {
	r.total = r.total.Add(ed.stats)
	for _, n := range r.Index.Nodes() {
		if f := r.Index.Flags(n); f&spatial.Leaf != 0 && f&nodeDirty != 0 {
			r.Index.Refresh(n)
		}
	}
}

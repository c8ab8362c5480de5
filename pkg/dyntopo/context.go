package dyntopo

import (
	"context"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/dyntopo/pkg/mesh"
	"github.com/matzehuels/dyntopo/pkg/minmax"
	"github.com/matzehuels/dyntopo/pkg/spatial"
)

// tagBatched marks edges waiting in the split batch.
const tagBatched = tagSmoothed << 1

// QueueContext is the state of one remesh pass. It is created by
// [Remesher.NewContext] with its heap already filled, advanced with
// [QueueContext.Step] until [QueueContext.Done], and closed with
// [QueueContext.Finish].
//
// A QueueContext is not safe for concurrent use, and the mesh must not be
// edited by anything else while the pass is open.
type QueueContext struct {
	*editor

	ctx     context.Context
	opts    Options
	weights *WeightPolicy
	rt      RangeTester
	view    *r3.Vec
	ratio   float64
	pass    uint64

	heap   *minmax.Heap[mesh.EdgeID]
	inHeap map[mesh.EdgeID]minmax.Handle

	lowValence []mesh.VertID
	nodes      []mesh.NodeID

	ops       []Op
	budgets   []int
	exhausted []bool
	cur       int
	count     int
	steps     int
	maxSteps  int

	batch    []mesh.EdgeID
	batchCap int

	modified bool
	finished bool
}

// Op returns the operation the next step runs.
func (c *QueueContext) Op() Op { return c.ops[c.cur] }

// Ops returns the operation cycle.
func (c *QueueContext) Ops() []Op { return slices.Clone(c.ops) }

// Len returns the number of queued edges.
func (c *QueueContext) Len() int { return c.heap.Len() }

// Pending returns the number of edges waiting in the split batch.
func (c *QueueContext) Pending() int { return len(c.batch) }

// Steps returns the number of steps taken.
func (c *QueueContext) Steps() int { return c.steps }

// MaxSteps returns the step budget of the pass.
func (c *QueueContext) MaxSteps() int { return c.maxSteps }

// Modified reports whether the pass changed the mesh so far.
func (c *QueueContext) Modified() bool { return c.modified }

// Stats returns the edits of the pass so far.
func (c *QueueContext) Stats() Stats { return c.stats }

// Limits returns the minimum and maximum edge lengths of the pass.
func (c *QueueContext) Limits() (minLen, maxLen float64) { return c.weights.Limits() }

// Done reports whether the pass has nothing left to do: it was stopped or
// cancelled, ran out of steps, or has no queued work and no pending batch.
func (c *QueueContext) Done() bool {
	if c.finished || c.stopped() || c.ctx.Err() != nil {
		return true
	}
	if c.steps >= c.maxSteps {
		return true
	}
	return len(c.batch) == 0 && (c.heap.Empty() || c.allExhausted())
}

// Step runs one unit of work of the current operation.
func (c *QueueContext) Step() {
	if c.Done() {
		return
	}
	c.steps++
	c.stats.Steps++

	if c.count >= c.budgets[c.cur] {
		c.advance()
	}
	c.count++

	var exhausted bool
	switch c.ops[c.cur] {
	case OpSubdivide:
		exhausted = c.stepSubdivide()
	case OpCollapse:
		exhausted = c.stepCollapse()
	}
	if exhausted {
		c.exhausted[c.cur] = true
		c.advance()
	}
	if c.heap.Empty() || c.allExhausted() {
		c.flush()
	}
}

// advance hands over to the next operation, flushing pending splits first.
func (c *QueueContext) advance() {
	if c.ops[c.cur] == OpSubdivide {
		c.flush()
	}
	c.cur = (c.cur + 1) % len(c.ops)
	c.count = 0
}

func (c *QueueContext) allExhausted() bool {
	for _, x := range c.exhausted {
		if !x {
			return false
		}
	}
	return true
}

func (c *QueueContext) stepSubdivide() bool {
	if c.heap.Empty() || c.heap.MaxWeight() <= c.weights.maxSq {
		return true
	}
	e, w := c.heap.PopMax()
	delete(c.inHeap, e)
	if !c.m.EdgeAlive(e) || c.m.EdgeTagged(e, tagBatched) {
		return false
	}
	op, fresh := c.weights.Test(e)
	switch {
	case op == OpNone:
		return false
	case op != OpSubdivide || math.Abs(fresh-w) > StaleTolerance*w:
		c.insert(e, fresh, op)
		return false
	}
	c.addToBatch(e)
	return false
}

// addToBatch queues e and every long edge of its faces for the next
// flush.
func (c *QueueContext) addToBatch(e mesh.EdgeID) {
	add := func(e mesh.EdgeID) {
		if !c.m.TrySetEdgeTag(e, tagBatched) {
			return
		}
		if h, ok := c.inHeap[e]; ok {
			c.heap.Remove(h)
			delete(c.inHeap, e)
		}
		c.batch = append(c.batch, e)
	}
	add(e)
	for _, f := range c.m.EdgeFaces(e) {
		for _, fe := range c.m.FaceEdges(f) {
			if fe != e && c.weights.QualifiesSplit(fe) {
				add(fe)
			}
		}
	}
	if len(c.batch) >= c.batchCap {
		c.flush()
	}
}

// flush splits the pending batch and queues the edges it created.
func (c *QueueContext) flush() {
	if len(c.batch) == 0 {
		return
	}
	batch := c.batch
	c.batch = nil
	for _, e := range batch {
		if c.m.EdgeAlive(e) {
			c.m.ClearEdgeTag(e, tagBatched)
		}
	}
	created, n := c.splitEdges(batch)
	if n > 0 {
		c.modified = true
	}
	c.feedback(created)
}

// feedback re-tests edges created by a split. Long ones expand into their
// neighbourhood, short ones are queued for collapsing.
func (c *QueueContext) feedback(created []mesh.EdgeID) {
	for _, e := range created {
		if !c.m.EdgeAlive(e) {
			continue
		}
		ep := c.m.Edge(e)
		c.addLowValence(ep.V1)
		c.addLowValence(ep.V2)
		if !c.edgeInRange(e) {
			continue
		}
		op, w := c.weights.Test(e)
		switch op {
		case OpSubdivide:
			if l := c.m.EdgeLoop(e); l != mesh.NoLoop {
				c.expandQueued(l, w, c.maxLen(), 0)
			} else {
				c.insert(e, w, op)
			}
		case OpCollapse:
			c.insert(e, w, op)
		}
	}
}

// expandQueued is the single-threaded neighbourhood walk used after the
// collection phase; it inserts straight into the heap.
func (c *QueueContext) expandQueued(l mesh.LoopID, lenSq, limit float64, depth int) {
	e := c.m.Loop(l).E
	if depth > MaxExpandDepth {
		return
	}
	if rc := c.m.RadialCount(e); rc > HighlyNonManifold {
		c.log.Warn("highly non-manifold edge", "edge", e, "faces", rc)
		return
	}
	if _, ok := c.inHeap[e]; ok || c.m.EdgeTagged(e, tagBatched) {
		return
	}
	c.insert(e, lenSq, OpSubdivide)
	if depth > DepthStartLimit && c.view != nil && r3.Dot(c.m.Face(c.m.Loop(l).F).No, *c.view) < 0 {
		return
	}

	cmp := lenSq * EvenEdgeLenThreshold
	limit *= EvenGenerationScale
	floor := max(cmp, limit*limit)
	for li := l; ; {
		lp := c.m.Loop(li)
		for _, adj := range [2]mesh.LoopID{lp.Next, lp.Prev} {
			ae := c.m.Loop(adj).E
			if _, ok := c.inHeap[ae]; ok {
				continue
			}
			if s := c.weights.SplitScore(ae); s > floor && c.weights.QualifiesSplit(ae) {
				c.expandQueued(adj, s, limit, depth+1)
			}
		}
		if li = lp.RadialNext; li == l {
			break
		}
	}
}

func (c *QueueContext) stepCollapse() bool {
	if c.heap.Empty() || c.heap.MinWeight() >= c.weights.minSq {
		return true
	}
	e, _ := c.heap.PopMin()
	delete(c.inHeap, e)
	if !c.m.EdgeAlive(e) {
		return false
	}
	if !c.weights.QualifiesCollapse(e) {
		if op, w := c.weights.Test(e); op != OpNone {
			c.insert(e, w, op)
		}
		return false
	}
	ep := c.m.Edge(e)
	if c.m.Degree(ep.V1) > c.maxDegree || c.m.Degree(ep.V2) > c.maxDegree {
		return false
	}

	keep, ok, modified := c.collapseEdge(e, collapseOpts{keep: mesh.NoVert, mask: c.opts.Mask})
	if modified {
		c.modified = true
	}
	if ok {
		c.addLowValence(keep)
		c.requeueAround(keep)
	}
	return false
}

// requeueAround re-tests the edges of v after v moved.
func (c *QueueContext) requeueAround(v mesh.VertID) {
	for _, e := range c.m.VertEdges(v) {
		if c.m.EdgeTagged(e, tagBatched) || !c.edgeInRange(e) {
			continue
		}
		if op, w := c.weights.Test(e); op != OpNone {
			c.insert(e, w, op)
		}
	}
}

// insert queues e with weight w, re-weighting it when already queued.
func (c *QueueContext) insert(e mesh.EdgeID, w float64, op Op) {
	if h, ok := c.inHeap[e]; ok {
		c.heap.Update(h, w)
	} else {
		c.inHeap[e] = c.heap.Insert(w, e)
	}
	for i, o := range c.ops {
		if o == op {
			c.exhausted[i] = false
		}
	}
}

func (c *QueueContext) addLowValence(v mesh.VertID) {
	if c.opts.Mode&Cleanup == 0 || !c.m.VertAlive(v) {
		return
	}
	if c.m.TrySetVertTag(v, tagWorklist) {
		c.lowValence = append(c.lowValence, v)
	}
}

func (c *QueueContext) edgeInRange(e mesh.EdgeID) bool {
	for _, f := range c.m.EdgeFaces(e) {
		if c.faceInRange(f) {
			return true
		}
	}
	return c.m.RadialCount(e) == 0 && c.rt.VertInRange(c.m.Vert(c.m.Edge(e).V1).Co)
}

func (c *QueueContext) faceInRange(f mesh.FaceID) bool {
	vs := c.m.FaceVerts(f)
	if len(vs) < 3 {
		return false
	}
	no := c.m.Face(f).No
	if c.view != nil && r3.Dot(no, *c.view) < 0 {
		return false
	}
	return c.rt.TriInRange(c.m.Vert(vs[0]).Co, c.m.Vert(vs[1]).Co, c.m.Vert(vs[2]).Co, no)
}

func (c *QueueContext) maxLen() float64 {
	_, maxLen := c.weights.Limits()
	return maxLen
}

// Finish closes the pass: it flushes pending splits, runs valence cleanup
// when requested, splits oversized leaves, refreshes the spatial index and
// records one undo checkpoint. It reports whether the pass changed the
// mesh. Calling Finish again has no effect.
func (c *QueueContext) Finish() bool {
	if c.finished {
		return c.modified
	}
	if !c.stopped() && c.ctx.Err() == nil {
		c.flush()
	}
	for _, e := range c.batch {
		if c.m.EdgeAlive(e) {
			c.m.ClearEdgeTag(e, tagBatched)
		}
	}
	c.batch = nil

	if c.opts.Mode&Cleanup != 0 && !c.stopped() && c.ctx.Err() == nil {
		if c.cleanupValence(c.cleanupCandidates(), c.rt, c.opts.Mask, c.maxLen()) {
			c.modified = true
		}
	}
	for _, v := range c.lowValence {
		if c.m.VertAlive(v) {
			c.m.ClearVertTag(v, tagWorklist)
		}
	}
	c.lowValence = nil

	if c.modified {
		for _, n := range c.dirtyLeaves() {
			c.index.SplitIfOversized(n)
		}
	}
	for _, n := range c.index.Nodes() {
		flags := c.index.Flags(n)
		if flags&spatial.Leaf == 0 {
			continue
		}
		if flags&spatial.UpdateTopology != 0 {
			c.index.ClearFlags(n, spatial.UpdateTopology)
		}
		if flags&nodeDirty != 0 {
			c.index.Refresh(n)
		}
	}
	c.undo.Checkpoint()
	c.heap.Clear()
	clear(c.inHeap)
	c.finished = true
	return c.modified
}

// cleanupCandidates merges the low-valence worklist with in-range vertices
// of valence below five in the dirty leaves.
func (c *QueueContext) cleanupCandidates() []mesh.VertID {
	out := slices.Clone(c.lowValence)
	for _, n := range c.dirtyLeaves() {
		for _, v := range c.index.Verts(n) {
			if !c.m.VertAlive(v) || c.m.Valence(v) >= 5 {
				continue
			}
			if !c.rt.VertInRange(c.m.Vert(v).Co) {
				continue
			}
			if c.m.TrySetVertTag(v, tagWorklist) {
				c.lowValence = append(c.lowValence, v)
				out = append(out, v)
			}
		}
	}
	return out
}

// dirtyLeaves returns the leaves flagged for a topology update that are not
// hidden.
func (c *QueueContext) dirtyLeaves() []mesh.NodeID {
	var out []mesh.NodeID
	for _, n := range c.index.Nodes() {
		flags := c.index.Flags(n)
		if flags&spatial.Leaf != 0 && flags&spatial.UpdateTopology != 0 && flags&spatial.FullyHidden == 0 {
			out = append(out, n)
		}
	}
	return out
}

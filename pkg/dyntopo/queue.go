package dyntopo

import (
	"context"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/dyntopo/pkg/mesh"
)

type candidate struct {
	e mesh.EdgeID
	w float64
}

type move struct {
	v  mesh.VertID
	co r3.Vec
}

// collected is what one collection task hands to the merge.
type collected struct {
	edges       []candidate
	nonManifold []mesh.EdgeID
	highly      []mesh.EdgeID
	moves       []move
}

// collect fills the heap from the dirty leaves. Leaves are scanned by
// concurrent tasks that only read the mesh and claim edges by tag; all
// edits happen in the sequential merge after the join.
func (c *QueueContext) collect() {
	c.prepare()

	workers := c.opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	inline := c.opts.ReprojectAttrs
	if inline {
		workers = 1
	}

	results := make([]collected, len(c.nodes))
	g, gctx := errgroup.WithContext(c.ctx)
	g.SetLimit(workers)
	for i, n := range c.nodes {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(uint64(i), c.pass))
			results[i] = c.collectNode(gctx, n, rng, inline)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		c.log.Debug("collection cancelled", "err", err)
	}
	c.merge(results)
}

// prepare runs the edits collection must not race with: triangulating
// polygons of the dirty leaves and classifying vertices for smoothing.
func (c *QueueContext) prepare() {
	for _, n := range c.nodes {
		for _, f := range c.index.Faces(n) {
			if !c.m.FaceAlive(f) || c.m.Face(f).Len == 3 {
				continue
			}
			for _, v := range c.m.FaceVerts(f) {
				c.ensureTriangulated(v)
			}
			if c.m.FaceAlive(f) && c.m.Face(f).Len > 3 {
				c.triangulateFace(f)
			}
		}
	}
	if c.opts.SmoothFactor <= 0 {
		return
	}
	for _, n := range c.nodes {
		for _, v := range c.index.Verts(n) {
			if c.m.VertAlive(v) {
				c.m.Boundary(v)
			}
		}
	}
}

func (c *QueueContext) collectNode(ctx context.Context, n mesh.NodeID, rng *rand.Rand, inline bool) collected {
	var out collected
	for _, f := range c.index.Faces(n) {
		if ctx.Err() != nil {
			break
		}
		if !c.m.FaceAlive(f) || c.m.Face(f).Len != 3 || !c.faceInRange(f) {
			continue
		}
		for _, l := range c.m.FaceLoops(f) {
			e := c.m.Loop(l).E
			if rc := c.m.RadialCount(e); rc > 2 && c.m.TrySetEdgeTag(e, tagCollected) {
				out.nonManifold = append(out.nonManifold, e)
			}
			switch op, w := c.weights.Test(e); op {
			case OpCollapse:
				if c.m.TrySetEdgeTag(e, tagQueued) {
					out.edges = append(out.edges, candidate{e, w})
				}
			case OpSubdivide:
				c.expand(&out, l, w, c.maxLen(), 0)
			}
		}
	}

	if c.opts.SmoothFactor > 0 {
		for _, v := range c.index.Verts(n) {
			if ctx.Err() != nil {
				break
			}
			if !c.m.VertAlive(v) || !c.m.TrySetVertTag(v, tagSmoothed) {
				continue
			}
			if !c.rt.VertInRange(c.m.Vert(v).Co) {
				continue
			}
			co, ok := c.smoothTarget(v, rng)
			if !ok {
				continue
			}
			if inline {
				c.applyMove(v, co)
			} else {
				out.moves = append(out.moves, move{v, co})
			}
		}
	}
	return out
}

// expand records the split candidate of loop l and walks on into
// neighbouring edges that are clearly longer, growing the length floor by
// [EvenGenerationScale] per level.
func (c *QueueContext) expand(out *collected, l mesh.LoopID, lenSq, limit float64, depth int) {
	if depth > MaxExpandDepth {
		return
	}
	e := c.m.Loop(l).E
	if c.m.RadialCount(e) > HighlyNonManifold {
		out.highly = append(out.highly, e)
		return
	}
	if !c.m.TrySetEdgeTag(e, tagQueued) {
		return
	}
	out.edges = append(out.edges, candidate{e, lenSq})
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
			if c.m.EdgeTagged(ae, tagQueued) {
				continue
			}
			if s := c.weights.SplitScore(ae); s > floor && c.weights.QualifiesSplit(ae) {
				c.expand(out, adj, s, limit, depth+1)
			}
		}
		if li = lp.RadialNext; li == l {
			break
		}
	}
}

// merge runs after the join: it clears collection tags, applies smoothing,
// repairs fins and fills the heap.
func (c *QueueContext) merge(results []collected) {
	for _, r := range results {
		for _, cand := range r.edges {
			c.m.ClearEdgeTag(cand.e, tagQueued)
		}
		for _, e := range r.nonManifold {
			c.m.ClearEdgeTag(e, tagCollected)
		}
	}
	for _, n := range c.nodes {
		for _, v := range c.index.Verts(n) {
			c.m.ClearVertTag(v, tagSmoothed)
		}
	}
	for _, r := range results {
		for _, mv := range r.moves {
			c.applyMove(mv.v, mv.co)
		}
	}

	checkpoint := false
	for _, r := range results {
		for _, e := range r.highly {
			c.log.Warn("highly non-manifold edge", "edge", e, "faces", c.m.RadialCount(e))
		}
		for _, e := range r.nonManifold {
			if !c.m.EdgeAlive(e) || c.m.RadialCount(e) <= 2 {
				continue
			}
			if !checkpoint {
				c.undo.Checkpoint()
				checkpoint = true
			}
			if c.repairFins(e) {
				c.modified = true
			}
		}
	}

	for _, r := range results {
		for _, cand := range r.edges {
			e := cand.e
			if !c.m.EdgeAlive(e) {
				continue
			}
			ep := c.m.Edge(e)
			c.m.Valence(ep.V1)
			c.m.Valence(ep.V2)
			if c.view != nil &&
				r3.Dot(c.m.Vert(ep.V1).No, *c.view) < 0 &&
				r3.Dot(c.m.Vert(ep.V2).No, *c.view) < 0 {
				continue
			}
			c.addLowValence(ep.V1)
			c.addLowValence(ep.V2)
			if op, w := c.weights.Test(e); op != OpNone {
				c.insert(e, w, op)
			}
		}
	}
}

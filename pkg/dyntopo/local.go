package dyntopo

import (
	"math"

	"github.com/matzehuels/dyntopo/pkg/mesh"
)

// localRelaxPasses is the number of neighbour-averaging passes over the
// sampled edge lengths.
const localRelaxPasses = 3

// collectLocal derives the thresholds from the edges in range instead of
// the detail size and queues every edge that crosses them.
func (c *QueueContext) collectLocal() {
	c.prepare()

	var edges []mesh.EdgeID
	for _, n := range c.nodes {
		for _, f := range c.index.Faces(n) {
			if !c.m.FaceAlive(f) || c.m.Face(f).Len != 3 || !c.faceInRange(f) {
				continue
			}
			for _, e := range c.m.FaceEdges(f) {
				if c.m.TrySetEdgeTag(e, tagCollected) {
					edges = append(edges, e)
				}
			}
		}
	}
	for _, e := range edges {
		c.m.ClearEdgeTag(e, tagCollected)
	}
	if len(edges) == 0 {
		return
	}

	if limit, ok := c.localLimit(edges); ok {
		minLen, maxLen := c.weights.Limits()
		if c.opts.Mode&LocalSubdivide != 0 {
			maxLen = limit
		}
		if c.opts.Mode&LocalCollapse != 0 {
			minLen = limit * c.ratio
		}
		minLen = min(minLen, maxLen)
		c.weights = NewWeightPolicy(c.m, c.opts.Mask, c.opts.Mode, minLen, maxLen)
		c.log.Debug("local edge limits", "min", minLen, "max", maxLen)
	}

	for _, e := range edges {
		if !c.m.EdgeAlive(e) {
			continue
		}
		if op, w := c.weights.Test(e); op != OpNone {
			c.insert(e, w, op)
		}
	}
}

// localLimit relaxes the sampled lengths towards their neighbours and
// returns their mean over edges whose endpoints are not corners and share a
// boundary classification.
func (c *QueueContext) localLimit(edges []mesh.EdgeID) (float64, bool) {
	index := make(map[mesh.EdgeID]int, len(edges))
	lens := make([]float64, len(edges))
	for i, e := range edges {
		index[e] = i
		lens[i] = math.Sqrt(c.m.EdgeLenSq(e))
	}

	next := make([]float64, len(edges))
	for range localRelaxPasses {
		for i, e := range edges {
			ep := c.m.Edge(e)
			var sum float64
			n := 0
			for _, v := range [2]mesh.VertID{ep.V1, ep.V2} {
				for _, ne := range c.m.VertEdges(v) {
					if j, ok := index[ne]; ok && ne != e {
						sum += lens[j]
						n++
					}
				}
			}
			next[i] = lens[i]
			if n > 0 {
				next[i] += (sum/float64(n) - lens[i]) * 0.5
			}
		}
		lens, next = next, lens
	}

	var sum float64
	n := 0
	for i, e := range edges {
		ep := c.m.Edge(e)
		b1, b2 := c.m.Boundary(ep.V1), c.m.Boundary(ep.V2)
		if (b1|b2)&mesh.Corner != 0 || b1 != b2 {
			continue
		}
		sum += lens[i]
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

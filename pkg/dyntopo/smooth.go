package dyntopo

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/dyntopo/pkg/mesh"
)

const (
	// smoothSkip is the chance a vertex is left alone in one pass.
	smoothSkip = 0.25
	// smoothBoundaryScale damps smoothing along open boundaries and seams.
	smoothBoundaryScale = 0.1
	// smoothNormalKeep is the share of the normal component removed from
	// the smoothing offset.
	smoothNormalKeep = 0.95
)

// DefaultSmoothFactor returns the smoothing strength used for mode when
// smoothing is enabled.
func DefaultSmoothFactor(mode Mode) float64 {
	if mode.normalize()&Both == Subdivide {
		return SubdivideOnlySmoothFactor
	}
	return SafeSmoothFactor
}

// smoothTarget returns where tangential smoothing would move v. It only
// reads the mesh and may run concurrently with itself.
func (c *QueueContext) smoothTarget(v mesh.VertID, rng *rand.Rand) (r3.Vec, bool) {
	vp := c.m.Vert(v)
	if vp.Flags&(mesh.Corner|mesh.BoundarySharp) != 0 {
		return r3.Vec{}, false
	}
	if rng.Float64() < smoothSkip {
		return r3.Vec{}, false
	}
	boundary := vp.Flags & mesh.BoundaryMask

	var sum r3.Vec
	n := 0
	for _, e := range c.m.VertEdges(v) {
		if boundary != 0 && c.m.EdgeBoundary(e)&boundary == 0 {
			continue
		}
		sum = r3.Add(sum, c.m.Vert(c.m.OtherVert(e, v)).Co)
		n++
	}
	if n == 0 {
		return r3.Vec{}, false
	}
	delta := r3.Sub(r3.Scale(1/float64(n), sum), vp.Co)
	if no := vp.No; r3.Norm2(no) > 0 {
		delta = r3.Sub(delta, r3.Scale(r3.Dot(delta, no)*smoothNormalKeep, no))
	}

	f := c.opts.SmoothFactor * clamp01(c.opts.Mask(v))
	if boundary != 0 {
		f *= smoothBoundaryScale
	}
	if f == 0 {
		return r3.Vec{}, false
	}
	return r3.Add(vp.Co, r3.Scale(f, delta)), true
}

// applyMove places v at co, reprojecting its UVs when requested.
func (c *QueueContext) applyMove(v mesh.VertID, co r3.Vec) {
	if !c.m.VertAlive(v) {
		return
	}
	vp := c.m.Vert(v)
	if c.opts.ReprojectAttrs {
		c.reprojectUV(v, r3.Sub(co, vp.Co))
	}
	vp.Co = co
	if n := vp.Node; n != mesh.NoNode {
		c.index.MarkDirty(n, nodeDirty)
	}
}

// reprojectUV shifts the UVs of v's corners by the UV-space image of the
// offset d within each corner's triangle.
func (c *QueueContext) reprojectUV(v mesh.VertID, d r3.Vec) {
	layers := c.m.LoopLayers.OfKind(mesh.LayerUV)
	if len(layers) == 0 {
		return
	}
	co := c.m.Vert(v).Co
	for _, l := range c.m.VertLoops(v) {
		lp := c.m.Loop(l)
		next, prev := c.m.Loop(lp.Next), c.m.Loop(lp.Prev)
		a := r3.Sub(c.m.Vert(next.V).Co, co)
		b := r3.Sub(c.m.Vert(prev.V).Co, co)
		s, t, ok := planeCoords(a, b, d)
		if !ok {
			continue
		}
		for _, layer := range layers {
			uv := layer.Of(lp.Data)
			ua, ub := layer.Of(next.Data), layer.Of(prev.Data)
			for i := range uv {
				uv[i] += s*(ua[i]-uv[i]) + t*(ub[i]-uv[i])
			}
		}
	}
}

// planeCoords solves d = s*a + t*b in the least-squares sense.
func planeCoords(a, b, d r3.Vec) (s, t float64, ok bool) {
	aa, ab, bb := r3.Dot(a, a), r3.Dot(a, b), r3.Dot(b, b)
	det := aa*bb - ab*ab
	if det <= 1e-20 {
		return 0, 0, false
	}
	da, db := r3.Dot(d, a), r3.Dot(d, b)
	return (da*bb - db*ab) / det, (db*aa - da*ab) / det, true
}

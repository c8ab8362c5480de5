package dyntopo

import (
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/dyntopo/pkg/mesh"
)

// collapseOpts adjusts a single collapse.
type collapseOpts struct {
	// keep forces the survivor. NoVert picks the less editable endpoint.
	keep mesh.VertID
	// keepPosition leaves the survivor where it is instead of moving it to
	// the edge midpoint.
	keepPosition bool
	mask         MaskFunc
}

// collapseEdge merges the endpoints of e and returns the survivor. ok is
// false when the collapse was refused, or when the survivor itself ended up
// without edges and was removed; modified reports whether anything changed.
func (ed *editor) collapseEdge(e mesh.EdgeID, opts collapseOpts) (survivor mesh.VertID, ok, modified bool) {
	if ed.stopped() || !ed.m.EdgeAlive(e) {
		return mesh.NoVert, false, false
	}
	ep := ed.m.Edge(e)
	v1, v2 := ep.V1, ep.V2
	ed.ensureTriangulated(v1)
	ed.ensureTriangulated(v2)
	if !ed.m.EdgeAlive(e) {
		return mesh.NoVert, false, false
	}
	if ed.m.Degree(v1) > ed.maxDegree || ed.m.Degree(v2) > ed.maxDegree {
		return mesh.NoVert, false, false
	}
	if !ed.boundaryAllows(e, v1, v2) || !ed.linkAllows(e, v1, v2) {
		return mesh.NoVert, false, false
	}

	keep, del := v1, v2
	switch {
	case opts.keep == v2:
		keep, del = v2, v1
	case opts.keep == mesh.NoVert && opts.mask != nil && opts.mask(v1) > opts.mask(v2):
		keep, del = v2, v1
	}

	delCo, delNo := ed.m.Vert(del).Co, ed.m.Vert(del).No
	ed.mergeAttrs(e, keep, del)
	ed.relink(e, keep, del)

	if !ed.m.VertAlive(keep) {
		ed.stats.Collapses++
		return keep, false, true
	}
	kp := ed.m.Vert(keep)
	if !opts.keepPosition && ed.m.Boundary(keep)&(mesh.BoundaryMask|mesh.Corner) == 0 {
		kp.Co = r3.Scale(0.5, r3.Add(kp.Co, delCo))
	}
	kp.No = mesh.SafeUnit(r3.Add(kp.No, delNo))
	ed.touch(keep)
	for _, e := range ed.m.VertEdges(keep) {
		ed.touch(ed.m.OtherVert(e, keep))
	}

	for range 3 {
		if !ed.checkFins(keep) {
			break
		}
	}
	ed.stats.Collapses++
	return keep, ed.m.VertAlive(keep), true
}

// boundaryAllows reports whether the endpoints of e may be merged: neither
// is a corner, both have the same boundary kinds, and a shared kind runs
// along e itself.
func (ed *editor) boundaryAllows(e mesh.EdgeID, v1, v2 mesh.VertID) bool {
	b1, b2 := ed.m.Boundary(v1), ed.m.Boundary(v2)
	if (b1|b2)&mesh.Corner != 0 {
		return false
	}
	if b1 != b2 {
		return false
	}
	if b1 != 0 && ed.m.EdgeBoundary(e)&b1 != b1 {
		return false
	}
	return true
}

// linkAllows reports whether merging v1 and v2 keeps the surface manifold.
// Every disk edge of both endpoints must be manifold, the only neighbours
// the endpoints share are the opposite corners of the faces of e, and those
// corners must not already close a flap with both endpoints.
func (ed *editor) linkAllows(e mesh.EdgeID, v1, v2 mesh.VertID) bool {
	for _, v := range [2]mesh.VertID{v1, v2} {
		for _, de := range ed.m.VertEdges(v) {
			if ed.m.RadialCount(de) > 2 {
				return false
			}
		}
	}

	var opposite []mesh.VertID
	for _, f := range ed.m.EdgeFaces(e) {
		for _, v := range ed.m.FaceVerts(f) {
			if v != v1 && v != v2 {
				opposite = append(opposite, v)
			}
		}
	}
	around := make(map[mesh.VertID]bool)
	for _, de := range ed.m.VertEdges(v1) {
		around[ed.m.OtherVert(de, v1)] = true
	}
	for _, de := range ed.m.VertEdges(v2) {
		o := ed.m.OtherVert(de, v2)
		if o != v1 && around[o] && !slices.Contains(opposite, o) {
			return false
		}
	}

	if len(opposite) == 2 {
		a, b := opposite[0], opposite[1]
		if ed.m.FindFace(v1, a, b) != mesh.NoFace && ed.m.FindFace(v2, a, b) != mesh.NoFace {
			return false
		}
	}
	return true
}

// mergeAttrs blends vertex and corner attributes of del into keep.
func (ed *editor) mergeAttrs(e mesh.EdgeID, keep, del mesh.VertID) {
	kp, dp := ed.m.Vert(keep), ed.m.Vert(del)
	if len(kp.Data) > 0 {
		mesh.Lerp(kp.Data, kp.Data, dp.Data, 0.5)
	}

	keepLoops, delLoops := ed.m.VertLoops(keep), ed.m.VertLoops(del)
	if len(keepLoops) == 0 || len(delLoops) == 0 {
		return
	}
	for _, layer := range ed.m.LoopLayers.Layers {
		if layer.Kind == mesh.LayerUV {
			ed.mergeUV(layer, e, keep, del, keepLoops, delLoops)
			continue
		}
		avg := make([]float64, layer.Width)
		mesh.Lerp(avg, ed.meanLoops(layer, keepLoops), ed.meanLoops(layer, delLoops), 0.5)
		for _, l := range slices.Concat(keepLoops, delLoops) {
			copy(layer.Of(ed.m.Loop(l).Data), avg)
		}
	}
}

func (ed *editor) meanLoops(layer mesh.Layer, loops []mesh.LoopID) []float64 {
	srcs := make([][]float64, len(loops))
	w := make([]float64, len(loops))
	for i, l := range loops {
		srcs[i] = layer.Of(ed.m.Loop(l).Data)
		w[i] = 1 / float64(len(loops))
	}
	out := make([]float64, layer.Width)
	mesh.Mix(out, srcs, w)
	return out
}

// mergeUV averages the UVs of both endpoints unless either sits on a UV
// seam. At a seam the survivor's corners are left alone and the corners
// that move over from del take the survivor-side UV of the collapsed face
// whose del-side UV they match.
func (ed *editor) mergeUV(layer mesh.Layer, e mesh.EdgeID, keep, del mesh.VertID, keepLoops, delLoops []mesh.LoopID) {
	uv := func(l mesh.LoopID) []float64 { return layer.Of(ed.m.Loop(l).Data) }

	if !ed.uvSeam(layer, keepLoops) && !ed.uvSeam(layer, delLoops) {
		mid := make([]float64, layer.Width)
		mesh.Lerp(mid, uv(keepLoops[0]), uv(delLoops[0]), 0.5)
		for _, l := range slices.Concat(keepLoops, delLoops) {
			copy(uv(l), mid)
		}
		return
	}

	type pair struct{ from, to []float64 }
	var pairs []pair
	for _, f := range ed.m.EdgeFaces(e) {
		lk, ld := ed.m.LoopAt(f, keep), ed.m.LoopAt(f, del)
		if lk == mesh.NoLoop || ld == mesh.NoLoop {
			continue
		}
		pairs = append(pairs, pair{
			from: append([]float64(nil), uv(ld)...),
			to:   append([]float64(nil), uv(lk)...),
		})
	}
	for _, l := range delLoops {
		for _, p := range pairs {
			if uvDistSq(uv(l), p.from) <= uvSeamEpsilon {
				copy(uv(l), p.to)
				break
			}
		}
	}
}

// uvSeam reports whether two corners of the same vertex disagree on UV.
func (ed *editor) uvSeam(layer mesh.Layer, loops []mesh.LoopID) bool {
	first := layer.Of(ed.m.Loop(loops[0]).Data)
	for _, l := range loops[1:] {
		if uvDistSq(first, layer.Of(ed.m.Loop(l).Data)) > uvSeamEpsilon {
			return true
		}
	}
	return false
}

func uvDistSq(a, b []float64) float64 {
	var d float64
	for i := range a {
		x := a[i] - b[i]
		d += x * x
	}
	return d
}

// relink moves the faces of del that do not use e onto keep, deletes the
// faces on e, e itself and del, and prunes edges and vertices left without
// faces. A moved face that already exists on keep is a flap: both copies
// are deleted.
func (ed *editor) relink(e mesh.EdgeID, keep, del mesh.VertID) {
	type rebuild struct {
		verts []mesh.VertID
		data  [][]float64
		node  mesh.NodeID
	}
	edgeFaces := ed.m.EdgeFaces(e)
	var doomed []mesh.FaceID
	var rebuilds []rebuild
	var touched []mesh.EdgeID
	var neighbours []mesh.VertID
	edgeFlags := map[mesh.VertID]mesh.EdgeFlag{}

	for _, de := range ed.m.VertEdges(del) {
		if de != e {
			edgeFlags[ed.m.OtherVert(de, del)] |= ed.m.Edge(de).Flags
		}
	}

	doom := func(f mesh.FaceID) {
		if slices.Contains(doomed, f) {
			return
		}
		doomed = append(doomed, f)
		for _, l := range ed.m.FaceLoops(f) {
			lp := ed.m.Loop(l)
			touched = append(touched, lp.E)
			if lp.V != del && !slices.Contains(neighbours, lp.V) {
				neighbours = append(neighbours, lp.V)
			}
		}
	}
	for _, f := range edgeFaces {
		doom(f)
	}

	for _, l := range ed.m.VertLoops(del) {
		f := ed.m.Loop(l).F
		if slices.Contains(edgeFaces, f) {
			continue
		}
		vs := make([]mesh.VertID, 0, ed.m.Face(f).Len)
		data := make([][]float64, 0, ed.m.Face(f).Len)
		for _, fl := range ed.m.FaceLoops(f) {
			v := ed.m.Loop(fl).V
			if v == del {
				v = keep
			}
			vs = append(vs, v)
			data = append(data, ed.snapshot(fl))
		}
		if countOf(vs, keep) > 1 {
			doom(f)
			continue
		}
		if existing := ed.m.FindFace(vs...); existing != mesh.NoFace {
			doom(existing)
			doom(f)
			continue
		}
		rebuilds = append(rebuilds, rebuild{verts: vs, data: data, node: ed.m.Face(f).Node})
		doom(f)
	}

	for _, f := range doomed {
		ed.killFace(f)
	}
	ed.killVert(del)

	for _, r := range rebuilds {
		if ed.m.FindFace(r.verts...) != mesh.NoFace {
			continue
		}
		if nf, _ := ed.newFace(r.verts, r.node, r.data); nf == mesh.NoFace {
			ed.log.Debug("collapse could not rebuild face", "verts", r.verts)
		}
	}
	for other, flags := range edgeFlags {
		if flags == 0 {
			continue
		}
		if ke := ed.m.FindEdge(keep, other); ke != mesh.NoEdge {
			ed.m.Edge(ke).Flags |= flags
		}
	}

	ed.pruneWire(touched, append(neighbours, keep))
}

func countOf(vs []mesh.VertID, v mesh.VertID) int {
	n := 0
	for _, x := range vs {
		if x == v {
			n++
		}
	}
	return n
}

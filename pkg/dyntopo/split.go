package dyntopo

import (
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/dyntopo/pkg/mesh"
)

// splitEdges splits every live edge of batch at its midpoint and
// retriangulates the faces around them through [splitPatterns]. It returns
// the edges created and the number of edges split.
func (ed *editor) splitEdges(batch []mesh.EdgeID) (created []mesh.EdgeID, n int) {
	for _, e := range batch {
		if ed.m.EdgeAlive(e) {
			ed.ensureTriangulated(ed.m.Edge(e).V1)
			ed.ensureTriangulated(ed.m.Edge(e).V2)
		}
	}

	mids := make(map[mesh.EdgeID]mesh.VertID, len(batch))
	var order []mesh.EdgeID
	var faces []mesh.FaceID
	for _, e := range batch {
		if !ed.m.EdgeAlive(e) {
			continue
		}
		if _, ok := mids[e]; ok {
			continue
		}
		mids[e] = ed.midpoint(e)
		order = append(order, e)
		for _, f := range ed.m.EdgeFaces(e) {
			if ed.m.TrySetFaceTag(f, tagVisited) {
				faces = append(faces, f)
			}
		}
	}
	for _, f := range faces {
		ed.m.ClearFaceTag(f, tagVisited)
	}

	for _, f := range faces {
		created = append(created, ed.splitFace(f, mids)...)
	}

	for _, e := range order {
		ep := ed.m.Edge(e)
		v1, v2, flags := ep.V1, ep.V2, ep.Flags
		mid := mids[e]
		for _, h := range [2][2]mesh.VertID{{v1, mid}, {mid, v2}} {
			half, made := ed.ensureEdge(h[0], h[1])
			if half == mesh.NoEdge {
				continue
			}
			ed.m.Edge(half).Flags |= flags
			if made {
				created = append(created, half)
			}
		}
		ed.killEdge(e)
		ed.m.Vert(v1).Flags |= mesh.NeedValence | mesh.NeedBoundary
		ed.m.Vert(v2).Flags |= mesh.NeedValence | mesh.NeedBoundary
		ed.stats.Splits++
	}

	live := created[:0]
	for _, e := range created {
		if ed.m.EdgeAlive(e) && !slices.Contains(live, e) {
			live = append(live, e)
		}
	}
	return live, len(order)
}

// midpoint creates the vertex that will split e, interpolating position,
// normal and vertex attributes. Its stroke-start shadow is the new position.
func (ed *editor) midpoint(e mesh.EdgeID) mesh.VertID {
	ep := ed.m.Edge(e)
	a, b := ed.m.Vert(ep.V1), ed.m.Vert(ep.V2)
	co := r3.Scale(0.5, r3.Add(a.Co, b.Co))
	no := mesh.SafeUnit(r3.Add(a.No, b.No))

	hint := mesh.NoNode
	switch {
	case ed.leaf(a.Node):
		hint = a.Node
	case ed.leaf(b.Node):
		hint = b.Node
	default:
		for _, f := range ed.m.EdgeFaces(e) {
			if n := ed.m.Face(f).Node; ed.leaf(n) {
				hint = n
				break
			}
		}
	}

	v := ed.newVert(co, no, hint)
	vp := ed.m.Vert(v)
	vp.OrigCo, vp.OrigNo = co, no
	vp.Flags |= mesh.OrigCurrent | mesh.NeedValence | mesh.NeedBoundary
	if len(vp.Data) > 0 {
		mesh.Lerp(vp.Data, a.Data, b.Data, 0.5)
	}
	return v
}

// splitFace rebuilds f with the midpoints of its split edges and returns
// the edges created.
func (ed *editor) splitFace(f mesh.FaceID, mids map[mesh.EdgeID]mesh.VertID) []mesh.EdgeID {
	if !ed.m.FaceAlive(f) {
		return nil
	}
	loops := ed.m.FaceLoops(f)
	var verts []mesh.VertID
	var data [][]float64
	mask := 0
	for _, l := range loops {
		lp := ed.m.Loop(l)
		verts = append(verts, lp.V)
		data = append(data, ed.snapshot(l))
		if mid, ok := mids[lp.E]; ok {
			d := make([]float64, len(lp.Data))
			mesh.Lerp(d, lp.Data, ed.m.Loop(lp.Next).Data, 0.5)
			mask |= 1 << len(verts)
			verts = append(verts, mid)
			data = append(data, d)
		}
	}
	if mask == 0 {
		return nil
	}

	node := ed.m.Face(f).Node
	tris, ok := [][3]int(nil), false
	if len(loops) == 3 {
		tris, ok = splitPattern(mask, len(verts))
	}
	ed.killFace(f)

	var created []mesh.EdgeID
	if !ok {
		ed.log.Warn("no split pattern for face", "face", f, "corners", len(loops), "mask", mask)
		nf, made := ed.newFace(verts, node, data)
		if nf != mesh.NoFace {
			for _, v := range verts {
				ed.m.Vert(v).Flags |= mesh.NeedTriangulate
			}
		}
		return made
	}
	for _, t := range tris {
		tv := []mesh.VertID{verts[t[0]], verts[t[1]], verts[t[2]]}
		nf, made := ed.newFace(tv, node, [][]float64{data[t[0]], data[t[1]], data[t[2]]})
		if nf == mesh.NoFace {
			ed.log.Debug("split produced an existing face", "face", f, "verts", tv)
		}
		created = append(created, made...)
	}
	return created
}

package dyntopo

import (
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/dyntopo/pkg/mesh"
)

// cleanupValence dissolves degree 3 and 4 vertices among cands and
// reports whether anything changed.
func (ed *editor) cleanupValence(cands []mesh.VertID, rt RangeTester, mask MaskFunc, maxLen float64) bool {
	limitSq := (maxLen * CleanupMaxLenFactor) * (maxLen * CleanupMaxLenFactor)
	modified := false
	for _, v := range cands {
		if ed.stopped() {
			break
		}
		if ed.dissolve(v, rt, mask, limitSq) {
			modified = true
		}
	}
	return modified
}

func (ed *editor) dissolve(v mesh.VertID, rt RangeTester, mask MaskFunc, limitSq float64) bool {
	if !ed.m.VertAlive(v) {
		return false
	}
	ed.ensureTriangulated(v)
	val := ed.m.Valence(v)
	if val != 3 && val != 4 {
		return false
	}
	if mask(v) < CleanupMinMask || ed.m.Boundary(v) != 0 {
		return false
	}
	if !rt.VertInRange(ed.m.Vert(v).Co) {
		return false
	}
	for _, e := range ed.m.VertEdges(v) {
		if ed.m.EdgeLenSq(e) > limitSq {
			return false
		}
	}

	ring, corners, ok := ed.m.VertRing(v)
	if !ok || len(ring) != val {
		return false
	}
	for i, r := range ring {
		if slices.Contains(ring[:i], r) {
			return false
		}
	}

	var tris [][3]int
	if val == 3 {
		tris = [][3]int{{0, 1, 2}}
	} else {
		tris = quadDiagonal(
			ed.m.Vert(ring[0]).Co, ed.m.Vert(ring[1]).Co,
			ed.m.Vert(ring[2]).Co, ed.m.Vert(ring[3]).Co)
	}
	for _, t := range tris {
		a, b, c := ring[t[0]], ring[t[1]], ring[t[2]]
		if ed.m.FindFace(a, b, c) != mesh.NoFace {
			return false
		}
		n := r3.Cross(r3.Sub(ed.m.Vert(b).Co, ed.m.Vert(a).Co), r3.Sub(ed.m.Vert(c).Co, ed.m.Vert(a).Co))
		if r3.Norm2(n) == 0 {
			return false
		}
	}

	data := make([][]float64, len(corners))
	for i, l := range corners {
		data[i] = ed.snapshot(l)
	}
	node := ed.m.Face(ed.m.Loop(corners[0]).F).Node

	ed.killVert(v)
	for _, t := range tris {
		vs := []mesh.VertID{ring[t[0]], ring[t[1]], ring[t[2]]}
		if nf, _ := ed.newFace(vs, node, [][]float64{data[t[0]], data[t[1]], data[t[2]]}); nf == mesh.NoFace {
			ed.log.Warn("valence cleanup lost a face", "verts", vs)
		}
	}
	for _, r := range ring {
		ed.touch(r)
	}
	ed.stats.Dissolved++
	return true
}

// quadDiagonal splits the ring quad p0..p3 along the diagonal whose two
// triangles are most coplanar.
func quadDiagonal(p0, p1, p2, p3 r3.Vec) [][3]int {
	even := r3.Dot(mesh.TriNormal(p0, p1, p2), mesh.TriNormal(p0, p2, p3))
	odd := r3.Dot(mesh.TriNormal(p1, p2, p3), mesh.TriNormal(p1, p3, p0))
	if even >= odd {
		return [][3]int{{0, 1, 2}, {0, 2, 3}}
	}
	return [][3]int{{1, 2, 3}, {1, 3, 0}}
}

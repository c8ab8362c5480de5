package dyntopo

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/dyntopo/pkg/mesh"
)

// ensureTriangulated triangulates every non-triangle face around v once
// v is flagged [mesh.NeedTriangulate].
func (ed *editor) ensureTriangulated(v mesh.VertID) {
	if !ed.m.VertAlive(v) {
		return
	}
	vp := ed.m.Vert(v)
	if vp.Flags&mesh.NeedTriangulate == 0 {
		return
	}
	vp.Flags &^= mesh.NeedTriangulate
	for _, f := range ed.m.VertFaces(v) {
		if ed.m.FaceAlive(f) && ed.m.Face(f).Len > 3 {
			ed.triangulateFace(f)
		}
	}
}

// triangulateFace replaces polygon f by triangles from the triangulator,
// keeping corner data. Degenerate or duplicate triangles are dropped.
func (ed *editor) triangulateFace(f mesh.FaceID) []mesh.FaceID {
	loops := ed.m.FaceLoops(f)
	vs := make([]mesh.VertID, len(loops))
	pts := make([]r3.Vec, len(loops))
	data := make([][]float64, len(loops))
	for i, l := range loops {
		vs[i] = ed.m.Loop(l).V
		pts[i] = ed.m.Vert(vs[i]).Co
		data[i] = ed.snapshot(l)
	}
	tris := ed.tri.Triangulate(pts)
	if len(tris) == 0 {
		ed.log.Warn("triangulator returned no triangles", "face", f, "corners", len(loops))
		return nil
	}

	node := ed.m.Face(f).Node
	ed.killFace(f)
	var out []mesh.FaceID
	for _, t := range tris {
		if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] {
			continue
		}
		tv := []mesh.VertID{vs[t[0]], vs[t[1]], vs[t[2]]}
		nf, _ := ed.newFace(tv, node, [][]float64{data[t[0]], data[t[1]], data[t[2]]})
		if nf == mesh.NoFace {
			ed.log.Debug("dropped triangle while triangulating", "face", f, "verts", tv)
			continue
		}
		out = append(out, nf)
	}
	for _, v := range vs {
		ed.m.Vert(v).Flags |= mesh.NeedValence | mesh.NeedBoundary
	}
	return out
}

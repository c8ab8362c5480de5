package mesh

import (
	"iter"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Verts iterates over live vertex handles.
func (m *Mesh) Verts() iter.Seq[VertID] {
	return func(yield func(VertID) bool) {
		for i := range m.verts.len() {
			if !m.verts.at(i).dead && !yield(VertID(i)) {
				return
			}
		}
	}
}

// Edges iterates over live edge handles.
func (m *Mesh) Edges() iter.Seq[EdgeID] {
	return func(yield func(EdgeID) bool) {
		for i := range m.edges.len() {
			if !m.edges.at(i).dead && !yield(EdgeID(i)) {
				return
			}
		}
	}
}

// Faces iterates over live face handles.
func (m *Mesh) Faces() iter.Seq[FaceID] {
	return func(yield func(FaceID) bool) {
		for i := range m.faces.len() {
			if !m.faces.at(i).dead && !yield(FaceID(i)) {
				return
			}
		}
	}
}

// VertEdges returns the disk cycle of v.
func (m *Mesh) VertEdges(v VertID) []EdgeID {
	start := m.Vert(v).e
	if start == NoEdge {
		return nil
	}
	var out []EdgeID
	for e := start; ; {
		out = append(out, e)
		e = m.Edge(e).disk(v).next
		if e == start {
			return out
		}
	}
}

// Degree returns the number of edges incident to v.
func (m *Mesh) Degree(v VertID) int {
	start := m.Vert(v).e
	if start == NoEdge {
		return 0
	}
	n := 0
	for e := start; ; {
		n++
		e = m.Edge(e).disk(v).next
		if e == start {
			return n
		}
	}
}

// VertLoops returns the corners located at v, one per incident face.
func (m *Mesh) VertLoops(v VertID) []LoopID {
	var out []LoopID
	for _, e := range m.VertEdges(v) {
		for _, l := range m.EdgeLoops(e) {
			if m.Loop(l).V == v {
				out = append(out, l)
			}
		}
	}
	return out
}

// VertFaces returns the faces incident to v.
func (m *Mesh) VertFaces(v VertID) []FaceID {
	loops := m.VertLoops(v)
	out := make([]FaceID, len(loops))
	for i, l := range loops {
		out[i] = m.Loop(l).F
	}
	return out
}

// EdgeLoops returns the radial cycle of e.
func (m *Mesh) EdgeLoops(e EdgeID) []LoopID {
	start := m.Edge(e).l
	if start == NoLoop {
		return nil
	}
	var out []LoopID
	for l := start; ; {
		out = append(out, l)
		l = m.Loop(l).RadialNext
		if l == start {
			return out
		}
	}
}

// EdgeFaces returns the faces using e.
func (m *Mesh) EdgeFaces(e EdgeID) []FaceID {
	loops := m.EdgeLoops(e)
	out := make([]FaceID, len(loops))
	for i, l := range loops {
		out[i] = m.Loop(l).F
	}
	return out
}

// EdgeLoop returns the first loop of e's radial cycle, or [NoLoop] for a
// wire edge.
func (m *Mesh) EdgeLoop(e EdgeID) LoopID { return m.Edge(e).l }

// RadialCount returns the number of faces using e.
func (m *Mesh) RadialCount(e EdgeID) int {
	start := m.Edge(e).l
	if start == NoLoop {
		return 0
	}
	n := 0
	for l := start; ; {
		n++
		l = m.Loop(l).RadialNext
		if l == start {
			return n
		}
	}
}

// FaceLoops returns the corners of f in winding order.
func (m *Mesh) FaceLoops(f FaceID) []LoopID {
	start := m.Face(f).L
	if start == NoLoop {
		return nil
	}
	out := make([]LoopID, 0, m.Face(f).Len)
	for l := start; ; {
		out = append(out, l)
		l = m.Loop(l).Next
		if l == start {
			return out
		}
	}
}

// FaceVerts returns the vertices of f in winding order.
func (m *Mesh) FaceVerts(f FaceID) []VertID {
	loops := m.FaceLoops(f)
	out := make([]VertID, len(loops))
	for i, l := range loops {
		out[i] = m.Loop(l).V
	}
	return out
}

// FaceEdges returns the edges of f in winding order.
func (m *Mesh) FaceEdges(f FaceID) []EdgeID {
	loops := m.FaceLoops(f)
	out := make([]EdgeID, len(loops))
	for i, l := range loops {
		out[i] = m.Loop(l).E
	}
	return out
}

// LoopAt returns the corner of f at v, or [NoLoop].
func (m *Mesh) LoopAt(f FaceID, v VertID) LoopID {
	for _, l := range m.FaceLoops(f) {
		if m.Loop(l).V == v {
			return l
		}
	}
	return NoLoop
}

// OtherVert returns the endpoint of e that is not v.
func (m *Mesh) OtherVert(e EdgeID, v VertID) VertID {
	ep := m.Edge(e)
	if ep.V1 == v {
		return ep.V2
	}
	return ep.V1
}

// EdgeLenSq returns the squared length of e.
func (m *Mesh) EdgeLenSq(e EdgeID) float64 {
	ep := m.Edge(e)
	return r3.Norm2(r3.Sub(m.Vert(ep.V1).Co, m.Vert(ep.V2).Co))
}

// Valence returns the cached valence of v, recounting it when flagged.
func (m *Mesh) Valence(v VertID) int {
	vp := m.Vert(v)
	if vp.Flags&NeedValence != 0 {
		vp.Valence = m.Degree(v)
		vp.Flags &^= NeedValence
	}
	return vp.Valence
}

// VertRing walks the triangle fan around an interior manifold vertex and
// returns its ring vertices in winding order, together with each fan face's
// corner at the matching ring vertex. ok is false when the fan is open,
// non-manifold, inconsistently wound, or not made of triangles.
func (m *Mesh) VertRing(v VertID) (ring []VertID, corners []LoopID, ok bool) {
	loops := m.VertLoops(v)
	if len(loops) < 3 {
		return nil, nil, false
	}
	start := loops[0]
	lv := start
	for range len(loops) {
		lp := m.Loop(lv)
		if m.Face(lp.F).Len != 3 || m.RadialCount(lp.E) != 2 {
			return nil, nil, false
		}
		ring = append(ring, m.Loop(lp.Next).V)
		corners = append(corners, lp.Next)

		prev := m.Loop(lp.Prev)
		if m.RadialCount(prev.E) != 2 {
			return nil, nil, false
		}
		lv = prev.RadialNext
		if m.Loop(lv).V != v {
			return nil, nil, false
		}
		if lv == start {
			break
		}
	}
	if lv != start || len(ring) != len(loops) {
		return nil, nil, false
	}
	return ring, corners, true
}

// =============================================================================
// Geometry
// =============================================================================

// FaceNormal computes the unit normal of f with Newell's method.
func (m *Mesh) FaceNormal(f FaceID) r3.Vec {
	var n r3.Vec
	loops := m.FaceLoops(f)
	for i, l := range loops {
		a := m.Vert(m.Loop(l).V).Co
		b := m.Vert(m.Loop(loops[(i+1)%len(loops)]).V).Co
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	return SafeUnit(n)
}

// UpdateFaceNormal recomputes and stores the normal of f.
func (m *Mesh) UpdateFaceNormal(f FaceID) {
	m.Face(f).No = m.FaceNormal(f)
}

// UpdateVertNormal sets v's normal to the average of its face normals. A
// vertex without faces keeps its normal.
func (m *Mesh) UpdateVertNormal(v VertID) {
	var n r3.Vec
	for _, f := range m.VertFaces(v) {
		n = r3.Add(n, m.Face(f).No)
	}
	if r3.Norm2(n) > 0 {
		m.Vert(v).No = r3.Unit(n)
	}
}

// UpdateNormals recomputes all face and vertex normals.
func (m *Mesh) UpdateNormals() {
	for f := range m.Faces() {
		m.UpdateFaceNormal(f)
	}
	for v := range m.Verts() {
		m.UpdateVertNormal(v)
	}
}

// FaceCenter returns the average of f's vertex positions.
func (m *Mesh) FaceCenter(f FaceID) r3.Vec {
	var c r3.Vec
	vs := m.FaceVerts(f)
	for _, v := range vs {
		c = r3.Add(c, m.Vert(v).Co)
	}
	return r3.Scale(1/float64(len(vs)), c)
}

// FaceArea returns the area of f.
func (m *Mesh) FaceArea(f FaceID) float64 {
	vs := m.FaceVerts(f)
	var s r3.Vec
	o := m.Vert(vs[0]).Co
	for i := 1; i+1 < len(vs); i++ {
		a := r3.Sub(m.Vert(vs[i]).Co, o)
		b := r3.Sub(m.Vert(vs[i+1]).Co, o)
		s = r3.Add(s, r3.Cross(a, b))
	}
	return r3.Norm(s) / 2
}

// TriNormal returns the unit normal of triangle abc.
func TriNormal(a, b, c r3.Vec) r3.Vec {
	return SafeUnit(r3.Cross(r3.Sub(b, a), r3.Sub(c, a)))
}

// SafeUnit normalizes v, returning the zero vector for zero input.
func SafeUnit(v r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n == 0 || math.IsNaN(n) {
		return r3.Vec{}
	}
	return r3.Scale(1/n, v)
}

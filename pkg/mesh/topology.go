package mesh

import (
	"fmt"
	"slices"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r3"
)

// =============================================================================
// Creation
// =============================================================================

// AddVert creates an isolated vertex at co.
func (m *Mesh) AddVert(co r3.Vec) VertID {
	i, v := m.verts.add()
	*v = Vertex{
		Co:     co,
		OrigCo: co,
		Flags:  NeedValence | NeedBoundary,
		Node:   NoNode,
		Data:   m.VertLayers.alloc(),
		e:      NoEdge,
	}
	m.nVerts++
	return VertID(i)
}

// EnsureEdge returns the edge between a and b, creating it when missing.
// created reports whether a new edge was made. It returns [NoEdge] for
// a == b or dead endpoints.
func (m *Mesh) EnsureEdge(a, b VertID) (e EdgeID, created bool) {
	if a == b || !m.VertAlive(a) || !m.VertAlive(b) {
		return NoEdge, false
	}
	if e := m.FindEdge(a, b); e != NoEdge {
		return e, false
	}
	i, ed := m.edges.add()
	*ed = Edge{
		V1: a,
		V2: b,
		l:  NoLoop,
		d1: diskLink{NoEdge, NoEdge},
		d2: diskLink{NoEdge, NoEdge},
	}
	e = EdgeID(i)
	m.diskAppend(e, a)
	m.diskAppend(e, b)
	m.nEdges++
	m.Vert(a).Flags |= NeedValence | NeedBoundary
	m.Vert(b).Flags |= NeedValence | NeedBoundary
	return e, true
}

// AddFace creates a face over vs in winding order, creating missing edges.
// Loop data is zeroed; callers copy attributes afterwards.
func (m *Mesh) AddFace(vs ...VertID) (FaceID, error) {
	if len(vs) < 3 {
		return NoFace, ErrDegenerateFace
	}
	for i, v := range vs {
		if !m.VertAlive(v) {
			return NoFace, fmt.Errorf("%w: %d", ErrVertNotFound, v)
		}
		if slices.Contains(vs[:i], v) {
			return NoFace, ErrDegenerateFace
		}
	}
	if m.FindFace(vs...) != NoFace {
		return NoFace, ErrFaceExists
	}

	fi, fp := m.faces.add()
	f := FaceID(fi)
	*fp = Face{L: NoLoop, Len: len(vs), Node: NoNode}

	first, prev := NoLoop, NoLoop
	for i, v := range vs {
		e, _ := m.EnsureEdge(v, vs[(i+1)%len(vs)])
		li, lp := m.loops.add()
		l := LoopID(li)
		*lp = Loop{V: v, E: e, F: f, Next: NoLoop, Prev: prev, Data: m.LoopLayers.alloc()}
		if prev != NoLoop {
			m.Loop(prev).Next = l
		} else {
			first = l
		}
		prev = l
		m.radialAppend(l, e)
		m.Vert(v).Flags |= NeedBoundary
	}
	m.Loop(prev).Next = first
	m.Loop(first).Prev = prev
	fp.L = first
	fp.No = m.FaceNormal(f)
	m.nFaces++
	return f, nil
}

// =============================================================================
// Destruction
// =============================================================================

// KillFace removes f. Its edges and vertices stay, possibly as wire edges.
func (m *Mesh) KillFace(f FaceID) {
	if !m.FaceAlive(f) {
		return
	}
	for _, l := range m.FaceLoops(f) {
		lp := m.Loop(l)
		m.radialRemove(l, lp.E)
		m.Vert(lp.V).Flags |= NeedBoundary | NeedValence
		lp.dead = true
	}
	fp := m.Face(f)
	fp.dead = true
	fp.L = NoLoop
	m.nFaces--
}

// KillEdge removes e together with every face using it.
func (m *Mesh) KillEdge(e EdgeID) {
	if !m.EdgeAlive(e) {
		return
	}
	for _, f := range m.EdgeFaces(e) {
		m.KillFace(f)
	}
	ep := m.Edge(e)
	m.diskRemove(e, ep.V1)
	m.diskRemove(e, ep.V2)
	m.Vert(ep.V1).Flags |= NeedValence | NeedBoundary
	m.Vert(ep.V2).Flags |= NeedValence | NeedBoundary
	ep.dead = true
	m.nEdges--
}

// KillVert removes v with all incident edges and faces.
func (m *Mesh) KillVert(v VertID) {
	if !m.VertAlive(v) {
		return
	}
	for _, e := range m.VertEdges(v) {
		m.KillEdge(e)
	}
	m.Vert(v).dead = true
	m.nVerts--
}

// =============================================================================
// Lookup
// =============================================================================

// FindEdge returns the edge between a and b, or [NoEdge].
func (m *Mesh) FindEdge(a, b VertID) EdgeID {
	if !m.VertAlive(a) || !m.VertAlive(b) {
		return NoEdge
	}
	start := m.Vert(a).e
	if start == NoEdge {
		return NoEdge
	}
	e := start
	for {
		ep := m.Edge(e)
		if (ep.V1 == a && ep.V2 == b) || (ep.V1 == b && ep.V2 == a) {
			return e
		}
		e = ep.disk(a).next
		if e == start {
			return NoEdge
		}
	}
}

// FindFace returns a live face spanning exactly the vertex set vs, in any
// order or winding, or [NoFace].
func (m *Mesh) FindFace(vs ...VertID) FaceID {
	if len(vs) < 3 {
		return NoFace
	}
	e := m.FindEdge(vs[0], vs[1])
	if e == NoEdge {
		return NoFace
	}
	for _, f := range m.EdgeFaces(e) {
		if m.Face(f).Len != len(vs) {
			continue
		}
		match := true
		for _, v := range m.FaceVerts(f) {
			if !slices.Contains(vs, v) {
				match = false
				break
			}
		}
		if match {
			return f
		}
	}
	return NoFace
}

// =============================================================================
// Tags
// =============================================================================

// TrySetEdgeTag atomically sets bit on e and reports whether this call set
// it. Safe for concurrent use.
func (m *Mesh) TrySetEdgeTag(e EdgeID, bit uint32) bool {
	return trySet(&m.Edge(e).tag, bit)
}

// EdgeTagged reports whether bit is set on e.
func (m *Mesh) EdgeTagged(e EdgeID, bit uint32) bool {
	return atomic.LoadUint32(&m.Edge(e).tag)&bit != 0
}

// ClearEdgeTag clears bit on e.
func (m *Mesh) ClearEdgeTag(e EdgeID, bit uint32) {
	atomic.AndUint32(&m.Edge(e).tag, ^bit)
}

// TrySetVertTag atomically sets bit on v and reports whether this call set it.
func (m *Mesh) TrySetVertTag(v VertID, bit uint32) bool {
	return trySet(&m.Vert(v).tag, bit)
}

// VertTagged reports whether bit is set on v.
func (m *Mesh) VertTagged(v VertID, bit uint32) bool {
	return atomic.LoadUint32(&m.Vert(v).tag)&bit != 0
}

// ClearVertTag clears bit on v.
func (m *Mesh) ClearVertTag(v VertID, bit uint32) {
	atomic.AndUint32(&m.Vert(v).tag, ^bit)
}

// TrySetFaceTag atomically sets bit on f and reports whether this call set it.
func (m *Mesh) TrySetFaceTag(f FaceID, bit uint32) bool {
	return trySet(&m.Face(f).tag, bit)
}

// FaceTagged reports whether bit is set on f.
func (m *Mesh) FaceTagged(f FaceID, bit uint32) bool {
	return atomic.LoadUint32(&m.Face(f).tag)&bit != 0
}

// ClearFaceTag clears bit on f.
func (m *Mesh) ClearFaceTag(f FaceID, bit uint32) {
	atomic.AndUint32(&m.Face(f).tag, ^bit)
}

func trySet(p *uint32, bit uint32) bool {
	for {
		old := atomic.LoadUint32(p)
		if old&bit != 0 {
			return false
		}
		if atomic.CompareAndSwapUint32(p, old, old|bit) {
			return true
		}
	}
}

// =============================================================================
// Cycle maintenance
// =============================================================================

func (e *Edge) disk(v VertID) *diskLink {
	if e.V1 == v {
		return &e.d1
	}
	return &e.d2
}

func (m *Mesh) diskAppend(e EdgeID, v VertID) {
	vp := m.Vert(v)
	dl := m.Edge(e).disk(v)
	if vp.e == NoEdge {
		vp.e = e
		dl.next, dl.prev = e, e
		return
	}
	head := m.Edge(vp.e).disk(v)
	prev := head.prev
	dl.next, dl.prev = vp.e, prev
	m.Edge(prev).disk(v).next = e
	head.prev = e
}

func (m *Mesh) diskRemove(e EdgeID, v VertID) {
	vp := m.Vert(v)
	dl := m.Edge(e).disk(v)
	if dl.next == e {
		vp.e = NoEdge
	} else {
		m.Edge(dl.prev).disk(v).next = dl.next
		m.Edge(dl.next).disk(v).prev = dl.prev
		if vp.e == e {
			vp.e = dl.next
		}
	}
	dl.next, dl.prev = NoEdge, NoEdge
}

func (m *Mesh) radialAppend(l LoopID, e EdgeID) {
	ep := m.Edge(e)
	lp := m.Loop(l)
	if ep.l == NoLoop {
		ep.l = l
		lp.RadialNext, lp.RadialPrev = l, l
		return
	}
	head := m.Loop(ep.l)
	prev := head.RadialPrev
	lp.RadialNext, lp.RadialPrev = ep.l, prev
	m.Loop(prev).RadialNext = l
	head.RadialPrev = l
}

func (m *Mesh) radialRemove(l LoopID, e EdgeID) {
	ep := m.Edge(e)
	lp := m.Loop(l)
	if lp.RadialNext == l {
		ep.l = NoLoop
	} else {
		m.Loop(lp.RadialPrev).RadialNext = lp.RadialNext
		m.Loop(lp.RadialNext).RadialPrev = lp.RadialPrev
		if ep.l == l {
			ep.l = lp.RadialNext
		}
	}
	lp.RadialNext, lp.RadialPrev = NoLoop, NoLoop
}

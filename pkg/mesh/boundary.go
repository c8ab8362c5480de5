package mesh

import "math/bits"

// Boundary returns the boundary and corner bits of v, reclassifying it
// first when [NeedBoundary] is set.
func (m *Mesh) Boundary(v VertID) VertFlag {
	vp := m.Vert(v)
	if vp.Flags&NeedBoundary != 0 {
		m.UpdateBoundary(v)
	}
	return vp.Flags & (BoundaryMask | Corner)
}

// UpdateBoundary classifies v from its incident edges.
//
// A vertex lies on the mesh boundary when one of its edges has a single
// face, and on a seam or sharp crease when one of its edges carries that
// mark. It is a corner when more than one kind applies, or when a kind does
// not pass through the vertex as a simple chain of exactly two edges.
func (m *Mesh) UpdateBoundary(v VertID) {
	var border, seam, sharp int
	for _, e := range m.VertEdges(v) {
		if m.RadialCount(e) == 1 {
			border++
		}
		flags := m.Edge(e).Flags
		if flags&EdgeSeam != 0 {
			seam++
		}
		if flags&EdgeSharp != 0 {
			sharp++
		}
	}

	var f VertFlag
	corner := false
	for _, k := range [...]struct {
		n    int
		flag VertFlag
	}{{border, BoundaryMesh}, {seam, BoundarySeam}, {sharp, BoundarySharp}} {
		if k.n == 0 {
			continue
		}
		f |= k.flag
		if k.n != 2 {
			corner = true
		}
	}
	if bits.OnesCount16(uint16(f)) > 1 {
		corner = true
	}
	if corner {
		f |= Corner
	}

	vp := m.Vert(v)
	vp.Flags = vp.Flags&^(BoundaryMask|Corner|NeedBoundary) | f
}

// EdgeBoundary returns the boundary kinds carried by e itself.
func (m *Mesh) EdgeBoundary(e EdgeID) VertFlag {
	var f VertFlag
	if m.RadialCount(e) == 1 {
		f |= BoundaryMesh
	}
	flags := m.Edge(e).Flags
	if flags&EdgeSeam != 0 {
		f |= BoundarySeam
	}
	if flags&EdgeSharp != 0 {
		f |= BoundarySharp
	}
	return f
}

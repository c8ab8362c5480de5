package mesh

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidMesh wraps every structural problem reported by [Mesh.Validate].
var ErrInvalidMesh = errors.New("invalid mesh")

// Validate checks the connectivity invariants of the whole mesh: every live
// face has distinct live vertices and consistent loops, every loop sits in
// its edge's radial cycle, and disk cycles only hold live edges of their
// vertex. It does not reject fins; see [Mesh.NonManifoldEdges].
func (m *Mesh) Validate() error {
	for f := range m.Faces() {
		if err := m.validateFace(f); err != nil {
			return err
		}
	}
	for e := range m.Edges() {
		ep := m.Edge(e)
		if !m.VertAlive(ep.V1) || !m.VertAlive(ep.V2) || ep.V1 == ep.V2 {
			return fmt.Errorf("%w: edge %d has bad endpoints %d-%d", ErrInvalidMesh, e, ep.V1, ep.V2)
		}
		for _, l := range m.EdgeLoops(e) {
			lp := m.Loop(l)
			if lp.dead || lp.E != e || !m.FaceAlive(lp.F) {
				return fmt.Errorf("%w: edge %d radial cycle holds stale loop %d", ErrInvalidMesh, e, l)
			}
		}
	}
	for v := range m.Verts() {
		for _, e := range m.VertEdges(v) {
			if !m.EdgeAlive(e) {
				return fmt.Errorf("%w: vertex %d disk holds dead edge %d", ErrInvalidMesh, v, e)
			}
			ep := m.Edge(e)
			if ep.V1 != v && ep.V2 != v {
				return fmt.Errorf("%w: vertex %d disk holds foreign edge %d", ErrInvalidMesh, v, e)
			}
		}
	}

	var nv, ne, nf int
	for range m.Verts() {
		nv++
	}
	for range m.Edges() {
		ne++
	}
	for range m.Faces() {
		nf++
	}
	if nv != m.nVerts || ne != m.nEdges || nf != m.nFaces {
		return fmt.Errorf("%w: live counts %d/%d/%d disagree with arena %d/%d/%d",
			ErrInvalidMesh, m.nVerts, m.nEdges, m.nFaces, nv, ne, nf)
	}
	return nil
}

func (m *Mesh) validateFace(f FaceID) error {
	loops := m.FaceLoops(f)
	if len(loops) != m.Face(f).Len {
		return fmt.Errorf("%w: face %d has %d loops, want %d", ErrInvalidMesh, f, len(loops), m.Face(f).Len)
	}
	if len(loops) < 3 {
		return fmt.Errorf("%w: face %d has %d corners", ErrInvalidMesh, f, len(loops))
	}
	seen := make([]VertID, 0, len(loops))
	for _, l := range loops {
		lp := m.Loop(l)
		if lp.dead || lp.F != f {
			return fmt.Errorf("%w: face %d owns stale loop %d", ErrInvalidMesh, f, l)
		}
		if !m.VertAlive(lp.V) {
			return fmt.Errorf("%w: face %d uses dead vertex %d", ErrInvalidMesh, f, lp.V)
		}
		if slices.Contains(seen, lp.V) {
			return fmt.Errorf("%w: face %d repeats vertex %d", ErrInvalidMesh, f, lp.V)
		}
		seen = append(seen, lp.V)
		if !m.EdgeAlive(lp.E) {
			return fmt.Errorf("%w: face %d uses dead edge %d", ErrInvalidMesh, f, lp.E)
		}
		ep := m.Edge(lp.E)
		next := m.Loop(lp.Next).V
		if !(ep.V1 == lp.V && ep.V2 == next) && !(ep.V2 == lp.V && ep.V1 == next) {
			return fmt.Errorf("%w: face %d loop %d edge does not connect its corners", ErrInvalidMesh, f, l)
		}
		if !slices.Contains(m.EdgeLoops(lp.E), l) {
			return fmt.Errorf("%w: loop %d missing from radial cycle of edge %d", ErrInvalidMesh, l, lp.E)
		}
	}
	return nil
}

// NonManifoldEdges returns live edges used by more than two faces.
func (m *Mesh) NonManifoldEdges() []EdgeID {
	var out []EdgeID
	for e := range m.Edges() {
		if m.RadialCount(e) > 2 {
			out = append(out, e)
		}
	}
	return out
}

// NonTriangles returns live faces that are not triangles.
func (m *Mesh) NonTriangles() []FaceID {
	var out []FaceID
	for f := range m.Faces() {
		if m.Face(f).Len != 3 {
			out = append(out, f)
		}
	}
	return out
}

package mesh

import (
	"errors"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrDegenerateFace is returned by [Mesh.AddFace] when fewer than three
	// distinct vertices are given.
	ErrDegenerateFace = errors.New("face needs at least three distinct vertices")

	// ErrFaceExists is returned by [Mesh.AddFace] when a live face already
	// spans the same vertex set.
	ErrFaceExists = errors.New("face already exists")

	// ErrVertNotFound is returned when a handle refers to a dead or unknown vertex.
	ErrVertNotFound = errors.New("vertex not found")

	// ErrEdgeNotFound is returned when a handle refers to a dead or unknown edge.
	ErrEdgeNotFound = errors.New("edge not found")
)

type (
	// VertID addresses a vertex.
	VertID int
	// EdgeID addresses an edge.
	EdgeID int
	// LoopID addresses a face corner.
	LoopID int
	// FaceID addresses a face.
	FaceID int
	// NodeID addresses a spatial index partition. The mesh stores it but
	// never interprets it.
	NodeID int
)

const (
	NoVert VertID = -1
	NoEdge EdgeID = -1
	NoLoop LoopID = -1
	NoFace FaceID = -1
	NoNode NodeID = -1
)

// VertFlag holds classification and dirty bits of a vertex.
type VertFlag uint16

const (
	// BoundaryMesh marks a vertex on an edge with a single face.
	BoundaryMesh VertFlag = 1 << iota
	// BoundarySeam marks a vertex on a seam edge.
	BoundarySeam
	// BoundarySharp marks a vertex on a sharp edge.
	BoundarySharp
	// Corner marks a vertex where boundary kinds meet or a boundary ends.
	Corner
	// NeedValence requests a recount of [Vertex.Valence].
	NeedValence
	// NeedBoundary requests reclassification by [Mesh.Boundary].
	NeedBoundary
	// NeedTriangulate marks a vertex with non-triangle faces in its fan.
	NeedTriangulate
	// OrigCurrent marks a vertex whose OrigCo/OrigNo are already valid for
	// the current stroke.
	OrigCurrent
)

// BoundaryMask covers the boundary kinds, without [Corner].
const BoundaryMask = BoundaryMesh | BoundarySeam | BoundarySharp

// EdgeFlag holds user-visible edge marks.
type EdgeFlag uint8

const (
	EdgeSeam EdgeFlag = 1 << iota
	EdgeSharp
)

// Vertex is a mesh vertex.
type Vertex struct {
	Co, No r3.Vec
	// OrigCo and OrigNo snapshot the position and normal at stroke start.
	OrigCo, OrigNo r3.Vec

	Flags   VertFlag
	Valence int
	Node    NodeID
	Data    []float64

	e    EdgeID // disk cycle head
	tag  uint32
	dead bool
}

type diskLink struct {
	next, prev EdgeID
}

// Edge connects two distinct vertices.
type Edge struct {
	V1, V2 VertID
	Flags  EdgeFlag

	l      LoopID // radial cycle head
	d1, d2 diskLink
	tag    uint32
	dead   bool
}

// Loop is one corner of a face: the vertex V and the edge E leaving it
// towards the next corner.
type Loop struct {
	V VertID
	E EdgeID
	F FaceID

	Next, Prev             LoopID
	RadialNext, RadialPrev LoopID

	Data []float64
	dead bool
}

// Face is a polygon with Len corners.
type Face struct {
	L    LoopID
	Len  int
	No   r3.Vec
	Node NodeID

	tag  uint32
	dead bool
}

// Mesh is an arena-backed boundary representation.
type Mesh struct {
	verts arena[Vertex]
	edges arena[Edge]
	loops arena[Loop]
	faces arena[Face]

	// VertLayers and LoopLayers describe Vertex.Data and Loop.Data. Use
	// [Mesh.AddVertLayer] and [Mesh.AddLoopLayer] to extend them so existing
	// elements get resized.
	VertLayers CustomData
	LoopLayers CustomData

	nVerts, nEdges, nFaces int
}

// New returns an empty mesh.
func New() *Mesh {
	return &Mesh{}
}

// NumVerts returns the number of live vertices.
func (m *Mesh) NumVerts() int { return m.nVerts }

// NumEdges returns the number of live edges.
func (m *Mesh) NumEdges() int { return m.nEdges }

// NumFaces returns the number of live faces.
func (m *Mesh) NumFaces() int { return m.nFaces }

// VertCap, EdgeCap and FaceCap return the arena sizes, live or dead. Handles
// are always below the matching cap.
func (m *Mesh) VertCap() int { return m.verts.len() }
func (m *Mesh) EdgeCap() int { return m.edges.len() }
func (m *Mesh) FaceCap() int { return m.faces.len() }

// Vert returns the vertex for v. The pointer stays valid for the lifetime
// of the mesh.
func (m *Mesh) Vert(v VertID) *Vertex { return m.verts.at(int(v)) }

// Edge returns the edge for e.
func (m *Mesh) Edge(e EdgeID) *Edge { return m.edges.at(int(e)) }

// Loop returns the loop for l.
func (m *Mesh) Loop(l LoopID) *Loop { return m.loops.at(int(l)) }

// Face returns the face for f.
func (m *Mesh) Face(f FaceID) *Face { return m.faces.at(int(f)) }

// VertAlive reports whether v names a live vertex.
func (m *Mesh) VertAlive(v VertID) bool {
	return v >= 0 && int(v) < m.verts.len() && !m.verts.at(int(v)).dead
}

// EdgeAlive reports whether e names a live edge.
func (m *Mesh) EdgeAlive(e EdgeID) bool {
	return e >= 0 && int(e) < m.edges.len() && !m.edges.at(int(e)).dead
}

// FaceAlive reports whether f names a live face.
func (m *Mesh) FaceAlive(f FaceID) bool {
	return f >= 0 && int(f) < m.faces.len() && !m.faces.at(int(f)).dead
}

// AddVertLayer appends a vertex attribute layer and returns it.
func (m *Mesh) AddVertLayer(name string, kind LayerKind) Layer {
	layer := m.VertLayers.add(name, kind)
	for i := range m.verts.len() {
		v := m.verts.at(i)
		v.Data = append(v.Data, make([]float64, layer.Width)...)
	}
	return layer
}

// AddLoopLayer appends a face-corner attribute layer and returns it.
func (m *Mesh) AddLoopLayer(name string, kind LayerKind) Layer {
	layer := m.LoopLayers.add(name, kind)
	for i := range m.loops.len() {
		l := m.loops.at(i)
		l.Data = append(l.Data, make([]float64, layer.Width)...)
	}
	return layer
}

// Clone returns a deep copy of m. Handles are preserved.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		VertLayers: m.VertLayers.clone(),
		LoopLayers: m.LoopLayers.clone(),
		nVerts:     m.nVerts,
		nEdges:     m.nEdges,
		nFaces:     m.nFaces,
	}
	c.verts = m.verts.clone(func(v *Vertex) { v.Data = cloneFloats(v.Data) })
	c.edges = m.edges.clone(nil)
	c.loops = m.loops.clone(func(l *Loop) { l.Data = cloneFloats(l.Data) })
	c.faces = m.faces.clone(nil)
	return c
}

func cloneFloats(s []float64) []float64 {
	if s == nil {
		return nil
	}
	return append([]float64(nil), s...)
}

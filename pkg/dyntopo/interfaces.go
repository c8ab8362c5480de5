package dyntopo

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/dyntopo/pkg/mesh"
	"github.com/matzehuels/dyntopo/pkg/spatial"
)

// SpatialIndex partitions the mesh into nodes for locality queries. Leaves
// own faces and vertices; the remesher keeps that membership current.
// [spatial.Tree] is the reference implementation.
type SpatialIndex interface {
	Nodes() []mesh.NodeID
	Flags(n mesh.NodeID) spatial.Flag
	MarkDirty(n mesh.NodeID, f spatial.Flag)
	ClearFlags(n mesh.NodeID, f spatial.Flag)
	Faces(n mesh.NodeID) []mesh.FaceID
	Verts(n mesh.NodeID) []mesh.VertID

	// InsertFace adds f to hint when it is a leaf, otherwise to the leaf
	// the face's position falls into, and returns the chosen node.
	InsertFace(f mesh.FaceID, hint mesh.NodeID) mesh.NodeID
	RemoveFace(f mesh.FaceID)
	InsertVert(v mesh.VertID, hint mesh.NodeID) mesh.NodeID
	RemoveVert(v mesh.VertID)

	SplitIfOversized(n mesh.NodeID)
	// Refresh brings n's triangle cache and bounds up to date.
	Refresh(n mesh.NodeID)
}

// UndoLog records structural edits. Removal callbacks fire before the
// element dies so the log can still read it.
type UndoLog interface {
	VertAdded(v mesh.VertID)
	VertRemoved(v mesh.VertID)
	EdgeAdded(e mesh.EdgeID)
	EdgeRemoved(e mesh.EdgeID)
	FaceAdded(f mesh.FaceID)
	FaceRemoved(f mesh.FaceID)
	Checkpoint()
}

// RangeTester decides which geometry lies inside the brush region.
// Implementations must be safe for concurrent use.
type RangeTester interface {
	TriInRange(a, b, c, normal r3.Vec) bool
	VertInRange(co r3.Vec) bool
}

// MaskFunc returns how editable a vertex is, from 0 (protected) to 1
// (fully editable). It must be safe for concurrent use.
type MaskFunc func(v mesh.VertID) float64

// Triangulator splits a simple polygon into triangles indexing pts.
type Triangulator interface {
	Triangulate(pts []r3.Vec) [][3]int
}

// TriangulatorFunc adapts a function to [Triangulator].
type TriangulatorFunc func(pts []r3.Vec) [][3]int

// Triangulate calls fn(pts).
func (fn TriangulatorFunc) Triangulate(pts []r3.Vec) [][3]int { return fn(pts) }

type everywhere struct{}

func (everywhere) TriInRange(_, _, _, _ r3.Vec) bool { return true }
func (everywhere) VertInRange(r3.Vec) bool           { return true }

type nopUndo struct{}

func (nopUndo) VertAdded(mesh.VertID)   {}
func (nopUndo) VertRemoved(mesh.VertID) {}
func (nopUndo) EdgeAdded(mesh.EdgeID)   {}
func (nopUndo) EdgeRemoved(mesh.EdgeID) {}
func (nopUndo) FaceAdded(mesh.FaceID)   {}
func (nopUndo) FaceRemoved(mesh.FaceID) {}
func (nopUndo) Checkpoint()             {}

func fullMask(mesh.VertID) float64 { return 1 }

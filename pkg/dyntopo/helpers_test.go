package dyntopo

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/dyntopo/pkg/mesh"
	"github.com/matzehuels/dyntopo/pkg/spatial"
	"github.com/matzehuels/dyntopo/pkg/undo"
)

// session indexes m, flags every leaf for a topology update and returns a
// remesher journaling into a fresh undo log.
func session(t *testing.T, m *mesh.Mesh, leafLimit int) (*Remesher, *spatial.Tree, *undo.Log) {
	t.Helper()
	tree := spatial.Build(m, leafLimit)
	tree.MarkAll(spatial.UpdateTopology)
	r := New(m, tree)
	log := undo.New(m)
	r.Undo = log
	return r, tree, log
}

// checkMesh verifies the invariants every operation must leave behind.
func checkMesh(t *testing.T, m *mesh.Mesh, tree *spatial.Tree) {
	t.Helper()
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if fs := m.NonTriangles(); len(fs) > 0 {
		t.Errorf("NonTriangles() = %v, want none", fs)
	}
	if es := m.NonManifoldEdges(); len(es) > 0 {
		t.Errorf("NonManifoldEdges() = %v, want none", es)
	}
	for e := range m.Edges() {
		if m.RadialCount(e) == 0 {
			t.Errorf("edge %d has no faces", e)
		}
	}
	if tree != nil {
		if err := tree.Validate(); err != nil {
			t.Fatalf("tree.Validate() error: %v", err)
		}
	}
}

func edgeLen(m *mesh.Mesh, e mesh.EdgeID) float64 {
	return math.Sqrt(m.EdgeLenSq(e))
}

func totalArea(m *mesh.Mesh) float64 {
	var a float64
	for f := range m.Faces() {
		a += m.FaceArea(f)
	}
	return a
}

func mustPolygons(t *testing.T, pts []r3.Vec, polys [][]int) *mesh.Mesh {
	t.Helper()
	m, err := mesh.FromPolygons(pts, polys)
	if err != nil {
		t.Fatalf("FromPolygons() error: %v", err)
	}
	return m
}

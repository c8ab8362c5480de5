package dyntopo

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/dyntopo/pkg/mesh"
	"github.com/matzehuels/dyntopo/pkg/undo"
)

func TestSplitEdges(t *testing.T) {
	m := mesh.Grid(2, 2, 1)
	r, tree, log := session(t, m, 4)
	e := m.FindEdge(4, 5)
	faces := m.NumFaces()

	if n := r.SplitEdges([]mesh.EdgeID{e}); n != 1 {
		t.Fatalf("SplitEdges() = %d, want 1", n)
	}
	checkMesh(t, m, tree)

	if m.EdgeAlive(e) {
		t.Error("split edge still alive")
	}
	if got := m.NumFaces(); got != faces+2 {
		t.Errorf("NumFaces() = %d, want %d", got, faces+2)
	}
	mid := mesh.VertID(m.VertCap() - 1)
	if got, want := m.Vert(mid).Co, (r3.Vec{X: 1.5, Y: 1}); got != want {
		t.Errorf("midpoint = %v, want %v", got, want)
	}
	if m.Vert(mid).Flags&mesh.OrigCurrent == 0 {
		t.Error("midpoint has no stroke-start shadow")
	}
	if s := r.Stats(); s.Splits != 1 || s.VertsAdded != 1 {
		t.Errorf("Stats() = %+v, want one split adding one vertex", s)
	}
	if got := log.Count(undo.KindVert, undo.Added); got != 1 {
		t.Errorf("undo vert additions = %d, want 1", got)
	}
}

func TestSplitAllEdgesOfTriangle(t *testing.T) {
	m := mustPolygons(t, []r3.Vec{{}, {X: 2}, {Y: 2}}, [][]int{{0, 1, 2}})
	r, tree, _ := session(t, m, 8)
	var all []mesh.EdgeID
	for e := range m.Edges() {
		all = append(all, e)
	}
	if n := r.SplitEdges(all); n != 3 {
		t.Fatalf("SplitEdges() = %d, want 3", n)
	}
	checkMesh(t, m, tree)
	if got := m.NumFaces(); got != 4 {
		t.Errorf("NumFaces() = %d, want 4", got)
	}
	if got := totalArea(m); math.Abs(got-2) > 1e-12 {
		t.Errorf("area = %v, want 2", got)
	}
}

func TestSplitInterpolatesLoopData(t *testing.T) {
	m := mesh.Grid(1, 1, 1)
	uv := m.AddLoopLayer("uv", mesh.LayerUV)
	for f := range m.Faces() {
		for _, l := range m.FaceLoops(f) {
			co := m.Vert(m.Loop(l).V).Co
			copy(uv.Of(m.Loop(l).Data), []float64{co.X, co.Y})
		}
	}
	r, tree, _ := session(t, m, 8)
	r.SplitEdges([]mesh.EdgeID{m.FindEdge(0, 1)})
	checkMesh(t, m, tree)

	for f := range m.Faces() {
		for _, l := range m.FaceLoops(f) {
			co := m.Vert(m.Loop(l).V).Co
			got := uv.Of(m.Loop(l).Data)
			if math.Abs(got[0]-co.X) > 1e-12 || math.Abs(got[1]-co.Y) > 1e-12 {
				t.Errorf("uv at %v = %v, want position", co, got)
			}
		}
	}
}

func TestSplitThenCollapseRestores(t *testing.T) {
	m := mesh.Grid(3, 3, 1)
	r, tree, _ := session(t, m, 8)
	a, b := mesh.VertID(5), mesh.VertID(6)
	verts, edges, faces := m.NumVerts(), m.NumEdges(), m.NumFaces()
	co := m.Vert(a).Co

	r.SplitEdges([]mesh.EdgeID{m.FindEdge(a, b)})
	mid := mesh.VertID(m.VertCap() - 1)
	e := m.FindEdge(a, mid)
	if e == mesh.NoEdge {
		t.Fatal("no edge to the midpoint")
	}

	keep, ok := r.CollapseInto(e, a, CollapseOptions{KeepPosition: true})
	if !ok || keep != a {
		t.Fatalf("CollapseInto() = %d, %v, want %d, true", keep, ok, a)
	}
	checkMesh(t, m, tree)

	if m.FindEdge(a, b) == mesh.NoEdge {
		t.Error("edge not restored")
	}
	if m.NumVerts() != verts || m.NumEdges() != edges || m.NumFaces() != faces {
		t.Errorf("counts = %d/%d/%d, want %d/%d/%d",
			m.NumVerts(), m.NumEdges(), m.NumFaces(), verts, edges, faces)
	}
	if got := m.Vert(a).Co; got != co {
		t.Errorf("survivor moved to %v, want %v", got, co)
	}
}

func TestCollapseEdge(t *testing.T) {
	m := mesh.Grid(3, 3, 1)
	r, tree, log := session(t, m, 8)
	e := m.FindEdge(5, 6)
	v1, v2 := m.Edge(e).V1, m.Edge(e).V2

	keep, ok := r.CollapseEdge(e, CollapseOptions{})
	if !ok {
		t.Fatal("CollapseEdge() refused")
	}
	checkMesh(t, m, tree)
	if keep != v1 {
		t.Errorf("survivor = %d, want %d", keep, v1)
	}
	if m.VertAlive(v2) {
		t.Error("removed endpoint still alive")
	}
	if got, want := m.Vert(keep).Co, (r3.Vec{X: 1.5, Y: 1}); got != want {
		t.Errorf("survivor at %v, want %v", got, want)
	}
	if got := m.NumFaces(); got != 16 {
		t.Errorf("NumFaces() = %d, want 16", got)
	}
	if got := log.Count(undo.KindVert, undo.Removed); got != 1 {
		t.Errorf("undo vert removals = %d, want 1", got)
	}
}

func TestCollapseMaskPicksSurvivor(t *testing.T) {
	m := mesh.Grid(3, 3, 1)
	r, tree, _ := session(t, m, 8)
	mask := func(v mesh.VertID) float64 {
		if v == 5 {
			return 1
		}
		return 0
	}
	keep, ok := r.CollapseEdge(m.FindEdge(5, 6), CollapseOptions{Mask: mask})
	if !ok || keep != 6 {
		t.Fatalf("CollapseEdge() = %d, %v, want 6, true", keep, ok)
	}
	checkMesh(t, m, tree)
}

func TestCollapseRefused(t *testing.T) {
	tests := []struct {
		name  string
		mesh  func(*testing.T) *mesh.Mesh
		edge  [2]mesh.VertID
		setup func(r *Remesher, m *mesh.Mesh)
	}{
		{
			name: "boundary to interior",
			mesh: func(*testing.T) *mesh.Mesh { return mesh.Grid(2, 2, 1) },
			edge: [2]mesh.VertID{1, 4},
		},
		{
			name: "interior edge between boundaries",
			mesh: func(*testing.T) *mesh.Mesh { return mesh.Grid(1, 1, 1) },
			edge: [2]mesh.VertID{0, 3},
		},
		{
			name: "corner",
			mesh: func(*testing.T) *mesh.Mesh { return mesh.Grid(2, 2, 1) },
			edge: [2]mesh.VertID{0, 1},
			setup: func(_ *Remesher, m *mesh.Mesh) {
				m.Edge(m.FindEdge(1, 4)).Flags |= mesh.EdgeSeam
				m.Vert(1).Flags |= mesh.NeedBoundary
				m.Vert(4).Flags |= mesh.NeedBoundary
			},
		},
		{
			name:  "degree",
			mesh:  func(*testing.T) *mesh.Mesh { return mesh.Grid(3, 3, 1) },
			edge:  [2]mesh.VertID{5, 6},
			setup: func(r *Remesher, _ *mesh.Mesh) { r.MaxDegree = 2 },
		},
		{
			name:  "stopped",
			mesh:  func(*testing.T) *mesh.Mesh { return mesh.Grid(3, 3, 1) },
			edge:  [2]mesh.VertID{5, 6},
			setup: func(r *Remesher, _ *mesh.Mesh) { r.RequestStop() },
		},
		{
			name: "shared neighbour outside the edge faces",
			mesh: func(t *testing.T) *mesh.Mesh { return tetrahedron(t, false) },
			edge: [2]mesh.VertID{1, 2},
		},
		{
			name: "closed tetrahedron",
			mesh: func(t *testing.T) *mesh.Mesh { return tetrahedron(t, true) },
			edge: [2]mesh.VertID{1, 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.mesh(t)
			r, tree, _ := session(t, m, 8)
			if tt.setup != nil {
				tt.setup(r, m)
			}
			faces := m.NumFaces()
			if _, ok := r.CollapseEdge(m.FindEdge(tt.edge[0], tt.edge[1]), CollapseOptions{}); ok {
				t.Fatal("CollapseEdge() = ok, want refusal")
			}
			if m.NumFaces() != faces || !m.VertAlive(tt.edge[0]) || !m.VertAlive(tt.edge[1]) {
				t.Error("refused collapse changed the mesh")
			}
			checkMesh(t, m, tree)
		})
	}
}

// tetrahedron returns the three faces around apex 0, plus the base 1-3-2
// when closed.
func tetrahedron(t *testing.T, closed bool) *mesh.Mesh {
	t.Helper()
	polys := [][]int{{0, 1, 2}, {0, 2, 3}, {0, 3, 1}}
	if closed {
		polys = append(polys, []int{1, 3, 2})
	}
	return mustPolygons(t,
		[]r3.Vec{{Z: 1}, {X: 1}, {X: -0.5, Y: 0.866}, {X: -0.5, Y: -0.866}},
		polys)
}

func TestCollapseBoundaryEdge(t *testing.T) {
	m := mesh.Grid(3, 3, 1)
	r, tree, _ := session(t, m, 8)
	keep, ok := r.CollapseEdge(m.FindEdge(1, 2), CollapseOptions{})
	if !ok {
		t.Fatal("CollapseEdge() refused a border edge")
	}
	checkMesh(t, m, tree)
	if m.Boundary(keep)&mesh.BoundaryMesh == 0 {
		t.Error("survivor left the border")
	}
}

// seamGrid returns a 3x2 grid with a uv layer. With seam set, faces right
// of x=2 are offset in u so vertex 6 carries two uv islands.
func seamGrid(seam bool) (*mesh.Mesh, mesh.Layer) {
	m := mesh.Grid(3, 2, 1)
	uv := m.AddLoopLayer("uv", mesh.LayerUV)
	for f := range m.Faces() {
		shift := 0.0
		if seam && m.FaceCenter(f).X > 2 {
			shift = 0.5
		}
		for _, l := range m.FaceLoops(f) {
			co := m.Vert(m.Loop(l).V).Co
			copy(uv.Of(m.Loop(l).Data), []float64{co.X/3 + shift, co.Y / 2})
		}
	}
	return m, uv
}

func TestCollapseUVSeam(t *testing.T) {
	m, uv := seamGrid(true)
	r, tree, _ := session(t, m, 8)
	keep := mesh.VertID(6)

	before := make(map[mesh.FaceID][2]float64)
	islands := make(map[[2]float64]bool)
	for _, l := range m.VertLoops(keep) {
		d := uv.Of(m.Loop(l).Data)
		before[m.Loop(l).F] = [2]float64{d[0], d[1]}
		islands[[2]float64{d[0], d[1]}] = true
	}
	if len(islands) != 2 {
		t.Fatalf("vertex 6 has %d uv islands, want 2", len(islands))
	}

	if _, ok := r.CollapseInto(m.FindEdge(5, 6), keep, CollapseOptions{}); !ok {
		t.Fatal("CollapseInto() refused")
	}
	checkMesh(t, m, tree)

	for _, l := range m.VertLoops(keep) {
		d := uv.Of(m.Loop(l).Data)
		got := [2]float64{d[0], d[1]}
		if want, ok := before[m.Loop(l).F]; ok && got != want {
			t.Errorf("face %d: uv at survivor = %v, want %v", m.Loop(l).F, got, want)
		}
		if !islands[got] {
			t.Errorf("face %d: uv at survivor = %v, want one of the original islands", m.Loop(l).F, got)
		}
	}
}

func TestCollapseUVAveraged(t *testing.T) {
	m, uv := seamGrid(false)
	r, tree, _ := session(t, m, 8)
	if _, ok := r.CollapseInto(m.FindEdge(5, 6), 6, CollapseOptions{}); !ok {
		t.Fatal("CollapseInto() refused")
	}
	checkMesh(t, m, tree)
	want := []float64{0.5, 0.5}
	for _, l := range m.VertLoops(6) {
		d := uv.Of(m.Loop(l).Data)
		if math.Abs(d[0]-want[0]) > 1e-12 || math.Abs(d[1]-want[1]) > 1e-12 {
			t.Errorf("uv at survivor = %v, want %v", d, want)
		}
	}
}

// flapSheet returns a 2x2 grid with a two-face flap hinged on edge 4-5.
func flapSheet(t *testing.T) *mesh.Mesh {
	t.Helper()
	m := mesh.Grid(2, 2, 1)
	p := m.AddVert(r3.Vec{X: 1.5, Y: 1, Z: 1})
	q := m.AddVert(r3.Vec{X: 1.5, Y: 1, Z: 2})
	if _, err := m.AddFace(4, 5, p); err != nil {
		t.Fatalf("AddFace() error: %v", err)
	}
	if _, err := m.AddFace(5, q, p); err != nil {
		t.Fatalf("AddFace() error: %v", err)
	}
	return m
}

func TestRepairFins(t *testing.T) {
	m := flapSheet(t)
	r, tree, _ := session(t, m, 8)
	e := m.FindEdge(4, 5)
	if got := m.RadialCount(e); got != 3 {
		t.Fatalf("RadialCount() = %d, want 3", got)
	}
	if !r.RepairFins(e) {
		t.Fatal("RepairFins() = false, want true")
	}
	checkMesh(t, m, tree)
	if got := m.RadialCount(e); got != 2 {
		t.Errorf("RadialCount() = %d, want 2", got)
	}
	if m.NumFaces() != 8 || m.NumVerts() != 9 {
		t.Errorf("counts = %d faces %d verts, want 8 and 9", m.NumFaces(), m.NumVerts())
	}
	if s := r.Stats(); s.FinsRemoved != 1 {
		t.Errorf("FinsRemoved = %d, want 1", s.FinsRemoved)
	}
	if r.RepairFins(e) {
		t.Error("RepairFins() on a manifold edge = true")
	}
}

func TestCleanupValence(t *testing.T) {
	tests := []struct {
		name  string
		pts   []r3.Vec
		polys [][]int
		area  float64
		faces int
	}{
		{
			name:  "valence 4",
			pts:   []r3.Vec{{X: -1, Y: -1}, {X: 1, Y: -1}, {X: 1, Y: 1}, {X: -1, Y: 1}, {}},
			polys: [][]int{{4, 0, 1}, {4, 1, 2}, {4, 2, 3}, {4, 3, 0}},
			area:  4,
			faces: 2,
		},
		{
			name:  "valence 3",
			pts:   []r3.Vec{{}, {X: 2}, {X: 1, Y: 2}, {X: 1, Y: 0.7}},
			polys: [][]int{{3, 0, 1}, {3, 1, 2}, {3, 2, 0}},
			area:  2,
			faces: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustPolygons(t, tt.pts, tt.polys)
			r, tree, _ := session(t, m, 8)
			center := mesh.VertID(len(tt.pts) - 1)
			if !r.CleanupValence([]mesh.VertID{center}, nil, nil) {
				t.Fatal("CleanupValence() = false, want true")
			}
			checkMesh(t, m, tree)
			if m.VertAlive(center) {
				t.Error("center still alive")
			}
			if got := m.NumFaces(); got != tt.faces {
				t.Errorf("NumFaces() = %d, want %d", got, tt.faces)
			}
			if got := totalArea(m); math.Abs(got-tt.area) > 1e-12 {
				t.Errorf("area = %v, want %v", got, tt.area)
			}
		})
	}
}

func TestCleanupValenceSkips(t *testing.T) {
	pts := []r3.Vec{{X: -1, Y: -1}, {X: 1, Y: -1}, {X: 1, Y: 1}, {X: -1, Y: 1}, {}}
	polys := [][]int{{4, 0, 1}, {4, 1, 2}, {4, 2, 3}, {4, 3, 0}}

	t.Run("masked", func(t *testing.T) {
		m := mustPolygons(t, pts, polys)
		r, _, _ := session(t, m, 8)
		if r.CleanupValence([]mesh.VertID{4}, nil, func(mesh.VertID) float64 { return 0.2 }) {
			t.Error("CleanupValence() dissolved a protected vertex")
		}
	})
	t.Run("boundary", func(t *testing.T) {
		m := mustPolygons(t, pts, polys)
		r, _, _ := session(t, m, 8)
		if r.CleanupValence([]mesh.VertID{0}, nil, nil) {
			t.Error("CleanupValence() dissolved a boundary vertex")
		}
	})
	t.Run("long edges", func(t *testing.T) {
		m := mustPolygons(t, pts, polys)
		r, _, _ := session(t, m, 8)
		r.SetDetailSize(0.5, 0.4)
		if r.CleanupValence([]mesh.VertID{4}, nil, nil) {
			t.Error("CleanupValence() dissolved a vertex with long edges")
		}
	})
}

func TestQuadDiagonal(t *testing.T) {
	flat := quadDiagonal(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{X: 1, Y: 1}, r3.Vec{Y: 1})
	if len(flat) != 2 || flat[0] != [3]int{0, 1, 2} {
		t.Errorf("quadDiagonal(flat) = %v, want the 0-2 diagonal", flat)
	}
	// Folding corner 2 up makes the 1-3 diagonal the flatter choice.
	folded := quadDiagonal(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{Y: 1})
	if folded[0] == [3]int{0, 1, 2} {
		t.Errorf("quadDiagonal(folded) = %v, want the 1-3 diagonal", folded)
	}
}

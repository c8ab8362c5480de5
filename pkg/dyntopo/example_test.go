package dyntopo_test

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/dyntopo/pkg/dyntopo"
	"github.com/matzehuels/dyntopo/pkg/mesh"
	"github.com/matzehuels/dyntopo/pkg/spatial"
)

func ExampleRemesher_SplitEdges() {
	m, _ := mesh.FromPolygons(
		[]r3.Vec{{}, {X: 2}, {Y: 2}},
		[][]int{{0, 1, 2}})
	tree := spatial.Build(m, 64)
	r := dyntopo.New(m, tree)

	var edges []mesh.EdgeID
	for e := range m.Edges() {
		edges = append(edges, e)
	}
	fmt.Println("Split:", r.SplitEdges(edges))
	fmt.Println("Faces:", m.NumFaces())
	fmt.Println("Verts:", m.NumVerts())
	// Output:
	// Split: 3
	// Faces: 4
	// Verts: 6
}

func ExampleRemesher_Remesh() {
	m := mesh.Grid(2, 2, 1)
	tree := spatial.Build(m, 64)
	tree.MarkAll(spatial.UpdateTopology)

	r := dyntopo.New(m, tree)
	r.SetDetailSize(2, 0.4)
	changed := r.Remesh(context.Background(), dyntopo.Options{Mode: dyntopo.Both})
	fmt.Println("Changed:", changed)
	fmt.Println("Faces:", m.NumFaces())
	// Output:
	// Changed: false
	// Faces: 8
}

func ExampleParseMode() {
	mode, _ := dyntopo.ParseMode("both,cleanup")
	fmt.Println(mode)
	// Output:
	// subdivide+collapse+cleanup
}

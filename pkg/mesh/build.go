package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// FromPolygons builds a mesh from a position list and polygons indexing it.
// Vertices of non-triangle polygons are flagged [NeedTriangulate].
func FromPolygons(pts []r3.Vec, polys [][]int) (*Mesh, error) {
	m := New()
	for _, p := range pts {
		m.AddVert(p)
	}
	for i, poly := range polys {
		vs := make([]VertID, len(poly))
		for j, idx := range poly {
			if idx < 0 || idx >= len(pts) {
				return nil, fmt.Errorf("polygon %d: %w: index %d", i, ErrVertNotFound, idx)
			}
			vs[j] = VertID(idx)
		}
		if _, err := m.AddFace(vs...); err != nil {
			return nil, fmt.Errorf("polygon %d: %w", i, err)
		}
		if len(vs) != 3 {
			for _, v := range vs {
				m.Vert(v).Flags |= NeedTriangulate
			}
		}
	}
	m.UpdateNormals()
	return m, nil
}

// Grid builds a flat nx by ny quad grid in the XY plane with the given
// spacing, each quad split into two triangles along alternating diagonals.
// Vertex (i, j) has handle j*(nx+1)+i.
func Grid(nx, ny int, step float64) *Mesh {
	pts := make([]r3.Vec, 0, (nx+1)*(ny+1))
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			pts = append(pts, r3.Vec{X: float64(i) * step, Y: float64(j) * step})
		}
	}
	id := func(i, j int) int { return j*(nx+1) + i }

	polys := make([][]int, 0, 2*nx*ny)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			a, b, c, d := id(i, j), id(i+1, j), id(i+1, j+1), id(i, j+1)
			if (i+j)%2 == 0 {
				polys = append(polys, []int{a, b, c}, []int{a, c, d})
			} else {
				polys = append(polys, []int{a, b, d}, []int{b, c, d})
			}
		}
	}
	m, err := FromPolygons(pts, polys)
	if err != nil {
		panic(err) // indices are generated above
	}
	return m
}

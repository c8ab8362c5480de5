// Package brush provides region tests and mask accessors for remesh
// passes.
package brush

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/dyntopo/pkg/mesh"
)

// All accepts every triangle and vertex.
type All struct{}

func (All) TriInRange(_, _, _, _ r3.Vec) bool { return true }
func (All) VertInRange(r3.Vec) bool           { return true }

// Sphere accepts geometry within Radius of Center.
type Sphere struct {
	Center r3.Vec
	Radius float64
	// FrontOnly additionally rejects triangles whose normal points away
	// from View.
	FrontOnly bool
	View      r3.Vec
}

// TriInRange reports whether triangle abc touches the sphere.
func (s Sphere) TriInRange(a, b, c, normal r3.Vec) bool {
	if s.FrontOnly && r3.Dot(normal, s.View) < 0 {
		return false
	}
	p := ClosestOnTriangle(s.Center, a, b, c)
	return r3.Norm2(r3.Sub(p, s.Center)) <= s.Radius*s.Radius
}

// VertInRange reports whether co lies inside the sphere.
func (s Sphere) VertInRange(co r3.Vec) bool {
	return r3.Norm2(r3.Sub(co, s.Center)) <= s.Radius*s.Radius
}

// Falloff returns a smooth 1-to-0 weight of co by distance from the
// center, zero outside the sphere.
func (s Sphere) Falloff(co r3.Vec) float64 {
	if s.Radius <= 0 {
		return 0
	}
	d := r3.Norm(r3.Sub(co, s.Center)) / s.Radius
	if d >= 1 {
		return 0
	}
	return 3*math.Pow(1-d, 2) - 2*math.Pow(1-d, 3)
}

// ClosestOnTriangle returns the point of triangle abc nearest to p.
func ClosestOnTriangle(p, a, b, c r3.Vec) r3.Vec {
	ab, ac, ap := r3.Sub(b, a), r3.Sub(c, a), r3.Sub(p, a)
	d1, d2 := r3.Dot(ab, ap), r3.Dot(ac, ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}
	bp := r3.Sub(p, b)
	d3, d4 := r3.Dot(ab, bp), r3.Dot(ac, bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}
	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		return r3.Add(a, r3.Scale(d1/(d1-d3), ab))
	}
	cp := r3.Sub(p, c)
	d5, d6 := r3.Dot(ab, cp), r3.Dot(ac, cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}
	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		return r3.Add(a, r3.Scale(d2/(d2-d6), ac))
	}
	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		return r3.Add(b, r3.Scale((d4-d3)/((d4-d3)+(d5-d6)), r3.Sub(c, b)))
	}
	denom := 1 / (va + vb + vc)
	v, w := vb*denom, vc*denom
	return r3.Add(a, r3.Add(r3.Scale(v, ab), r3.Scale(w, ac)))
}

// Constant returns a mask accessor reporting x for every vertex.
func Constant(x float64) func(mesh.VertID) float64 {
	return func(mesh.VertID) float64 { return x }
}

// MaskLayer returns a mask accessor reading the first component of the
// named vertex float layer of m, clamped to [0, 1]. ok is false when m has
// no such layer.
func MaskLayer(m *mesh.Mesh, name string) (fn func(mesh.VertID) float64, ok bool) {
	layer, ok := m.VertLayers.Find(name)
	if !ok {
		return nil, false
	}
	return func(v mesh.VertID) float64 {
		x := layer.Of(m.Vert(v).Data)[0]
		return math.Max(0, math.Min(1, x))
	}, true
}

package brush

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/dyntopo/pkg/mesh"
)

func TestClosestOnTriangle(t *testing.T) {
	a, b, c := r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1}
	tests := []struct {
		name string
		p    r3.Vec
		want r3.Vec
	}{
		{"inside", r3.Vec{X: 0.25, Y: 0.25, Z: 2}, r3.Vec{X: 0.25, Y: 0.25}},
		{"vertex a", r3.Vec{X: -1, Y: -1}, a},
		{"vertex b", r3.Vec{X: 2, Y: -0.5}, b},
		{"edge ab", r3.Vec{X: 0.5, Y: -1}, r3.Vec{X: 0.5}},
		{"edge bc", r3.Vec{X: 1, Y: 1}, r3.Vec{X: 0.5, Y: 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClosestOnTriangle(tt.p, a, b, c)
			if r3.Norm(r3.Sub(got, tt.want)) > 1e-12 {
				t.Errorf("ClosestOnTriangle(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestSphere(t *testing.T) {
	s := Sphere{Center: r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, Radius: 0.6}
	up := r3.Vec{Z: 1}
	if !s.TriInRange(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1}, up) {
		t.Errorf("TriInRange(near) = false, want true")
	}
	if s.TriInRange(r3.Vec{X: 5}, r3.Vec{X: 6}, r3.Vec{X: 5, Y: 1}, up) {
		t.Errorf("TriInRange(far) = true, want false")
	}
	if !s.VertInRange(r3.Vec{X: 0.5, Y: 0.5}) {
		t.Errorf("VertInRange(center below) = false, want true")
	}

	s.FrontOnly = true
	s.View = r3.Vec{Z: -1}
	if s.TriInRange(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1}, up) {
		t.Errorf("TriInRange(backfacing) = true, want false")
	}
}

func TestFalloff(t *testing.T) {
	s := Sphere{Radius: 2}
	tests := []struct {
		co   r3.Vec
		want float64
	}{
		{r3.Vec{}, 1},
		{r3.Vec{X: 1}, 0.5},
		{r3.Vec{X: 3}, 0},
	}
	for _, tt := range tests {
		if got := s.Falloff(tt.co); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Falloff(%v) = %v, want %v", tt.co, got, tt.want)
		}
	}
}

func TestMaskLayer(t *testing.T) {
	m := mesh.New()
	if _, ok := MaskLayer(m, "mask"); ok {
		t.Fatalf("MaskLayer() on mesh without layer: ok = true")
	}
	layer := m.AddVertLayer("mask", mesh.LayerFloat)
	v := m.AddVert(r3.Vec{})
	w := m.AddVert(r3.Vec{X: 1})
	layer.Of(m.Vert(v).Data)[0] = 0.25
	layer.Of(m.Vert(w).Data)[0] = 3

	mask, ok := MaskLayer(m, "mask")
	if !ok {
		t.Fatalf("MaskLayer() ok = false")
	}
	if got := mask(v); got != 0.25 {
		t.Errorf("mask(v) = %v, want 0.25", got)
	}
	if got := mask(w); got != 1 {
		t.Errorf("mask(w) = %v, want 1 (clamped)", got)
	}
	if got := Constant(0.5)(v); got != 0.5 {
		t.Errorf("Constant(0.5)() = %v, want 0.5", got)
	}
}

package wire

import (
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/dyntopo/pkg/mesh"
)

func TestToDOT_Basic(t *testing.T) {
	m := mesh.Grid(1, 1, 1)
	dot := ToDOT(m, Options{})

	if !strings.HasPrefix(dot, "graph G {") {
		t.Error("ToDOT() output missing graph declaration")
	}
	if got := strings.Count(dot, " -- "); got != 5 {
		t.Errorf("edges in DOT = %d, want 5", got)
	}
	if !strings.Contains(dot, `v3 [pos="8.0000,8.0000!"]`) {
		t.Errorf("ToDOT() did not pin vertex 3 to the far corner:\n%s", dot)
	}
	if !strings.Contains(dot, "4 vertices, 5 edges, 2 faces") {
		t.Error("ToDOT() output missing summary label")
	}
}

func TestToDOT_Views(t *testing.T) {
	m := mesh.New()
	a := m.AddVert(r3.Vec{X: 0, Y: 0, Z: 0})
	b := m.AddVert(r3.Vec{X: 0, Y: 2, Z: 1})
	c := m.AddVert(r3.Vec{X: 0, Y: 0, Z: 2})
	if _, err := m.AddFace(a, b, c); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		view View
		want string
	}{
		{ViewTop, `v1 [pos="0.0000,4.0000!"]`},
		{ViewFront, `v1 [pos="0.0000,2.0000!"]`},
		{ViewSide, `v1 [pos="4.0000,2.0000!"]`},
	}
	for _, tt := range tests {
		t.Run(string(tt.view), func(t *testing.T) {
			dot := ToDOT(m, Options{View: tt.view, Size: 4})
			if !strings.Contains(dot, tt.want) {
				t.Errorf("ToDOT(%s) missing %s:\n%s", tt.view, tt.want, dot)
			}
		})
	}
}

func TestToDOT_Labels(t *testing.T) {
	dot := ToDOT(mesh.Grid(1, 1, 1), Options{Labels: true})
	if !strings.Contains(dot, `label="2"`) {
		t.Error("ToDOT() with labels missing vertex label")
	}
}

func TestClassify(t *testing.T) {
	m := mesh.Grid(2, 2, 1)
	p := m.AddVert(r3.Vec{X: 1.5, Y: 1, Z: 1})
	if _, err := m.AddFace(4, 5, p); err != nil {
		t.Fatal(err)
	}
	q := m.AddVert(r3.Vec{X: 5, Y: 5})
	wire, _ := m.EnsureEdge(q, 8)
	m.Edge(m.FindEdge(3, 4)).Flags |= mesh.EdgeSeam
	m.Edge(m.FindEdge(1, 4)).Flags |= mesh.EdgeSharp

	tests := []struct {
		name string
		e    mesh.EdgeID
		want Class
	}{
		{"interior", m.FindEdge(4, 7), ClassInterior},
		{"boundary", m.FindEdge(0, 1), ClassBoundary},
		{"seam", m.FindEdge(3, 4), ClassSeam},
		{"sharp", m.FindEdge(1, 4), ClassSharp},
		{"fin", m.FindEdge(4, 5), ClassNonManifold},
		{"wire", wire, ClassWire},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(m, tt.e); got != tt.want {
				t.Errorf("Classify() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseView(t *testing.T) {
	tests := []struct {
		in      string
		want    View
		wantErr bool
	}{
		{"", ViewTop, false},
		{"front", ViewFront, false},
		{"side", ViewSide, false},
		{"iso", "", true},
	}
	for _, tt := range tests {
		got, err := ParseView(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseView(%q) = %q, %v, want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `viewBox="0 0 100.00 50.00" width="100" height="50"`) {
		t.Errorf("normalizeViewBox() = %s", out)
	}
	if got := string(normalizeViewBox([]byte("<svg></svg>"))); got != "<svg></svg>" {
		t.Errorf("normalizeViewBox() without viewBox = %s, want input unchanged", got)
	}
}

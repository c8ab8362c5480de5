package io

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/dyntopo/pkg/errors"
	"github.com/matzehuels/dyntopo/pkg/mesh"
)

const quadOBJ = `# two triangles and a quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
v 2 0 0
v 2 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
g sheet
f 1/1/1 2/2/1 3/3/1
f 1/1/1 3/3/1 4/4/1
f 2 5 6 3
`

func TestReadOBJ(t *testing.T) {
	res, err := ReadOBJ(strings.NewReader(quadOBJ))
	if err != nil {
		t.Fatalf("ReadOBJ() error: %v", err)
	}
	m := res.Mesh
	if got := m.NumVerts(); got != 6 {
		t.Errorf("NumVerts() = %d, want 6", got)
	}
	if got := m.NumFaces(); got != 3 {
		t.Errorf("NumFaces() = %d, want 3", got)
	}
	if res.NGons != 1 {
		t.Errorf("NGons = %d, want 1", res.NGons)
	}
	if res.Skipped != 0 {
		t.Errorf("Skipped = %d, want 0", res.Skipped)
	}
	for _, v := range []mesh.VertID{1, 4, 5, 2} {
		if m.Vert(v).Flags&mesh.NeedTriangulate == 0 {
			t.Errorf("vertex %d not flagged for triangulation", v)
		}
	}
	if m.Vert(0).Flags&mesh.NeedTriangulate != 0 {
		t.Error("vertex 0 flagged for triangulation")
	}

	uv, ok := m.LoopLayers.Find(LayerUV)
	if !ok {
		t.Fatal("uv layer missing")
	}
	l := m.LoopAt(1, 2)
	if got := uv.Of(m.Loop(l).Data); got[0] != 1 || got[1] != 1 {
		t.Errorf("uv of vertex 2 in face 1 = %v, want [1 1]", got)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestReadOBJNegativeIndices(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf -3 -2 -1\n"
	res, err := ReadOBJ(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ReadOBJ() error: %v", err)
	}
	got := res.Mesh.FaceVerts(0)
	want := []mesh.VertID{0, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("FaceVerts(0) = %v, want %v", got, want)
		}
	}
}

func TestReadOBJColors(t *testing.T) {
	src := "v 0 0 0 1 0 0\nv 1 0 0\nv 0 1 0 0 0.5 1\nf 1 2 3\n"
	res, err := ReadOBJ(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ReadOBJ() error: %v", err)
	}
	m := res.Mesh
	color, ok := m.VertLayers.Find(LayerColor)
	if !ok {
		t.Fatal("color layer missing")
	}
	tests := []struct {
		v    mesh.VertID
		want [4]float64
	}{
		{0, [4]float64{1, 0, 0, 1}},
		{1, [4]float64{0, 0, 0, 0}},
		{2, [4]float64{0, 0.5, 1, 1}},
	}
	for _, tt := range tests {
		got := color.Of(m.Vert(tt.v).Data)
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("color of %d = %v, want %v", tt.v, got, tt.want)
				break
			}
		}
	}
}

func TestReadOBJSkipsBadFaces(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\nf 3 1 2\nf 1 1 2\n"
	res, err := ReadOBJ(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ReadOBJ() error: %v", err)
	}
	if res.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", res.Skipped)
	}
	if got := res.Mesh.NumFaces(); got != 1 {
		t.Errorf("NumFaces() = %d, want 1", got)
	}
}

func TestReadOBJErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code errors.Code
		line string
	}{
		{"bad vertex", "v 0 zero 0\n", errors.ErrCodeInvalidFormat, "line 1"},
		{"short vertex", "v 0 0\n", errors.ErrCodeInvalidFormat, "line 1"},
		{"bad uv", "v 0 0 0\nvt x\n", errors.ErrCodeInvalidFormat, "line 2"},
		{"short face", "v 0 0 0\nv 1 0 0\nf 1 2\n", errors.ErrCodeInvalidMesh, "line 3"},
		{"out of range", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 4\n", errors.ErrCodeInvalidMesh, "line 4"},
		{"zero index", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 0 1 2\n", errors.ErrCodeInvalidMesh, "line 4"},
		{"bad uv index", "v 0 0 0\nv 1 0 0\nv 0 1 0\nvt 0 0\nf 1/1 2/2 3/1\n", errors.ErrCodeInvalidMesh, "line 5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadOBJ(strings.NewReader(tt.src))
			if err == nil {
				t.Fatal("ReadOBJ() succeeded, want error")
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("GetCode() = %q, want %q", errors.GetCode(err), tt.code)
			}
			if !strings.Contains(err.Error(), tt.line) {
				t.Errorf("error %q does not mention %q", err, tt.line)
			}
		})
	}
}

func TestOBJRoundTrip(t *testing.T) {
	res, err := ReadOBJ(strings.NewReader(quadOBJ))
	if err != nil {
		t.Fatalf("ReadOBJ() error: %v", err)
	}
	m := res.Mesh
	m.KillFace(0)
	m.KillVert(4)

	var buf bytes.Buffer
	if err := WriteOBJ(m, &buf); err != nil {
		t.Fatalf("WriteOBJ() error: %v", err)
	}
	back, err := ReadOBJ(&buf)
	if err != nil {
		t.Fatalf("ReadOBJ(WriteOBJ()) error: %v\n%s", err, buf.String())
	}
	if got, want := back.Mesh.NumVerts(), m.NumVerts(); got != want {
		t.Errorf("NumVerts() = %d, want %d", got, want)
	}
	if got, want := back.Mesh.NumFaces(), m.NumFaces(); got != want {
		t.Errorf("NumFaces() = %d, want %d", got, want)
	}
	if _, ok := back.Mesh.LoopLayers.Find(LayerUV); !ok {
		t.Error("uv layer lost")
	}
}

func TestWriteOBJDedupesUVs(t *testing.T) {
	res, err := ReadOBJ(strings.NewReader(quadOBJ))
	if err != nil {
		t.Fatalf("ReadOBJ() error: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteOBJ(res.Mesh, &buf); err != nil {
		t.Fatalf("WriteOBJ() error: %v", err)
	}
	// The quad's corners carry the zero UV, which the triangles already use.
	if got := strings.Count(buf.String(), "\nvt "); got != 4 {
		t.Errorf("vt records = %d, want 4\n%s", got, buf.String())
	}
}

func TestJSONRoundTrip(t *testing.T) {
	src := `{
		"verts": [[0,0,0],[1,0,0],[1,1,0],[0,1,0]],
		"faces": [[0,1,2],[0,2,3]],
		"uvs":   [[[0,0],[1,0],[1,1]],[[0,0],[1,1],[0,1]]],
		"mask":  [1, 0.5, 0, 1]
	}`
	res, err := ReadJSON(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ReadJSON() error: %v", err)
	}
	m := res.Mesh
	mask, ok := m.VertLayers.Find(LayerMask)
	if !ok {
		t.Fatal("mask layer missing")
	}
	if got := mask.Of(m.Vert(1).Data)[0]; got != 0.5 {
		t.Errorf("mask of 1 = %g, want 0.5", got)
	}

	var buf bytes.Buffer
	if err := WriteJSON(m, &buf); err != nil {
		t.Fatalf("WriteJSON() error: %v", err)
	}
	back, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON(WriteJSON()) error: %v", err)
	}
	if got := back.Mesh.NumFaces(); got != 2 {
		t.Errorf("NumFaces() = %d, want 2", got)
	}
	uv, _ := back.Mesh.LoopLayers.Find(LayerUV)
	l := back.Mesh.LoopAt(1, 3)
	if got := uv.Of(back.Mesh.Loop(l).Data); got[0] != 0 || got[1] != 1 {
		t.Errorf("uv of vertex 3 = %v, want [0 1]", got)
	}
}

func TestReadJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code errors.Code
	}{
		{"syntax", `{"verts": [`, errors.ErrCodeInvalidFormat},
		{"index", `{"verts": [[0,0,0],[1,0,0],[0,1,0]], "faces": [[0,1,3]]}`, errors.ErrCodeInvalidMesh},
		{"uv count", `{"verts": [[0,0,0],[1,0,0],[0,1,0]], "faces": [[0,1,2]], "uvs": []}`, ""},
		{"uv lists", `{"verts": [[0,0,0],[1,0,0],[0,1,0]], "faces": [[0,1,2]], "uvs": [[[0,0]]]}`, errors.ErrCodeInvalidMesh},
		{"mask", `{"verts": [[0,0,0],[1,0,0],[0,1,0]], "faces": [[0,1,2]], "mask": [1]}`, errors.ErrCodeInvalidMesh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadJSON(strings.NewReader(tt.src))
			if tt.code == "" {
				if err != nil {
					t.Errorf("ReadJSON() error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("ReadJSON() = %v, want code %q", err, tt.code)
			}
		})
	}
}

func TestImportExport(t *testing.T) {
	dir := t.TempDir()
	m := mesh.Grid(2, 2, 1)
	for _, name := range []string{"grid.obj", "grid.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := Export(m, path); err != nil {
				t.Fatalf("Export() error: %v", err)
			}
			res, err := Import(path)
			if err != nil {
				t.Fatalf("Import() error: %v", err)
			}
			if got := res.Mesh.NumFaces(); got != 8 {
				t.Errorf("NumFaces() = %d, want 8", got)
			}
			if got := res.Mesh.NumVerts(); got != 9 {
				t.Errorf("NumVerts() = %d, want 9", got)
			}
		})
	}
}

func TestImportErrors(t *testing.T) {
	dir := t.TempDir()
	stl := filepath.Join(dir, "mesh.stl")
	if err := os.WriteFile(stl, []byte("solid"), 0o644); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		path string
		code errors.Code
	}{
		{"missing", filepath.Join(dir, "none.obj"), errors.ErrCodeFileNotFound},
		{"unsupported", stl, errors.ErrCodeUnsupported},
		{"no extension", filepath.Join(dir, "mesh"), errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Import(tt.path)
			if !errors.Is(err, tt.code) {
				t.Errorf("Import() = %v, want code %q", err, tt.code)
			}
		})
	}
}

package io

import (
	"bufio"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/dyntopo/pkg/errors"
	"github.com/matzehuels/dyntopo/pkg/mesh"
)

// Layer names created by the readers.
const (
	LayerUV    = "uv"
	LayerColor = "color"
	LayerMask  = "mask"
)

// Result is a decoded mesh with what the reader had to drop.
type Result struct {
	Mesh *mesh.Mesh
	// Skipped counts degenerate and duplicate faces.
	Skipped int
	// NGons counts faces with more than three corners.
	NGons int
}

type objCorner struct {
	v, vt int
}

// ReadOBJ decodes a Wavefront OBJ stream. It does not close r.
func ReadOBJ(r io.Reader) (*Result, error) {
	var (
		pts    []r3.Vec
		colors [][]float64
		uvs    [][2]float64
		faces  [][]objCorner
		hasUV  bool
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || text[0] == '#' {
			continue
		}
		fields := strings.Fields(text)
		switch fields[0] {
		case "v":
			vals, err := parseFloats(fields[1:])
			if err != nil || (len(vals) != 3 && len(vals) != 4 && len(vals) != 6) {
				return nil, errors.New(errors.ErrCodeInvalidFormat, "line %d: malformed vertex %q", line, text)
			}
			pts = append(pts, r3.Vec{X: vals[0], Y: vals[1], Z: vals[2]})
			if len(vals) == 6 {
				for len(colors) < len(pts)-1 {
					colors = append(colors, nil)
				}
				colors = append(colors, vals[3:6])
			}
		case "vt":
			vals, err := parseFloats(fields[1:])
			if err != nil || len(vals) < 2 {
				return nil, errors.New(errors.ErrCodeInvalidFormat, "line %d: malformed texture coordinate %q", line, text)
			}
			uvs = append(uvs, [2]float64{vals[0], vals[1]})
		case "f":
			if len(fields) < 4 {
				return nil, errors.New(errors.ErrCodeInvalidMesh, "line %d: face needs at least three corners", line)
			}
			face := make([]objCorner, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				c, err := parseCorner(ref, len(pts), len(uvs))
				if err != nil {
					return nil, errors.Wrap(errors.ErrCodeInvalidMesh, err, "line %d", line)
				}
				hasUV = hasUV || c.vt >= 0
				face = append(face, c)
			}
			faces = append(faces, face)
		default:
			// vn, o, g, s, usemtl, mtllib, l, p
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read obj")
	}

	m := mesh.New()
	for _, p := range pts {
		m.AddVert(p)
	}
	if len(colors) > 0 {
		layer := m.AddVertLayer(LayerColor, mesh.LayerColor)
		for i, c := range colors {
			if c == nil {
				continue
			}
			copy(layer.Of(m.Vert(mesh.VertID(i)).Data), []float64{c[0], c[1], c[2], 1})
		}
	}
	var uvLayer mesh.Layer
	if hasUV {
		uvLayer = m.AddLoopLayer(LayerUV, mesh.LayerUV)
	}

	res := &Result{Mesh: m}
	for _, face := range faces {
		vs := make([]mesh.VertID, len(face))
		for i, c := range face {
			vs[i] = mesh.VertID(c.v)
		}
		f, err := m.AddFace(vs...)
		if stderrors.Is(err, mesh.ErrDegenerateFace) || stderrors.Is(err, mesh.ErrFaceExists) {
			res.Skipped++
			continue
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidMesh, err, "add face")
		}
		if hasUV {
			for i, l := range m.FaceLoops(f) {
				if vt := face[i].vt; vt >= 0 {
					copy(uvLayer.Of(m.Loop(l).Data), uvs[vt][:])
				}
			}
		}
		if len(vs) > 3 {
			res.NGons++
			for _, v := range vs {
				m.Vert(v).Flags |= mesh.NeedTriangulate
			}
		}
	}
	m.UpdateNormals()
	return res, nil
}

// parseCorner resolves one "v/vt/vn" reference to 0-based indices. vt is
// -1 when absent.
func parseCorner(ref string, nv, nvt int) (objCorner, error) {
	parts := strings.Split(ref, "/")
	v, err := resolveIndex(parts[0], nv)
	if err != nil {
		return objCorner{}, fmt.Errorf("vertex reference %q: %w", ref, err)
	}
	c := objCorner{v: v, vt: -1}
	if len(parts) > 1 && parts[1] != "" {
		if c.vt, err = resolveIndex(parts[1], nvt); err != nil {
			return objCorner{}, fmt.Errorf("texture reference %q: %w", ref, err)
		}
	}
	return c, nil
}

func resolveIndex(s string, n int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	switch {
	case i > 0 && i <= n:
		return i - 1, nil
	case i < 0 && -i <= n:
		return n + i, nil
	default:
		return 0, fmt.Errorf("index %d out of range [1, %d]", i, n)
	}
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// jsonMesh is the JSON wire format.
type jsonMesh struct {
	Verts  [][3]float64   `json:"verts"`
	Faces  [][]int        `json:"faces"`
	UVs    [][][2]float64 `json:"uvs,omitempty"`
	Mask   []float64      `json:"mask,omitempty"`
	Colors [][4]float64   `json:"colors,omitempty"`
}

// ReadJSON decodes the JSON mesh format. It does not close r.
func ReadJSON(r io.Reader) (*Result, error) {
	var data jsonMesh
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode")
	}
	if len(data.UVs) > 0 && len(data.UVs) != len(data.Faces) {
		return nil, errors.New(errors.ErrCodeInvalidMesh, "%d uv lists for %d faces", len(data.UVs), len(data.Faces))
	}
	if len(data.Mask) > 0 && len(data.Mask) != len(data.Verts) {
		return nil, errors.New(errors.ErrCodeInvalidMesh, "%d mask values for %d vertices", len(data.Mask), len(data.Verts))
	}
	if len(data.Colors) > 0 && len(data.Colors) != len(data.Verts) {
		return nil, errors.New(errors.ErrCodeInvalidMesh, "%d colors for %d vertices", len(data.Colors), len(data.Verts))
	}

	m := mesh.New()
	for _, p := range data.Verts {
		m.AddVert(r3.Vec{X: p[0], Y: p[1], Z: p[2]})
	}
	if len(data.Mask) > 0 {
		layer := m.AddVertLayer(LayerMask, mesh.LayerFloat)
		for i, w := range data.Mask {
			layer.Of(m.Vert(mesh.VertID(i)).Data)[0] = w
		}
	}
	if len(data.Colors) > 0 {
		layer := m.AddVertLayer(LayerColor, mesh.LayerColor)
		for i, c := range data.Colors {
			copy(layer.Of(m.Vert(mesh.VertID(i)).Data), c[:])
		}
	}
	var uvLayer mesh.Layer
	if len(data.UVs) > 0 {
		uvLayer = m.AddLoopLayer(LayerUV, mesh.LayerUV)
	}

	res := &Result{Mesh: m}
	for i, face := range data.Faces {
		vs := make([]mesh.VertID, len(face))
		for j, idx := range face {
			if idx < 0 || idx >= len(data.Verts) {
				return nil, errors.New(errors.ErrCodeInvalidMesh, "face %d: vertex index %d out of range", i, idx)
			}
			vs[j] = mesh.VertID(idx)
		}
		f, err := m.AddFace(vs...)
		if stderrors.Is(err, mesh.ErrDegenerateFace) || stderrors.Is(err, mesh.ErrFaceExists) {
			res.Skipped++
			continue
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidMesh, err, "face %d", i)
		}
		if len(data.UVs) > 0 {
			if len(data.UVs[i]) != len(face) {
				return nil, errors.New(errors.ErrCodeInvalidMesh, "face %d: %d uvs for %d corners", i, len(data.UVs[i]), len(face))
			}
			for j, l := range m.FaceLoops(f) {
				copy(uvLayer.Of(m.Loop(l).Data), data.UVs[i][j][:])
			}
		}
		if len(vs) > 3 {
			res.NGons++
			for _, v := range vs {
				m.Vert(v).Flags |= mesh.NeedTriangulate
			}
		}
	}
	m.UpdateNormals()
	return res, nil
}

// Import reads the mesh file at path, picking the format from the
// extension.
func Import(path string) (*Result, error) {
	if err := errors.ValidateMeshFile(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open %s", path)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ReadJSON(f)
	}
	return ReadOBJ(f)
}

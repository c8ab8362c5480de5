package io

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matzehuels/dyntopo/pkg/errors"
	"github.com/matzehuels/dyntopo/pkg/mesh"
)

// compact numbers the live vertices of m densely, in handle order.
func compact(m *mesh.Mesh) (order []mesh.VertID, index map[mesh.VertID]int) {
	index = make(map[mesh.VertID]int, m.NumVerts())
	for v := range m.Verts() {
		index[v] = len(order)
		order = append(order, v)
	}
	return order, index
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// WriteOBJ encodes the live part of m as OBJ. A "uv" corner layer is
// written as deduplicated vt records, a "color" vertex layer as vertex
// colors.
func WriteOBJ(m *mesh.Mesh, w io.Writer) error {
	bw := bufio.NewWriter(w)
	order, index := compact(m)
	color, hasColor := m.VertLayers.Find(LayerColor)
	uv, hasUV := m.LoopLayers.Find(LayerUV)

	fmt.Fprintf(bw, "# dyntopo: %d vertices, %d faces\n", m.NumVerts(), m.NumFaces())
	for _, v := range order {
		vp := m.Vert(v)
		parts := []string{"v", formatFloat(vp.Co.X), formatFloat(vp.Co.Y), formatFloat(vp.Co.Z)}
		if hasColor {
			c := color.Of(vp.Data)
			parts = append(parts, formatFloat(c[0]), formatFloat(c[1]), formatFloat(c[2]))
		}
		bw.WriteString(strings.Join(parts, " "))
		bw.WriteByte('\n')
	}

	uvIndex := make(map[[2]float64]int)
	if hasUV {
		for f := range m.Faces() {
			for _, l := range m.FaceLoops(f) {
				d := uv.Of(m.Loop(l).Data)
				key := [2]float64{d[0], d[1]}
				if _, ok := uvIndex[key]; ok {
					continue
				}
				uvIndex[key] = len(uvIndex)
				fmt.Fprintf(bw, "vt %s %s\n", formatFloat(key[0]), formatFloat(key[1]))
			}
		}
	}

	for f := range m.Faces() {
		bw.WriteString("f")
		for _, l := range m.FaceLoops(f) {
			lp := m.Loop(l)
			if hasUV {
				d := uv.Of(lp.Data)
				fmt.Fprintf(bw, " %d/%d", index[lp.V]+1, uvIndex[[2]float64{d[0], d[1]}]+1)
			} else {
				fmt.Fprintf(bw, " %d", index[lp.V]+1)
			}
		}
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write obj")
	}
	return nil
}

// WriteJSON encodes the live part of m in the JSON mesh format.
func WriteJSON(m *mesh.Mesh, w io.Writer) error {
	order, index := compact(m)
	out := jsonMesh{
		Verts: make([][3]float64, len(order)),
		Faces: make([][]int, 0, m.NumFaces()),
	}
	for i, v := range order {
		co := m.Vert(v).Co
		out.Verts[i] = [3]float64{co.X, co.Y, co.Z}
	}
	if mask, ok := m.VertLayers.Find(LayerMask); ok {
		out.Mask = make([]float64, len(order))
		for i, v := range order {
			out.Mask[i] = mask.Of(m.Vert(v).Data)[0]
		}
	}
	if color, ok := m.VertLayers.Find(LayerColor); ok {
		out.Colors = make([][4]float64, len(order))
		for i, v := range order {
			copy(out.Colors[i][:], color.Of(m.Vert(v).Data))
		}
	}
	uv, hasUV := m.LoopLayers.Find(LayerUV)
	for f := range m.Faces() {
		loops := m.FaceLoops(f)
		face := make([]int, len(loops))
		var uvs [][2]float64
		for i, l := range loops {
			lp := m.Loop(l)
			face[i] = index[lp.V]
			if hasUV {
				d := uv.Of(lp.Data)
				uvs = append(uvs, [2]float64{d[0], d[1]})
			}
		}
		out.Faces = append(out.Faces, face)
		if hasUV {
			out.UVs = append(out.UVs, uvs)
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode")
	}
	return nil
}

// Export writes m to path, picking the format from the extension.
func Export(m *mesh.Mesh, path string) error {
	if err := errors.ValidateMeshFile(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "create %s", path)
	}
	write := WriteOBJ
	if strings.EqualFold(filepath.Ext(path), ".json") {
		write = WriteJSON
	}
	if err := write(m, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

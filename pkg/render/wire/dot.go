package wire

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/dyntopo/pkg/mesh"
)

// View names the plane a wireframe is projected onto.
type View string

const (
	ViewTop   View = "top"   // XY plane
	ViewFront View = "front" // XZ plane
	ViewSide  View = "side"  // YZ plane
)

// DefaultSize is the width of the longer drawing side in inches.
const DefaultSize = 8.0

// ParseView validates a view name. The empty string is [ViewTop].
func ParseView(s string) (View, error) {
	switch v := View(s); v {
	case "":
		return ViewTop, nil
	case ViewTop, ViewFront, ViewSide:
		return v, nil
	default:
		return "", fmt.Errorf("unknown view %q (must be one of: top, front, side)", s)
	}
}

// Options configures wireframe generation.
type Options struct {
	View View
	// Size is the drawing extent in inches. Zero means [DefaultSize].
	Size float64
	// Labels prints vertex handles next to the points.
	Labels bool
}

func (v View) project(p r3.Vec) (x, y float64) {
	switch v {
	case ViewFront:
		return p.X, p.Z
	case ViewSide:
		return p.Y, p.Z
	default:
		return p.X, p.Y
	}
}

// Class is the rendering class of an edge.
type Class uint8

const (
	ClassInterior Class = iota
	ClassBoundary
	ClassSeam
	ClassSharp
	ClassNonManifold
	ClassWire
)

var classAttrs = [...]string{
	ClassInterior:    `color="#404040"`,
	ClassBoundary:    `color="#1f6fd1", penwidth=2`,
	ClassSeam:        `color="#d12f1f", penwidth=2`,
	ClassSharp:       `color="#e08a00", penwidth=2`,
	ClassNonManifold: `color="#c000c0", penwidth=4`,
	ClassWire:        `color="#a0a0a0", style=dashed`,
}

// Classify returns the rendering class of e. Non-manifold beats the user
// marks, which beat the mesh boundary.
func Classify(m *mesh.Mesh, e mesh.EdgeID) Class {
	rc := m.RadialCount(e)
	flags := m.Edge(e).Flags
	switch {
	case rc == 0:
		return ClassWire
	case rc > 2:
		return ClassNonManifold
	case flags&mesh.EdgeSeam != 0:
		return ClassSeam
	case flags&mesh.EdgeSharp != 0:
		return ClassSharp
	case rc == 1:
		return ClassBoundary
	default:
		return ClassInterior
	}
}

// ToDOT converts the live edges of m to Graphviz DOT source.
func ToDOT(m *mesh.Mesh, opts Options) string {
	view := opts.View
	if view == "" {
		view = ViewTop
	}
	size := opts.Size
	if size <= 0 {
		size = DefaultSize
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for v := range m.Verts() {
		x, y := view.project(m.Vert(v).Co)
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
	}
	scale := 1.0
	if ext := max(maxX-minX, maxY-minY); ext > 0 && !math.IsInf(ext, 0) {
		scale = size / ext
	}

	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  splines=false;\n")
	fmt.Fprintf(&buf, "  label=%q;\n", fmt.Sprintf("%s view, %d vertices, %d edges, %d faces",
		view, m.NumVerts(), m.NumEdges(), m.NumFaces()))
	if opts.Labels {
		buf.WriteString("  node [shape=circle, width=0.18, fixedsize=true, fontsize=8, style=filled, fillcolor=white];\n")
	} else {
		buf.WriteString("  node [shape=point, width=0.05, label=\"\"];\n")
	}
	buf.WriteString("\n")

	for v := range m.Verts() {
		x, y := view.project(m.Vert(v).Co)
		fmt.Fprintf(&buf, "  v%d [pos=\"%s,%s!\"", v, fmtCoord((x-minX)*scale), fmtCoord((y-minY)*scale))
		if opts.Labels {
			fmt.Fprintf(&buf, ", label=\"%d\"", v)
		}
		buf.WriteString("];\n")
	}

	buf.WriteString("\n")
	for e := range m.Edges() {
		ep := m.Edge(e)
		fmt.Fprintf(&buf, "  v%d -- v%d [%s];\n", ep.V1, ep.V2, classAttrs[Classify(m, e)])
	}
	buf.WriteString("}\n")
	return buf.String()
}

func fmtCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

// RenderSVG lays out dot with the neato engine and returns the SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-sized svg header with one that
// scales cleanly when embedded.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}

package cli

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"

	meshio "github.com/matzehuels/dyntopo/pkg/io"
	"github.com/matzehuels/dyntopo/pkg/render/wire"
)

// meshStats summarizes the topology and attributes of a mesh.
type meshStats struct {
	Verts       int `json:"verts"`
	Edges       int `json:"edges"`
	Faces       int `json:"faces"`
	NonTris     int `json:"non_triangles"`
	NGons       int `json:"input_ngons"`
	Skipped     int `json:"skipped_faces"`
	Boundary    int `json:"boundary_edges"`
	Seams       int `json:"seam_edges"`
	Sharp       int `json:"sharp_edges"`
	NonManifold int `json:"non_manifold_edges"`
	Wire        int `json:"wire_edges"`
	MinValence  int `json:"min_valence"`
	MaxValence  int `json:"max_valence"`

	MinEdge  float64 `json:"min_edge"`
	MeanEdge float64 `json:"mean_edge"`
	MaxEdge  float64 `json:"max_edge"`

	VertLayers []string `json:"vert_layers,omitempty"`
	LoopLayers []string `json:"loop_layers,omitempty"`

	Problem string `json:"problem,omitempty"`
}

// computeStats walks the mesh of res once per element kind.
func computeStats(res *meshio.Result) meshStats {
	m := res.Mesh
	s := meshStats{
		Verts:   m.NumVerts(),
		Edges:   m.NumEdges(),
		Faces:   m.NumFaces(),
		NonTris: len(m.NonTriangles()),
		NGons:   res.NGons,
		Skipped: res.Skipped,
	}

	first := true
	for v := range m.Verts() {
		d := m.Valence(v)
		if first || d < s.MinValence {
			s.MinValence = d
		}
		if first || d > s.MaxValence {
			s.MaxValence = d
		}
		first = false
	}

	var sum float64
	s.MinEdge = math.Inf(1)
	for e := range m.Edges() {
		l := math.Sqrt(m.EdgeLenSq(e))
		sum += l
		s.MinEdge = math.Min(s.MinEdge, l)
		s.MaxEdge = math.Max(s.MaxEdge, l)

		switch wire.Classify(m, e) {
		case wire.ClassBoundary:
			s.Boundary++
		case wire.ClassSeam:
			s.Seams++
		case wire.ClassSharp:
			s.Sharp++
		case wire.ClassNonManifold:
			s.NonManifold++
		case wire.ClassWire:
			s.Wire++
		}
	}
	if s.Edges > 0 {
		s.MeanEdge = sum / float64(s.Edges)
	} else {
		s.MinEdge = 0
	}

	for _, l := range m.VertLayers.Layers {
		s.VertLayers = append(s.VertLayers, l.Name+":"+l.Kind.String())
	}
	for _, l := range m.LoopLayers.Layers {
		s.LoopLayers = append(s.LoopLayers, l.Name+":"+l.Kind.String())
	}

	if err := m.Validate(); err != nil {
		s.Problem = err.Error()
	}
	return s
}

// statsCommand creates the stats command.
func (c *CLI) statsCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:               "stats [file]",
		Short:             "Print topology statistics of a mesh",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeMeshFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			prog := newProgress(loggerFromContext(cmd.Context()))
			res, err := meshio.Import(args[0])
			if err != nil {
				return err
			}
			s := computeStats(res)
			prog.done("read mesh", "path", args[0], "faces", s.Faces)

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}
			printMeshStats(args[0], s)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print statistics as JSON")

	return cmd
}

func printMeshStats(path string, s meshStats) {
	printSuccess("%s", path)
	printCount("Vertices", s.Verts)
	printCount("Edges", s.Edges)
	printCount("Faces", s.Faces)
	printKeyValue("Valence", fmt.Sprintf("%d-%d", s.MinValence, s.MaxValence))
	printKeyValue("Edge length", fmt.Sprintf("%.4g / %.4g / %.4g", s.MinEdge, s.MeanEdge, s.MaxEdge))
	printDetail("min / mean / max")
	if s.Boundary > 0 {
		printKeyValue("Boundary", fmt.Sprintf("%d edges", s.Boundary))
	}
	if s.Seams > 0 || s.Sharp > 0 {
		printKeyValue("Marked", fmt.Sprintf("%d seam, %d sharp", s.Seams, s.Sharp))
	}
	for _, l := range s.VertLayers {
		printKeyValue("Vert layer", l)
	}
	for _, l := range s.LoopLayers {
		printKeyValue("Loop layer", l)
	}

	if s.NonTris > 0 {
		printWarning("%d faces are not triangles (%d n-gons in the input)", s.NonTris, s.NGons)
	}
	if s.NonManifold > 0 {
		printWarning("%d non-manifold edges", s.NonManifold)
	}
	if s.Wire > 0 {
		printWarning("%d wire edges", s.Wire)
	}
	if s.Skipped > 0 {
		printWarning("%d faces skipped while reading", s.Skipped)
	}
	if s.Problem != "" {
		printError("Invalid topology: %s", s.Problem)
	}
}

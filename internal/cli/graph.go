package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	meshio "github.com/matzehuels/dyntopo/pkg/io"
	"github.com/matzehuels/dyntopo/pkg/pipeline"
	"github.com/matzehuels/dyntopo/pkg/render/wire"
)

// graphCommand creates the graph command, which draws the wireframe of a
// mesh without remeshing it.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		output string
		format string
		view   string
		size   float64
		labels bool
	)

	cmd := &cobra.Command{
		Use:   "graph [file]",
		Short: "Draw the wireframe of a mesh as DOT or SVG",
		Long: `Draw the edges of a mesh projected onto a plane. Boundary, seam, sharp,
non-manifold and wire edges are drawn in their own colors.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeMeshFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if format != pipeline.FormatDOT && format != pipeline.FormatSVG {
				return fmt.Errorf("invalid format: %s (must be 'dot' or 'svg')", format)
			}
			v, err := wire.ParseView(view)
			if err != nil {
				return err
			}

			res, err := meshio.Import(args[0])
			if err != nil {
				return err
			}
			loggerFromContext(ctx).Debug("loaded mesh", "verts", res.Mesh.NumVerts(), "faces", res.Mesh.NumFaces())

			dot := wire.ToDOT(res.Mesh, wire.Options{View: v, Size: size, Labels: labels})
			data := []byte(dot)
			if format == pipeline.FormatSVG {
				spinner := newSpinnerWithContext(ctx, "Rendering wireframe...")
				spinner.Start()
				data, err = wire.RenderSVG(ctx, dot)
				if spinner.Cancelled() {
					spinner.Stop()
					return ctx.Err()
				}
				if err != nil {
					spinner.StopWithError("Render failed")
					return fmt.Errorf("render svg: %w", err)
				}
				spinner.Stop()
			}

			if output == "" {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + "." + string(v) + "." + format
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write output %s: %w", output, err)
			}

			printSuccess("Wireframe complete")
			printFile(output)
			printStats(res.Mesh.NumVerts(), res.Mesh.NumFaces(), false)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.<view>.<format>)")
	cmd.Flags().StringVarP(&format, "format", "f", pipeline.FormatSVG, "output format: svg, dot")
	cmd.Flags().StringVar(&view, "view", string(wire.ViewTop), "projection: top, front, side")
	cmd.Flags().Float64Var(&size, "size", wire.DefaultSize, "drawing size in inches")
	cmd.Flags().BoolVar(&labels, "labels", false, "label vertices with their handles")
	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions([]string{pipeline.FormatSVG, pipeline.FormatDOT}, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("view", cobra.FixedCompletions(viewChoices, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

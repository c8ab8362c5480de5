package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dyntopo/pkg/pipeline"
)

// remeshCommand creates the remesh command.
func (c *CLI) remeshCommand() *cobra.Command {
	var (
		flags      remeshFlags
		output     string
		configPath string
		noCache    bool
		refresh    bool
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "remesh [file]",
		Short: "Split long and collapse short edges of an OBJ or JSON mesh",
		Long: `Remesh a triangle mesh towards a uniform detail size.

Settings are read from dyntopo.toml in the working directory (or --config)
and overridden by flags. Results are cached by input content and settings.`,
		Example: `  dyntopo remesh bunny.obj --detail 0.01
  dyntopo remesh bunny.obj --brush 0,0.1,0,0.05 --mode subdivide --passes 4
  dyntopo remesh bunny.obj -f obj,svg --view front -o out/bunny`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeMeshFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			opts := cfg.options()
			opts.Input = args[0]
			opts.Refresh = refresh
			if err := flags.apply(cmd, &opts); err != nil {
				return err
			}
			if watch {
				return c.runWatch(cmd.Context(), opts, output)
			}
			return c.runRemesh(cmd.Context(), opts, cfg.Cache, noCache, output)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default: ./dyntopo.toml)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute and overwrite cached results")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "show the remesh queue interactively (no caching)")

	return cmd
}

func (c *CLI) runRemesh(ctx context.Context, opts pipeline.Options, cacheCfg cacheConfig, noCache bool, output string) error {
	runner, err := c.newRunner(ctx, cacheCfg, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = loggerFromContext(ctx)

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Remeshing %s...", filepath.Base(opts.Input)))
	spinner.Start()

	result, err := runner.Execute(ctx, opts)
	if spinner.Cancelled() {
		spinner.Stop()
		return ctx.Err()
	}
	if err != nil {
		spinner.StopWithError("Remesh failed")
		return err
	}
	spinner.Stop()

	paths, err := writeArtifacts(result.Artifacts, output, opts.Input)
	if err != nil {
		return err
	}

	printSuccess("Remesh complete")
	for _, p := range paths {
		printFile(p)
	}
	printStats(result.Remesh.Verts, result.Remesh.Faces, result.CacheInfo.RemeshHit)
	printEdits(result.Remesh)
	if result.Remesh.Skipped > 0 {
		printWarning("Skipped %d degenerate or duplicate faces", result.Remesh.Skipped)
	}
	for _, p := range paths {
		if ext := filepath.Ext(p); ext == ".obj" || ext == ".json" {
			printNewline()
			printNextStep("Inspect", appName+" stats "+p)
			break
		}
	}

	return nil
}

// writeArtifacts writes every artifact to its output path and returns the
// paths in format order.
func writeArtifacts(artifacts map[string][]byte, output, input string) ([]string, error) {
	formats := make([]string, 0, len(artifacts))
	for f := range artifacts {
		formats = append(formats, f)
	}
	sort.Strings(formats)

	targets := outputPaths(output, input, formats)
	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		path := targets[f]
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create output dir %s: %w", dir, err)
			}
		}
		if err := os.WriteFile(path, artifacts[f], 0o644); err != nil {
			return nil, fmt.Errorf("write output %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// outputPaths maps each format to its output file. A single format is
// written to output as given. Otherwise output, or the input with a
// ".remeshed" suffix, is the base path that gets one extension per format.
func outputPaths(output, input string, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}
	base := basePath(output, input)
	for _, f := range formats {
		paths[f] = base + "." + f
	}
	return paths
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input and marks it as
// remeshed so the input is never overwritten.
// If output has a format extension (.obj, .svg, etc.), it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input)) + ".remeshed"
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

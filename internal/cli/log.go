// Package cli implements the dyntopo command-line interface.
//
// This package provides commands for remeshing triangle meshes, inspecting
// their topology, drawing wireframes, serving the pipeline over HTTP and
// managing the result cache. The CLI is built using cobra and supports
// verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - remesh: Split long and collapse short edges of an OBJ or JSON mesh
//   - stats: Print vertex, edge and face counts and topology problems
//   - graph: Draw the wireframe of a mesh as DOT or SVG
//   - serve: Expose the remesh pipeline as an HTTP API with metrics
//   - cache: Inspect, prune and clear the result cache
//
// # Configuration
//
// remesh and serve read dyntopo.toml from the working directory, or the
// file named by --config. Flags override the file.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
//
// # Example
//
//	import "github.com/matzehuels/dyntopo/internal/cli"
//
//	func main() {
//	    c := cli.New(os.Stderr, cli.LogInfo)
//	    if err := c.RootCommand().Execute(); err != nil {
//	        os.Exit(1)
//	    }
//	}
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger writes timestamped ("14:32:01.45") records at level and above.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs how long a stage took, for example
// "read mesh path=bunny.obj faces=69451 elapsed=1.234s".
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

func (p *progress) done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "elapsed", time.Since(p.start).Round(time.Millisecond))
	p.logger.Info(msg, keyvals...)
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the command logger, or log.Default outside a
// command (tests calling helpers directly).
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

package pipeline

import (
	"bytes"
	"context"
	"time"

	"github.com/matzehuels/dyntopo/pkg/errors"
	meshio "github.com/matzehuels/dyntopo/pkg/io"
	"github.com/matzehuels/dyntopo/pkg/mesh"
	"github.com/matzehuels/dyntopo/pkg/observability"
	"github.com/matzehuels/dyntopo/pkg/render/wire"
)

// Encode writes m in one output format.
func Encode(ctx context.Context, m *mesh.Mesh, format string, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatOBJ:
		if err := meshio.WriteOBJ(m, &buf); err != nil {
			return nil, err
		}
	case FormatJSON:
		if err := meshio.WriteJSON(m, &buf); err != nil {
			return nil, err
		}
	case FormatDOT:
		buf.WriteString(wire.ToDOT(m, wire.Options{View: wire.View(opts.View)}))
	case FormatSVG:
		svg, err := wire.RenderSVG(ctx, wire.ToDOT(m, wire.Options{View: wire.View(opts.View)}))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "render svg")
		}
		return svg, nil
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported format: %s", format)
	}
	return buf.Bytes(), nil
}

// Export encodes m in every format of opts.
func Export(ctx context.Context, m *mesh.Mesh, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForExport(); err != nil {
		return nil, err
	}
	hooks := observability.Pipeline()
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		hooks.OnExportStart(ctx, format)
		start := time.Now()
		data, err := Encode(ctx, m, format, opts)
		hooks.OnExportComplete(ctx, format, len(data), time.Since(start), err)
		if err != nil {
			return nil, err
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

package pipeline

import (
	"bytes"
	"context"
	"os"
	"time"

	"github.com/matzehuels/dyntopo/pkg/errors"
	meshio "github.com/matzehuels/dyntopo/pkg/io"
	"github.com/matzehuels/dyntopo/pkg/observability"
)

// ReadInput returns the raw input bytes: opts.Data when set, otherwise the
// content of opts.Input.
func ReadInput(opts Options) ([]byte, error) {
	if len(opts.Data) > 0 {
		return opts.Data, nil
	}
	data, err := os.ReadFile(opts.Input)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", opts.Input)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", opts.Input)
	}
	return data, nil
}

// Decode parses data in the given input format.
func Decode(data []byte, format string) (*meshio.Result, error) {
	switch format {
	case FormatJSON:
		return meshio.ReadJSON(bytes.NewReader(data))
	case FormatOBJ:
		return meshio.ReadOBJ(bytes.NewReader(data))
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "invalid input format: %q", format)
	}
}

// Load reads and decodes the input of opts.
func Load(ctx context.Context, opts Options) (*meshio.Result, []byte, error) {
	if err := opts.ValidateForLoad(); err != nil {
		return nil, nil, err
	}
	hooks := observability.Pipeline()
	source := opts.Input
	if source == "" {
		source = "<data>"
	}
	hooks.OnLoadStart(ctx, source)
	start := time.Now()

	data, err := ReadInput(opts)
	if err != nil {
		hooks.OnLoadComplete(ctx, source, 0, time.Since(start), err)
		return nil, nil, err
	}
	res, err := Decode(data, opts.InputFormat)
	if err != nil {
		hooks.OnLoadComplete(ctx, source, 0, time.Since(start), err)
		return nil, nil, err
	}
	if res.Mesh.NumFaces() == 0 {
		err := errors.New(errors.ErrCodeInvalidMesh, "%s has no faces", source)
		hooks.OnLoadComplete(ctx, source, 0, time.Since(start), err)
		return nil, nil, err
	}
	if res.Skipped > 0 {
		opts.Logger.Warn("skipped invalid faces", "input", source, "count", res.Skipped)
	}
	hooks.OnLoadComplete(ctx, source, res.Mesh.NumFaces(), time.Since(start), nil)
	return res, data, nil
}

// Package pkg provides the core libraries for Dyntopo adaptive remeshing.
//
// # Overview
//
// Dyntopo keeps a triangle mesh at a target detail size by splitting edges
// that are too long and collapsing edges that are too short, either across
// the whole mesh or inside a brush sphere. The pkg directory is organized
// into three areas:
//
//  1. Topology - the editable mesh and the remesher that edits it
//  2. Acceleration - spatial partitioning and priority queues
//  3. Plumbing - file formats, caching, pipeline and observability
//
// # Architecture
//
// The typical data flow through Dyntopo:
//
//	OBJ / JSON mesh
//	         ↓
//	    [io] package (decode into a mesh)
//	         ↓
//	    [spatial] package (partition faces into leaves)
//	         ↓
//	    [dyntopo] package (split, collapse, cleanup passes)
//	         ↓
//	    OBJ / JSON / DOT / SVG output
//
// # Quick Start
//
// Remesh a file with the default options:
//
//	res, _ := io.Import("bunny.obj")
//	tree := spatial.Build(res.Mesh, 64)
//	r := dyntopo.New(res.Mesh, tree)
//	r.SetDetailSize(0.01, 0.4)
//	tree.MarkAll(spatial.UpdateTopology)
//	r.Remesh(ctx, dyntopo.Options{Mode: dyntopo.Both})
//	_ = io.Export(res.Mesh, "bunny.remeshed.obj")
//
// # Main Packages
//
// ## Topology
//
// [mesh] - Half-edge style mesh with vertices, edges, loops and faces kept
// in arenas. Custom data layers (uv, mask, color) travel with loops and
// vertices through every edit.
//
// [dyntopo] - The remesher. A [dyntopo.QueueContext] drives one pass through
// queued split and collapse candidates and can be stepped for progress views.
//
// [undo] - Undo log recording pre-edit element state and checkpoints.
//
// [brush] - Sphere and mask weighting that restricts edits to a region.
//
// ## Acceleration
//
// [spatial] - Bounding volume tree over faces with per-leaf update flags.
//
// [minmax] - Min-max heap used to pop longest and shortest edges.
//
// ## Plumbing
//
// [io] - OBJ and JSON import and export.
//
// [pipeline] - Load, remesh and export stages shared by the CLI and the HTTP
// server, with result caching through [cache].
//
// [cache] - File, Redis and null caches plus key derivation.
//
// [render/wire] - Edge graph rendering with Graphviz.
//
// [observability] - Hook interfaces; [observability/prom] backs them with
// Prometheus collectors.
//
// [errors] - Coded errors mapped to exit messages and HTTP statuses.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...             # All tests
//	go test ./pkg/dyntopo/...     # Specific package
//	go test -run Example ./pkg/...
//
// [mesh]: https://pkg.go.dev/github.com/matzehuels/dyntopo/pkg/mesh
// [dyntopo]: https://pkg.go.dev/github.com/matzehuels/dyntopo/pkg/dyntopo
// [dyntopo.QueueContext]: https://pkg.go.dev/github.com/matzehuels/dyntopo/pkg/dyntopo#QueueContext
// [undo]: https://pkg.go.dev/github.com/matzehuels/dyntopo/pkg/undo
// [brush]: https://pkg.go.dev/github.com/matzehuels/dyntopo/pkg/brush
// [spatial]: https://pkg.go.dev/github.com/matzehuels/dyntopo/pkg/spatial
// [minmax]: https://pkg.go.dev/github.com/matzehuels/dyntopo/pkg/minmax
// [io]: https://pkg.go.dev/github.com/matzehuels/dyntopo/pkg/io
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/dyntopo/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/dyntopo/pkg/cache
// [render/wire]: https://pkg.go.dev/github.com/matzehuels/dyntopo/pkg/render/wire
// [observability]: https://pkg.go.dev/github.com/matzehuels/dyntopo/pkg/observability
// [observability/prom]: https://pkg.go.dev/github.com/matzehuels/dyntopo/pkg/observability/prom
// [errors]: https://pkg.go.dev/github.com/matzehuels/dyntopo/pkg/errors
package pkg

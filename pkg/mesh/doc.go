// Package mesh provides the polygon mesh kernel the remesher edits in place.
//
// # Overview
//
// A [Mesh] stores vertices, edges, loops and faces in append-only arenas and
// addresses them by integer handles ([VertID], [EdgeID], [LoopID], [FaceID]).
// Removing an element marks it dead instead of compacting the arena, so a
// handle held by a queue or worklist can always be checked with [Mesh.VertAlive],
// [Mesh.EdgeAlive] or [Mesh.FaceAlive] before it is dereferenced. Arena
// storage is chunked, so a pointer returned by [Mesh.Vert] or [Mesh.Edge]
// stays valid while new elements are added.
//
// # Adjacency
//
// Connectivity follows the classic boundary representation:
//
//   - Every vertex heads a disk cycle: a circular list of its incident edges.
//   - Every edge heads a radial cycle: a circular list of the loops (face
//     corners) that use it. One loop means a boundary edge, two a manifold
//     edge, more than two a fin.
//   - Every face owns a loop cycle walking its corners in winding order.
//
// The cycles are intrusive lists of handles stored on the elements
// themselves. [Mesh.VertEdges], [Mesh.VertFaces], [Mesh.EdgeLoops] and
// [Mesh.FaceLoops] materialize them as slices.
//
// # Custom Data
//
// Per-vertex and per-loop attribute blocks are described by [CustomData]
// layers (float, colour, UV). Values live in a flat []float64 on each element
// so interpolation code can treat all layers uniformly.
//
// # Classification
//
// [Mesh.Boundary] lazily classifies a vertex as lying on the mesh border, a
// UV seam, a sharp crease, or a corner where several of those meet. The
// result is cached in [Vertex.Flags] until [NeedBoundary] is set again.
//
// # Concurrency
//
// A Mesh is not safe for concurrent mutation. Concurrent readers are fine as
// long as no goroutine adds or kills elements. The tag helpers
// ([Mesh.TrySetEdgeTag] and friends) use atomic operations so parallel
// readers can claim elements without locks.
package mesh

// Package dyntopo keeps the triangle density of a mesh adaptive while it is
// being sculpted.
//
// # Overview
//
// Inside a brush region, edges longer than a maximum length are subdivided
// and edges shorter than a minimum length are collapsed, so the local edge
// length tracks one target size. Both thresholds derive from a single detail
// size and a detail ratio r (min = max*r), see [Remesher.SetDetailSize].
//
// A remesh pass ([Remesher.Remesh]) runs in three phases:
//
//  1. Collection. Every spatial-index leaf flagged for a topology update is
//     scanned by its own goroutine. In-range triangles contribute edges that
//     qualify for splitting or collapsing; long edges additionally pull in
//     their longer neighbours through a bounded recursive walk. Tasks only
//     read the mesh and claim edges with an atomic tag.
//  2. Stepping. After the join barrier a [QueueContext] pops edges from a
//     min-max heap: the longest edges are batched for splitting, the
//     shortest are collapsed one at a time. Subdivide and collapse
//     alternate under fixed step budgets.
//  3. Finish. Optional valence cleanup dissolves degree 3 and 4 vertices,
//     oversized leaves are split, caches are refreshed and one undo
//     checkpoint closes the pass.
//
// # Weights
//
// Heap order comes from [WeightPolicy]. Mask values (1 = fully editable)
// bias the order so editable regions are processed first, while the
// decision whether an edge qualifies always uses its true length.
//
// # Invariants
//
// Every operation leaves the mesh valid: live faces are triangles with three
// distinct vertices, edges have at most two faces once fin repair ran, and
// collapses never merge vertices of different boundary kinds. Every element
// created or destroyed is reported to the [UndoLog] and the [SpatialIndex].
//
// # Failure Handling
//
// Nothing in this package returns errors during a pass. Inconsistent input
// is skipped with a diagnostic on the logger, refused collapses are silent,
// and cancellation (via [Remesher.RequestStop] or the context) simply ends
// the pass early with the mesh intact.
package dyntopo

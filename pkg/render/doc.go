// Package render turns meshes into pictures for inspection.
//
// The remesher edits topology, so the most useful picture is the edge graph
// itself. The [wire] subpackage projects a mesh onto a view plane and lays
// its edges out with Graphviz, colouring boundaries, seams, sharp edges and
// non-manifold fins so that a remesh result can be checked at a glance.
//
//	dot := wire.ToDOT(m, wire.Options{View: wire.ViewTop})
//	svg, err := wire.RenderSVG(ctx, dot)
package render

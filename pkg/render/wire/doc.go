// Package wire renders mesh wireframes with Graphviz.
//
// # Overview
//
// [ToDOT] writes every live edge of a mesh as an undirected Graphviz edge
// between pinned vertex nodes. Vertex positions are projected onto the view
// plane chosen by [Options.View] and scaled to fit [Options.Size] inches, so
// Graphviz only draws; it never moves a node.
//
// # Edge Classes
//
// Edges are styled by what the remesher treats specially:
//
//   - mesh boundary (one face): blue
//   - seam: red
//   - sharp: orange
//   - non-manifold (three or more faces): thick magenta
//   - wire (no face): dashed grey
//
// # Rendering
//
// [RenderSVG] lays the DOT source out with the neato engine, which honours
// pinned positions, and returns the SVG bytes.
package wire

// Package io reads and writes meshes as Wavefront OBJ and as a small JSON
// format used by the HTTP API.
//
// # OBJ
//
// [ReadOBJ] understands the subset of OBJ that carries surface topology:
//
//	v x y z [r g b]      vertex position, optional color
//	vt u v               texture coordinate
//	f a[/t[/n]] b c ...  polygon, 1-based or negative indices
//
// Normals, groups, smoothing groups and materials are accepted and ignored.
// Polygons with more than three corners are kept as n-gons and their
// vertices flagged for triangulation; the remesher triangulates them the
// first time it touches them. Texture coordinates become a per-corner "uv"
// layer, vertex colors a per-vertex "color" layer.
//
// Faces that repeat a vertex or duplicate an existing face are skipped and
// counted in [Result.Skipped] instead of failing the whole file.
//
// # JSON
//
// The JSON format mirrors the OBJ content:
//
//	{
//	  "verts": [[0, 0, 0], [1, 0, 0], [0, 1, 0]],
//	  "faces": [[0, 1, 2]],
//	  "uvs":   [[[0, 0], [1, 0], [0, 1]]],
//	  "mask":  [1, 1, 0.5],
//	  "colors": [[1, 0, 0, 1], [0, 1, 0, 1], [0, 0, 1, 1]]
//	}
//
// "uvs", when present, holds one list of corner UVs per face. "mask" holds
// one float per vertex and is stored in the "mask" vertex layer, which
// brush.MaskLayer reads back. "colors" holds one RGBA value per vertex.
//
// # Round Trips
//
// Writers emit live elements only, renumbered densely, so a remeshed mesh
// with holes in its handle ranges exports compactly. Reading the output
// back yields the same faces in the same order.
package io

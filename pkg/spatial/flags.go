package spatial

import "strings"

// Flag holds per-node state bits.
type Flag uint16

const (
	// Leaf marks a node that owns faces. Inner nodes own nothing.
	Leaf Flag = 1 << iota
	// UpdateTopology requests a remesh of the node's faces.
	UpdateTopology
	// FullyHidden marks a node whose faces are all hidden.
	FullyHidden
	// UpdateBounds requests recomputing the bounding box.
	UpdateBounds
	// UpdateTris requests rebuilding the triangle cache.
	UpdateTris
	// UpdateNormals requests recomputing normals of the node's faces.
	UpdateNormals
)

// Dirty covers every update request.
const Dirty = UpdateTopology | UpdateBounds | UpdateTris | UpdateNormals

var flagNames = []string{"leaf", "update-topology", "hidden", "update-bounds", "update-tris", "update-normals"}

// String lists the set bits, for example "leaf|update-tris".
func (f Flag) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for i, name := range flagNames {
		if f&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

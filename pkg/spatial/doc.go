// Package spatial provides a bounding-volume tree over mesh faces.
//
// The tree partitions faces into leaves by recursive median splits of face
// centroids. Each leaf owns an ordered set of faces and of vertices, a
// bounding box, a triangle cache used by drawing and picking code, and a set
// of dirty flags ([UpdateTopology], [UpdateBounds], ...). The remesher in
// package dyntopo consumes the tree through its SpatialIndex interface:
// it keeps leaf membership current while editing and asks the tree to split
// leaves that grew past [Tree.LeafLimit].
package spatial

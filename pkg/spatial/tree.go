package spatial

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/dyntopo/pkg/mesh"
)

// DefaultLeafLimit is the face count above which a leaf is split.
const DefaultLeafLimit = 256

// maxDepth bounds tree depth for pathological inputs such as many faces
// sharing one centroid.
const maxDepth = 48

// ErrInvalidTree reports an inconsistency between tree and mesh.
var ErrInvalidTree = errors.New("invalid spatial tree")

type node struct {
	flags    Flag
	faces    orderedSet[mesh.FaceID]
	verts    orderedSet[mesh.VertID]
	bounds   Box
	axis     int
	split    float64
	children [2]mesh.NodeID
	parent   mesh.NodeID
	tris     [][3]mesh.VertID
}

// Tree is a binary bounding-volume tree over the faces of one mesh. Node 0
// is the root. Nodes are never removed; a split leaf becomes an inner node.
//
// Tree is not safe for concurrent mutation. Read-only accessors may be used
// from several goroutines while no goroutine mutates.
type Tree struct {
	// LeafLimit is the face count above which [Tree.SplitIfOversized]
	// splits a leaf.
	LeafLimit int

	m     *mesh.Mesh
	nodes []node
}

// Build partitions the faces of m. A leafLimit of zero or less selects
// [DefaultLeafLimit]. Vertex and face node handles in m are overwritten.
func Build(m *mesh.Mesh, leafLimit int) *Tree {
	if leafLimit <= 0 {
		leafLimit = DefaultLeafLimit
	}
	t := &Tree{LeafLimit: leafLimit, m: m}
	root := t.newNode(mesh.NoNode)

	var faces []mesh.FaceID
	for f := range m.Faces() {
		faces = append(faces, f)
	}
	for v := range m.Verts() {
		m.Vert(v).Node = mesh.NoNode
	}
	t.build(root, faces, 0)

	for _, n := range t.Leaves() {
		for _, f := range t.nodes[n].faces.items {
			for _, v := range m.FaceVerts(f) {
				if m.Vert(v).Node == mesh.NoNode {
					t.addVert(v, n)
				}
			}
		}
	}
	for v := range m.Verts() {
		if m.Vert(v).Node == mesh.NoNode {
			t.InsertVert(v, mesh.NoNode)
		}
	}
	for _, n := range t.Leaves() {
		t.Refresh(n)
	}
	return t
}

func (t *Tree) newNode(parent mesh.NodeID) mesh.NodeID {
	t.nodes = append(t.nodes, node{
		flags:    Leaf,
		bounds:   EmptyBox(),
		children: [2]mesh.NodeID{mesh.NoNode, mesh.NoNode},
		parent:   parent,
	})
	return mesh.NodeID(len(t.nodes) - 1)
}

func (t *Tree) build(n mesh.NodeID, faces []mesh.FaceID, depth int) {
	if len(faces) > t.LeafLimit && depth < maxDepth {
		if axis, split, left, right, ok := t.partition(faces); ok {
			t.nodes[n].flags &^= Leaf
			t.nodes[n].axis, t.nodes[n].split = axis, split
			l, r := t.newNode(n), t.newNode(n)
			t.nodes[n].children = [2]mesh.NodeID{l, r}
			t.build(l, left, depth+1)
			t.build(r, right, depth+1)
			return
		}
	}
	for _, f := range faces {
		t.nodes[n].faces.add(f)
		t.m.Face(f).Node = n
	}
	t.nodes[n].flags |= UpdateBounds | UpdateTris
}

// partition splits faces at the median centroid along the longest axis of
// their centroid bounds.
func (t *Tree) partition(faces []mesh.FaceID) (axis int, split float64, left, right []mesh.FaceID, ok bool) {
	centers := make(map[mesh.FaceID]r3.Vec, len(faces))
	cb := EmptyBox()
	for _, f := range faces {
		c := t.m.FaceCenter(f)
		centers[f] = c
		cb.Extend(c)
	}
	axis = longestAxis(cb.Size())
	sorted := slices.Clone(faces)
	slices.SortStableFunc(sorted, func(a, b mesh.FaceID) int {
		return cmp.Compare(axisOf(centers[a], axis), axisOf(centers[b], axis))
	})
	at := func(i int) float64 { return axisOf(centers[sorted[i]], axis) }
	mid := len(sorted) / 2
	for mid < len(sorted) && at(mid) == at(0) {
		mid++
	}
	if mid == len(sorted) {
		return axis, 0, nil, nil, false
	}
	split = at(mid)
	for _, f := range sorted {
		if axisOf(centers[f], axis) < split {
			left = append(left, f)
		} else {
			right = append(right, f)
		}
	}
	return axis, split, left, right, len(left) > 0 && len(right) > 0
}

func (t *Tree) valid(n mesh.NodeID) bool {
	return n >= 0 && int(n) < len(t.nodes)
}

func (t *Tree) isLeaf(n mesh.NodeID) bool {
	return t.valid(n) && t.nodes[n].flags&Leaf != 0
}

// Locate returns the leaf whose region contains p.
func (t *Tree) Locate(p r3.Vec) mesh.NodeID {
	n := mesh.NodeID(0)
	for !t.isLeaf(n) {
		nd := &t.nodes[n]
		if axisOf(p, nd.axis) < nd.split {
			n = nd.children[0]
		} else {
			n = nd.children[1]
		}
	}
	return n
}

// =============================================================================
// Queries
// =============================================================================

// Nodes returns every node handle, inner nodes included.
func (t *Tree) Nodes() []mesh.NodeID {
	out := make([]mesh.NodeID, len(t.nodes))
	for i := range t.nodes {
		out[i] = mesh.NodeID(i)
	}
	return out
}

// Leaves returns the leaf handles.
func (t *Tree) Leaves() []mesh.NodeID {
	var out []mesh.NodeID
	for i := range t.nodes {
		if t.nodes[i].flags&Leaf != 0 {
			out = append(out, mesh.NodeID(i))
		}
	}
	return out
}

// Flags returns the flags of n.
func (t *Tree) Flags(n mesh.NodeID) Flag {
	if !t.valid(n) {
		return 0
	}
	return t.nodes[n].flags
}

// MarkDirty sets f on n.
func (t *Tree) MarkDirty(n mesh.NodeID, f Flag) {
	if t.valid(n) {
		t.nodes[n].flags |= f &^ Leaf
	}
}

// ClearFlags clears f on n. The [Leaf] bit cannot be cleared.
func (t *Tree) ClearFlags(n mesh.NodeID, f Flag) {
	if t.valid(n) {
		t.nodes[n].flags &^= f &^ Leaf
	}
}

// Faces returns a copy of the faces owned by n.
func (t *Tree) Faces(n mesh.NodeID) []mesh.FaceID {
	if !t.valid(n) {
		return nil
	}
	return slices.Clone(t.nodes[n].faces.items)
}

// Verts returns a copy of the vertices owned by n.
func (t *Tree) Verts(n mesh.NodeID) []mesh.VertID {
	if !t.valid(n) {
		return nil
	}
	return slices.Clone(t.nodes[n].verts.items)
}

// Bounds returns the box of n as of the last refresh or insertion.
func (t *Tree) Bounds(n mesh.NodeID) Box {
	if !t.valid(n) {
		return EmptyBox()
	}
	return t.nodes[n].bounds
}

// Tris returns the cached triangles of n. The cache is rebuilt by
// [Tree.Refresh].
func (t *Tree) Tris(n mesh.NodeID) [][3]mesh.VertID {
	if !t.valid(n) {
		return nil
	}
	return t.nodes[n].tris
}

// Parent returns the parent of n, or [mesh.NoNode] for the root.
func (t *Tree) Parent(n mesh.NodeID) mesh.NodeID {
	if !t.valid(n) {
		return mesh.NoNode
	}
	return t.nodes[n].parent
}

// Children returns the two children of an inner node.
func (t *Tree) Children(n mesh.NodeID) (mesh.NodeID, mesh.NodeID, bool) {
	if !t.valid(n) || t.nodes[n].flags&Leaf != 0 {
		return mesh.NoNode, mesh.NoNode, false
	}
	c := t.nodes[n].children
	return c[0], c[1], true
}

// =============================================================================
// Marking
// =============================================================================

// MarkAll sets f on every leaf.
func (t *Tree) MarkAll(f Flag) {
	for _, n := range t.Leaves() {
		t.MarkDirty(n, f)
	}
}

// MarkSphere flags every leaf touching the sphere at c with radius r for a
// topology update and returns how many were flagged.
func (t *Tree) MarkSphere(c r3.Vec, r float64) int {
	count := 0
	for _, n := range t.Leaves() {
		if t.nodes[n].bounds.IntersectsSphere(c, r) {
			t.nodes[n].flags |= UpdateTopology
			count++
		}
	}
	return count
}

// Hide sets or clears [FullyHidden] on n.
func (t *Tree) Hide(n mesh.NodeID, hidden bool) {
	if !t.valid(n) {
		return
	}
	if hidden {
		t.nodes[n].flags |= FullyHidden
	} else {
		t.nodes[n].flags &^= FullyHidden
	}
}

// =============================================================================
// Membership
// =============================================================================

// InsertFace adds f to hint when hint is a leaf, otherwise to the leaf
// containing the face center. Vertices of f without a leaf join the same
// node.
func (t *Tree) InsertFace(f mesh.FaceID, hint mesh.NodeID) mesh.NodeID {
	n := hint
	if !t.isLeaf(n) {
		n = t.Locate(t.m.FaceCenter(f))
	}
	nd := &t.nodes[n]
	nd.faces.add(f)
	t.m.Face(f).Node = n
	for _, v := range t.m.FaceVerts(f) {
		if !t.isLeaf(t.m.Vert(v).Node) {
			t.addVert(v, n)
		}
		nd.bounds.Extend(t.m.Vert(v).Co)
	}
	nd.flags |= UpdateTris | UpdateNormals
	return n
}

// RemoveFace removes f from its leaf.
func (t *Tree) RemoveFace(f mesh.FaceID) {
	fp := t.m.Face(f)
	if t.valid(fp.Node) && t.nodes[fp.Node].faces.remove(f) {
		t.nodes[fp.Node].flags |= UpdateTris | UpdateBounds | UpdateNormals
	}
	fp.Node = mesh.NoNode
}

// InsertVert adds v to hint when hint is a leaf, otherwise to the leaf
// containing its position.
func (t *Tree) InsertVert(v mesh.VertID, hint mesh.NodeID) mesh.NodeID {
	n := hint
	if !t.isLeaf(n) {
		n = t.Locate(t.m.Vert(v).Co)
	}
	t.addVert(v, n)
	return n
}

func (t *Tree) addVert(v mesh.VertID, n mesh.NodeID) {
	vp := t.m.Vert(v)
	if t.valid(vp.Node) {
		t.nodes[vp.Node].verts.remove(v)
	}
	t.nodes[n].verts.add(v)
	t.nodes[n].bounds.Extend(vp.Co)
	vp.Node = n
}

// RemoveVert removes v from its leaf.
func (t *Tree) RemoveVert(v mesh.VertID) {
	vp := t.m.Vert(v)
	if t.valid(vp.Node) && t.nodes[vp.Node].verts.remove(v) {
		t.nodes[vp.Node].flags |= UpdateBounds
	}
	vp.Node = mesh.NoNode
}

// SplitIfOversized splits leaf n in two when it holds more than
// [Tree.LeafLimit] faces, recursing into the halves.
func (t *Tree) SplitIfOversized(n mesh.NodeID) {
	t.splitIfOversized(n, t.depth(n))
}

func (t *Tree) depth(n mesh.NodeID) int {
	d := 0
	for p := t.Parent(n); p != mesh.NoNode; p = t.Parent(p) {
		d++
	}
	return d
}

func (t *Tree) splitIfOversized(n mesh.NodeID, depth int) {
	if !t.isLeaf(n) || t.nodes[n].faces.len() <= t.LeafLimit || depth >= maxDepth {
		return
	}
	axis, split, left, right, ok := t.partition(t.nodes[n].faces.items)
	if !ok {
		return
	}
	verts := slices.Clone(t.nodes[n].verts.items)
	inherit := t.nodes[n].flags & (UpdateTopology | FullyHidden)

	l, r := t.newNode(n), t.newNode(n)
	nd := &t.nodes[n]
	nd.flags &^= Leaf
	nd.axis, nd.split = axis, split
	nd.children = [2]mesh.NodeID{l, r}
	nd.faces.clear()
	nd.verts.clear()
	nd.tris = nil

	for i, faces := range [2][]mesh.FaceID{left, right} {
		c := nd.children[i]
		t.nodes[c].flags |= inherit | UpdateBounds | UpdateTris | UpdateNormals
		for _, f := range faces {
			t.nodes[c].faces.add(f)
			t.m.Face(f).Node = c
		}
	}
	for _, v := range verts {
		t.m.Vert(v).Node = mesh.NoNode
		target := mesh.NoNode
		for _, f := range t.m.VertFaces(v) {
			if fn := t.m.Face(f).Node; fn == l || fn == r {
				target = fn
				break
			}
		}
		if target == mesh.NoNode {
			target = t.Locate(t.m.Vert(v).Co)
		}
		t.addVert(v, target)
	}
	t.Refresh(l)
	t.Refresh(r)
	t.splitIfOversized(l, depth+1)
	t.splitIfOversized(r, depth+1)
}

// Refresh rebuilds the triangle cache and bounds of leaf n and recomputes
// normals when [UpdateNormals] is set.
func (t *Tree) Refresh(n mesh.NodeID) {
	if !t.isLeaf(n) {
		return
	}
	nd := &t.nodes[n]
	if nd.flags&UpdateNormals != 0 {
		for _, f := range nd.faces.items {
			t.m.UpdateFaceNormal(f)
		}
		for _, v := range nd.verts.items {
			t.m.UpdateVertNormal(v)
		}
	}

	nd.bounds = EmptyBox()
	nd.tris = nd.tris[:0]
	for _, f := range nd.faces.items {
		vs := t.m.FaceVerts(f)
		for i := 1; i+1 < len(vs); i++ {
			nd.tris = append(nd.tris, [3]mesh.VertID{vs[0], vs[i], vs[i+1]})
		}
		for _, v := range vs {
			nd.bounds.Extend(t.m.Vert(v).Co)
		}
	}
	for _, v := range nd.verts.items {
		nd.bounds.Extend(t.m.Vert(v).Co)
	}
	nd.flags &^= UpdateBounds | UpdateTris | UpdateNormals
}

// Validate checks that every live face and every vertex with faces is owned
// by exactly the leaf it names, and that leaves own only live elements.
func (t *Tree) Validate() error {
	for f := range t.m.Faces() {
		n := t.m.Face(f).Node
		if !t.isLeaf(n) || !t.nodes[n].faces.has(f) {
			return fmt.Errorf("%w: face %d claims node %d", ErrInvalidTree, f, n)
		}
	}
	for v := range t.m.Verts() {
		if t.m.Degree(v) == 0 {
			continue
		}
		n := t.m.Vert(v).Node
		if !t.isLeaf(n) || !t.nodes[n].verts.has(v) {
			return fmt.Errorf("%w: vertex %d claims node %d", ErrInvalidTree, v, n)
		}
	}
	for i := range t.nodes {
		nd := &t.nodes[i]
		if nd.flags&Leaf == 0 && (nd.faces.len() > 0 || nd.verts.len() > 0) {
			return fmt.Errorf("%w: inner node %d owns elements", ErrInvalidTree, i)
		}
		for _, f := range nd.faces.items {
			if !t.m.FaceAlive(f) {
				return fmt.Errorf("%w: node %d owns dead face %d", ErrInvalidTree, i, f)
			}
		}
		for _, v := range nd.verts.items {
			if !t.m.VertAlive(v) {
				return fmt.Errorf("%w: node %d owns dead vertex %d", ErrInvalidTree, i, v)
			}
		}
	}
	return nil
}

package dyntopo

import (
	"sync/atomic"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/dyntopo/pkg/mesh"
	"github.com/matzehuels/dyntopo/pkg/spatial"
)

// Processing tags. They are set with compare-and-swap during collection
// and cleared before the pass mutates the mesh.
const (
	tagQueued uint32 = 1 << iota
	tagCollected
	tagVisited
	tagWorklist
	tagSmoothed
)

// nodeDirty is what every structural edit marks on the touched leaf.
const nodeDirty = spatial.UpdateTris | spatial.UpdateBounds | spatial.UpdateNormals

// editor wraps the mesh kernel so every structural edit is mirrored to the
// undo log, the spatial index and the statistics.
type editor struct {
	m         *mesh.Mesh
	index     SpatialIndex
	undo      UndoLog
	tri       Triangulator
	log       *log.Logger
	stop      *atomic.Bool
	maxDegree int
	stats     Stats
}

func (ed *editor) stopped() bool {
	return ed.stop != nil && ed.stop.Load()
}

func (ed *editor) leaf(n mesh.NodeID) bool {
	return n != mesh.NoNode && ed.index.Flags(n)&spatial.Leaf != 0
}

func (ed *editor) newVert(co, no r3.Vec, hint mesh.NodeID) mesh.VertID {
	v := ed.m.AddVert(co)
	vp := ed.m.Vert(v)
	vp.No, vp.OrigNo = no, no
	n := ed.index.InsertVert(v, hint)
	ed.index.MarkDirty(n, nodeDirty)
	ed.undo.VertAdded(v)
	ed.stats.VertsAdded++
	return v
}

func (ed *editor) ensureEdge(a, b mesh.VertID) (mesh.EdgeID, bool) {
	e, created := ed.m.EnsureEdge(a, b)
	if created {
		ed.undo.EdgeAdded(e)
		ed.stats.EdgesAdded++
	}
	return e, created
}

// newFace creates a face over vs in the given winding, copying data[i] into
// corner i when present, and returns the face with the edges it had to
// create. It returns [mesh.NoFace] when the face is degenerate or exists.
func (ed *editor) newFace(vs []mesh.VertID, hint mesh.NodeID, data [][]float64) (mesh.FaceID, []mesh.EdgeID) {
	var created []mesh.EdgeID
	if ed.m.FindFace(vs...) != mesh.NoFace {
		ed.log.Debug("skipping duplicate face", "verts", vs)
		return mesh.NoFace, nil
	}
	for i := range vs {
		if e, ok := ed.ensureEdge(vs[i], vs[(i+1)%len(vs)]); ok {
			created = append(created, e)
		}
	}
	f, err := ed.m.AddFace(vs...)
	if err != nil {
		ed.log.Debug("face rejected", "verts", vs, "err", err)
		for _, e := range created {
			ed.killEdge(e)
		}
		return mesh.NoFace, nil
	}
	if data != nil {
		for i, l := range ed.m.FaceLoops(f) {
			if i < len(data) && len(data[i]) == len(ed.m.Loop(l).Data) {
				copy(ed.m.Loop(l).Data, data[i])
			}
		}
	}
	n := ed.index.InsertFace(f, hint)
	ed.index.MarkDirty(n, nodeDirty)
	ed.undo.FaceAdded(f)
	ed.stats.FacesAdded++
	for _, v := range vs {
		ed.m.Vert(v).Flags |= mesh.NeedValence | mesh.NeedBoundary
	}
	return f, created
}

func (ed *editor) killFace(f mesh.FaceID) {
	if !ed.m.FaceAlive(f) {
		return
	}
	ed.undo.FaceRemoved(f)
	if n := ed.m.Face(f).Node; n != mesh.NoNode {
		ed.index.MarkDirty(n, nodeDirty)
	}
	ed.index.RemoveFace(f)
	ed.m.KillFace(f)
	ed.stats.FacesRemoved++
}

func (ed *editor) killEdge(e mesh.EdgeID) {
	if !ed.m.EdgeAlive(e) {
		return
	}
	for _, f := range ed.m.EdgeFaces(e) {
		ed.killFace(f)
	}
	ed.undo.EdgeRemoved(e)
	ed.m.KillEdge(e)
	ed.stats.EdgesRemoved++
}

func (ed *editor) killVert(v mesh.VertID) {
	if !ed.m.VertAlive(v) {
		return
	}
	for _, e := range ed.m.VertEdges(v) {
		ed.killEdge(e)
	}
	ed.undo.VertRemoved(v)
	if n := ed.m.Vert(v).Node; n != mesh.NoNode {
		ed.index.MarkDirty(n, spatial.UpdateBounds)
	}
	ed.index.RemoveVert(v)
	ed.m.KillVert(v)
	ed.stats.VertsRemoved++
}

// pruneWire kills the given edges that lost all faces, then the given
// vertices that lost all edges.
func (ed *editor) pruneWire(edges []mesh.EdgeID, verts []mesh.VertID) {
	for _, e := range edges {
		if ed.m.EdgeAlive(e) && ed.m.RadialCount(e) == 0 {
			ed.killEdge(e)
		}
	}
	for _, v := range verts {
		if ed.m.VertAlive(v) && ed.m.Degree(v) == 0 {
			ed.killVert(v)
		}
	}
}

// snapshot copies the loop data of a face corner.
func (ed *editor) snapshot(l mesh.LoopID) []float64 {
	return append([]float64(nil), ed.m.Loop(l).Data...)
}

// touch refreshes the normals of the faces around v and flags v and its
// neighbours for reclassification.
func (ed *editor) touch(v mesh.VertID) {
	if !ed.m.VertAlive(v) {
		return
	}
	for _, f := range ed.m.VertFaces(v) {
		ed.m.UpdateFaceNormal(f)
	}
	ed.m.UpdateVertNormal(v)
	ed.m.Vert(v).Flags |= mesh.NeedValence | mesh.NeedBoundary
	if n := ed.m.Vert(v).Node; n != mesh.NoNode {
		ed.index.MarkDirty(n, nodeDirty)
	}
}

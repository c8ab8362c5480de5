package dyntopo

import (
	"slices"

	"github.com/matzehuels/dyntopo/pkg/mesh"
)

// repairFins deletes the smallest flap hanging off the non-manifold edge e.
//
// Starting from each face around e, faces are flood filled across edges
// with exactly two faces. Components above [MaxFinFaces] are not
// candidates. The smallest candidate is deleted along with the edges and
// vertices it leaves without faces.
func (ed *editor) repairFins(e mesh.EdgeID) bool {
	if !ed.m.EdgeAlive(e) || ed.m.RadialCount(e) <= 2 {
		return false
	}
	var best []mesh.FaceID
	for _, f := range ed.m.EdgeFaces(e) {
		comp, ok := ed.finComponent(f)
		if !ok {
			continue
		}
		if best == nil || len(comp) < len(best) {
			best = comp
		}
	}
	if best == nil {
		ed.log.Debug("fin too large to repair", "edge", e, "faces", ed.m.RadialCount(e))
		return false
	}

	var edges []mesh.EdgeID
	var verts []mesh.VertID
	for _, f := range best {
		for _, l := range ed.m.FaceLoops(f) {
			lp := ed.m.Loop(l)
			if !slices.Contains(edges, lp.E) {
				edges = append(edges, lp.E)
			}
			if !slices.Contains(verts, lp.V) {
				verts = append(verts, lp.V)
			}
		}
	}
	for _, f := range best {
		ed.killFace(f)
	}
	ed.pruneWire(edges, verts)
	for _, v := range verts {
		ed.touch(v)
	}
	ed.stats.FinsRemoved++
	return true
}

// finComponent returns the faces reachable from start across manifold
// edges, or false when there are more than [MaxFinFaces].
func (ed *editor) finComponent(start mesh.FaceID) ([]mesh.FaceID, bool) {
	var visited []mesh.FaceID
	defer func() {
		for _, f := range visited {
			ed.m.ClearFaceTag(f, tagVisited)
		}
	}()

	ed.m.TrySetFaceTag(start, tagVisited)
	visited = append(visited, start)
	stack := []mesh.FaceID{start}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if len(visited) > MaxFinFaces {
			return nil, false
		}
		for _, l := range ed.m.FaceLoops(f) {
			lp := ed.m.Loop(l)
			if ed.m.RadialCount(lp.E) != 2 {
				continue
			}
			other := ed.m.Loop(lp.RadialNext).F
			if ed.m.TrySetFaceTag(other, tagVisited) {
				visited = append(visited, other)
				stack = append(stack, other)
			}
		}
	}
	return slices.Clone(visited), true
}

// checkFins repairs every non-manifold edge of the faces around v and
// reports whether anything changed.
func (ed *editor) checkFins(v mesh.VertID) bool {
	if !ed.m.VertAlive(v) {
		return false
	}
	var suspects []mesh.EdgeID
	for _, f := range ed.m.VertFaces(v) {
		for _, e := range ed.m.FaceEdges(f) {
			if ed.m.RadialCount(e) > 2 && !slices.Contains(suspects, e) {
				suspects = append(suspects, e)
			}
		}
	}
	modified := false
	for _, e := range suspects {
		if ed.repairFins(e) {
			modified = true
		}
	}
	return modified
}

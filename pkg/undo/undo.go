// Package undo records structural mesh edits as a journal of grouped
// entries.
//
// A [Log] receives one callback per created or destroyed vertex, edge and
// face. [Log.Checkpoint] closes the current group under a fresh UUID so a
// history browser can address it. Removal callbacks arrive before the
// element dies, so entries capture the element as it was.
package undo

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/dyntopo/pkg/mesh"
)

// Kind is the element kind of an entry.
type Kind uint8

const (
	KindVert Kind = iota
	KindEdge
	KindFace
)

func (k Kind) String() string {
	switch k {
	case KindVert:
		return "vert"
	case KindEdge:
		return "edge"
	default:
		return "face"
	}
}

// Action says whether an element was added or removed.
type Action uint8

const (
	Added Action = iota
	Removed
)

func (a Action) String() string {
	if a == Added {
		return "added"
	}
	return "removed"
}

// Entry is one journaled edit.
type Entry struct {
	Kind   Kind
	Action Action
	ID     int
	// Co is the vertex position for vertex entries.
	Co r3.Vec
	// Verts lists the vertices of an edge or face.
	Verts []mesh.VertID
}

func (e Entry) String() string {
	return fmt.Sprintf("%s %d %s", e.Kind, e.ID, e.Action)
}

// Checkpoint is a closed group of entries.
type Checkpoint struct {
	ID    uuid.UUID
	Start int
	End   int
	At    time.Time
}

// Len returns the number of entries in the group.
func (c Checkpoint) Len() int { return c.End - c.Start }

// Log is an in-memory journal. It is not safe for concurrent use.
type Log struct {
	m           *mesh.Mesh
	entries     []Entry
	checkpoints []Checkpoint
	open        int
	counts      [3][2]int
	now         func() time.Time
}

// New returns an empty journal for m.
func New(m *mesh.Mesh) *Log {
	return &Log{m: m, now: time.Now}
}

func (l *Log) record(k Kind, a Action, id int, co r3.Vec, verts []mesh.VertID) {
	l.entries = append(l.entries, Entry{Kind: k, Action: a, ID: id, Co: co, Verts: verts})
	l.counts[k][a]++
}

func (l *Log) VertAdded(v mesh.VertID) {
	l.record(KindVert, Added, int(v), l.m.Vert(v).Co, nil)
}

func (l *Log) VertRemoved(v mesh.VertID) {
	l.record(KindVert, Removed, int(v), l.m.Vert(v).Co, nil)
}

func (l *Log) EdgeAdded(e mesh.EdgeID) {
	ep := l.m.Edge(e)
	l.record(KindEdge, Added, int(e), r3.Vec{}, []mesh.VertID{ep.V1, ep.V2})
}

func (l *Log) EdgeRemoved(e mesh.EdgeID) {
	ep := l.m.Edge(e)
	l.record(KindEdge, Removed, int(e), r3.Vec{}, []mesh.VertID{ep.V1, ep.V2})
}

func (l *Log) FaceAdded(f mesh.FaceID) {
	l.record(KindFace, Added, int(f), r3.Vec{}, l.m.FaceVerts(f))
}

func (l *Log) FaceRemoved(f mesh.FaceID) {
	l.record(KindFace, Removed, int(f), r3.Vec{}, l.m.FaceVerts(f))
}

// Checkpoint closes the current group, even when it is empty.
func (l *Log) Checkpoint() {
	l.checkpoints = append(l.checkpoints, Checkpoint{
		ID:    uuid.New(),
		Start: l.open,
		End:   len(l.entries),
		At:    l.now(),
	})
	l.open = len(l.entries)
}

// Entries returns every entry recorded so far.
func (l *Log) Entries() []Entry { return l.entries }

// Checkpoints returns the closed groups in order.
func (l *Log) Checkpoints() []Checkpoint { return l.checkpoints }

// Pending returns the number of entries after the last checkpoint.
func (l *Log) Pending() int { return len(l.entries) - l.open }

// Group returns the entries of the checkpoint with the given ID.
func (l *Log) Group(id uuid.UUID) ([]Entry, bool) {
	for _, c := range l.checkpoints {
		if c.ID == id {
			return l.entries[c.Start:c.End], true
		}
	}
	return nil, false
}

// Count returns how many entries of kind k and action a were recorded.
func (l *Log) Count(k Kind, a Action) int { return l.counts[k][a] }

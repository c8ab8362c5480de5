package undo

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/dyntopo/pkg/mesh"
)

func TestLog(t *testing.T) {
	m := mesh.New()
	l := New(m)

	a := m.AddVert(r3.Vec{})
	l.VertAdded(a)
	b := m.AddVert(r3.Vec{X: 1})
	l.VertAdded(b)
	c := m.AddVert(r3.Vec{Y: 1})
	l.VertAdded(c)
	f, err := m.AddFace(a, b, c)
	if err != nil {
		t.Fatalf("AddFace() error: %v", err)
	}
	l.FaceAdded(f)
	l.Checkpoint()

	l.FaceRemoved(f)
	m.KillFace(f)
	if got := l.Pending(); got != 1 {
		t.Errorf("Pending() = %d, want 1", got)
	}
	l.Checkpoint()

	cps := l.Checkpoints()
	if len(cps) != 2 {
		t.Fatalf("len(Checkpoints()) = %d, want 2", len(cps))
	}
	if cps[0].Len() != 4 || cps[1].Len() != 1 {
		t.Errorf("checkpoint sizes = %d, %d, want 4, 1", cps[0].Len(), cps[1].Len())
	}
	if cps[0].ID == cps[1].ID {
		t.Errorf("checkpoint IDs are equal")
	}

	group, ok := l.Group(cps[1].ID)
	if !ok || len(group) != 1 {
		t.Fatalf("Group() = %v, %v, want one entry", group, ok)
	}
	removed := group[0]
	if removed.Kind != KindFace || removed.Action != Removed || len(removed.Verts) != 3 {
		t.Errorf("Group()[0] = %+v, want face removal with 3 verts", removed)
	}

	tests := []struct {
		k    Kind
		a    Action
		want int
	}{
		{KindVert, Added, 3},
		{KindVert, Removed, 0},
		{KindFace, Added, 1},
		{KindFace, Removed, 1},
	}
	for _, tt := range tests {
		if got := l.Count(tt.k, tt.a); got != tt.want {
			t.Errorf("Count(%v, %v) = %d, want %d", tt.k, tt.a, got, tt.want)
		}
	}
}

func TestEmptyCheckpoint(t *testing.T) {
	l := New(mesh.New())
	l.Checkpoint()
	if cps := l.Checkpoints(); len(cps) != 1 || cps[0].Len() != 0 {
		t.Errorf("Checkpoints() = %v, want one empty group", cps)
	}
}

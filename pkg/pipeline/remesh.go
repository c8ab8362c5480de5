package pipeline

import (
	"context"

	"github.com/matzehuels/dyntopo/pkg/dyntopo"
	"github.com/matzehuels/dyntopo/pkg/errors"
	"github.com/matzehuels/dyntopo/pkg/mesh"
	"github.com/matzehuels/dyntopo/pkg/spatial"
	"github.com/matzehuels/dyntopo/pkg/undo"
)

// Session bundles the state of remeshing one mesh: its spatial index, its
// undo journal and the remesher.
type Session struct {
	Mesh     *mesh.Mesh
	Tree     *spatial.Tree
	Undo     *undo.Log
	Remesher *dyntopo.Remesher
}

// NewSession indexes m and prepares a remesher configured by opts.
func NewSession(m *mesh.Mesh, opts Options) (*Session, error) {
	if err := opts.ValidateForRemesh(); err != nil {
		return nil, err
	}
	tree := spatial.Build(m, opts.LeafLimit)
	r := dyntopo.New(m, tree)
	r.Logger = opts.Logger
	log := undo.New(m)
	r.Undo = log

	size, _ := r.DetailSize()
	if opts.DetailSize > 0 {
		size = opts.DetailSize
	}
	if err := errors.ValidateDetail(size, opts.DetailRatio); err != nil {
		return nil, err
	}
	r.SetDetailSize(size, opts.DetailRatio)
	return &Session{Mesh: m, Tree: tree, Undo: log, Remesher: r}, nil
}

// Mark flags the leaves the next pass visits: the brush sphere, or the
// whole mesh without a brush.
func (s *Session) Mark(opts Options) int {
	if opts.Brush != nil {
		sp := opts.Brush.Sphere()
		return s.Tree.MarkSphere(sp.Center, sp.Radius)
	}
	s.Tree.MarkAll(spatial.UpdateTopology)
	return len(s.Tree.Leaves())
}

// Remesh runs up to opts.Passes passes over m, stopping early once a pass
// leaves the mesh unchanged.
func Remesh(ctx context.Context, s *Session, opts Options) (RemeshInfo, error) {
	if err := opts.ValidateForRemesh(); err != nil {
		return RemeshInfo{}, err
	}
	pass, err := opts.PassOptions(s.Mesh)
	if err != nil {
		return RemeshInfo{}, err
	}

	var info RemeshInfo
	before := s.Remesher.Stats()
	for i := range opts.Passes {
		if s.Mark(opts) == 0 {
			break
		}
		modified := s.Remesher.Remesh(ctx, pass)
		info.Passes++
		if err := ctx.Err(); err != nil {
			return info, errors.Wrap(errors.ErrCodeInternal, err, "remesh pass %d", i+1)
		}
		opts.Logger.Debug("remesh pass", "pass", i+1, "modified", modified,
			"verts", s.Mesh.NumVerts(), "faces", s.Mesh.NumFaces())
		if !modified {
			break
		}
	}
	info.Edits = diffStats(s.Remesher.Stats(), before)
	info.Checkpoints = len(s.Undo.Checkpoints())
	info.Verts = s.Mesh.NumVerts()
	info.Faces = s.Mesh.NumFaces()
	return info, nil
}

func diffStats(a, b dyntopo.Stats) dyntopo.Stats {
	return dyntopo.Stats{
		VertsAdded:   a.VertsAdded - b.VertsAdded,
		VertsRemoved: a.VertsRemoved - b.VertsRemoved,
		EdgesAdded:   a.EdgesAdded - b.EdgesAdded,
		EdgesRemoved: a.EdgesRemoved - b.EdgesRemoved,
		FacesAdded:   a.FacesAdded - b.FacesAdded,
		FacesRemoved: a.FacesRemoved - b.FacesRemoved,
		Splits:       a.Splits - b.Splits,
		Collapses:    a.Collapses - b.Collapses,
		FinsRemoved:  a.FinsRemoved - b.FinsRemoved,
		Dissolved:    a.Dissolved - b.Dissolved,
		Steps:        a.Steps - b.Steps,
	}
}

package dyntopo

import "fmt"

// Stats counts the structural edits of a pass.
type Stats struct {
	VertsAdded   int `json:"verts_added"`
	VertsRemoved int `json:"verts_removed"`
	EdgesAdded   int `json:"edges_added"`
	EdgesRemoved int `json:"edges_removed"`
	FacesAdded   int `json:"faces_added"`
	FacesRemoved int `json:"faces_removed"`

	Splits      int `json:"splits"`
	Collapses   int `json:"collapses"`
	FinsRemoved int `json:"fins_removed"`
	Dissolved   int `json:"dissolved"`
	Steps       int `json:"steps"`
}

// Changed reports whether any element was added or removed.
func (s Stats) Changed() bool {
	return s.VertsAdded+s.VertsRemoved+s.EdgesAdded+s.EdgesRemoved+s.FacesAdded+s.FacesRemoved > 0
}

// Add returns the field-wise sum of s and o.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		VertsAdded:   s.VertsAdded + o.VertsAdded,
		VertsRemoved: s.VertsRemoved + o.VertsRemoved,
		EdgesAdded:   s.EdgesAdded + o.EdgesAdded,
		EdgesRemoved: s.EdgesRemoved + o.EdgesRemoved,
		FacesAdded:   s.FacesAdded + o.FacesAdded,
		FacesRemoved: s.FacesRemoved + o.FacesRemoved,
		Splits:       s.Splits + o.Splits,
		Collapses:    s.Collapses + o.Collapses,
		FinsRemoved:  s.FinsRemoved + o.FinsRemoved,
		Dissolved:    s.Dissolved + o.Dissolved,
		Steps:        s.Steps + o.Steps,
	}
}

func (s Stats) String() string {
	return fmt.Sprintf("verts +%d/-%d, edges +%d/-%d, faces +%d/-%d, %d splits, %d collapses",
		s.VertsAdded, s.VertsRemoved, s.EdgesAdded, s.EdgesRemoved,
		s.FacesAdded, s.FacesRemoved, s.Splits, s.Collapses)
}

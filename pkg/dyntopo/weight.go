package dyntopo

import (
	"math"

	"github.com/matzehuels/dyntopo/pkg/mesh"
)

// minCollapseBoost keeps fully protected short edges ordered by length
// instead of all scoring zero.
const minCollapseBoost = 1e-3

// WeightPolicy scores edges for the heap and decides whether they qualify
// for an operation.
//
// Scores only reorder: the split score of an edge above the maximum length
// grows with its editability, and the collapse score of an edge below the
// minimum length shrinks with it, so editable regions pop first. Whether an
// edge qualifies always depends on its true length.
type WeightPolicy struct {
	m     *mesh.Mesh
	mask  MaskFunc
	mode  Mode
	minSq float64
	maxSq float64
}

// NewWeightPolicy returns a policy for edges of m with the given length
// thresholds. A nil mask treats every vertex as fully editable.
func NewWeightPolicy(m *mesh.Mesh, mask MaskFunc, mode Mode, minLen, maxLen float64) *WeightPolicy {
	if mask == nil {
		mask = fullMask
	}
	return &WeightPolicy{
		m:     m,
		mask:  mask,
		mode:  mode.normalize(),
		minSq: minLen * minLen,
		maxSq: maxLen * maxLen,
	}
}

// Limits returns the minimum and maximum edge lengths.
func (w *WeightPolicy) Limits() (minLen, maxLen float64) {
	return math.Sqrt(w.minSq), math.Sqrt(w.maxSq)
}

func (w *WeightPolicy) maskMin(e mesh.EdgeID) float64 {
	ep := w.m.Edge(e)
	return clamp01(min(w.mask(ep.V1), w.mask(ep.V2)))
}

// SplitScore returns the heap weight of e as a split candidate.
func (w *WeightPolicy) SplitScore(e mesh.EdgeID) float64 {
	return splitScore(w.m.EdgeLenSq(e), w.maxSq, w.maskMin(e))
}

// CollapseScore returns the heap weight of e as a collapse candidate.
func (w *WeightPolicy) CollapseScore(e mesh.EdgeID) float64 {
	return collapseScore(w.m.EdgeLenSq(e), w.minSq, w.maskMin(e))
}

// QualifiesSplit reports whether e is longer than the maximum length.
func (w *WeightPolicy) QualifiesSplit(e mesh.EdgeID) bool {
	return w.m.EdgeLenSq(e) > w.maxSq
}

// QualifiesCollapse reports whether e is shorter than the minimum length.
func (w *WeightPolicy) QualifiesCollapse(e mesh.EdgeID) bool {
	return w.m.EdgeLenSq(e) < w.minSq
}

// Test returns the operation e qualifies for under the policy's mode and
// its score for that operation. Splitting wins when both apply.
func (w *WeightPolicy) Test(e mesh.EdgeID) (Op, float64) {
	lenSq := w.m.EdgeLenSq(e)
	if w.mode&Subdivide != 0 && lenSq > w.maxSq {
		return OpSubdivide, splitScore(lenSq, w.maxSq, w.maskMin(e))
	}
	if w.mode&Collapse != 0 && lenSq < w.minSq {
		return OpCollapse, collapseScore(lenSq, w.minSq, w.maskMin(e))
	}
	return OpNone, 0
}

// Score returns the score of e for op.
func (w *WeightPolicy) Score(e mesh.EdgeID, op Op) float64 {
	if op == OpCollapse {
		return w.CollapseScore(e)
	}
	return w.SplitScore(e)
}

func splitScore(lenSq, maxSq, maskMin float64) float64 {
	if lenSq <= maxSq {
		return lenSq
	}
	return lenSq * (1 + maskMin)
}

func collapseScore(lenSq, minSq, maskMin float64) float64 {
	if lenSq >= minSq {
		return lenSq
	}
	return lenSq * max(math.Pow(1-maskMin, 5), minCollapseBoost)
}

func clamp01(x float64) float64 {
	switch {
	case x < 0 || math.IsNaN(x):
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}

package dyntopo

// splitPatterns retriangulates a triangle whose edges are split at the
// same time. The face is first rebuilt as a polygon starting at its first
// corner, with a midpoint corner inserted after every split edge. Bit j of
// the index is set when corner j of that polygon is a midpoint.
//
// Entry layout: {n, c0, ..., c(n-1)}. n is the polygon size and cj the
// corner that corner j connects to by a new diagonal, -1 for none. A lone
// -1 marks masks that a triangle cannot produce.
var splitPatterns = [43][]int8{
	{-1},
	{-1},
	{4, -1, 3, -1, -1},
	{-1},
	{4, -1, -1, 0, -1},
	{-1},
	{-1},
	{-1},
	{4, -1, -1, -1, 1},
	{-1},
	{5, -1, 3, -1, 0, -1},
	{-1},
	{-1},
	{-1},
	{-1},
	{-1},
	{-1},
	{-1},
	{5, -1, 3, -1, -1, 1},
	{-1},
	{5, -1, -1, 4, -1, 1},
	{-1},
	{-1},
	{-1},
	{-1},
	{-1},
	{-1},
	{-1},
	{-1},
	{-1},
	{-1},
	{-1},
	{-1},
	{-1},
	{-1},
	{-1},
	{-1},
	{-1},
	{-1},
	{-1},
	{-1},
	{-1},
	{6, -1, 3, -1, 5, -1, 1},
}

// splitPattern returns the triangles, as polygon corner indices, that the
// pattern for mask cuts an n-gon into. ok is false on a table miss or when
// the entry does not fit n.
func splitPattern(mask, n int) (tris [][3]int, ok bool) {
	if mask < 0 || mask >= len(splitPatterns) {
		return nil, false
	}
	pat := splitPatterns[mask]
	if pat[0] < 0 || int(pat[0]) != n || len(pat) != n+1 {
		return nil, false
	}

	polys := [][]int{make([]int, n)}
	for i := range n {
		polys[0][i] = i
	}
	for j := range n {
		c := int(pat[j+1])
		if c < 0 {
			continue
		}
		polys = cutPolygon(polys, j, c)
	}

	for _, p := range polys {
		if len(p) != 3 {
			return nil, false
		}
		tris = append(tris, [3]int{p[0], p[1], p[2]})
	}
	return tris, true
}

// cutPolygon splits the polygon holding both a and b along the diagonal
// between them. Corners that are already adjacent leave polys unchanged.
func cutPolygon(polys [][]int, a, b int) [][]int {
	for pi, p := range polys {
		ia, ib := -1, -1
		for i, c := range p {
			switch c {
			case a:
				ia = i
			case b:
				ib = i
			}
		}
		if ia < 0 || ib < 0 {
			continue
		}
		if ia > ib {
			ia, ib = ib, ia
		}
		if ib-ia == 1 || (ia == 0 && ib == len(p)-1) {
			return polys
		}
		first := append([]int(nil), p[ia:ib+1]...)
		second := append(append([]int(nil), p[ib:]...), p[:ia+1]...)
		out := append([][]int(nil), polys[:pi]...)
		out = append(out, first, second)
		return append(out, polys[pi+1:]...)
	}
	return polys
}

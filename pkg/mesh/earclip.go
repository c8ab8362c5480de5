package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// EarClip triangulates a simple polygon given in winding order and returns
// index triples into pts with the polygon's winding. Degenerate input that
// leaves no clippable ear falls back to a fan over the remaining corners,
// so the result always has len(pts)-2 triangles.
func EarClip(pts []r3.Vec) [][3]int {
	n := len(pts)
	if n < 3 {
		return nil
	}
	if n == 3 {
		return [][3]int{{0, 1, 2}}
	}

	p2 := project(pts)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	tris := make([][3]int, 0, n-2)
	for len(idx) > 3 {
		ear := -1
		for i := range idx {
			a, b, c := idx[(i+len(idx)-1)%len(idx)], idx[i], idx[(i+1)%len(idx)]
			if cross2(p2[a], p2[b], p2[c]) <= 1e-12 {
				continue
			}
			inside := false
			for _, j := range idx {
				if j == a || j == b || j == c {
					continue
				}
				if pointInTri(p2[j], p2[a], p2[b], p2[c]) {
					inside = true
					break
				}
			}
			if !inside {
				ear = i
				break
			}
		}
		if ear < 0 {
			for i := 1; i+1 < len(idx); i++ {
				tris = append(tris, [3]int{idx[0], idx[i], idx[i+1]})
			}
			return tris
		}
		a, b, c := idx[(ear+len(idx)-1)%len(idx)], idx[ear], idx[(ear+1)%len(idx)]
		tris = append(tris, [3]int{a, b, c})
		idx = append(idx[:ear], idx[ear+1:]...)
	}
	return append(tris, [3]int{idx[0], idx[1], idx[2]})
}

// project maps pts onto the plane orthogonal to their dominant normal axis
// such that counter-clockwise winding around the normal stays positive.
func project(pts []r3.Vec) [][2]float64 {
	var nrm r3.Vec
	for i, a := range pts {
		b := pts[(i+1)%len(pts)]
		nrm.X += (a.Y - b.Y) * (a.Z + b.Z)
		nrm.Y += (a.Z - b.Z) * (a.X + b.X)
		nrm.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	ax, ay, az := math.Abs(nrm.X), math.Abs(nrm.Y), math.Abs(nrm.Z)

	out := make([][2]float64, len(pts))
	for i, p := range pts {
		switch {
		case az >= ax && az >= ay:
			out[i] = [2]float64{p.X, p.Y}
			if nrm.Z < 0 {
				out[i][0] = -p.X
			}
		case ax >= ay:
			out[i] = [2]float64{p.Y, p.Z}
			if nrm.X < 0 {
				out[i][0] = -p.Y
			}
		default:
			out[i] = [2]float64{p.Z, p.X}
			if nrm.Y < 0 {
				out[i][0] = -p.Z
			}
		}
	}
	return out
}

func cross2(a, b, c [2]float64) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func pointInTri(p, a, b, c [2]float64) bool {
	return cross2(a, b, p) >= 0 && cross2(b, c, p) >= 0 && cross2(c, a, p) >= 0
}

package geom

import (
	"math"
	"sort"

	polyclip "github.com/ctessum/polyclip-go"
)

// Polygon is a closed ring of points. The closing edge is implicit.
type Polygon []Point

// Area is the absolute shoelace area of the ring.
func (pg Polygon) Area() float64 {
	return math.Abs(signedArea(pg))
}

func signedArea(pts []Point) float64 {
	var a float64
	for i := range pts {
		j := (i + 1) % len(pts)
		a += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return a / 2
}

// Contains reports whether p lies inside the ring (even-odd rule).
func (pg Polygon) Contains(p Point) bool {
	in := false
	for i, j := 0, len(pg)-1; i < len(pg); j, i = i, i+1 {
		a, b := pg[i], pg[j]
		if (a.Y > p.Y) != (b.Y > p.Y) &&
			p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			in = !in
		}
	}
	return in
}

func (pg Polygon) clip() polyclip.Polygon {
	c := make(polyclip.Contour, len(pg))
	for i, p := range pg {
		c[i] = polyclip.Point{X: p.X, Y: p.Y}
	}
	return polyclip.Polygon{c}
}

// IntersectionArea is the area shared by the two rings.
func IntersectionArea(a, b Polygon) float64 {
	if len(a) < 3 || len(b) < 3 {
		return 0
	}
	res := a.clip().Construct(polyclip.INTERSECTION, b.clip())
	var area float64
	for _, c := range res {
		pts := make([]Point, len(c))
		for i, p := range c {
			pts[i] = Point{X: p.X, Y: p.Y}
		}
		area += math.Abs(signedArea(pts))
	}
	return area
}

// IoU is the intersection over union of two rings.
func IoU(a, b Polygon) float64 {
	isect := IntersectionArea(a, b)
	union := a.Area() + b.Area() - isect
	if union <= 0 {
		return 0
	}
	return isect / union
}

// PolylineInsideLength is the length of the part of the polyline line that
// lies inside the ring pg.
func PolylineInsideLength(pg Polygon, line []Point) float64 {
	if len(pg) < 3 {
		return 0
	}
	var total float64
	for i := 1; i < len(line); i++ {
		a, b := line[i-1], line[i]
		d := b.Sub(a)
		ts := []float64{0, 1}
		for j := range pg {
			c, e := pg[j], pg[(j+1)%len(pg)]
			if t, ok := segmentParam(a, d, c, e.Sub(c)); ok {
				ts = append(ts, t)
			}
		}
		sort.Float64s(ts)
		seglen := d.Norm()
		for k := 1; k < len(ts); k++ {
			if ts[k] == ts[k-1] {
				continue
			}
			mid := a.Add(d.Mul((ts[k] + ts[k-1]) / 2))
			if pg.Contains(mid) {
				total += (ts[k] - ts[k-1]) * seglen
			}
		}
	}
	return total
}

// segmentParam returns the parameter along a+t·d where it crosses the segment
// c+u·e, with both t and u in [0,1].
func segmentParam(a, d, c, e Point) (float64, bool) {
	den := d.Cross(e)
	if math.Abs(den) < ParallelEpsilon {
		return 0, false
	}
	ac := c.Sub(a)
	t := ac.Cross(e) / den
	u := ac.Cross(d) / den
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return 0, false
	}
	return t, true
}

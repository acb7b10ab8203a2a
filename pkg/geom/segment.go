package geom

import "math"

// Thresholds for the near-parallel and collinearity tests.
const (
	ParallelEpsilon  = 1e-8
	CollinearEpsilon = 1e-3
)

// Position classifies a point with respect to a segment a-b.
type Position int

const (
	OffLine Position = iota // not collinear with a-b
	OnSegment
	BeforeA
	AfterB
)

func (p Position) String() string {
	switch p {
	case OnSegment:
		return "on"
	case BeforeA:
		return "before"
	case AfterB:
		return "after"
	}
	return "off"
}

// SegmentIntersection intersects the line through p1,p2 with the line through
// p3,p4. ok is false when the lines are (nearly) parallel.
func SegmentIntersection(p1, p2, p3, p4 Point) (Point, bool) {
	d1 := p2.Sub(p1)
	d2 := p4.Sub(p3)
	den := d1.Cross(d2)
	if math.Abs(den) < ParallelEpsilon {
		return Point{}, false
	}
	t := p3.Sub(p1).Cross(d2) / den
	return p1.Add(d1.Mul(t)), true
}

// PointRelativeToSegment classifies c against the segment a-b. Collinearity
// is tested with the area of the triangle a,b,c normalized by the squared
// segment length.
func PointRelativeToSegment(a, b, c Point) Position {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		if c == a {
			return OnSegment
		}
		return OffLine
	}
	if math.Abs(ab.Cross(c.Sub(a)))/l2 > CollinearEpsilon {
		return OffLine
	}
	t := c.Sub(a).Dot(ab) / l2
	switch {
	case t < 0:
		return BeforeA
	case t > 1:
		return AfterB
	}
	return OnSegment
}

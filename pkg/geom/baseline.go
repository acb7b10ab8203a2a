package geom

import "math"

// SegmentAngle is the orientation of the segment p1->p2, counter-clockwise
// with the y axis flipped so that a left-to-right segment has angle 0.
func SegmentAngle(p1, p2 Point) float64 {
	return math.Atan2(p1.Y-p2.Y, p2.X-p1.X)
}

// Direction is the unit vector in image coordinates for an angle as returned
// by SegmentAngle.
func Direction(angle float64) Point {
	return Point{X: math.Cos(angle), Y: -math.Sin(angle)}
}

// BaselineOrientation is the length weighted average direction of the
// segments of a polyline. Deviations are accumulated relative to the first
// segment so that angles close to ±π average correctly. NaN is returned for
// fewer than two points or a zero length polyline.
func BaselineOrientation(pts []Point) float64 {
	if len(pts) < 2 {
		return math.NaN()
	}
	ref := math.NaN()
	for i := 1; i < len(pts) && math.IsNaN(ref); i++ {
		if pts[i] != pts[i-1] {
			ref = SegmentAngle(pts[i-1], pts[i])
		}
	}
	if math.IsNaN(ref) {
		return ref
	}
	var total, acc float64
	for i := 1; i < len(pts); i++ {
		l := pts[i].Sub(pts[i-1]).Norm()
		if l == 0 {
			continue
		}
		total += l
		acc += l * AngleDiff(SegmentAngle(pts[i-1], pts[i]), ref)
	}
	return AngleDiff(ref+acc/total, 0)
}

// BaselineLength is the sum of the segment lengths of a polyline.
func BaselineLength(pts []Point) float64 {
	var l float64
	for i := 1; i < len(pts); i++ {
		l += pts[i].Sub(pts[i-1]).Norm()
	}
	return l
}

// Midpoint of a polyline's end points.
func Midpoint(pts []Point) Point {
	if len(pts) == 0 {
		return Point{}
	}
	return pts[0].Add(pts[len(pts)-1]).Mul(0.5)
}

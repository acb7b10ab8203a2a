package geom

import "math"

// Project1D projects pts onto the unit vector axis. yOffset is added to the y
// coordinate of every point before projecting.
func Project1D(pts []Point, axis Point, yOffset float64) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.X*axis.X + (p.Y+yOffset)*axis.Y
	}
	return out
}

// AngleDiff returns a1-a2 wrapped to (-π, π].
func AngleDiff(a1, a2 float64) float64 {
	d := math.Mod(a1-a2, 2*math.Pi)
	if d > math.Pi {
		d -= 2 * math.Pi
	} else if d <= -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

// Intersection1D is the length of the overlap of the intervals [a1,a2] and
// [b1,b2]. Endpoints may be given in any order.
func Intersection1D(a1, a2, b1, b2 float64) float64 {
	if a1 > a2 {
		a1, a2 = a2, a1
	}
	if b1 > b2 {
		b1, b2 = b2, b1
	}
	return math.Max(0, math.Min(a2, b2)-math.Max(a1, b1))
}

// IoU1D is the intersection over union of two intervals.
func IoU1D(a1, a2, b1, b2 float64) float64 {
	isect := Intersection1D(a1, a2, b1, b2)
	union := math.Abs(a2-a1) + math.Abs(b2-b1) - isect
	if union <= 0 {
		return 0
	}
	return isect / union
}

// Package geom provides the geometric primitives used by Page XML layout
// processing: point lists as stored in "points" attributes, bounding boxes,
// segment intersections, 1D projections and baseline measurements.
//
// All functions are pure. Coordinates are image coordinates, that is, x grows
// to the right and y grows downwards.
package geom

import (
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/r2"
)

// Point is a 2D point in image coordinates.
type Point = r2.Point

// ParsePoints parses a "x1,y1 x2,y2 ..." string. Parsing stops at the first
// malformed token and the points read so far are returned.
func ParsePoints(s string) []Point {
	var pts []Point
	for _, tok := range strings.Fields(s) {
		xs, ys, ok := strings.Cut(tok, ",")
		if !ok {
			break
		}
		x, err := strconv.ParseFloat(xs, 64)
		if err != nil {
			break
		}
		y, err := strconv.ParseFloat(ys, 64)
		if err != nil {
			break
		}
		pts = append(pts, Point{X: x, Y: y})
	}
	return pts
}

// FormatPoints is the inverse of ParsePoints. With rounded set the
// coordinates are written as integers.
func FormatPoints(pts []Point, rounded bool) string {
	var sb strings.Builder
	for i, p := range pts {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(formatCoord(p.X, rounded))
		sb.WriteByte(',')
		sb.WriteString(formatCoord(p.Y, rounded))
	}
	return sb.String()
}

func formatCoord(v float64, rounded bool) string {
	if rounded {
		v = math.Round(v)
		if v == 0 {
			v = 0 // drop the sign of -0
		}
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// BBox holds the extremes of a point list.
type BBox struct {
	XMin, XMax float64
	YMin, YMax float64
}

// Width of the box.
func (b BBox) Width() float64 { return b.XMax - b.XMin }

// Height of the box.
func (b BBox) Height() float64 { return b.YMax - b.YMin }

// Rect returns the box as an r2.Rect.
func (b BBox) Rect() r2.Rect {
	return r2.RectFromPoints(Point{X: b.XMin, Y: b.YMin}, Point{X: b.XMax, Y: b.YMax})
}

// Points returns the corners in TL, TR, BR, BL order.
func (b BBox) Points() []Point {
	return []Point{
		{X: b.XMin, Y: b.YMin},
		{X: b.XMax, Y: b.YMin},
		{X: b.XMax, Y: b.YMax},
		{X: b.XMin, Y: b.YMax},
	}
}

// PointsBBox computes the bounding box of pts. The zero BBox is returned for
// an empty list; callers are expected to check the length first.
func PointsBBox(pts []Point) BBox {
	if len(pts) == 0 {
		return BBox{}
	}
	b := BBox{XMin: pts[0].X, XMax: pts[0].X, YMin: pts[0].Y, YMax: pts[0].Y}
	for _, p := range pts[1:] {
		b.XMin = math.Min(b.XMin, p.X)
		b.XMax = math.Max(b.XMax, p.X)
		b.YMin = math.Min(b.YMin, p.Y)
		b.YMax = math.Max(b.YMax, p.Y)
	}
	return b
}

// IsRectangle reports whether pts is an axis-aligned box given as exactly
// four corners in TL, TR, BR, BL order.
func IsRectangle(pts []Point) bool {
	if len(pts) != 4 {
		return false
	}
	return pts[0].X == pts[3].X &&
		pts[0].Y == pts[1].Y &&
		pts[1].X == pts[2].X &&
		pts[2].Y == pts[3].Y
}

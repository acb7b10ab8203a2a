package pagexml

import (
	"math"

	"github.com/beevik/etree"
	"github.com/gardar/pagexml/pkg/geom"
	"github.com/sirupsen/logrus"
)

// parallelTolerance bounds 1-|cos| for segments considered parallel and
// |cos| for segments considered perpendicular.
const parallelTolerance = 1e-2

// upNormals returns for each baseline segment the unit normal pointing above
// the text. Zero length segments borrow the normal of a neighbour.
func upNormals(baseline []geom.Point) ([]geom.Point, bool) {
	ns := make([]geom.Point, len(baseline)-1)
	valid := make([]bool, len(ns))
	found := false
	for i := range ns {
		d := baseline[i+1].Sub(baseline[i])
		if l := d.Norm(); l > 0 {
			ns[i] = geom.Point{X: d.Y / l, Y: -d.X / l}
			valid[i], found = true, true
		}
	}
	if !found {
		return nil, false
	}
	for i := range ns {
		if valid[i] {
			continue
		}
		for j := 1; j < len(ns); j++ {
			if i-j >= 0 && valid[i-j] {
				ns[i] = ns[i-j]
				break
			}
			if i+j < len(ns) && valid[i+j] {
				ns[i] = ns[i+j]
				break
			}
		}
	}
	return ns, true
}

// offsetPolyline shifts the baseline by dist along its normals, joining
// consecutive shifted segments at their intersection.
func offsetPolyline(baseline, normals []geom.Point, dist float64) []geom.Point {
	n := len(baseline)
	out := make([]geom.Point, n)
	out[0] = baseline[0].Add(normals[0].Mul(dist))
	out[n-1] = baseline[n-1].Add(normals[n-2].Mul(dist))
	for k := 1; k < n-1; k++ {
		prev, next := normals[k-1].Mul(dist), normals[k].Mul(dist)
		p, ok := geom.SegmentIntersection(
			baseline[k-1].Add(prev), baseline[k].Add(prev),
			baseline[k].Add(next), baseline[k+1].Add(next))
		if !ok {
			p = baseline[k].Add(next)
		}
		out[k] = p
	}
	return out
}

// Polystripe builds the polygon that runs (1-offset)·height above and
// offset·height below the baseline: the points above in baseline order
// followed by the points below in reverse order.
func Polystripe(baseline []geom.Point, height, offset float64) ([]geom.Point, bool) {
	if len(baseline) < 2 || height <= 0 {
		return nil, false
	}
	normals, ok := upNormals(baseline)
	if !ok {
		return nil, false
	}
	above := offsetPolyline(baseline, normals, (1-offset)*height)
	below := offsetPolyline(baseline, normals, -offset*height)
	coords := make([]geom.Point, 0, 2*len(baseline))
	coords = append(coords, above...)
	for i := len(below) - 1; i >= 0; i-- {
		coords = append(coords, below[i])
	}
	return coords, true
}

// IsPolystripe reports whether coords is a poly-stripe of baseline and, if
// so, the height and offset it was built with.
func IsPolystripe(coords, baseline []geom.Point) (height, offset float64, ok bool) {
	n := len(baseline)
	if n < 2 || len(coords) != 2*n {
		return 0, 0, false
	}
	above := func(i int) geom.Point { return coords[i] }
	below := func(i int) geom.Point { return coords[2*n-1-i] }

	for i := 0; i < n; i++ {
		if above(i) == below(i) {
			return 0, 0, false
		}
		if geom.PointRelativeToSegment(above(i), below(i), baseline[i]) == geom.OffLine {
			return 0, 0, false
		}
	}

	first, last := -1, -1
	for i := 0; i < n-1; i++ {
		bd := baseline[i+1].Sub(baseline[i])
		if bd.Norm() == 0 {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
		ad := above(i + 1).Sub(above(i))
		dd := below(i + 1).Sub(below(i))
		if ad.Norm() == 0 || dd.Norm() == 0 {
			return 0, 0, false
		}
		bn := bd.Normalize()
		if 1-bn.Dot(ad.Normalize()) > parallelTolerance || 1-bn.Dot(dd.Normalize()) > parallelTolerance {
			return 0, 0, false
		}
	}
	if first < 0 {
		return 0, 0, false
	}

	start := below(0).Sub(above(0)).Normalize()
	end := below(n - 1).Sub(above(n - 1)).Normalize()
	if math.Abs(start.Dot(baseline[first+1].Sub(baseline[first]).Normalize())) > parallelTolerance ||
		math.Abs(end.Dot(baseline[last+1].Sub(baseline[last]).Normalize())) > parallelTolerance {
		return 0, 0, false
	}

	bd := baseline[first+1].Sub(baseline[first])
	upNormal := geom.Point{X: bd.Y, Y: -bd.X}
	if above(0).Sub(baseline[0]).Dot(upNormal) < 0 {
		return 0, 0, false
	}
	up := above(0).Sub(baseline[0]).Norm()
	down := baseline[0].Sub(below(0)).Norm()
	height = up + down
	return height, down / height, true
}

// SetPolystripe sets the Coords of a TextLine to the poly-stripe of its
// Baseline. offset must be in [0, 0.5].
func (p *PageXML) SetPolystripe(line *etree.Element, height, offset float64) (*etree.Element, error) {
	return p.setPolystripe("SetPolystripe", line, height, offset, true)
}

func (p *PageXML) setPolystripe(op string, line *etree.Element, height, offset float64, checkOffset bool) (*etree.Element, error) {
	if !NodeIs(line, ElemTextLine) {
		return nil, structuref(op, "expected a %s node", ElemTextLine)
	}
	if checkOffset && (offset < 0 || offset > 0.5) {
		return nil, structuref(op, "offset %g outside [0, 0.5] for line %s", offset, GetAttr(line, "id"))
	}
	if height <= 0 || math.IsNaN(height) {
		return nil, structuref(op, "invalid height %g for line %s", height, GetAttr(line, "id"))
	}
	baseline := Points(line, ElemBaseline)
	coords, ok := Polystripe(baseline, height, offset)
	if !ok {
		return nil, structuref(op, "line %s needs a baseline of at least two distinct points", GetAttr(line, "id"))
	}
	return p.SetCoords(line, coords)
}

// LinePolystripe returns the height and offset of a TextLine whose Coords
// is a poly-stripe of its Baseline.
func LinePolystripe(line *etree.Element) (height, offset float64, ok bool) {
	return IsPolystripe(Points(line, ElemCoords), Points(line, ElemBaseline))
}

// SetLineCoords sets the Baseline and poly-stripe Coords of a TextLine from
// an OCR engine's line box and raw baseline. The baseline is extended to the
// left and right sides of the box; when it does not cross them the raw
// baseline is used.
func (p *PageXML) SetLineCoords(line *etree.Element, box geom.BBox, baseline [2]geom.Point, conf ...float64) error {
	const op = "SetLineCoords"
	if !NodeIs(line, ElemTextLine) {
		return structuref(op, "expected a %s node", ElemTextLine)
	}
	tl, bl := geom.Point{X: box.XMin, Y: box.YMin}, geom.Point{X: box.XMin, Y: box.YMax}
	tr, br := geom.Point{X: box.XMax, Y: box.YMin}, geom.Point{X: box.XMax, Y: box.YMax}

	first, ok1 := geom.SegmentIntersection(baseline[0], baseline[1], tl, bl)
	last, ok2 := geom.SegmentIntersection(baseline[0], baseline[1], tr, br)
	if !ok1 || !ok2 ||
		geom.PointRelativeToSegment(tl, bl, first) != geom.OnSegment ||
		geom.PointRelativeToSegment(tr, br, last) != geom.OnSegment {
		p.log.WithFields(logrus.Fields{"line": GetAttr(line, "id")}).
			Warn("baseline does not cross the line bounding box, using the engine baseline")
		first, last = baseline[0], baseline[1]
	}
	if _, err := p.SetBaseline(line, []geom.Point{first, last}, conf...); err != nil {
		return err
	}

	up := math.Max(0, first.Y-box.YMin) + math.Max(0, last.Y-box.YMin)
	down := math.Max(0, box.YMax-first.Y) + math.Max(0, box.YMax-last.Y)
	height := 0.5 * (up + down)
	if height <= 0 || first == last {
		_, err := p.SetCoords(line, box.Points(), conf...)
		return err
	}
	offset := 0.5 * down / height
	_, err := p.setPolystripe(op, line, height, math.Min(1, offset), false)
	return err
}

package pagexml

import (
	"math"
	"strconv"

	"github.com/beevik/etree"
	"github.com/gardar/pagexml/pkg/geom"
)

// normalizeAngle maps a multiple of 90 degrees to one of 0, 90, 180, -90.
func normalizeAngle(a int) int {
	a = ((a % 360) + 360) % 360
	if a == 270 {
		return -90
	}
	return a
}

// RotatePage rotates the geometry of a page by angle degrees, counter-
// clockwise for positive angles. With updateOrientation the page's
// ImageOrientation accumulates the rotation, so that loading the unchanged
// image file keeps matching the coordinates. A loaded page image is rotated
// along.
func (p *PageXML) RotatePage(angle int, page *etree.Element, updateOrientation bool, conf ...float64) error {
	const op = "RotatePage"
	if !NodeIs(page, ElemPage) {
		return structuref(op, "expected a %s node", ElemPage)
	}
	switch angle {
	case 0:
		return nil
	case 90, 180, -90:
	default:
		return structuref(op, "invalid angle %d, expected 0, 90, 180 or -90", angle)
	}
	w, h, err := p.pageSize(op, page)
	if err != nil {
		return err
	}
	fw, fh := float64(w-1), float64(h-1)
	rot := func(pt geom.Point) geom.Point {
		switch angle {
		case 90:
			return geom.Point{X: pt.Y, Y: fw - pt.X}
		case -90:
			return geom.Point{X: fh - pt.Y, Y: pt.X}
		}
		return geom.Point{X: fw - pt.X, Y: fh - pt.Y}
	}
	rotAttr := func(a *etree.Attr) {
		pts := geom.ParsePoints(a.Value)
		for i := range pts {
			pts[i] = rot(pts[i])
		}
		a.Value = geom.FormatPoints(pts, p.cfg.RoundPoints)
	}
	walk(page, func(e *etree.Element) bool {
		if a := e.SelectAttr("points"); a != nil {
			rotAttr(a)
		}
		if e.Tag == ElemProperty && e.SelectAttrValue("key", "") == "fpgram" {
			if a := e.SelectAttr("value"); a != nil {
				rotAttr(a)
			}
		}
		return true
	})
	if angle != 180 {
		page.CreateAttr("imageWidth", page.SelectAttrValue("imageHeight", ""))
		page.CreateAttr("imageHeight", strconv.Itoa(w))
	}

	if updateOrientation {
		prev, _, _ := p.ImageOrientation(page)
		if _, err := p.SetImageOrientation(page, normalizeAngle(prev+angle), conf...); err != nil {
			return err
		}
	}
	if n := p.GetPageNumber(page); n >= 0 && p.pages[n].img != nil {
		img, err := p.cfg.images().Rotate(p.pages[n].img, angle)
		if err != nil {
			return wrapf(ErrResource, op, err, "unable to rotate image of page %d", n)
		}
		p.pages[n].img = img
	}
	return nil
}

// DominantBaselinesOrientation returns the prevailing orientation of the
// baselines of lines. Each line votes with its baseline length for the
// nearest of the four cardinal directions; the result is the weighted mean
// orientation of the winning direction. NaN is returned when no line has a
// baseline.
func DominantBaselinesOrientation(lines []*etree.Element) float64 {
	var weight [4]float64
	var sin, cos [4]float64
	for _, line := range lines {
		base := Points(line, ElemBaseline)
		angle := geom.BaselineOrientation(base)
		if math.IsNaN(angle) {
			continue
		}
		l := geom.BaselineLength(base)
		k := ((int(math.Round(angle/(math.Pi/2))) % 4) + 4) % 4
		weight[k] += l
		sin[k] += l * math.Sin(angle)
		cos[k] += l * math.Cos(angle)
	}
	best := -1
	for k := range weight {
		if weight[k] > 0 && (best < 0 || weight[k] > weight[best]) {
			best = k
		}
	}
	if best < 0 {
		return math.NaN()
	}
	return math.Atan2(sin[best], cos[best])
}

// OrientationCorrection is the page rotation that makes text with the given
// dominant baseline orientation run left to right.
func OrientationCorrection(angle float64) int {
	switch {
	case math.IsNaN(angle):
		return 0
	case angle >= math.Pi/4 && angle < 3*math.Pi/4:
		return -90
	case angle > -3*math.Pi/4 && angle <= -math.Pi/4:
		return 90
	case math.Abs(angle) >= 3*math.Pi/4:
		return 180
	}
	return 0
}

// FixPageOrientation rotates a page so that its dominant baseline
// orientation becomes left to right and returns the applied rotation.
func (p *PageXML) FixPageOrientation(page *etree.Element, conf ...float64) (int, error) {
	lines, err := p.Select(".//"+nsPrefix+":"+ElemTextLine+"["+nsPrefix+":"+ElemBaseline+"]", page)
	if err != nil {
		return 0, err
	}
	angle := OrientationCorrection(DominantBaselinesOrientation(lines))
	if angle == 0 {
		return 0, nil
	}
	return angle, p.RotatePage(angle, page, true, conf...)
}

// ApplyImageOrientation handles pages marked with the
// apply-image-orientation Property, whose coordinates refer to the image file
// as stored: their geometry is rotated to the frame given by the page's
// ImageOrientation and the marker is removed.
func (p *PageXML) ApplyImageOrientation() (int, error) {
	count := 0
	for _, page := range p.Pages() {
		if _, ok := GetPropertyValue(page, "apply-image-orientation"); !ok {
			continue
		}
		for _, prop := range childrenNamed(page, ElemProperty) {
			if prop.SelectAttrValue("key", "") == "apply-image-orientation" {
				page.RemoveChild(prop)
			}
		}
		angle, _, ok := p.ImageOrientation(page)
		if !ok || angle == 0 {
			continue
		}
		p.ReleaseImage(p.GetPageNumber(page))
		if err := p.RotatePage(angle, page, false); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

package pagexml

import (
	"github.com/beevik/etree"
	"github.com/gardar/pagexml/pkg/geom"
)

func unknownCoords(pts []geom.Point) bool {
	for _, pt := range pts {
		if pt.X != 0 || pt.Y != 0 {
			return false
		}
	}
	return true
}

// FillUnknownWordCoords gives the Words of a TextLine whose Coords are
// missing or all zero ("0,0 0,0") a box spanning the gap between their known
// neighbours and the height of the line. Filled words are marked with a
// coords-unk-filler Property. It returns the number of words filled.
func (p *PageXML) FillUnknownWordCoords(line *etree.Element) (int, error) {
	const op = "FillUnknownWordCoords"
	if !NodeIs(line, ElemTextLine) {
		return 0, structuref(op, "expected a %s node", ElemTextLine)
	}
	lpts := Points(line, ElemCoords)
	if len(lpts) == 0 {
		return 0, structuref(op, "line %s has no Coords", GetAttr(line, "id"))
	}
	lb := geom.PointsBBox(lpts)

	words := childrenNamed(line, ElemWord)
	known := make([]bool, len(words))
	boxes := make([]geom.BBox, len(words))
	for i, w := range words {
		pts := Points(w, ElemCoords)
		known[i] = !unknownCoords(pts)
		if known[i] {
			boxes[i] = geom.PointsBBox(pts)
		}
	}

	filled := 0
	for i, w := range words {
		if known[i] {
			continue
		}
		left, right := lb.XMin, lb.XMax
		for j := i - 1; j >= 0; j-- {
			if known[j] {
				left = boxes[j].XMax + 1
				break
			}
		}
		for j := i + 1; j < len(words); j++ {
			if known[j] {
				right = boxes[j].XMin - 1
				break
			}
		}
		if right < left {
			right = left
		}
		box := geom.BBox{XMin: left, XMax: right, YMin: lb.YMin, YMax: lb.YMax}
		if _, err := p.SetCoords(w, box.Points()); err != nil {
			return filled, err
		}
		if _, err := p.SetProperty(w, "coords-unk-filler", ""); err != nil {
			return filled, err
		}
		filled++
	}
	return filled, nil
}

package pagexml

import (
	"image"
	"math"
	"strconv"

	"github.com/beevik/etree"
	"github.com/gardar/pagexml/pkg/geom"
)

// maxAspectChange is the relative aspect ratio change tolerated by Resize.
const maxAspectChange = 0.01

// Resize changes the size of pages to sizes, scaling every points attribute
// and fpgram Property below each page. A nil pages means all pages. With
// checkAspect a page whose aspect ratio would change by more than 1% is
// rejected before anything is modified. It returns the number of pages
// resized.
func (p *PageXML) Resize(sizes []image.Point, pages []*etree.Element, checkAspect bool) (int, error) {
	const op = "Resize"
	if pages == nil {
		pages = p.Pages()
	}
	if len(sizes) != len(pages) {
		return 0, structuref(op, "got %d sizes for %d pages", len(sizes), len(pages))
	}

	type scale struct{ x, y float64 }
	scales := make([]scale, len(pages))
	for i, page := range pages {
		if !NodeIs(page, ElemPage) {
			return 0, structuref(op, "expected a %s node", ElemPage)
		}
		w, h, err := p.pageSize(op, page)
		if err != nil {
			return 0, err
		}
		if w == 0 || h == 0 || sizes[i].X <= 0 || sizes[i].Y <= 0 {
			return 0, structuref(op, "invalid size for page %d", p.GetPageNumber(page))
		}
		scales[i] = scale{float64(sizes[i].X) / float64(w), float64(sizes[i].Y) / float64(h)}
		if checkAspect && math.Abs(scales[i].x/scales[i].y-1) > maxAspectChange {
			return 0, consistencyf(op, "aspect ratio of page %d changes by more than %g%%: %dx%d -> %dx%d",
				p.GetPageNumber(page), maxAspectChange*100, w, h, sizes[i].X, sizes[i].Y)
		}
	}

	for i, page := range pages {
		s := scales[i]
		walk(page, func(e *etree.Element) bool {
			if a := e.SelectAttr("points"); a != nil {
				a.Value = p.scalePoints(a.Value, s.x, s.y)
			}
			if e.Tag == ElemProperty && e.SelectAttrValue("key", "") == "fpgram" {
				if a := e.SelectAttr("value"); a != nil {
					a.Value = p.scalePoints(a.Value, s.x, s.y)
				}
			}
			return true
		})
		page.CreateAttr("imageWidth", strconv.Itoa(sizes[i].X))
		page.CreateAttr("imageHeight", strconv.Itoa(sizes[i].Y))
	}
	return len(pages), nil
}

func (p *PageXML) scalePoints(s string, sx, sy float64) string {
	pts := geom.ParsePoints(s)
	for i := range pts {
		pts[i].X *= sx
		pts[i].Y *= sy
	}
	return geom.FormatPoints(pts, p.cfg.RoundPoints)
}

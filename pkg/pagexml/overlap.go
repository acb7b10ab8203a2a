package pagexml

import (
	"sort"
	"strings"

	"github.com/beevik/etree"
	"github.com/gardar/pagexml/pkg/geom"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/rtree"
)

// OverlapPolicy selects how a text line is scored against a region.
type OverlapPolicy int

const (
	// OverlapIoU is the IoU of the line and region polygons.
	OverlapIoU OverlapPolicy = iota
	// OverlapCoordsIWA is the fraction of the line area inside the region,
	// weighted down by the region's share of the area of all regions the
	// line intersects.
	OverlapCoordsIWA
	// OverlapBaselineIWA is like OverlapCoordsIWA using the fraction of the
	// baseline length inside the region.
	OverlapBaselineIWA
	// OverlapBaselineCoordsIWA blends the baseline and coords scores.
	OverlapBaselineCoordsIWA
)

var overlapNames = map[string]OverlapPolicy{
	"iou":                 OverlapIoU,
	"coords_iwa":          OverlapCoordsIWA,
	"baseline_iwa":        OverlapBaselineIWA,
	"baseline_coords_iwa": OverlapBaselineCoordsIWA,
}

// ParseOverlapPolicy parses a policy name such as "coords_iwa".
func ParseOverlapPolicy(s string) (OverlapPolicy, bool) {
	v, ok := overlapNames[strings.ToLower(s)]
	return v, ok
}

type regionCand struct {
	node *etree.Element
	poly geom.Polygon
	area float64
}

// CopyTextLinesAssignByOverlap copies the TextLines of from into the
// TextRegion of this document that they overlap best. Both documents must
// have the same number of pages with the same sizes. fact is the weight of
// the baseline score for OverlapBaselineCoordsIWA. A region covering the
// whole page is added when there is none, and removed again if it receives
// no lines. It returns the number of lines copied.
func (p *PageXML) CopyTextLinesAssignByOverlap(from *PageXML, policy OverlapPolicy, fact float64) (int, error) {
	const op = "CopyTextLinesAssignByOverlap"
	if len(from.pages) != len(p.pages) {
		return 0, consistencyf(op, "expected both documents to have the same number of pages, got %d and %d", len(from.pages), len(p.pages))
	}
	copied := 0
	for n := range p.pages {
		pageTo, pageFrom := p.pages[n].node, from.pages[n].node
		w, h, err := p.pageSize(op, pageTo)
		if err != nil {
			return copied, err
		}
		fw, fh, err := from.pageSize(op, pageFrom)
		if err != nil {
			return copied, err
		}
		if w != fw || h != fh {
			return copied, consistencyf(op, "expected page %d sizes to match, got %dx%d and %dx%d", n, fw, fh, w, h)
		}
		lines, err := from.Select(".//"+nsPrefix+":"+ElemTextLine, pageFrom)
		if err != nil {
			return copied, err
		}
		if len(lines) == 0 {
			continue
		}

		fullpage, err := p.ensureFullPageRegion(op, pageTo, w, h)
		if err != nil {
			return copied, err
		}
		regions, err := p.Select(nsPrefix+":"+ElemTextRegion, pageTo)
		if err != nil {
			return copied, err
		}
		var cands []regionCand
		var tr rtree.RTreeG[int]
		for _, r := range regions {
			pts := Points(r, ElemCoords)
			if len(pts) < 3 {
				continue
			}
			b := geom.PointsBBox(pts)
			tr.Insert([2]float64{b.XMin, b.YMin}, [2]float64{b.XMax, b.YMax}, len(cands))
			cands = append(cands, regionCand{node: r, poly: pts, area: geom.Polygon(pts).Area()})
		}

		for _, line := range lines {
			best, err := bestRegion(op, line, cands, &tr, policy, fact)
			if err != nil {
				return copied, err
			}
			clone := line.Copy()
			if id := clone.SelectAttrValue("id", ""); p.ElementByID(id) != nil {
				p.log.WithFields(logrus.Fields{"id": id, "page": n}).Warn("copied TextLine id already in use")
			}
			if te := firstChild(best, ElemTextEquiv); te != nil {
				best.InsertChildAt(tokenIndex(best, te), clone)
			} else {
				best.AddChild(clone)
			}
			p.indexIDs(clone)
			copied++
		}

		if fullpage != nil && firstChild(fullpage, ElemTextLine) == nil {
			if err := p.RemoveElement(fullpage); err != nil {
				return copied, err
			}
		}
	}
	return copied, nil
}

// ensureFullPageRegion adds a TextRegion covering the page when no region
// does. It returns the added region or nil.
func (p *PageXML) ensureFullPageRegion(op string, page *etree.Element, w, h int) (*etree.Element, error) {
	regions, err := p.Select(nsPrefix+":"+ElemTextRegion, page)
	if err != nil {
		return nil, err
	}
	for _, r := range regions {
		pts := Points(r, ElemCoords)
		if !geom.IsRectangle(pts) {
			continue
		}
		b := geom.PointsBBox(pts)
		if b.XMin <= 0 && b.YMin <= 0 && b.XMax >= float64(w-1) && b.YMax >= float64(h-1) {
			return nil, nil
		}
	}
	r, err := p.AddTextRegion(page, "", "")
	if err != nil {
		return nil, err
	}
	full := geom.BBox{XMax: float64(w - 1), YMax: float64(h - 1)}
	if _, err := p.SetCoords(r, full.Points()); err != nil {
		return nil, err
	}
	return r, nil
}

func bestRegion(op string, line *etree.Element, cands []regionCand, tr *rtree.RTreeG[int], policy OverlapPolicy, fact float64) (*etree.Element, error) {
	id := GetAttr(line, "id")
	coords := geom.Polygon(Points(line, ElemCoords))
	baseline := Points(line, ElemBaseline)
	if len(baseline) < 2 && policy == OverlapBaselineIWA {
		policy = OverlapCoordsIWA
	}
	if len(baseline) < 2 && policy == OverlapBaselineCoordsIWA {
		fact = 0
	}
	if len(coords) < 3 && policy != OverlapBaselineIWA {
		return nil, structuref(op, "TextLine %s has no usable Coords", id)
	}

	b := geom.PointsBBox(append(append([]geom.Point{}, coords...), baseline...))
	var near []int
	tr.Search([2]float64{b.XMin, b.YMin}, [2]float64{b.XMax, b.YMax}, func(_, _ [2]float64, k int) bool {
		near = append(near, k)
		return true
	})
	sort.Ints(near)

	var scores []float64
	switch policy {
	case OverlapIoU:
		scores = make([]float64, len(near))
		for i, k := range near {
			scores[i] = geom.IoU(coords, cands[k].poly)
		}
	case OverlapCoordsIWA:
		scores = coordsIWA(coords, cands, near)
	case OverlapBaselineIWA:
		scores = baselineIWA(baseline, cands, near)
	case OverlapBaselineCoordsIWA:
		cs := coordsIWA(coords, cands, near)
		bs := make([]float64, len(near))
		if fact > 0 {
			bs = baselineIWA(baseline, cands, near)
		}
		scores = make([]float64, len(near))
		for i := range near {
			scores[i] = fact*bs[i] + (1-fact)*cs[i]
		}
	default:
		return nil, structuref(op, "unknown overlap policy %d", policy)
	}

	best, bestScore := -1, 0.0
	for i, s := range scores {
		if s > bestScore {
			best, bestScore = near[i], s
		}
	}
	if best < 0 {
		return nil, consistencyf(op, "TextLine %s does not overlap with any region", id)
	}
	return cands[best].node, nil
}

func coordsIWA(coords geom.Polygon, cands []regionCand, near []int) []float64 {
	area := coords.Area()
	fracs := make([]float64, len(near))
	if area > 0 {
		for i, k := range near {
			fracs[i] = geom.IntersectionArea(coords, cands[k].poly) / area
		}
	}
	return weightByShare(fracs, cands, near)
}

func baselineIWA(baseline []geom.Point, cands []regionCand, near []int) []float64 {
	length := geom.BaselineLength(baseline)
	fracs := make([]float64, len(near))
	if length > 0 {
		for i, k := range near {
			fracs[i] = geom.PolylineInsideLength(cands[k].poly, baseline) / length
		}
	}
	return weightByShare(fracs, cands, near)
}

// weightByShare multiplies each positive fraction by one minus the region's
// share of the total area of the regions with positive fractions. A single
// intersecting region keeps its fraction.
func weightByShare(fracs []float64, cands []regionCand, near []int) []float64 {
	var total float64
	hits := 0
	for i, k := range near {
		if fracs[i] > 0 {
			total += cands[k].area
			hits++
		}
	}
	if hits < 2 || total == 0 {
		return fracs
	}
	for i, k := range near {
		if fracs[i] > 0 {
			fracs[i] *= 1 - cands[k].area/total
		}
	}
	return fracs
}

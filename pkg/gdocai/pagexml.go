package gdocai

import (
	"fmt"
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/beevik/etree"
	"github.com/gardar/pagexml/pkg/geom"
	"github.com/gardar/pagexml/pkg/pagexml"
	"golang.org/x/text/unicode/norm"
)

// region is a group of lines that becomes one TextRegion.
type region struct {
	layout *documentaipb.Document_Page_Layout
	lines  []*Line
}

// regions groups the lines of a page by block, by paragraph when the
// processor returned no blocks, or into a single region otherwise.
func regions(p *Page) []region {
	var out []region
	switch {
	case len(p.Blocks) > 0:
		for _, b := range p.Blocks {
			var lines []*Line
			for _, par := range b.Paragraphs {
				lines = append(lines, par.Lines...)
			}
			out = append(out, region{layout: b.DocumentaiObject.GetLayout(), lines: lines})
		}
	case len(p.Paragraphs) > 0:
		for _, par := range p.Paragraphs {
			out = append(out, region{layout: par.DocumentaiObject.GetLayout(), lines: par.Lines})
		}
	case len(p.Lines) > 0:
		out = append(out, region{lines: p.Lines})
	}
	return out
}

// orientations maps layout orientations to reading orientations in degrees.
var orientations = map[documentaipb.Document_Page_Layout_Orientation]float64{
	documentaipb.Document_Page_Layout_PAGE_RIGHT: -90,
	documentaipb.Document_Page_Layout_PAGE_DOWN:  180,
	documentaipb.Document_Page_Layout_PAGE_LEFT:  90,
}

// converter maps the geometry of one Document AI page to a Page element.
type converter struct {
	px     *pagexml.PageXML
	page   *Page
	sx, sy float64
}

// polygon returns the bounding polygon of a layout in Page XML pixels.
func (c converter) polygon(layout *documentaipb.Document_Page_Layout) []geom.Point {
	var pts []geom.Point
	bp := layout.GetBoundingPoly()
	if vs := bp.GetVertices(); len(vs) >= 3 {
		for _, v := range vs {
			pts = append(pts, geom.Point{X: float64(v.X) * c.sx, Y: float64(v.Y) * c.sy})
		}
		return pts
	}
	w, h := c.page.Width(), c.page.Height()
	for _, v := range bp.GetNormalizedVertices() {
		pts = append(pts, geom.Point{X: float64(v.X) * w * c.sx, Y: float64(v.Y) * h * c.sy})
	}
	if len(pts) < 3 {
		return nil
	}
	return pts
}

// AppendTo adds the text of every page of d to the corresponding Page
// element of px: blocks become TextRegions, lines TextLines with a baseline
// along the bottom edge of their polygon, and tokens Words. Region ids are
// b<n>, prefixed with pg<N>_ when the document has several pages.
func (d *Document) AppendTo(px *pagexml.PageXML) error {
	pages := px.Pages()
	if len(pages) != len(d.Pages) {
		return fmt.Errorf("document has %d pages, Page XML has %d", len(d.Pages), len(pages))
	}
	for i, p := range d.Pages {
		pw, err := px.PageWidth(pages[i])
		if err != nil {
			return err
		}
		ph, err := px.PageHeight(pages[i])
		if err != nil {
			return err
		}
		c := converter{px: px, page: p, sx: 1, sy: 1}
		if p.Width() > 0 && p.Height() > 0 {
			c.sx, c.sy = float64(pw)/p.Width(), float64(ph)/p.Height()
		}
		prefix := ""
		if len(d.Pages) > 1 {
			prefix = fmt.Sprintf("pg%d_", p.PageNumber)
		}
		if err := c.appendPage(pages[i], prefix); err != nil {
			return fmt.Errorf("page %d: %w", p.PageNumber, err)
		}
	}
	return nil
}

func (c converter) appendPage(page *etree.Element, prefix string) error {
	n := 0
	for _, r := range regions(c.page) {
		if len(r.lines) == 0 {
			continue
		}
		n++
		el, err := c.px.AddTextRegion(page, fmt.Sprintf("%sb%d", prefix, n), "")
		if err != nil {
			return err
		}
		pts := c.polygon(r.layout)
		if pts == nil {
			pts = c.linesBox(r.lines)
		}
		if _, err := c.px.SetCoords(el, pts); err != nil {
			return err
		}
		if rot, ok := orientations[r.layout.GetOrientation()]; ok {
			if err := c.px.SetRotation(el, rot); err != nil {
				return err
			}
		}

		texts := make([]string, 0, len(r.lines))
		for l, line := range r.lines {
			text, err := c.appendLine(el, fmt.Sprintf("%s_l%d", pagexml.GetAttr(el, "id"), l+1), line)
			if err != nil {
				return err
			}
			texts = append(texts, text)
		}
		if _, err := c.px.SetTextEquiv(el, norm.NFC.String(strings.Join(texts, "\n"))); err != nil {
			return err
		}
	}
	return nil
}

func (c converter) linesBox(lines []*Line) []geom.Point {
	var all []geom.Point
	for _, l := range lines {
		all = append(all, c.polygon(l.DocumentaiObject.GetLayout())...)
	}
	return geom.PointsBBox(all).Points()
}

func (c converter) appendLine(region *etree.Element, id string, line *Line) (string, error) {
	layout := line.DocumentaiObject.GetLayout()
	pts := c.polygon(layout)
	if pts == nil {
		return "", fmt.Errorf("line %s has no bounding polygon", id)
	}
	el, err := c.px.AddTextLine(region, id, "")
	if err != nil {
		return "", err
	}
	conf := float64(layout.GetConfidence())
	if _, err := c.px.SetCoords(el, pts, conf); err != nil {
		return "", err
	}
	if _, err := c.px.SetBaseline(el, bottomEdge(pts)); err != nil {
		return "", err
	}

	words := make([]string, 0, len(line.Tokens))
	for t, tok := range line.Tokens {
		if tok.Text == "" {
			continue
		}
		wpts := c.polygon(tok.DocumentaiObject.GetLayout())
		if wpts == nil {
			continue
		}
		w, err := c.px.AddWord(el, fmt.Sprintf("%s_w%d", id, t+1), "")
		if err != nil {
			return "", err
		}
		wconf := float64(tok.DocumentaiObject.GetLayout().GetConfidence())
		if _, err := c.px.SetCoords(w, wpts, wconf); err != nil {
			return "", err
		}
		if _, err := c.px.SetTextEquiv(w, norm.NFC.String(tok.Text), wconf); err != nil {
			return "", err
		}
		words = append(words, tok.Text)
	}

	text := strings.Join(words, " ")
	if len(words) == 0 {
		text = line.Text
	}
	if _, err := c.px.SetTextEquiv(el, norm.NFC.String(text), conf); err != nil {
		return "", err
	}
	return text, nil
}

// bottomEdge returns the bottom-left to bottom-right edge of a polygon given
// as TL, TR, BR, BL, or the bottom edge of its box otherwise.
func bottomEdge(pts []geom.Point) []geom.Point {
	if len(pts) == 4 && pts[3].X < pts[2].X {
		return []geom.Point{pts[3], pts[2]}
	}
	b := geom.PointsBBox(pts)
	return []geom.Point{{X: b.XMin, Y: b.YMax}, {X: b.XMax, Y: b.YMax}}
}

package hocr

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/gardar/pagexml/pkg/geom"
	"github.com/gardar/pagexml/pkg/pagexml"
	"golang.org/x/text/unicode/norm"
)

// Level is a layout granularity of the Page format.
type Level int

const (
	LevelRegion Level = iota
	LevelLine
	LevelWord
	LevelGlyph
)

var levelNames = [...]string{"region", "line", "word", "glyph"}

func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "unknown"
	}
	return levelNames[l]
}

// ParseLevel parses "region", "line", "word" or "glyph".
func ParseLevel(s string) (Level, error) {
	for i, n := range levelNames {
		if strings.EqualFold(s, n) {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("unknown layout level %q", s)
}

// ImportOptions control how an hOCR page is converted to Page XML.
type ImportOptions struct {
	Layout   Level  // deepest element created
	Text     Level  // deepest element given a TextEquiv, capped at Layout
	IDPrefix string // prepended to region ids, e.g. "pg2_"
}

// AppendPage adds the blocks of an hOCR page to the Page element page.
// Regions are named b<n>, lines <region>_p<par>_l<line>, words <line>_w<n>
// and glyphs <word>_g<n>. Text is NFC normalized and confidences are
// scaled to [0,1]. It returns the number of regions added.
func AppendPage(px *pagexml.PageXML, page *etree.Element, src Page, opts ImportOptions) (int, error) {
	if opts.Text > opts.Layout {
		opts.Text = opts.Layout
	}
	added := 0
	for i, area := range pageAreas(src) {
		rid := fmt.Sprintf("%sb%d", opts.IDPrefix, i+1)
		ok, err := appendArea(px, page, rid, area, opts)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

// pageAreas wraps paragraphs and lines found directly under the page into
// areas so every line belongs to a region.
func pageAreas(src Page) []Area {
	areas := src.Areas
	for _, par := range src.Paragraphs {
		areas = append(areas, Area{ID: par.ID, BBox: par.BBox, Paragraphs: []Paragraph{par}})
	}
	if len(src.Lines) > 0 {
		var box *geom.BBox
		for _, l := range src.Lines {
			box = unionBox(box, l.BBox.BBox())
		}
		areas = append(areas, Area{BBox: FromBBox(*box), Lines: src.Lines})
	}
	return areas
}

func unionBox(acc *geom.BBox, b geom.BBox) *geom.BBox {
	if acc == nil {
		return &b
	}
	return &geom.BBox{
		XMin: math.Min(acc.XMin, b.XMin), YMin: math.Min(acc.YMin, b.YMin),
		XMax: math.Max(acc.XMax, b.XMax), YMax: math.Max(acc.YMax, b.YMax),
	}
}

func appendArea(px *pagexml.PageXML, page *etree.Element, rid string, area Area, opts ImportOptions) (bool, error) {
	pars := area.Paragraphs
	if len(area.Lines) > 0 || len(area.Words) > 0 {
		loose := area.Lines
		if len(area.Words) > 0 {
			loose = append(loose, Line{BBox: area.BBox, Words: area.Words})
		}
		pars = append(pars, Paragraph{Lines: loose})
	}

	region, err := px.AddTextRegion(page, rid, "")
	if err != nil {
		return false, err
	}
	if _, err := px.SetCoords(region, area.BBox.BBox().Points()); err != nil {
		return false, err
	}

	var lines []string
	nlines := 0
	for p, par := range pars {
		if par.Dir == "rtl" {
			if err := px.SetReadingDirection(region, pagexml.RightToLeft); err != nil {
				return false, err
			}
		}
		for l, line := range par.Lines {
			if opts.Layout < LevelLine {
				lines = append(lines, lineText(line))
				continue
			}
			lid := fmt.Sprintf("%s_p%d_l%d", rid, p+1, l+1)
			text, err := appendLine(px, region, lid, line, opts)
			if err != nil {
				return false, err
			}
			if line.TextAngle != 0 && nlines == 0 {
				if err := px.SetRotation(region, line.TextAngle); err != nil {
					return false, err
				}
			}
			lines = append(lines, text)
			nlines++
		}
	}

	if opts.Layout >= LevelLine && nlines == 0 {
		return false, px.RemoveElement(region)
	}
	if opts.Text == LevelRegion {
		text := norm.NFC.String(strings.Join(lines, "\n"))
		if _, err := px.SetTextEquiv(region, text); err != nil {
			return false, err
		}
	}
	return true, nil
}

func lineText(line Line) string {
	words := make([]string, 0, len(line.Words))
	for _, w := range line.Words {
		if w.Text != "" {
			words = append(words, w.Text)
		}
	}
	return strings.Join(words, " ")
}

func appendLine(px *pagexml.PageXML, region *etree.Element, lid string, line Line, opts ImportOptions) (string, error) {
	el, err := px.AddTextLine(region, lid, "")
	if err != nil {
		return "", err
	}
	if err := px.SetLineCoords(el, line.BBox.BBox(), line.BaselinePoints()); err != nil {
		return "", err
	}
	if line.XSize > 0 {
		if err := px.SetXHeight(el, line.XSize-line.XAscenders-line.XDescenders); err != nil {
			return "", err
		}
	}

	text := lineText(line)
	if opts.Layout >= LevelWord {
		unknown := false
		for w, word := range line.Words {
			wid := fmt.Sprintf("%s_w%d", lid, w+1)
			if err := appendWord(px, el, wid, word, opts); err != nil {
				return "", err
			}
			unknown = unknown || word.BBox.Empty()
		}
		if unknown {
			if _, err := px.FillUnknownWordCoords(el); err != nil {
				return "", err
			}
		}
	}
	if opts.Text == LevelLine {
		if _, err := px.SetTextEquiv(el, norm.NFC.String(text), lineConf(line)); err != nil {
			return "", err
		}
	}
	return text, nil
}

func lineConf(line Line) float64 {
	if len(line.Words) == 0 {
		return 0
	}
	sum := 0.0
	for _, w := range line.Words {
		sum += w.Confidence
	}
	return sum / float64(len(line.Words)) / 100
}

func appendWord(px *pagexml.PageXML, line *etree.Element, wid string, word Word, opts ImportOptions) error {
	el, err := px.AddWord(line, wid, "")
	if err != nil {
		return err
	}
	pts := []geom.Point{{}, {}}
	if !word.BBox.Empty() {
		pts = word.BBox.BBox().Points()
	}
	if _, err := px.SetCoords(el, pts); err != nil {
		return err
	}
	if opts.Layout >= LevelGlyph {
		for g, glyph := range word.Glyphs {
			gel, err := px.AddGlyph(el, fmt.Sprintf("%s_g%d", wid, g+1), "")
			if err != nil {
				return err
			}
			if _, err := px.SetCoords(gel, glyph.BBox.BBox().Points()); err != nil {
				return err
			}
			if opts.Text == LevelGlyph {
				if _, err := px.SetTextEquiv(gel, norm.NFC.String(glyph.Text), glyph.Confidence/100); err != nil {
					return err
				}
			}
		}
	}
	if opts.Text == LevelWord {
		if _, err := px.SetTextEquiv(el, norm.NFC.String(word.Text), word.Confidence/100); err != nil {
			return err
		}
	}
	return nil
}

// FromPageXML builds an hOCR document from the pages of a Page XML
// document. Regions become areas, text lines become lines and words become
// words; a line without words is exported as a single word.
func FromPageXML(px *pagexml.PageXML) (*HOCR, error) {
	doc := &HOCR{
		Title:    "pagexml export",
		Metadata: map[string]string{"ocr-system": "pagexml", "ocr-capabilities": "ocr_page ocr_carea ocr_line ocrx_word"},
	}
	for n, page := range px.Pages() {
		w, err := px.PageWidth(page)
		if err != nil {
			return nil, err
		}
		h, err := px.PageHeight(page)
		if err != nil {
			return nil, err
		}
		out := Page{
			ID:         "page_" + strconv.Itoa(n+1),
			PageNumber: n,
			ImageName:  filepath.Base(pagexml.GetAttr(page, "imageFilename")),
			BBox:       NewBoundingBox(0, 0, float64(w), float64(h)),
		}
		regions, err := px.Select("_:TextRegion", page)
		if err != nil {
			return nil, err
		}
		for _, region := range regions {
			out.Areas = append(out.Areas, exportArea(region))
		}
		doc.Pages = append(doc.Pages, out)
	}
	doc.Metadata["ocr-number-of-pages"] = strconv.Itoa(len(doc.Pages))
	return doc, nil
}

func coordsBox(node *etree.Element) BoundingBox {
	pts := pagexml.Points(node, pagexml.ElemCoords)
	if len(pts) == 0 {
		return BoundingBox{}
	}
	return FromBBox(geom.PointsBBox(pts))
}

func exportArea(region *etree.Element) Area {
	area := Area{ID: pagexml.GetAttr(region, "id"), BBox: coordsBox(region)}
	for _, el := range region.ChildElements() {
		if pagexml.NodeIs(el, pagexml.ElemTextLine) {
			area.Lines = append(area.Lines, exportLine(el))
		}
	}
	return area
}

func exportLine(el *etree.Element) Line {
	line := Line{ID: pagexml.GetAttr(el, "id"), BBox: coordsBox(el)}
	if bl := pagexml.Points(el, pagexml.ElemBaseline); len(bl) >= 2 {
		first, last := bl[0], bl[len(bl)-1]
		b := Baseline{}
		if dx := last.X - first.X; dx != 0 {
			b.Slope = (last.Y - first.Y) / dx
		}
		b.Offset = first.Y + b.Slope*(line.BBox.X1-first.X) - line.BBox.Y2
		line.Baseline = &b
	}
	if xh := pagexml.GetXHeight(el); xh > 0 {
		line.XSize = xh
	}
	for _, w := range el.ChildElements() {
		if !pagexml.NodeIs(w, pagexml.ElemWord) {
			continue
		}
		text, conf := pagexml.GetTextEquiv(w)
		line.Words = append(line.Words, Word{
			ID:         pagexml.GetAttr(w, "id"),
			Text:       text,
			BBox:       coordsBox(w),
			Confidence: confPercent(conf),
		})
	}
	if len(line.Words) == 0 {
		if text, conf := pagexml.GetTextEquiv(el); text != "" {
			line.Words = []Word{{ID: line.ID + "_w1", Text: text, BBox: line.BBox, Confidence: confPercent(conf)}}
		}
	}
	return line
}

func confPercent(conf float64) float64 {
	if conf < 0 {
		return 0
	}
	return conf * 100
}

package pdfocr

import (
	"github.com/beevik/etree"
	"github.com/gardar/pagexml/pkg/geom"
	"github.com/gardar/pagexml/pkg/pagexml"
)

// textBox is a piece of recognized text and its box in image pixels.
type textBox struct {
	Text string
	Box  geom.BBox
}

// pageText collects the text boxes of a Page element in document order.
// Words are used when a line has words with text, otherwise the line itself.
func pageText(page *etree.Element, lines bool) []textBox {
	var boxes []textBox
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, c := range e.ChildElements() {
			switch {
			case pagexml.NodeIs(c, pagexml.ElemTextLine):
				boxes = append(boxes, lineText(c, lines)...)
			case pagexml.NodeIs(c, pagexml.ElemTextRegion):
				walk(c)
			}
		}
	}
	walk(page)
	return boxes
}

func lineText(line *etree.Element, whole bool) []textBox {
	var words []textBox
	if !whole {
		for _, w := range line.ChildElements() {
			if !pagexml.NodeIs(w, pagexml.ElemWord) {
				continue
			}
			if b, ok := elementText(w); ok {
				words = append(words, b)
			}
		}
	}
	if len(words) > 0 {
		return words
	}
	if b, ok := elementText(line); ok {
		return []textBox{b}
	}
	return nil
}

func elementText(e *etree.Element) (textBox, bool) {
	text, _ := pagexml.GetTextEquiv(e)
	pts := pagexml.Points(e, pagexml.ElemCoords)
	if text == "" || len(pts) == 0 {
		return textBox{}, false
	}
	b := geom.PointsBBox(pts)
	if b.Width() <= 0 || b.Height() <= 0 {
		return textBox{}, false
	}
	return textBox{Text: text, Box: b}, true
}

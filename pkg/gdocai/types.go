package gdocai

import (
	"cloud.google.com/go/documentai/apiv1/documentaipb"
)

// Document is a Document AI OCR response with its page layout resolved
// into a hierarchy.
type Document struct {
	Raw   *documentaipb.Document // Original Document AI response
	Pages []*Page                // Sorted by PageNumber
	Text  string                 // Text that all text anchors index into
}

// Page holds the layout elements of one page. Blocks, Paragraphs and Lines
// also carry their children, matched by text anchor.
type Page struct {
	DocumentaiObject *documentaipb.Document_Page
	Text             string
	PageNumber       int // 1-based

	Blocks     []*Block
	Paragraphs []*Paragraph
	Lines      []*Line
	Tokens     []*Token
}

// Width of the page image in pixels.
func (p *Page) Width() float64 { return float64(p.DocumentaiObject.GetDimension().GetWidth()) }

// Height of the page image in pixels.
func (p *Page) Height() float64 { return float64(p.DocumentaiObject.GetDimension().GetHeight()) }

// Block becomes a TextRegion.
type Block struct {
	DocumentaiObject *documentaipb.Document_Page_Block
	PageNumber       int
	Paragraphs       []*Paragraph
	Text             string
}

// Paragraph groups lines when a processor returns no blocks.
type Paragraph struct {
	DocumentaiObject *documentaipb.Document_Page_Paragraph
	PageNumber       int
	Lines            []*Line
	Text             string
}

// Line becomes a TextLine.
type Line struct {
	DocumentaiObject *documentaipb.Document_Page_Line
	PageNumber       int
	Tokens           []*Token
	Text             string // trimmed
}

// Token becomes a Word.
type Token struct {
	DocumentaiObject *documentaipb.Document_Page_Token
	PageNumber       int
	Text             string // without its detected break
}

package hocr

import "github.com/gardar/pagexml/pkg/geom"

// HOCR represents the entire hOCR document structure
type HOCR struct {
	Title       string            // Document title
	Description string            // Document description
	Language    string            // Document language
	Metadata    map[string]string // ocr-system, ocr-capabilities, ...
	Pages       []Page            // Pages in the document
}

// Page is one page of recognized text
// Corresponds to hOCR element with class: 'ocr_page'
type Page struct {
	ID         string            // Unique identifier
	Title      string            // Original title attribute
	PageNumber int               // Page number in document
	ImageName  string            // Source image filename
	Lang       string            // Language code for this page
	BBox       BoundingBox       // Page coordinates
	Areas      []Area            // Content areas (blocks)
	Paragraphs []Paragraph       // Paragraphs directly under page
	Lines      []Line            // Lines directly under page (no parent)
	Metadata   map[string]string // Other page properties
}

// Class assign 'ocr_page' to 'Page' struct
func (Page) Class() string { return "ocr_page" }

// Area represents a content area (column or region)
// Corresponds to hOCR element with class: 'ocr_carea'
type Area struct {
	ID         string            // Unique identifier
	Lang       string            // Language code
	BBox       BoundingBox       // Area coordinates
	Paragraphs []Paragraph       // Paragraphs in this area
	Lines      []Line            // Text lines directly under area
	Words      []Word            // Words directly under area (no line parent)
	Metadata   map[string]string // Other area properties
}

// Class assign 'ocr_carea' to 'Area' struct
func (Area) Class() string { return "ocr_carea" }

// Paragraph represents a paragraph within an area or block
// Corresponds to hOCR element with class: 'ocr_par'
type Paragraph struct {
	ID       string            // Unique identifier
	Lang     string            // Language code
	Dir      string            // Writing direction, "ltr" or "rtl"
	BBox     BoundingBox       // Paragraph coordinates
	Lines    []Line            // Text lines in this paragraph
	Words    []Word            // Words directly under paragraph (no line parent)
	Metadata map[string]string // Other paragraph properties
}

// Class assign 'ocr_par' to 'Paragraph' struct
func (Paragraph) Class() string { return "ocr_par" }

// LineClasses are the hOCR classes parsed as text lines.
var LineClasses = []string{"ocr_line", "ocr_caption", "ocr_textfloat", "ocr_header"}

// Baseline is the hOCR 'baseline' property: a line through the point
// (x1, y2+Offset) with the given slope, relative to the bottom-left corner
// of the line box.
type Baseline struct {
	Slope  float64
	Offset float64
}

// Line represents a line of text
// Corresponds to hOCR elements with one of the LineClasses
type Line struct {
	ID          string            // Unique identifier
	Kind        string            // hOCR class, "ocr_line" when empty
	Lang        string            // Language code
	BBox        BoundingBox       // Line coordinates
	Baseline    *Baseline         // nil when the title has no baseline
	TextAngle   float64           // Degrees, counter-clockwise
	XSize       float64           // Line height in pixels
	XDescenders float64           // Descender height
	XAscenders  float64           // Ascender height above the x-height
	Words       []Word            // Words in this line
	Metadata    map[string]string // Other line properties
}

// Class returns the hOCR class of the line.
func (l Line) Class() string {
	if l.Kind == "" {
		return "ocr_line"
	}
	return l.Kind
}

// BaselinePoints returns the end points of the baseline across the line box.
// Without a baseline property the bottom edge of the box is used.
func (l Line) BaselinePoints() [2]geom.Point {
	var b Baseline
	if l.Baseline != nil {
		b = *l.Baseline
	}
	y := l.BBox.Y2 + b.Offset
	w := l.BBox.X2 - l.BBox.X1
	return [2]geom.Point{
		{X: l.BBox.X1, Y: y},
		{X: l.BBox.X2, Y: y + b.Slope*w},
	}
}

// Word is a recognized word with bounding box
// Corresponds to hOCR element with class: 'ocrx_word'
type Word struct {
	ID         string            // Unique identifier
	Text       string            // The actual text content
	BBox       BoundingBox       // Word coordinates
	Confidence float64           // Recognition confidence (0-100)
	Lang       string            // Language code
	Glyphs     []Glyph           // Character boxes, when the engine emits them
	Metadata   map[string]string // Other word properties
}

// Class assign 'ocrx_word' to 'Word' struct
func (Word) Class() string { return "ocrx_word" }

// Glyph is one recognized character
// Corresponds to hOCR element with class: 'ocrx_cinfo'
type Glyph struct {
	Text       string
	BBox       BoundingBox // from 'x_bboxes'
	Confidence float64     // from 'x_conf'
}

// BoundingBox represents a rectangle in the document
// Used to store hOCR 'bbox' property values
type BoundingBox struct {
	X1 float64 // Left coordinate
	Y1 float64 // Top coordinate
	X2 float64 // Right coordinate
	Y2 float64 // Bottom coordinate
}

// NewBoundingBox creates a bounding box from coordinates.
// x1, y1 represent the top-left corner, while x2, y2 represent the bottom-right corner.
func NewBoundingBox(x1, y1, x2, y2 float64) BoundingBox {
	return BoundingBox{
		X1: x1,
		Y1: y1,
		X2: x2,
		Y2: y2,
	}
}

// BBox converts the box to a geometry box.
func (b BoundingBox) BBox() geom.BBox {
	return geom.BBox{XMin: b.X1, YMin: b.Y1, XMax: b.X2, YMax: b.Y2}
}

// Empty reports whether the box has no area.
func (b BoundingBox) Empty() bool {
	return b.X2 <= b.X1 || b.Y2 <= b.Y1
}

// FromBBox converts a geometry box to an hOCR bounding box.
func FromBBox(b geom.BBox) BoundingBox {
	return NewBoundingBox(b.XMin, b.YMin, b.XMax, b.YMax)
}

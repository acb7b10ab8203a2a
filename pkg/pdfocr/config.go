package pdfocr

import (
	"github.com/sirupsen/logrus"
)

// OCRConfig holds user options for applying OCR to PDF
type OCRConfig struct {
	Debug     bool           // Draw the text layer visibly with word boxes
	Force     bool           // Force reapply OCR even if layer already exists
	LayerName string         // Base name of OCR layer (page number will be appended)
	StartPage int            // First page of the input PDF that receives text
	DPI       float64        // Image resolution; 0 maps one pixel to one point
	Lines     bool           // Draw whole lines instead of words
	DumpPDF   bool           // Log the PDF structure at debug level
	Logger    *logrus.Logger // Logger for warnings (nil = logrus.StandardLogger())
	Font      FontConfig
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() OCRConfig {
	return OCRConfig{
		LayerName: "OCR Text", // Will be formatted as "OCR Text (Page X)" in the final PDF
		StartPage: 1,
		Font:      DefaultFont,
	}
}

func (c OCRConfig) log() *logrus.Entry {
	l := c.Logger
	if l == nil {
		l = logrus.StandardLogger()
	}
	return l.WithField("component", "pdfocr")
}

// scale converts image pixels to PDF points.
func (c OCRConfig) scale() float64 {
	if c.DPI <= 0 {
		return 1
	}
	return 72 / c.DPI
}

// FontConfig contains font settings for OCR text rendering
type FontConfig struct {
	Name        string  // Font name (e.g., "Helvetica")
	Style       string  // Font style ("", "B", "I", "BI")
	Size        float64 // Default font size
	AscentRatio float64 // Vertical positioning ratio
}

// DefaultFont sets the default font to Helvetica which is tried and tested for the OCR layer
var DefaultFont = FontConfig{
	Name:        "Helvetica",
	Style:       "",
	Size:        10,
	AscentRatio: 0.718,
}

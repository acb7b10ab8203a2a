package pdfocr

import (
	"fmt"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"
)

// drawOCRLayer draws the OCR text onto a layer in a pdf page.
// The pageNum parameter is used to create unique layer names for each page.
func drawOCRLayer(
	pdf *fpdf.Fpdf,
	boxes []textBox,
	pageNum int,
	transform func(x, y float64) (float64, float64),
	config OCRConfig,
) error {
	layerName := config.LayerName
	if pageNum > 0 {
		layerName = fmt.Sprintf("%s (Page %d)", config.LayerName, pageNum)
	}

	layer := pdf.AddLayer(layerName, true)
	pdf.BeginLayer(layer)
	pdf.SetFont(config.Font.Name, config.Font.Style, config.Font.Size)

	if config.Debug {
		pdf.SetTextColor(255, 0, 0) // highlight text in red
	} else {
		pdf.SetAlpha(0.0, "Normal") // hide text from normal view
	}

	encodingErrors := 0
	for _, b := range boxes {
		if !drawWord(pdf, b, transform, config) {
			encodingErrors++
		}
	}
	pdf.EndLayer()

	// Report encoding errors if more than a threshold
	if len(boxes) > 0 && encodingErrors > len(boxes)/10 {
		return fmt.Errorf("character encoding issues in %d of %d words",
			encodingErrors, len(boxes))
	}
	if encodingErrors > 0 {
		config.log().WithField("page", pageNum).
			Warnf("%d words could not be encoded as Latin-1", encodingErrors)
	}
	return nil
}

// drawWord renders a single text box onto the PDF layer. It returns false
// when the text had to be written without Latin-1 conversion.
func drawWord(pdf *fpdf.Fpdf, b textBox, transform func(x, y float64) (float64, float64),
	config OCRConfig) bool {

	x, y := transform(b.Box.XMin, b.Box.YMin)
	x2, y2 := transform(b.Box.XMax, b.Box.YMax)
	wordWidth := x2 - x

	// Convert text to ISO-8859-1 to avoid PDF encoding issues
	ok := true
	latin1, err := charmap.ISO8859_1.NewEncoder().String(b.Text)
	if err != nil {
		ok = false
		latin1 = b.Text // fallback to raw text
	}

	strWidth := pdf.GetStringWidth(latin1)
	if strWidth > 0 {
		pdf.SetFontSize(config.Font.Size * wordWidth / strWidth)
	}

	fontSize, _ := pdf.GetFontSize()
	baseline := y + fontSize*config.Font.AscentRatio

	pdf.Text(x, baseline, latin1)
	pdf.SetFontSize(config.Font.Size)

	if config.Debug {
		pdf.Rect(x, y, wordWidth, y2-y, "D")
	}
	return ok
}

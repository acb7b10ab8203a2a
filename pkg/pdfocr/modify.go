package pdfocr

import (
	"bytes"
	"io"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"
	"github.com/gardar/pagexml/pkg/pagexml"
)

// modifyExistingPDF imports pages from an existing PDF and overlays OCR text
// layers. Document page pages[i] is drawn on PDF page StartPage+i.
func modifyExistingPDF(inputPDFData []byte, px *pagexml.PageXML, pages []int, config OCRConfig) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "", "")
	importer := gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(inputPDFData))
	s := config.scale()

	for i, n := range pages {
		page := px.Page(n)
		pw, err := px.PageWidth(page)
		if err != nil {
			return nil, err
		}
		ph, err := px.PageHeight(page)
		if err != nil {
			return nil, err
		}
		w, h := float64(pw)*s, float64(ph)*s

		pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
		tpl := importer.ImportPageFromStream(pdf, &rs, config.StartPage+i, "/MediaBox")
		importer.UseImportedTemplate(pdf, tpl, 0, 0, w, 0)

		transform := func(x, y float64) (float64, float64) {
			return normalizeCoords(x, y, float64(pw), float64(ph), w, h)
		}
		if err := drawOCRLayer(pdf, pageText(page, config.Lines), i+1, transform, config); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

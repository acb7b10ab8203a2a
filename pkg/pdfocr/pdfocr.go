// Package pdfocr adds invisible text layers read from Page XML documents to
// PDF files.
//
// A searchable PDF is either assembled from the page images referenced by a
// Page XML document, or an existing PDF is overlaid page by page. The text
// of each TextLine, or of its Words when they carry text, is placed over its
// bounding box. The resulting text is:
// - Fully searchable
// - Selectable with mouse drag operations
// - Toggled on/off as one optional content layer per page
//
// Main Functions:
//
// - ApplyOCR: Adds OCR text layer to an existing PDF
// - AssembleWithOCR: Creates a new PDF from page images with OCR text layer
// - DetectOCR: Reports text layers already present in a PDF
package pdfocr

import (
	"fmt"

	"github.com/gardar/pagexml/pkg/pagexml"
)

// selectPages returns the page indexes of px selected by pageSet ("1-3,5",
// empty for all).
func selectPages(px *pagexml.PageXML, pageSet string) ([]int, error) {
	total := len(px.Pages())
	if total == 0 {
		return nil, fmt.Errorf("document contains no pages")
	}
	return pagexml.ParsePageSet(pageSet, total)
}

// AssembleWithOCR creates a PDF from the page images of px and draws the
// recognized text of each selected page over its image.
func AssembleWithOCR(px *pagexml.PageXML, pageSet string, config OCRConfig) ([]byte, error) {
	if px == nil {
		return nil, fmt.Errorf("document is nil")
	}
	pages, err := selectPages(px, pageSet)
	if err != nil {
		return nil, err
	}
	defer px.ReleaseImages()

	finalPDF, err := createPDFFromImages(px, pages, config)
	if err != nil {
		return nil, fmt.Errorf("error creating PDF from images: %w", err)
	}
	return finalPDF, nil
}

// ApplyOCR overlays the text of the selected pages of px on an existing PDF,
// starting at PDF page config.StartPage. It refuses PDFs that already have a
// layer named config.LayerName unless config.Force is set.
func ApplyOCR(inputPDFData []byte, px *pagexml.PageXML, pageSet string, config OCRConfig) ([]byte, error) {
	if len(inputPDFData) == 0 {
		return nil, fmt.Errorf("input PDF data is empty")
	}
	if px == nil {
		return nil, fmt.Errorf("document is nil")
	}
	if config.StartPage < 1 {
		return nil, fmt.Errorf("start page must be at least 1, got %d", config.StartPage)
	}
	pages, err := selectPages(px, pageSet)
	if err != nil {
		return nil, err
	}
	log := config.log()

	if config.DumpPDF {
		dumpPDFStructure(inputPDFData, 2000, log)
	}

	detection, err := DetectOCR(inputPDFData, config)
	if err != nil {
		return nil, fmt.Errorf("layer detection failed: %w", err)
	}
	for i, layer := range detection.LayerInfo.Layers {
		log.WithField("layer", layer).Debugf("existing layer %d", i+1)
	}
	for _, warning := range detection.Warnings {
		log.Warn(warning)
	}

	// Enforce safety check unless force override is requested
	if detection.HasLayerOCR && !config.Force {
		return nil, fmt.Errorf("file already has OCR (layer '%s'), use force to reapply",
			detection.LayerInfo.OCRLayerName)
	} else if detection.HasLayerOCR {
		log.Warn("file already has OCR; reapplying due to force will result in duplicate OCR data")
	}

	finalPDF, err := modifyExistingPDF(inputPDFData, px, pages, config)
	if err != nil {
		return nil, fmt.Errorf("error modifying existing PDF: %w", err)
	}
	return finalPDF, nil
}

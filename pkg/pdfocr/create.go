package pdfocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"strings"

	"codeberg.org/go-pdf/fpdf"
	"github.com/gardar/pagexml/pkg/pagexml"
	"github.com/sirupsen/logrus"
)

// createPDFFromImages builds a new PDF from the page images of a Page XML
// document with the recognized text drawn over each image.
func createPDFFromImages(px *pagexml.PageXML, pages []int, config OCRConfig) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "A4", "")
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

		data, imageType, err := pageImageData(px, n)
		if err != nil {
			return nil, err
		}
		config.log().WithFields(logrus.Fields{"page": n + 1, "type": imageType}).Debug("adding page image")

		pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
		imageName := fmt.Sprintf("img%d", n)
		opts := fpdf.ImageOptions{ReadDpi: false, ImageType: imageType}
		pdf.RegisterImageOptionsReader(imageName, opts, bytes.NewReader(data))
		pdf.ImageOptions(imageName, 0, 0, w, h, false, opts, 0, "")

		transform := func(x, y float64) (float64, float64) {
			return normalizeCoords(x, y, float64(pw), float64(ph), w, h)
		}
		if err := drawOCRLayer(pdf, pageText(page, config.Lines), i+1, transform, config); err != nil {
			return nil, fmt.Errorf("failed to draw OCR layer for page %d: %w", n+1, err)
		}
		px.ReleaseImage(n)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// pageImageData returns the encoded image of page n in a format fpdf can
// embed. Files that are not PNG, JPEG or GIF, and pages with an image
// orientation, are decoded through the document and re-encoded as PNG.
func pageImageData(px *pagexml.PageXML, n int) ([]byte, string, error) {
	if angle, _, ok := px.ImageOrientation(px.Page(n)); !ok || angle == 0 {
		if data, err := os.ReadFile(px.PageImageFilename(n)); err == nil {
			if imageType, err := detectImageType(data); err == nil && embeddable(imageType) {
				return data, imageType, nil
			}
		}
	}
	img, err := px.PageImage(n)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load image of page %d: %w", n+1, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("failed to encode image of page %d: %w", n+1, err)
	}
	return buf.Bytes(), "PNG", nil
}

func embeddable(imageType string) bool {
	switch imageType {
	case "PNG", "JPEG", "JPG", "GIF":
		return true
	}
	return false
}

// detectImageType tries to figure out whether the data is PNG, JPEG, etc.
func detectImageType(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode image config: %w", err)
	}
	return strings.ToUpper(format), nil
}

// Package gdocai converts Google Document AI OCR results to Page XML.
//
// A document (PDF or image) is sent to a Document AI OCR processor and the
// response is turned into a hierarchy of blocks, paragraphs, lines and
// tokens matched by their text anchors. That hierarchy is then written into
// a Page XML document as TextRegions, TextLines and Words with their
// polygons, baselines, text and confidences.
//
// Main Functions:
//
// - ProcessDocument: Sends a document to Google Document AI for processing
// - DocumentFromProto: Converts Document AI response to a structured format
// - Recognize: Processes a file and returns the structured document
// - NewPageXML: Builds a Page XML document from a structured document
//
// Usage Requirements:
//
// - Google Cloud project with Document AI API enabled
// - Document AI processor configured for OCR
// - Credentials from Config.CredentialsFile or application default credentials
package gdocai

import (
	"context"
	"fmt"
	"os"

	"github.com/gardar/pagexml/pkg/pagexml"
)

// Recognize processes the file at path with Document AI.
func Recognize(ctx context.Context, path string, cfg *Config) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	mimeType, err := MimeType(path, data)
	if err != nil {
		return nil, err
	}
	raw, err := ProcessDocument(ctx, data, mimeType, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to process %s: %w", path, err)
	}
	return DocumentFromProto(raw), nil
}

// NewPageXML creates a Page XML document with one Page per page of doc,
// sized by the page dimensions and referring to imageNames[i], and fills it
// with the recognized text.
func NewPageXML(doc *Document, cfg pagexml.Config, imageNames []string) (*pagexml.PageXML, error) {
	if len(doc.Pages) == 0 {
		return nil, fmt.Errorf("document has no pages")
	}
	if len(imageNames) != len(doc.Pages) {
		return nil, fmt.Errorf("got %d image names for %d pages", len(imageNames), len(doc.Pages))
	}
	px := pagexml.New(cfg)
	for i, p := range doc.Pages {
		w, h := int(p.Width()+0.5), int(p.Height()+0.5)
		var err error
		if i == 0 {
			err = px.NewXML("", imageNames[i], w, h)
		} else {
			_, err = px.AddPage(imageNames[i], w, h, nil)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := doc.AppendTo(px); err != nil {
		return nil, err
	}
	return px, nil
}

package recognize

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Engine produces the hOCR of a page image.
type Engine interface {
	Name() string
	HOCR(ctx context.Context, imagePath string) ([]byte, error)
}

// Tesseract is an Engine backed by the tesseract library through gosseract.
type Tesseract struct {
	Languages      []string
	PSM            int               // page segmentation mode, 0 = library default
	TessdataPrefix string            // models directory, empty = TESSDATA_PREFIX
	DPI            int               // resolution hint, 0 = from the image
	CharBoxes      bool              // emit ocrx_cinfo glyph boxes
	Variables      map[string]string // other tesseract variables

	clientFactory func() *gosseract.Client
}

// NewTesseract returns a Tesseract engine configured from cfg.
func NewTesseract(cfg Config) *Tesseract {
	return &Tesseract{
		Languages:      cfg.Languages,
		PSM:            cfg.PSM,
		TessdataPrefix: cfg.TessdataPrefix,
		DPI:            cfg.DPI,
		CharBoxes:      cfg.Layout == "glyph",
		Variables:      cfg.Variables,
		clientFactory:  gosseract.NewClient,
	}
}

// Name returns the engine name and library version.
func (t *Tesseract) Name() string { return "tesseract " + gosseract.Version() }

// HOCR recognizes the image at imagePath.
func (t *Tesseract) HOCR(ctx context.Context, imagePath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := t.clientFactory()
	defer c.Close()

	if t.TessdataPrefix != "" {
		if err := c.SetTessdataPrefix(t.TessdataPrefix); err != nil {
			return nil, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if len(t.Languages) > 0 {
		if err := c.SetLanguage(t.Languages...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	if t.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(t.PSM)); err != nil {
			return nil, fmt.Errorf("set page segmentation mode: %w", err)
		}
	}
	if t.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(t.DPI)); err != nil {
			return nil, fmt.Errorf("set dpi: %w", err)
		}
	}
	if t.CharBoxes {
		if err := c.SetVariable(gosseract.SettableVariable("hocr_char_boxes"), "1"); err != nil {
			return nil, fmt.Errorf("set hocr_char_boxes: %w", err)
		}
	}
	for k, v := range t.Variables {
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return nil, fmt.Errorf("set variable %s: %w", k, err)
		}
	}
	if err := c.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	out, err := c.HOCRText()
	if err != nil {
		return nil, fmt.Errorf("recognize %s: %w", imagePath, err)
	}
	return []byte(out), nil
}

// Package recognize runs an OCR engine over page images and records the
// result as Page XML.
package recognize

import (
	"context"
	"fmt"

	"github.com/gardar/pagexml/pkg/hocr"
	"github.com/gardar/pagexml/pkg/pagexml"
	"github.com/gardar/pagexml/pkg/raster"
	"github.com/sirupsen/logrus"
)

// Config holds the recognition settings.
type Config struct {
	Languages      []string          `yaml:"languages"`
	PSM            int               `yaml:"psm"`
	TessdataPrefix string            `yaml:"tessdata_prefix"`
	DPI            int               `yaml:"dpi"`
	Variables      map[string]string `yaml:"variables"`
	Layout         string            `yaml:"layout_level"` // region, line, word or glyph
	Text           string            `yaml:"text_level"`   // deepest level given a TextEquiv
	FixOrientation bool              `yaml:"fix_orientation"`
	Replace        bool              `yaml:"replace"` // re-recognize pages that already have regions
	Pages          string            `yaml:"pages"`   // page set, empty for all
}

// DefaultConfig returns word level layout and text in English.
func DefaultConfig() Config {
	return Config{
		Languages: []string{"eng"},
		Layout:    "word",
		Text:      "word",
	}
}

// Recognizer turns engine output into Page XML elements.
type Recognizer struct {
	Engine         Engine
	Layout         hocr.Level
	Text           hocr.Level
	FixOrientation bool
	Replace        bool
	Pages          string
	Logger         *logrus.Logger
}

// New returns a Recognizer using engine with the levels of cfg.
func New(engine Engine, cfg Config) (*Recognizer, error) {
	layout, err := hocr.ParseLevel(cfg.Layout)
	if err != nil {
		return nil, fmt.Errorf("layout level: %w", err)
	}
	text, err := hocr.ParseLevel(cfg.Text)
	if err != nil {
		return nil, fmt.Errorf("text level: %w", err)
	}
	return &Recognizer{
		Engine:         engine,
		Layout:         layout,
		Text:           text,
		FixOrientation: cfg.FixOrientation,
		Replace:        cfg.Replace,
		Pages:          cfg.Pages,
	}, nil
}

func (r *Recognizer) log() *logrus.Entry {
	l := r.Logger
	if l == nil {
		l = logrus.StandardLogger()
	}
	return l.WithField("component", "recognize")
}

// RecognizeImages creates a document with one page per image and
// recognizes all of them.
func (r *Recognizer) RecognizeImages(ctx context.Context, images []string, cfg pagexml.Config) (*pagexml.PageXML, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images given")
	}
	if cfg.Logger == nil {
		cfg.Logger = r.Logger
	}
	px := pagexml.New(cfg)
	for i, img := range images {
		w, h, err := raster.DecodeConfig(img)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			err = px.NewXML(cfg.Creator, img, w, h)
		} else {
			_, err = px.AddPage(img, w, h, nil)
		}
		if err != nil {
			return nil, err
		}
	}
	if _, err := r.Recognize(ctx, px); err != nil {
		return nil, err
	}
	return px, nil
}

// Recognize runs the engine on the image of every selected page of px and
// appends the recognized regions. Pages that already contain TextRegions are
// skipped unless Replace is set, in which case their regions are removed
// first. It returns the number of regions added.
func (r *Recognizer) Recognize(ctx context.Context, px *pagexml.PageXML) (int, error) {
	pages := px.Pages()
	sel, err := pagexml.ParsePageSet(r.Pages, len(pages))
	if err != nil {
		return 0, err
	}
	if _, err := px.ProcessStart(r.Engine.Name(), fmt.Sprintf("layout=%s text=%s", r.Layout, r.Text)); err != nil {
		return 0, err
	}

	added := 0
	for _, n := range sel {
		if err := ctx.Err(); err != nil {
			return added, err
		}
		page := pages[n]
		log := r.log().WithField("page", n+1)

		existing, err := px.Count("_:TextRegion", page)
		if err != nil {
			return added, err
		}
		if existing > 0 {
			if !r.Replace {
				log.Infof("skipping page with %d regions", existing)
				continue
			}
			if _, err := px.RemoveQuery("_:TextRegion", page); err != nil {
				return added, err
			}
		}

		k, err := r.recognizePage(ctx, px, n, len(pages) > 1)
		if err != nil {
			return added, fmt.Errorf("page %d: %w", n+1, err)
		}
		added += k
		log.WithField("regions", k).Debug("page recognized")

		if r.FixOrientation {
			angle, err := px.FixPageOrientation(page)
			if err != nil {
				return added, fmt.Errorf("page %d: %w", n+1, err)
			}
			if angle != 0 {
				log.WithField("angle", angle).Info("page orientation corrected")
			}
		}
	}
	return added, px.ProcessEnd()
}

func (r *Recognizer) recognizePage(ctx context.Context, px *pagexml.PageXML, n int, multi bool) (int, error) {
	path := px.PageImageFilename(n)
	if path == "" {
		return 0, fmt.Errorf("page has no image")
	}
	out, err := r.Engine.HOCR(ctx, path)
	if err != nil {
		return 0, err
	}
	doc, err := hocr.ParseHOCR(out)
	if err != nil {
		return 0, fmt.Errorf("engine output: %w", err)
	}
	if len(doc.Pages) != 1 {
		return 0, fmt.Errorf("engine returned %d pages for one image", len(doc.Pages))
	}
	opts := hocr.ImportOptions{Layout: r.Layout, Text: r.Text}
	if multi {
		opts.IDPrefix = fmt.Sprintf("pg%d_", n+1)
	}
	return hocr.AppendPage(px, px.Page(n), doc.Pages[0], opts)
}

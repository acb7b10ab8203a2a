package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gardar/pagexml/pkg/gdocai"
	"github.com/gardar/pagexml/pkg/pagexml"
	"github.com/gardar/pagexml/pkg/pdfocr"
	"github.com/gardar/pagexml/pkg/recognize"
	"gopkg.in/yaml.v3"
)

type pageConfig struct {
	Creator       string `yaml:"creator"`
	Indent        bool   `yaml:"indent"`
	RoundPoints   bool   `yaml:"round_points"`
	GrayImages    bool   `yaml:"gray_images"`
	ExtendedNames bool   `yaml:"extended_names"`
}

type layoutConfig struct {
	FakeBaseline   bool    `yaml:"fake_baseline"`
	MaxAngleDiff   float64 `yaml:"max_angle_diff"`
	MaxHorizIoU    float64 `yaml:"max_horiz_iou"`
	MinProlongFact float64 `yaml:"min_prolong_fact"`
	ProlongAlpha   float64 `yaml:"prolong_alpha"`
}

type pdfConfig struct {
	LayerName string  `yaml:"layer_name"`
	DPI       float64 `yaml:"dpi"`
	Lines     bool    `yaml:"lines"`
	FontName  string  `yaml:"font_name"`
	FontSize  float64 `yaml:"font_size"`
}

// fileConfig is the layout of the YAML configuration file.
type fileConfig struct {
	Page      pageConfig       `yaml:"page"`
	Layout    layoutConfig     `yaml:"layout"`
	Recognize recognize.Config `yaml:"recognize"`
	DocAI     gdocai.Config    `yaml:"docai"`
	PDF       pdfConfig        `yaml:"pdf"`
}

func defaultFileConfig() fileConfig {
	pc := pagexml.DefaultConfig()
	lc := pagexml.DefaultLayoutConfig()
	oc := pdfocr.DefaultConfig()
	return fileConfig{
		Page: pageConfig{
			Creator:       pc.Creator,
			Indent:        pc.Indent,
			RoundPoints:   pc.RoundPoints,
			GrayImages:    pc.GrayImages,
			ExtendedNames: pc.ExtendedNames,
		},
		Layout: layoutConfig{
			MaxAngleDiff:   lc.MaxAngleDiff,
			MaxHorizIoU:    lc.MaxHorizIoU,
			MinProlongFact: lc.MinProlongFact,
			ProlongAlpha:   lc.ProlongAlpha,
		},
		Recognize: recognize.DefaultConfig(),
		PDF: pdfConfig{
			LayerName: oc.LayerName,
			FontName:  oc.Font.Name,
			FontSize:  oc.Font.Size,
		},
	}
}

// loadConfig reads a YAML file over the defaults. An empty path returns the
// defaults.
func loadConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnv overrides cfg with PAGEXML_* environment variables.
func applyEnv(cfg *fileConfig) error {
	strs := map[string]*string{
		"PAGEXML_CREATOR":            &cfg.Page.Creator,
		"PAGEXML_DOCAI_PROJECT_ID":   &cfg.DocAI.ProjectID,
		"PAGEXML_DOCAI_LOCATION":     &cfg.DocAI.Location,
		"PAGEXML_DOCAI_PROCESSOR_ID": &cfg.DocAI.ProcessorID,
		"PAGEXML_DOCAI_CREDENTIALS":  &cfg.DocAI.CredentialsFile,
		"PAGEXML_TESSDATA_PREFIX":    &cfg.Recognize.TessdataPrefix,
		"PAGEXML_LAYOUT_LEVEL":       &cfg.Recognize.Layout,
		"PAGEXML_TEXT_LEVEL":         &cfg.Recognize.Text,
		"PAGEXML_PDF_LAYER_NAME":     &cfg.PDF.LayerName,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv("PAGEXML_LANGUAGES"); ok {
		cfg.Recognize.Languages = splitList(v)
	}
	if v, ok := os.LookupEnv("PAGEXML_PSM"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PAGEXML_PSM: %w", err)
		}
		cfg.Recognize.PSM = n
	}
	if v, ok := os.LookupEnv("PAGEXML_PDF_DPI"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("PAGEXML_PDF_DPI: %w", err)
		}
		cfg.PDF.DPI = f
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func (c fileConfig) pageXML() pagexml.Config {
	pc := pagexml.DefaultConfig()
	pc.Creator = c.Page.Creator
	pc.Indent = c.Page.Indent
	pc.RoundPoints = c.Page.RoundPoints
	pc.GrayImages = c.Page.GrayImages
	pc.ExtendedNames = c.Page.ExtendedNames
	pc.Logger = log
	return pc
}

func (c fileConfig) layout() pagexml.LayoutConfig {
	lc := pagexml.DefaultLayoutConfig()
	lc.FakeBaseline = c.Layout.FakeBaseline
	lc.MaxAngleDiff = c.Layout.MaxAngleDiff
	lc.MaxHorizIoU = c.Layout.MaxHorizIoU
	lc.MinProlongFact = c.Layout.MinProlongFact
	lc.ProlongAlpha = c.Layout.ProlongAlpha
	return lc
}

func (c fileConfig) pdf() pdfocr.OCRConfig {
	oc := pdfocr.DefaultConfig()
	oc.LayerName = c.PDF.LayerName
	oc.DPI = c.PDF.DPI
	oc.Lines = c.PDF.Lines
	if c.PDF.FontName != "" {
		oc.Font.Name = c.PDF.FontName
	}
	if c.PDF.FontSize > 0 {
		oc.Font.Size = c.PDF.FontSize
	}
	oc.Logger = log
	return oc
}

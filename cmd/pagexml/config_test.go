package main

import (
	"image"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagexml.yml")
	yml := `page:
  round_points: true
recognize:
  languages: [deu, lat]
  layout_level: line
docai:
  project_id: demo
  location: eu
pdf:
  dpi: 300
`
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if !c.Page.RoundPoints || !c.Page.Indent {
		t.Errorf("page config = %+v, want round points and default indent", c.Page)
	}
	if len(c.Recognize.Languages) != 2 || c.Recognize.Layout != "line" || c.Recognize.Text != "word" {
		t.Errorf("recognize config = %+v", c.Recognize)
	}
	if c.DocAI.ProjectID != "demo" || c.PDF.DPI != 300 || c.PDF.LayerName != "OCR Text" {
		t.Errorf("docai/pdf config = %+v %+v", c.DocAI, c.PDF)
	}
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("loadConfig() of a missing file succeeded")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PAGEXML_DOCAI_PROCESSOR_ID", "proc")
	t.Setenv("PAGEXML_LANGUAGES", "eng, deu,")
	t.Setenv("PAGEXML_PSM", "6")
	c := defaultFileConfig()
	if err := applyEnv(&c); err != nil {
		t.Fatalf("applyEnv() error = %v", err)
	}
	if c.DocAI.ProcessorID != "proc" || c.Recognize.PSM != 6 {
		t.Errorf("config = %+v", c)
	}
	if got := c.Recognize.Languages; len(got) != 2 || got[1] != "deu" {
		t.Errorf("languages = %q", got)
	}

	t.Setenv("PAGEXML_PDF_DPI", "high")
	if err := applyEnv(&c); err == nil {
		t.Error("applyEnv() accepted a non numeric dpi")
	}
}

func TestParseSize(t *testing.T) {
	if pt, err := parseSize("1200X800"); err != nil || pt != image.Pt(1200, 800) {
		t.Errorf("parseSize() = %v, %v", pt, err)
	}
	for _, s := range []string{"1200", "ax8", ""} {
		if _, err := parseSize(s); err == nil {
			t.Errorf("parseSize(%q) succeeded", s)
		}
	}
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a/1.png", "a/b/2.png", "c.txt"} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	files, err := expandInputs([]string{filepath.Join(dir, "**", "*.png")})
	if err != nil {
		t.Fatalf("expandInputs() error = %v", err)
	}
	if len(files) != 2 {
		t.Errorf("expandInputs() = %q, want 2 files", files)
	}
	if _, err := expandInputs([]string{filepath.Join(dir, "*.tif")}); err == nil {
		t.Error("expandInputs() without matches succeeded")
	}
}

package hocr

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/gardar/pagexml/pkg/geom"
	"github.com/gardar/pagexml/pkg/pagexml"
	"github.com/sirupsen/logrus"
)

const tesseractPage = `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN"
    "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="en" lang="en">
 <head>
  <title></title>
  <meta http-equiv="Content-Type" content="text/html;charset=utf-8"/>
  <meta name='ocr-system' content='tesseract 5.3.0' />
  <meta name='ocr-capabilities' content='ocr_page ocr_carea ocr_par ocr_line ocrx_word'/>
 </head>
 <body>
  <div class='ocr_page' id='page_1' title='image "scan.png"; bbox 0 0 200 100; ppageno 0'>
   <div class='ocr_carea' id='block_1_1' title="bbox 10 10 190 60">
    <p class='ocr_par' id='par_1_1' lang='eng' title="bbox 10 10 190 60">
     <span class='ocr_line' id='line_1_1' title="bbox 10 10 190 30; baseline 0 -5; x_size 20; x_descenders 5; x_ascenders 5">
      <span class='ocrx_word' id='word_1_1' title='bbox 10 10 90 30; x_wconf 96'>Hello</span>
      <span class='ocrx_word' id='word_1_2' title='bbox 100 10 190 30; x_wconf 90'>world</span>
     </span>
     <span class='ocr_caption' id='line_1_2' title="bbox 10 40 100 60; baseline 0.01 -4; textangle 0">
      <span class='ocrx_word' id='word_1_3' title='bbox 0 0 0 0; x_wconf 50'>e&#769;</span>
      <span class='ocrx_word' id='word_1_4' title='bbox 50 40 100 60; x_wconf 80'>fin</span>
     </span>
    </p>
   </div>
  </div>
 </body>
</html>`

func parseSample(t *testing.T) HOCR {
	t.Helper()
	doc, err := ParseHOCR([]byte(tesseractPage))
	if err != nil {
		t.Fatalf("ParseHOCR() error: %v", err)
	}
	return doc
}

func newDocument(t *testing.T) *pagexml.PageXML {
	t.Helper()
	cfg := pagexml.DefaultConfig()
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	cfg.Logger = log
	px := pagexml.New(cfg)
	if err := px.NewXML("test", "scan.png", 200, 100); err != nil {
		t.Fatalf("NewXML() error: %v", err)
	}
	return px
}

func TestParseHOCR(t *testing.T) {
	doc := parseSample(t)
	if doc.Metadata["ocr-system"] != "tesseract 5.3.0" || doc.Language != "en" {
		t.Errorf("metadata = %v, language = %q", doc.Metadata, doc.Language)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(doc.Pages))
	}
	page := doc.Pages[0]
	if page.ImageName != "scan.png" || page.BBox.X2 != 200 || page.BBox.Y2 != 100 {
		t.Errorf("page image, bbox = %q, %+v", page.ImageName, page.BBox)
	}
	if len(page.Areas) != 1 || len(page.Areas[0].Paragraphs) != 1 {
		t.Fatalf("unexpected page structure: %+v", page)
	}
	lines := page.Areas[0].Paragraphs[0].Lines
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0].Baseline == nil || lines[0].Baseline.Offset != -5 || lines[0].XSize != 20 {
		t.Errorf("line properties = %+v", lines[0])
	}
	if lines[1].Class() != "ocr_caption" || lines[0].Class() != "ocr_line" {
		t.Errorf("line classes = %q, %q", lines[0].Class(), lines[1].Class())
	}
	if w := lines[0].Words[0]; w.Text != "Hello" || w.Confidence != 96 || w.BBox.X2 != 90 {
		t.Errorf("first word = %+v", w)
	}
	bl := lines[0].BaselinePoints()
	if bl[0] != (geom.Point{X: 10, Y: 25}) || bl[1] != (geom.Point{X: 190, Y: 25}) {
		t.Errorf("BaselinePoints() = %v", bl)
	}
	if got := ExtractHOCRText(&doc); got != "Hello world\ne\u0301 fin\n" {
		t.Errorf("ExtractHOCRText() = %q", got)
	}
}

func TestParseHOCRLatin1(t *testing.T) {
	data := []byte(`<html><head><meta http-equiv="Content-Type" content="text/html; charset=iso-8859-1"></head><body>` +
		`<div class="ocr_page" title="bbox 0 0 10 10"><span class="ocr_line" title="bbox 0 0 10 10">` +
		`<span class="ocrx_word" title="bbox 0 0 10 10; x_wconf 70">caf` + "\xe9" + `</span></span></div></body></html>`)
	doc, err := ParseHOCR(data)
	if err != nil {
		t.Fatalf("ParseHOCR() error: %v", err)
	}
	if got := doc.Pages[0].Lines[0].Words[0].Text; got != "café" {
		t.Errorf("word text = %q, want café", got)
	}
}

func TestParseHOCRNoPages(t *testing.T) {
	if _, err := ParseHOCR([]byte("<html><body><p>nothing</p></body></html>")); err == nil {
		t.Error("ParseHOCR() without ocr_page succeeded")
	}
}

func TestParseGlyphs(t *testing.T) {
	data := []byte(`<html><body><div class="ocr_page" title="bbox 0 0 50 20">` +
		`<span class="ocr_line" title="bbox 0 0 50 20"><span class="ocrx_word" title="bbox 0 0 20 20; x_wconf 90">` +
		`<span class="ocrx_cinfo" title="x_bboxes 0 0 10 20; x_conf 99.5">a</span>` +
		`<span class="ocrx_cinfo" title="x_bboxes 10 0 20 20; x_conf 80">b</span>` +
		`</span></span></div></body></html>`)
	doc, err := ParseHOCR(data)
	if err != nil {
		t.Fatalf("ParseHOCR() error: %v", err)
	}
	w := doc.Pages[0].Lines[0].Words[0]
	if w.Text != "ab" || len(w.Glyphs) != 2 {
		t.Fatalf("word = %+v", w)
	}
	if g := w.Glyphs[0]; g.Text != "a" || g.Confidence != 99.5 || g.BBox.X2 != 10 {
		t.Errorf("first glyph = %+v", g)
	}
}

func TestAppendPageWords(t *testing.T) {
	doc := parseSample(t)
	px := newDocument(t)
	n, err := AppendPage(px, px.Page(0), doc.Pages[0], ImportOptions{Layout: LevelWord, Text: LevelWord})
	if err != nil {
		t.Fatalf("AppendPage() error: %v", err)
	}
	if n != 1 {
		t.Errorf("AppendPage() = %d regions, want 1", n)
	}
	for _, id := range []string{"b1", "b1_p1_l1", "b1_p1_l2", "b1_p1_l1_w1", "b1_p1_l2_w2"} {
		if px.ElementByID(id) == nil {
			t.Errorf("element %s not created", id)
		}
	}

	line := px.ElementByID("b1_p1_l1")
	bl := pagexml.Points(line, pagexml.ElemBaseline)
	if len(bl) != 2 || bl[0].Y != 25 || bl[1].Y != 25 {
		t.Errorf("line baseline = %v", bl)
	}
	if xh := pagexml.GetXHeight(line); xh != 10 {
		t.Errorf("x-height = %g, want 10", xh)
	}

	text, conf := pagexml.GetTextEquiv(px.ElementByID("b1_p1_l1_w1"))
	if text != "Hello" || math.Abs(conf-0.96) > 1e-9 {
		t.Errorf("word TextEquiv = %q, %g", text, conf)
	}
	unk := px.ElementByID("b1_p1_l2_w1")
	if text, _ := pagexml.GetTextEquiv(unk); text != "\u00e9" {
		t.Errorf("word text = %q, want NFC é", text)
	}
	if _, ok := pagexml.GetPropertyValue(unk, "coords-unk-filler"); !ok {
		t.Error("unknown word coords were not filled")
	}
	if text, _ := pagexml.GetTextEquiv(line); text != "" {
		t.Errorf("line has TextEquiv %q at word text level", text)
	}
}

func TestAppendPageRegionLevel(t *testing.T) {
	doc := parseSample(t)
	px := newDocument(t)
	if _, err := AppendPage(px, px.Page(0), doc.Pages[0], ImportOptions{Layout: LevelRegion, Text: LevelWord, IDPrefix: "pg1_"}); err != nil {
		t.Fatalf("AppendPage() error: %v", err)
	}
	region := px.ElementByID("pg1_b1")
	if region == nil {
		t.Fatal("region pg1_b1 not created")
	}
	if n, _ := px.Count("_:TextLine", region); n != 0 {
		t.Errorf("region level created %d lines", n)
	}
	if text, _ := pagexml.GetTextEquiv(region); text != "Hello world\n\u00e9 fin" {
		t.Errorf("region text = %q", text)
	}
}

func TestFromPageXMLRoundTrip(t *testing.T) {
	doc := parseSample(t)
	px := newDocument(t)
	if _, err := AppendPage(px, px.Page(0), doc.Pages[0], ImportOptions{Layout: LevelWord, Text: LevelWord}); err != nil {
		t.Fatalf("AppendPage() error: %v", err)
	}
	out, err := FromPageXML(px)
	if err != nil {
		t.Fatalf("FromPageXML() error: %v", err)
	}
	line := out.Pages[0].Areas[0].Lines[0]
	if line.Baseline == nil || math.Abs(line.Baseline.Offset+5) > 1e-9 || line.Baseline.Slope != 0 {
		t.Errorf("exported baseline = %+v", line.Baseline)
	}

	html, err := GenerateHOCRDocument(out)
	if err != nil {
		t.Fatalf("GenerateHOCRDocument() error: %v", err)
	}
	if !strings.Contains(html, `image &#34;scan.png&#34;`) && !strings.Contains(html, `image "scan.png"`) {
		t.Errorf("page title missing image name:\n%s", html)
	}
	again, err := ParseHOCR([]byte(html))
	if err != nil {
		t.Fatalf("ParseHOCR(generated) error: %v", err)
	}
	words := again.Pages[0].Areas[0].Lines[0].Words
	if len(words) != 2 || words[0].Text != "Hello" || words[0].Confidence != 96 {
		t.Errorf("reparsed words = %+v", words)
	}
	if bl := again.Pages[0].Areas[0].Lines[0].Baseline; bl == nil || bl.Offset != -5 {
		t.Errorf("reparsed baseline = %+v", bl)
	}
}

func TestParseLevel(t *testing.T) {
	if l, err := ParseLevel("Glyph"); err != nil || l != LevelGlyph {
		t.Errorf("ParseLevel(Glyph) = %v, %v", l, err)
	}
	if _, err := ParseLevel("page"); err == nil {
		t.Error("ParseLevel(page) succeeded")
	}
}

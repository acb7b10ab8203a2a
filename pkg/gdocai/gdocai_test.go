package gdocai

import (
	"bytes"
	"math"
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/gardar/pagexml/pkg/geom"
	"github.com/gardar/pagexml/pkg/pagexml"
	"github.com/sirupsen/logrus"
)

func layout(start, end int64, poly *documentaipb.BoundingPoly, conf float32) *documentaipb.Document_Page_Layout {
	return &documentaipb.Document_Page_Layout{
		TextAnchor: &documentaipb.Document_TextAnchor{
			TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{{StartIndex: start, EndIndex: end}},
		},
		BoundingPoly: poly,
		Confidence:   conf,
	}
}

func box(x1, y1, x2, y2 int32) *documentaipb.BoundingPoly {
	return &documentaipb.BoundingPoly{Vertices: []*documentaipb.Vertex{
		{X: x1, Y: y1}, {X: x2, Y: y1}, {X: x2, Y: y2}, {X: x1, Y: y2},
	}}
}

func normBox(x1, y1, x2, y2 float32) *documentaipb.BoundingPoly {
	return &documentaipb.BoundingPoly{NormalizedVertices: []*documentaipb.NormalizedVertex{
		{X: x1, Y: y1}, {X: x2, Y: y1}, {X: x2, Y: y2}, {X: x1, Y: y2},
	}}
}

// sampleProto is a one page response with two lines in one block.
func sampleProto() *documentaipb.Document {
	return &documentaipb.Document{
		Text: "Hello world\nBye\n",
		Pages: []*documentaipb.Document_Page{{
			PageNumber: 1,
			Dimension:  &documentaipb.Document_Page_Dimension{Width: 200, Height: 100, Unit: "pixels"},
			Blocks: []*documentaipb.Document_Page_Block{
				{Layout: layout(0, 16, normBox(0.05, 0.1, 0.95, 0.6), 0.9)},
			},
			Paragraphs: []*documentaipb.Document_Page_Paragraph{
				{Layout: layout(0, 16, normBox(0.05, 0.1, 0.95, 0.6), 0.9)},
			},
			Lines: []*documentaipb.Document_Page_Line{
				{Layout: layout(0, 12, box(10, 10, 100, 30), 0.85)},
				{Layout: layout(12, 16, box(10, 40, 60, 60), 0.7)},
			},
			Tokens: []*documentaipb.Document_Page_Token{
				{Layout: layout(0, 6, box(10, 10, 50, 30), 0.9)},
				{Layout: layout(6, 12, box(55, 10, 100, 30), 0.8)},
				{Layout: layout(12, 16, box(10, 40, 60, 60), 0.7)},
			},
		}},
	}
}

func quietPageConfig() pagexml.Config {
	cfg := pagexml.DefaultConfig()
	cfg.Logger = logrus.New()
	cfg.Logger.SetOutput(&bytes.Buffer{})
	return cfg
}

func TestDocumentFromProto(t *testing.T) {
	doc := DocumentFromProto(sampleProto())
	if len(doc.Pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(doc.Pages))
	}
	p := doc.Pages[0]
	if len(p.Blocks) != 1 || len(p.Blocks[0].Paragraphs) != 1 || len(p.Blocks[0].Paragraphs[0].Lines) != 2 {
		t.Fatalf("unexpected hierarchy: %+v", p.Blocks)
	}
	line := p.Blocks[0].Paragraphs[0].Lines[0]
	if line.Text != "Hello world" || len(line.Tokens) != 2 {
		t.Errorf("first line = %q with %d tokens", line.Text, len(line.Tokens))
	}
	if got := line.Tokens[1].Text; got != "world" {
		t.Errorf("token text = %q, want trailing break removed", got)
	}
}

func TestNewPageXML(t *testing.T) {
	doc := DocumentFromProto(sampleProto())
	px, err := NewPageXML(doc, quietPageConfig(), []string{"scan.png"})
	if err != nil {
		t.Fatalf("NewPageXML() error: %v", err)
	}
	for _, id := range []string{"b1", "b1_l1", "b1_l2", "b1_l1_w1", "b1_l1_w2", "b1_l2_w1"} {
		if px.ElementByID(id) == nil {
			t.Errorf("element %s not created", id)
		}
	}
	line := px.ElementByID("b1_l1")
	bl := pagexml.Points(line, pagexml.ElemBaseline)
	want := []geom.Point{{X: 10, Y: 30}, {X: 100, Y: 30}}
	if len(bl) != 2 || bl[0] != want[0] || bl[1] != want[1] {
		t.Errorf("baseline = %v, want %v", bl, want)
	}
	if text, _ := pagexml.GetTextEquiv(line); text != "Hello world" {
		t.Errorf("line text = %q", text)
	}
	if text, _ := pagexml.GetTextEquiv(px.ElementByID("b1")); text != "Hello world\nBye" {
		t.Errorf("region text = %q", text)
	}
	if _, conf := pagexml.GetTextEquiv(px.ElementByID("b1_l1_w1")); math.Abs(conf-0.9) > 1e-6 {
		t.Errorf("word confidence = %g, want 0.9", conf)
	}
	if w, _ := px.PageWidth(px.Page(0)); w != 200 {
		t.Errorf("page width = %d, want 200", w)
	}
}

func TestAppendToScalesAndPrefixes(t *testing.T) {
	raw := sampleProto()
	second := sampleProto().Pages[0]
	second.PageNumber = 2
	second.Blocks[0].Layout.Orientation = documentaipb.Document_Page_Layout_PAGE_LEFT
	raw.Pages = append(raw.Pages, second)
	doc := DocumentFromProto(raw)

	px := pagexml.New(quietPageConfig())
	if err := px.NewXML("test", "p1.png", 400, 200); err != nil {
		t.Fatal(err)
	}
	if _, err := px.AddPage("p2.png", 200, 100, nil); err != nil {
		t.Fatal(err)
	}
	if err := doc.AppendTo(px); err != nil {
		t.Fatalf("AppendTo() error: %v", err)
	}
	bl := pagexml.Points(px.ElementByID("pg1_b1_l1"), pagexml.ElemBaseline)
	if len(bl) != 2 || bl[1] != (geom.Point{X: 200, Y: 60}) {
		t.Errorf("scaled baseline = %v", bl)
	}
	r2 := px.ElementByID("pg2_b1")
	if r2 == nil || pagexml.GetRotation(r2) != 90 {
		t.Errorf("second page region missing or not rotated")
	}

	if err := DocumentFromProto(sampleProto()).AppendTo(px); err == nil {
		t.Error("AppendTo() with a page count mismatch succeeded")
	}
}

func TestRegionsFallback(t *testing.T) {
	raw := sampleProto()
	raw.Pages[0].Blocks = nil
	raw.Pages[0].Paragraphs = nil
	doc := DocumentFromProto(raw)
	rs := regions(doc.Pages[0])
	if len(rs) != 1 || len(rs[0].lines) != 2 {
		t.Fatalf("regions() = %+v", rs)
	}
	px, err := NewPageXML(doc, quietPageConfig(), []string{"scan.png"})
	if err != nil {
		t.Fatalf("NewPageXML() error: %v", err)
	}
	pts := pagexml.Points(px.ElementByID("b1"), pagexml.ElemCoords)
	if b := geom.PointsBBox(pts); b.XMin != 10 || b.YMax != 60 {
		t.Errorf("region box = %+v, want the union of the lines", b)
	}
}

func TestMimeType(t *testing.T) {
	if m, err := MimeType("scan.TIF", nil); err != nil || m != "image/tiff" {
		t.Errorf("MimeType(tif) = %q, %v", m, err)
	}
	if m, err := MimeType("upload", []byte("%PDF-1.7\n")); err != nil || m != "application/pdf" {
		t.Errorf("MimeType(sniffed pdf) = %q, %v", m, err)
	}
	if _, err := MimeType("notes.txt", []byte("plain text")); err == nil {
		t.Error("MimeType(txt) succeeded")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{ProjectID: "p"}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted a config without location and processor")
	}
}

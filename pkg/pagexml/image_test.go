package pagexml

import (
	"bytes"
	"image"
	"strings"
	"testing"

	"github.com/gardar/pagexml/pkg/geom"
)

func imageFixture(t *testing.T, w, h int) (*PageXML, *memCodec) {
	t.Helper()
	codec := &memCodec{size: image.Pt(w, h)}
	cfg := testConfig()
	cfg.Images = codec
	return loadString(t, cropDoc, cfg), codec
}

func TestLoadImageSizeDiscrepancy(t *testing.T) {
	p, _ := imageFixture(t, 200, 120)
	_, err := p.LoadImage(0, nil)
	if !IsCode(err, ErrConsistency) {
		t.Fatalf("LoadImage() error = %v, want a consistency error", err)
	}
	if !strings.Contains(err.Error(), "scan 01.png") {
		t.Errorf("error %q does not name the image", err)
	}

	img, err := p.LoadImage(0, &LoadOptions{SkipSizeCheck: true})
	if err != nil {
		t.Fatalf("LoadImage(SkipSizeCheck) error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 120 {
		t.Errorf("image size = %dx%d, want 200x120", b.Dx(), b.Dy())
	}
	if w, _ := p.PageWidth(p.Page(0)); w != 100 {
		t.Errorf("page width = %d, want unchanged 100", w)
	}
}

func TestLoadImageResizeCoords(t *testing.T) {
	p, _ := imageFixture(t, 200, 120)
	if _, err := p.LoadImage(0, &LoadOptions{ResizeCoords: true}); err != nil {
		t.Fatalf("LoadImage(ResizeCoords) error = %v", err)
	}
	page := p.Page(0)
	if w, _ := p.PageWidth(page); w != 200 {
		t.Errorf("page width = %d, want 200", w)
	}
	if h, _ := p.PageHeight(page); h != 120 {
		t.Errorf("page height = %d, want 120", h)
	}
	pts := Points(p.ElementByID("l1"), ElemCoords)
	if len(pts) != 4 || !nearPoint(pts[0], geom.Point{X: 160, Y: 20}) {
		t.Errorf("line coords = %v, want scaled by 2", pts)
	}
}

func TestLoadImageOrientation(t *testing.T) {
	p, _ := imageFixture(t, 60, 100)
	if _, err := p.SetImageOrientation(p.Page(0), 90); err != nil {
		t.Fatal(err)
	}
	img, err := p.LoadImage(0, nil)
	if err != nil {
		t.Fatalf("LoadImage() error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 60 {
		t.Errorf("rotated image = %v, want 100x60", b)
	}
}

func TestCropWithResizeCoords(t *testing.T) {
	p, _ := imageFixture(t, 200, 120)
	if _, err := p.Crop("//_:Word/_:Coords", CropOptions{}); !IsCode(err, ErrConsistency) {
		t.Fatalf("Crop() error = %v, want a consistency error", err)
	}
	imgs, err := p.Crop("//_:Word/_:Coords", CropOptions{Load: &LoadOptions{ResizeCoords: true}})
	if err != nil {
		t.Fatalf("Crop() error = %v", err)
	}
	if len(imgs) != 1 || imgs[0].X != 164 || imgs[0].Y != 24 {
		t.Errorf("crops = %+v, want one at (164,24)", imgs)
	}
}

func TestAreIDsUniqueReportsDuplicates(t *testing.T) {
	var logs bytes.Buffer
	cfg := testConfig()
	cfg.Logger.SetOutput(&logs)
	doc := strings.Replace(cropDoc, `<Word id="w1">`, `<Word id="l1">`, 1)
	p := loadString(t, doc, cfg)
	if p.AreIDsUnique() {
		t.Error("AreIDsUnique() = true for a duplicated id")
	}
	if !strings.Contains(logs.String(), "duplicate id") || !strings.Contains(logs.String(), "l1") {
		t.Errorf("no duplicate id warning logged: %q", logs.String())
	}
}

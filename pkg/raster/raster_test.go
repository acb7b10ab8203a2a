package raster

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/gardar/pagexml/pkg/geom"
)

// marked returns a w×h gray image with a single white pixel at (x,y).
func marked(w, h, x, y int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	img.SetGray(x, y, color.Gray{Y: 255})
	return img
}

func whereIsMark(t *testing.T, img image.Image) image.Point {
	t.Helper()
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if r, _, _, _ := img.At(x, y).RGBA(); r > 0x8000 {
				return image.Pt(x, y)
			}
		}
	}
	t.Fatalf("mark not found")
	return image.Point{}
}

func TestRotate(t *testing.T) {
	const w, h = 5, 3
	tests := []struct {
		angle int
		size  image.Point
		want  image.Point
	}{
		{90, image.Pt(h, w), image.Pt(0, w-1-4)},
		{-90, image.Pt(h, w), image.Pt(h-1-0, 4)},
		{180, image.Pt(w, h), image.Pt(w-1-4, h-1-0)},
	}
	for _, tt := range tests {
		got, err := Codec{}.Rotate(marked(w, h, 4, 0), tt.angle)
		if err != nil {
			t.Fatalf("Rotate(%d) error = %v", tt.angle, err)
		}
		if got.Bounds().Size() != tt.size {
			t.Errorf("Rotate(%d) size = %v, want %v", tt.angle, got.Bounds().Size(), tt.size)
		}
		if p := whereIsMark(t, got); p != tt.want {
			t.Errorf("Rotate(%d) moved (4,0) to %v, want %v", tt.angle, p, tt.want)
		}
	}
	if _, err := (Codec{}).Rotate(marked(w, h, 0, 0), 45); err == nil {
		t.Errorf("Rotate(45) should fail")
	}
}

func TestCrop(t *testing.T) {
	got := Codec{}.Crop(marked(10, 10, 6, 7), image.Rect(5, 5, 20, 20))
	if got.Bounds() != image.Rect(0, 0, 5, 5) {
		t.Fatalf("Crop() bounds = %v", got.Bounds())
	}
	if p := whereIsMark(t, got); p != image.Pt(1, 2) {
		t.Errorf("Crop() mark at %v, want (1,2)", p)
	}
}

func TestMask(t *testing.T) {
	outer := geom.ParsePoints("0,0 19,0 19,19 0,19")
	inner := geom.ParsePoints("5,5 14,5 14,14 5,14")
	m := Mask(30, 30, outer, [][]geom.Point{inner})
	if a := m.AlphaAt(2, 2).A; a != 255 {
		t.Errorf("alpha inside = %d, want 255", a)
	}
	if a := m.AlphaAt(10, 10).A; a != 128 {
		t.Errorf("alpha inside transparent child = %d, want 128", a)
	}
	if a := m.AlphaAt(25, 25).A; a != 0 {
		t.Errorf("alpha outside = %d, want 0", a)
	}
	out := ApplyMask(image.NewGray(image.Rect(0, 0, 30, 30)), m)
	if out.NRGBAAt(25, 25).A != 0 || out.NRGBAAt(2, 2).A != 255 {
		t.Errorf("ApplyMask() did not carry the mask")
	}
}

func TestMaskChildOutsideOpaque(t *testing.T) {
	outer := geom.ParsePoints("0,0 19,0 19,19 0,19")
	child := geom.ParsePoints("15,15 27,15 27,27 15,27")
	m := Mask(30, 30, outer, [][]geom.Point{child})
	if a := m.AlphaAt(17, 17).A; a != 128 {
		t.Errorf("alpha of child inside polygon = %d, want 128", a)
	}
	if a := m.AlphaAt(24, 24).A; a != 128 {
		t.Errorf("alpha of child outside polygon = %d, want 128", a)
	}
	if a := m.AlphaAt(5, 25).A; a != 0 {
		t.Errorf("alpha outside both = %d, want 0", a)
	}
}

func TestDecode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, marked(8, 4, 1, 1)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	img, err := Codec{}.Decode(path, 0)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if img.Bounds().Size() != image.Pt(8, 4) {
		t.Errorf("Decode() size = %v", img.Bounds().Size())
	}
	if w, h, err := DecodeConfig(path); err != nil || w != 8 || h != 4 {
		t.Errorf("DecodeConfig() = %d, %d, %v", w, h, err)
	}
	if _, err := (Codec{}).Decode(path+"[1]", 0); err == nil {
		t.Errorf("Decode() of a second frame should fail")
	}
	if _, err := (Codec{}).Decode(filepath.Join(t.TempDir(), "missing.png"), 0); err == nil {
		t.Errorf("Decode() of a missing file should fail")
	}
}

func TestSaveAndDecodeConfig(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.png", "a.tif", "a.bmp", "a.jpg"} {
		path := filepath.Join(dir, name)
		if err := Save(path, marked(7, 4, 1, 1)); err != nil {
			t.Fatalf("Save(%s) error: %v", name, err)
		}
		w, h, err := DecodeConfig(path)
		if err != nil || w != 7 || h != 4 {
			t.Errorf("DecodeConfig(%s) = %d, %d, %v", name, w, h, err)
		}
	}
	if err := Save(filepath.Join(dir, "a.xyz"), marked(1, 1, 0, 0)); err == nil {
		t.Error("Save() accepted an unknown format")
	}
}

package recognize

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/gardar/pagexml/pkg/pagexml"
	"github.com/sirupsen/logrus"
)

const page = `<html><body>
<div class='ocr_page' id='page_1' title='image "in.png"; bbox 0 0 200 100'>
 <div class='ocr_carea' id='block_1_1' title="bbox 10 10 190 30">
  <p class='ocr_par' id='par_1_1' title="bbox 10 10 190 30">
   <span class='ocr_line' id='line_1_1' title="bbox 10 10 190 30; baseline 0 -5; x_size 20; x_descenders 5; x_ascenders 5">
    <span class='ocrx_word' id='word_1_1' title='bbox 10 10 90 30; x_wconf 96'>Hello</span>
    <span class='ocrx_word' id='word_1_2' title='bbox 100 10 190 30; x_wconf 90'>world</span>
   </span>
  </p>
 </div>
</div>
</body></html>`

type fakeEngine struct {
	out   string
	err   error
	calls []string
}

func (f *fakeEngine) Name() string { return "fake 1.0" }

func (f *fakeEngine) HOCR(_ context.Context, path string) ([]byte, error) {
	f.calls = append(f.calls, path)
	return []byte(f.out), f.err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(&bytes.Buffer{})
	return l
}

func writeImages(t *testing.T, n int) []string {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, "page"+string(rune('a'+i))+".png")
		f, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 200, 100))); err != nil {
			t.Fatal(err)
		}
		f.Close()
		paths = append(paths, path)
	}
	return paths
}

func newRecognizer(t *testing.T, engine Engine, cfg Config) *Recognizer {
	t.Helper()
	r, err := New(engine, cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	r.Logger = quietLogger()
	return r
}

func TestRecognizeImages(t *testing.T) {
	engine := &fakeEngine{out: page}
	r := newRecognizer(t, engine, DefaultConfig())
	images := writeImages(t, 2)

	px, err := r.RecognizeImages(context.Background(), images, pagexml.DefaultConfig())
	if err != nil {
		t.Fatalf("RecognizeImages() error: %v", err)
	}
	if len(engine.calls) != 2 {
		t.Errorf("engine called %d times, want 2", len(engine.calls))
	}
	for _, id := range []string{"pg1_b1", "pg2_b1", "pg1_b1_p1_l1", "pg2_b1_p1_l1_w2"} {
		if px.ElementByID(id) == nil {
			t.Errorf("element %s not created", id)
		}
	}
	if w, _ := px.PageWidth(px.Page(1)); w != 200 {
		t.Errorf("page width = %d, want 200", w)
	}
	if text, _ := pagexml.GetTextEquiv(px.ElementByID("pg1_b1_p1_l1_w1")); text != "Hello" {
		t.Errorf("word text = %q", text)
	}
	proc, err := px.SelectOne("//_:Process", nil)
	if err != nil {
		t.Fatalf("no Process element: %v", err)
	}
	if got := pagexml.GetAttr(proc, "tool"); got != "fake 1.0" {
		t.Errorf("process tool = %q", got)
	}
	if pagexml.GetAttr(proc, "time") == "" {
		t.Error("process not ended")
	}
}

func TestRecognizeLineLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Layout, cfg.Text = "line", "line"
	r := newRecognizer(t, &fakeEngine{out: page}, cfg)

	px, err := r.RecognizeImages(context.Background(), writeImages(t, 1), pagexml.DefaultConfig())
	if err != nil {
		t.Fatalf("RecognizeImages() error: %v", err)
	}
	if n, _ := px.Count("//_:Word", nil); n != 0 {
		t.Errorf("got %d words at line level", n)
	}
	if text, _ := pagexml.GetTextEquiv(px.ElementByID("b1_p1_l1")); text != "Hello world" {
		t.Errorf("line text = %q", text)
	}
}

func TestRecognizeSkipsAndReplaces(t *testing.T) {
	engine := &fakeEngine{out: page}
	r := newRecognizer(t, engine, DefaultConfig())
	px, err := r.RecognizeImages(context.Background(), writeImages(t, 1), pagexml.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	added, err := r.Recognize(context.Background(), px)
	if err != nil || added != 0 {
		t.Errorf("Recognize() on a recognized page = %d, %v, want 0, nil", added, err)
	}
	if len(engine.calls) != 1 {
		t.Errorf("engine called %d times, want 1", len(engine.calls))
	}

	r.Replace = true
	added, err = r.Recognize(context.Background(), px)
	if err != nil || added != 1 {
		t.Errorf("Recognize() with replace = %d, %v, want 1, nil", added, err)
	}
	if n, _ := px.Count("//_:TextRegion", nil); n != 1 {
		t.Errorf("got %d regions after replace, want 1", n)
	}
}

func TestRecognizeErrors(t *testing.T) {
	boom := errors.New("boom")
	r := newRecognizer(t, &fakeEngine{err: boom}, DefaultConfig())
	if _, err := r.RecognizeImages(context.Background(), writeImages(t, 1), pagexml.DefaultConfig()); !errors.Is(err, boom) {
		t.Errorf("RecognizeImages() error = %v, want engine error", err)
	}
	if _, err := r.RecognizeImages(context.Background(), nil, pagexml.DefaultConfig()); err == nil {
		t.Error("RecognizeImages() without images succeeded")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r = newRecognizer(t, &fakeEngine{out: page}, DefaultConfig())
	if _, err := r.RecognizeImages(ctx, writeImages(t, 1), pagexml.DefaultConfig()); !errors.Is(err, context.Canceled) {
		t.Errorf("RecognizeImages() error = %v, want context.Canceled", err)
	}
}

func TestNewRejectsLevels(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Layout = "paragraph"
	if _, err := New(&fakeEngine{}, cfg); err == nil {
		t.Error("New() accepted an unknown layout level")
	}
}

func TestNewTesseract(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Layout = "glyph"
	cfg.PSM = 6
	tess := NewTesseract(cfg)
	if !tess.CharBoxes || tess.PSM != 6 || len(tess.Languages) != 1 {
		t.Errorf("NewTesseract() = %+v", tess)
	}
}

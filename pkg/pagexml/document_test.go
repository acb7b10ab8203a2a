package pagexml

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/gardar/pagexml/pkg/geom"
	"github.com/sirupsen/logrus"
)

const twoPages = `<?xml version="1.0" encoding="utf-8"?>
<PcGts xmlns="http://schema.primaresearch.org/PAGE/gts/pagecontent/2013-07-15">
  <Metadata>
    <Creator>test</Creator>
    <Created>2020-01-01T00:00:00Z</Created>
    <LastChange>2020-01-01T00:00:00Z</LastChange>
  </Metadata>
  <Page imageFilename="page1.png" imageWidth="100" imageHeight="60">
    <TextRegion id="r1">
      <Coords points="5,5 95,5 95,40 5,40"/>
      <TextLine id="r1_l1">
        <Coords points="10,10 50,10 50,30 10,30"/>
        <Baseline points="10,25 50,25"/>
        <Word id="r1_l1_w1">
          <Coords points="10,10 50,10 50,30 10,30"/>
          <TextEquiv><Unicode>hello</Unicode></TextEquiv>
        </Word>
        <TextEquiv><Unicode>hello</Unicode></TextEquiv>
      </TextLine>
    </TextRegion>
  </Page>
  <Page imageFilename="page2.png" imageWidth="200" imageHeight="100"/>
</PcGts>`

func testConfig() Config {
	cfg := DefaultConfig()
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	cfg.Logger = log
	return cfg
}

func loadString(t *testing.T, xml string, cfg Config) *PageXML {
	t.Helper()
	p := New(cfg)
	if err := p.LoadXMLBytes([]byte(xml)); err != nil {
		t.Fatalf("LoadXMLBytes() error: %v", err)
	}
	return p
}

func mustSelectOne(t *testing.T, p *PageXML, query string) *etree.Element {
	t.Helper()
	el, err := p.SelectOne(query, nil)
	if err != nil {
		t.Fatalf("SelectOne(%q) error: %v", query, err)
	}
	if el == nil {
		t.Fatalf("SelectOne(%q) matched nothing", query)
	}
	return el
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func nearPoint(a, b geom.Point) bool { return near(a.X, b.X) && near(a.Y, b.Y) }

func TestEndToEndPolystripe(t *testing.T) {
	p := loadString(t, twoPages, testConfig())
	if len(p.Pages()) != 2 {
		t.Fatalf("got %d pages, want 2", len(p.Pages()))
	}
	line := mustSelectOne(t, p, "//_:TextLine")
	if _, err := p.SetPolystripe(line, 20, 0.25); err != nil {
		t.Fatalf("SetPolystripe() error: %v", err)
	}
	pts := Points(line, ElemCoords)
	want := []geom.Point{{X: 10, Y: 10}, {X: 50, Y: 10}, {X: 50, Y: 30}, {X: 10, Y: 30}}
	if len(pts) != len(want) {
		t.Fatalf("Coords has %d points, want %d", len(pts), len(want))
	}
	for i := range want {
		if !nearPoint(pts[i], want[i]) {
			t.Errorf("point %d = %v, want %v", i, pts[i], want[i])
		}
	}
	if w, err := p.PageWidth(p.Page(0)); err != nil || w != 100 {
		t.Errorf("PageWidth(page 0) = %d, %v, want 100", w, err)
	}
	if h, err := p.PageHeight(p.Page(1)); err != nil || h != 100 {
		t.Errorf("PageHeight(page 1) = %d, %v, want 100", h, err)
	}
}

func TestSetCoordsIdempotent(t *testing.T) {
	p := loadString(t, twoPages, testConfig())
	word := mustSelectOne(t, p, "//_:Word")
	pts := []geom.Point{{X: 1, Y: 2}, {X: 3, Y: 2}, {X: 3, Y: 4}, {X: 1, Y: 4}}
	for i := 0; i < 2; i++ {
		if _, err := p.SetCoords(word, pts); err != nil {
			t.Fatalf("SetCoords() error: %v", err)
		}
	}
	if n := len(childrenNamed(word, ElemCoords)); n != 1 {
		t.Fatalf("word has %d Coords, want 1", n)
	}
	if got := GetAttr(firstChild(word, ElemCoords), "points"); got != "1,2 3,2 3,4 1,4" {
		t.Errorf("points = %q", got)
	}
	if first := word.ChildElements()[0]; first.Tag != ElemCoords {
		t.Errorf("first child of word is %s, want Coords", first.Tag)
	}
}

func TestSetBaselineRequiresTextLine(t *testing.T) {
	p := loadString(t, twoPages, testConfig())
	word := mustSelectOne(t, p, "//_:Word")
	_, err := p.SetBaseline(word, []geom.Point{{X: 0, Y: 0}, {X: 1, Y: 0}})
	if !IsCode(err, ErrStructure) {
		t.Errorf("SetBaseline(Word) error = %v, want %s", err, ErrStructure)
	}
}

func TestAddTextLineIDs(t *testing.T) {
	p := loadString(t, twoPages, testConfig())
	region, err := p.AddTextRegion(p.Page(1), "", "")
	if err != nil {
		t.Fatalf("AddTextRegion() error: %v", err)
	}
	if id := GetAttr(region, "id"); id != "t1" {
		t.Fatalf("region id = %q, want t1", id)
	}
	for k := 1; k <= 3; k++ {
		line, err := p.AddTextLine(region, "", "")
		if err != nil {
			t.Fatalf("AddTextLine() error: %v", err)
		}
		if id, want := GetAttr(line, "id"), fmt.Sprintf("t1_l%d", k); id != want {
			t.Errorf("line %d id = %q, want %q", k, id, want)
		}
	}
	if !p.AreIDsUnique() {
		t.Error("AreIDsUnique() = false")
	}
	if _, err := p.AddTextLine(region, "r1_l1", ""); !IsCode(err, ErrConsistency) {
		t.Errorf("AddTextLine(existing id) error = %v, want %s", err, ErrConsistency)
	}
	if _, err := p.AddTextLine(region, "", "missing"); !IsCode(err, ErrLookup) {
		t.Errorf("AddTextLine(before missing) error = %v, want %s", err, ErrLookup)
	}
}

func TestElementByIDFollowsEdits(t *testing.T) {
	p := loadString(t, twoPages, testConfig())
	region, err := p.AddTextRegion(p.Page(1), "", "")
	if err != nil {
		t.Fatal(err)
	}
	var lines []*etree.Element
	for k := 0; k < 3; k++ {
		line, err := p.AddTextLine(region, "", "")
		if err != nil {
			t.Fatal(err)
		}
		lines = append(lines, line)
	}
	if got := p.ElementByID("t1_l3"); got != lines[2] {
		t.Fatalf("ElementByID(t1_l3) = %v, want the added line", got)
	}

	if err := p.RemoveElement(lines[2]); err != nil {
		t.Fatal(err)
	}
	if got := p.ElementByID("t1_l3"); got != nil {
		t.Errorf("ElementByID(t1_l3) = %v after removal, want nil", got)
	}
	line, err := p.AddTextLine(region, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if id := GetAttr(line, "id"); id != "t1_l3" {
		t.Errorf("id after removal = %q, want the freed t1_l3", id)
	}

	if _, err := p.SetAttrQuery("//_:TextLine[@id='t1_l2']", "id", "renamed"); err != nil {
		t.Fatal(err)
	}
	if p.ElementByID("t1_l2") != nil || p.ElementByID("renamed") != lines[1] {
		t.Error("ElementByID does not follow SetAttrQuery on id")
	}
	lines[1].CreateAttr("id", "direct")
	if got := p.ElementByID("renamed"); got != nil {
		t.Errorf("ElementByID(renamed) = %v after a direct etree edit, want nil", got)
	}
}

func TestElementByIDWithDuplicates(t *testing.T) {
	xml := strings.Replace(twoPages, `<Page imageFilename="page2.png" imageWidth="200" imageHeight="100"/>`,
		`<Page imageFilename="page2.png" imageWidth="200" imageHeight="100">
    <TextRegion id="r1_l1"><Coords points="1,1 9,1 9,9 1,9"/></TextRegion>
  </Page>`, 1)
	p := loadString(t, xml, testConfig())
	line := p.ElementByID("r1_l1")
	if !NodeIs(line, ElemTextLine) {
		t.Fatalf("ElementByID(r1_l1) = %v, want the first match in document order", line)
	}
	if err := p.RemoveElement(line); err != nil {
		t.Fatal(err)
	}
	if got := p.ElementByID("r1_l1"); !NodeIs(got, ElemTextRegion) {
		t.Errorf("ElementByID(r1_l1) = %v after removal, want the remaining region", got)
	}
}

func TestAddWordBeforeTextEquiv(t *testing.T) {
	p := loadString(t, twoPages, testConfig())
	line := mustSelectOne(t, p, "//_:TextLine")
	word, err := p.AddWord(line, "", "")
	if err != nil {
		t.Fatalf("AddWord() error: %v", err)
	}
	if id := GetAttr(word, "id"); id != "r1_l1_w2" {
		t.Errorf("word id = %q, want r1_l1_w2", id)
	}
	children := line.ChildElements()
	if last := children[len(children)-1]; last.Tag != ElemTextEquiv {
		t.Errorf("last child of line is %s, want TextEquiv", last.Tag)
	}
}

func TestSelectErrors(t *testing.T) {
	p := loadString(t, twoPages, testConfig())
	if _, err := p.Select("//_:TextLine[", nil); !IsCode(err, ErrStructure) {
		t.Errorf("Select(malformed) error = %v, want %s", err, ErrStructure)
	}
	n, err := p.Count("//_:Word", nil)
	if err != nil || n != 1 {
		t.Errorf("Count(//_:Word) = %d, %v, want 1", n, err)
	}
	last, err := p.SelectNth("//_:Page", -1, nil)
	if err != nil || last != p.Page(1) {
		t.Errorf("SelectNth(-1) = %v, %v, want second page", last, err)
	}
	line := mustSelectOne(t, p, "//_:TextLine")
	words, err := p.Select("_:Word", line)
	if err != nil || len(words) != 1 {
		t.Errorf("relative Select() = %d nodes, %v, want 1", len(words), err)
	}
	if Closest(ElemTextRegion, words[0]) != p.ElementByID("r1") {
		t.Error("Closest(TextRegion) did not find r1")
	}
}

func TestTextEquivAndProperties(t *testing.T) {
	p := loadString(t, twoPages, testConfig())
	word := mustSelectOne(t, p, "//_:Word")
	if _, err := p.SetTextEquiv(word, "world", 0.75); err != nil {
		t.Fatalf("SetTextEquiv() error: %v", err)
	}
	text, conf := GetTextEquiv(word)
	if text != "world" || conf != 0.75 {
		t.Errorf("GetTextEquiv() = %q, %g, want replaced text and confidence", text, conf)
	}
	if n := len(childrenNamed(word, ElemTextEquiv)); n != 1 {
		t.Errorf("word has %d TextEquiv elements, want 1", n)
	}
	if _, err := p.SetProperty(word, "lang", "en"); err != nil {
		t.Fatalf("SetProperty() error: %v", err)
	}
	if _, err := p.SetProperty(word, "lang", "is"); err != nil {
		t.Fatalf("SetProperty() error: %v", err)
	}
	if v, ok := GetPropertyValue(word, "lang"); !ok || v != "is" {
		t.Errorf("GetPropertyValue(lang) = %q, %v", v, ok)
	}
	if n := len(childrenNamed(word, ElemProperty)); n != 1 {
		t.Errorf("word has %d Property elements, want 1", n)
	}
	if first := word.ChildElements()[0]; first.Tag != ElemProperty {
		t.Errorf("first child of word is %s, want Property", first.Tag)
	}
}

func TestResize(t *testing.T) {
	p := loadString(t, twoPages, testConfig())
	page := p.Page(0)
	if _, err := p.Resize([]image.Point{{X: 200, Y: 180}}, []*etree.Element{page}, true); !IsCode(err, ErrConsistency) {
		t.Fatalf("Resize(aspect change) error = %v, want %s", err, ErrConsistency)
	}
	if w, _ := p.PageWidth(page); w != 100 {
		t.Fatalf("rejected resize modified the page width to %d", w)
	}
	n, err := p.Resize([]image.Point{{X: 200, Y: 120}}, []*etree.Element{page}, true)
	if err != nil || n != 1 {
		t.Fatalf("Resize() = %d, %v", n, err)
	}
	if w, _ := p.PageWidth(page); w != 200 {
		t.Errorf("PageWidth() = %d, want 200", w)
	}
	if h, _ := p.PageHeight(page); h != 120 {
		t.Errorf("PageHeight() = %d, want 120", h)
	}
	line := mustSelectOne(t, p, "//_:TextLine")
	want := []geom.Point{{X: 20, Y: 50}, {X: 100, Y: 50}}
	got := Points(line, ElemBaseline)
	for i := range want {
		if !nearPoint(got[i], want[i]) {
			t.Errorf("baseline point %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRotatePage(t *testing.T) {
	p := loadString(t, twoPages, testConfig())
	page := p.Page(0)
	if err := p.RotatePage(90, page, true); err != nil {
		t.Fatalf("RotatePage() error: %v", err)
	}
	if w, _ := p.PageWidth(page); w != 60 {
		t.Errorf("PageWidth() = %d, want 60", w)
	}
	if h, _ := p.PageHeight(page); h != 100 {
		t.Errorf("PageHeight() = %d, want 100", h)
	}
	line := mustSelectOne(t, p, "//_:TextLine")
	if got := Points(line, ElemBaseline); !nearPoint(got[0], geom.Point{X: 25, Y: 89}) {
		t.Errorf("rotated baseline start = %v, want (25,89)", got[0])
	}
	if angle, _, ok := p.ImageOrientation(page); !ok || angle != 90 {
		t.Errorf("ImageOrientation() = %d, %v, want 90", angle, ok)
	}
	if err := p.RotatePage(-90, page, true); err != nil {
		t.Fatalf("RotatePage() error: %v", err)
	}
	if _, _, ok := p.ImageOrientation(page); ok {
		t.Error("ImageOrientation still present after rotating back")
	}
	if got := Points(line, ElemBaseline); !nearPoint(got[0], geom.Point{X: 10, Y: 25}) {
		t.Errorf("baseline start after rotating back = %v, want (10,25)", got[0])
	}
}

func TestCustomAttribute(t *testing.T) {
	c := ParseCustom("readingOrder {index:0;} readingOrientation: 90; readingDirection: rtl; x-height: 30px;")
	if c.Rotation == nil || *c.Rotation != 90 {
		t.Errorf("Rotation = %v, want 90", c.Rotation)
	}
	if c.Direction == nil || *c.Direction != RightToLeft {
		t.Errorf("Direction = %v, want right-to-left", c.Direction)
	}
	if c.XHeight == nil || *c.XHeight != 30 {
		t.Errorf("XHeight = %v, want 30", c.XHeight)
	}

	p := loadString(t, twoPages, testConfig())
	region := p.ElementByID("r1")
	if err := p.SetRotation(region, -90); err != nil {
		t.Fatalf("SetRotation() error: %v", err)
	}
	if err := p.SetReadingDirection(region, TopToBottom); err != nil {
		t.Fatalf("SetReadingDirection() error: %v", err)
	}
	if r := GetRotation(region); r != -90 {
		t.Errorf("GetRotation() = %g, want -90", r)
	}
	line := p.ElementByID("r1_l1")
	if d := GetReadingDirection(line); d != TopToBottom {
		t.Errorf("GetReadingDirection(line) = %v, want inherited top-to-bottom", d)
	}
	if err := p.SetRotation(line, 90); !IsCode(err, ErrStructure) {
		t.Errorf("SetRotation(TextLine) error = %v, want %s", err, ErrStructure)
	}
}

func TestRotationOnOwnAttribute(t *testing.T) {
	xml := strings.Replace(twoPages, `<Word id="r1_l1_w1">`,
		`<Word id="r1_l1_w1" readingOrientation="180" readingDirection="right-to-left">`, 1)
	xml = strings.Replace(xml, `<TextLine id="r1_l1">`, `<TextLine id="r1_l1" readingOrientation="-90">`, 1)
	p := loadString(t, xml, testConfig())

	word := p.ElementByID("r1_l1_w1")
	if r := GetRotation(word); r != 180 {
		t.Errorf("GetRotation(word) = %g, want 180", r)
	}
	if d := GetReadingDirection(word); d != RightToLeft {
		t.Errorf("GetReadingDirection(word) = %v, want right-to-left", d)
	}

	line := p.ElementByID("r1_l1")
	line.CreateAttr("custom", "readingOrientation: 90;")
	if r := GetRotation(line); r != -90 {
		t.Errorf("GetRotation(line) = %g, want the attribute over custom", r)
	}
	line.RemoveAttr("readingOrientation")
	if r := GetRotation(line); r != 90 {
		t.Errorf("GetRotation(line) = %g, want 90 from custom", r)
	}
	if d := GetReadingDirection(line); d != LeftToRight {
		t.Errorf("GetReadingDirection(line) = %v, want left-to-right", d)
	}
}

func TestSimplifyIDs(t *testing.T) {
	xml := strings.ReplaceAll(twoPages, `id="r1`, `id="page1_r1`)
	p := loadString(t, xml, testConfig())
	n, err := p.SimplifyIDs()
	if err != nil {
		t.Fatalf("SimplifyIDs() error: %v", err)
	}
	if n != 2 {
		t.Errorf("SimplifyIDs() = %d, want 2", n)
	}
	line := p.ElementByID("r1_l1")
	if line == nil {
		t.Fatal("no element with id r1_l1 after SimplifyIDs")
	}
	if orig := GetAttr(line, "orig-id"); orig != "page1_r1_l1" {
		t.Errorf("orig-id = %q", orig)
	}
}

func TestWriteSortsAttributes(t *testing.T) {
	p := loadString(t, twoPages, testConfig())
	out := p.String()
	if !strings.Contains(out, `<Page imageFilename="page1.png" imageHeight="60" imageWidth="100">`) {
		t.Errorf("written Page attributes not sorted:\n%s", out)
	}
	q := loadString(t, out, testConfig())
	if n, _ := q.Count("//_:TextLine", nil); n != 1 {
		t.Errorf("reloaded document has %d TextLines, want 1", n)
	}
}

func TestProcess(t *testing.T) {
	p := loadString(t, twoPages, testConfig())
	proc, err := p.ProcessStart("pagexml-test", "")
	if err != nil {
		t.Fatalf("ProcessStart() error: %v", err)
	}
	if err := p.ProcessEnd(); err != nil {
		t.Fatalf("ProcessEnd() error: %v", err)
	}
	if GetAttr(proc, "tool") != "pagexml-test" || GetAttr(proc, "time") == "" {
		t.Errorf("unexpected Process attributes: %v", proc.Attr)
	}
	if !strings.HasPrefix(GetAttr(proc, "id"), "proc_") {
		t.Errorf("Process id = %q", GetAttr(proc, "id"))
	}
}

func TestFillUnknownWordCoords(t *testing.T) {
	xml := strings.Replace(twoPages,
		`<Word id="r1_l1_w1">
          <Coords points="10,10 50,10 50,30 10,30"/>`,
		`<Word id="r1_l1_w1">
          <Coords points="10,10 20,10 20,30 10,30"/>
        </Word>
        <Word id="r1_l1_w2">
          <Coords points="0,0 0,0"/>`, 1)
	p := loadString(t, xml, testConfig())
	line := p.ElementByID("r1_l1")
	n, err := p.FillUnknownWordCoords(line)
	if err != nil || n != 1 {
		t.Fatalf("FillUnknownWordCoords() = %d, %v, want 1", n, err)
	}
	w2 := p.ElementByID("r1_l1_w2")
	bb := geom.PointsBBox(Points(w2, ElemCoords))
	if bb.XMin != 21 || bb.XMax != 50 || bb.YMin != 10 || bb.YMax != 30 {
		t.Errorf("filled box = %+v", bb)
	}
	if _, ok := GetPropertyValue(w2, "coords-unk-filler"); !ok {
		t.Error("filled word lacks coords-unk-filler property")
	}
}

func TestParsePageSet(t *testing.T) {
	got, err := ParsePageSet("1-3,5", 6)
	if err != nil {
		t.Fatalf("ParsePageSet() error: %v", err)
	}
	want := []int{0, 1, 2, 4}
	if len(got) != len(want) {
		t.Fatalf("ParsePageSet() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ParsePageSet()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	if _, err := ParsePageSet("2-7", 6); err == nil {
		t.Error("ParsePageSet(out of range) succeeded")
	}
}

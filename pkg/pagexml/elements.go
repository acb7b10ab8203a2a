package pagexml

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"
	"github.com/gardar/pagexml/pkg/geom"
)

// maxIDTries bounds the search for a free automatic id.
const maxIDTries = 100000

func firstChild(node *etree.Element, name string) *etree.Element {
	if node == nil {
		return nil
	}
	for _, c := range node.ChildElements() {
		if c.Tag == name {
			return c
		}
	}
	return nil
}

func childrenNamed(node *etree.Element, name string) []*etree.Element {
	var out []*etree.Element
	for _, c := range node.ChildElements() {
		if c.Tag == name {
			out = append(out, c)
		}
	}
	return out
}

func setConf(el *etree.Element, conf []float64) {
	if len(conf) > 0 {
		el.CreateAttr("conf", formatFloat(conf[0]))
	}
}

// insertStructural creates a child of parent placed before the first child
// whose name is not in skip, or appended when there is none.
func (p *PageXML) insertStructural(op, name string, parent *etree.Element, skip ...string) (*etree.Element, error) {
	for _, c := range parent.ChildElements() {
		if !contains(skip, c.Tag) {
			return p.AddElement(name, "", c, Before, false)
		}
	}
	return p.AddElement(name, "", parent, Append, false)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// SelectOne returns the first match of query and fails when there is none.
func (p *PageXML) SelectOne(query string, base *etree.Element) (*etree.Element, error) {
	return p.selectOne("SelectOne", query, base)
}

// SetCoords replaces the Coords of node. The new Coords is placed after any
// Property children.
func (p *PageXML) SetCoords(node *etree.Element, pts []geom.Point, conf ...float64) (*etree.Element, error) {
	const op = "SetCoords"
	if node == nil {
		return nil, structuref(op, "nil node")
	}
	if len(pts) == 0 {
		return nil, structuref(op, "no points given for %s %s", node.Tag, GetAttr(node, "id"))
	}
	if old := firstChild(node, ElemCoords); old != nil {
		node.RemoveChild(old)
	}
	c, err := p.insertStructural(op, ElemCoords, node, ElemProperty)
	if err != nil {
		return nil, err
	}
	c.CreateAttr("points", geom.FormatPoints(pts, p.cfg.RoundPoints))
	setConf(c, conf)
	return c, nil
}

// SetCoordsBBox sets rectangular Coords from a box origin and size.
func (p *PageXML) SetCoordsBBox(node *etree.Element, x, y, w, h float64, conf ...float64) (*etree.Element, error) {
	b := geom.BBox{XMin: x, XMax: x + w, YMin: y, YMax: y + h}
	return p.SetCoords(node, b.Points(), conf...)
}

// SetBaseline replaces the Baseline of a TextLine. The Baseline is placed
// after Property and Coords children.
func (p *PageXML) SetBaseline(node *etree.Element, pts []geom.Point, conf ...float64) (*etree.Element, error) {
	const op = "SetBaseline"
	if !NodeIs(node, ElemTextLine) {
		return nil, structuref(op, "expected a %s node", ElemTextLine)
	}
	if len(pts) < 2 {
		return nil, structuref(op, "baseline of %s needs at least two points", GetAttr(node, "id"))
	}
	if old := firstChild(node, ElemBaseline); old != nil {
		node.RemoveChild(old)
	}
	b, err := p.insertStructural(op, ElemBaseline, node, ElemProperty, ElemCoords)
	if err != nil {
		return nil, err
	}
	b.CreateAttr("points", geom.FormatPoints(pts, p.cfg.RoundPoints))
	setConf(b, conf)
	return b, nil
}

// SetBaselineSegment sets a two point baseline.
func (p *PageXML) SetBaselineSegment(node *etree.Element, x1, y1, x2, y2 float64, conf ...float64) (*etree.Element, error) {
	return p.SetBaseline(node, []geom.Point{{X: x1, Y: y1}, {X: x2, Y: y2}}, conf...)
}

// Points returns the points of node when it is a Coords or Baseline, or of
// its child of the given name otherwise. nil is returned when absent.
func Points(node *etree.Element, child string) []geom.Point {
	if node == nil {
		return nil
	}
	if node.Tag != ElemCoords && node.Tag != ElemBaseline {
		node = firstChild(node, child)
		if node == nil {
			return nil
		}
	}
	return geom.ParsePoints(node.SelectAttrValue("points", ""))
}

// SetTextEquiv replaces the TextEquiv of node.
func (p *PageXML) SetTextEquiv(node *etree.Element, text string, conf ...float64) (*etree.Element, error) {
	if node == nil {
		return nil, structuref("SetTextEquiv", "nil node")
	}
	if old := firstChild(node, ElemTextEquiv); old != nil {
		node.RemoveChild(old)
	}
	te, err := p.AddElement(ElemTextEquiv, "", node, Append, false)
	if err != nil {
		return nil, err
	}
	setConf(te, conf)
	u, err := p.AddElement(ElemUnicode, "", te, Append, false)
	if err != nil {
		return nil, err
	}
	u.SetText(text)
	return te, nil
}

// GetTextEquiv returns the Unicode text of node's TextEquiv and its
// confidence, or -1 when no confidence is recorded.
func GetTextEquiv(node *etree.Element) (string, float64) {
	te := firstChild(node, ElemTextEquiv)
	if te == nil {
		return "", -1
	}
	conf := -1.0
	if v, err := strconv.ParseFloat(te.SelectAttrValue("conf", ""), 64); err == nil {
		conf = v
	}
	u := firstChild(te, ElemUnicode)
	if u == nil {
		return "", conf
	}
	return u.Text(), conf
}

// GetConf returns the conf attribute of node, or -1 when it has none.
func GetConf(node *etree.Element) float64 {
	if node == nil {
		return -1
	}
	if v, err := strconv.ParseFloat(node.SelectAttrValue("conf", ""), 64); err == nil {
		return v
	}
	return -1
}

// SetProperty sets a key/value Property on node, replacing any Property with
// the same key. Properties are kept as a block before the other children.
func (p *PageXML) SetProperty(node *etree.Element, key, value string, conf ...float64) (*etree.Element, error) {
	const op = "SetProperty"
	if node == nil {
		return nil, structuref(op, "nil node")
	}
	if key == "" {
		return nil, structuref(op, "empty property key")
	}
	var last *etree.Element
	for _, c := range childrenNamed(node, ElemProperty) {
		if c.SelectAttrValue("key", "") == key {
			node.RemoveChild(c)
			continue
		}
		last = c
	}
	var prop *etree.Element
	var err error
	if last != nil {
		prop, err = p.AddElement(ElemProperty, "", last, After, false)
	} else {
		prop, err = p.insertStructural(op, ElemProperty, node, ElemMetadata)
	}
	if err != nil {
		return nil, err
	}
	prop.CreateAttr("key", key)
	if value != "" {
		prop.CreateAttr("value", value)
	}
	setConf(prop, conf)
	return prop, nil
}

// GetPropertyValue returns the value of the Property with the given key.
func GetPropertyValue(node *etree.Element, key string) (string, bool) {
	for _, c := range childrenNamed(node, ElemProperty) {
		if c.SelectAttrValue("key", "") == key {
			return c.SelectAttrValue("value", ""), true
		}
	}
	return "", false
}

// SetFpgram stores the four point parallelogram of node as a Property.
func (p *PageXML) SetFpgram(node *etree.Element, pts []geom.Point) (*etree.Element, error) {
	if len(pts) != 4 {
		return nil, structuref("SetFpgram", "expected 4 points, got %d", len(pts))
	}
	return p.SetProperty(node, "fpgram", geom.FormatPoints(pts, p.cfg.RoundPoints))
}

// GetFpgram returns the parallelogram stored by SetFpgram.
func GetFpgram(node *etree.Element) []geom.Point {
	v, ok := GetPropertyValue(node, "fpgram")
	if !ok {
		return nil
	}
	return geom.ParsePoints(v)
}

// childKind describes the parent and id suffix of each addable element.
var childKind = map[string]struct {
	parent string
	prefix string
}{
	ElemGlyph:      {ElemWord, "_g"},
	ElemWord:       {ElemTextLine, "_w"},
	ElemTextLine:   {ElemTextRegion, "_l"},
	ElemTextRegion: {ElemPage, "t"},
}

// AddGlyph adds a Glyph to a Word. See AddTextLine.
func (p *PageXML) AddGlyph(word *etree.Element, id, beforeID string) (*etree.Element, error) {
	return p.addChild("AddGlyph", ElemGlyph, word, id, beforeID)
}

// AddWord adds a Word to a TextLine. See AddTextLine.
func (p *PageXML) AddWord(line *etree.Element, id, beforeID string) (*etree.Element, error) {
	return p.addChild("AddWord", ElemWord, line, id, beforeID)
}

// AddTextLine adds a TextLine to a TextRegion. An empty id is generated as
// "<regionId>_l<n>". With beforeID the line is inserted before that sibling,
// otherwise before the region's TextEquiv or at the end.
func (p *PageXML) AddTextLine(region *etree.Element, id, beforeID string) (*etree.Element, error) {
	return p.addChild("AddTextLine", ElemTextLine, region, id, beforeID)
}

// AddTextRegion adds a TextRegion to a Page. Generated ids are "t<n>".
func (p *PageXML) AddTextRegion(page *etree.Element, id, beforeID string) (*etree.Element, error) {
	return p.addChild("AddTextRegion", ElemTextRegion, page, id, beforeID)
}

func (p *PageXML) addChild(op, name string, parent *etree.Element, id, beforeID string) (*etree.Element, error) {
	kind := childKind[name]
	if !NodeIs(parent, kind.parent) {
		return nil, structuref(op, "expected parent to be a %s", kind.parent)
	}
	if id == "" {
		var err error
		if id, err = p.autoID(op, name, parent); err != nil {
			return nil, err
		}
	}

	ref, mode := parent, Append
	if beforeID != "" {
		ref = nil
		for _, c := range parent.ChildElements() {
			if c.SelectAttrValue("id", "") == beforeID {
				ref = c
				break
			}
		}
		if ref == nil {
			return nil, lookupf(op, "unable to find element with id %s", beforeID)
		}
		mode = Before
	} else if te := firstChild(parent, ElemTextEquiv); te != nil {
		ref, mode = te, Before
	}
	return p.AddElement(name, id, ref, mode, true)
}

// autoID finds the first free id for a new child of parent, starting after
// the number of existing children of the same type.
func (p *PageXML) autoID(op, name string, parent *etree.Element) (string, error) {
	kind := childKind[name]
	prefix := kind.prefix
	if name != ElemTextRegion {
		pid := parent.SelectAttrValue("id", "")
		if pid == "" {
			return "", structuref(op, "expected %s to have an id attribute", parent.Tag)
		}
		prefix = pid + prefix
	}
	n := len(childrenNamed(parent, name)) + 1
	for tries := 0; tries < maxIDTries; tries, n = tries+1, n+1 {
		id := fmt.Sprintf("%s%d", prefix, n)
		if p.ElementByID(id) == nil {
			return id, nil
		}
	}
	return "", errorf(ErrSafetyBound, op, "apparently in infinite loop generating id with prefix %s", prefix)
}


package pagexml

import (
	"bytes"
	"image"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"
)

// InsertMode tells AddElement and MoveElement where to place a node
// relative to the reference node.
type InsertMode int

const (
	Append  InsertMode = iota // as last child of ref
	Prepend                   // as first child of ref
	Before                    // as previous sibling of ref
	After                     // as next sibling of ref
)

// PageXML is a Page XML document together with its page images.
type PageXML struct {
	cfg     Config
	log     *logrus.Entry
	doc     *etree.Document
	q       *queryContext
	xmlPath string
	xmlDir  string
	pages   []pageSlot

	ids    map[string]*etree.Element // lazy index, see idIndex
	idDups bool

	process      *etree.Element
	processStart time.Time
}

// pageSlot holds the image state of one Page element. The slots are kept in
// document order, one per Page.
type pageSlot struct {
	node     *etree.Element
	img      image.Image
	filename string // image path used for loading
	base     string // image base name used in ids and crop names
}

// New returns an empty document holder. Use NewXML or one of the Load
// methods to give it content.
func New(cfg Config) *PageXML {
	return &PageXML{
		cfg: cfg,
		log: cfg.logger().WithField("component", "pagexml"),
	}
}

// Load reads a Page XML file.
func Load(path string, cfg Config) (*PageXML, error) {
	p := New(cfg)
	if err := p.LoadXML(path); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadXML replaces the document with the contents of a file.
func (p *PageXML) LoadXML(path string) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return wrapf(ErrResource, "LoadXML", err, "unable to read %s", path)
	}
	p.xmlPath = path
	p.xmlDir = filepath.Dir(path)
	return p.setup("LoadXML", doc)
}

// LoadXMLBytes replaces the document with XML held in memory. Relative image
// file names are resolved against the working directory.
func (p *PageXML) LoadXMLBytes(data []byte) error {
	return p.LoadXMLReader(bytes.NewReader(data))
}

// LoadXMLReader replaces the document with XML read from r.
func (p *PageXML) LoadXMLReader(r io.Reader) error {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return wrapf(ErrResource, "LoadXML", err, "unable to parse XML")
	}
	p.xmlPath, p.xmlDir = "", ""
	return p.setup("LoadXML", doc)
}

func (p *PageXML) setup(op string, doc *etree.Document) error {
	root := doc.Root()
	if root == nil || root.Tag != ElemPcGts {
		return structuref(op, "expected root element %s", ElemPcGts)
	}
	stripBlanks(root)
	uri := namespaceOf(root)
	if uri == "" {
		uri = p.pageNS()
	}
	p.doc = doc
	p.q = newQueryContext(doc, uri)
	p.pages = nil
	p.process = nil
	p.resetIDs()
	p.syncPages()
	if len(p.pages) == 0 {
		return structuref(op, "document has no %s elements", ElemPage)
	}
	return nil
}

// stripBlanks drops whitespace-only character data from elements that have
// element children, so that re-indentation on write is stable.
func stripBlanks(e *etree.Element) {
	hasElems := len(e.ChildElements()) > 0
	for i := len(e.Child) - 1; i >= 0; i-- {
		switch t := e.Child[i].(type) {
		case *etree.CharData:
			if hasElems && strings.TrimSpace(t.Data) == "" {
				e.RemoveChildAt(i)
			}
		case *etree.Element:
			stripBlanks(t)
		}
	}
}

func (p *PageXML) pageNS() string {
	if p.cfg.PageNS == "" {
		return NamespaceURI
	}
	return p.cfg.PageNS
}

// NewXML starts a new document with a single page. A zero width or height
// is taken from the image itself.
func (p *PageXML) NewXML(creator, imagePath string, width, height int) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	root := doc.CreateElement(ElemPcGts)
	root.CreateAttr("xmlns", p.pageNS())
	root.CreateAttr("xmlns:xsi", "http://www.w3.org/2001/XMLSchema-instance")
	root.CreateAttr("xsi:schemaLocation", schemaLocation)

	if creator == "" {
		creator = p.cfg.Creator
	}
	now := timestamp(time.Now())
	meta := root.CreateElement(ElemMetadata)
	meta.CreateElement("Creator").SetText(creator)
	meta.CreateElement("Created").SetText(now)
	meta.CreateElement("LastChange").SetText(now)

	p.doc = doc
	p.q = newQueryContext(doc, p.pageNS())
	p.pages = nil
	p.process = nil
	p.resetIDs()
	p.xmlPath, p.xmlDir = "", ""
	_, err := p.AddPage(imagePath, width, height, nil)
	return err
}

// AddPage appends a Page for the given image, or inserts it before the page
// before when it is not nil.
func (p *PageXML) AddPage(imagePath string, width, height int, before *etree.Element) (*etree.Element, error) {
	const op = "AddPage"
	if p.doc == nil {
		return nil, structuref(op, "no document loaded")
	}
	var img image.Image
	if width <= 0 || height <= 0 {
		var err error
		img, err = p.decode(p.resolve(imagePath), 0)
		if err != nil {
			return nil, wrapf(ErrResource, op, err, "unable to determine size of %s", imagePath)
		}
		width, height = img.Bounds().Dx(), img.Bounds().Dy()
	}

	var page *etree.Element
	var err error
	if before != nil {
		if !NodeIs(before, ElemPage) {
			return nil, structuref(op, "reference node is not a %s", ElemPage)
		}
		page, err = p.AddElement(ElemPage, "", before, Before, false)
	} else {
		page, err = p.AddElement(ElemPage, "", p.doc.Root(), Append, false)
	}
	if err != nil {
		return nil, err
	}
	page.CreateAttr("imageFilename", imagePath)
	page.CreateAttr("imageWidth", strconv.Itoa(width))
	page.CreateAttr("imageHeight", strconv.Itoa(height))
	slot := &p.pages[p.GetPageNumber(page)]
	slot.filename = p.resolve(imagePath)
	slot.base = imageBase(imagePath)
	slot.img = img
	return page, nil
}

// syncPages rebuilds the page slots after the set of Page elements changed,
// keeping the state of pages that still exist.
func (p *PageXML) syncPages() {
	nodes, _ := p.q.selectNodes("//"+nsPrefix+":"+ElemPage, nil)
	old := make(map[*etree.Element]pageSlot, len(p.pages))
	for _, s := range p.pages {
		old[s.node] = s
	}
	pages := make([]pageSlot, len(nodes))
	for i, n := range nodes {
		if s, ok := old[n]; ok {
			pages[i] = s
			continue
		}
		fname := n.SelectAttrValue("imageFilename", "")
		pages[i] = pageSlot{node: n, filename: p.resolve(fname), base: imageBase(fname)}
	}
	p.pages = pages
}

func (p *PageXML) resolve(fname string) string {
	if fname == "" || filepath.IsAbs(fname) || p.xmlDir == "" {
		return fname
	}
	return filepath.Join(p.xmlDir, fname)
}

// imageBase is the file name without directory and extension, with spaces
// replaced by underscores.
func imageBase(fname string) string {
	if m := reFrameSuffix.FindStringSubmatch(fname); m != nil {
		fname = m[1]
	}
	base := filepath.Base(fname)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ReplaceAll(base, " ", "_")
}

// Write saves the document. A path of "-" writes to standard output.
func (p *PageXML) Write(path string) error {
	if path == "-" {
		_, err := p.WriteTo(os.Stdout)
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return wrapf(ErrResource, "Write", err, "unable to create %s", path)
	}
	if _, err := p.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return wrapf(ErrResource, "Write", err, "unable to write %s", path)
	}
	return nil
}

// WriteTo serializes the document with attributes sorted by name.
func (p *PageXML) WriteTo(w io.Writer) (int64, error) {
	if p.doc == nil {
		return 0, structuref("Write", "no document loaded")
	}
	out := p.doc.Copy()
	sortAttrs(&out.Element)
	if p.cfg.Indent {
		out.Indent(2)
	} else {
		out.Indent(etree.NoIndent)
	}
	n, err := out.WriteTo(w)
	if err != nil {
		return n, wrapf(ErrResource, "Write", err, "unable to write document")
	}
	return n, nil
}

// String returns the serialized document.
func (p *PageXML) String() string {
	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		return ""
	}
	return buf.String()
}

func sortAttrs(e *etree.Element) {
	e.SortAttrs()
	for _, c := range e.ChildElements() {
		sortAttrs(c)
	}
}

// Root returns the PcGts element.
func (p *PageXML) Root() *etree.Element {
	if p.doc == nil {
		return nil
	}
	return p.doc.Root()
}

// Document exposes the underlying tree.
func (p *PageXML) Document() *etree.Document { return p.doc }

// Select returns the elements matched by query, relative to base when it is
// not nil. The prefix "_" is bound to the document namespace.
func (p *PageXML) Select(query string, base *etree.Element) ([]*etree.Element, error) {
	if p.q == nil {
		return nil, structuref("Select", "no document loaded")
	}
	return p.q.selectNodes(query, base)
}

// SelectNth returns the n-th match of query, negative n counting from the
// end, or nil if there is no such match.
func (p *PageXML) SelectNth(query string, n int, base *etree.Element) (*etree.Element, error) {
	nodes, err := p.Select(query, base)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		n += len(nodes)
	}
	if n < 0 || n >= len(nodes) {
		return nil, nil
	}
	return nodes[n], nil
}

// Count returns the number of matches of query.
func (p *PageXML) Count(query string, base *etree.Element) (int, error) {
	nodes, err := p.Select(query, base)
	return len(nodes), err
}

// selectOne is SelectNth(query, 0, base) that fails on no match.
func (p *PageXML) selectOne(op, query string, base *etree.Element) (*etree.Element, error) {
	n, err := p.SelectNth(query, 0, base)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, lookupf(op, "query %q matched no element", query)
	}
	return n, nil
}

// NodeIs reports whether node is an element with the given local name.
func NodeIs(node *etree.Element, name string) bool {
	return node != nil && node.Tag == name
}

// Closest returns the nearest ancestor-or-self with the given name.
func Closest(name string, node *etree.Element) *etree.Element {
	for n := node; n != nil; n = n.Parent() {
		if n.Tag == name {
			return n
		}
	}
	return nil
}

// Parent returns the parent element, or nil for the root element.
func (p *PageXML) Parent(node *etree.Element) *etree.Element {
	if node == nil || node == p.Root() {
		return nil
	}
	return node.Parent()
}

// GetAttr returns the value of an attribute, or "" if it is absent.
func GetAttr(node *etree.Element, name string) string {
	if node == nil {
		return ""
	}
	return node.SelectAttrValue(name, "")
}

// SetAttr sets an attribute on every node and returns how many were set.
func SetAttr(nodes []*etree.Element, name, value string) int {
	for _, n := range nodes {
		n.CreateAttr(name, value)
	}
	return len(nodes)
}

// SetAttrQuery sets an attribute on all elements matched by query.
func (p *PageXML) SetAttrQuery(query, name, value string) (int, error) {
	nodes, err := p.Select(query, nil)
	if err != nil {
		return 0, err
	}
	if name == "id" {
		p.resetIDs()
	}
	return SetAttr(nodes, name, value), nil
}

// RemoveAttr removes an attribute and reports whether it existed.
func RemoveAttr(node *etree.Element, name string) bool {
	return node.RemoveAttr(name) != nil
}

// ElementByID returns the element with the given id, or nil.
func (p *PageXML) ElementByID(id string) *etree.Element {
	if id == "" {
		return nil
	}
	e, ok := p.idIndex()[id]
	if !ok {
		return nil
	}
	if p.live(e, id) {
		return e
	}
	p.resetIDs()
	return p.idIndex()[id]
}

// walk visits e and its descendants in document order until fn returns
// false.
func walk(e *etree.Element, fn func(*etree.Element) bool) bool {
	if e == nil {
		return true
	}
	if !fn(e) {
		return false
	}
	for _, c := range e.ChildElements() {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

// AddElement creates an element named name, placed relative to ref. With
// checkID the id must not be in use anywhere in the document.
func (p *PageXML) AddElement(name, id string, ref *etree.Element, mode InsertMode, checkID bool) (*etree.Element, error) {
	const op = "AddElement"
	if ref == nil {
		return nil, structuref(op, "nil reference node for %s", name)
	}
	if id != "" && checkID && p.ElementByID(id) != nil {
		return nil, consistencyf(op, "id already exists: %s", id)
	}
	el := etree.NewElement(name)
	el.Space = p.Root().Space
	if id != "" {
		el.CreateAttr("id", id)
	}
	if err := insert(op, el, ref, mode); err != nil {
		return nil, err
	}
	p.indexIDs(el)
	if name == ElemPage {
		p.syncPages()
	}
	return el, nil
}

func insert(op string, el, ref *etree.Element, mode InsertMode) error {
	switch mode {
	case Append:
		ref.AddChild(el)
	case Prepend:
		ref.InsertChildAt(0, el)
	case Before, After:
		parent := ref.Parent()
		if parent == nil {
			return structuref(op, "reference node %s has no parent", ref.Tag)
		}
		i := tokenIndex(parent, ref)
		if mode == After {
			i++
		}
		parent.InsertChildAt(i, el)
	default:
		return structuref(op, "unknown insert mode %d", mode)
	}
	return nil
}

// RemoveElement unlinks node and its subtree from the document.
func (p *PageXML) RemoveElement(node *etree.Element) error {
	parent := node.Parent()
	if parent == nil || node == p.Root() {
		return structuref("RemoveElement", "cannot remove the %s element", node.Tag)
	}
	hadPages := false
	walk(node, func(e *etree.Element) bool {
		hadPages = e.Tag == ElemPage
		return !hadPages
	})
	parent.RemoveChild(node)
	p.unindexIDs(node)
	if hadPages {
		p.syncPages()
	}
	return nil
}

// RemoveElements removes all nodes and returns how many were removed.
func (p *PageXML) RemoveElements(nodes []*etree.Element) int {
	n := 0
	for _, node := range nodes {
		if p.RemoveElement(node) == nil {
			n++
		}
	}
	return n
}

// RemoveQuery removes all elements matched by query.
func (p *PageXML) RemoveQuery(query string, base *etree.Element) (int, error) {
	nodes, err := p.Select(query, base)
	if err != nil {
		return 0, err
	}
	return p.RemoveElements(nodes), nil
}

// MoveElement unlinks node and reinserts it with its subtree relative to
// ref.
func (p *PageXML) MoveElement(node, ref *etree.Element, mode InsertMode) error {
	const op = "MoveElement"
	for a := ref; a != nil; a = a.Parent() {
		if a == node {
			return structuref(op, "cannot move %s relative to its own descendant", node.Tag)
		}
	}
	if parent := node.Parent(); parent != nil {
		parent.RemoveChild(node)
	}
	if err := insert(op, node, ref, mode); err != nil {
		return err
	}
	if node.Tag == ElemPage {
		p.syncPages()
	}
	return nil
}

// Pages returns the Page elements in document order.
func (p *PageXML) Pages() []*etree.Element {
	out := make([]*etree.Element, len(p.pages))
	for i, s := range p.pages {
		out[i] = s.node
	}
	return out
}

// Page returns the n-th page, or nil if out of range.
func (p *PageXML) Page(n int) *etree.Element {
	if n < 0 || n >= len(p.pages) {
		return nil
	}
	return p.pages[n].node
}

// GetPageNumber returns the 0-based index of the page that contains node, or
// -1 if node is not inside a Page.
func (p *PageXML) GetPageNumber(node *etree.Element) int {
	page := Closest(ElemPage, node)
	for i, s := range p.pages {
		if s.node == page {
			return i
		}
	}
	return -1
}

// PageWidth returns the imageWidth of the page containing node.
func (p *PageXML) PageWidth(node *etree.Element) (int, error) {
	return pageDim("PageWidth", node, "imageWidth")
}

// PageHeight returns the imageHeight of the page containing node.
func (p *PageXML) PageHeight(node *etree.Element) (int, error) {
	return pageDim("PageHeight", node, "imageHeight")
}

func pageDim(op string, node *etree.Element, attr string) (int, error) {
	page := Closest(ElemPage, node)
	if page == nil {
		return 0, structuref(op, "node is not a %s or one of its descendants", ElemPage)
	}
	v, err := strconv.Atoi(page.SelectAttrValue(attr, ""))
	if err != nil || v < 0 {
		return 0, structuref(op, "invalid %s %q", attr, page.SelectAttrValue(attr, ""))
	}
	return v, nil
}

func (p *PageXML) pageSize(op string, page *etree.Element) (int, int, error) {
	w, err := pageDim(op, page, "imageWidth")
	if err != nil {
		return 0, 0, err
	}
	h, err := pageDim(op, page, "imageHeight")
	return w, h, err
}

// PageImageFilename returns the path used to load the n-th page image.
func (p *PageXML) PageImageFilename(n int) string {
	if n < 0 || n >= len(p.pages) {
		return ""
	}
	return p.pages[n].filename
}

// ImageBase returns the image base name of the n-th page.
func (p *PageXML) ImageBase(n int) string {
	if n < 0 || n >= len(p.pages) {
		return ""
	}
	return p.pages[n].base
}

// RelativizeImageFilename rewrites the imageFilename of every page relative
// to the directory of outPath.
func (p *PageXML) RelativizeImageFilename(outPath string) error {
	dir, err := filepath.Abs(filepath.Dir(outPath))
	if err != nil {
		return wrapf(ErrResource, "RelativizeImageFilename", err, "unable to resolve %s", outPath)
	}
	for _, s := range p.pages {
		fname := s.filename
		if fname == "" {
			continue
		}
		abs, err := filepath.Abs(fname)
		if err != nil {
			continue
		}
		if rel, err := filepath.Rel(dir, abs); err == nil {
			s.node.CreateAttr("imageFilename", filepath.ToSlash(rel))
		}
	}
	return nil
}

func timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

package pagexml

import (
	"strings"

	"github.com/antchfx/xpath"
	"github.com/beevik/etree"
)

// nsPrefix is the prefix bound to the document namespace in queries.
const nsPrefix = "_"

// queryContext evaluates path queries for one document. Its navigator is
// repositioned for each base relative query and restored afterwards, so
// queries must not be issued while another is being evaluated.
type queryContext struct {
	ns    map[string]string
	cache map[string]*xpath.Expr
	nav   navigator
	busy  bool
}

func newQueryContext(doc *etree.Document, uri string) *queryContext {
	q := &queryContext{
		ns:    map[string]string{nsPrefix: uri},
		cache: make(map[string]*xpath.Expr),
	}
	q.nav = navigator{root: &doc.Element, uri: uri, cur: &doc.Element, attr: -1}
	return q
}

func (q *queryContext) compile(query string) (*xpath.Expr, error) {
	if expr, ok := q.cache[query]; ok {
		return expr, nil
	}
	expr, err := xpath.CompileWithNS(query, q.ns)
	if err != nil {
		return nil, err
	}
	q.cache[query] = expr
	return expr, nil
}

// selectNodes returns the elements matched by query relative to base.
// Attribute and text results are skipped.
func (q *queryContext) selectNodes(query string, base *etree.Element) ([]*etree.Element, error) {
	if q.busy {
		return nil, structuref("Select", "query %q issued during another query", query)
	}
	expr, err := q.compile(query)
	if err != nil {
		return nil, wrapf(ErrStructure, "Select", err, "malformed query %q", query)
	}
	q.busy = true
	saved := q.nav
	defer func() {
		q.nav = saved
		q.busy = false
	}()
	if base != nil {
		q.nav.cur, q.nav.text, q.nav.attr = base, nil, -1
	}

	var nodes []*etree.Element
	it := expr.Select(&q.nav)
	for it.MoveNext() {
		n, ok := it.Current().(*navigator)
		if ok && n.NodeType() == xpath.ElementNode {
			nodes = append(nodes, n.cur)
		}
	}
	return nodes, nil
}

// navigator implements xpath.NodeNavigator over an etree document. Only
// elements, attributes and character data are visible.
type navigator struct {
	root *etree.Element   // the document node
	uri  string           // namespace bound to nsPrefix
	cur  *etree.Element   // current element, or parent of text
	text *etree.CharData  // current text node, if any
	attr int              // index in cur.Attr, -1 if not on an attribute
}

func (n *navigator) NodeType() xpath.NodeType {
	switch {
	case n.attr >= 0:
		return xpath.AttributeNode
	case n.text != nil:
		return xpath.TextNode
	case n.cur == n.root:
		return xpath.RootNode
	}
	return xpath.ElementNode
}

func (n *navigator) LocalName() string {
	switch {
	case n.attr >= 0:
		return n.cur.Attr[n.attr].Key
	case n.text != nil:
		return ""
	}
	return n.cur.Tag
}

func (n *navigator) Prefix() string {
	if n.attr >= 0 {
		return n.cur.Attr[n.attr].Space
	}
	if n.text != nil || n.cur == n.root {
		return ""
	}
	if namespaceOf(n.cur) == n.uri {
		return nsPrefix
	}
	return n.cur.Space
}

// NamespaceURL is the optional namespace hook of xpath navigators.
func (n *navigator) NamespaceURL() string {
	if n.attr >= 0 || n.text != nil || n.cur == n.root {
		return ""
	}
	return namespaceOf(n.cur)
}

func (n *navigator) Value() string {
	switch {
	case n.attr >= 0:
		return n.cur.Attr[n.attr].Value
	case n.text != nil:
		return n.text.Data
	}
	var sb strings.Builder
	innerText(&sb, n.cur)
	return sb.String()
}

func (n *navigator) Copy() xpath.NodeNavigator {
	c := *n
	return &c
}

func (n *navigator) MoveToRoot() {
	n.cur, n.text, n.attr = n.root, nil, -1
}

func (n *navigator) MoveToParent() bool {
	switch {
	case n.attr >= 0:
		n.attr = -1
		return true
	case n.text != nil:
		n.text = nil
		return true
	}
	if n.cur == n.root || n.cur.Parent() == nil {
		return false
	}
	n.cur = n.cur.Parent()
	return true
}

func (n *navigator) MoveToNextAttribute() bool {
	if n.text != nil {
		return false
	}
	for i := n.attr + 1; i < len(n.cur.Attr); i++ {
		if !isNamespaceDecl(n.cur.Attr[i]) {
			n.attr = i
			return true
		}
	}
	return false
}

func (n *navigator) MoveToChild() bool {
	if n.attr >= 0 || n.text != nil {
		return false
	}
	for _, tok := range n.cur.Child {
		if n.moveToToken(n.cur, tok) {
			return true
		}
	}
	return false
}

func (n *navigator) MoveToFirst() bool {
	parent, _, ok := n.position()
	if !ok {
		return false
	}
	for _, tok := range parent.Child {
		if n.moveToToken(parent, tok) {
			return true
		}
	}
	return false
}

func (n *navigator) MoveToNext() bool {
	parent, i, ok := n.position()
	if !ok {
		return false
	}
	for i++; i < len(parent.Child); i++ {
		if n.moveToToken(parent, parent.Child[i]) {
			return true
		}
	}
	return false
}

func (n *navigator) MoveToPrevious() bool {
	parent, i, ok := n.position()
	if !ok {
		return false
	}
	for i--; i >= 0; i-- {
		if n.moveToToken(parent, parent.Child[i]) {
			return true
		}
	}
	return false
}

func (n *navigator) MoveTo(other xpath.NodeNavigator) bool {
	o, ok := other.(*navigator)
	if !ok || o.root != n.root {
		return false
	}
	*n = *o
	return true
}

// position returns the parent of the current node and its index among the
// parent's tokens.
func (n *navigator) position() (*etree.Element, int, bool) {
	if n.attr >= 0 {
		return nil, 0, false
	}
	if n.text != nil {
		return n.cur, tokenIndex(n.cur, n.text), true
	}
	if n.cur == n.root {
		return nil, 0, false
	}
	parent := n.cur.Parent()
	if parent == nil {
		return nil, 0, false
	}
	return parent, tokenIndex(parent, n.cur), true
}

func (n *navigator) moveToToken(parent *etree.Element, tok etree.Token) bool {
	switch t := tok.(type) {
	case *etree.Element:
		n.cur, n.text, n.attr = t, nil, -1
		return true
	case *etree.CharData:
		n.cur, n.text, n.attr = parent, t, -1
		return true
	}
	return false
}

func tokenIndex(parent *etree.Element, tok etree.Token) int {
	for i, t := range parent.Child {
		if t == tok {
			return i
		}
	}
	return -1
}

func innerText(sb *strings.Builder, e *etree.Element) {
	for _, tok := range e.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			sb.WriteString(t.Data)
		case *etree.Element:
			innerText(sb, t)
		}
	}
}

func isNamespaceDecl(a etree.Attr) bool {
	return a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns")
}

// namespaceOf resolves the namespace URI of an element from the xmlns
// declarations of it and its ancestors.
func namespaceOf(e *etree.Element) string {
	for el := e; el != nil; el = el.Parent() {
		for _, a := range el.Attr {
			if e.Space == "" && a.Space == "" && a.Key == "xmlns" {
				return a.Value
			}
			if e.Space != "" && a.Space == "xmlns" && a.Key == e.Space {
				return a.Value
			}
		}
	}
	return ""
}

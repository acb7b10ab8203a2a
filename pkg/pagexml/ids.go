package pagexml

import (
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"
)

var (
	reLeadingNonLetters = regexp.MustCompile(`^[^a-zA-Z]*`)
	reInvalidIDChars    = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
)

// SimplifyIDs strips the page image base name from the ids of TextRegion and
// TextLine elements, saving the previous id as orig-id. It returns the
// number of ids changed.
func (p *PageXML) SimplifyIDs() (int, error) {
	nodes, err := p.Select("//*[@id][local-name()='TextLine' or local-name()='TextRegion']", nil)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range nodes {
		base := p.ImageBase(p.GetPageNumber(n))
		id := n.SelectAttrValue("id", "")
		if base == "" || !strings.HasPrefix(id, base) {
			continue
		}
		sid := reLeadingNonLetters.ReplaceAllString(strings.TrimPrefix(id, base), "")
		sid = reInvalidIDChars.ReplaceAllString(sid, "_")
		if sid == "" || sid == id {
			continue
		}
		n.CreateAttr("orig-id", id)
		n.CreateAttr("id", sid)
		count++
	}
	if count > 0 {
		p.resetIDs()
	}
	return count, nil
}

// AreIDsUnique reports whether all id attributes are distinct. Duplicates
// are logged as warnings.
func (p *PageXML) AreIDsUnique() bool {
	seen := make(map[string]bool)
	unique := true
	walk(p.Root(), func(e *etree.Element) bool {
		id := e.SelectAttrValue("id", "")
		if id == "" {
			return true
		}
		if seen[id] {
			p.log.WithFields(logrus.Fields{"id": id, "element": e.Tag}).Warn("duplicate id")
			unique = false
		}
		seen[id] = true
		return true
	})
	return unique
}

// idIndex maps each id to its first element in document order. It is built
// on first use and kept current by the PageXML methods that add, remove or
// rename elements. Elements changed directly through etree may leave stale
// entries, which ElementByID detects and rebuilds.
func (p *PageXML) idIndex() map[string]*etree.Element {
	if p.ids != nil {
		return p.ids
	}
	p.ids = make(map[string]*etree.Element)
	p.idDups = false
	walk(p.Root(), func(e *etree.Element) bool {
		if id := e.SelectAttrValue("id", ""); id != "" {
			if _, dup := p.ids[id]; dup {
				p.idDups = true
			} else {
				p.ids[id] = e
			}
		}
		return true
	})
	return p.ids
}

func (p *PageXML) resetIDs() {
	p.ids = nil
	p.idDups = false
}

// live reports whether e still has the given id and is part of the document.
func (p *PageXML) live(e *etree.Element, id string) bool {
	if e.SelectAttrValue("id", "") != id {
		return false
	}
	root := p.Root()
	for a := e; a != nil; a = a.Parent() {
		if a == root {
			return true
		}
	}
	return false
}

// indexIDs adds the ids of a newly inserted subtree.
func (p *PageXML) indexIDs(node *etree.Element) {
	if p.ids == nil {
		return
	}
	walk(node, func(e *etree.Element) bool {
		id := e.SelectAttrValue("id", "")
		if id == "" {
			return true
		}
		if old, ok := p.ids[id]; ok && old != e && p.live(old, id) {
			p.idDups = true
		} else {
			p.ids[id] = e
		}
		return true
	})
}

// unindexIDs drops the ids of a removed subtree. With duplicates around the
// index is rebuilt instead, since another element may own the id.
func (p *PageXML) unindexIDs(node *etree.Element) {
	if p.ids == nil {
		return
	}
	if p.idDups {
		p.resetIDs()
		return
	}
	walk(node, func(e *etree.Element) bool {
		if id := e.SelectAttrValue("id", ""); id != "" && p.ids[id] == e {
			delete(p.ids, id)
		}
		return true
	})
}

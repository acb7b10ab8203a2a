package pagexml

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Direction is a reading direction.
type Direction int

const (
	LeftToRight Direction = iota
	RightToLeft
	TopToBottom
	BottomToTop
)

var directionNames = [...]string{"left-to-right", "right-to-left", "top-to-bottom", "bottom-to-top"}
var directionCodes = [...]string{"ltr", "rtl", "ttb", "btt"}

func (d Direction) String() string {
	if d < 0 || int(d) >= len(directionNames) {
		return directionNames[0]
	}
	return directionNames[d]
}

// ParseDirection parses an attribute value ("right-to-left") or a short
// code ("rtl").
func ParseDirection(s string) (Direction, bool) {
	for i := range directionNames {
		if s == directionNames[i] || s == directionCodes[i] {
			return Direction(i), true
		}
	}
	return LeftToRight, false
}

// Custom holds the values encoded in the legacy "custom" attribute. Nil
// fields were not present.
type Custom struct {
	Rotation  *float64
	Direction *Direction
	XHeight   *float64
}

var (
	reRotation  = regexp.MustCompile(`readingOrientation: *(-?[0-9.]+) *;`)
	reDirection = regexp.MustCompile(`readingDirection: *([lrt]t[rlb]) *;`)
	reXHeight   = regexp.MustCompile(`x-height: *([0-9.]+) *px;`)
)

// ParseCustom extracts the known keys from a custom attribute value.
func ParseCustom(s string) Custom {
	var c Custom
	if m := reRotation.FindStringSubmatch(s); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			c.Rotation = &v
		}
	}
	if m := reDirection.FindStringSubmatch(s); m != nil {
		if d, ok := ParseDirection(m[1]); ok {
			c.Direction = &d
		}
	}
	if m := reXHeight.FindStringSubmatch(s); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			c.XHeight = &v
		}
	}
	return c
}

// SetRotation sets the readingOrientation of a TextRegion in degrees. Zero
// removes the attribute.
func (p *PageXML) SetRotation(node *etree.Element, degrees float64) error {
	if !NodeIs(node, ElemTextRegion) {
		return structuref("SetRotation", "expected a %s node", ElemTextRegion)
	}
	if degrees == 0 {
		node.RemoveAttr("readingOrientation")
		return nil
	}
	node.CreateAttr("readingOrientation", formatFloat(degrees))
	return nil
}

// SetReadingDirection sets the readingDirection of a TextRegion.
// Left-to-right, the default, removes the attribute.
func (p *PageXML) SetReadingDirection(node *etree.Element, dir Direction) error {
	if !NodeIs(node, ElemTextRegion) {
		return structuref("SetReadingDirection", "expected a %s node", ElemTextRegion)
	}
	if dir == LeftToRight {
		node.RemoveAttr("readingDirection")
		return nil
	}
	node.CreateAttr("readingDirection", dir.String())
	return nil
}

// GetRotation returns the reading orientation of node in degrees. The node's
// readingOrientation attribute wins; TextLines then fall back to their custom
// attribute and the parent region.
func GetRotation(node *etree.Element) float64 {
	if v, err := strconv.ParseFloat(GetAttr(node, "readingOrientation"), 64); err == nil {
		return v
	}
	if NodeIs(node, ElemTextLine) {
		if c := ParseCustom(GetAttr(node, "custom")); c.Rotation != nil {
			return *c.Rotation
		}
		if parent := node.Parent(); NodeIs(parent, ElemTextRegion) {
			if v, err := strconv.ParseFloat(GetAttr(parent, "readingOrientation"), 64); err == nil {
				return v
			}
		}
	}
	return 0
}

// GetReadingDirection returns the reading direction of node, resolved like
// GetRotation.
func GetReadingDirection(node *etree.Element) Direction {
	if d, ok := ParseDirection(GetAttr(node, "readingDirection")); ok {
		return d
	}
	if NodeIs(node, ElemTextLine) {
		if c := ParseCustom(GetAttr(node, "custom")); c.Direction != nil {
			return *c.Direction
		}
		if parent := node.Parent(); NodeIs(parent, ElemTextRegion) {
			if d, ok := ParseDirection(GetAttr(parent, "readingDirection")); ok {
				return d
			}
		}
	}
	return LeftToRight
}

// GetXHeight returns the x-height from the custom attribute, or -1.
func GetXHeight(node *etree.Element) float64 {
	if c := ParseCustom(GetAttr(node, "custom")); c.XHeight != nil {
		return *c.XHeight
	}
	return -1
}

// SetXHeight records the x-height of a TextLine in its custom attribute,
// keeping any other keys.
func (p *PageXML) SetXHeight(line *etree.Element, px float64) error {
	if !NodeIs(line, ElemTextLine) {
		return structuref("SetXHeight", "expected a %s node", ElemTextLine)
	}
	custom := reXHeight.ReplaceAllString(GetAttr(line, "custom"), "")
	custom = strings.TrimSpace(custom + " x-height: " + formatFloat(px) + "px;")
	line.CreateAttr("custom", custom)
	return nil
}

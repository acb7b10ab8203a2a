package pagexml

import (
	"image"
	"math"
	"strings"

	"github.com/beevik/etree"
	"github.com/gardar/pagexml/pkg/geom"
	"github.com/gardar/pagexml/pkg/raster"
)

// Margin expands a crop window. Each component is a number of pixels when it
// is at least 1, otherwise a fraction of the larger side of the window.
type Margin struct {
	Before geom.Point // left (X) and top (Y)
	After  geom.Point // right (X) and bottom (Y)
}

// UniformMargin returns a margin of m on every side.
func UniformMargin(m float64) *Margin {
	return &Margin{Before: geom.Point{X: m, Y: m}, After: geom.Point{X: m, Y: m}}
}

// CropOptions modify Crop.
type CropOptions struct {
	Margin       *Margin
	OpaqueCoords bool         // alpha mask from the polygon
	TranspQuery  string       // polygons made half transparent, relative to each Coords
	BaseQuery    string       // node at which crop names are rooted
	Load         *LoadOptions // used when a page image is not loaded yet
}

// NamedImage is an element image produced by Crop.
type NamedImage struct {
	ID        string
	Name      string
	Rotation  float64 // degrees
	Direction Direction
	X, Y      int // offset of the crop in the page image
	Image     image.Image
	Node      *etree.Element // source Coords
}

func marginPixels(m, maxWH float64) int {
	if m < 1 {
		return int(maxWH * m)
	}
	return int(m)
}

// cropWindow computes the integer window of the box bb in a w×h image.
func cropWindow(bb geom.BBox, m *Margin, w, h int) image.Rectangle {
	cw := int(math.Ceil(bb.XMax) - math.Floor(bb.XMin) + 1)
	ch := int(math.Ceil(bb.YMax) - math.Floor(bb.YMin) + 1)
	cx := int(math.Floor(bb.XMin))
	cy := int(math.Floor(bb.YMin))
	if m != nil {
		maxWH := float64(max(cw, ch))
		ox, oy := cx, cy
		cx = max(cx-marginPixels(m.Before.X, maxWH), 0)
		cy = max(cy-marginPixels(m.Before.Y, maxWH), 0)
		cw += ox - cx + marginPixels(m.After.X, maxWH)
		ch += oy - cy + marginPixels(m.After.Y, maxWH)
		if cx+cw-1 >= w {
			cw = w - cx - 1
		}
		if cy+ch-1 >= h {
			ch = h - cy - 1
		}
	}
	return image.Rect(cx, cy, cx+cw, cy+ch).Intersect(image.Rect(0, 0, w, h))
}

// cropName joins the image base and the ids of the ancestors of node up to
// root (excluded) with dots.
func (p *PageXML) cropName(node, root *etree.Element) string {
	elem := node.Parent()
	ids := []string{GetAttr(elem, "id")}
	if p.cfg.ExtendedNames {
		for a := elem.Parent(); a != nil && a != root && !NodeIs(a, ElemPage); a = a.Parent() {
			if id := GetAttr(a, "id"); id != "" {
				ids = append(ids, id)
			}
		}
	}
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return p.ImageBase(p.GetPageNumber(node)) + "." + strings.Join(ids, ".")
}

// Crop extracts the image of each Coords element matched by query. All page
// images are released before returning.
func (p *PageXML) Crop(query string, opts CropOptions) ([]NamedImage, error) {
	const op = "Crop"
	nodes, err := p.Select(query, nil)
	if err != nil {
		return nil, err
	}
	defer p.ReleaseImages()

	var root *etree.Element
	if opts.BaseQuery != "" {
		if root, err = p.selectOne(op, opts.BaseQuery, nil); err != nil {
			return nil, err
		}
	}

	var (
		images  []NamedImage
		pageNum = -1
		pageImg image.Image
	)
	for i, node := range nodes {
		if !NodeIs(node, ElemCoords) {
			return nil, structuref(op, "expected query to match only Coords elements: match=%d query=%s", i+1, query)
		}
		elem := node.Parent()
		id := GetAttr(elem, "id")
		if id == "" {
			return nil, structuref(op, "expected parent element to include id attribute: match=%d query=%s", i+1, query)
		}
		if GetAttr(node, "points") == "" {
			return nil, structuref(op, "expected a points attribute in Coords element: id=%s", id)
		}

		if n := p.GetPageNumber(node); n != pageNum || pageImg == nil {
			if pageImg, err = p.pageImage(n, opts.Load); err != nil {
				return nil, err
			}
			pageNum = n
		}
		// loading may have rescaled the page coordinates
		coords := geom.ParsePoints(GetAttr(node, "points"))
		if len(coords) == 0 {
			return nil, structuref(op, "expected a points attribute in Coords element: id=%s", id)
		}
		b := pageImg.Bounds()
		win := cropWindow(geom.PointsBBox(coords), opts.Margin, b.Dx(), b.Dy())
		crop := p.cfg.images().Crop(pageImg, win.Add(b.Min))

		if opts.OpaqueCoords {
			var transp [][]geom.Point
			if opts.TranspQuery != "" {
				children, err := p.Select(opts.TranspQuery, node)
				if err != nil {
					return nil, err
				}
				for _, c := range children {
					pts := geom.ParsePoints(GetAttr(c, "points"))
					if len(pts) == 0 {
						return nil, structuref(op, "expected a points attribute in Coords element: id=%s", GetAttr(c.Parent(), "id"))
					}
					transp = append(transp, shiftPoints(pts, win.Min))
				}
			}
			mask := raster.Mask(win.Dx(), win.Dy(), shiftPoints(coords, win.Min), transp)
			crop = raster.ApplyMask(crop, mask)
		}

		rot := GetRotation(elem)
		if NodeIs(elem, ElemTextLine) {
			if bl := Points(elem, ElemBaseline); len(bl) > 1 {
				rot = geom.BaselineOrientation(bl) * 180 / math.Pi
			}
		}

		images = append(images, NamedImage{
			ID:        id,
			Name:      p.cropName(node, root),
			Rotation:  rot,
			Direction: GetReadingDirection(elem),
			X:         win.Min.X,
			Y:         win.Min.Y,
			Image:     crop,
			Node:      node,
		})
	}
	return images, nil
}

func shiftPoints(pts []geom.Point, off image.Point) []geom.Point {
	out := make([]geom.Point, len(pts))
	for i, pt := range pts {
		out[i] = geom.Point{X: math.Round(pt.X - float64(off.X)), Y: math.Round(pt.Y - float64(off.Y))}
	}
	return out
}

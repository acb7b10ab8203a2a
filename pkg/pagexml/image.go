package pagexml

import (
	"image"
	"regexp"
	"strconv"

	"github.com/beevik/etree"
)

// ImageCodec is the image collaborator used to decode and transform page
// images. raster.Codec is the default implementation.
type ImageCodec interface {
	Decode(path string, density int) (image.Image, error)
	Rotate(img image.Image, angle int) (image.Image, error)
	Crop(img image.Image, r image.Rectangle) image.Image
	Grayscale(img image.Image) image.Image
}

var reFrameSuffix = regexp.MustCompile(`^(.+)\[[0-9]+]$`)

// LoadOptions modify how LoadImage reads a page image.
type LoadOptions struct {
	Filename      string // overrides the page's image file
	SkipSizeCheck bool   // accept images whose size differs from the page
	ResizeCoords  bool   // resize the page geometry to the image size on mismatch
	Density       int    // resolution for vector inputs
}

func (p *PageXML) decode(path string, density int) (image.Image, error) {
	img, err := p.cfg.images().Decode(path, density)
	if err != nil {
		return nil, err
	}
	if p.cfg.GrayImages {
		img = p.cfg.images().Grayscale(img)
	}
	return img, nil
}

// LoadImage decodes the image of page n, checks it against the page size and
// applies the page's ImageOrientation. The result is kept until released.
func (p *PageXML) LoadImage(n int, opts *LoadOptions) (image.Image, error) {
	const op = "LoadImage"
	if n < 0 || n >= len(p.pages) {
		return nil, lookupf(op, "page %d out of range (%d pages)", n, len(p.pages))
	}
	if opts == nil {
		opts = &LoadOptions{}
	}
	slot := &p.pages[n]
	fname := slot.filename
	if opts.Filename != "" {
		fname = opts.Filename
	}
	if fname == "" {
		return nil, structuref(op, "page %d has no imageFilename", n)
	}
	img, err := p.decode(fname, opts.Density)
	if err != nil {
		return nil, wrapf(ErrResource, op, err, "unable to load image of page %d", n)
	}

	angle, _, _ := p.ImageOrientation(slot.node)
	if !opts.SkipSizeCheck {
		w, h, err := p.pageSize(op, slot.node)
		if err != nil {
			return nil, err
		}
		iw, ih := img.Bounds().Dx(), img.Bounds().Dy()
		if angle == 90 || angle == -90 {
			iw, ih = ih, iw
		}
		if iw != w || ih != h {
			if !opts.ResizeCoords {
				return nil, consistencyf(op, "image size discrepancy for %s: image %dx%d, page %dx%d", fname, iw, ih, w, h)
			}
			if _, err := p.Resize([]image.Point{{X: iw, Y: ih}}, []*etree.Element{slot.node}, false); err != nil {
				return nil, err
			}
		}
	}
	if angle != 0 {
		if img, err = p.cfg.images().Rotate(img, angle); err != nil {
			return nil, wrapf(ErrResource, op, err, "unable to rotate image of page %d", n)
		}
	}
	slot.img = img
	return img, nil
}

// PageImage returns the image of page n, loading it on first use.
func (p *PageXML) PageImage(n int) (image.Image, error) {
	return p.pageImage(n, nil)
}

func (p *PageXML) pageImage(n int, opts *LoadOptions) (image.Image, error) {
	if n >= 0 && n < len(p.pages) && p.pages[n].img != nil {
		return p.pages[n].img, nil
	}
	return p.LoadImage(n, opts)
}

// ReleaseImage drops the loaded image of page n.
func (p *PageXML) ReleaseImage(n int) {
	if n >= 0 && n < len(p.pages) {
		p.pages[n].img = nil
	}
}

// ReleaseImages drops all loaded page images.
func (p *PageXML) ReleaseImages() {
	for i := range p.pages {
		p.pages[i].img = nil
	}
}

// ImageOrientation returns the angle and confidence recorded in the page's
// ImageOrientation element. ok is false when there is none.
func (p *PageXML) ImageOrientation(page *etree.Element) (angle int, conf float64, ok bool) {
	o := firstChild(page, ElemImageOrientation)
	if o == nil {
		return 0, 0, false
	}
	angle, _ = strconv.Atoi(o.SelectAttrValue("angle", "0"))
	conf, _ = strconv.ParseFloat(o.SelectAttrValue("conf", "0"), 64)
	return angle, conf, true
}

// SetImageOrientation records the orientation of the page image. An angle of
// 0 removes the element.
func (p *PageXML) SetImageOrientation(page *etree.Element, angle int, conf ...float64) (*etree.Element, error) {
	const op = "SetImageOrientation"
	if !NodeIs(page, ElemPage) {
		return nil, structuref(op, "expected a %s node", ElemPage)
	}
	switch angle {
	case 0, 90, 180, -90:
	default:
		return nil, structuref(op, "invalid angle %d, expected 0, 90, 180 or -90", angle)
	}
	if o := firstChild(page, ElemImageOrientation); o != nil {
		page.RemoveChild(o)
	}
	if angle == 0 {
		return nil, nil
	}
	o, err := p.insertStructural(op, ElemImageOrientation, page, ElemProperty)
	if err != nil {
		return nil, err
	}
	o.CreateAttr("angle", strconv.Itoa(angle))
	setConf(o, conf)
	return o, nil
}

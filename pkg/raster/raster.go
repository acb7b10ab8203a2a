// Package raster implements the pixel operations needed to pair Page XML
// documents with their page images: decoding, quarter-turn rotation,
// cropping, grayscale conversion and polygon alpha masks.
package raster

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/gardar/pagexml/pkg/geom"
	_ "golang.org/x/image/bmp" // register BMP decoder
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	_ "golang.org/x/image/tiff" // register TIFF decoder
	"golang.org/x/image/vector"
	_ "golang.org/x/image/webp" // register WEBP decoder
)

// Codec is the default image collaborator of a Page XML document.
type Codec struct{}

var reFrame = regexp.MustCompile(`^(.+)\[([0-9]+)]$`)

// Decode reads the image at path. A "[n]" suffix selects a frame of a
// multi-image file; only the first frame can be decoded. density is the
// resolution requested for vector inputs such as PDF, which need an external
// rasterizer.
func (Codec) Decode(path string, density int) (image.Image, error) {
	if m := reFrame.FindStringSubmatch(path); m != nil {
		n, _ := strconv.Atoi(m[2])
		if n > 0 {
			return nil, fmt.Errorf("decoding frame %d of %s is not supported", n, m[1])
		}
		path = m[1]
	}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, fmt.Errorf("rendering %s at density %d requires an external rasterizer", path, density)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// DecodeConfig returns the dimensions of the image at path without decoding
// the pixels.
func DecodeConfig(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image config %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

// Rotate turns img by a multiple of 90 degrees, positive angles being
// counter-clockwise. The returned image has its origin at (0,0).
func (Codec) Rotate(img image.Image, angle int) (image.Image, error) {
	sr := img.Bounds()
	ox, oy := float64(sr.Min.X), float64(sr.Min.Y)
	w, h := float64(sr.Dx()), float64(sr.Dy())
	var s2d f64.Aff3
	var size image.Point
	switch angle {
	case 0:
		return img, nil
	case 90:
		s2d = f64.Aff3{0, 1, -oy, -1, 0, w + ox}
		size = image.Pt(sr.Dy(), sr.Dx())
	case -90, 270:
		s2d = f64.Aff3{0, -1, h + oy, 1, 0, -ox}
		size = image.Pt(sr.Dy(), sr.Dx())
	case 180, -180:
		s2d = f64.Aff3{-1, 0, w + ox, 0, -1, h + oy}
		size = sr.Size()
	default:
		return nil, fmt.Errorf("unsupported rotation angle %d", angle)
	}
	dst := newLike(img, image.Rectangle{Max: size})
	draw.NearestNeighbor.Transform(dst, s2d, img, sr, draw.Src, nil)
	return dst, nil
}

// Crop copies the part of img inside r (clipped to the image bounds) into a
// new image with its origin at (0,0).
func (Codec) Crop(img image.Image, r image.Rectangle) image.Image {
	r = r.Intersect(img.Bounds())
	dst := newLike(img, image.Rectangle{Max: r.Size()})
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

// Grayscale converts img to 8-bit gray.
func (Codec) Grayscale(img image.Image) image.Image {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	dst := image.NewGray(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst
}

func newLike(img image.Image, r image.Rectangle) draw.Image {
	if _, ok := img.(*image.Gray); ok {
		return image.NewGray(r)
	}
	return image.NewRGBA(r)
}

// Mask rasterizes the polygon opaque as fully opaque alpha and then each
// polygon in transp at half opacity, also where it leaves opaque. Points are
// in the coordinates of a w×h image.
func Mask(w, h int, opaque []geom.Point, transp [][]geom.Point) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	fillPolygon(mask, opaque)
	if len(transp) == 0 {
		return mask
	}
	tmp := image.NewAlpha(mask.Bounds())
	for _, pts := range transp {
		fillPolygon(tmp, pts)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if tmp.AlphaAt(x, y).A >= 128 {
					mask.SetAlpha(x, y, color.Alpha{A: 128})
				}
			}
		}
	}
	return mask
}

func fillPolygon(dst *image.Alpha, pts []geom.Point) {
	if len(pts) < 3 {
		return
	}
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Src
	z.MoveTo(float32(pts[0].X+0.5), float32(pts[0].Y+0.5))
	for _, p := range pts[1:] {
		z.LineTo(float32(p.X+0.5), float32(p.Y+0.5))
	}
	z.ClosePath()
	z.Draw(dst, b, image.Opaque, image.Point{})
}

// ApplyMask returns a copy of img with mask as its alpha channel.
func ApplyMask(img image.Image, mask *image.Alpha) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rectangle{Max: b.Size()})
	draw.DrawMask(dst, dst.Bounds(), img, b.Min, mask, image.Point{}, draw.Src)
	return dst
}

package hocr

import (
	"bytes"
	"embed"
	"fmt"
	"math"
	"strconv"
	"strings"
	"text/template"

	"golang.org/x/net/html"
)

//go:embed templates/hocr.tmpl
var templateFS embed.FS

var hocrTemplate = template.Must(template.New("hocr.tmpl").Funcs(template.FuncMap{
	"trim":      strings.TrimSpace,
	"esc":       html.EscapeString,
	"bbox":      formatBBox,
	"pagetitle": pageTitle,
	"linetitle": lineTitle,
	"wordtitle": wordTitle,
}).ParseFS(templateFS, "templates/hocr.tmpl"))

// GenerateHOCRDocument creates an hOCR HTML document from the HOCR struct
// Uses the embedded template to generate a complete HTML document
func GenerateHOCRDocument(doc *HOCR) (string, error) {
	var buf bytes.Buffer
	if err := hocrTemplate.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("error rendering hOCR template: %w", err)
	}
	return buf.String(), nil
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatBBox(b BoundingBox) string {
	r := func(v float64) string { return strconv.Itoa(int(math.Round(v))) }
	return "bbox " + r(b.X1) + " " + r(b.Y1) + " " + r(b.X2) + " " + r(b.Y2)
}

func pageTitle(p Page) string {
	parts := make([]string, 0, 3)
	if p.ImageName != "" {
		parts = append(parts, `image "`+p.ImageName+`"`)
	}
	parts = append(parts, formatBBox(p.BBox), "ppageno "+strconv.Itoa(p.PageNumber))
	return strings.Join(parts, "; ")
}

func lineTitle(l Line) string {
	parts := []string{formatBBox(l.BBox)}
	if l.Baseline != nil {
		parts = append(parts, "baseline "+formatNum(l.Baseline.Slope)+" "+formatNum(l.Baseline.Offset))
	}
	if l.TextAngle != 0 {
		parts = append(parts, "textangle "+formatNum(l.TextAngle))
	}
	if l.XSize > 0 {
		parts = append(parts, "x_size "+formatNum(l.XSize))
	}
	if l.XDescenders > 0 {
		parts = append(parts, "x_descenders "+formatNum(l.XDescenders))
	}
	if l.XAscenders > 0 {
		parts = append(parts, "x_ascenders "+formatNum(l.XAscenders))
	}
	return strings.Join(parts, "; ")
}

func wordTitle(w Word) string {
	return formatBBox(w.BBox) + "; x_wconf " + strconv.Itoa(int(math.Round(w.Confidence)))
}

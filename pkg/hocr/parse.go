package hocr

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
)

// ParseHOCR converts raw hOCR data into a structured HOCR object.
func ParseHOCR(data []byte) (HOCR, error) {
	var result HOCR
	result.Metadata = make(map[string]string)

	// Convert to UTF-8 if needed
	decoded := data
	if enc := declaredCharset(data); enc != "" && enc != "utf-8" && enc != "utf8" {
		var err error
		decoded, err = charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return result, fmt.Errorf("failed to decode %s: %w", enc, err)
		}
	}

	doc, err := html.Parse(bytes.NewReader(decoded))
	if err != nil {
		return result, err
	}

	// Extract document metadata from the head section
	extractDocumentMeta(&result, doc)

	for _, n := range collect(doc, "ocr_page") {
		result.Pages = append(result.Pages, processPage(n))
	}
	if len(result.Pages) == 0 {
		return result, fmt.Errorf("no ocr_page elements found in HOCR data")
	}
	return result, nil
}

// declaredCharset returns the lower-cased charset of a meta tag, if any.
func declaredCharset(data []byte) string {
	i := bytes.Index(data, []byte("charset="))
	if i < 0 {
		return ""
	}
	rest := data[i+len("charset="):]
	if len(rest) > 20 {
		rest = rest[:20]
	}
	fields := strings.FieldsFunc(string(rest), func(r rune) bool {
		return r == '"' || r == ';' || r == '\'' || r == '>' || r == ' ' || r == '/'
	})
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// ParseTitle breaks down an hOCR title attribute into its components
// Example input: "bbox 100 200 300 400; x_wconf 95"
func ParseTitle(title string) map[string][]string {
	result := make(map[string][]string)
	for _, part := range strings.Split(title, ";") {
		items := strings.Fields(part)
		if len(items) > 0 {
			result[items[0]] = items[1:]
		}
	}
	return result
}

// ParseBoundingBoxFromTitle extracts a bounding box from a title string
// Returns a structured BoundingBox object or nil if extraction fails
func ParseBoundingBoxFromTitle(title string) *BoundingBox {
	return boxProperty(ParseTitle(title), "bbox")
}

func boxProperty(props map[string][]string, key string) *BoundingBox {
	v := floats(props[key])
	if len(v) < 4 {
		return nil
	}
	result := NewBoundingBox(v[0], v[1], v[2], v[3])
	return &result
}

// floats parses the values of a title property, stopping at the first
// value that is not a number.
func floats(values []string) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		f, err := strconv.ParseFloat(strings.Trim(v, `"`), 64)
		if err != nil {
			break
		}
		out = append(out, f)
	}
	return out
}

func floatProperty(props map[string][]string, key string) (float64, bool) {
	v := floats(props[key])
	if len(v) == 0 {
		return 0, false
	}
	return v[0], true
}

// extractDocumentMeta extracts document-level metadata from the head section
func extractDocumentMeta(result *HOCR, doc *html.Node) {
	var head *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "html":
				if lang := getAttrVal(n, "lang"); lang != "" {
					result.Language = lang
				} else if lang := getAttrVal(n, "xml:lang"); lang != "" {
					result.Language = lang
				}
			case "head":
				head = n
				return
			case "body":
				return
			}
		}
		for c := n.FirstChild; c != nil && head == nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if head == nil {
		return
	}

	for c := head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "title":
			if c.FirstChild != nil {
				result.Title = c.FirstChild.Data
			}
		case "meta":
			name, content := getAttrVal(c, "name"), getAttrVal(c, "content")
			if name == "" || content == "" {
				continue
			}
			switch name {
			case "ocr-system", "ocr-capabilities", "ocr-number-of-pages", "ocr-langs":
				result.Metadata[name] = content
			case "description":
				result.Description = content
			case "dc.language":
				result.Language = content
			}
		}
	}
}

// hasClass reports whether the class attribute of n contains one of classes
// as a whole token.
func hasClass(n *html.Node, classes ...string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, c := range strings.Fields(getAttrVal(n, "class")) {
		if slices.Contains(classes, c) {
			return true
		}
	}
	return false
}

// collect returns the outermost descendants of n carrying one of classes.
func collect(n *html.Node, classes ...string) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if hasClass(c, classes...) {
				found = append(found, c)
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return found
}

// common reads id, lang and title of an element, storing the title
// properties not listed in skip into meta.
func common(n *html.Node, meta map[string]string, skip ...string) (id, lang string, props map[string][]string) {
	id = getAttrVal(n, "id")
	lang = getAttrVal(n, "lang")
	props = ParseTitle(getAttrVal(n, "title"))
	for k, v := range props {
		if k != "bbox" && !slices.Contains(skip, k) {
			meta[k] = strings.Join(v, " ")
		}
	}
	return id, lang, props
}

// processPage extracts page information and its children (areas, paragraphs, lines)
func processPage(n *html.Node) Page {
	page := Page{Metadata: make(map[string]string)}
	var props map[string][]string
	page.ID, page.Lang, props = common(n, page.Metadata, "image", "ppageno")
	page.Title = getAttrVal(n, "title")
	if bbox := boxProperty(props, "bbox"); bbox != nil {
		page.BBox = *bbox
	}
	if image, ok := props["image"]; ok && len(image) > 0 {
		page.ImageName = strings.Trim(strings.Join(image, " "), `"`)
	}
	if ppageno, ok := props["ppageno"]; ok && len(ppageno) > 0 {
		page.PageNumber, _ = strconv.Atoi(ppageno[0])
	}

	children := collect(n, append([]string{"ocr_carea", "ocr_par"}, LineClasses...)...)
	for _, c := range children {
		switch {
		case hasClass(c, "ocr_carea"):
			page.Areas = append(page.Areas, processArea(c))
		case hasClass(c, "ocr_par"):
			page.Paragraphs = append(page.Paragraphs, processParagraph(c))
		default:
			page.Lines = append(page.Lines, processLine(c))
		}
	}
	return page
}

// processArea extracts area information and its children (paragraphs, lines, words)
func processArea(n *html.Node) Area {
	area := Area{Metadata: make(map[string]string)}
	var props map[string][]string
	area.ID, area.Lang, props = common(n, area.Metadata)
	if bbox := boxProperty(props, "bbox"); bbox != nil {
		area.BBox = *bbox
	}

	for _, c := range collect(n, append([]string{"ocr_par", "ocrx_word"}, LineClasses...)...) {
		switch {
		case hasClass(c, "ocr_par"):
			area.Paragraphs = append(area.Paragraphs, processParagraph(c))
		case hasClass(c, "ocrx_word"):
			area.Words = append(area.Words, processWord(c))
		default:
			area.Lines = append(area.Lines, processLine(c))
		}
	}
	return area
}

// processParagraph extracts paragraph information and its children (lines, words)
func processParagraph(n *html.Node) Paragraph {
	paragraph := Paragraph{Metadata: make(map[string]string)}
	var props map[string][]string
	paragraph.ID, paragraph.Lang, props = common(n, paragraph.Metadata)
	paragraph.Dir = getAttrVal(n, "dir")
	if bbox := boxProperty(props, "bbox"); bbox != nil {
		paragraph.BBox = *bbox
	}

	for _, c := range collect(n, append([]string{"ocrx_word"}, LineClasses...)...) {
		if hasClass(c, "ocrx_word") {
			paragraph.Words = append(paragraph.Words, processWord(c))
		} else {
			paragraph.Lines = append(paragraph.Lines, processLine(c))
		}
	}
	return paragraph
}

// processLine extracts line information and its words
func processLine(n *html.Node) Line {
	line := Line{Metadata: make(map[string]string)}
	var props map[string][]string
	line.ID, line.Lang, props = common(n, line.Metadata,
		"baseline", "textangle", "x_size", "x_descenders", "x_ascenders")
	for _, c := range strings.Fields(getAttrVal(n, "class")) {
		if slices.Contains(LineClasses, c) {
			line.Kind = c
			break
		}
	}
	if bbox := boxProperty(props, "bbox"); bbox != nil {
		line.BBox = *bbox
	}
	if b := floats(props["baseline"]); len(b) >= 2 {
		line.Baseline = &Baseline{Slope: b[0], Offset: b[1]}
	}
	line.TextAngle, _ = floatProperty(props, "textangle")
	line.XSize, _ = floatProperty(props, "x_size")
	line.XDescenders, _ = floatProperty(props, "x_descenders")
	line.XAscenders, _ = floatProperty(props, "x_ascenders")

	for _, c := range collect(n, "ocrx_word") {
		line.Words = append(line.Words, processWord(c))
	}
	return line
}

// processWord extracts a word element with its text, confidence and glyphs
func processWord(n *html.Node) Word {
	word := Word{Metadata: make(map[string]string)}
	var props map[string][]string
	word.ID, word.Lang, props = common(n, word.Metadata, "x_wconf", "lang")
	if bbox := boxProperty(props, "bbox"); bbox != nil {
		word.BBox = *bbox
	}
	word.Confidence, _ = floatProperty(props, "x_wconf")
	if lang, ok := props["lang"]; ok && len(lang) > 0 {
		word.Lang = lang[0]
	}

	for _, c := range collect(n, "ocrx_cinfo") {
		cprops := ParseTitle(getAttrVal(c, "title"))
		g := Glyph{Text: extractTextContent(c)}
		if bbox := boxProperty(cprops, "x_bboxes"); bbox != nil {
			g.BBox = *bbox
		}
		g.Confidence, _ = floatProperty(cprops, "x_conf")
		word.Glyphs = append(word.Glyphs, g)
	}
	word.Text = extractTextContent(n)
	return word
}

// extractTextContent gets all text from a node and its children
func extractTextContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}

// Get the value of a specific attribute from a node
func getAttrVal(n *html.Node, attrName string) string {
	for _, attr := range n.Attr {
		if attr.Key == attrName {
			return attr.Val
		}
	}
	return ""
}

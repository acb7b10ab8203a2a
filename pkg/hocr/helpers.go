package hocr

import (
	"strings"
)

// ExtractHOCRText extracts all text from an HOCR document
// The text is ordered by page, with one line per text line and pages
// separated by blank lines
func ExtractHOCRText(hocrDoc *HOCR) string {
	var builder strings.Builder
	for i, page := range hocrDoc.Pages {
		if i > 0 {
			builder.WriteString("\n")
		}
		for _, area := range pageAreas(page) {
			writeArea(&builder, area)
		}
	}
	return builder.String()
}

func writeArea(builder *strings.Builder, area Area) {
	for _, para := range area.Paragraphs {
		writeLines(builder, para.Lines)
		writeWords(builder, para.Words)
	}
	writeLines(builder, area.Lines)
	writeWords(builder, area.Words)
}

func writeLines(builder *strings.Builder, lines []Line) {
	for _, line := range lines {
		writeWords(builder, line.Words)
	}
}

// writeWords writes the non-empty words joined by spaces as one line.
func writeWords(builder *strings.Builder, words []Word) {
	if len(words) == 0 {
		return
	}
	builder.WriteString(lineText(Line{Words: words}))
	builder.WriteString("\n")
}

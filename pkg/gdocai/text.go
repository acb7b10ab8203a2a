package gdocai

import (
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
)

// textFromProto extracts the full text from a Document AI proto
func textFromProto(doc *documentaipb.Document) string {
	return doc.GetText()
}

// textFromLayout extracts text from a layout's text anchor segments.
// Segment indexes count runes of the document text.
func textFromLayout(layout *documentaipb.Document_Page_Layout, fullText string) string {
	segs := layout.GetTextAnchor().GetTextSegments()
	if len(segs) == 0 {
		return ""
	}
	runes := []rune(fullText)
	var result strings.Builder
	for _, seg := range segs {
		end := min(int(seg.EndIndex), len(runes))
		start := min(max(int(seg.StartIndex), 0), end)
		result.WriteString(string(runes[start:end]))
	}
	return result.String()
}

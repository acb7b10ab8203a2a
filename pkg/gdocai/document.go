package gdocai

import (
	"sort"
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
)

// DocumentFromProto converts a Document AI response into our structure
func DocumentFromProto(doc *documentaipb.Document) *Document {
	return &Document{
		Raw:   doc,
		Pages: createPagesFromProtoDoc(doc),
		Text:  textFromProto(doc),
	}
}

// createPagesFromProtoDoc transforms the raw Document AI pages into structured format
// This builds the hierarchy of blocks, paragraphs, lines and tokens
func createPagesFromProtoDoc(doc *documentaipb.Document) []*Page {
	var result []*Page

	for i, page := range doc.GetPages() {
		pageNum := int(page.PageNumber)
		if pageNum == 0 {
			pageNum = i + 1
		}
		docAiPage := &Page{
			DocumentaiObject: page,
			PageNumber:       pageNum,
			Text:             textFromLayout(page.Layout, doc.Text),
		}

		for _, token := range page.Tokens {
			docAiPage.Tokens = append(docAiPage.Tokens, &Token{
				DocumentaiObject: token,
				PageNumber:       pageNum,
				Text:             tokenText(token, doc.Text),
			})
		}
		for _, line := range page.Lines {
			docAiPage.Lines = append(docAiPage.Lines, &Line{
				DocumentaiObject: line,
				PageNumber:       pageNum,
				Text:             strings.TrimSpace(textFromLayout(line.Layout, doc.Text)),
			})
		}
		for _, paragraph := range page.Paragraphs {
			docAiPage.Paragraphs = append(docAiPage.Paragraphs, &Paragraph{
				DocumentaiObject: paragraph,
				PageNumber:       pageNum,
				Text:             strings.TrimSpace(textFromLayout(paragraph.Layout, doc.Text)),
			})
		}
		for _, block := range page.Blocks {
			docAiPage.Blocks = append(docAiPage.Blocks, &Block{
				DocumentaiObject: block,
				PageNumber:       pageNum,
				Text:             strings.TrimSpace(textFromLayout(block.Layout, doc.Text)),
			})
		}

		// Build hierarchy: tokens -> lines -> paragraphs -> blocks
		for _, line := range docAiPage.Lines {
			line.Tokens = getChildElements(line, docAiPage.Tokens)
		}
		for _, paragraph := range docAiPage.Paragraphs {
			paragraph.Lines = getChildElements(paragraph, docAiPage.Lines)
		}
		for _, block := range docAiPage.Blocks {
			block.Paragraphs = getChildElements(block, docAiPage.Paragraphs)
		}

		result = append(result, docAiPage)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].PageNumber < result[j].PageNumber
	})
	return result
}

// tokenText returns the text of a token without the whitespace of its
// detected break.
func tokenText(token *documentaipb.Document_Page_Token, fullText string) string {
	return strings.Join(strings.Fields(textFromLayout(token.Layout, fullText)), " ")
}

// layoutOf returns the layout of any structural element.
func layoutOf(v any) *documentaipb.Document_Page_Layout {
	switch e := v.(type) {
	case *Token:
		return e.DocumentaiObject.GetLayout()
	case *Line:
		return e.DocumentaiObject.GetLayout()
	case *Paragraph:
		return e.DocumentaiObject.GetLayout()
	case *Block:
		return e.DocumentaiObject.GetLayout()
	}
	return nil
}

// textRange returns the first text segment of a layout.
func textRange(layout *documentaipb.Document_Page_Layout) (start, end int64, ok bool) {
	segs := layout.GetTextAnchor().GetTextSegments()
	if len(segs) == 0 {
		return 0, 0, false
	}
	return segs[0].StartIndex, segs[0].EndIndex, true
}

// getChildElements is a generic function that finds all child elements whose
// text range lies within the text range of the parent element
func getChildElements[P any, C any](parent P, children []C) []C {
	parentStart, parentEnd, ok := textRange(layoutOf(parent))
	if !ok {
		return nil
	}
	var result []C
	for _, child := range children {
		start, end, ok := textRange(layoutOf(child))
		if ok && start >= parentStart && end <= parentEnd {
			result = append(result, child)
		}
	}
	return result
}

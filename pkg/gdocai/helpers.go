package gdocai

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
)

// ToJSON renders the raw Document AI response as indented JSON.
func (d *Document) ToJSON() ([]byte, error) {
	if d.Raw == nil {
		return nil, fmt.Errorf("document has no raw response")
	}
	return protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(d.Raw)
}

// ExtractImageFromPage pulls out the image data and its mime type from a
// Document AI page
func ExtractImageFromPage(page *Page) ([]byte, string, error) {
	if page == nil || page.DocumentaiObject == nil {
		return nil, "", fmt.Errorf("no documentai page provided")
	}

	image := page.DocumentaiObject.GetImage()
	if image == nil {
		return nil, "", fmt.Errorf("no image found in documentai page")
	}

	content := image.GetContent()
	if len(content) == 0 {
		return nil, "", fmt.Errorf("image content is empty")
	}
	return content, image.GetMimeType(), nil
}

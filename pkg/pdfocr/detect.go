package pdfocr

import (
	"fmt"
	"regexp"
	"strings"
)

var ocgPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/Type\s*/OCG\s*/Name\s*\(([^)]+)\)`),
	regexp.MustCompile(`/Title\s*\(([^)]+)\)`),
	regexp.MustCompile(`/OCG\s*<<[^>]*?/Name\s*\(([^)]+)\)`),
	regexp.MustCompile(`<</Type/OCG/Name\(([^)]+)\)`),
	regexp.MustCompile(`/OCProperties.*?/OCGs\s*\[\s*.*?/Name\s*\(([^)]+)\)`),
	regexp.MustCompile(`/Name\s*\(([^)]+)\)[\s\S]{1,50}/Type\s*/OCG`),
}

// detectPDFLayers attempts to find optional content group names in the raw
// PDF data.
func detectPDFLayers(pdfData []byte) ([]string, error) {
	if len(pdfData) == 0 {
		return nil, fmt.Errorf("empty PDF data")
	}

	var unique []string
	seen := make(map[string]bool)
	for _, re := range ocgPatterns {
		for _, match := range re.FindAllSubmatch(pdfData, -1) {
			layer := unescapePDFString(string(match[1]))
			if strings.HasPrefix(layer, "\xfe\xff") {
				if decoded, err := decodeUTF16BE([]byte(layer)); err == nil {
					layer = decoded
				}
			}
			if !seen[layer] {
				seen[layer] = true
				unique = append(unique, layer)
			}
		}
	}
	return unique, nil
}

// LayerCheckResult contains the results of checking for OCR layers
type LayerCheckResult struct {
	Layers       []string // All detected layers
	HasOCRLayer  bool     // True if the specified OCR layer exists
	OCRLayerName string   // Name of the detected OCR layer (if any)
	Warnings     []string // Any warnings about potential OCR layers
}

// CheckExistingOCRLayers checks for existing OCR layers in a PDF
func CheckExistingOCRLayers(pdfData []byte, ocrLayerName string) (LayerCheckResult, error) {
	result := LayerCheckResult{}

	// Detect existing layers
	layers, err := detectPDFLayers(pdfData)
	if err != nil {
		return result, fmt.Errorf("cannot analyze layers: %w", err)
	}

	result.Layers = layers

	// Create a regex to match layer names with page numbers - more lenient pattern
	// This accounts for potential formatting issues in the PDF layer names
	pageLayerPattern := regexp.MustCompile(fmt.Sprintf(`^%s\s*\(Page\s*\d+.*`, regexp.QuoteMeta(ocrLayerName)))

	// Check for OCR layers
	for _, layer := range layers {
		// Check for exact match
		if layer == ocrLayerName {
			result.HasOCRLayer = true
			result.OCRLayerName = layer
			break
		}

		// Check for page-specific match with more lenient pattern
		if pageLayerPattern.MatchString(layer) {
			result.HasOCRLayer = true
			result.OCRLayerName = layer
			break
		}

		// Check for other potential OCR layers
		if strings.Contains(strings.ToLower(layer), "ocr") &&
			!strings.HasPrefix(layer, ocrLayerName) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Existing layer detected that might contain OCR: %s", layer))
		}
	}

	return result, nil
}

// OCRDetectionResult contains comprehensive OCR detection information
type OCRDetectionResult struct {
	HasOCR      bool // True if any OCR is detected by any method
	HasLayerOCR bool // True if OCR layers are detected

	LayerInfo LayerCheckResult // Details from layer detection

	Warnings []string // Warnings from any detection method
}

// DetectOCR reports whether pdfData already carries a text layer named like
// config.LayerName. Layer names that merely mention OCR become warnings.
func DetectOCR(pdfData []byte, config OCRConfig) (OCRDetectionResult, error) {
	result := OCRDetectionResult{}

	layerResult, err := CheckExistingOCRLayers(pdfData, config.LayerName)
	if err != nil {
		return result, err
	}
	result.LayerInfo = layerResult
	result.HasLayerOCR = layerResult.HasOCRLayer
	result.Warnings = append(result.Warnings, layerResult.Warnings...)
	result.HasOCR = result.HasLayerOCR
	return result, nil
}

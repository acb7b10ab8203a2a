// Package hocr reads and writes hOCR, the HTML microformat tesseract and
// other engines use for recognition results, and converts it to and from
// Page XML.
//
// The object model follows the hOCR class hierarchy: a document holds
// ocr_page Pages, which hold ocr_carea Areas, ocr_par Paragraphs, lines of
// one of the LineClasses, ocrx_word Words and ocrx_cinfo Glyphs. Properties
// of the title attribute that the importer needs (bbox, baseline, textangle,
// x_size, x_descenders, x_ascenders, x_wconf, x_bboxes) are parsed into typed
// fields; the rest is kept in Metadata.
//
// ParseHOCR and GenerateHOCRDocument convert between HTML and the model.
// AppendPage writes a parsed page into a Page element as TextRegions,
// TextLines, Words and Glyphs, and FromPageXML goes the other way.
package hocr

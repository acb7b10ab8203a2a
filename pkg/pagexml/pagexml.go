// Package pagexml reads, edits and writes Page XML documents, the layout
// format used to record OCR results as pages, text regions, text lines, words
// and glyphs together with their polygon and baseline geometry.
//
// A PageXML value owns one document tree, one query context for path queries
// and one lazily loaded image per Page element. It is meant to be used by a
// single goroutine; queries are not reentrant.
//
// Besides the accessors and the typed annotation operations, the package
// implements the layout reasoning used by the OCR tools: poly-stripe
// construction and validation, page rotation, text line continuation and
// reading order, region assignment by overlap and cropping of element images.
package pagexml

import (
	"github.com/gardar/pagexml/pkg/raster"
	"github.com/sirupsen/logrus"
)

// NamespaceURI is the namespace of documents created by NewXML.
const NamespaceURI = "http://schema.primaresearch.org/PAGE/gts/pagecontent/2013-07-15"

const schemaLocation = NamespaceURI + " " + NamespaceURI + "/pagecontent.xsd"

// Element names of the Page format.
const (
	ElemPcGts            = "PcGts"
	ElemMetadata         = "Metadata"
	ElemPage             = "Page"
	ElemTextRegion       = "TextRegion"
	ElemTextLine         = "TextLine"
	ElemWord             = "Word"
	ElemGlyph            = "Glyph"
	ElemCoords           = "Coords"
	ElemBaseline         = "Baseline"
	ElemTextEquiv        = "TextEquiv"
	ElemUnicode          = "Unicode"
	ElemProperty         = "Property"
	ElemImageOrientation = "ImageOrientation"
	ElemProcess          = "Process"
)

// Config holds the settings of a PageXML document.
type Config struct {
	Creator       string         // Creator written to new documents
	PageNS        string         // namespace for new documents (empty = NamespaceURI)
	Indent        bool           // indent the written XML
	GrayImages    bool           // convert loaded page images to grayscale
	ExtendedNames bool           // crop names include all ancestor ids
	RoundPoints   bool           // write integer coordinates
	Images        ImageCodec     // image collaborator (nil = raster.Codec)
	Logger        *logrus.Logger // logger for warnings (nil = logrus.StandardLogger())
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Creator:       "pagexml",
		PageNS:        NamespaceURI,
		Indent:        true,
		ExtendedNames: true,
		Images:        raster.Codec{},
	}
}

func (c Config) logger() *logrus.Logger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}

func (c Config) images() ImageCodec {
	if c.Images == nil {
		return raster.Codec{}
	}
	return c.Images
}

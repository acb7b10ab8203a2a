// pagexml is a command-line tool for creating and editing Page XML layout
// documents.
//
// Documents are created from page images with tesseract or from Google
// Document AI responses, and edited with the subcommands below. Every
// command that changes a document writes it to -o (default stdout).
//
// Usage:
//
//	pagexml [--config pagexml.yml] [--log-level info] <command> [flags]
//
// Commands:
//
//	recognize  Recognize page images with tesseract
//	docai      Recognize a PDF or image with Google Document AI
//	pdf        Build a searchable PDF or add a text layer to an existing one
//	hocr       Export a document as hOCR
//	crop       Write the image of each matched element
//	order      Sort the text lines of every region in reading order
//	resize     Scale the geometry of pages to new image sizes
//	assign     Copy text lines into the regions of another document
//	ids        Check or simplify element ids
//	rotate     Rotate pages or fix their orientation
//
// Configuration:
//
// An optional YAML file holds defaults for every command:
//
//	page:
//	  indent: true
//	  round_points: true
//	recognize:
//	  languages: [eng]
//	  layout_level: word
//	docai:
//	  project_id: "your-gcp-project-id"
//	  location: "us"
//	  processor_id: "your-processor-id"
//
// Variables from a .env file and PAGEXML_* environment variables override the
// file, for example PAGEXML_DOCAI_PROCESSOR_ID or PAGEXML_LANGUAGES=eng,deu.
//
// Example:
//
//	pagexml recognize -o book.xml 'scans/**/*.png'
//	pagexml order book.xml | pagexml pdf - --dpi 300 -o book.pdf
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

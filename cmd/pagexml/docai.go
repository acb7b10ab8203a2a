package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gardar/pagexml/pkg/gdocai"
	"github.com/spf13/cobra"
)

var docaiFlags struct {
	imagesDir string
	jsonPath  string
	textPath  string
}

var docaiCmd = &cobra.Command{
	Use:   "docai <file>",
	Short: "Recognize a PDF or image with Google Document AI",
	Long: `Send a PDF or image to a Document AI OCR processor and write the result as
Page XML. The processor is configured in the docai section of the config file
or with PAGEXML_DOCAI_* variables.

With --images the page images returned by Document AI are written to a
directory and referenced by the document. Otherwise pages refer to the input
file, with a [n] frame suffix for multi-page inputs.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocAI,
}

func init() {
	f := docaiCmd.Flags()
	f.StringVar(&docaiFlags.imagesDir, "images", "", "directory to save the page images returned by Document AI")
	f.StringVar(&docaiFlags.jsonPath, "json", "", "path to save the raw API response as JSON")
	f.StringVar(&docaiFlags.textPath, "text", "", "path to save the document text")
	addOutputFlag(docaiCmd)
	rootCmd.AddCommand(docaiCmd)
}

func runDocAI(cmd *cobra.Command, args []string) error {
	input := args[0]
	if err := cfg.DocAI.Validate(); err != nil {
		return err
	}
	log.WithField("file", input).Info("processing with Document AI")
	doc, err := gdocai.Recognize(cmd.Context(), input, &cfg.DocAI)
	if err != nil {
		return err
	}

	if docaiFlags.jsonPath != "" {
		data, err := doc.ToJSON()
		if err != nil {
			return err
		}
		if err := os.WriteFile(docaiFlags.jsonPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write API response JSON: %w", err)
		}
		log.WithField("file", docaiFlags.jsonPath).Info("API response saved")
	}
	if docaiFlags.textPath != "" {
		if err := os.WriteFile(docaiFlags.textPath, []byte(doc.Text), 0644); err != nil {
			return fmt.Errorf("failed to write text output: %w", err)
		}
	}

	names, err := docaiImageNames(input, doc)
	if err != nil {
		return err
	}
	px, err := gdocai.NewPageXML(doc, cfg.pageXML(), names)
	if err != nil {
		return err
	}
	return writeDocument(px)
}

var imageExts = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/tiff": ".tif",
	"image/gif":  ".gif",
	"image/bmp":  ".bmp",
	"image/webp": ".webp",
}

// docaiImageNames returns the imageFilename of each page, saving the page
// images when --images is set.
func docaiImageNames(input string, doc *gdocai.Document) ([]string, error) {
	names := make([]string, len(doc.Pages))
	if docaiFlags.imagesDir == "" {
		for i := range doc.Pages {
			names[i] = input
			if len(doc.Pages) > 1 {
				names[i] = fmt.Sprintf("%s[%d]", input, i)
			}
		}
		return names, nil
	}

	if err := os.MkdirAll(docaiFlags.imagesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create images directory: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	for i, page := range doc.Pages {
		data, mime, err := gdocai.ExtractImageFromPage(page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page.PageNumber, err)
		}
		ext, ok := imageExts[mime]
		if !ok {
			ext = ".png"
		}
		names[i] = filepath.Join(docaiFlags.imagesDir, fmt.Sprintf("%s_page%d%s", base, page.PageNumber, ext))
		if err := os.WriteFile(names[i], data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write image for page %d: %w", page.PageNumber, err)
		}
		log.WithField("file", names[i]).Debug("page image saved")
	}
	return names, nil
}

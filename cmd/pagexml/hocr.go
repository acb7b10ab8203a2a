package main

import (
	"fmt"
	"os"

	"github.com/gardar/pagexml/pkg/hocr"
	"github.com/spf13/cobra"
)

var hocrTextPath string

var hocrCmd = &cobra.Command{
	Use:   "hocr <document.xml>",
	Short: "Export a document as hOCR",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		px, err := loadDocument(args[0])
		if err != nil {
			return err
		}
		doc, err := hocr.FromPageXML(px)
		if err != nil {
			return err
		}
		html, err := hocr.GenerateHOCRDocument(doc)
		if err != nil {
			return err
		}
		if hocrTextPath != "" {
			if err := os.WriteFile(hocrTextPath, []byte(hocr.ExtractHOCRText(doc)), 0644); err != nil {
				return fmt.Errorf("failed to write text output: %w", err)
			}
		}
		if outPath == "-" {
			_, err = os.Stdout.WriteString(html)
			return err
		}
		return os.WriteFile(outPath, []byte(html), 0644)
	},
}

func init() {
	hocrCmd.Flags().StringVar(&hocrTextPath, "text", "", "path to save the plain text")
	addOutputFlag(hocrCmd)
	rootCmd.AddCommand(hocrCmd)
}

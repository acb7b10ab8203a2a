package main

import (
	"fmt"
	"os"

	"github.com/gardar/pagexml/pkg/pdfocr"
	"github.com/spf13/cobra"
)

var pdfFlags struct {
	input     string
	pages     string
	startPage int
	dpi       float64
	lines     bool
	debug     bool
	force     bool
	overwrite bool
	dumpPDF   bool
}

var pdfCmd = &cobra.Command{
	Use:   "pdf <document.xml>",
	Short: "Build a searchable PDF or add a text layer to an existing one",
	Long: `Write a PDF with an invisible text layer taken from a Page XML document.

Without --pdf a new PDF is assembled from the page images of the document.
With --pdf the text is overlaid on the pages of an existing PDF starting at
--start-page; PDFs that already carry a text layer are refused unless --force.`,
	Example: `  pagexml pdf book.xml --dpi 300 -o book.pdf
  pagexml pdf scan.xml --pdf scan.pdf -o scan_ocr.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runPDF,
}

func init() {
	f := pdfCmd.Flags()
	f.StringVar(&pdfFlags.input, "pdf", "", "existing PDF to add the text layer to")
	f.StringVar(&pdfFlags.pages, "pages", "", "document pages to use, e.g. 1-3,5")
	f.IntVar(&pdfFlags.startPage, "start-page", 1, "first PDF page receiving text")
	f.Float64Var(&pdfFlags.dpi, "dpi", 0, "image resolution, 0 maps one pixel to one point")
	f.BoolVar(&pdfFlags.lines, "lines", false, "place whole lines instead of words")
	f.BoolVar(&pdfFlags.debug, "debug", false, "draw the text layer visibly with its boxes")
	f.BoolVar(&pdfFlags.force, "force", false, "reapply even if the PDF already has a text layer")
	f.BoolVar(&pdfFlags.overwrite, "overwrite", false, "overwrite the output file if it exists")
	f.BoolVar(&pdfFlags.dumpPDF, "dump-pdf", false, "log the input PDF structure at debug level")
	addOutputFlag(pdfCmd)
	rootCmd.AddCommand(pdfCmd)
}

func runPDF(cmd *cobra.Command, args []string) error {
	if outPath != "-" && !pdfFlags.overwrite {
		if _, err := os.Stat(outPath); err == nil {
			return fmt.Errorf("output file %s already exists, use --overwrite to replace it", outPath)
		}
	}
	px, err := loadDocument(args[0])
	if err != nil {
		return err
	}

	oc := cfg.pdf()
	oc.StartPage = pdfFlags.startPage
	oc.Debug = pdfFlags.debug
	oc.Force = pdfFlags.force
	oc.DumpPDF = pdfFlags.dumpPDF
	if cmd.Flags().Changed("dpi") {
		oc.DPI = pdfFlags.dpi
	}
	if cmd.Flags().Changed("lines") {
		oc.Lines = pdfFlags.lines
	}

	var out []byte
	if pdfFlags.input == "" {
		if pdfFlags.force {
			log.Warn("--force only applies with --pdf, ignoring it")
		}
		out, err = pdfocr.AssembleWithOCR(px, pdfFlags.pages, oc)
	} else {
		var in []byte
		if in, err = os.ReadFile(pdfFlags.input); err != nil {
			return fmt.Errorf("failed to read input PDF: %w", err)
		}
		out, err = pdfocr.ApplyOCR(in, px, pdfFlags.pages, oc)
	}
	if err != nil {
		return err
	}

	if outPath == "-" {
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(outPath, out, 0644); err != nil {
		return fmt.Errorf("failed to write output PDF: %w", err)
	}
	log.WithField("file", outPath).Info("searchable PDF written")
	return nil
}

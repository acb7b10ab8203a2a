package main

import (
	"fmt"

	"github.com/gardar/pagexml/pkg/pagexml"
	"github.com/gardar/pagexml/pkg/recognize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var recognizeFlags struct {
	input     string
	langs     []string
	psm       int
	layout    string
	text      string
	pages     string
	fixOrient bool
	replace   bool
}

var recognizeCmd = &cobra.Command{
	Use:   "recognize [images...]",
	Short: "Recognize page images with tesseract",
	Long: `Recognize page images with tesseract and write a Page XML document with one
page per image. With --input the pages of an existing document are recognized
instead, skipping pages that already contain text regions unless --replace.`,
	RunE: runRecognize,
}

func init() {
	f := recognizeCmd.Flags()
	f.StringVar(&recognizeFlags.input, "input", "", "recognize the pages of this Page XML document")
	f.StringSliceVarP(&recognizeFlags.langs, "lang", "l", nil, "tesseract languages")
	f.IntVar(&recognizeFlags.psm, "psm", 0, "tesseract page segmentation mode")
	f.StringVar(&recognizeFlags.layout, "layout-level", "", "deepest layout level: region, line, word or glyph")
	f.StringVar(&recognizeFlags.text, "text-level", "", "deepest level given text")
	f.StringVar(&recognizeFlags.pages, "pages", "", "pages to recognize, e.g. 1-3,5")
	f.BoolVar(&recognizeFlags.fixOrient, "fix-orientation", false, "rotate pages to their dominant baseline orientation")
	f.BoolVar(&recognizeFlags.replace, "replace", false, "recognize pages that already have text regions")
	addOutputFlag(recognizeCmd)
	rootCmd.AddCommand(recognizeCmd)
}

// recognizeConfig merges the flags that were set into the file config.
func recognizeConfig(cmd *cobra.Command) recognize.Config {
	rc := cfg.Recognize
	f := cmd.Flags()
	if f.Changed("lang") {
		rc.Languages = recognizeFlags.langs
	}
	if f.Changed("psm") {
		rc.PSM = recognizeFlags.psm
	}
	if f.Changed("layout-level") {
		rc.Layout = recognizeFlags.layout
	}
	if f.Changed("text-level") {
		rc.Text = recognizeFlags.text
	}
	if f.Changed("pages") {
		rc.Pages = recognizeFlags.pages
	}
	if f.Changed("fix-orientation") {
		rc.FixOrientation = recognizeFlags.fixOrient
	}
	if f.Changed("replace") {
		rc.Replace = recognizeFlags.replace
	}
	return rc
}

func runRecognize(cmd *cobra.Command, args []string) error {
	rc := recognizeConfig(cmd)
	engine := recognize.NewTesseract(rc)
	r, err := recognize.New(engine, rc)
	if err != nil {
		return err
	}
	r.Logger = log
	log.WithFields(logrus.Fields{
		"engine": engine.Name(),
		"layout": r.Layout,
		"text":   r.Text,
	}).Info("recognizing")

	var px *pagexml.PageXML
	switch {
	case recognizeFlags.input != "" && len(args) > 0:
		return fmt.Errorf("give either images or --input, not both")
	case recognizeFlags.input != "":
		if px, err = loadDocument(recognizeFlags.input); err != nil {
			return err
		}
		n, err := r.Recognize(cmd.Context(), px)
		if err != nil {
			return err
		}
		log.WithField("regions", n).Info("recognition done")
	default:
		images, err := expandInputs(args)
		if err != nil {
			return err
		}
		if len(images) == 0 {
			return fmt.Errorf("no images given")
		}
		if px, err = r.RecognizeImages(cmd.Context(), images, cfg.pageXML()); err != nil {
			return err
		}
	}
	return writeDocument(px)
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gardar/pagexml/pkg/pagexml"
	"github.com/gardar/pagexml/pkg/raster"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var cropFlags struct {
	query  string
	outDir string
	format string
	margin float64
	opaque bool
	transp string
	base   string
	index  string
	resize bool
	noSize bool
	xmlOut string
}

var cropCmd = &cobra.Command{
	Use:   "crop <document.xml>",
	Short: "Write the image of each matched element",
	Long: `Crop the page image to the bounding box of every Coords element matched by
--query and write it as <image>.<ids>.<format>. The query uses the _ prefix for
the Page namespace.`,
	Example: `  pagexml crop book.xml --out-dir lines
  pagexml crop book.xml --query '//_:TextRegion/_:Coords' --opaque --margin 0.05
  pagexml crop book.xml --resize-coords --xml-out book.resized.xml`,
	Args: cobra.ExactArgs(1),
	RunE: runCrop,
}

func init() {
	f := cropCmd.Flags()
	f.StringVar(&cropFlags.query, "query", "//_:TextLine/_:Coords", "query selecting Coords elements")
	f.StringVar(&cropFlags.outDir, "out-dir", ".", "directory for the crops")
	f.StringVar(&cropFlags.format, "format", "png", "image format: png, jpg, tif or bmp")
	f.Float64Var(&cropFlags.margin, "margin", 0, "margin in pixels, or a fraction of the larger side when below 1")
	f.BoolVar(&cropFlags.opaque, "opaque", false, "make pixels outside the polygon transparent")
	f.StringVar(&cropFlags.transp, "transp-query", "", "query relative to each Coords for half transparent polygons")
	f.StringVar(&cropFlags.base, "base-query", "", "element at which crop names are rooted")
	f.StringVar(&cropFlags.index, "index", "", "write a TSV with name, offset, rotation and direction of each crop")
	f.BoolVar(&cropFlags.resize, "resize-coords", false, "rescale coordinates when the image size differs from the page size")
	f.BoolVar(&cropFlags.noSize, "skip-size-check", false, "do not compare image and page sizes")
	f.StringVar(&cropFlags.xmlOut, "xml-out", "", "write the document after --resize-coords rescaled it")
	rootCmd.AddCommand(cropCmd)
}

func runCrop(cmd *cobra.Command, args []string) error {
	px, err := loadDocument(args[0])
	if err != nil {
		return err
	}
	opts := pagexml.CropOptions{
		OpaqueCoords: cropFlags.opaque,
		TranspQuery:  cropFlags.transp,
		BaseQuery:    cropFlags.base,
	}
	if cropFlags.margin > 0 {
		opts.Margin = pagexml.UniformMargin(cropFlags.margin)
	}
	if cropFlags.resize || cropFlags.noSize {
		opts.Load = &pagexml.LoadOptions{ResizeCoords: cropFlags.resize, SkipSizeCheck: cropFlags.noSize}
	}
	crops, err := px.Crop(cropFlags.query, opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cropFlags.outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var index *os.File
	if cropFlags.index != "" {
		if index, err = os.Create(cropFlags.index); err != nil {
			return err
		}
		defer index.Close()
	}
	for _, c := range crops {
		path := filepath.Join(cropFlags.outDir, c.Name+"."+cropFlags.format)
		if err := raster.Save(path, c.Image); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"id": c.ID, "file": path, "rotation": c.Rotation}).Debug("crop written")
		if index != nil {
			fmt.Fprintf(index, "%s\t%d\t%d\t%.2f\t%s\n", c.Name, c.X, c.Y, c.Rotation, c.Direction)
		}
	}
	log.WithField("crops", len(crops)).Info("crops written")
	if cropFlags.xmlOut != "" {
		outPath = cropFlags.xmlOut
		return writeDocument(px)
	}
	return nil
}

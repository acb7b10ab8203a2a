package main

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/gardar/pagexml/pkg/pagexml"
	"github.com/gardar/pagexml/pkg/raster"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var orderCmd = &cobra.Command{
	Use:   "order <document.xml>",
	Short: "Sort the text lines of every region in reading order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fake, _ := cmd.Flags().GetBool("fake-baseline")
		lc := cfg.layout()
		lc.FakeBaseline = lc.FakeBaseline || fake
		return editDocument(cmd, args[0], func(px *pagexml.PageXML) error {
			regions, err := px.Select("//_:TextRegion[_:TextLine]", nil)
			if err != nil {
				return err
			}
			for _, r := range regions {
				if err := px.SortTextLines(r, lc); err != nil {
					return err
				}
			}
			log.WithField("regions", len(regions)).Info("text lines sorted")
			return nil
		})
	},
}

var resizeCmd = &cobra.Command{
	Use:   "resize <document.xml>",
	Short: "Scale the geometry of pages to new image sizes",
	Long: `Scale all coordinates of the pages to new sizes, given with --size WxH once per
page, or read from the current page image files with --from-images.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		specs, _ := cmd.Flags().GetStringSlice("size")
		fromImages, _ := cmd.Flags().GetBool("from-images")
		noCheck, _ := cmd.Flags().GetBool("no-aspect-check")
		return editDocument(cmd, args[0], func(px *pagexml.PageXML) error {
			var sizes []image.Point
			switch {
			case fromImages:
				for i := range px.Pages() {
					w, h, err := raster.DecodeConfig(px.PageImageFilename(i))
					if err != nil {
						return err
					}
					sizes = append(sizes, image.Pt(w, h))
				}
			case len(specs) > 0:
				for _, s := range specs {
					pt, err := parseSize(s)
					if err != nil {
						return err
					}
					sizes = append(sizes, pt)
				}
			default:
				return fmt.Errorf("give --size or --from-images")
			}
			n, err := px.Resize(sizes, nil, !noCheck)
			if err != nil {
				return err
			}
			log.WithField("pages", n).Info("pages resized")
			return nil
		})
	},
}

// parseSize parses WxH.
func parseSize(s string) (image.Point, error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if ok {
		x, errX := strconv.Atoi(w)
		y, errY := strconv.Atoi(h)
		if errX == nil && errY == nil {
			return image.Pt(x, y), nil
		}
	}
	return image.Point{}, fmt.Errorf("invalid size %q, expected WxH", s)
}

var assignCmd = &cobra.Command{
	Use:   "assign <document.xml> <lines.xml>",
	Short: "Copy text lines into the regions of another document",
	Long: `Copy every TextLine of lines.xml into the TextRegion of document.xml it
overlaps best. Policies: iou, coords_iwa, baseline_iwa, baseline_coords_iwa.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("policy")
		fact, _ := cmd.Flags().GetFloat64("fact")
		policy, ok := pagexml.ParseOverlapPolicy(name)
		if !ok {
			return fmt.Errorf("unknown overlap policy %q", name)
		}
		from, err := loadDocument(args[1])
		if err != nil {
			return err
		}
		return editDocument(cmd, args[0], func(px *pagexml.PageXML) error {
			n, err := px.CopyTextLinesAssignByOverlap(from, policy, fact)
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{"lines": n, "policy": name}).Info("text lines assigned")
			return nil
		})
	},
}

var idsCmd = &cobra.Command{
	Use:   "ids <document.xml>",
	Short: "Check or simplify element ids",
	Long: `Report duplicate ids. With --simplify the page image base name is stripped
from region and line ids, keeping the old id in orig-id.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		simplify, _ := cmd.Flags().GetBool("simplify")
		if !simplify {
			px, err := loadDocument(args[0])
			if err != nil {
				return err
			}
			if !px.AreIDsUnique() {
				return fmt.Errorf("document has duplicate ids")
			}
			log.Info("all ids are unique")
			return nil
		}
		return editDocument(cmd, args[0], func(px *pagexml.PageXML) error {
			n, err := px.SimplifyIDs()
			if err != nil {
				return err
			}
			log.WithField("changed", n).Info("ids simplified")
			if !px.AreIDsUnique() {
				return fmt.Errorf("simplified ids are not unique")
			}
			return nil
		})
	},
}

var rotateCmd = &cobra.Command{
	Use:   "rotate <document.xml>",
	Short: "Rotate pages or fix their orientation",
	Long: `Rotate the geometry of pages by --angle (90, 180 or -90, counter-clockwise),
turn each page to its dominant baseline orientation with --fix, or apply
pending image orientations with --apply-orientation.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		angle, _ := f.GetInt("angle")
		pages, _ := f.GetString("pages")
		fix, _ := f.GetBool("fix")
		apply, _ := f.GetBool("apply-orientation")
		if !f.Changed("angle") && !fix && !apply {
			return fmt.Errorf("give --angle, --fix or --apply-orientation")
		}
		return editDocument(cmd, args[0], func(px *pagexml.PageXML) error {
			if apply {
				n, err := px.ApplyImageOrientation()
				if err != nil {
					return err
				}
				log.WithField("pages", n).Info("image orientations applied")
			}
			all := px.Pages()
			sel, err := pagexml.ParsePageSet(pages, len(all))
			if err != nil {
				return err
			}
			for _, i := range sel {
				page := all[i]
				if fix {
					a, err := px.FixPageOrientation(page)
					if err != nil {
						return err
					}
					log.WithFields(logrus.Fields{"page": i + 1, "angle": a}).Info("orientation fixed")
					continue
				}
				if err := px.RotatePage(angle, page, true); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

func init() {
	orderCmd.Flags().Bool("fake-baseline", false, "use the bottom of Coords for lines without a baseline")
	resizeCmd.Flags().StringSlice("size", nil, "new page size WxH, once per page")
	resizeCmd.Flags().Bool("from-images", false, "take the sizes from the page image files")
	resizeCmd.Flags().Bool("no-aspect-check", false, "allow aspect ratio changes above 1%")
	assignCmd.Flags().String("policy", "coords_iwa", "overlap policy")
	assignCmd.Flags().Float64("fact", 0.5, "baseline weight of baseline_coords_iwa")
	idsCmd.Flags().Bool("simplify", false, "strip the image base name from ids")
	rotateCmd.Flags().Int("angle", 0, "rotation in degrees: 90, 180 or -90")
	rotateCmd.Flags().String("pages", "", "pages to rotate, e.g. 1-3,5")
	rotateCmd.Flags().Bool("fix", false, "rotate to the dominant baseline orientation")
	rotateCmd.Flags().Bool("apply-orientation", false, "apply pending image orientations")

	for _, c := range []*cobra.Command{orderCmd, resizeCmd, assignCmd, idsCmd, rotateCmd} {
		addOutputFlag(c)
		rootCmd.AddCommand(c)
	}
}

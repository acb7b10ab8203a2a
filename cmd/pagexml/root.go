package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar"
	"github.com/gardar/pagexml/pkg/pagexml"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	log = logrus.New()
	cfg = defaultFileConfig()

	configPath string
	envPath    string
	logLevel   string
	outPath    string
)

var rootCmd = &cobra.Command{
	Use:           "pagexml",
	Short:         "Create and edit Page XML layout documents",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		log.SetLevel(level)
		log.SetOutput(os.Stderr)

		if err := godotenv.Load(envPath); err != nil {
			if cmd.Flags().Changed("env") {
				return fmt.Errorf("failed to load %s: %w", envPath, err)
			}
			log.WithField("file", envPath).Debug("no env file loaded")
		}
		if cfg, err = loadConfig(configPath); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return applyEnv(&cfg)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML configuration file")
	pf.StringVar(&envPath, "env", ".env", "file with environment variables")
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

// addOutputFlag registers -o on commands that write a document.
func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outPath, "output", "o", "-", "output file, - for stdout")
}

// expandInputs resolves glob patterns, ** included. A pattern without
// matches is an error.
func expandInputs(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", pattern)
		}
		sort.Strings(matches)
		log.WithFields(logrus.Fields{"pattern": pattern, "matches": len(matches)}).Debug("expanded input")
		files = append(files, matches...)
	}
	return files, nil
}

// loadDocument reads a Page XML file, - meaning stdin.
func loadDocument(path string) (*pagexml.PageXML, error) {
	if path != "-" {
		return pagexml.Load(path, cfg.pageXML())
	}
	px := pagexml.New(cfg.pageXML())
	if err := px.LoadXMLReader(os.Stdin); err != nil {
		return nil, err
	}
	return px, nil
}

// writeDocument writes px to outPath with image paths relative to it.
func writeDocument(px *pagexml.PageXML) error {
	if outPath != "-" {
		if err := px.RelativizeImageFilename(outPath); err != nil {
			return err
		}
	}
	if err := px.Write(outPath); err != nil {
		return err
	}
	if outPath != "-" {
		log.WithField("file", outPath).Info("document written")
	}
	return nil
}

// editDocument loads path, runs fn inside a Process record named after cmd
// and writes the result.
func editDocument(cmd *cobra.Command, path string, fn func(px *pagexml.PageXML) error) error {
	px, err := loadDocument(path)
	if err != nil {
		return err
	}
	if _, err := px.ProcessStart("pagexml "+cmd.Name(), ""); err != nil {
		return err
	}
	if err := fn(px); err != nil {
		return err
	}
	if err := px.ProcessEnd(); err != nil {
		return err
	}
	return writeDocument(px)
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud/scale"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/source"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/config"
)

// cloudFlags are shared by generate and top.
type cloudFlags struct {
	words     int
	minWeight int
	maxWeight int
	format    string
	charset   string
	normalize bool
}

func (f *cloudFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.words, "words", "n", 0, "Number of words in the cloud (default from config)")
	cmd.Flags().IntVar(&f.minWeight, "min-weight", 0, "Smallest font size (default from config)")
	cmd.Flags().IntVar(&f.maxWeight, "max-weight", 0, "Largest font size (default from config)")
	cmd.Flags().StringVar(&f.format, "format", "", "Input format: text or html (default from file extension)")
	cmd.Flags().StringVar(&f.charset, "charset", "", "Input character set, e.g. iso-8859-1")
	cmd.Flags().BoolVar(&f.normalize, "normalize", false, "Apply Unicode NFC normalization")
}

func (f *cloudFlags) options(cfg *config.Config) (cloud.Options, error) {
	opts := cloud.Options{
		Words:   cfg.Cloud.DefaultWords,
		Weights: scale.Range{Min: cfg.Cloud.MinWeight, Max: cfg.Cloud.MaxWeight},
	}
	if f.words != 0 {
		opts.Words = f.words
	}
	if f.minWeight != 0 {
		opts.Weights.Min = f.minWeight
	}
	if f.maxWeight != 0 {
		opts.Weights.Max = f.maxWeight
	}
	return opts, opts.Validate()
}

func (f *cloudFlags) input(path string) (source.Options, error) {
	format := source.DetectFormat("", path)
	if f.format != "" {
		parsed, err := source.ParseFormat(f.format)
		if err != nil {
			return source.Options{}, err
		}
		format = parsed
	}
	return source.Options{Format: format, Charset: f.charset, Normalize: f.normalize}, nil
}

// readDocument loads path, refusing documents above the configured limit.
func readDocument(path string, limit int64) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening input file: %w", err)
	}
	if info.Size() > limit {
		return nil, fmt.Errorf("input file %s is %d bytes, limit is %d", path, info.Size(), limit)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading input file: %w", err)
	}
	return data, nil
}

// documentName turns "data/alice.txt" into "alice".
func documentName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

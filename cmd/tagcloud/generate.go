package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/jobs"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/render"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/store"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/config"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var flags cloudFlags
	var outDir string
	var noHistory bool

	cmd := &cobra.Command{
		Use:   "generate <input-file>",
		Short: "Write NAME.html and NAME.css for the input file into a new directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts, err := flags.options(cfg)
			if err != nil {
				return err
			}
			in, err := flags.input(args[0])
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = filepath.Join("output", documentName(args[0]))
			}

			req := jobs.Request{Source: documentName(args[0]), Input: in, Options: opts}
			result, htmlPath, err := generateInto(cmd.Context(), cfg, args[0], outDir, req)
			if err != nil {
				return err
			}

			if result.Clamped {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d exceeds number of unique words in file.\n", result.Requested)
				fmt.Fprintf(cmd.ErrOrStderr(), "Continuing using %d as cloud size.\n", result.Size)
			}
			if !noHistory {
				recordHistory(cmd.Context(), cfg, req, result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Finished writing to %s\n", htmlPath)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "Output directory; must not exist (default output/NAME)")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record the cloud in the local history")

	return cmd
}

// generateInto creates outDir, which must not exist, and writes the page and
// stylesheet into it. The directory is removed again if anything fails.
func generateInto(ctx context.Context, cfg *config.Config, inputPath, outDir string, req jobs.Request) (result *cloud.Cloud, htmlPath string, err error) {
	doc, err := readDocument(inputPath, cfg.Cloud.MaxDocumentBytes)
	if err != nil {
		return nil, "", err
	}
	req.Document = doc

	if _, statErr := os.Stat(outDir); statErr == nil {
		return nil, "", fmt.Errorf("output directory %q already exists", outDir)
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("checking output directory: %w", statErr)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("creating output directory: %w", err)
	}
	defer func() {
		if err != nil {
			if rmErr := os.RemoveAll(outDir); rmErr != nil {
				slog.Warn("failed to remove output directory", "dir", outDir, "error", rmErr)
			}
		}
	}()

	result, _, err = jobs.NewBuilder(cloud.NewEngine(), nil, cfg.Cloud.BuildTimeout).Build(ctx, req)
	if err != nil {
		return nil, "", err
	}

	htmlPath = filepath.Join(outDir, req.Source+".html")
	cssPath := filepath.Join(outDir, req.Source+".css")
	if err := writeFile(htmlPath, func(w io.Writer) error {
		return render.HTML(w, render.Page{Name: req.Source, Entries: result.Entries})
	}); err != nil {
		return nil, "", err
	}
	if err := writeFile(cssPath, func(w io.Writer) error {
		return render.CSS(w, result.Weights)
	}); err != nil {
		return nil, "", err
	}
	return result, htmlPath, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

// recordHistory stores the cloud in the local SQLite history. Failures are
// logged; the files are already written.
func recordHistory(ctx context.Context, cfg *config.Config, req jobs.Request, result *cloud.Cloud) {
	s, err := store.OpenSQLite(ctx, cfg.Store.SQLitePath)
	if err != nil {
		slog.Warn("history unavailable", "path", cfg.Store.SQLitePath, "error", err)
		return
	}
	defer s.Close()

	rec := store.NewRecord(req.Source, req.Options)
	rec.Complete(result)
	if err := s.Put(ctx, rec); err != nil {
		slog.Warn("recording history failed", "error", err)
	}
}

package main

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud/scale"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/jobs"
)

func newTopCommand(ctx *commandContext) *cobra.Command {
	var flags cloudFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "top <input-file>",
		Short: "Print the most frequent words of the input file with their weights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if flags.words == 0 {
				flags.words = 10
			}
			opts, err := flags.options(cfg)
			if err != nil {
				return err
			}
			in, err := flags.input(args[0])
			if err != nil {
				return err
			}
			doc, err := readDocument(args[0], cfg.Cloud.MaxDocumentBytes)
			if err != nil {
				return err
			}

			result, _, err := jobs.NewBuilder(cloud.NewEngine(), nil, cfg.Cloud.BuildTimeout).Build(cmd.Context(), jobs.Request{
				Source:   documentName(args[0]),
				Document: doc,
				Input:    in,
				Options:  opts,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"#", "Word", "Count", "Weight"},
				topRows(result.Entries),
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight},
			))
			fmt.Fprintf(out, "%d unique words, %d total", result.UniqueWords, result.TotalWords)
			if result.Clamped {
				fmt.Fprintf(out, " (requested %d)", result.Requested)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the cloud as JSON")
	return cmd
}

// topRows orders the cloud by decreasing count, ties alphabetical.
func topRows(entries []scale.Weighted) [][]string {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b scale.Weighted) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), cmp.Compare(a.Word, b.Word))
	})
	rows := make([][]string, 0, len(sorted))
	for i, e := range sorted {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			e.Word,
			strconv.Itoa(e.Count),
			strconv.Itoa(e.Weight),
		})
	}
	return rows
}

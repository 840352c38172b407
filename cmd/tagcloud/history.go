package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/store"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List clouds generated on this machine, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			s, err := store.OpenSQLite(cmd.Context(), cfg.Store.SQLitePath)
			if err != nil {
				return err
			}
			defer s.Close()

			recs, err := s.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintln(out, "No clouds recorded yet.")
				return nil
			}
			const stampLayout = "2006-01-02 15:04"
			rows := make([][]string, 0, len(recs))
			for _, r := range recs {
				rows = append(rows, []string{
					shortID(r.ID),
					r.Source,
					string(r.Status),
					strconv.Itoa(r.Size),
					strconv.Itoa(r.TotalWords),
					fmt.Sprintf("%d-%d", r.MinWeight, r.MaxWeight),
					r.CreatedAt.Local().Format(stampLayout),
				})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"ID", "Source", "Status", "Words", "Total", "Weights", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of clouds to list")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

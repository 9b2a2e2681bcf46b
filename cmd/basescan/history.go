package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"basescan/internal/market"
	"basescan/internal/report"
	"basescan/internal/store"
)

func newHistoryCmd() *cobra.Command {
	var runID, format string
	var list, buyableOnly bool
	var top int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded scan snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			if !a.cfg.Store.Enabled {
				return fmt.Errorf("snapshot store is disabled in config")
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			ctx := context.Background()

			if list {
				runs, err := st.Runs(ctx, top)
				if err != nil {
					return err
				}
				if format == "json" {
					return report.WriteJSON(os.Stdout, runs)
				}
				table := tablewriter.NewTable(os.Stdout,
					tablewriter.WithHeader([]string{"Run", "Session", "Started", "Scanned", "OK", "Failed", "Forming", "Buyable"}),
				)
				for _, r := range runs {
					table.Append([]string{
						r.ID,
						market.SessionDate(r.StartedAt).Format("2006-01-02"),
						r.StartedAt.In(market.ETLocation()).Format("15:04:05 MST"),
						fmt.Sprintf("%d", r.Scanned),
						fmt.Sprintf("%d", r.Successful),
						fmt.Sprintf("%d", r.Failed),
						fmt.Sprintf("%d", r.Forming),
						fmt.Sprintf("%d", r.Buyable),
					})
				}
				table.Render()
				return nil
			}

			if runID == "" {
				run, err := st.LatestRun(ctx)
				if errors.Is(err, store.ErrNoRuns) {
					fmt.Println("No scans recorded yet.")
					return nil
				}
				if err != nil {
					return err
				}
				runID = run.ID
			}
			rows, err := st.RowsForRun(ctx, runID)
			if err != nil {
				return err
			}
			if buyableOnly {
				kept := rows[:0]
				for _, r := range rows {
					if r.Buyable {
						kept = append(kept, r)
					}
				}
				rows = kept
			}
			if format == "json" {
				return report.WriteJSON(os.Stdout, rows)
			}
			fmt.Printf("Run %s: %d rows\n\n", runID, len(rows))
			return report.WriteTable(os.Stdout, rows, top)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&runID, "run", "", "run ID to show (default: latest)")
	fl.BoolVar(&list, "list", false, "list recorded runs instead of rows")
	fl.BoolVar(&buyableOnly, "buyable", false, "only show buyable rows")
	fl.IntVar(&top, "top", 25, "maximum rows or runs to show (0 for all)")
	fl.StringVar(&format, "format", "table", "output format: table, json")
	return cmd
}

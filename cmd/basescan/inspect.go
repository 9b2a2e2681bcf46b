package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"basescan/internal/liquidity"
	"basescan/internal/position"
	"basescan/internal/report"
	"basescan/internal/scanner"
	"basescan/internal/sepa"
	"basescan/internal/symbols"
	"basescan/pkg/model"
)

func newDiagnoseCmd() *cobra.Command {
	var format string
	var rejected bool
	cmd := &cobra.Command{
		Use:   "diagnose SYMBOL",
		Short: "Show pivots, candidate bases and why each was accepted or rejected",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			stock, err := singleStock(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			s := scanner.NewScanner(a.provider, a.scanOptions(), a.logger)
			d, err := s.Diagnose(ctx, stock)
			if err != nil {
				return fmt.Errorf("diagnosing %s: %w", stock.Symbol, err)
			}
			if format == "json" {
				return report.WriteJSON(os.Stdout, d)
			}
			printDiagnosis(os.Stdout, d, a.scanOptions().Params, rejected)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, json")
	cmd.Flags().BoolVar(&rejected, "rejected", true, "include rejected candidates in the trace table")
	return cmd
}

func singleStock(arg string) (model.Stock, error) {
	stocks := symbols.FromSymbols([]string{arg})
	if len(stocks) == 0 {
		return model.Stock{}, fmt.Errorf("invalid symbol %q", arg)
	}
	return stocks[0], nil
}

func printDiagnosis(w io.Writer, d *scanner.Diagnosis, p sepa.Params, rejected bool) {
	fmt.Fprintf(w, "[%s] %s\n", d.Stock.Symbol, d.Stock.Name)
	fmt.Fprintf(w, "  Daily bars: %d | Weekly bars: %d\n", d.DailyBars, len(d.Weekly))
	if d.DailyBars < p.MinDailyBars {
		fmt.Fprintf(w, "  Not enough history for base detection (need %d daily bars)\n", p.MinDailyBars)
	}

	fmt.Fprintf(w, "  Pivot highs: %s\n", weekDates(d.Weekly, d.PivotHighs))
	fmt.Fprintf(w, "  Pivot lows:  %s\n", weekDates(d.Weekly, d.PivotLows))

	if pv := d.Pivot; pv.Forming {
		fmt.Fprintf(w, "  Pivot forming: %d days, range %.2f%%, high %.2f, tight closes %v (%s to %s)\n",
			pv.Days, pv.RangePct, pv.PivotHigh, pv.TightCloses, model.DateKey(pv.StartDate), model.DateKey(pv.EndDate))
	} else {
		fmt.Fprintln(w, "  Pivot forming: no")
	}

	fmt.Fprintln(w, "\n--- Candidates ---")
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Source", "Hi", "End", "Start", "Weeks", "Depth", "Uptrend", "Lows", "Handle", "Result"}),
	)
	for _, ev := range d.Trace {
		if !ev.Accepted && !rejected {
			continue
		}
		uptrend := fmt.Sprintf("%v", ev.Uptrend)
		if ev.UptrendRetry {
			uptrend += " (retry)"
		}
		outcome := string(ev.BaseType)
		if !ev.Accepted {
			outcome = "rejected: " + ev.Reason
		}
		table.Append([]string{
			string(ev.Source),
			fmt.Sprintf("%d", ev.Hi),
			fmt.Sprintf("%d", ev.End),
			model.DateKey(ev.StartDate),
			fmt.Sprintf("%d", ev.DurationWeeks),
			fmt.Sprintf("%.1f%%", ev.DepthPct),
			uptrend,
			fmt.Sprintf("%d", ev.LowsInSegment),
			fmt.Sprintf("%v", ev.HasHandle),
			outcome,
		})
	}
	table.Render()

	fmt.Fprintln(w, "\n--- Bases ---")
	if len(d.Bases) == 0 {
		fmt.Fprintln(w, "  none")
	} else {
		bt := tablewriter.NewTable(w,
			tablewriter.WithHeader([]string{"Type", "Start", "End", "Weeks", "Depth", "Resist", "Buy Point", "Dist", "VCP", "Current"}),
		)
		for _, b := range d.Bases {
			buy := "-"
			if b.BuyPointDate != nil {
				buy = model.DateKey(*b.BuyPointDate)
			}
			bt.Append([]string{
				string(b.Type),
				model.DateKey(b.StartDate),
				model.DateKey(b.EndDate),
				fmt.Sprintf("%d", b.DurationWeeks),
				fmt.Sprintf("%.1f%%", b.DepthPct),
				fmt.Sprintf("%.2f", b.Resistance),
				buy,
				fmt.Sprintf("%.2f%%", b.DistancePct),
				fmt.Sprintf("%v", b.VCPLike),
				fmt.Sprintf("%v", b.IsCurrent),
			})
		}
		bt.Render()
	}

	if d.InBase != nil {
		fmt.Fprintf(w, "\nPivot is inside the %s starting %s\n", d.InBase.Type, model.DateKey(d.InBase.StartDate))
	}
	if d.Template != nil {
		fmt.Fprintf(w, "\nTrend template: %d/8\n", d.Template.Score)
		for _, c := range d.Template.Criteria {
			mark := "✗"
			if c.Pass {
				mark = "✓"
			}
			fmt.Fprintf(w, "  %s %s  %s\n", mark, c.Name, c.Detail)
		}
	}
	fmt.Fprintf(w, "\nQuality score: %.2f | Buyable: %v\n", d.Row.QualityScore, d.Row.Buyable)
}

func weekDates(weekly []model.Candle, idx []int) string {
	if len(idx) == 0 {
		return "-"
	}
	// Only the most recent pivots are useful on a terminal.
	if len(idx) > 8 {
		idx = idx[len(idx)-8:]
	}
	parts := make([]string, len(idx))
	for i, k := range idx {
		parts[i] = fmt.Sprintf("%s (%.2f)", model.DateKey(weekly[k].Time), weekly[k].Close)
	}
	return strings.Join(parts, ", ")
}

func newSizeCmd() *cobra.Command {
	var entry, stop, balance, risk float64
	var format string
	cmd := &cobra.Command{
		Use:   "size SYMBOL",
		Short: "Size a breakout entry by account risk, capped by liquidity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			stock, err := singleStock(args[0])
			if err != nil {
				return err
			}
			if balance <= 0 {
				balance = a.cfg.Sizing.AccountBalance
			}
			if risk <= 0 {
				risk = a.cfg.Sizing.RiskPerTrade
			}

			ctx, cancel := signalContext()
			defer cancel()

			s := scanner.NewScanner(a.provider, a.scanOptions(), a.logger)
			d, err := s.Diagnose(ctx, stock)
			if err != nil {
				return fmt.Errorf("fetching %s: %w", stock.Symbol, err)
			}
			bars, err := a.provider.GetDailyCandles(ctx, stock.Symbol, a.cfg.Data.HistoryDays())
			if err != nil || len(bars) == 0 {
				return fmt.Errorf("no price history for %s", stock.Symbol)
			}
			latest := bars[len(bars)-1].Close

			entryType := "limit"
			if entry <= 0 {
				entry, entryType = position.SuggestEntry(d.Row.Resistance, latest)
			}
			if stop <= 0 {
				stop = entry * (1 - a.cfg.Sizing.StopPct)
			}

			var limit *liquidity.MaxPurchaseResult
			if mp, ok := liquidity.MaxPurchase(bars, a.cfg.Liquidity); ok {
				limit = &mp
			}

			sizer := position.NewPositionSizer(balance)
			sizer.RiskPerTrade = risk
			guide, err := sizer.CalculateGuide(entry, stop, limit)
			if err != nil {
				return err
			}
			guide.EntryType = entryType
			assessment := position.AssessRisk(guide)

			if format == "json" {
				return report.WriteJSON(os.Stdout, map[string]any{
					"symbol":    stock.Symbol,
					"row":       d.Row,
					"guide":     guide,
					"risk":      assessment,
					"liquidity": liquidity.ComputeMetrics(bars),
				})
			}
			printGuide(os.Stdout, stock, latest, guide, assessment)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.Float64Var(&entry, "entry", 0, "entry price (default: base resistance, else latest close)")
	fl.Float64Var(&stop, "stop", 0, "stop price (default: entry less sizing.stop_pct)")
	fl.Float64Var(&balance, "balance", 0, "account balance (default from config)")
	fl.Float64Var(&risk, "risk", 0, "fraction of the account to risk, e.g. 0.01 (default from config)")
	fl.StringVar(&format, "format", "table", "output format: table, json")
	return cmd
}

func printGuide(w io.Writer, stock model.Stock, latest float64, g *position.TradeGuide, r *position.RiskAssessment) {
	fmt.Fprintf(w, "[%s] %s  last close %.2f\n\n", stock.Symbol, stock.Name, latest)

	table := tablewriter.NewTable(w, tablewriter.WithHeader([]string{"Item", "Value"}))
	table.Append([]string{"Entry", fmt.Sprintf("%.2f (%s)", g.EntryPrice, g.EntryType)})
	table.Append([]string{"Stop", fmt.Sprintf("%.2f (-%.2f%%)", g.StopLoss, g.StopLossPct)})
	table.Append([]string{"Risk / share", fmt.Sprintf("%.2f", g.RiskPerShare)})
	table.Append([]string{"Targets 1R/2R/3R", fmt.Sprintf("%.2f / %.2f / %.2f", g.Target1, g.Target2, g.Target3)})
	shares := fmt.Sprintf("%d", g.PositionSize)
	if g.LiquidityCapped {
		shares += fmt.Sprintf(" (capped from %d by liquidity)", g.RiskShares)
	}
	table.Append([]string{"Shares", shares})
	table.Append([]string{"Invest", fmt.Sprintf("%.2f", g.InvestAmount)})
	table.Append([]string{"Risk", fmt.Sprintf("%.2f (%.2f%% of account)", g.RiskAmount, g.MaxLossPct)})
	if g.DaysToExit != nil {
		table.Append([]string{"Days to exit", fmt.Sprintf("%.2f", *g.DaysToExit)})
	}
	table.Render()

	fmt.Fprintf(w, "\nRisk: %s (%d) %s\n", r.Level, r.Score, r.Description)
}

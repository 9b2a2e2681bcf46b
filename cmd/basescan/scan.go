package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"basescan/internal/market"
	"basescan/internal/report"
	"basescan/internal/scanner"
	"basescan/internal/store"
	"basescan/internal/symbols"
	"basescan/pkg/model"
)

type scanFlags struct {
	symbolList    string
	symbolsFile   string
	universe      string
	outDir        string
	distancePct   float64
	minTrendScore int
	requireRS     bool
	noLeadership  bool
	workers       int
	top           int
	format        string
	asJSON        bool
	noStore       bool
}

func (f *scanFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.symbolList, "symbols", "", "comma-separated list of symbols to scan")
	fl.StringVar(&f.symbolsFile, "file", "data/symbols.csv", "symbol list file (.csv with symbol,name columns or one symbol per line)")
	fl.StringVar(&f.universe, "universe", "nasdaq100", "built-in universe when the file is missing or empty: test, nasdaq100, sp500")
	fl.StringVar(&f.outDir, "out", "", "report output directory (default from config)")
	fl.Float64Var(&f.distancePct, "distance-pct", scanner.DefaultDistanceMax, "max distance below resistance for buyable, in percent")
	fl.IntVar(&f.minTrendScore, "min-trend-score", 0, "minimum trend template score for buyable (0 disables)")
	fl.BoolVar(&f.requireRS, "require-rs", false, "require RS ratio >= 1 for buyable")
	fl.BoolVar(&f.noLeadership, "no-leadership", false, "skip trend template and relative strength (faster)")
	fl.IntVar(&f.workers, "workers", 0, "number of parallel workers (default from config)")
	fl.IntVar(&f.top, "top", 0, "rows shown in the table (default from config)")
	fl.StringVar(&f.format, "format", "table", "output format: table, json")
	fl.BoolVar(&f.asJSON, "json", false, "print rows as JSON (same as --format json)")
	fl.BoolVar(&f.noStore, "no-store", false, "do not record the run in the snapshot store")
}

// apply overrides config values with flags the user set.
func (f *scanFlags) apply(cmd *cobra.Command, a *app) {
	c := a.cfg
	if f.asJSON {
		f.format = "json"
	}
	if f.outDir != "" {
		c.Report.OutputDir = f.outDir
	}
	if cmd.Flags().Changed("distance-pct") {
		c.Buyable.DistanceMax = f.distancePct
	}
	if cmd.Flags().Changed("min-trend-score") {
		if f.minTrendScore > 0 {
			score := f.minTrendScore
			c.Buyable.MinTrendScore = &score
		} else {
			c.Buyable.MinTrendScore = nil
		}
	}
	if f.requireRS {
		c.Buyable.RequireRS = true
	}
	if f.noLeadership {
		c.Scanner.IncludeLeadership = false
	}
	if f.workers > 0 {
		c.Scanner.Workers = f.workers
	}
	if f.top > 0 {
		c.Report.Top = f.top
	}
	if f.noStore {
		c.Store.Enabled = false
	}
}

func (f *scanFlags) stocks() ([]model.Stock, error) {
	u, err := symbols.ParseUniverse(f.universe)
	if err != nil {
		return nil, err
	}
	var explicit []string
	if f.symbolList != "" {
		explicit = strings.Split(f.symbolList, ",")
	}
	return symbols.Resolve(explicit, f.symbolsFile, u)
}

func newScanCmd() *cobra.Command {
	var f scanFlags
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan symbols for forming pivots inside bases and write the reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			f.apply(cmd, a)
			if err := a.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid flags: %w", err)
			}

			stocks, err := f.stocks()
			if err != nil {
				return fmt.Errorf("loading symbols: %w", err)
			}

			ctx, cancel := signalContext()
			defer cancel()

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			asJSON := f.format == "json"
			if !asJSON {
				fmt.Printf("Scanning %d symbols...\n\n", len(stocks))
			}
			res, files, err := a.runPipeline(ctx, stocks, st, !asJSON)
			if err != nil {
				return err
			}

			if asJSON {
				return report.WriteJSON(os.Stdout, res)
			}
			return printScan(os.Stdout, res, files, a.cfg.Report.Top)
		},
	}
	f.register(cmd)
	return cmd
}

func (a *app) openStore() (store.Store, error) {
	if !a.cfg.Store.Enabled {
		return store.NewNoopStore(), nil
	}
	if err := os.MkdirAll(filepath.Dir(a.cfg.Store.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}
	st, err := store.OpenSQLite(a.cfg.Store.Path, a.logger)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot store: %w", err)
	}
	return st, nil
}

// runPipeline scans, writes both report files for the current ET session and
// records the snapshot.
func (a *app) runPipeline(ctx context.Context, stocks []model.Stock, st store.Store, progress bool) (*scanner.Result, report.Files, error) {
	s := scanner.NewScanner(a.provider, a.scanOptions(), a.logger)

	var bar *progressbar.ProgressBar
	if progress {
		bar = progressbar.NewOptions(len(stocks),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("Scanning"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]█[reset]",
				SaucerHead:    "[green]█[reset]",
				SaucerPadding: "░",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
		s.SetProgressCallback(func(scanned, total int) {
			bar.Set(scanned)
		})
	}

	res, err := s.Scan(ctx, stocks)
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}
	if err != nil {
		return nil, report.Files{}, fmt.Errorf("scanning: %w", err)
	}

	files, err := report.WriteFiles(a.cfg.Report.OutputDir, market.SessionDate(res.StartedAt), res)
	if err != nil {
		return nil, report.Files{}, fmt.Errorf("writing reports: %w", err)
	}
	if err := st.SaveRun(ctx, res); err != nil {
		// Reports are on disk already.
		a.logger.Error().Err(err).Str("run_id", res.RunID).Msg("Failed to record scan snapshot")
	}
	return res, files, nil
}

func printScan(w io.Writer, res *scanner.Result, files report.Files, top int) error {
	buyable := res.BuyableRows()

	fmt.Fprintf(w, "Top %d by quality:\n\n", min(top, len(res.Rows)))
	if err := report.WriteTable(w, res.Rows, top); err != nil {
		return err
	}

	if len(buyable) > 0 {
		fmt.Fprintf(w, "\nPotential breakouts for %s:\n\n", nextSessionLabel(res.StartedAt))
		if err := report.WriteTable(w, buyable, 0); err != nil {
			return err
		}
	}

	fmt.Fprintln(w)
	report.WriteSummary(w, res)
	fmt.Fprintf(w, "Wrote %s (%d rows)\n", files.Full, len(res.Rows))
	fmt.Fprintf(w, "Wrote %s (%d potential breakouts)\n", files.Buyable, len(buyable))
	return nil
}

func nextSessionLabel(now time.Time) string {
	session := market.SessionDate(now)
	return market.NextTradingDay(session).Format("Mon 2006-01-02")
}

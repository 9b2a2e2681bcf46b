package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"basescan/internal/config"
	"basescan/internal/logging"
	"basescan/internal/provider"
	"basescan/internal/scanner"
)

var (
	cfgFile  string
	logLevel string
	csvDir   string
	verbose  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "basescan",
		Short: "Weekly base detection and daily pivot scanner",
		Long: `Basescan finds consolidation bases on weekly charts (Power Play, Darvas box,
cup, cup with handle, double bottom), detects tight daily pivots forming inside
them, and ranks the symbols most likely to break out on the next session.

Examples:
  basescan scan --universe nasdaq100
  basescan scan --symbols AAPL,MSFT,NVDA --require-rs --min-trend-score 6
  basescan diagnose NVDA
  basescan size NVDA --stop 118.5
  basescan history`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "config.yaml", "config file path")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	pf.StringVar(&csvDir, "csv-dir", "", "read price history from <dir>/<SYMBOL>.csv instead of the network")
	pf.BoolVar(&verbose, "verbose", false, "show detailed output")

	rootCmd.AddCommand(
		newScanCmd(),
		newDiagnoseCmd(),
		newSizeCmd(),
		newHistoryCmd(),
		newScheduleCmd(),
		newProvidersCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles what every command needs.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	provider *provider.CachingProvider
}

func setup() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	} else if verbose {
		cfg.Log.Level = "debug"
	}
	if csvDir != "" {
		cfg.Data.Providers = []string{"csv"}
		cfg.Data.CSVDir = csvDir
	}
	logger := logging.New(cfg.Log)

	providers := createProviders(cfg)
	if len(providers) == 0 {
		return nil, fmt.Errorf("no data providers available for %s; set ALPHAVANTAGE_API_KEY or FINNHUB_API_KEY, or use --csv-dir",
			strings.Join(cfg.Data.Providers, ", "))
	}
	fallback := provider.NewFallbackProvider(providers...)

	if verbose {
		names := make([]string, 0, len(fallback.Providers()))
		for _, p := range fallback.Providers() {
			names = append(names, p.Name())
		}
		logger.Info().Strs("providers", names).Msg("Using providers")
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		provider: provider.NewCachingProvider(fallback, cfg.Data.HistoryDays()),
	}, nil
}

// createProviders builds the configured providers in order, skipping any
// that cannot be used.
func createProviders(cfg *config.Config) []provider.Provider {
	var providers []provider.Provider
	for _, name := range cfg.Data.Providers {
		var p provider.Provider
		switch name {
		case "yahoo":
			p = provider.NewYahooProvider(cfg.API.Yahoo.RateLimit)
		case "alphavantage":
			p = provider.NewAlphaVantageProvider(cfg.API.AlphaVantage.Key, cfg.API.AlphaVantage.RateLimit)
		case "finnhub":
			p = provider.NewFinnhubProvider(cfg.API.Finnhub.Key, cfg.API.Finnhub.RateLimit)
		case "csv":
			p = provider.NewCSVDirProvider(cfg.Data.CSVDir)
		}
		if p != nil && p.IsAvailable() {
			providers = append(providers, p)
		}
	}
	return providers
}

// scanOptions maps the config onto scanner options.
func (a *app) scanOptions() scanner.Options {
	c := a.cfg
	return scanner.Options{
		Params: c.SepaParams(),
		Gate: scanner.BuyableGate{
			DistanceMax:   c.Buyable.DistanceMax,
			MinTrendScore: c.Buyable.MinTrendScore,
			RequireRS:     c.Buyable.RequireRS,
		},
		IncludeLeadership: c.Scanner.IncludeLeadership,
		HistoryDays:       c.Data.HistoryDays(),
		Benchmark:         c.Data.Benchmark,
		Workers:           c.Scanner.Workers,
		Timeout:           c.Scanner.Timeout,
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nInterrupted. Stopping...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

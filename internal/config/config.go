package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"basescan/internal/liquidity"
	"basescan/internal/logging"
	"basescan/internal/sepa"
)

// Config represents the application configuration
type Config struct {
	API       APIConfig                `yaml:"api"`
	Data      DataConfig               `yaml:"data"`
	Scanner   ScannerConfig            `yaml:"scanner"`
	Sepa      sepa.Params              `yaml:"sepa"`
	Buyable   BuyableConfig            `yaml:"buyable"`
	Liquidity liquidity.PurchaseLimits `yaml:"liquidity"`
	Sizing    SizingConfig             `yaml:"sizing"`
	Report    ReportConfig             `yaml:"report"`
	Store     StoreConfig              `yaml:"store"`
	Schedule  ScheduleConfig           `yaml:"schedule"`
	Log       logging.Config           `yaml:"log"`
}

// APIConfig holds API provider configurations
type APIConfig struct {
	Yahoo        ProviderConfig `yaml:"yahoo"`
	Finnhub      ProviderConfig `yaml:"finnhub"`
	AlphaVantage ProviderConfig `yaml:"alphavantage"`
}

// ProviderConfig holds individual provider settings
type ProviderConfig struct {
	Key       string `yaml:"key"`
	RateLimit int    `yaml:"rate_limit"` // requests per minute
}

// DataConfig selects where price history comes from.
type DataConfig struct {
	Providers []string `yaml:"providers"` // tried in order: yahoo, alphavantage, finnhub, csv
	CSVDir    string   `yaml:"csv_dir"`
	Years     int      `yaml:"years"`
	Benchmark string   `yaml:"benchmark"`
}

// HistoryDays is the calendar-day span requested from providers.
func (d DataConfig) HistoryDays() int {
	return d.Years * 365
}

// ScannerConfig holds scanner settings
type ScannerConfig struct {
	Workers           int           `yaml:"workers"`
	Timeout           time.Duration `yaml:"timeout"` // per symbol
	IncludeLeadership bool          `yaml:"include_leadership"`
}

// BuyableConfig gates the next-day watchlist.
type BuyableConfig struct {
	DistanceMax   float64 `yaml:"distance_max"`    // percent below resistance
	MinTrendScore *int    `yaml:"min_trend_score"` // nil disables the check
	RequireRS     bool    `yaml:"require_rs"`
}

// SizingConfig holds account settings for the size command.
type SizingConfig struct {
	AccountBalance float64 `yaml:"account_balance"`
	RiskPerTrade   float64 `yaml:"risk_per_trade"` // fraction, 0.02 = 2%
	StopPct        float64 `yaml:"stop_pct"`       // default stop below entry
}

// ReportConfig holds report output settings.
type ReportConfig struct {
	OutputDir string `yaml:"output_dir"`
	Top       int    `yaml:"top"` // rows shown in the terminal table
}

// StoreConfig holds snapshot storage settings.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ScheduleConfig holds the after-close cron settings.
type ScheduleConfig struct {
	Spec     string `yaml:"spec"` // cron with seconds field
	Timezone string `yaml:"timezone"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Yahoo: ProviderConfig{
				RateLimit: 60,
			},
			Finnhub: ProviderConfig{
				Key:       os.Getenv("FINNHUB_API_KEY"),
				RateLimit: 60,
			},
			AlphaVantage: ProviderConfig{
				Key:       os.Getenv("ALPHAVANTAGE_API_KEY"),
				RateLimit: 5,
			},
		},
		Data: DataConfig{
			Providers: []string{"yahoo", "alphavantage", "finnhub"},
			CSVDir:    filepath.Join("data", "prices"),
			Years:     5,
			Benchmark: "SPY",
		},
		Scanner: ScannerConfig{
			Workers:           10,
			Timeout:           30 * time.Second,
			IncludeLeadership: true,
		},
		Sepa: sepa.DefaultParams(),
		Buyable: BuyableConfig{
			DistanceMax: 3.0,
		},
		Liquidity: liquidity.DefaultPurchaseLimits(),
		Sizing: SizingConfig{
			AccountBalance: 100000,
			RiskPerTrade:   0.02,
			StopPct:        0.08,
		},
		Report: ReportConfig{
			OutputDir: filepath.Join("data", "pivot_scan"),
			Top:       25,
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    filepath.Join("data", "basescan.db"),
		},
		Schedule: ScheduleConfig{
			Spec:     "0 30 16 * * MON-FRI",
			Timezone: "America/New_York",
		},
		Log: logging.DefaultConfig(),
	}
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// Use defaults if file doesn't exist
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	// Override with environment variables if set
	if key := os.Getenv("FINNHUB_API_KEY"); key != "" {
		cfg.API.Finnhub.Key = key
	}
	if key := os.Getenv("ALPHAVANTAGE_API_KEY"); key != "" {
		cfg.API.AlphaVantage.Key = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Data.Providers) == 0 {
		return fmt.Errorf("data.providers must name at least one provider")
	}
	for _, name := range c.Data.Providers {
		switch name {
		case "yahoo", "alphavantage", "finnhub", "csv":
		default:
			return fmt.Errorf("unknown provider %q", name)
		}
	}
	if c.Data.Years < 1 {
		return fmt.Errorf("data.years must be at least 1")
	}
	if c.Scanner.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.Scanner.Timeout <= 0 {
		return fmt.Errorf("scanner.timeout must be positive")
	}
	if c.Buyable.DistanceMax < 0 {
		return fmt.Errorf("buyable.distance_max must not be negative")
	}
	if s := c.Buyable.MinTrendScore; s != nil && (*s < 0 || *s > 8) {
		return fmt.Errorf("buyable.min_trend_score must be between 0 and 8")
	}
	if err := validateSepa(c.Sepa); err != nil {
		return err
	}
	if c.Sizing.RiskPerTrade <= 0 || c.Sizing.RiskPerTrade >= 1 {
		return fmt.Errorf("sizing.risk_per_trade must be between 0 and 1")
	}
	if c.Store.Enabled && c.Store.Path == "" {
		return fmt.Errorf("store.path is required when storage is enabled")
	}
	return nil
}

func validateSepa(p sepa.Params) error {
	if p.MinDailyBars < 1 || p.MinWeeklyBars < 1 {
		return fmt.Errorf("sepa minimum bar counts must be at least 1")
	}
	if p.PivotRadius < 1 {
		return fmt.Errorf("sepa.pivot_weeks must be at least 1")
	}
	ranges := map[string]sepa.WeekRange{
		"power_play_weeks":        p.PowerPlayWeeks,
		"darvas_weeks":            p.DarvasWeeks,
		"cup_cheat_weeks":         p.CupCheatWeeks,
		"current_cup_cheat_weeks": p.CurrentCupCheatWeeks,
		"cup_handle_weeks":        p.CupHandleWeeks,
		"double_bottom_weeks":     p.DoubleBottomWeeks,
	}
	for name, r := range ranges {
		if r.Min < 1 || r.Max < r.Min {
			return fmt.Errorf("sepa.%s: invalid range [%d, %d]", name, r.Min, r.Max)
		}
	}
	f := p.Forming
	if f.MinDays < 1 || f.MaxDays < f.MinDays {
		return fmt.Errorf("sepa.forming: invalid day range [%d, %d]", f.MinDays, f.MaxDays)
	}
	if f.MaxRangePct <= 0 {
		return fmt.Errorf("sepa.forming.max_range_pct must be positive")
	}
	return nil
}

// SepaParams returns the detection settings as an independent value.
func (c *Config) SepaParams() sepa.Params {
	return c.Sepa
}

package provider

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"basescan/pkg/model"
)

// CSVDirProvider reads <dir>/<SYMBOL>.csv files with a
// Date,Open,High,Low,Close,Volume header. Column order and case are free;
// extra columns are ignored.
type CSVDirProvider struct {
	dir string
}

// NewCSVDirProvider creates a provider over dir.
func NewCSVDirProvider(dir string) *CSVDirProvider {
	return &CSVDirProvider{dir: dir}
}

// Name returns the provider name
func (p *CSVDirProvider) Name() string { return "csv" }

// IsAvailable reports whether the directory exists.
func (p *CSVDirProvider) IsAvailable() bool {
	if p.dir == "" {
		return false
	}
	info, err := os.Stat(p.dir)
	return err == nil && info.IsDir()
}

// RateLimit is unbounded for local files.
func (p *CSVDirProvider) RateLimit() int { return 0 }

// Path returns the file read for symbol.
func (p *CSVDirProvider) Path(symbol string) string {
	return filepath.Join(p.dir, strings.ToUpper(symbol)+".csv")
}

// GetDailyCandles reads the symbol's file and keeps the last days calendar
// days ending at its newest bar.
func (p *CSVDirProvider) GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(p.Path(symbol))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("%w: %s", ErrNotFound, symbol)}
		}
		return nil, &ProviderError{Provider: p.Name(), Err: err}
	}
	defer f.Close()

	candles, err := ReadCandlesCSV(f)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("%s: %w", symbol, err)}
	}

	candles = normalizeDaily(candles, time.UTC, days)
	if len(candles) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: ErrNoData}
	}
	return candles, nil
}

// ReadCandlesCSV parses daily bars from r. Rows that fail to parse are
// skipped; a missing required column is an error.
func ReadCandlesCSV(r io.Reader) ([]model.Candle, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"date", "open", "high", "low", "close"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing %q column", required)
		}
	}
	volIdx, hasVol := col["volume"]

	var candles []model.Candle
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}

		field := func(name string) string {
			if i := col[name]; i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}

		t, err := parseDate(field("date"))
		if err != nil {
			continue
		}
		c := model.Candle{Time: t}
		var parseErr error
		for _, fv := range []struct {
			name string
			dst  *float64
		}{{"open", &c.Open}, {"high", &c.High}, {"low", &c.Low}, {"close", &c.Close}} {
			v, err := strconv.ParseFloat(field(fv.name), 64)
			if err != nil {
				parseErr = err
				break
			}
			*fv.dst = v
		}
		if parseErr != nil {
			continue
		}
		if hasVol && volIdx < len(rec) {
			if v, err := strconv.ParseFloat(strings.TrimSpace(rec[volIdx]), 64); err == nil {
				c.Volume = int64(v)
			}
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "01/02/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

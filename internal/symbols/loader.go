// Package symbols resolves the symbol universe for a scan.
package symbols

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"basescan/pkg/model"
)

// ErrNoSymbols is returned when no source yields any symbol.
var ErrNoSymbols = errors.New("no symbols to scan")

// Load reads path as a CSV with a symbol column when it ends in .csv, and
// as a plain one-per-line list otherwise. A missing file yields no stocks.
func Load(path string) ([]model.Stock, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening symbols file: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ReadCSV(f)
	}
	return ReadList(f)
}

// ReadCSV parses symbol,name,exchange rows. Header names are matched
// case-insensitively; only symbol is required. Rows with an empty symbol
// are skipped and duplicates keep the first row.
func ReadCSV(r io.Reader) ([]model.Stock, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	col := map[string]int{"symbol": -1, "name": -1, "exchange": -1}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if key == "ticker" {
			key = "symbol"
		}
		if j, ok := col[key]; ok && j < 0 {
			col[key] = i
		}
	}
	if col["symbol"] < 0 {
		return nil, fmt.Errorf("missing symbol column")
	}

	get := func(rec []string, key string) string {
		if i := col[key]; i >= 0 && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	var stocks []model.Stock
	seen := make(map[string]bool)
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		sym := normalize(get(rec, "symbol"))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		name := get(rec, "name")
		if name == "" {
			name = sym
		}
		stocks = append(stocks, model.Stock{Symbol: sym, Name: name, Exchange: get(rec, "exchange")})
	}
	return stocks, nil
}

// ReadList parses one symbol per line. Blank lines and text after # are
// ignored.
func ReadList(r io.Reader) ([]model.Stock, error) {
	var syms []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		if line = strings.TrimSpace(line); line != "" {
			syms = append(syms, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading symbols: %w", err)
	}
	return FromSymbols(syms), nil
}

// FromSymbols turns bare tickers into stocks, filling known names. Invalid
// and duplicate tickers are dropped.
func FromSymbols(symbols []string) []model.Stock {
	stocks := make([]model.Stock, 0, len(symbols))
	seen := make(map[string]bool)
	for _, raw := range symbols {
		sym := normalize(raw)
		if !isValidSymbol(sym) || seen[sym] {
			continue
		}
		seen[sym] = true
		stocks = append(stocks, lookup(sym))
	}
	return stocks
}

// Resolve picks the scan universe: explicit symbols first, then the file,
// then the named built-in universe.
func Resolve(explicit []string, path string, u Universe) ([]model.Stock, error) {
	if len(explicit) > 0 {
		if stocks := FromSymbols(explicit); len(stocks) > 0 {
			return stocks, nil
		}
		return nil, ErrNoSymbols
	}
	if path != "" {
		stocks, err := Load(path)
		if err != nil {
			return nil, err
		}
		if len(stocks) > 0 {
			return stocks, nil
		}
	}
	if stocks := u.Stocks(); len(stocks) > 0 {
		return stocks, nil
	}
	return nil, ErrNoSymbols
}

func normalize(sym string) string {
	return strings.ToUpper(strings.TrimSpace(sym))
}

// isValidSymbol accepts tickers of letters with optional class separators,
// e.g. BRK.B or BF-B.
func isValidSymbol(symbol string) bool {
	if len(symbol) == 0 || len(symbol) > 10 {
		return false
	}
	for i, c := range symbol {
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
		case (c == '.' || c == '-') && i > 0 && i < len(symbol)-1:
		default:
			return false
		}
	}
	return true
}

func lookup(sym string) model.Stock {
	for _, s := range knownStocks {
		if s.symbol == sym {
			return model.Stock{Symbol: s.symbol, Name: s.name, Exchange: s.exchange}
		}
	}
	return model.Stock{Symbol: sym, Name: sym}
}

// knownStocks names the most common tickers for list and universe input.
var knownStocks = []struct {
	symbol   string
	name     string
	exchange string
}{
	// Benchmark
	{"SPY", "SPDR S&P 500 ETF Trust", "NYSEARCA"},

	// Tech Giants
	{"AAPL", "Apple Inc.", "NASDAQ"},
	{"MSFT", "Microsoft Corporation", "NASDAQ"},
	{"GOOGL", "Alphabet Inc.", "NASDAQ"},
	{"AMZN", "Amazon.com Inc.", "NASDAQ"},
	{"META", "Meta Platforms Inc.", "NASDAQ"},
	{"NVDA", "NVIDIA Corporation", "NASDAQ"},
	{"TSLA", "Tesla Inc.", "NASDAQ"},
	{"AMD", "Advanced Micro Devices", "NASDAQ"},
	{"INTC", "Intel Corporation", "NASDAQ"},
	{"CRM", "Salesforce Inc.", "NYSE"},
	{"ORCL", "Oracle Corporation", "NYSE"},
	{"ADBE", "Adobe Inc.", "NASDAQ"},
	{"CSCO", "Cisco Systems Inc.", "NASDAQ"},
	{"AVGO", "Broadcom Inc.", "NASDAQ"},
	{"QCOM", "Qualcomm Inc.", "NASDAQ"},

	// Finance
	{"JPM", "JPMorgan Chase & Co.", "NYSE"},
	{"BAC", "Bank of America Corp", "NYSE"},
	{"WFC", "Wells Fargo & Company", "NYSE"},
	{"GS", "Goldman Sachs Group", "NYSE"},
	{"MS", "Morgan Stanley", "NYSE"},
	{"C", "Citigroup Inc.", "NYSE"},
	{"BLK", "BlackRock Inc.", "NYSE"},
	{"SCHW", "Charles Schwab Corp", "NYSE"},
	{"AXP", "American Express Co.", "NYSE"},
	{"V", "Visa Inc.", "NYSE"},
	{"MA", "Mastercard Inc.", "NYSE"},
	{"PYPL", "PayPal Holdings Inc.", "NASDAQ"},

	// Healthcare
	{"JNJ", "Johnson & Johnson", "NYSE"},
	{"UNH", "UnitedHealth Group", "NYSE"},
	{"PFE", "Pfizer Inc.", "NYSE"},
	{"ABBV", "AbbVie Inc.", "NYSE"},
	{"MRK", "Merck & Co. Inc.", "NYSE"},
	{"LLY", "Eli Lilly and Company", "NYSE"},
	{"TMO", "Thermo Fisher Scientific", "NYSE"},
	{"ABT", "Abbott Laboratories", "NYSE"},
	{"BMY", "Bristol-Myers Squibb", "NYSE"},
	{"AMGN", "Amgen Inc.", "NASDAQ"},

	// Consumer
	{"WMT", "Walmart Inc.", "NYSE"},
	{"HD", "Home Depot Inc.", "NYSE"},
	{"PG", "Procter & Gamble Co.", "NYSE"},
	{"KO", "Coca-Cola Company", "NYSE"},
	{"PEP", "PepsiCo Inc.", "NASDAQ"},
	{"COST", "Costco Wholesale Corp", "NASDAQ"},
	{"NKE", "Nike Inc.", "NYSE"},
	{"MCD", "McDonald's Corporation", "NYSE"},
	{"SBUX", "Starbucks Corporation", "NASDAQ"},
	{"TGT", "Target Corporation", "NYSE"},

	// Industrial
	{"CAT", "Caterpillar Inc.", "NYSE"},
	{"BA", "Boeing Company", "NYSE"},
	{"HON", "Honeywell International", "NASDAQ"},
	{"UPS", "United Parcel Service", "NYSE"},
	{"GE", "General Electric Co.", "NYSE"},
	{"MMM", "3M Company", "NYSE"},
	{"LMT", "Lockheed Martin Corp", "NYSE"},
	{"RTX", "Raytheon Technologies", "NYSE"},

	// Energy
	{"XOM", "Exxon Mobil Corporation", "NYSE"},
	{"CVX", "Chevron Corporation", "NYSE"},
	{"COP", "ConocoPhillips", "NYSE"},
	{"SLB", "Schlumberger Limited", "NYSE"},
	{"EOG", "EOG Resources Inc.", "NYSE"},

	// Communication
	{"DIS", "Walt Disney Company", "NYSE"},
	{"NFLX", "Netflix Inc.", "NASDAQ"},
	{"CMCSA", "Comcast Corporation", "NASDAQ"},
	{"VZ", "Verizon Communications", "NYSE"},
	{"T", "AT&T Inc.", "NYSE"},
	{"TMUS", "T-Mobile US Inc.", "NASDAQ"},

	// Real Estate & Utilities
	{"AMT", "American Tower Corp", "NYSE"},
	{"PLD", "Prologis Inc.", "NYSE"},
	{"NEE", "NextEra Energy Inc.", "NYSE"},
	{"DUK", "Duke Energy Corp", "NYSE"},
	{"SO", "Southern Company", "NYSE"},
}

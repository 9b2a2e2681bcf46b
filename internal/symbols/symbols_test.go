package symbols

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadCSV(t *testing.T) {
	in := "Symbol, Name ,Exchange\n aapl ,Apple Inc.,NASDAQ\n,Blank,NYSE\nMSFT,,\nAAPL,Dup,NYSE\n"
	stocks, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(stocks) != 2 {
		t.Fatalf("expected 2 stocks, got %+v", stocks)
	}
	if stocks[0].Symbol != "AAPL" || stocks[0].Name != "Apple Inc." || stocks[0].Exchange != "NASDAQ" {
		t.Errorf("unexpected first row %+v", stocks[0])
	}
	if stocks[1].Name != "MSFT" {
		t.Errorf("expected symbol as fallback name, got %q", stocks[1].Name)
	}

	if _, err := ReadCSV(strings.NewReader("name\nApple\n")); err == nil {
		t.Error("expected error without a symbol column")
	}
}

func TestReadList(t *testing.T) {
	in := "# watchlist\nnvda\n\nBRK.B  # class B\nbad$\nNVDA\n"
	stocks, err := ReadList(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(stocks) != 2 || stocks[0].Symbol != "NVDA" || stocks[1].Symbol != "BRK.B" {
		t.Errorf("unexpected stocks %+v", stocks)
	}
	if stocks[0].Name != "NVIDIA Corporation" {
		t.Errorf("expected known name, got %q", stocks[0].Name)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "u.csv")
	txtPath := filepath.Join(dir, "u.txt")
	os.WriteFile(csvPath, []byte("symbol,name\nAMD,Advanced Micro Devices\n"), 0o644)
	os.WriteFile(txtPath, []byte("AMD\nINTC\n"), 0o644)

	if got, err := Load(csvPath); err != nil || len(got) != 1 {
		t.Errorf("csv: got %v %v", got, err)
	}
	if got, err := Load(txtPath); err != nil || len(got) != 2 {
		t.Errorf("txt: got %v %v", got, err)
	}
	if got, err := Load(filepath.Join(dir, "missing.csv")); err != nil || len(got) != 0 {
		t.Errorf("missing: got %v %v", got, err)
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.csv")
	os.WriteFile(empty, []byte("symbol,name\n"), 0o644)

	got, err := Resolve([]string{"tsla"}, empty, UniverseSP500)
	if err != nil || len(got) != 1 || got[0].Symbol != "TSLA" {
		t.Errorf("explicit symbols should win, got %v %v", got, err)
	}

	got, err = Resolve(nil, empty, UniverseTest)
	if err != nil || len(got) != len(TestSymbols) {
		t.Errorf("expected the test universe after an empty file, got %d %v", len(got), err)
	}

	if _, err := Resolve([]string{"$$$"}, "", UniverseTest); !errors.Is(err, ErrNoSymbols) {
		t.Errorf("expected ErrNoSymbols, got %v", err)
	}
	if _, err := Resolve(nil, "", Universe("none")); !errors.Is(err, ErrNoSymbols) {
		t.Errorf("expected ErrNoSymbols, got %v", err)
	}
}

func TestParseUniverse(t *testing.T) {
	if u, err := ParseUniverse(" NASDAQ100 "); err != nil || u != UniverseNasdaq100 {
		t.Errorf("got %q %v", u, err)
	}
	if _, err := ParseUniverse("dow"); err == nil {
		t.Error("expected error for unknown universe")
	}
}

func TestIsValidSymbol(t *testing.T) {
	tests := []struct {
		symbol string
		valid  bool
	}{
		{"AAPL", true},
		{"BRK.B", true},
		{"BF-B", true},
		{".A", false},
		{"A.", false},
		{"", false},
		{"ABC1", false},
		{"TOOLONGSYMBOL", false},
	}
	for _, tt := range tests {
		if got := isValidSymbol(tt.symbol); got != tt.valid {
			t.Errorf("isValidSymbol(%q) = %v, want %v", tt.symbol, got, tt.valid)
		}
	}
}

func TestUniverseStocks(t *testing.T) {
	stocks := UniverseSP500.Stocks()
	if len(stocks) != len(SP500Symbols) {
		t.Errorf("expected %d stocks, got %d", len(SP500Symbols), len(stocks))
	}
	for _, s := range stocks {
		if s.Symbol == "BRK.B" {
			return
		}
	}
	t.Error("BRK.B should survive symbol validation")
}

package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"basescan/internal/scanner"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func sampleRows() []scanner.Row {
	buy := time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC)
	return []scanner.Row{
		{
			Symbol: "DARV", Name: "Darvas, Inc", PivotForming: true, PivotDays: iptr(5),
			PivotRangePct: fptr(1.5), TightCloses: true, PivotHigh: fptr(101.25), InBase: true,
			BaseType: "Darvas box", Resistance: fptr(102), DistancePct: fptr(0.8),
			VolumeAtPivot: "below", TrendTemplateScore: iptr(8), RSRatio: fptr(1.42),
			QualityScore: 95.1, Buyable: true,
		},
		{
			Symbol: "OLD", Name: "Old Breakout", PivotForming: true, PivotDays: iptr(3),
			PivotRangePct: fptr(4), InBase: true, BaseType: "Cup w/ handle",
			Resistance: fptr(50), DistancePct: fptr(0), BuyPointDate: &buy, QualityScore: 40,
		},
		{Symbol: "NONE", Name: "No Data"},
	}
}

func TestRecordFormatting(t *testing.T) {
	rows := sampleRows()

	got := Record(rows[0])
	want := []string{"DARV", "Darvas, Inc", "true", "5", "1.5", "true", "101.25", "true", "Darvas box",
		"102", "0.8", "", "below", "8", "1.42", "95.1", "true"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Record() =\n%v\nwant\n%v", got, want)
	}

	if d := Record(rows[1])[11]; d != "2024-02-09" {
		t.Errorf("buy_point_date = %q, want 2024-02-09", d)
	}

	empty := Record(rows[2])
	for i, col := range Columns {
		switch col {
		case "symbol", "name":
		case "pivot_forming", "tight_closes", "in_base", "buyable":
			if empty[i] != "false" {
				t.Errorf("%s = %q, want false", col, empty[i])
			}
		case "quality_score":
			if empty[i] != "0" {
				t.Errorf("quality_score = %q, want 0", empty[i])
			}
		default:
			if empty[i] != "" {
				t.Errorf("%s = %q, want empty", col, empty[i])
			}
		}
	}

	nan := rows[2]
	nan.RSRatio = fptr(math.NaN())
	if v := Record(nan)[14]; v != "" {
		t.Errorf("NaN should serialise as empty, got %q", v)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleRows()); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(Columns, ",") {
		t.Errorf("header = %v", records[0])
	}
	if records[1][1] != "Darvas, Inc" {
		t.Errorf("quoted name not preserved: %q", records[1][1])
	}
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	session := time.Date(2024, 2, 12, 0, 0, 0, 0, time.UTC)
	res := &scanner.Result{Scanned: 3, Rows: sampleRows()}

	files, err := WriteFiles(dir, session, res)
	if err != nil {
		t.Fatalf("WriteFiles() error = %v", err)
	}
	if filepath.Base(files.Full) != "pivot_scan_full_20240212.csv" {
		t.Errorf("full = %s", files.Full)
	}
	if filepath.Base(files.Buyable) != "pivot_breakouts_tomorrow_20240212.csv" {
		t.Errorf("buyable = %s", files.Buyable)
	}

	data, err := os.ReadFile(files.Buyable)
	if err != nil {
		t.Fatalf("reading buyable file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "DARV,") {
		t.Errorf("buyable file should hold only DARV, got %q", lines)
	}

	full, _ := os.ReadFile(files.Full)
	if n := strings.Count(strings.TrimSpace(string(full)), "\n"); n != 3 {
		t.Errorf("full file has %d data rows, want 3", n)
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTable(&buf, sampleRows(), 2); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "DARV") || !strings.Contains(out, "OLD") {
		t.Errorf("expected top rows in table:\n%s", out)
	}
	if strings.Contains(out, "NONE") {
		t.Errorf("row beyond top limit rendered:\n%s", out)
	}
}

func TestTruncateName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Apple Inc", "Apple Inc"},
		{"Exactly Eighteen!!", "Exactly Eighteen!!"},
		{"Advanced Micro Devices Inc", "Advanced Micro Dev..."},
		{"Société Générale Groupe", "Société Générale G..."},
		{"東京エレクトロン株式会社東京エレクトロン株式会社", "東京エレクトロン株式会社東京エレクト..."},
	}
	for _, tt := range tests {
		got := truncateName(tt.in, maxNameWidth)
		if got != tt.want {
			t.Errorf("truncateName(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncateName(%q) produced invalid UTF-8", tt.in)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleRows()[:1]); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded[0]["buyable"] != true || decoded[0]["buy_point_date"] != nil {
		t.Errorf("unexpected JSON row: %v", decoded[0])
	}
}

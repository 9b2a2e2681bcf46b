// Package report writes scan rows as CSV snapshots, terminal tables and JSON.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"basescan/internal/scanner"
	"basescan/pkg/model"
)

// Columns is the fixed report column contract.
var Columns = []string{
	"symbol",
	"name",
	"pivot_forming",
	"pivot_days",
	"pivot_range_pct",
	"tight_closes",
	"pivot_high",
	"in_base",
	"base_type",
	"resistance",
	"distance_pct",
	"buy_point_date",
	"volume_at_pivot",
	"trend_template_score",
	"rs_ratio",
	"quality_score",
	"buyable",
}

// DefaultDir is where report files are written unless configured.
var DefaultDir = filepath.Join("data", "pivot_scan")

// Record formats r in Columns order. Missing values are empty strings.
func Record(r scanner.Row) []string {
	return []string{
		r.Symbol,
		r.Name,
		strconv.FormatBool(r.PivotForming),
		formatInt(r.PivotDays),
		formatFloat(r.PivotRangePct),
		strconv.FormatBool(r.TightCloses),
		formatFloat(r.PivotHigh),
		strconv.FormatBool(r.InBase),
		r.BaseType,
		formatFloat(r.Resistance),
		formatFloat(r.DistancePct),
		formatDate(r.BuyPointDate),
		r.VolumeAtPivot,
		formatInt(r.TrendTemplateScore),
		formatFloat(r.RSRatio),
		strconv.FormatFloat(r.QualityScore, 'f', -1, 64),
		strconv.FormatBool(r.Buyable),
	}
}

// WriteCSV writes a header and one record per row.
func WriteCSV(w io.Writer, rows []scanner.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(Record(r)); err != nil {
			return fmt.Errorf("writing %s: %w", r.Symbol, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Files names the two CSV snapshots of one run.
type Files struct {
	Full    string `json:"full"`
	Buyable string `json:"buyable"`
}

// Paths returns the snapshot paths in dir for the session date.
func Paths(dir string, session time.Time) Files {
	stamp := session.Format("20060102")
	return Files{
		Full:    filepath.Join(dir, "pivot_scan_full_"+stamp+".csv"),
		Buyable: filepath.Join(dir, "pivot_breakouts_tomorrow_"+stamp+".csv"),
	}
}

// WriteFiles writes the full ranking and the buyable subset, creating dir
// when needed.
func WriteFiles(dir string, session time.Time, res *scanner.Result) (Files, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("creating report dir: %w", err)
	}
	files := Paths(dir, session)
	if err := writeFile(files.Full, res.Rows); err != nil {
		return Files{}, err
	}
	if err := writeFile(files.Buyable, res.BuyableRows()); err != nil {
		return Files{}, err
	}
	return files, nil
}

func writeFile(path string, rows []scanner.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteCSV(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

const maxNameWidth = 18

// truncateName shortens s to n runes plus an ellipsis.
func truncateName(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// WriteTable renders up to top rows (all when top <= 0).
func WriteTable(w io.Writer, rows []scanner.Row, top int) error {
	if top > 0 && len(rows) > top {
		rows = rows[:top]
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Symbol", "Name", "Days", "Range", "Base", "Resist", "Dist", "Vol", "TT", "RS", "Score", "Buy"}),
	)
	for _, r := range rows {
		name := truncateName(r.Name, maxNameWidth)
		buy := ""
		if r.Buyable {
			buy = "YES"
		}
		if err := table.Append([]string{
			r.Symbol,
			name,
			orDash(formatInt(r.PivotDays)),
			orDash(withSuffix(formatFixed(r.PivotRangePct), "%")),
			orDash(r.BaseType),
			orDash(formatFixed(r.Resistance)),
			orDash(withSuffix(formatFixed(r.DistancePct), "%")),
			orDash(r.VolumeAtPivot),
			orDash(formatInt(r.TrendTemplateScore)),
			orDash(formatFixed(r.RSRatio)),
			fmt.Sprintf("%.1f", r.QualityScore),
			buy,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSummary prints the run counts.
func WriteSummary(w io.Writer, res *scanner.Result) {
	fmt.Fprintf(w, "Scanned: %d | Successful: %d | Failed: %d | Forming: %d | Buyable: %d | Time: %v\n",
		res.Scanned, res.Successful, res.Failed, res.Forming(), len(res.BuyableRows()),
		res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatFloat(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatFixed(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return model.DateKey(*t)
}

func withSuffix(s, suffix string) string {
	if s == "" {
		return ""
	}
	return s + suffix
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

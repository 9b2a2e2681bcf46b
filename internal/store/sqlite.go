package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"basescan/internal/scanner"
	"basescan/pkg/model"
)

// SQLiteStore persists scan snapshots to a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

// OpenSQLite opens (or creates) the database and runs migrations.
func OpenSQLite(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets history queries read while a scheduled scan writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger.With().Str("component", "store").Logger()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s.logger.Debug().Str("path", path).Msg("Snapshot store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_runs (
			run_id      TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			scanned     INTEGER NOT NULL,
			successful  INTEGER NOT NULL,
			failed      INTEGER NOT NULL,
			forming     INTEGER NOT NULL,
			buyable     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON scan_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS scan_rows (
			run_id               TEXT NOT NULL REFERENCES scan_runs(run_id),
			symbol               TEXT NOT NULL,
			rank                 INTEGER NOT NULL,
			name                 TEXT,
			pivot_forming        INTEGER NOT NULL,
			pivot_days           INTEGER,
			pivot_range_pct      REAL,
			tight_closes         INTEGER NOT NULL,
			pivot_high           REAL,
			in_base              INTEGER NOT NULL,
			base_type            TEXT,
			resistance           REAL,
			distance_pct         REAL,
			buy_point_date       TEXT,
			volume_at_pivot      TEXT,
			trend_template_score INTEGER,
			rs_ratio             REAL,
			quality_score        REAL NOT NULL,
			buyable              INTEGER NOT NULL,
			error                TEXT,
			PRIMARY KEY (run_id, symbol)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// SaveRun records the run and all of its rows in one transaction. A
// repeated symbol within a run keeps its first row.
func (s *SQLiteStore) SaveRun(ctx context.Context, res *scanner.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO scan_runs
		(run_id, started_at, finished_at, scanned, successful, failed, forming, buyable)
		VALUES (?,?,?,?,?,?,?,?)`,
		res.RunID, res.StartedAt.UnixMilli(), res.FinishedAt.UnixMilli(),
		res.Scanned, res.Successful, res.Failed, res.Forming(), len(res.BuyableRows()),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO scan_rows
		(run_id, symbol, rank, name, pivot_forming, pivot_days, pivot_range_pct, tight_closes,
		 pivot_high, in_base, base_type, resistance, distance_pct, buy_point_date,
		 volume_at_pivot, trend_template_score, rs_ratio, quality_score, buyable, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare rows: %w", err)
	}
	defer stmt.Close()

	for i, r := range res.Rows {
		var buyPoint any
		if r.BuyPointDate != nil {
			buyPoint = model.DateKey(*r.BuyPointDate)
		}
		_, err := stmt.ExecContext(ctx,
			res.RunID, r.Symbol, i, r.Name, r.PivotForming, nullInt(r.PivotDays), nullFloat(r.PivotRangePct),
			r.TightCloses, nullFloat(r.PivotHigh), r.InBase, nullString(r.BaseType),
			nullFloat(r.Resistance), nullFloat(r.DistancePct), buyPoint, nullString(r.VolumeAtPivot),
			nullInt(r.TrendTemplateScore), nullFloat(r.RSRatio), r.QualityScore, r.Buyable, nullString(r.Error),
		)
		if err != nil {
			return fmt.Errorf("insert row %s: %w", r.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug().Str("run_id", res.RunID).Int("rows", len(res.Rows)).Msg("Scan snapshot saved")
	return nil
}

// LatestRun returns the most recently started run, or ErrNoRuns.
func (s *SQLiteStore) LatestRun(ctx context.Context) (*Run, error) {
	runs, err := s.Runs(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}
	return &runs[0], nil
}

// Runs lists up to limit runs, newest first. limit <= 0 lists all.
func (s *SQLiteStore) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, started_at, finished_at, scanned,
		successful, failed, forming, buyable
		FROM scan_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished int64
		if err := rows.Scan(&r.ID, &started, &finished, &r.Scanned,
			&r.Successful, &r.Failed, &r.Forming, &r.Buyable); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started).UTC()
		r.FinishedAt = time.UnixMilli(finished).UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RowsForRun returns a run's rows in their recorded ranking order.
func (s *SQLiteStore) RowsForRun(ctx context.Context, runID string) ([]scanner.Row, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol, name, pivot_forming, pivot_days,
		pivot_range_pct, tight_closes, pivot_high, in_base, base_type, resistance,
		distance_pct, buy_point_date, volume_at_pivot, trend_template_score, rs_ratio,
		quality_score, buyable, error
		FROM scan_rows WHERE run_id = ? ORDER BY rank`, runID)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var out []scanner.Row
	for rows.Next() {
		var (
			r                                   scanner.Row
			name, baseType, volume, buy, errMsg sql.NullString
			days, tt                            sql.NullInt64
			rangePct, high, res, dist, rs       sql.NullFloat64
		)
		if err := rows.Scan(&r.Symbol, &name, &r.PivotForming, &days, &rangePct, &r.TightCloses,
			&high, &r.InBase, &baseType, &res, &dist, &buy, &volume, &tt, &rs,
			&r.QualityScore, &r.Buyable, &errMsg); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Name = name.String
		r.PivotDays = intPtr(days)
		r.PivotRangePct = floatPtr(rangePct)
		r.PivotHigh = floatPtr(high)
		r.BaseType = baseType.String
		r.Resistance = floatPtr(res)
		r.DistancePct = floatPtr(dist)
		r.VolumeAtPivot = volume.String
		r.TrendTemplateScore = intPtr(tt)
		r.RSRatio = floatPtr(rs)
		r.Error = errMsg.String
		if buy.Valid {
			t, err := time.Parse("2006-01-02", buy.String)
			if err != nil {
				return nil, fmt.Errorf("parse buy point %q: %w", buy.String, err)
			}
			r.BuyPointDate = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

var _ Store = (*SQLiteStore)(nil)
var _ Store = NoopStore{}

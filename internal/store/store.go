// Package store keeps dated scan snapshots. Rows are written once per run
// and never updated.
package store

import (
	"context"
	"errors"
	"time"

	"basescan/internal/scanner"
)

// ErrNoRuns is returned when no scan has been recorded.
var ErrNoRuns = errors.New("no scan runs recorded")

// Run is the metadata of one recorded scan.
type Run struct {
	ID         string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Scanned    int       `json:"scanned"`
	Successful int       `json:"successful"`
	Failed     int       `json:"failed"`
	Forming    int       `json:"forming"`
	Buyable    int       `json:"buyable"`
}

// Store persists scan results.
type Store interface {
	SaveRun(ctx context.Context, res *scanner.Result) error
	LatestRun(ctx context.Context) (*Run, error)
	Runs(ctx context.Context, limit int) ([]Run, error)
	RowsForRun(ctx context.Context, runID string) ([]scanner.Row, error)
	Close() error
}

// NoopStore is used when storage is disabled.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (NoopStore) SaveRun(context.Context, *scanner.Result) error { return nil }
func (NoopStore) LatestRun(context.Context) (*Run, error)        { return nil, ErrNoRuns }
func (NoopStore) Runs(context.Context, int) ([]Run, error)       { return nil, nil }
func (NoopStore) Close() error                                   { return nil }

func (NoopStore) RowsForRun(context.Context, string) ([]scanner.Row, error) {
	return nil, nil
}

// Package scanner runs base and pivot detection across a symbol universe.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"basescan/internal/logging"
	"basescan/internal/provider"
	"basescan/internal/sepa"
	"basescan/pkg/model"
)

// Defaults for Options.
const (
	DefaultWorkers     = 10
	DefaultTimeout     = 30 * time.Second
	DefaultHistoryDays = 5 * 365
	DefaultBenchmark   = "SPY"
)

// ProgressCallback is called with progress updates
type ProgressCallback func(scanned, total int)

// Options configures a scan.
type Options struct {
	Params            sepa.Params
	Gate              BuyableGate
	IncludeLeadership bool
	HistoryDays       int    // calendar days requested per symbol
	Benchmark         string // relative-strength benchmark symbol
	Workers           int
	Timeout           time.Duration // per symbol
}

// DefaultOptions returns the standard scan settings.
func DefaultOptions() Options {
	return Options{
		Params:            sepa.DefaultParams(),
		Gate:              DefaultGate(),
		IncludeLeadership: true,
		HistoryDays:       DefaultHistoryDays,
		Benchmark:         DefaultBenchmark,
		Workers:           DefaultWorkers,
		Timeout:           DefaultTimeout,
	}
}

// Result is the outcome of one scan run.
type Result struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Scanned    int       `json:"scanned"`
	Successful int       `json:"successful"`
	Failed     int       `json:"failed"`
	Rows       []Row     `json:"rows"` // quality_score descending
}

// Forming counts rows with a forming pivot.
func (r *Result) Forming() int {
	n := 0
	for _, row := range r.Rows {
		if row.PivotForming {
			n++
		}
	}
	return n
}

// BuyableRows returns the next-day watchlist in ranking order.
func (r *Result) BuyableRows() []Row {
	var out []Row
	for _, row := range r.Rows {
		if row.Buyable {
			out = append(out, row)
		}
	}
	return out
}

// Scanner performs parallel stock scanning
type Scanner struct {
	provider     provider.Provider
	opts         Options
	logger       zerolog.Logger
	progressFunc ProgressCallback
	now          func() time.Time
}

// NewScanner creates a new scanner
func NewScanner(p provider.Provider, opts Options, logger zerolog.Logger) *Scanner {
	if opts.Workers < 1 {
		opts.Workers = DefaultWorkers
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = DefaultHistoryDays
	}
	return &Scanner{
		provider: p,
		opts:     opts,
		logger:   logging.WithComponent(logger, "scanner"),
		now:      time.Now,
	}
}

// SetProgressCallback sets the progress callback function
func (s *Scanner) SetProgressCallback(fn ProgressCallback) {
	s.progressFunc = fn
}

// Options returns the scanner's settings.
func (s *Scanner) Options() Options { return s.opts }

type outcome struct {
	row    Row
	failed bool
}

// Scan computes one row per stock. A symbol whose fetch or computation fails
// gets the safe default row and is counted as failed; the batch always
// completes. The returned error is non-nil only when ctx was cancelled.
func (s *Scanner) Scan(ctx context.Context, stocks []model.Stock) (*Result, error) {
	runID := uuid.NewString()
	logger := logging.WithRunID(s.logger, runID)
	result := &Result{
		RunID:     runID,
		StartedAt: s.now(),
		Scanned:   len(stocks),
		Rows:      []Row{},
	}
	if len(stocks) == 0 {
		result.FinishedAt = s.now()
		return result, nil
	}

	bench := s.fetchBenchmark(ctx, logger)

	jobChan := make(chan int, len(stocks))
	for i := range stocks {
		jobChan <- i
	}
	close(jobChan)

	outcomes := make([]outcome, len(stocks))
	var scannedCount int64

	var wg sync.WaitGroup
	for w := 0; w < s.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobChan {
				outcomes[i] = s.scanOne(ctx, logger, stocks[i], bench)

				count := atomic.AddInt64(&scannedCount, 1)
				if s.progressFunc != nil {
					s.progressFunc(int(count), len(stocks))
				}
			}
		}()
	}
	wg.Wait()

	for _, o := range outcomes {
		if o.failed {
			result.Failed++
		} else {
			result.Successful++
		}
		result.Rows = append(result.Rows, o.row)
	}
	SortRows(result.Rows)
	result.FinishedAt = s.now()

	logging.LogScanSummary(logger, result.Scanned, result.Successful, result.Failed,
		result.Forming(), len(result.BuyableRows()), result.FinishedAt.Sub(result.StartedAt))
	return result, ctx.Err()
}

// SortRows orders rows by quality score, highest first. Ties keep their
// input order.
func SortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].QualityScore > rows[j].QualityScore
	})
}

func (s *Scanner) fetchBenchmark(ctx context.Context, logger zerolog.Logger) []model.Candle {
	if !s.opts.IncludeLeadership || s.opts.Benchmark == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	bench, err := s.provider.GetDailyCandles(ctx, s.opts.Benchmark, s.opts.HistoryDays)
	if err != nil {
		logger.Warn().Err(err).Str("benchmark", s.opts.Benchmark).
			Msg("Benchmark unavailable, relative strength disabled")
		return nil
	}
	return bench
}

func (s *Scanner) scanOne(ctx context.Context, logger zerolog.Logger, stock model.Stock, bench []model.Candle) (out outcome) {
	symLogger := logging.WithSymbol(logger, stock.Symbol)
	defer func() {
		if r := recover(); r != nil {
			symLogger.Error().Interface("panic", r).Msg("Symbol computation panicked")
			row := SafeRow(stock)
			row.Error = fmt.Sprintf("panic: %v", r)
			out = outcome{row: row, failed: true}
		}
	}()

	daily, err := s.fetch(logging.WithContext(ctx, symLogger), stock.Symbol)
	switch {
	case errors.Is(err, provider.ErrNoData):
		daily = nil
	case err != nil:
		logging.LogFetchFailure(symLogger, stock.Symbol, s.provider.Name(), err)
		row := SafeRow(stock)
		row.Error = err.Error()
		return outcome{row: row, failed: true}
	}

	tracer := sepa.LogTracer{Logger: symLogger}
	return outcome{row: ComputeRow(stock, daily, bench, s.opts, tracer)}
}

// fetch bounds the provider call by the per-symbol timeout even when the
// provider does not watch ctx itself.
func (s *Scanner) fetch(ctx context.Context, symbol string) ([]model.Candle, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	type fetched struct {
		bars []model.Candle
		err  error
	}
	ch := make(chan fetched, 1)
	go func() {
		bars, err := s.provider.GetDailyCandles(ctx, symbol, s.opts.HistoryDays)
		ch <- fetched{bars, err}
	}()

	select {
	case f := <-ch:
		if f.err != nil {
			return nil, fmt.Errorf("fetching %s: %w", symbol, f.err)
		}
		return f.bars, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("fetching %s: %w", symbol, ctx.Err())
	}
}

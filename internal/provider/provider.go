package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"time"

	"basescan/internal/logging"
	"basescan/internal/ratelimit"
	"basescan/pkg/model"
)

var (
	// ErrNoData is returned when the upstream has no bars for a symbol.
	ErrNoData = errors.New("no data available")
	// ErrNotFound is returned when a local series does not exist.
	ErrNotFound = errors.New("symbol not found")
)

// Provider defines the interface for daily price-history sources
type Provider interface {
	// Name returns the provider name
	Name() string

	// GetDailyCandles fetches ascending daily OHLCV bars covering the last
	// days calendar days, one bar per trading date.
	GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error)

	// IsAvailable checks if the provider is available (has valid API key)
	IsAvailable() bool

	// RateLimit returns the rate limit per minute
	RateLimit() int
}

// ProviderError represents a provider-specific error
type ProviderError struct {
	Provider  string
	Err       error
	Retryable bool
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// FallbackProvider tries multiple providers in order
type FallbackProvider struct {
	providers []Provider
}

// NewFallbackProvider creates a new fallback provider
func NewFallbackProvider(providers ...Provider) *FallbackProvider {
	// Filter to only available providers
	available := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p.IsAvailable() {
			available = append(available, p)
		}
	}
	return &FallbackProvider{providers: available}
}

// Name returns the combined provider name
func (f *FallbackProvider) Name() string {
	return "fallback"
}

// GetDailyCandles returns the first non-empty result. An empty result counts
// as a failure so the next provider is tried.
func (f *FallbackProvider) GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error) {
	lastErr := error(&ProviderError{Provider: f.Name(), Err: ErrNoData})
	for _, p := range f.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := p.GetDailyCandles(ctx, symbol, days)
		if err == nil && len(data) > 0 {
			return data, nil
		}
		if err == nil {
			err = &ProviderError{Provider: p.Name(), Err: ErrNoData}
		}
		logger := logging.FromContext(ctx)
		logger.Debug().Err(err).Str("provider", p.Name()).Str("symbol", symbol).
			Msg("Provider failed, trying next")
		lastErr = err
	}
	return nil, lastErr
}

// IsAvailable returns true if any provider is available
func (f *FallbackProvider) IsAvailable() bool {
	return len(f.providers) > 0
}

// RateLimit returns the highest rate limit among providers
func (f *FallbackProvider) RateLimit() int {
	maxRate := 0
	for _, p := range f.providers {
		if p.RateLimit() > maxRate {
			maxRate = p.RateLimit()
		}
	}
	return maxRate
}

// Providers returns the list of underlying providers
func (f *FallbackProvider) Providers() []Provider {
	return f.providers
}

// getJSON performs a rate-limited GET and decodes the body into out.
func getJSON(ctx context.Context, client *http.Client, limiter *ratelimit.Limiter, name, url string, header http.Header, out any) error {
	if err := limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return &ProviderError{Provider: name, Err: err, Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		limiter.SignalRateLimited()
		return &ProviderError{Provider: name, Err: fmt.Errorf("rate limited"), Retryable: true}
	}
	if resp.StatusCode == http.StatusNotFound {
		return &ProviderError{Provider: name, Err: ErrNotFound}
	}
	if resp.StatusCode != http.StatusOK {
		return &ProviderError{Provider: name, Err: fmt.Errorf("status %d", resp.StatusCode), Retryable: resp.StatusCode >= 500}
	}

	limiter.ResetBackoff()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProviderError{Provider: name, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// normalizeDaily sorts bars ascending, drops bars with missing or
// non-positive prices, keeps the last bar per trading date and trims to the
// days calendar days ending at the newest bar. Times are set to midnight UTC
// of the trading date in loc.
func normalizeDaily(bars []model.Candle, loc *time.Location, days int) []model.Candle {
	out := make([]model.Candle, 0, len(bars))
	for _, b := range bars {
		if !validPrice(b.Open) || !validPrice(b.High) || !validPrice(b.Low) || !validPrice(b.Close) {
			continue
		}
		if b.Volume < 0 {
			b.Volume = 0
		}
		b.Time = model.TradingDate(b.Time, loc)
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	dedup := out[:0]
	for _, b := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Time.Equal(b.Time) {
			dedup[n-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	return trimSpan(dedup, days)
}

// trimSpan keeps the bars within days calendar days of the newest bar.
func trimSpan(bars []model.Candle, days int) []model.Candle {
	if days <= 0 || len(bars) == 0 {
		return bars
	}
	cutoff := bars[len(bars)-1].Time.AddDate(0, 0, -days)
	i := sort.Search(len(bars), func(i int) bool { return bars[i].Time.After(cutoff) })
	return bars[i:]
}

func validPrice(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

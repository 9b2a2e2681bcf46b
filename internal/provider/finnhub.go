package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"basescan/internal/ratelimit"
	"basescan/pkg/model"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// FinnhubProvider implements the Provider interface for Finnhub API
type FinnhubProvider struct {
	apiKey    string
	client    *http.Client
	limiter   *ratelimit.Limiter
	rateLimit int
	baseURL   string
	now       func() time.Time
}

// NewFinnhubProvider creates a new Finnhub provider
func NewFinnhubProvider(apiKey string, rateLimitPerMin int) *FinnhubProvider {
	if rateLimitPerMin <= 0 {
		rateLimitPerMin = 60
	}
	return &FinnhubProvider{
		apiKey:    apiKey,
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   ratelimit.NewLimiter("finnhub", rateLimitPerMin),
		rateLimit: rateLimitPerMin,
		baseURL:   finnhubBaseURL,
		now:       time.Now,
	}
}

// Name returns the provider name
func (p *FinnhubProvider) Name() string {
	return "finnhub"
}

// IsAvailable checks if the provider has an API key
func (p *FinnhubProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// RateLimit returns the rate limit per minute
func (p *FinnhubProvider) RateLimit() int {
	return p.rateLimit
}

// finnhubCandle represents the Finnhub candle response
type finnhubCandle struct {
	C []float64 `json:"c"` // Close prices
	H []float64 `json:"h"` // High prices
	L []float64 `json:"l"` // Low prices
	O []float64 `json:"o"` // Open prices
	S string    `json:"s"` // Status
	T []int64   `json:"t"` // Timestamps
	V []float64 `json:"v"` // Volumes
}

// GetDailyCandles fetches daily OHLCV data
func (p *FinnhubProvider) GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error) {
	now := p.now()
	from := now.AddDate(0, 0, -days)

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("resolution", "D")
	q.Set("from", fmt.Sprint(from.Unix()))
	q.Set("to", fmt.Sprint(now.Unix()))
	q.Set("token", p.apiKey)

	var data finnhubCandle
	if err := getJSON(ctx, p.client, p.limiter, p.Name(), p.baseURL+"/stock/candle?"+q.Encode(), nil, &data); err != nil {
		return nil, err
	}

	if data.S == "no_data" || len(data.T) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: ErrNoData, Retryable: false}
	}

	candles := make([]model.Candle, 0, len(data.T))
	for i := range data.T {
		if i >= len(data.O) || i >= len(data.H) || i >= len(data.L) || i >= len(data.C) {
			continue
		}

		var volume int64
		if i < len(data.V) {
			volume = int64(data.V[i])
		}

		candles = append(candles, model.Candle{
			Time:   time.Unix(data.T[i], 0).UTC(),
			Open:   data.O[i],
			High:   data.H[i],
			Low:    data.L[i],
			Close:  data.C[i],
			Volume: volume,
		})
	}

	// Daily stamps are midnight UTC of the session date.
	candles = normalizeDaily(candles, time.UTC, days)
	if len(candles) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: ErrNoData, Retryable: false}
	}
	return candles, nil
}

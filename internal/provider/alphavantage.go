package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"basescan/internal/ratelimit"
	"basescan/pkg/model"
)

const alphaVantageBaseURL = "https://www.alphavantage.co/query"

// compactBars is how many sessions outputsize=compact returns.
const compactBars = 100

// AlphaVantageProvider implements the Provider interface for Alpha Vantage API
type AlphaVantageProvider struct {
	apiKey    string
	client    *http.Client
	limiter   *ratelimit.Limiter
	rateLimit int
	baseURL   string
}

// NewAlphaVantageProvider creates a new Alpha Vantage provider
func NewAlphaVantageProvider(apiKey string, rateLimitPerMin int) *AlphaVantageProvider {
	if rateLimitPerMin <= 0 {
		rateLimitPerMin = 5
	}
	return &AlphaVantageProvider{
		apiKey:    apiKey,
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   ratelimit.NewLimiter("alphavantage", rateLimitPerMin),
		rateLimit: rateLimitPerMin,
		baseURL:   alphaVantageBaseURL,
	}
}

// Name returns the provider name
func (p *AlphaVantageProvider) Name() string {
	return "alphavantage"
}

// IsAvailable checks if the provider has an API key
func (p *AlphaVantageProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// RateLimit returns the rate limit per minute
func (p *AlphaVantageProvider) RateLimit() int {
	return p.rateLimit
}

// alphaVantageDaily represents the TIME_SERIES_DAILY response
type alphaVantageDaily struct {
	MetaData   map[string]string            `json:"Meta Data"`
	TimeSeries map[string]map[string]string `json:"Time Series (Daily)"`
	Note       string                       `json:"Note"` // Rate limit message
	Info       string                       `json:"Information"`
	Error      string                       `json:"Error Message"`
}

// GetDailyCandles fetches daily bars, using the full history only when the
// span exceeds what the compact output covers.
func (p *AlphaVantageProvider) GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error) {
	outputSize := "compact"
	if days > compactBars {
		outputSize = "full"
	}

	q := url.Values{}
	q.Set("function", "TIME_SERIES_DAILY")
	q.Set("symbol", symbol)
	q.Set("outputsize", outputSize)
	q.Set("apikey", p.apiKey)

	var data alphaVantageDaily
	if err := getJSON(ctx, p.client, p.limiter, p.Name(), p.baseURL+"?"+q.Encode(), nil, &data); err != nil {
		return nil, err
	}

	if data.Note != "" || data.Info != "" {
		p.limiter.SignalRateLimited()
		msg := data.Note
		if msg == "" {
			msg = data.Info
		}
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("rate limited: %s", msg), Retryable: true}
	}

	if data.Error != "" {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("%w: %s", ErrNotFound, data.Error), Retryable: false}
	}

	if len(data.TimeSeries) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: ErrNoData, Retryable: false}
	}

	candles := make([]model.Candle, 0, len(data.TimeSeries))
	for dateStr, values := range data.TimeSeries {
		t, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}

		open, _ := strconv.ParseFloat(values["1. open"], 64)
		high, _ := strconv.ParseFloat(values["2. high"], 64)
		low, _ := strconv.ParseFloat(values["3. low"], 64)
		cl, _ := strconv.ParseFloat(values["4. close"], 64)
		volume, _ := strconv.ParseInt(values["5. volume"], 10, 64)

		candles = append(candles, model.Candle{
			Time:   t,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  cl,
			Volume: volume,
		})
	}

	// Dates are already calendar dates; normalising in UTC keeps them.
	candles = normalizeDaily(candles, time.UTC, days)
	if len(candles) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: ErrNoData, Retryable: false}
	}
	return candles, nil
}


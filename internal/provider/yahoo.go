package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"basescan/internal/market"
	"basescan/internal/ratelimit"
	"basescan/pkg/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// YahooProvider implements the Provider interface for Yahoo Finance (unofficial API)
type YahooProvider struct {
	client    *http.Client
	limiter   *ratelimit.Limiter
	rateLimit int
	baseURL   string
	now       func() time.Time
}

// NewYahooProvider creates a new Yahoo Finance provider
func NewYahooProvider(rateLimitPerMin int) *YahooProvider {
	if rateLimitPerMin <= 0 {
		rateLimitPerMin = 30 // Conservative rate limit
	}
	return &YahooProvider{
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   ratelimit.NewLimiter("yahoo", rateLimitPerMin),
		rateLimit: rateLimitPerMin,
		baseURL:   yahooBaseURL,
		now:       time.Now,
	}
}

// Name returns the provider name
func (p *YahooProvider) Name() string {
	return "yahoo"
}

// IsAvailable always returns true (no API key needed)
func (p *YahooProvider) IsAvailable() bool {
	return true
}

// RateLimit returns the rate limit per minute
func (p *YahooProvider) RateLimit() int {
	return p.rateLimit
}

// yahooResponse represents the Yahoo Finance chart response. Quote arrays
// hold nulls for halted sessions.
type yahooResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol           string `json:"symbol"`
				ExchangeTimezone string `json:"exchangeTimezoneName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetDailyCandles fetches daily bars. When Yahoo supplies adjusted closes,
// open/high/low/close are scaled by adjclose/close so splits and dividends
// do not show up as gaps.
func (p *YahooProvider) GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error) {
	end := p.now()
	start := end.AddDate(0, 0, -days)

	q := url.Values{}
	q.Set("period1", fmt.Sprint(start.Unix()))
	q.Set("period2", fmt.Sprint(end.Unix()))
	q.Set("interval", "1d")
	q.Set("events", "div,split")
	q.Set("includePrePost", "false")
	reqURL := fmt.Sprintf("%s/%s?%s", p.baseURL, url.PathEscape(symbol), q.Encode())

	header := http.Header{}
	header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	var data yahooResponse
	if err := getJSON(ctx, p.client, p.limiter, p.Name(), reqURL, header, &data); err != nil {
		return nil, err
	}

	if data.Chart.Error != nil {
		if data.Chart.Error.Code == "Not Found" {
			return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("%w: %s", ErrNotFound, symbol)}
		}
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("%s", data.Chart.Error.Description), Retryable: false}
	}

	if len(data.Chart.Result) == 0 || len(data.Chart.Result[0].Timestamp) == 0 ||
		len(data.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: ErrNoData, Retryable: false}
	}

	result := data.Chart.Result[0]
	quotes := result.Indicators.Quote[0]
	var adj []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	loc := market.ETLocation()
	candles := make([]model.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		open, high, low, cl := at(quotes.Open, i), at(quotes.High, i), at(quotes.Low, i), at(quotes.Close, i)
		if open == nil || high == nil || low == nil || cl == nil {
			continue
		}

		factor := 1.0
		if a := at(adj, i); a != nil && *cl > 0 {
			factor = *a / *cl
		}

		var volume int64
		if v := at(quotes.Volume, i); v != nil {
			volume = *v
		}

		candles = append(candles, model.Candle{
			Time:   time.Unix(ts, 0).In(loc),
			Open:   *open * factor,
			High:   *high * factor,
			Low:    *low * factor,
			Close:  *cl * factor,
			Volume: volume,
		})
	}

	candles = normalizeDaily(candles, loc, days)
	if len(candles) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: ErrNoData, Retryable: false}
	}
	return candles, nil
}

func at[T any](xs []*T, i int) *T {
	if i >= len(xs) {
		return nil
	}
	return xs[i]
}

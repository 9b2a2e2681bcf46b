package provider

import (
	"context"
	"sync"

	"basescan/pkg/model"
)

// CachingProvider wraps a Provider with an in-memory cache for GetDailyCandles.
// The longest fetch per symbol is kept and shorter spans are served from it.
type CachingProvider struct {
	inner   Provider
	cache   map[string]cachedSeries
	mu      sync.Mutex
	minDays int
}

type cachedSeries struct {
	days    int
	candles []model.Candle
}

// NewCachingProvider creates a caching wrapper. minDays is the span always
// fetched so later, longer requests for the same symbol hit the cache.
func NewCachingProvider(inner Provider, minDays int) *CachingProvider {
	return &CachingProvider{
		inner:   inner,
		cache:   make(map[string]cachedSeries),
		minDays: minDays,
	}
}

func (p *CachingProvider) Name() string      { return p.inner.Name() }
func (p *CachingProvider) IsAvailable() bool { return p.inner.IsAvailable() }
func (p *CachingProvider) RateLimit() int    { return p.inner.RateLimit() }

func (p *CachingProvider) GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error) {
	p.mu.Lock()
	if cached, ok := p.cache[symbol]; ok && cached.days >= days {
		p.mu.Unlock()
		return copyCandles(trimSpan(cached.candles, days)), nil
	}
	p.mu.Unlock()

	fetchDays := p.minDays
	if days > fetchDays {
		fetchDays = days
	}

	candles, err := p.inner.GetDailyCandles(ctx, symbol, fetchDays)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cache[symbol] = cachedSeries{days: fetchDays, candles: candles}
	p.mu.Unlock()

	return copyCandles(trimSpan(candles, days)), nil
}

// Len returns the number of cached symbols.
func (p *CachingProvider) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cache)
}

// Reset drops every cached series, so the next scan sees new closes.
func (p *CachingProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache = make(map[string]cachedSeries)
}

func copyCandles(c []model.Candle) []model.Candle {
	out := make([]model.Candle, len(c))
	copy(out, c)
	return out
}

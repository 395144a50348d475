package fx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"remit/internal/store"
)

// CacheStore persists fetched rates so pricing survives rate-API outages.
type CacheStore interface {
	Get(ctx context.Context, fromCurrency, toCurrency string) (store.CachedRate, error)
	Upsert(ctx context.Context, fromCurrency, toCurrency string, rate decimal.Decimal) error
}

type Options struct {
	PrimaryURL   string
	SecondaryURL string
	APIKey       string
	CacheTTL     time.Duration
	HTTPTimeout  time.Duration
}

// Provider resolves a market exchange rate for a currency pair. It never
// fails: cache, then two external APIs, then a stale cache row, then the
// static table. Pricing must always produce a quote.
type Provider struct {
	cache  CacheStore
	client *http.Client
	opts   Options
	logger zerolog.Logger
}

func NewProvider(cache CacheStore, opts Options, logger zerolog.Logger) *Provider {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 5 * time.Second
	}
	return &Provider{
		cache:  cache,
		client: &http.Client{Timeout: opts.HTTPTimeout},
		opts:   opts,
		logger: logger,
	}
}

func (p *Provider) Rate(ctx context.Context, fromCurrency, toCurrency string) decimal.Decimal {
	if fromCurrency == toCurrency {
		return decimal.NewFromInt(1)
	}

	cached, cacheErr := p.cache.Get(ctx, fromCurrency, toCurrency)
	if cacheErr == nil && time.Since(cached.UpdatedAt) < p.opts.CacheTTL {
		return cached.Rate
	}

	rate, err := p.fetch(ctx, p.opts.PrimaryURL, fromCurrency, toCurrency)
	if err != nil {
		p.logger.Warn().Err(err).Str("pair", fromCurrency+"/"+toCurrency).Msg("primary rate API failed")
		rate, err = p.fetch(ctx, p.opts.SecondaryURL, fromCurrency, toCurrency)
	}
	if err == nil {
		p.storeAsync(fromCurrency, toCurrency, rate)
		return rate
	}
	p.logger.Warn().Err(err).Str("pair", fromCurrency+"/"+toCurrency).Msg("secondary rate API failed")

	// A stale observed rate beats a hand-typed approximation.
	if cacheErr == nil {
		p.logger.Warn().
			Str("pair", fromCurrency+"/"+toCurrency).
			Time("cached_at", cached.UpdatedAt).
			Msg("serving stale cached rate")
		return cached.Rate
	}

	p.logger.Error().Str("pair", fromCurrency+"/"+toCurrency).Msg("serving static fallback rate")
	return staticRate(fromCurrency, toCurrency)
}

type ratesResponse struct {
	Rates map[string]decimal.Decimal `json:"rates"`
}

func (p *Provider) fetch(ctx context.Context, baseURL, fromCurrency, toCurrency string) (decimal.Decimal, error) {
	if baseURL == "" {
		return decimal.Zero, errors.New("rate API not configured")
	}
	url := fmt.Sprintf("%s/%s", baseURL, fromCurrency)
	if p.opts.APIKey != "" {
		url += "?apikey=" + p.opts.APIKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rate API returned %d", resp.StatusCode)
	}
	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, err
	}
	rate, ok := body.Rates[toCurrency]
	if !ok || rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("rate API has no %s rate", toCurrency)
	}
	return rate, nil
}

// storeAsync upserts the cache off the caller's critical path. The upsert is
// one statement, so a crash mid-flight cannot leave a torn row.
func (p *Provider) storeAsync(fromCurrency, toCurrency string, rate decimal.Decimal) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.cache.Upsert(ctx, fromCurrency, toCurrency, rate); err != nil {
			p.logger.Warn().Err(err).Str("pair", fromCurrency+"/"+toCurrency).Msg("rate cache upsert failed")
		}
	}()
}

// Package fetcher implements the resilient fetch ladder: fresh cache,
// direct request, ordered CORS relays, stale cache, bundled mock data.
// Callers get the most relevant payload available; transport errors
// never escape this layer.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/songzhibin97/coinwatch/internal/data/cache"
	"github.com/songzhibin97/coinwatch/internal/data/mockdata"
	"github.com/songzhibin97/coinwatch/internal/status"
)

// ErrNoFallback is returned only when every stage failed and no mock
// payload covers the requested URL.
var ErrNoFallback = errors.New("no fallback data available")

// Fetcher orchestrates the fallback ladder and maintains the
// data-source status signal.
type Fetcher struct {
	http    *resty.Client
	cache   *cache.Cache
	mock    *mockdata.Store
	status  *status.Signal
	limiter *rate.Limiter
	logger  *slog.Logger

	proxies []string

	mu           sync.Mutex
	currentProxy int
}

// Config wires a Fetcher's collaborators.
type Config struct {
	HTTP      *resty.Client
	Cache     *cache.Cache
	Mock      *mockdata.Store
	Status    *status.Signal
	Proxies   []string
	RateLimit float64 // direct requests per second, 0 disables limiting
	Logger    *slog.Logger
}

func New(cfg Config) *Fetcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return &Fetcher{
		http:    cfg.HTTP,
		cache:   cfg.Cache,
		mock:    cfg.Mock,
		status:  cfg.Status,
		limiter: limiter,
		logger:  logger,
		proxies: cfg.Proxies,
	}
}

// Fetch resolves rawURL to a JSON payload. Stages in order:
//
//  1. fresh cache hit (status untouched, it is not re-derived from cache)
//  2. direct request -> status live
//  3. relays, round-robin from the last proxy that worked -> status proxy
//  4. stale cache entry, then mock payload by URL pattern -> status mock
//
// Each network stage is attempted exactly once per call.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (json.RawMessage, error) {
	if payload, ok := f.cache.Get(rawURL); ok {
		return payload, nil
	}

	if payload, err := f.direct(ctx, rawURL); err == nil {
		f.cache.Put(rawURL, payload)
		f.status.Set(status.SourceLive)
		return payload, nil
	} else {
		f.logger.Warn("direct fetch failed", "url", rawURL, "error", err)
	}

	if payload, ok := f.viaProxies(ctx, rawURL); ok {
		f.cache.Put(rawURL, payload)
		f.status.Set(status.SourceProxy)
		return payload, nil
	}

	f.logger.Warn("all requests failed, falling back", "url", rawURL)
	f.status.Set(status.SourceMock)

	if payload, ok := f.cache.GetStale(rawURL); ok {
		return payload, nil
	}
	if payload, ok := f.mock.ForURL(rawURL); ok {
		return payload, nil
	}
	return nil, fmt.Errorf("%w for %s", ErrNoFallback, rawURL)
}

func (f *Fetcher) direct(ctx context.Context, rawURL string) (json.RawMessage, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}
	return f.request(ctx, rawURL)
}

// viaProxies walks the relay list starting from the index that last
// succeeded, so a dead relay at the head is not hammered first on every
// failure sequence.
func (f *Fetcher) viaProxies(ctx context.Context, rawURL string) (json.RawMessage, bool) {
	f.mu.Lock()
	start := f.currentProxy
	f.mu.Unlock()

	for i := 0; i < len(f.proxies); i++ {
		idx := (start + i) % len(f.proxies)
		proxied := f.proxies[idx] + url.QueryEscape(rawURL)

		payload, err := f.request(ctx, proxied)
		if err != nil {
			f.logger.Warn("proxy failed", "proxy", idx, "error", err)
			continue
		}

		f.mu.Lock()
		f.currentProxy = idx
		f.mu.Unlock()
		f.logger.Info("fetched via proxy", "proxy", idx, "url", rawURL)
		return payload, true
	}
	return nil, false
}

func (f *Fetcher) request(ctx context.Context, u string) (json.RawMessage, error) {
	resp, err := f.http.R().SetContext(ctx).Get(u)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}
	body := resp.Body()
	if !json.Valid(body) {
		return nil, errors.New("response is not valid JSON")
	}
	return json.RawMessage(body), nil
}

package configs

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// HTTP listen address for the dashboard API
	Listen string `json:"listen" yaml:"listen"`

	// 报价货币 (vs_currency for all market requests)
	Currency string `json:"currency" yaml:"currency"`

	// Upstream endpoints
	MarketURL    string `json:"market_url" yaml:"market_url"`
	NewsURL      string `json:"news_url" yaml:"news_url"`
	FearGreedURL string `json:"fear_greed_url" yaml:"fear_greed_url"`

	// Ordered CORS relay endpoints, tried round-robin after a direct
	// fetch fails
	CORSProxies []string `json:"cors_proxies" yaml:"cors_proxies"`

	// Path of the SQLite document store holding alerts and portfolio
	StoragePath string `json:"storage_path" yaml:"storage_path"`

	TopCoinsLimit int      `json:"top_coins_limit" yaml:"top_coins_limit"`
	NewsLimit     int      `json:"news_limit" yaml:"news_limit"`
	TickerCoins   []string `json:"ticker_coins" yaml:"ticker_coins"`

	// Timer intervals, duration strings ("30s", "2m")
	CacheTTL         string `json:"cache_ttl" yaml:"cache_ttl"`
	CacheSweepEvery  string `json:"cache_sweep_every" yaml:"cache_sweep_every"`
	CacheMaxAge      string `json:"cache_max_age" yaml:"cache_max_age"`
	TickerRefresh    string `json:"ticker_refresh" yaml:"ticker_refresh"`
	OverviewRefresh  string `json:"overview_refresh" yaml:"overview_refresh"`
	AlertCheckEvery  string `json:"alert_check_every" yaml:"alert_check_every"`
	PortfolioRefresh string `json:"portfolio_refresh" yaml:"portfolio_refresh"`

	// Upstream rate limit, requests per second against the direct API
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`
}

// Intervals is Config's timer block parsed into durations.
type Intervals struct {
	CacheTTL         time.Duration
	CacheSweepEvery  time.Duration
	CacheMaxAge      time.Duration
	TickerRefresh    time.Duration
	OverviewRefresh  time.Duration
	AlertCheckEvery  time.Duration
	PortfolioRefresh time.Duration
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Listen:       ":8087",
		Currency:     "usd",
		MarketURL:    "https://api.coingecko.com/api/v3",
		NewsURL:      "https://min-api.cryptocompare.com/data/v2",
		FearGreedURL: "https://api.alternative.me/fng",
		CORSProxies: []string{
			"https://api.allorigins.win/raw?url=",
			"https://cors-anywhere.herokuapp.com/",
			"https://thingproxy.freeboard.io/fetch/",
		},
		StoragePath:      "coinwatch.db",
		TopCoinsLimit:    50,
		NewsLimit:        6,
		TickerCoins:      []string{"bitcoin", "ethereum", "binancecoin", "solana", "cardano"},
		CacheTTL:         "60s",
		CacheSweepEvery:  "60s",
		CacheMaxAge:      "300s",
		TickerRefresh:    "30s",
		OverviewRefresh:  "60s",
		AlertCheckEvery:  "30s",
		PortfolioRefresh: "120s",
		RateLimit:        0.5,
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Intervals parses the duration fields, falling back to the default for
// any field that is empty or malformed.
func (c *Config) Intervals() Intervals {
	def := Default()
	return Intervals{
		CacheTTL:         parseDuration(c.CacheTTL, def.CacheTTL),
		CacheSweepEvery:  parseDuration(c.CacheSweepEvery, def.CacheSweepEvery),
		CacheMaxAge:      parseDuration(c.CacheMaxAge, def.CacheMaxAge),
		TickerRefresh:    parseDuration(c.TickerRefresh, def.TickerRefresh),
		OverviewRefresh:  parseDuration(c.OverviewRefresh, def.OverviewRefresh),
		AlertCheckEvery:  parseDuration(c.AlertCheckEvery, def.AlertCheckEvery),
		PortfolioRefresh: parseDuration(c.PortfolioRefresh, def.PortfolioRefresh),
	}
}

func parseDuration(s, fallback string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

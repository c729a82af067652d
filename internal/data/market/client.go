// Package market is the typed client over the resilient fetcher. Each
// accessor builds its canonical URL, fetches through the fallback
// ladder and normalizes the wire shape at this boundary. A malformed or
// missing item degrades to a skip, never to a failed batch.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/songzhibin97/coinwatch/internal/models"
)

// Fetcher is the resilient fetch dependency.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (json.RawMessage, error)
}

// Client exposes the typed market-data accessors.
type Client struct {
	marketURL    string
	newsURL      string
	fearGreedURL string
	fetcher      Fetcher
}

// Config holds the upstream endpoints.
type Config struct {
	MarketURL    string
	NewsURL      string
	FearGreedURL string
}

func NewClient(cfg Config, fetcher Fetcher) *Client {
	return &Client{
		marketURL:    strings.TrimRight(cfg.MarketURL, "/"),
		newsURL:      strings.TrimRight(cfg.NewsURL, "/"),
		fearGreedURL: strings.TrimRight(cfg.FearGreedURL, "/"),
		fetcher:      fetcher,
	}
}

// GlobalData returns the global market snapshot.
func (c *Client) GlobalData(ctx context.Context) (*models.GlobalStats, error) {
	raw, err := c.fetcher.Fetch(ctx, c.marketURL+"/global")
	if err != nil {
		return nil, err
	}
	var wrapper struct {
		Data models.GlobalStats `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, fmt.Errorf("malformed global payload: %w", err)
	}
	return &wrapper.Data, nil
}

// TopCoins returns the top-N coins by market cap with 1h/24h/7d change
// and the 7d sparkline.
func (c *Client) TopCoins(ctx context.Context, limit int, currency string) ([]models.CoinMarket, error) {
	u := fmt.Sprintf(
		"%s/coins/markets?vs_currency=%s&order=market_cap_desc&per_page=%d&page=1&sparkline=true&price_change_percentage=1h%%2C24h%%2C7d",
		c.marketURL, currency, limit)
	raw, err := c.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	var coins []models.CoinMarket
	if err := json.Unmarshal(raw, &coins); err != nil {
		return nil, fmt.Errorf("malformed markets payload: %w", err)
	}
	return coins, nil
}

// CoinDetail returns the single-coin view.
func (c *Client) CoinDetail(ctx context.Context, coinID string) (*models.CoinDetail, error) {
	u := fmt.Sprintf(
		"%s/coins/%s?localization=false&tickers=false&market_data=true&community_data=false&developer_data=false&sparkline=true",
		c.marketURL, url.PathEscape(coinID))
	raw, err := c.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	var detail struct {
		ID          string `json:"id"`
		Symbol      string `json:"symbol"`
		Name        string `json:"name"`
		Description struct {
			En string `json:"en"`
		} `json:"description"`
		Image struct {
			Large string `json:"large"`
		} `json:"image"`
		MarketData json.RawMessage `json:"market_data"`
	}
	if err := json.Unmarshal(raw, &detail); err != nil {
		return nil, fmt.Errorf("malformed coin payload: %w", err)
	}
	out := &models.CoinDetail{
		ID:          detail.ID,
		Symbol:      detail.Symbol,
		Name:        detail.Name,
		Description: detail.Description.En,
		Image:       detail.Image.Large,
	}
	if len(detail.MarketData) > 0 {
		if err := json.Unmarshal(detail.MarketData, &out.MarketData); err != nil {
			return nil, fmt.Errorf("malformed coin market data: %w", err)
		}
	}
	return out, nil
}

// MarketChart returns historical price/cap/volume series for a coin
// over a day-count window.
func (c *Client) MarketChart(ctx context.Context, coinID string, days int, currency string) (*models.ChartSeries, error) {
	u := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=%s&days=%d",
		c.marketURL, url.PathEscape(coinID), currency, days)
	raw, err := c.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	var wire struct {
		Prices       [][2]float64 `json:"prices"`
		MarketCaps   [][2]float64 `json:"market_caps"`
		TotalVolumes [][2]float64 `json:"total_volumes"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("malformed chart payload: %w", err)
	}
	return &models.ChartSeries{
		Prices:     toPoints(wire.Prices),
		MarketCaps: toPoints(wire.MarketCaps),
		Volumes:    toPoints(wire.TotalVolumes),
	}, nil
}

// OHLC returns candlestick bars for a coin over a day-count window.
func (c *Client) OHLC(ctx context.Context, coinID string, days int, currency string) ([]models.OHLCBar, error) {
	u := fmt.Sprintf("%s/coins/%s/ohlc?vs_currency=%s&days=%d",
		c.marketURL, url.PathEscape(coinID), currency, days)
	raw, err := c.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	var wire [][5]float64
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("malformed ohlc payload: %w", err)
	}
	bars := make([]models.OHLCBar, 0, len(wire))
	for _, b := range wire {
		bars = append(bars, models.OHLCBar{
			Timestamp: time.UnixMilli(int64(b[0])),
			Open:      b[1],
			High:      b[2],
			Low:       b[3],
			Close:     b[4],
		})
	}
	return bars, nil
}

// Trending returns the trending-search coins.
func (c *Client) Trending(ctx context.Context) ([]models.TrendingCoin, error) {
	raw, err := c.fetcher.Fetch(ctx, c.marketURL+"/search/trending")
	if err != nil {
		return nil, err
	}
	var wire struct {
		Coins []struct {
			Item models.TrendingCoin `json:"item"`
		} `json:"coins"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("malformed trending payload: %w", err)
	}
	coins := make([]models.TrendingCoin, 0, len(wire.Coins))
	for _, entry := range wire.Coins {
		coins = append(coins, entry.Item)
	}
	return coins, nil
}

// Search runs a free-text coin search.
func (c *Client) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	u := fmt.Sprintf("%s/search?query=%s", c.marketURL, url.QueryEscape(query))
	raw, err := c.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	var wire struct {
		Coins []models.SearchResult `json:"coins"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("malformed search payload: %w", err)
	}
	return wire.Coins, nil
}

// SimplePrices returns current price, 24h change and 24h volume for a
// set of coin ids. Ids are sorted into the URL so equal sets share one
// cache key. Coins missing from the response are skipped.
func (c *Client) SimplePrices(ctx context.Context, coinIDs []string, currency string) (map[string]models.PriceQuote, error) {
	if len(coinIDs) == 0 {
		return map[string]models.PriceQuote{}, nil
	}
	ids := make([]string, len(coinIDs))
	copy(ids, coinIDs)
	sort.Strings(ids)

	u := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s&include_24hr_change=true&include_24hr_vol=true",
		c.marketURL, url.QueryEscape(strings.Join(ids, ",")), currency)
	raw, err := c.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	var wire map[string]map[string]float64
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("malformed price payload: %w", err)
	}

	quotes := make(map[string]models.PriceQuote, len(wire))
	for id, fields := range wire {
		price, ok := fields[currency]
		if !ok {
			continue
		}
		quotes[id] = models.PriceQuote{
			Price:     price,
			Change24h: fields[currency+"_24h_change"],
			Volume24h: fields[currency+"_24h_vol"],
		}
	}
	return quotes, nil
}

// News returns the latest articles.
func (c *Client) News(ctx context.Context, limit int) ([]models.NewsArticle, error) {
	u := fmt.Sprintf("%s/news/?lang=EN&limit=%d", c.newsURL, limit)
	raw, err := c.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	var wire struct {
		Data []struct {
			ID          string `json:"id"`
			Title       string `json:"title"`
			Body        string `json:"body"`
			URL         string `json:"url"`
			Source      string `json:"source"`
			PublishedOn int64  `json:"published_on"`
			ImageURL    string `json:"imageurl"`
		} `json:"Data"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("malformed news payload: %w", err)
	}
	articles := make([]models.NewsArticle, 0, len(wire.Data))
	for _, a := range wire.Data {
		articles = append(articles, models.NewsArticle{
			ID:          a.ID,
			Title:       a.Title,
			Body:        a.Body,
			URL:         a.URL,
			Source:      a.Source,
			PublishedOn: time.Unix(a.PublishedOn, 0),
			ImageURL:    a.ImageURL,
		})
	}
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, nil
}

// FearGreed returns the latest fear/greed index reading.
func (c *Client) FearGreed(ctx context.Context) (*models.FearGreed, error) {
	raw, err := c.fetcher.Fetch(ctx, c.fearGreedURL+"/?limit=1")
	if err != nil {
		return nil, err
	}
	var wire struct {
		Data []struct {
			Value          string `json:"value"`
			Classification string `json:"value_classification"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil || len(wire.Data) == 0 {
		return nil, fmt.Errorf("malformed fear/greed payload")
	}
	value, err := strconv.Atoi(wire.Data[0].Value)
	if err != nil {
		return nil, fmt.Errorf("malformed fear/greed value %q", wire.Data[0].Value)
	}
	return &models.FearGreed{
		Value:          value,
		Classification: wire.Data[0].Classification,
	}, nil
}

// SupportedCurrencies lists the vs_currency values the market API accepts.
func (c *Client) SupportedCurrencies(ctx context.Context) ([]string, error) {
	raw, err := c.fetcher.Fetch(ctx, c.marketURL+"/simple/supported_vs_currencies")
	if err != nil {
		return nil, err
	}
	var currencies []string
	if err := json.Unmarshal(raw, &currencies); err != nil {
		return nil, fmt.Errorf("malformed currencies payload: %w", err)
	}
	return currencies, nil
}

func toPoints(pairs [][2]float64) []models.ChartPoint {
	points := make([]models.ChartPoint, 0, len(pairs))
	for _, p := range pairs {
		points = append(points, models.ChartPoint{
			Timestamp: time.UnixMilli(int64(p[0])),
			Value:     p[1],
		})
	}
	return points
}

// Package mockdata bundles the static fallback dataset served when the
// direct API, every CORS relay, and the stale cache have all come up
// empty. Payloads mirror the upstream wire shapes so the client parses
// them through the same path as live responses.
package mockdata

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Store holds the canned payloads, marshaled once at construction.
type Store struct {
	global    json.RawMessage
	cryptos   json.RawMessage
	prices    json.RawMessage
	fearGreed json.RawMessage
	news      json.RawMessage
}

func New() *Store {
	now := time.Now()
	return &Store{
		global:    mustMarshal(globalData()),
		cryptos:   mustMarshal(cryptoData()),
		prices:    mustMarshal(priceData()),
		fearGreed: mustMarshal(fearGreedData(now)),
		news:      mustMarshal(newsData(now)),
	}
}

// ForURL selects the canned payload matching the request's path. The
// second return is false when no mock covers the URL.
func (s *Store) ForURL(url string) (json.RawMessage, bool) {
	switch {
	case strings.Contains(url, "/global"):
		return s.global, true
	case strings.Contains(url, "/coins/markets"):
		return s.cryptos, true
	case strings.Contains(url, "/simple/price"):
		return s.prices, true
	case strings.Contains(url, "alternative.me/fng") || strings.Contains(url, "/fng"):
		return s.fearGreed, true
	case strings.Contains(url, "cryptocompare.com") && strings.Contains(url, "news"):
		return s.news, true
	}
	return nil, false
}

func mustMarshal(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("mockdata: %v", err))
	}
	return raw
}

func globalData() any {
	return map[string]any{
		"data": map[string]any{
			"total_market_cap":      map[string]float64{"usd": 2500000000000},
			"total_volume":          map[string]float64{"usd": 95000000000},
			"market_cap_percentage": map[string]float64{"btc": 42.5},
		},
	}
}

type mockCoin struct {
	ID            string  `json:"id"`
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Image         string  `json:"image"`
	CurrentPrice  float64 `json:"current_price"`
	MarketCap     float64 `json:"market_cap"`
	MarketCapRank int     `json:"market_cap_rank"`
	TotalVolume   float64 `json:"total_volume"`
	High24h       float64 `json:"high_24h"`
	Low24h        float64 `json:"low_24h"`
	Change24h     float64 `json:"price_change_24h"`
	ChangePct24h  float64 `json:"price_change_percentage_24h"`
	ChangePct7d   float64 `json:"price_change_percentage_7d_in_currency"`
	Sparkline     struct {
		Price []float64 `json:"price"`
	} `json:"sparkline_in_7d"`
}

func coin(id, symbol, name, image string, price, cap float64, rank int, vol, high, low, chg, chgPct, chgPct7d float64, spark []float64) mockCoin {
	c := mockCoin{
		ID: id, Symbol: symbol, Name: name, Image: image,
		CurrentPrice: price, MarketCap: cap, MarketCapRank: rank,
		TotalVolume: vol, High24h: high, Low24h: low,
		Change24h: chg, ChangePct24h: chgPct, ChangePct7d: chgPct7d,
	}
	c.Sparkline.Price = spark
	return c
}

func cryptoData() []mockCoin {
	const img = "https://assets.coingecko.com/coins/images"
	return []mockCoin{
		coin("bitcoin", "btc", "Bitcoin", img+"/1/large/bitcoin.png",
			65000, 1280000000000, 1, 25000000000, 67000, 63000, 1200, 1.87, -2.45,
			[]float64{64000, 65000, 66000, 65500, 64800, 65200, 65000}),
		coin("ethereum", "eth", "Ethereum", img+"/279/large/ethereum.png",
			3200, 385000000000, 2, 15000000000, 3300, 3100, 75, 2.4, -1.2,
			[]float64{3150, 3200, 3250, 3180, 3220, 3190, 3200}),
		coin("binancecoin", "bnb", "BNB", img+"/825/large/bnb-icon2_2x.png",
			580, 89000000000, 3, 1500000000, 595, 575, 8.5, 1.49, 3.2,
			[]float64{570, 575, 580, 585, 578, 582, 580}),
		coin("cardano", "ada", "Cardano", img+"/975/large/cardano.png",
			0.48, 17000000000, 4, 800000000, 0.51, 0.46, 0.015, 3.2, -0.8,
			[]float64{0.47, 0.48, 0.49, 0.47, 0.48, 0.49, 0.48}),
		coin("solana", "sol", "Solana", img+"/4128/large/solana.png",
			145, 65000000000, 5, 2200000000, 150, 142, 3.2, 2.26, 4.1,
			[]float64{140, 142, 145, 148, 144, 146, 145}),
	}
}

func priceData() map[string]map[string]float64 {
	return map[string]map[string]float64{
		"bitcoin":     {"usd": 65000, "usd_24h_change": 1.87, "usd_24h_vol": 25000000000},
		"ethereum":    {"usd": 3200, "usd_24h_change": 2.4, "usd_24h_vol": 15000000000},
		"binancecoin": {"usd": 580, "usd_24h_change": 1.49, "usd_24h_vol": 1500000000},
		"cardano":     {"usd": 0.48, "usd_24h_change": 3.2, "usd_24h_vol": 800000000},
		"solana":      {"usd": 145, "usd_24h_change": 2.26, "usd_24h_vol": 2200000000},
		"polkadot":    {"usd": 7.2, "usd_24h_change": -0.8, "usd_24h_vol": 250000000},
		"chainlink":   {"usd": 15.5, "usd_24h_change": 1.2, "usd_24h_vol": 400000000},
		"litecoin":    {"usd": 85, "usd_24h_change": 0.9, "usd_24h_vol": 800000000},
	}
}

func fearGreedData(now time.Time) any {
	return map[string]any{
		"data": []map[string]any{{
			"value":                "65",
			"value_classification": "Greed",
			"timestamp":            fmt.Sprintf("%d", now.Unix()),
		}},
	}
}

func newsData(now time.Time) any {
	article := func(id, title, body, source string, age time.Duration) map[string]any {
		return map[string]any{
			"id":           id,
			"title":        title,
			"body":         body,
			"url":          "#",
			"source":       source,
			"published_on": now.Add(-age).Unix(),
			"imageurl":     "https://via.placeholder.com/300x200",
		}
	}
	return map[string]any{
		"Data": []map[string]any{
			article("1", "Bitcoin Reaches New All-Time High Amid Institutional Adoption",
				"Major corporations continue to add Bitcoin to their treasury reserves...",
				"CryptoNews", time.Hour),
			article("2", "Ethereum 2.0 Staking Reaches New Milestone",
				"The amount of ETH staked in Ethereum 2.0 has reached a significant milestone...",
				"EthereumNews", 2*time.Hour),
			article("3", "DeFi Total Value Locked Surpasses $100 Billion",
				"Decentralized Finance protocols see unprecedented growth...",
				"DeFiPulse", 3*time.Hour),
		},
	}
}

package models

import "time"

// GlobalStats is the normalized global market snapshot.
type GlobalStats struct {
	TotalMarketCap         map[string]float64 `json:"total_market_cap"`
	TotalVolume            map[string]float64 `json:"total_volume"`
	MarketCapPercentage    map[string]float64 `json:"market_cap_percentage"`
	MarketCapChange24hUSD  float64            `json:"market_cap_change_percentage_24h_usd"`
	ActiveCryptocurrencies int                `json:"active_cryptocurrencies"`
}

// CoinMarket is one row of the top-coins-by-market-cap listing.
type CoinMarket struct {
	ID                       string    `json:"id"`
	Symbol                   string    `json:"symbol"`
	Name                     string    `json:"name"`
	Image                    string    `json:"image"`
	CurrentPrice             float64   `json:"current_price"`
	MarketCap                float64   `json:"market_cap"`
	MarketCapRank            int       `json:"market_cap_rank"`
	TotalVolume              float64   `json:"total_volume"`
	High24h                  float64   `json:"high_24h"`
	Low24h                   float64   `json:"low_24h"`
	PriceChange24h           float64   `json:"price_change_24h"`
	PriceChangePercentage1h  float64   `json:"price_change_percentage_1h_in_currency"`
	PriceChangePercentage24h float64   `json:"price_change_percentage_24h"`
	PriceChangePercentage7d  float64   `json:"price_change_percentage_7d_in_currency"`
	Sparkline                Sparkline `json:"sparkline_in_7d"`
}

// Sparkline holds the 7d price series attached to a market row.
type Sparkline struct {
	Price []float64 `json:"price"`
}

// CoinDetail is the single-coin view with its embedded market data.
type CoinDetail struct {
	ID          string `json:"id"`
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	MarketData  struct {
		CurrentPrice             map[string]float64 `json:"current_price"`
		MarketCap                map[string]float64 `json:"market_cap"`
		TotalVolume              map[string]float64 `json:"total_volume"`
		PriceChangePercentage24h float64            `json:"price_change_percentage_24h"`
		High24h                  map[string]float64 `json:"high_24h"`
		Low24h                   map[string]float64 `json:"low_24h"`
	} `json:"market_data"`
}

// ChartPoint is one [timestamp, value] sample of a historical series.
type ChartPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// ChartSeries is the market-chart response for one coin over a day window.
type ChartSeries struct {
	Prices     []ChartPoint `json:"prices"`
	MarketCaps []ChartPoint `json:"market_caps"`
	Volumes    []ChartPoint `json:"total_volumes"`
}

// OHLCBar is one candlestick sample.
type OHLCBar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
}

// TrendingCoin is one entry of the trending-search listing.
type TrendingCoin struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	MarketCapRank int    `json:"market_cap_rank"`
	Thumb         string `json:"thumb"`
}

// SearchResult is one coin returned by free-text search.
type SearchResult struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	MarketCapRank int    `json:"market_cap_rank"`
	Thumb         string `json:"thumb"`
}

// PriceQuote is the batched simple-price entry for one coin.
type PriceQuote struct {
	Price     float64 `json:"price"`
	Change24h float64 `json:"change_24h"`
	Volume24h float64 `json:"volume_24h"`
}

// NewsArticle is one normalized news item.
type NewsArticle struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedOn time.Time `json:"published_on"`
	ImageURL    string    `json:"image_url"`
}

// FearGreed is the latest fear/greed index reading.
type FearGreed struct {
	Value          int    `json:"value"`
	Classification string `json:"classification"`
}

// AlertCondition is the direction a price alert watches.
type AlertCondition string

const (
	ConditionAbove AlertCondition = "above"
	ConditionBelow AlertCondition = "below"
)

// Valid reports whether the condition is one of the two known directions.
func (c AlertCondition) Valid() bool {
	return c == ConditionAbove || c == ConditionBelow
}

// PriceAlert is one persisted price alert.
// A triggered alert stays in the collection until removed or cleared,
// and is excluded from evaluation until re-enabled.
type PriceAlert struct {
	ID           string         `json:"id"`
	CoinID       string         `json:"coin_id"`
	TargetPrice  float64        `json:"target_price"`
	Condition    AlertCondition `json:"condition"`
	Enabled      bool           `json:"enabled"`
	Triggered    bool           `json:"triggered"`
	CreatedAt    time.Time      `json:"created_at"`
	TriggeredAt  *time.Time     `json:"triggered_at,omitempty"`
	TriggerPrice *float64       `json:"trigger_price,omitempty"`
}

// Armed reports whether the alert participates in evaluation.
func (a PriceAlert) Armed() bool {
	return a.Enabled && !a.Triggered
}

// ShouldTrigger checks the alert condition against a current price.
// Comparison is boundary-inclusive on both directions.
func (a PriceAlert) ShouldTrigger(price float64) bool {
	switch a.Condition {
	case ConditionAbove:
		return price >= a.TargetPrice
	case ConditionBelow:
		return price <= a.TargetPrice
	default:
		return false
	}
}

// Holding is one persisted portfolio position. CoinID is unique within
// the collection. PurchasePrice zero means the cost basis is unknown.
type Holding struct {
	CoinID        string    `json:"coin_id"`
	Amount        float64   `json:"amount"`
	PurchasePrice float64   `json:"purchase_price"`
	AddedAt       time.Time `json:"added_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HoldingValuation is a holding joined with live price data.
type HoldingValuation struct {
	Holding
	CurrentPrice  float64 `json:"current_price"`
	CurrentValue  float64 `json:"current_value"`
	CostBasis     float64 `json:"cost_basis"`
	PnL           float64 `json:"pnl"`
	PnLPercentage float64 `json:"pnl_percentage"`
	Change24h     float64 `json:"change_24h"`
}

// PortfolioValuation aggregates the ledger against live prices.
// Holdings without price data are excluded from the totals.
type PortfolioValuation struct {
	TotalValue         float64            `json:"total_value"`
	TotalCost          float64            `json:"total_cost"`
	TotalPnL           float64            `json:"total_pnl"`
	TotalPnLPercentage float64            `json:"total_pnl_percentage"`
	Holdings           []HoldingValuation `json:"holdings"`
}

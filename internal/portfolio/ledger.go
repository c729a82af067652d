// Package portfolio owns the persisted holdings collection and its
// valuation against live prices. One holding per coin; adding to an
// existing position merges amounts and recomputes a weighted-average
// purchase price.
package portfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/shopspring/decimal"

	"github.com/songzhibin97/coinwatch/internal/data"
	"github.com/songzhibin97/coinwatch/internal/models"
)

// StorageKey is the fixed document key holding the portfolio.
const StorageKey = "crypto-portfolio"

// Ledger is the persisted holdings collection.
type Ledger struct {
	prices   data.PriceSource
	store    data.DocumentStore
	clock    clock.Clock
	logger   *slog.Logger
	currency string

	// mu serializes read-modify-write cycles, the whole collection is
	// rewritten on every mutation.
	mu       sync.Mutex
	holdings []models.Holding
}

// Config wires a Ledger.
type Config struct {
	Prices   data.PriceSource
	Store    data.DocumentStore
	Clock    clock.Clock
	Logger   *slog.Logger
	Currency string
}

// NewLedger builds the ledger and loads any persisted holdings.
func NewLedger(ctx context.Context, cfg Config) *Ledger {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	l := &Ledger{
		prices:   cfg.Prices,
		store:    cfg.Store,
		clock:    clk,
		logger:   logger,
		currency: cfg.Currency,
	}
	l.load(ctx)
	return l
}

func (l *Ledger) load(ctx context.Context) {
	raw, err := l.store.Get(ctx, StorageKey)
	if err != nil {
		l.logger.Error("failed to load portfolio", "error", err)
		return
	}
	if raw == nil {
		return
	}
	if err := json.Unmarshal(raw, &l.holdings); err != nil {
		l.logger.Error("corrupt portfolio document, starting empty", "error", err)
		l.holdings = nil
	}
}

func (l *Ledger) persist(ctx context.Context) {
	raw, err := json.Marshal(l.holdings)
	if err != nil {
		l.logger.Error("failed to marshal portfolio", "error", err)
		return
	}
	if err := l.store.Put(ctx, StorageKey, raw); err != nil {
		l.logger.Error("failed to persist portfolio", "error", err)
	}
}

// AddCoin inserts a holding or merges into an existing one. When a
// purchase price is supplied (> 0) the merged position carries the
// weighted average of both lots; otherwise the recorded basis stands.
func (l *Ledger) AddCoin(ctx context.Context, coinID string, amount, purchasePrice float64) (models.Holding, error) {
	if coinID == "" {
		return models.Holding{}, fmt.Errorf("coin id is required")
	}
	if amount <= 0 {
		return models.Holding{}, fmt.Errorf("amount must be positive, got %v", amount)
	}
	if purchasePrice < 0 {
		return models.Holding{}, fmt.Errorf("purchase price cannot be negative, got %v", purchasePrice)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	for i := range l.holdings {
		h := &l.holdings[i]
		if h.CoinID != coinID {
			continue
		}
		if purchasePrice > 0 {
			h.PurchasePrice = weightedAverage(h.Amount, h.PurchasePrice, amount, purchasePrice)
		}
		h.Amount += amount
		h.UpdatedAt = now
		l.persist(ctx)
		return *h, nil
	}

	holding := models.Holding{
		CoinID:        coinID,
		Amount:        amount,
		PurchasePrice: purchasePrice,
		AddedAt:       now,
		UpdatedAt:     now,
	}
	l.holdings = append(l.holdings, holding)
	l.persist(ctx)
	return holding, nil
}

// weightedAverage blends two lots through decimal math so long float
// chains don't drift the recorded basis.
func weightedAverage(oldAmt, oldPrice, addAmt, addPrice float64) float64 {
	oldCost := decimal.NewFromFloat(oldAmt).Mul(decimal.NewFromFloat(oldPrice))
	addCost := decimal.NewFromFloat(addAmt).Mul(decimal.NewFromFloat(addPrice))
	total := decimal.NewFromFloat(oldAmt).Add(decimal.NewFromFloat(addAmt))
	avg, _ := oldCost.Add(addCost).Div(total).Float64()
	return avg
}

// RemoveCoin deletes the holding for coinID.
func (l *Ledger) RemoveCoin(ctx context.Context, coinID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.removeLocked(ctx, coinID)
}

func (l *Ledger) removeLocked(ctx context.Context, coinID string) bool {
	for i, h := range l.holdings {
		if h.CoinID == coinID {
			l.holdings = append(l.holdings[:i], l.holdings[i+1:]...)
			l.persist(ctx)
			return true
		}
	}
	return false
}

// SetAmount replaces a holding's amount. An amount of zero or less
// removes the holding entirely.
func (l *Ledger) SetAmount(ctx context.Context, coinID string, amount float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount <= 0 {
		return l.removeLocked(ctx, coinID)
	}
	for i := range l.holdings {
		if l.holdings[i].CoinID != coinID {
			continue
		}
		l.holdings[i].Amount = amount
		l.holdings[i].UpdatedAt = l.clock.Now()
		l.persist(ctx)
		return true
	}
	return false
}

// Holdings returns a snapshot of the raw collection.
func (l *Ledger) Holdings() []models.Holding {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Holding, len(l.holdings))
	copy(out, l.holdings)
	return out
}

// Valuate joins the ledger against live prices. Holdings without price
// data are left out of the result and the totals; this degrades the
// view rather than failing it. Result is ranked by descending current
// value.
func (l *Ledger) Valuate(ctx context.Context) (*models.PortfolioValuation, error) {
	holdings := l.Holdings()
	if len(holdings) == 0 {
		return &models.PortfolioValuation{Holdings: []models.HoldingValuation{}}, nil
	}

	coinIDs := make([]string, 0, len(holdings))
	for _, h := range holdings {
		coinIDs = append(coinIDs, h.CoinID)
	}
	quotes, err := l.prices.SimplePrices(ctx, coinIDs, l.currency)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch portfolio prices: %w", err)
	}

	valuation := &models.PortfolioValuation{Holdings: []models.HoldingValuation{}}
	totalValue := decimal.Zero
	totalCost := decimal.Zero

	for _, h := range holdings {
		quote, ok := quotes[h.CoinID]
		if !ok {
			l.logger.Warn("no price data for holding, skipping", "coin", h.CoinID)
			continue
		}

		amount := decimal.NewFromFloat(h.Amount)
		value := amount.Mul(decimal.NewFromFloat(quote.Price))
		cost := amount.Mul(decimal.NewFromFloat(h.PurchasePrice))
		pnl := value.Sub(cost)

		hv := models.HoldingValuation{
			Holding:      h,
			CurrentPrice: quote.Price,
			Change24h:    quote.Change24h,
		}
		hv.CurrentValue, _ = value.Float64()
		hv.CostBasis, _ = cost.Float64()
		hv.PnL, _ = pnl.Float64()
		if cost.IsPositive() {
			pct, _ := pnl.Div(cost).Mul(decimal.NewFromInt(100)).Float64()
			hv.PnLPercentage = pct
		}

		valuation.Holdings = append(valuation.Holdings, hv)
		totalValue = totalValue.Add(value)
		totalCost = totalCost.Add(cost)
	}

	sort.Slice(valuation.Holdings, func(i, j int) bool {
		return valuation.Holdings[i].CurrentValue > valuation.Holdings[j].CurrentValue
	})

	totalPnL := totalValue.Sub(totalCost)
	valuation.TotalValue, _ = totalValue.Float64()
	valuation.TotalCost, _ = totalCost.Float64()
	valuation.TotalPnL, _ = totalPnL.Float64()
	if totalCost.IsPositive() {
		pct, _ := totalPnL.Div(totalCost).Mul(decimal.NewFromInt(100)).Float64()
		valuation.TotalPnLPercentage = pct
	}
	return valuation, nil
}

package portfolio

import (
	"context"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/coinwatch/internal/models"
	"github.com/songzhibin97/coinwatch/internal/storage"
)

type stubPrices struct {
	quotes map[string]models.PriceQuote
	calls  int
}

func (s *stubPrices) SimplePrices(_ context.Context, coinIDs []string, _ string) (map[string]models.PriceQuote, error) {
	s.calls++
	out := make(map[string]models.PriceQuote)
	for _, id := range coinIDs {
		if q, ok := s.quotes[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

func newTestLedger(t *testing.T, prices *stubPrices) (*Ledger, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	ledger := NewLedger(context.Background(), Config{
		Prices:   prices,
		Store:    store,
		Clock:    clock.NewMock(),
		Currency: "usd",
	})
	return ledger, store
}

func TestLedger_AddCoinValidation(t *testing.T) {
	ledger, _ := newTestLedger(t, &stubPrices{})
	ctx := context.Background()

	_, err := ledger.AddCoin(ctx, "", 1, 0)
	assert.Error(t, err)
	_, err = ledger.AddCoin(ctx, "bitcoin", 0, 0)
	assert.Error(t, err)
	_, err = ledger.AddCoin(ctx, "bitcoin", -1, 0)
	assert.Error(t, err)
	_, err = ledger.AddCoin(ctx, "bitcoin", 1, -100)
	assert.Error(t, err)
}

func TestLedger_MergeComputesWeightedAverage(t *testing.T) {
	ledger, _ := newTestLedger(t, &stubPrices{})
	ctx := context.Background()

	_, err := ledger.AddCoin(ctx, "x", 2, 100)
	require.NoError(t, err)
	merged, err := ledger.AddCoin(ctx, "x", 2, 200)
	require.NoError(t, err)

	assert.Equal(t, 4.0, merged.Amount)
	assert.Equal(t, 150.0, merged.PurchasePrice)

	holdings := ledger.Holdings()
	require.Len(t, holdings, 1, "one holding per coin id")
}

func TestLedger_MergeWithoutPriceKeepsBasis(t *testing.T) {
	ledger, _ := newTestLedger(t, &stubPrices{})
	ctx := context.Background()

	_, err := ledger.AddCoin(ctx, "x", 2, 100)
	require.NoError(t, err)
	merged, err := ledger.AddCoin(ctx, "x", 3, 0) // unknown lot price
	require.NoError(t, err)

	assert.Equal(t, 5.0, merged.Amount)
	assert.Equal(t, 100.0, merged.PurchasePrice, "average unchanged when no price supplied")
}

func TestLedger_SetAmountZeroRemoves(t *testing.T) {
	prices := &stubPrices{quotes: map[string]models.PriceQuote{
		"x": {Price: 50},
	}}
	ledger, _ := newTestLedger(t, prices)
	ctx := context.Background()

	_, err := ledger.AddCoin(ctx, "x", 2, 100)
	require.NoError(t, err)

	require.True(t, ledger.SetAmount(ctx, "x", 0))
	assert.Empty(t, ledger.Holdings())

	valuation, err := ledger.Valuate(ctx)
	require.NoError(t, err)
	assert.Empty(t, valuation.Holdings)
	assert.Zero(t, valuation.TotalValue)
}

func TestLedger_SetAmountUpdates(t *testing.T) {
	ledger, _ := newTestLedger(t, &stubPrices{})
	ctx := context.Background()

	_, err := ledger.AddCoin(ctx, "x", 2, 100)
	require.NoError(t, err)

	require.True(t, ledger.SetAmount(ctx, "x", 7))
	assert.Equal(t, 7.0, ledger.Holdings()[0].Amount)
	assert.False(t, ledger.SetAmount(ctx, "unknown", 3))
}

func TestLedger_ValuateComputesPnLAndRanking(t *testing.T) {
	prices := &stubPrices{quotes: map[string]models.PriceQuote{
		"bitcoin":  {Price: 65000, Change24h: 1.87},
		"ethereum": {Price: 3200, Change24h: 2.4},
	}}
	ledger, _ := newTestLedger(t, prices)
	ctx := context.Background()

	_, err := ledger.AddCoin(ctx, "ethereum", 10, 4000) // value 32000, cost 40000
	require.NoError(t, err)
	_, err = ledger.AddCoin(ctx, "bitcoin", 1, 50000) // value 65000, cost 50000
	require.NoError(t, err)

	valuation, err := ledger.Valuate(ctx)
	require.NoError(t, err)
	require.Len(t, valuation.Holdings, 2)

	// Ranked by descending current value
	assert.Equal(t, "bitcoin", valuation.Holdings[0].CoinID)
	assert.Equal(t, "ethereum", valuation.Holdings[1].CoinID)

	btc := valuation.Holdings[0]
	assert.Equal(t, 65000.0, btc.CurrentValue)
	assert.Equal(t, 50000.0, btc.CostBasis)
	assert.Equal(t, 15000.0, btc.PnL)
	assert.InDelta(t, 30.0, btc.PnLPercentage, 1e-9)
	assert.Equal(t, 1.87, btc.Change24h)

	assert.Equal(t, 97000.0, valuation.TotalValue)
	assert.Equal(t, 90000.0, valuation.TotalCost)
	assert.Equal(t, 7000.0, valuation.TotalPnL)
	assert.InDelta(t, 7.777777777, valuation.TotalPnLPercentage, 1e-6)
}

func TestLedger_ValuateSkipsHoldingsWithoutPrices(t *testing.T) {
	prices := &stubPrices{quotes: map[string]models.PriceQuote{
		"bitcoin": {Price: 65000},
	}}
	ledger, _ := newTestLedger(t, prices)
	ctx := context.Background()

	_, err := ledger.AddCoin(ctx, "bitcoin", 1, 60000)
	require.NoError(t, err)
	_, err = ledger.AddCoin(ctx, "ghostcoin", 100, 5)
	require.NoError(t, err)

	valuation, err := ledger.Valuate(ctx)
	require.NoError(t, err)
	require.Len(t, valuation.Holdings, 1, "holding without price data is skipped")
	assert.Equal(t, 65000.0, valuation.TotalValue)
	assert.Equal(t, 60000.0, valuation.TotalCost)
}

func TestLedger_ValuateEmptySkipsNetwork(t *testing.T) {
	prices := &stubPrices{}
	ledger, _ := newTestLedger(t, prices)

	valuation, err := ledger.Valuate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, valuation.Holdings)
	assert.Zero(t, prices.calls)
}

func TestLedger_ZeroCostBasisHasZeroPnLPercentage(t *testing.T) {
	prices := &stubPrices{quotes: map[string]models.PriceQuote{
		"airdrop": {Price: 10},
	}}
	ledger, _ := newTestLedger(t, prices)
	ctx := context.Background()

	_, err := ledger.AddCoin(ctx, "airdrop", 100, 0)
	require.NoError(t, err)

	valuation, err := ledger.Valuate(ctx)
	require.NoError(t, err)
	require.Len(t, valuation.Holdings, 1)
	assert.Equal(t, 1000.0, valuation.Holdings[0].CurrentValue)
	assert.Zero(t, valuation.Holdings[0].CostBasis)
	assert.Zero(t, valuation.Holdings[0].PnLPercentage, "unknown basis reads as zero, not infinity")
}

func TestLedger_PersistsAcrossRestart(t *testing.T) {
	ledger, store := newTestLedger(t, &stubPrices{})
	ctx := context.Background()

	_, err := ledger.AddCoin(ctx, "bitcoin", 1.5, 60000)
	require.NoError(t, err)

	reloaded := NewLedger(ctx, Config{
		Prices:   &stubPrices{},
		Store:    store,
		Clock:    clock.NewMock(),
		Currency: "usd",
	})
	holdings := reloaded.Holdings()
	require.Len(t, holdings, 1)
	assert.Equal(t, "bitcoin", holdings[0].CoinID)
	assert.Equal(t, 1.5, holdings[0].Amount)
	assert.Equal(t, 60000.0, holdings[0].PurchasePrice)
}

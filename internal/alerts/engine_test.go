package alerts

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/coinwatch/internal/models"
	"github.com/songzhibin97/coinwatch/internal/storage"
)

// stubPrices serves fixed quotes and records every requested id set.
type stubPrices struct {
	quotes map[string]models.PriceQuote
	calls  [][]string
}

func (s *stubPrices) SimplePrices(_ context.Context, coinIDs []string, _ string) (map[string]models.PriceQuote, error) {
	ids := make([]string, len(coinIDs))
	copy(ids, coinIDs)
	sort.Strings(ids)
	s.calls = append(s.calls, ids)

	out := make(map[string]models.PriceQuote)
	for _, id := range coinIDs {
		if q, ok := s.quotes[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

type recordingNotifier struct {
	titles []string
}

func (r *recordingNotifier) Notify(title, _ string) error {
	r.titles = append(r.titles, title)
	return nil
}

func newTestEngine(t *testing.T, prices *stubPrices) (*Engine, *storage.MemoryStore, *recordingNotifier, *clock.Mock) {
	t.Helper()
	store := storage.NewMemoryStore()
	notifier := &recordingNotifier{}
	clk := clock.NewMock()
	engine := NewEngine(context.Background(), Config{
		Prices:   prices,
		Store:    store,
		Notifier: notifier,
		Clock:    clk,
		Currency: "usd",
		Interval: 30 * time.Second,
	})
	return engine, store, notifier, clk
}

func TestEngine_AddValidation(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, &stubPrices{})
	ctx := context.Background()

	tests := []struct {
		name      string
		coinID    string
		target    float64
		condition models.AlertCondition
		wantErr   bool
	}{
		{"valid above", "bitcoin", 70000, models.ConditionAbove, false},
		{"valid below", "bitcoin", 60000, models.ConditionBelow, false},
		{"missing coin", "", 70000, models.ConditionAbove, true},
		{"zero target", "bitcoin", 0, models.ConditionAbove, true},
		{"negative target", "bitcoin", -5, models.ConditionBelow, true},
		{"bad condition", "bitcoin", 70000, "sideways", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alert, err := engine.Add(ctx, tt.coinID, tt.target, tt.condition)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, alert.ID)
			assert.True(t, alert.Enabled)
			assert.False(t, alert.Triggered)
		})
	}
}

func TestEngine_UniqueIDsOnSameTick(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, &stubPrices{})
	ctx := context.Background()

	// Mock clock does not advance between calls; ids must still differ
	a, err := engine.Add(ctx, "bitcoin", 70000, models.ConditionAbove)
	require.NoError(t, err)
	b, err := engine.Add(ctx, "bitcoin", 80000, models.ConditionAbove)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestEngine_EvaluateBoundaryInclusive(t *testing.T) {
	prices := &stubPrices{quotes: map[string]models.PriceQuote{
		"bitcoin": {Price: 70000},
	}}
	engine, _, notifier, _ := newTestEngine(t, prices)
	ctx := context.Background()

	above, err := engine.Add(ctx, "bitcoin", 70000, models.ConditionAbove)
	require.NoError(t, err)
	below, err := engine.Add(ctx, "bitcoin", 69999.99, models.ConditionBelow)
	require.NoError(t, err)

	require.NoError(t, engine.Evaluate(ctx))

	byID := make(map[string]models.PriceAlert)
	for _, a := range engine.List() {
		byID[a.ID] = a
	}

	fired := byID[above.ID]
	assert.True(t, fired.Triggered, "above alert fires when price equals target exactly")
	require.NotNil(t, fired.TriggerPrice)
	assert.Equal(t, 70000.0, *fired.TriggerPrice)
	assert.NotNil(t, fired.TriggeredAt)

	assert.False(t, byID[below.ID].Triggered,
		"below alert must not fire when price sits just above target")

	require.Len(t, notifier.titles, 1)
	assert.Contains(t, notifier.titles[0], "BITCOIN")
}

func TestEngine_TriggeredExcludedUntilReenabled(t *testing.T) {
	prices := &stubPrices{quotes: map[string]models.PriceQuote{
		"bitcoin": {Price: 70000},
	}}
	engine, _, notifier, _ := newTestEngine(t, prices)
	ctx := context.Background()

	alert, err := engine.Add(ctx, "bitcoin", 65000, models.ConditionAbove)
	require.NoError(t, err)

	require.NoError(t, engine.Evaluate(ctx))
	require.Len(t, prices.calls, 1)
	require.Len(t, notifier.titles, 1)

	// Triggered: the next pass has zero armed alerts and must skip the
	// network entirely.
	require.NoError(t, engine.Evaluate(ctx))
	assert.Len(t, prices.calls, 1)
	assert.Len(t, notifier.titles, 1, "a triggered alert fires once")

	// First toggle disables the fired alert; the trigger record stays
	disabled, ok := engine.Toggle(ctx, alert.ID)
	require.True(t, ok)
	assert.False(t, disabled.Enabled)
	assert.True(t, disabled.Triggered)
	assert.NotNil(t, disabled.TriggerPrice)

	// Re-enabling clears the trigger and arms it again
	toggled, ok := engine.Toggle(ctx, alert.ID)
	require.True(t, ok)
	assert.True(t, toggled.Enabled)
	assert.False(t, toggled.Triggered)
	assert.Nil(t, toggled.TriggeredAt)
	assert.Nil(t, toggled.TriggerPrice)

	require.NoError(t, engine.Evaluate(ctx))
	assert.Len(t, prices.calls, 2)
	assert.Len(t, notifier.titles, 2)
}

func TestEngine_DisabledAlertSkipsNetwork(t *testing.T) {
	prices := &stubPrices{quotes: map[string]models.PriceQuote{
		"bitcoin": {Price: 70000},
	}}
	engine, _, _, _ := newTestEngine(t, prices)
	ctx := context.Background()

	alert, err := engine.Add(ctx, "bitcoin", 65000, models.ConditionAbove)
	require.NoError(t, err)
	_, ok := engine.Toggle(ctx, alert.ID) // dormant now
	require.True(t, ok)

	require.NoError(t, engine.Evaluate(ctx))
	assert.Empty(t, prices.calls)
}

func TestEngine_MissingPriceSkipsAlertOnly(t *testing.T) {
	prices := &stubPrices{quotes: map[string]models.PriceQuote{
		"bitcoin": {Price: 70000},
	}}
	engine, _, _, _ := newTestEngine(t, prices)
	ctx := context.Background()

	_, err := engine.Add(ctx, "bitcoin", 65000, models.ConditionAbove)
	require.NoError(t, err)
	ghost, err := engine.Add(ctx, "ghostcoin", 1, models.ConditionAbove)
	require.NoError(t, err)

	require.NoError(t, engine.Evaluate(ctx))

	byID := make(map[string]models.PriceAlert)
	for _, a := range engine.List() {
		byID[a.ID] = a
	}
	assert.False(t, byID[ghost.ID].Triggered, "no price data, no trigger")
	assert.True(t, byID[ghost.ID].Armed(), "alert stays armed for the next pass")
}

func TestEngine_PersistsAcrossRestart(t *testing.T) {
	prices := &stubPrices{quotes: map[string]models.PriceQuote{
		"bitcoin": {Price: 70000},
	}}
	engine, store, _, _ := newTestEngine(t, prices)
	ctx := context.Background()

	alert, err := engine.Add(ctx, "bitcoin", 65000, models.ConditionAbove)
	require.NoError(t, err)
	require.NoError(t, engine.Evaluate(ctx))

	reloaded := NewEngine(ctx, Config{
		Prices:   prices,
		Store:    store,
		Clock:    clock.NewMock(),
		Currency: "usd",
		Interval: 30 * time.Second,
	})

	alerts := reloaded.List()
	require.Len(t, alerts, 1)
	assert.Equal(t, alert.ID, alerts[0].ID)
	assert.True(t, alerts[0].Triggered, "trigger state survives a restart")
	require.NotNil(t, alerts[0].TriggerPrice)
	assert.Equal(t, 70000.0, *alerts[0].TriggerPrice)
}

func TestEngine_ClearTriggered(t *testing.T) {
	prices := &stubPrices{quotes: map[string]models.PriceQuote{
		"bitcoin":  {Price: 70000},
		"ethereum": {Price: 3000},
	}}
	engine, _, _, _ := newTestEngine(t, prices)
	ctx := context.Background()

	_, err := engine.Add(ctx, "bitcoin", 65000, models.ConditionAbove) // will fire
	require.NoError(t, err)
	keep, err := engine.Add(ctx, "ethereum", 2000, models.ConditionBelow) // will not
	require.NoError(t, err)

	require.NoError(t, engine.Evaluate(ctx))
	assert.Equal(t, 1, engine.ClearTriggered(ctx))

	alerts := engine.List()
	require.Len(t, alerts, 1)
	assert.Equal(t, keep.ID, alerts[0].ID)
	assert.Equal(t, 0, engine.ClearTriggered(ctx))
}

func TestEngine_RemoveUnknownID(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, &stubPrices{})
	assert.False(t, engine.Remove(context.Background(), "nope"))
}

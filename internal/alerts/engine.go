// Package alerts owns the persisted price-alert collection and its
// polling loop. An alert moves dormant <-> armed via toggle, and armed
// -> triggered on a matching price; a triggered alert never re-fires
// until it is explicitly re-enabled.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/songzhibin97/coinwatch/internal/data"
	"github.com/songzhibin97/coinwatch/internal/data/market"
	"github.com/songzhibin97/coinwatch/internal/models"
)

// StorageKey is the fixed document key holding the alert collection.
const StorageKey = "crypto-alerts"

// Notifier dispatches a user-facing notification. Dispatch is
// best-effort: a refused or failed notification does not undo the
// trigger.
type Notifier interface {
	Notify(title, body string) error
}

// Engine evaluates persisted alerts against live prices.
type Engine struct {
	prices   data.PriceSource
	store    data.DocumentStore
	notifier Notifier
	clock    clock.Clock
	logger   *slog.Logger
	currency string
	interval time.Duration

	// mu serializes every read-modify-write against the collection so
	// concurrent mutations cannot drop each other's persisted state.
	mu     sync.Mutex
	alerts []models.PriceAlert
	lastID int64
}

// Config wires an Engine.
type Config struct {
	Prices   data.PriceSource
	Store    data.DocumentStore
	Notifier Notifier
	Clock    clock.Clock
	Logger   *slog.Logger
	Currency string
	Interval time.Duration
}

// NewEngine builds the engine and loads any persisted alerts. A corrupt
// or missing document starts the collection empty.
func NewEngine(ctx context.Context, cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	e := &Engine{
		prices:   cfg.Prices,
		store:    cfg.Store,
		notifier: cfg.Notifier,
		clock:    clk,
		logger:   logger,
		currency: cfg.Currency,
		interval: cfg.Interval,
	}
	e.load(ctx)
	return e
}

func (e *Engine) load(ctx context.Context) {
	raw, err := e.store.Get(ctx, StorageKey)
	if err != nil {
		e.logger.Error("failed to load alerts", "error", err)
		return
	}
	if raw == nil {
		return
	}
	if err := json.Unmarshal(raw, &e.alerts); err != nil {
		e.logger.Error("corrupt alert document, starting empty", "error", err)
		e.alerts = nil
	}
}

// persist writes the whole collection; on failure the in-memory state
// stands and the write is retried implicitly on the next mutation.
func (e *Engine) persist(ctx context.Context) {
	raw, err := json.Marshal(e.alerts)
	if err != nil {
		e.logger.Error("failed to marshal alerts", "error", err)
		return
	}
	if err := e.store.Put(ctx, StorageKey, raw); err != nil {
		e.logger.Error("failed to persist alerts", "error", err)
	}
}

// Add creates a new armed alert.
func (e *Engine) Add(ctx context.Context, coinID string, targetPrice float64, condition models.AlertCondition) (models.PriceAlert, error) {
	if coinID == "" {
		return models.PriceAlert{}, fmt.Errorf("coin id is required")
	}
	if targetPrice <= 0 {
		return models.PriceAlert{}, fmt.Errorf("target price must be positive, got %v", targetPrice)
	}
	if !condition.Valid() {
		return models.PriceAlert{}, fmt.Errorf("unknown condition %q", condition)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	alert := models.PriceAlert{
		ID:          e.nextID(),
		CoinID:      coinID,
		TargetPrice: targetPrice,
		Condition:   condition,
		Enabled:     true,
		CreatedAt:   e.clock.Now(),
	}
	e.alerts = append(e.alerts, alert)
	e.persist(ctx)
	return alert, nil
}

// nextID derives a unique id from the clock; callers hold mu.
func (e *Engine) nextID() string {
	id := e.clock.Now().UnixNano()
	if id <= e.lastID {
		id = e.lastID + 1
	}
	e.lastID = id
	return strconv.FormatInt(id, 10)
}

// Remove deletes the alert with the given id.
func (e *Engine) Remove(ctx context.Context, id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, a := range e.alerts {
		if a.ID == id {
			e.alerts = append(e.alerts[:i], e.alerts[i+1:]...)
			e.persist(ctx)
			return true
		}
	}
	return false
}

// Toggle flips an alert's enabled flag. Re-enabling clears a prior
// trigger so the alert is armed again.
func (e *Engine) Toggle(ctx context.Context, id string) (models.PriceAlert, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.alerts {
		if e.alerts[i].ID != id {
			continue
		}
		a := &e.alerts[i]
		a.Enabled = !a.Enabled
		if a.Enabled {
			a.Triggered = false
			a.TriggeredAt = nil
			a.TriggerPrice = nil
		}
		e.persist(ctx)
		return *a, true
	}
	return models.PriceAlert{}, false
}

// ClearTriggered removes every triggered alert and returns the count.
func (e *Engine) ClearTriggered(ctx context.Context) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.alerts[:0]
	removed := 0
	for _, a := range e.alerts {
		if a.Triggered {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	if removed > 0 {
		e.alerts = kept
		e.persist(ctx)
	}
	return removed
}

// List returns a snapshot ordered non-triggered first, newest first
// within each group.
func (e *Engine) List() []models.PriceAlert {
	e.mu.Lock()
	out := make([]models.PriceAlert, len(e.alerts))
	copy(out, e.alerts)
	e.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Triggered != out[j].Triggered {
			return !out[i].Triggered
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Evaluate fetches prices for all armed alerts and fires the ones whose
// condition holds. With no armed alerts it skips the network entirely.
// A coin missing from the price map skips that alert only.
func (e *Engine) Evaluate(ctx context.Context) error {
	e.mu.Lock()
	idSet := make(map[string]struct{})
	for _, a := range e.alerts {
		if a.Armed() {
			idSet[a.CoinID] = struct{}{}
		}
	}
	e.mu.Unlock()

	if len(idSet) == 0 {
		return nil
	}

	coinIDs := make([]string, 0, len(idSet))
	for id := range idSet {
		coinIDs = append(coinIDs, id)
	}
	quotes, err := e.prices.SimplePrices(ctx, coinIDs, e.currency)
	if err != nil {
		return fmt.Errorf("failed to fetch alert prices: %w", err)
	}

	e.mu.Lock()
	var fired []models.PriceAlert
	for i := range e.alerts {
		a := &e.alerts[i]
		if !a.Armed() {
			continue
		}
		quote, ok := quotes[a.CoinID]
		if !ok {
			continue
		}
		if !a.ShouldTrigger(quote.Price) {
			continue
		}

		now := e.clock.Now()
		price := quote.Price
		a.Triggered = true
		a.TriggeredAt = &now
		a.TriggerPrice = &price
		fired = append(fired, *a)
	}
	if len(fired) > 0 {
		e.persist(ctx)
	}
	e.mu.Unlock()

	for _, a := range fired {
		e.logger.Info("alert triggered",
			"coin", a.CoinID, "target", a.TargetPrice, "price", *a.TriggerPrice)
		e.dispatch(a)
	}
	return nil
}

func (e *Engine) dispatch(a models.PriceAlert) {
	if e.notifier == nil {
		return
	}
	title := fmt.Sprintf("Price Alert: %s", strings.ToUpper(a.CoinID))
	body := fmt.Sprintf("%s is now %s %s (current: %s)",
		strings.ToUpper(a.CoinID), a.Condition,
		market.FormatPrice(a.TargetPrice), market.FormatPrice(*a.TriggerPrice))
	if err := e.notifier.Notify(title, body); err != nil {
		e.logger.Warn("notification dispatch failed", "error", err)
	}
}

// Interval is the configured evaluation period, registered as a
// scheduler task by the caller alongside one immediate evaluation.
func (e *Engine) Interval() time.Duration {
	return e.interval
}

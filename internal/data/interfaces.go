package data

import (
	"context"

	"github.com/songzhibin97/coinwatch/internal/models"
)

// PriceSource is the batched price lookup the alert engine and the
// portfolio ledger poll. They never go to the network directly.
type PriceSource interface {
	// SimplePrices returns current price, 24h change and 24h volume for
	// each requested coin id. Coins missing upstream are absent from the
	// map, not an error.
	SimplePrices(ctx context.Context, coinIDs []string, currency string) (map[string]models.PriceQuote, error)
}

// DocumentStore is whole-document persistence under fixed keys,
// backing alerts and holdings.
type DocumentStore interface {
	// Get returns the document for key, or (nil, nil) when absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put overwrites the document for key.
	Put(ctx context.Context, key string, value []byte) error
}

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/coinwatch/internal/data"
)

// Either store can back the engines, durable or not.
var (
	_ data.DocumentStore = (*Store)(nil)
	_ data.DocumentStore = (*MemoryStore)(nil)
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "coinwatch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_GetAbsentKey(t *testing.T) {
	store := openTestStore(t)

	doc, err := store.Get(context.Background(), "crypto-alerts")
	require.NoError(t, err)
	assert.Nil(t, doc, "absent document reads as nil, not an error")
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	doc := []byte(`[{"coin_id":"bitcoin","amount":1.5}]`)
	require.NoError(t, store.Put(ctx, "crypto-portfolio", doc))

	got, err := store.Get(ctx, "crypto-portfolio")
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestStore_PutOverwritesWholeDocument(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", []byte(`[1,2,3]`)))
	require.NoError(t, store.Put(ctx, "k", []byte(`[]`)))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), got)
}

func TestStore_KeysAreIndependent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "crypto-alerts", []byte(`["a"]`)))
	require.NoError(t, store.Put(ctx, "crypto-portfolio", []byte(`["p"]`)))

	alerts, err := store.Get(ctx, "crypto-alerts")
	require.NoError(t, err)
	portfolio, err := store.Get(ctx, "crypto-portfolio")
	require.NoError(t, err)
	assert.Equal(t, []byte(`["a"]`), alerts)
	assert.Equal(t, []byte(`["p"]`), portfolio)
}

func TestStore_Delete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", []byte(`1`)))
	require.NoError(t, store.Delete(ctx, "k"))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Delete(ctx, "never-existed"))
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coinwatch.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "crypto-alerts", []byte(`[{"id":"1"}]`)))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "crypto-alerts")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[{"id":"1"}]`), got)
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Put(ctx, "k", []byte(`[1]`)))
	got, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[1]`), got)

	require.NoError(t, store.Delete(ctx, "k"))
	got, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/storage"
)

func TestCatalogStore_Products(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCatalogStore(pool)
	ctx := context.Background()

	product := &domain.Product{ID: "P1", Name: "Hot-rolled coil", HSCode: "7208", Category: "steel", Country: "CN"}
	require.NoError(t, store.InsertProduct(ctx, product))
	require.NoError(t, store.InsertProduct(ctx, &domain.Product{ID: "P0", Name: "Wire rod"}))

	err := store.InsertProduct(ctx, product)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetProduct(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, *product, *got)

	_, err = store.GetProduct(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	list, err := store.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "P0", list[0].ID)
}

func TestCatalogStore_RoutesAndPairs(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCatalogStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertRoute(ctx, &domain.FreightRoute{Route: "CN-MY", Origin: "CN", Destination: "MY"}))
	assert.ErrorIs(t, store.InsertRoute(ctx, &domain.FreightRoute{Route: "CN-MY"}), storage.ErrDuplicateKey)

	require.NoError(t, store.InsertCurrencyPair(ctx, &domain.CurrencyPair{Pair: "USD/MYR", Base: "USD", Quote: "MYR"}))
	assert.ErrorIs(t, store.InsertCurrencyPair(ctx, &domain.CurrencyPair{Pair: "USD/MYR"}), storage.ErrDuplicateKey)

	routes, err := store.ListRoutes(ctx)
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "MY", routes[0].Destination)

	pairs, err := store.ListCurrencyPairs(ctx)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "USD", pairs[0].Base)
}

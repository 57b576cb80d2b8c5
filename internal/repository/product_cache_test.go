package repository_test

import (
	"context"
	"testing"
	"time"

	"stockledger/internal/model"
	"stockledger/internal/repository"
	"stockledger/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductCache_SetGetInvalidate(t *testing.T) {
	rdb, mr := testutil.NewRedis(t)
	cache := repository.NewProductCache(rdb, 10*time.Minute)
	ctx := context.Background()

	_, ok := cache.Get(ctx, "NUT")
	assert.False(t, ok)

	p := &model.Product{
		ID: uuid.New(), SKU: "NUT", Name: "Hex nut", Category: "Hardware",
		Price: decimal.RequireFromString("0.15"), Unit: model.UnitPieces,
		Quantity: 40, MinStockLevel: 10, Status: model.StatusInStock, Version: 3,
	}
	cache.Set(ctx, p)
	assert.True(t, mr.Exists("product:sku:NUT"))
	assert.Equal(t, 10*time.Minute, mr.TTL("product:sku:NUT"))

	got, ok := cache.Get(ctx, "NUT")
	require.True(t, ok)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, 40, got.Quantity)
	assert.True(t, p.Price.Equal(got.Price))

	cache.Invalidate(ctx, p)
	_, ok = cache.Get(ctx, "NUT")
	assert.False(t, ok)
}

func TestProductCache_NilClientIsNoop(t *testing.T) {
	ctx := context.Background()
	for _, cache := range []*repository.ProductCache{nil, repository.NewProductCache(nil, time.Minute)} {
		cache.Set(ctx, &model.Product{SKU: "X"})
		cache.Invalidate(ctx, &model.Product{SKU: "X"})
		_, ok := cache.Get(ctx, "X")
		assert.False(t, ok)
	}
}

func TestProductCache_ReadOlderThanCommitIsNotCached(t *testing.T) {
	rdb, mr := testutil.NewRedis(t)
	cache := repository.NewProductCache(rdb, 10*time.Minute)
	ctx := context.Background()

	// a reader loaded version 4, then a writer committed version 5 and
	// invalidated before the reader got to write its copy back
	seen := &model.Product{ID: uuid.New(), SKU: "BOLT", Quantity: 12, Version: 4}
	committed := *seen
	committed.Quantity, committed.Version = 2, 5
	cache.Invalidate(ctx, &committed)

	cache.Set(ctx, seen)
	assert.False(t, mr.Exists("product:sku:BOLT"), "a read from before the commit must not repopulate the cache")

	cache.Set(ctx, &committed)
	got, ok := cache.Get(ctx, "BOLT")
	require.True(t, ok)
	assert.Equal(t, 2, got.Quantity)
	assert.Equal(t, 5, got.Version)
}

func TestProductCache_FenceIsPerProduct(t *testing.T) {
	rdb, _ := testutil.NewRedis(t)
	cache := repository.NewProductCache(rdb, 10*time.Minute)
	ctx := context.Background()

	old := &model.Product{ID: uuid.New(), SKU: "WASHER", Quantity: 7, Version: 9}
	cache.Invalidate(ctx, old)
	cache.Set(ctx, old)
	_, ok := cache.Get(ctx, "WASHER")
	assert.True(t, ok, "the committed version itself is cacheable")

	// the delete bumps the version under the row lock, then the SKU is
	// reused by a new product
	deleted := *old
	deleted.Version = 10
	cache.Invalidate(ctx, &deleted)
	fresh := &model.Product{ID: uuid.New(), SKU: "WASHER", Quantity: 1, Version: 1}
	cache.Invalidate(ctx, fresh)
	cache.Set(ctx, old)
	_, ok = cache.Get(ctx, "WASHER")
	assert.False(t, ok, "the deleted row stays fenced out")

	cache.Set(ctx, fresh)
	got, ok := cache.Get(ctx, "WASHER")
	require.True(t, ok)
	assert.Equal(t, fresh.ID, got.ID)
}

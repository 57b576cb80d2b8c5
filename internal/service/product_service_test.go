package service_test

import (
	"context"
	"testing"
	"time"

	"stockledger/internal/dto"
	"stockledger/internal/repository"
	"stockledger/internal/service"
	"stockledger/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBySKU_CachedAndInvalidatedOnWrite(t *testing.T) {
	db := testutil.NewDB(t)
	rdb, mr := testutil.NewRedis(t)
	productRepo := repository.NewProductRepository(db)
	cache := repository.NewProductCache(rdb, time.Minute)
	stock := service.NewStockService(productRepo, repository.NewInventoryLogRepository(db), cache, nil)
	products := service.NewProductService(productRepo, cache)
	ctx := context.Background()

	created, err := stock.CreateProduct(ctx, dto.CreateProductRequest{
		Name: "Glue", SKU: "glue-50", Category: "Office", InitialQuantity: 9,
	}, actor)
	require.NoError(t, err)

	got, err := products.GetBySKU(ctx, "glue-50")
	require.NoError(t, err)
	assert.Equal(t, 9, got.Quantity)
	assert.True(t, mr.Exists("product:sku:GLUE-50"), "lookup should populate the cache")

	_, err = stock.Adjust(ctx, uuid.MustParse(created.ID), -4, "used", actor)
	require.NoError(t, err)
	assert.False(t, mr.Exists("product:sku:GLUE-50"), "adjust should invalidate the cache")

	got, err = products.GetBySKU(ctx, "GLUE-50")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)

	_, err = products.GetBySKU(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestListLogs_RejectsBadFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.ListLogs(ctx, dto.InventoryLogFilter{ProductID: "nope"})
	assert.ErrorIs(t, err, service.ErrValidation)

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err = f.ledger.ListLogs(ctx, dto.InventoryLogFilter{From: from, To: from.Add(-time.Hour)})
	assert.ErrorIs(t, err, service.ErrValidation)

	resp, err := f.ledger.ListLogs(ctx, dto.InventoryLogFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 50, resp.Limit)
	assert.Empty(t, resp.Data)
}

func TestGetBySKU_StaleReadDoesNotRepopulate(t *testing.T) {
	db := testutil.NewDB(t)
	rdb, mr := testutil.NewRedis(t)
	productRepo := repository.NewProductRepository(db)
	cache := repository.NewProductCache(rdb, time.Minute)
	stock := service.NewStockService(productRepo, repository.NewInventoryLogRepository(db), cache, nil)
	products := service.NewProductService(productRepo, cache)
	ctx := context.Background()

	created, err := stock.CreateProduct(ctx, dto.CreateProductRequest{
		Name: "Rope", SKU: "ROPE-10", Category: "Hardware", InitialQuantity: 8,
	}, actor)
	require.NoError(t, err)

	// a lookup reads the row, then loses the race to a committed adjust
	seen, err := productRepo.FindBySKU(ctx, "ROPE-10")
	require.NoError(t, err)
	_, err = stock.Adjust(ctx, uuid.MustParse(created.ID), -3, "used", actor)
	require.NoError(t, err)
	cache.Set(ctx, seen)
	assert.False(t, mr.Exists("product:sku:ROPE-10"), "the pre-commit row must not be cached")

	got, err := products.GetBySKU(ctx, "ROPE-10")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)
	assert.True(t, mr.Exists("product:sku:ROPE-10"))
}

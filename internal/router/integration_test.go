//go:build integration

package router_test

// Runs the HTTP surface against real Postgres and Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"stockledger/internal/config"
	"stockledger/internal/dto"
	"stockledger/internal/infra"
	"stockledger/internal/middleware"
	"stockledger/internal/router"
	"stockledger/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newPostgresAPI(t *testing.T) (*api, func(string) int64) {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		tcPostgres.WithDatabase("stockledger_test"),
		tcPostgres.WithUsername("stockledger"),
		tcPostgres.WithPassword("stockledger"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })
	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })
	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := infra.NewDatabase(pgURL)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(rdURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		Env:                    "test",
		JWTSecret:              secret,
		DatabaseURL:            pgURL,
		RedisURL:               rdURL,
		ProductCacheTTLMinutes: 5,
	}
	queueLen := func(key string) int64 {
		n, err := rdb.LLen(ctx, key).Result()
		require.NoError(t, err)
		return n
	}
	return &api{t: t, engine: router.New(cfg, db, rdb)}, queueLen
}

func TestPostgres_ConcurrentAdjustmentsNeverOversell(t *testing.T) {
	a, queueLen := newPostgresAPI(t)
	manager := token(t, "mgr-1", middleware.RoleManager)
	clerk := token(t, "clerk-1", middleware.RoleClerk)

	p := a.createProduct(manager, map[string]interface{}{
		"name": "Cable", "sku": "CAB-1", "category": "Electronics", "initialQuantity": 50, "minStockLevel": 10,
	})

	// 30 clerks each try to take 3 units; at most 16 can succeed.
	var wg sync.WaitGroup
	codes := make([]int, 30)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := a.do(http.MethodPatch, "/v1/products/"+p.ID+"/stock", clerk, map[string]interface{}{"quantityDelta": -3, "reason": "sold"})
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, c := range codes {
		require.Contains(t, []int{http.StatusOK, http.StatusConflict}, c)
		if c == http.StatusOK {
			ok++
		}
	}
	assert.Equal(t, 16, ok)

	w := a.do(http.MethodGet, "/v1/products/"+p.ID, clerk, nil)
	got := decode[dto.ProductResponse](t, w)
	assert.Equal(t, 2, got.Quantity)
	assert.Equal(t, "LOW_STOCK", got.Status)

	w = a.do(http.MethodGet, "/v1/products/"+p.ID+"/reconciliation", manager, nil)
	rec := decode[dto.ReconciliationResponse](t, w)
	assert.True(t, rec.Balanced)
	assert.EqualValues(t, 17, rec.Entries)

	// exactly one IN_STOCK → LOW_STOCK transition
	assert.EqualValues(t, 1, queueLen(worker.QueueStockAlerts))
}

func TestPostgres_MixedAdjustmentsLedgerNeverDipsBelowZero(t *testing.T) {
	a, _ := newPostgresAPI(t)
	manager := token(t, "mgr-1", middleware.RoleManager)
	clerk := token(t, "clerk-1", middleware.RoleClerk)

	p := a.createProduct(manager, map[string]interface{}{
		"name": "Fuse", "sku": "FUSE-5", "category": "Electronics", "initialQuantity": 10, "minStockLevel": 4,
	})

	// restocks and sales interleave; sales larger than what is on hand lose
	var wg sync.WaitGroup
	codes := make([]int, 40)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := map[string]interface{}{"quantityDelta": -4, "reason": "sold"}
			if i%2 == 1 {
				body = map[string]interface{}{"quantityDelta": 3, "reason": "restock"}
			}
			codes[i] = a.do(http.MethodPatch, "/v1/products/"+p.ID+"/stock", clerk, body).Code
		}(i)
	}
	wg.Wait()
	for _, c := range codes {
		require.Contains(t, []int{http.StatusOK, http.StatusConflict}, c)
	}

	w := a.do(http.MethodGet, "/v1/inventory/logs?limit=200&productId="+p.ID, clerk, nil)
	require.Equal(t, http.StatusOK, w.Code)
	logs := decode[dto.InventoryLogListResponse](t, w).Data
	require.NotEmpty(t, logs)

	type movement struct {
		at    time.Time
		delta int
	}
	moves := make([]movement, 0, len(logs))
	for _, l := range logs {
		at, err := time.Parse(time.RFC3339Nano, l.Timestamp)
		require.NoError(t, err)
		d := l.Quantity
		if l.Type == "OUT" {
			d = -d
		}
		moves = append(moves, movement{at: at, delta: d})
	}
	sort.SliceStable(moves, func(i, j int) bool { return moves[i].at.Before(moves[j].at) })

	balance := 0
	for i, m := range moves {
		if i > 0 {
			require.True(t, m.at.After(moves[i-1].at), "entries %d and %d share a timestamp", i-1, i)
		}
		balance += m.delta
		require.GreaterOrEqual(t, balance, 0, "ledger goes negative at entry %d (%s)", i, m.at)
	}

	w = a.do(http.MethodGet, "/v1/products/"+p.ID, clerk, nil)
	got := decode[dto.ProductResponse](t, w)
	assert.Equal(t, got.Quantity, balance)

	w = a.do(http.MethodGet, "/v1/products/"+p.ID+"/reconciliation", manager, nil)
	assert.True(t, decode[dto.ReconciliationResponse](t, w).Balanced)
}

func TestPostgres_DuplicateSKUAndDelete(t *testing.T) {
	a, _ := newPostgresAPI(t)
	admin := token(t, "admin-1", middleware.RoleAdmin)

	p := a.createProduct(admin, map[string]interface{}{"name": "Lamp", "sku": "LAMP", "category": "Home", "initialQuantity": 3})
	w := a.do(http.MethodPost, "/v1/products", admin, map[string]interface{}{"name": "Lamp 2", "sku": "lamp", "category": "Home"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(http.MethodGet, "/v1/products/sku/lamp", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(http.MethodDelete, "/v1/products/"+p.ID, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(http.MethodGet, "/v1/products/sku/LAMP", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "delete must invalidate the SKU cache")

	w = a.do(http.MethodGet, "/v1/products/"+p.ID+"/reconciliation", admin, nil)
	rec := decode[dto.ReconciliationResponse](t, w)
	assert.True(t, rec.ProductDeleted)
	assert.True(t, rec.Balanced)
}

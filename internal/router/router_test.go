package router_test

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stockledger/internal/config"
	"stockledger/internal/dto"
	"stockledger/internal/middleware"
	"stockledger/internal/router"
	"stockledger/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "router-test-secret"

func init() { gin.SetMode(gin.TestMode) }

type api struct {
	t      *testing.T
	engine *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()
	cfg := &config.Config{
		Env:                    "test",
		JWTSecret:              secret,
		ProductCacheTTLMinutes: 1,
	}
	return &api{t: t, engine: router.New(cfg, testutil.NewDB(t), nil)}
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := middleware.IssueToken(secret, userID, userID, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (a *api) do(method, path, tok string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (a *api) createProduct(tok string, body map[string]interface{}) dto.ProductResponse {
	a.t.Helper()
	w := a.do(http.MethodPost, "/v1/products", tok, body)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[dto.ProductResponse](a.t, w)
}

func TestAuthAndRoles(t *testing.T) {
	a := newAPI(t)
	clerk := token(t, "clerk-1", middleware.RoleClerk)

	w := a.do(http.MethodGet, "/v1/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodGet, "/v1/products", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodPost, "/v1/products", clerk, map[string]interface{}{"name": "X", "sku": "X", "category": "C"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodGet, "/v1/products", clerk, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestStockLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t)
	manager := token(t, "mgr-1", middleware.RoleManager)
	clerk := token(t, "clerk-1", middleware.RoleClerk)
	admin := token(t, "admin-1", middleware.RoleAdmin)

	p := a.createProduct(manager, map[string]interface{}{
		"name": "Stapler", "sku": "stp-01", "category": "Office", "price": "12.40",
		"unit": "pcs", "initialQuantity": 10, "minStockLevel": 5,
	})
	assert.Equal(t, "STP-01", p.SKU)
	assert.Equal(t, "IN_STOCK", p.Status)
	assert.Equal(t, "mgr-1", p.CreatedBy)

	stockPath := "/v1/products/" + p.ID + "/stock"

	w := a.do(http.MethodPatch, stockPath, clerk, map[string]interface{}{"quantityDelta": -6, "reason": "sold"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	adjusted := decode[dto.ProductResponse](t, w)
	assert.Equal(t, 4, adjusted.Quantity)
	assert.Equal(t, "LOW_STOCK", adjusted.Status)

	w = a.do(http.MethodPatch, stockPath, clerk, map[string]interface{}{"quantityDelta": 0, "reason": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPatch, stockPath, clerk, map[string]interface{}{"reason": "x"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := decode[map[string]interface{}](t, w)["fields"].(map[string]interface{})
	assert.Equal(t, "required", fields["quantityDelta"])

	w = a.do(http.MethodPatch, stockPath, clerk, map[string]interface{}{"quantityDelta": 2, "reason": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPatch, stockPath, clerk, map[string]interface{}{"quantityDelta": int64(math.MaxInt64), "reason": "bulk"})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	fields = decode[map[string]interface{}](t, w)["fields"].(map[string]interface{})
	assert.Equal(t, "max", fields["quantityDelta"])

	w = a.do(http.MethodPatch, stockPath, clerk, map[string]interface{}{"quantityDelta": json.Number("1e30"), "reason": "bulk"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPatch, stockPath, clerk, map[string]interface{}{"quantityDelta": -5, "reason": "sold"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", decode[map[string]interface{}](t, w)["code"])

	w = a.do(http.MethodPatch, "/v1/products/00000000-0000-0000-0000-000000000001/stock", clerk, map[string]interface{}{"quantityDelta": 1, "reason": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodPatch, "/v1/products/not-a-uuid/stock", clerk, map[string]interface{}{"quantityDelta": 1, "reason": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// quantity and status in a generic update are not part of the request type
	w = a.do(http.MethodPut, "/v1/products/"+p.ID, manager, map[string]interface{}{
		"name": "Heavy stapler", "quantity": 999, "status": "IN_STOCK",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[dto.ProductResponse](t, w)
	assert.Equal(t, "Heavy stapler", updated.Name)
	assert.Equal(t, 4, updated.Quantity)
	assert.Equal(t, "LOW_STOCK", updated.Status)

	w = a.do(http.MethodGet, "/v1/inventory/logs?productId="+p.ID, clerk, nil)
	require.Equal(t, http.StatusOK, w.Code)
	logs := decode[dto.InventoryLogListResponse](t, w)
	require.Len(t, logs.Data, 2)
	assert.Equal(t, "OUT", logs.Data[0].Type)
	assert.Equal(t, 6, logs.Data[0].Quantity)
	assert.Equal(t, "clerk-1", logs.Data[0].PerformedBy)
	assert.Equal(t, "Stapler", logs.Data[0].ProductName)

	w = a.do(http.MethodGet, "/v1/inventory/alerts", clerk, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]dto.StockAlertResponse](t, w), 1)

	w = a.do(http.MethodGet, "/v1/products/"+p.ID+"/reconciliation", manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[dto.ReconciliationResponse](t, w).Balanced)

	w = a.do(http.MethodDelete, "/v1/products/"+p.ID, manager, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodDelete, "/v1/products/"+p.ID, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Product deleted successfully", decode[dto.DeleteProductResponse](t, w).Message)

	w = a.do(http.MethodGet, "/v1/products/"+p.ID, clerk, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodGet, "/v1/inventory/logs?productId="+p.ID, clerk, nil)
	logs = decode[dto.InventoryLogListResponse](t, w)
	require.Len(t, logs.Data, 3)
	assert.Equal(t, "Product deleted", logs.Data[0].Reason)
	assert.Equal(t, 4, logs.Data[0].Quantity)
	assert.Equal(t, "Heavy stapler", logs.Data[0].ProductName)
}

func TestCreateValidationAndConflict(t *testing.T) {
	a := newAPI(t)
	manager := token(t, "mgr-1", middleware.RoleManager)

	w := a.do(http.MethodPost, "/v1/products", manager, map[string]interface{}{
		"name": "Pen", "sku": "PEN", "category": "Office", "initialQuantity": -2,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := decode[map[string]interface{}](t, w)["fields"].(map[string]interface{})
	assert.Equal(t, "min", fields["initialQuantity"])

	w = a.do(http.MethodPost, "/v1/products", manager, map[string]interface{}{
		"name": "Pen", "sku": "PEN", "category": "Office", "initialQuantity": int64(math.MaxInt32) + 1,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	fields = decode[map[string]interface{}](t, w)["fields"].(map[string]interface{})
	assert.Equal(t, "max", fields["initialQuantity"])

	a.createProduct(manager, map[string]interface{}{"name": "Pen", "sku": "PEN", "category": "Office"})
	w = a.do(http.MethodPost, "/v1/products", manager, map[string]interface{}{"name": "Pen 2", "sku": "pen", "category": "Office"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(http.MethodPost, "/v1/products", manager, "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthWithoutRedis(t *testing.T) {
	a := newAPI(t)

	w := a.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]interface{}](t, w)
	assert.Equal(t, "connected", body["db"])
	assert.Equal(t, "disabled", body["redis"])
}

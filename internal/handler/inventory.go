package handler

import (
	"net/http"

	"stockledger/internal/dto"
	"stockledger/internal/service"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	ledger   service.LedgerService
	products service.ProductService
}

func NewInventoryHandler(ledger service.LedgerService, products service.ProductService) *InventoryHandler {
	return &InventoryHandler{ledger: ledger, products: products}
}

// ListLogs godoc
// @Summary Query the stock ledger, newest first
// @Tags inventory
// @Produce json
// @Param productId query string false "Product ID"
// @Param type query string false "IN or OUT"
// @Param performedBy query string false "Actor"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Param page query int false "Page"
// @Param limit query int false "Page size (max 200)"
// @Success 200 {object} dto.InventoryLogListResponse
// @Security BearerAuth
// @Router /v1/inventory/logs [get]
func (h *InventoryHandler) ListLogs(c *gin.Context) {
	var filter dto.InventoryLogFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.ledger.ListLogs(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) Alerts(c *gin.Context) {
	resp, err := h.products.StockAlerts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

package dto

import "time"

// InventoryLogFilter is bound from the ledger query string.
type InventoryLogFilter struct {
	ProductID   string    `form:"productId"   validate:"omitempty,uuid"`
	Type        string    `form:"type"        validate:"omitempty,oneof=IN OUT"`
	PerformedBy string    `form:"performedBy" validate:"omitempty,max=64"`
	From        time.Time `form:"from"        time_format:"2006-01-02T15:04:05Z07:00"`
	To          time.Time `form:"to"          time_format:"2006-01-02T15:04:05Z07:00"`
	Page        int       `form:"page,default=1"   validate:"min=1"`
	Limit       int       `form:"limit,default=50" validate:"min=1,max=200"`
}

// InventoryLogItem is one ledger entry as exposed to clients. Snapshot fields
// reflect the product at the time the entry was written.
type InventoryLogItem struct {
	ID          string `json:"id"`
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	SKU         string `json:"sku"`
	Unit        string `json:"unit"`
	Type        string `json:"type"`
	Quantity    int    `json:"quantity"`
	Reason      string `json:"reason"`
	PerformedBy string `json:"performedBy"`
	Timestamp   string `json:"timestamp"`
}

type InventoryLogListResponse struct {
	Data  []InventoryLogItem `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

type StockAlertResponse struct {
	ProductID     string `json:"productId"`
	SKU           string `json:"sku"`
	Name          string `json:"name"`
	Quantity      int    `json:"quantity"`
	MinStockLevel int    `json:"minStockLevel"`
	Status        string `json:"status"`
}

// ReconciliationResponse compares the signed ledger balance of a product with
// its stored quantity. Quantity is nil once the product has been deleted.
type ReconciliationResponse struct {
	ProductID      string `json:"productId"`
	Quantity       *int   `json:"quantity"`
	LedgerBalance  int64  `json:"ledgerBalance"`
	Entries        int64  `json:"entries"`
	ProductDeleted bool   `json:"productDeleted"`
	Balanced       bool   `json:"balanced"`
}

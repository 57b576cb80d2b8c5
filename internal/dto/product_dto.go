package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateProductRequest struct {
	Name            string          `json:"name"            validate:"required,min=1,max=120"`
	SKU             string          `json:"sku"             validate:"required,min=1,max=64"`
	Category        string          `json:"category"        validate:"required,max=80"`
	Price           decimal.Decimal `json:"price"           validate:"min=0"`
	Unit            string          `json:"unit"            validate:"omitempty,oneof=pcs kg litre box"`
	InitialQuantity int             `json:"initialQuantity" validate:"min=0,max=2147483647"`
	// MinStockLevel defaults to 5 when omitted.
	MinStockLevel *int `json:"minStockLevel" validate:"omitempty,min=0"`
}

// UpdateProductRequest carries descriptive fields only. Quantity, status and
// SKU are intentionally absent; stock changes go through the adjust endpoint.
type UpdateProductRequest struct {
	Name          *string          `json:"name"          validate:"omitempty,min=1,max=120"`
	Category      *string          `json:"category"      validate:"omitempty,min=1,max=80"`
	Price         *decimal.Decimal `json:"price"`
	Unit          *string          `json:"unit"          validate:"omitempty,oneof=pcs kg litre box"`
	MinStockLevel *int             `json:"minStockLevel" validate:"omitempty,min=0"`
	// Version, when set, must match the stored version.
	Version *int `json:"version" validate:"omitempty,min=1"`
}

type AdjustStockRequest struct {
	// Bounded by model.MaxQuantity in either direction.
	QuantityDelta *int   `json:"quantityDelta" validate:"required,min=-2147483647,max=2147483647"`
	Reason        string `json:"reason"        validate:"required,max=500"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ProductFilter struct {
	Status   string `form:"status"   validate:"omitempty,oneof=IN_STOCK LOW_STOCK OUT_OF_STOCK"`
	Category string `form:"category"`
	Search   string `form:"search"`
	Page     int    `form:"page,default=1"   validate:"min=1"`
	Limit    int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductResponse struct {
	ID            string          `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	Unit          string          `json:"unit"`
	Quantity      int             `json:"quantity"`
	MinStockLevel int             `json:"minStockLevel"`
	Status        string          `json:"status"`
	Version       int             `json:"version"`
	CreatedBy     string          `json:"createdBy"`
	CreatedAt     string          `json:"createdAt"`
	UpdatedAt     string          `json:"updatedAt"`
}

type ProductListResponse struct {
	Data       []ProductResponse `json:"data"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"totalPages"`
}

type DeleteProductResponse struct {
	Message string `json:"message"`
}

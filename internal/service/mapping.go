package service

import (
	"time"

	"stockledger/internal/dto"
	"stockledger/internal/model"
)

func productToResponse(p *model.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:            p.ID.String(),
		SKU:           p.SKU,
		Name:          p.Name,
		Category:      p.Category,
		Price:         p.Price,
		Unit:          string(p.Unit),
		Quantity:      p.Quantity,
		MinStockLevel: p.MinStockLevel,
		Status:        string(p.Status),
		Version:       p.Version,
		CreatedBy:     p.CreatedBy,
		CreatedAt:     p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func logToItem(l *model.InventoryLog) dto.InventoryLogItem {
	return dto.InventoryLogItem{
		ID:          l.ID.String(),
		ProductID:   l.ProductID.String(),
		ProductName: l.ProductName,
		SKU:         l.SKU,
		Unit:        string(l.Unit),
		Type:        string(l.Type),
		Quantity:    l.Quantity,
		Reason:      l.Reason,
		PerformedBy: l.PerformedBy,
		Timestamp:   l.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// newLogEntry builds the ledger entry for a signed movement, snapshotting the
// product's descriptive fields as they are now.
func newLogEntry(p *model.Product, delta int, reason, actorID string, at time.Time) *model.InventoryLog {
	typ := model.MovementIn
	qty := delta
	if delta < 0 {
		typ = model.MovementOut
		qty = -delta
	}
	return &model.InventoryLog{
		ProductID:   p.ID,
		ProductName: p.Name,
		SKU:         p.SKU,
		Unit:        p.Unit,
		Type:        typ,
		Quantity:    qty,
		Reason:      reason,
		PerformedBy: actorID,
		CreatedAt:   at,
	}
}

package service

import (
	"context"
	"errors"
	"fmt"

	"stockledger/internal/dto"
	"stockledger/internal/model"
	"stockledger/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerService exposes the audit ledger for reads.
type LedgerService interface {
	ListLogs(ctx context.Context, filter dto.InventoryLogFilter) (*dto.InventoryLogListResponse, error)
	Reconcile(ctx context.Context, productID uuid.UUID) (*dto.ReconciliationResponse, error)
}

type ledgerService struct {
	logs     repository.InventoryLogRepository
	products repository.ProductRepository
}

func NewLedgerService(logs repository.InventoryLogRepository, products repository.ProductRepository) LedgerService {
	return &ledgerService{logs: logs, products: products}
}

func (s *ledgerService) ListLogs(ctx context.Context, filter dto.InventoryLogFilter) (*dto.InventoryLogListResponse, error) {
	f := repository.InventoryLogFilter{
		Type:        model.MovementType(filter.Type),
		PerformedBy: filter.PerformedBy,
		From:        filter.From,
		To:          filter.To,
		Page:        filter.Page,
		Limit:       filter.Limit,
	}
	if filter.ProductID != "" {
		id, err := uuid.Parse(filter.ProductID)
		if err != nil {
			return nil, validationf("productId is not a valid id")
		}
		f.ProductID = &id
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return nil, validationf("to must not be before from")
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 200 {
		f.Limit = 50
	}

	entries, total, err := s.logs.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%w: list logs: %w", ErrPersistence, err)
	}
	data := make([]dto.InventoryLogItem, 0, len(entries))
	for i := range entries {
		data = append(data, logToItem(&entries[i]))
	}
	return &dto.InventoryLogListResponse{
		Data:  data,
		Total: total,
		Page:  f.Page,
		Limit: f.Limit,
	}, nil
}

// Reconcile compares the signed ledger sum for a product with its stored
// quantity. A deleted product reconciles when its ledger sums to zero.
func (s *ledgerService) Reconcile(ctx context.Context, productID uuid.UUID) (*dto.ReconciliationResponse, error) {
	sum, entries, err := s.logs.Balance(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("%w: ledger balance: %w", ErrPersistence, err)
	}

	resp := &dto.ReconciliationResponse{
		ProductID:     productID.String(),
		LedgerBalance: sum,
		Entries:       entries,
	}

	p, err := s.products.FindByID(ctx, productID)
	switch {
	case err == nil:
		qty := p.Quantity
		resp.Quantity = &qty
		resp.Balanced = sum == int64(qty)
	case errors.Is(err, gorm.ErrRecordNotFound):
		if entries == 0 {
			return nil, notFound(productID)
		}
		resp.ProductDeleted = true
		resp.Balanced = sum == 0
	default:
		return nil, fmt.Errorf("%w: lookup %s: %w", ErrPersistence, productID, err)
	}
	return resp, nil
}

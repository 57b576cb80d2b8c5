package repository

import (
	"context"
	"time"

	"stockledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InventoryLogFilter defines filters for listing ledger entries.
type InventoryLogFilter struct {
	ProductID   *uuid.UUID
	Type        model.MovementType
	PerformedBy string
	From        time.Time
	To          time.Time
	Page        int
	Limit       int
}

// InventoryLogRepository is the append-only audit ledger. It exposes no
// update or delete operation.
type InventoryLogRepository interface {
	AppendTx(tx *gorm.DB, e *model.InventoryLog) error
	List(ctx context.Context, filter InventoryLogFilter) ([]model.InventoryLog, int64, error)
	// Balance returns the signed sum (IN positive, OUT negative) and the
	// number of entries recorded for a product.
	Balance(ctx context.Context, productID uuid.UUID) (sum int64, entries int64, err error)
}

type inventoryLogRepo struct{ db *gorm.DB }

func NewInventoryLogRepository(db *gorm.DB) InventoryLogRepository {
	return &inventoryLogRepo{db: db}
}

func (r *inventoryLogRepo) AppendTx(tx *gorm.DB, e *model.InventoryLog) error {
	return tx.Create(e).Error
}

func (r *inventoryLogRepo) List(ctx context.Context, filter InventoryLogFilter) ([]model.InventoryLog, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.InventoryLog{})
	if filter.ProductID != nil {
		q = q.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.PerformedBy != "" {
		q = q.Where("performed_by = ?", filter.PerformedBy)
	}
	if !filter.From.IsZero() {
		q = q.Where("created_at >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		q = q.Where("created_at <= ?", filter.To.UTC())
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	limit := filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := (page - 1) * limit

	var entries []model.InventoryLog
	err := q.Order("created_at DESC").Order("id DESC").Offset(offset).Limit(limit).Find(&entries).Error
	return entries, total, err
}

func (r *inventoryLogRepo) Balance(ctx context.Context, productID uuid.UUID) (int64, int64, error) {
	var row struct {
		Total   int64
		Entries int64
	}
	err := r.db.WithContext(ctx).Model(&model.InventoryLog{}).
		Select("COALESCE(SUM(CASE WHEN type = ? THEN quantity ELSE -quantity END), 0) AS total, COUNT(*) AS entries", model.MovementIn).
		Where("product_id = ?", productID).
		Scan(&row).Error
	return row.Total, row.Entries, err
}

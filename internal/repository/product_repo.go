package repository

import (
	"context"
	"strings"
	"time"

	"stockledger/internal/dto"
	"stockledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductChanges lists the descriptive columns a generic update may touch.
// There is no quantity or status field: those only move through the stock
// engine.
type ProductChanges struct {
	Name          *string
	Category      *string
	Price         *decimal.Decimal
	Unit          *model.Unit
	MinStockLevel *int
}

// ProductRepository defines the data access contract for products.
// Methods with a Tx suffix must be given the live transaction handle.
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindBySKU(ctx context.Context, sku string) (*model.Product, error)
	List(ctx context.Context, filter dto.ProductFilter) ([]model.Product, int64, error)
	ListNotInStock(ctx context.Context) ([]model.Product, error)

	CreateTx(tx *gorm.DB, p *model.Product) error
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Product, error)
	FindBySKUTx(tx *gorm.DB, sku string) (*model.Product, error)

	// ApplyStockDeltaTx adds delta to quantity in a single statement, guarded
	// so the result stays within [0, model.MaxQuantity]. It reports false when
	// no row was changed (missing product or out-of-range result).
	//
	// The write statements below take the row lock and leave updated_at alone;
	// StampTx sets it once the lock is held.
	ApplyStockDeltaTx(tx *gorm.DB, id uuid.UUID, delta int) (bool, error)
	// UpdateDetailsTx writes descriptive columns. When expectedVersion is set
	// the row must still carry that version.
	UpdateDetailsTx(tx *gorm.DB, id uuid.UUID, changes ProductChanges, expectedVersion *int) (bool, error)
	// LockTx bumps the version, which takes the row lock for the rest of the
	// transaction. It reports false when the row does not exist.
	LockTx(tx *gorm.DB, id uuid.UUID) (bool, error)
	// StampTx records the derived status and the write time.
	StampTx(tx *gorm.DB, id uuid.UUID, status model.StockStatus, at time.Time) error
	DeleteTx(tx *gorm.DB, id uuid.UUID) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), id)
}

func (r *productRepo) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	return r.FindBySKUTx(r.db.WithContext(ctx), sku)
}

func (r *productRepo) List(ctx context.Context, filter dto.ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Product{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Search != "" {
		// LOWER/LIKE instead of ILIKE keeps the query portable across dialects
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Order("created_at DESC").Limit(filter.Limit).Offset(offset).Find(&products).Error
	return products, total, err
}

func (r *productRepo) ListNotInStock(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("status <> ?", model.StatusInStock).
		Order("quantity ASC").Order("name ASC").
		Find(&products).Error
	return products, err
}

func (r *productRepo) CreateTx(tx *gorm.DB, p *model.Product) error {
	return tx.Create(p).Error
}

func (r *productRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	if err := tx.Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) FindBySKUTx(tx *gorm.DB, sku string) (*model.Product, error) {
	var p model.Product
	if err := tx.Where("sku = ?", sku).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) ApplyStockDeltaTx(tx *gorm.DB, id uuid.UUID, delta int) (bool, error) {
	res := tx.Model(&model.Product{}).
		Where("id = ? AND quantity + ? BETWEEN 0 AND ?", id, delta, model.MaxQuantity).
		UpdateColumns(map[string]interface{}{
			"quantity": gorm.Expr("quantity + ?", delta),
			"version":  gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *productRepo) UpdateDetailsTx(tx *gorm.DB, id uuid.UUID, changes ProductChanges, expectedVersion *int) (bool, error) {
	cols := map[string]interface{}{
		"version": gorm.Expr("version + 1"),
	}
	if changes.Name != nil {
		cols["name"] = *changes.Name
	}
	if changes.Category != nil {
		cols["category"] = *changes.Category
	}
	if changes.Price != nil {
		cols["price"] = *changes.Price
	}
	if changes.Unit != nil {
		cols["unit"] = *changes.Unit
	}
	if changes.MinStockLevel != nil {
		cols["min_stock_level"] = *changes.MinStockLevel
	}

	q := tx.Model(&model.Product{}).Where("id = ?", id)
	if expectedVersion != nil {
		q = q.Where("version = ?", *expectedVersion)
	}
	res := q.UpdateColumns(cols)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *productRepo) StampTx(tx *gorm.DB, id uuid.UUID, status model.StockStatus, at time.Time) error {
	return tx.Model(&model.Product{}).Where("id = ?", id).
		UpdateColumns(map[string]interface{}{"status": status, "updated_at": at}).Error
}

func (r *productRepo) LockTx(tx *gorm.DB, id uuid.UUID) (bool, error) {
	res := tx.Model(&model.Product{}).Where("id = ?", id).
		UpdateColumn("version", gorm.Expr("version + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *productRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Where("id = ?", id).Delete(&model.Product{}).Error
}

func (r *productRepo) DB() *gorm.DB { return r.db }

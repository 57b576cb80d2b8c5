package model

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockStatus is derived from quantity and the per-product minimum level.
type StockStatus string

const (
	StatusInStock    StockStatus = "IN_STOCK"
	StatusLowStock   StockStatus = "LOW_STOCK"
	StatusOutOfStock StockStatus = "OUT_OF_STOCK"
)

// Unit is the unit of measure a product is counted in.
type Unit string

const (
	UnitPieces Unit = "pcs"
	UnitKilo   Unit = "kg"
	UnitLitre  Unit = "litre"
	UnitBox    Unit = "box"
)

// Valid reports whether u is one of the supported units.
func (u Unit) Valid() bool {
	switch u {
	case UnitPieces, UnitKilo, UnitLitre, UnitBox:
		return true
	}
	return false
}

// MaxQuantity bounds stock on hand and the size of a single movement, so
// quantity arithmetic never leaves the range of a 32-bit column.
const MaxQuantity = math.MaxInt32

// Product is a stocked item. Quantity and Status are owned by the stock
// engine; every other column is descriptive.
type Product struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SKU           string          `gorm:"column:sku;uniqueIndex;not null"`
	Name          string          `gorm:"index;not null"`
	Category      string          `gorm:"index;not null"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Unit          Unit            `gorm:"type:varchar(10);not null"`
	Quantity      int             `gorm:"not null;check:chk_products_quantity_non_negative,quantity >= 0"`
	MinStockLevel int             `gorm:"not null;check:chk_products_min_stock_non_negative,min_stock_level >= 0"`
	Status        StockStatus     `gorm:"type:varchar(20);not null;index"`
	// Version increases on every write to the row.
	Version   int    `gorm:"not null"`
	CreatedBy string `gorm:"type:varchar(64);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeCreate assigns the primary key when the caller did not.
func (p *Product) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

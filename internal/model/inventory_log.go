package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovementType is the direction of a stock movement.
type MovementType string

const (
	MovementIn  MovementType = "IN"
	MovementOut MovementType = "OUT"
)

// InventoryLog is one immutable ledger entry. ProductName, SKU and Unit are
// snapshots taken when the entry was written and are never updated, so the
// history stays readable after the product changes or is deleted.
// ProductID deliberately has no foreign key.
type InventoryLog struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey"`
	ProductID   uuid.UUID    `gorm:"type:uuid;not null;index:idx_inventory_logs_product_created,priority:1"`
	ProductName string       `gorm:"not null"`
	SKU         string       `gorm:"column:sku;not null;index"`
	Unit        Unit         `gorm:"type:varchar(10);not null"`
	Type        MovementType `gorm:"type:varchar(3);not null"`
	Quantity    int          `gorm:"not null;check:chk_inventory_logs_quantity_positive,quantity > 0"`
	Reason      string       `gorm:"not null"`
	PerformedBy string       `gorm:"type:varchar(64);not null;index"`
	CreatedAt   time.Time    `gorm:"not null;index:idx_inventory_logs_product_created,priority:2"`
}

// TableName pins the table name used by migrations and raw queries.
func (InventoryLog) TableName() string { return "inventory_logs" }

func (l *InventoryLog) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Signed returns the movement quantity with its direction applied.
func (l InventoryLog) Signed() int {
	if l.Type == MovementOut {
		return -l.Quantity
	}
	return l.Quantity
}

package service

import (
	"context"
	"errors"
	"strings"

	"stockledger/internal/dto"
	"stockledger/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	reasonInitialStock   = "Initial stock"
	reasonProductDeleted = "Product deleted"

	defaultMinStockLevel = 5
)

// CreateProduct stores a new product and, when it starts with stock, the
// matching IN entry. SKU uniqueness is checked inside the same transaction
// and backed by the unique index.
func (s *stockService) CreateProduct(ctx context.Context, req dto.CreateProductRequest, actorID string) (*dto.ProductResponse, error) {
	p, err := s.newProduct(req, actorID)
	if err != nil {
		return nil, err
	}

	err = runTx(ctx, s.products.DB(), "create product", func(tx *gorm.DB) error {
		_, err := s.products.FindBySKUTx(tx, p.SKU)
		switch {
		case err == nil:
			return conflictf("sku %s already exists", p.SKU)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if err := s.products.CreateTx(tx, p); err != nil {
			return err
		}
		if p.Quantity > 0 {
			entry := newLogEntry(p, p.Quantity, reasonInitialStock, actorID, p.CreatedAt)
			if err := s.logs.AppendTx(tx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("product_id", p.ID.String()).
		Str("sku", p.SKU).
		Int("quantity", p.Quantity).
		Str("actor", actorID).
		Msg("product created")

	s.cache.Invalidate(context.WithoutCancel(ctx), p)
	return productToResponse(p), nil
}

func (s *stockService) newProduct(req dto.CreateProductRequest, actorID string) (*model.Product, error) {
	sku := strings.ToUpper(strings.TrimSpace(req.SKU))
	name := strings.TrimSpace(req.Name)
	category := strings.TrimSpace(req.Category)
	switch {
	case sku == "":
		return nil, validationf("sku is required")
	case name == "":
		return nil, validationf("name is required")
	case category == "":
		return nil, validationf("category is required")
	case req.InitialQuantity < 0 || req.InitialQuantity > model.MaxQuantity:
		return nil, validationf("initialQuantity must be within [0, %d]", model.MaxQuantity)
	case req.Price.IsNegative():
		return nil, validationf("price must be >= 0")
	case actorID == "":
		return nil, validationf("actor is required")
	}

	unit := model.UnitPieces
	if req.Unit != "" {
		unit = model.Unit(req.Unit)
		if !unit.Valid() {
			return nil, validationf("unknown unit %q", req.Unit)
		}
	}
	minStock := defaultMinStockLevel
	if req.MinStockLevel != nil {
		if *req.MinStockLevel < 0 {
			return nil, validationf("minStockLevel must be >= 0")
		}
		minStock = *req.MinStockLevel
	}

	now := s.now()
	return &model.Product{
		ID:            uuid.New(),
		SKU:           sku,
		Name:          name,
		Category:      category,
		Price:         req.Price,
		Unit:          unit,
		Quantity:      req.InitialQuantity,
		MinStockLevel: minStock,
		Status:        classifyStock(req.InitialQuantity, minStock),
		Version:       1,
		CreatedBy:     actorID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// DeleteProduct writes off any remaining stock and removes the product in one
// transaction. The ledger keeps every entry for the product.
func (s *stockService) DeleteProduct(ctx context.Context, productID uuid.UUID, actorID string) error {
	if actorID == "" {
		return validationf("actor is required")
	}

	var deleted *model.Product
	err := runTx(ctx, s.products.DB(), "delete product", func(tx *gorm.DB) error {
		ok, err := s.products.LockTx(tx, productID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound(productID)
		}
		// clock read under the lock, like Adjust
		now := s.now()
		p, err := s.products.FindByIDTx(tx, productID)
		if err != nil {
			return err
		}
		if p.Quantity > 0 {
			entry := newLogEntry(p, -p.Quantity, reasonProductDeleted, actorID, now)
			if err := s.logs.AppendTx(tx, entry); err != nil {
				return err
			}
		}
		if err := s.products.DeleteTx(tx, productID); err != nil {
			return err
		}
		deleted = p
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("product_id", productID.String()).
		Str("sku", deleted.SKU).
		Int("written_off", deleted.Quantity).
		Str("actor", actorID).
		Msg("product deleted")

	s.cache.Invalidate(context.WithoutCancel(ctx), deleted)
	return nil
}

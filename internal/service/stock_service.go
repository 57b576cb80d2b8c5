package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockledger/internal/dto"
	"stockledger/internal/model"
	"stockledger/internal/repository"
	"stockledger/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// StockAlertPublisher receives alerts for products that just became low or
// out of stock. *worker.Dispatcher implements it.
type StockAlertPublisher interface {
	EnqueueStockAlert(ctx context.Context, payload worker.StockAlertPayload) error
}

// StockService owns every write that touches quantity or status. Each
// operation runs as one transaction: the product row and its ledger entry
// commit together or not at all.
type StockService interface {
	Adjust(ctx context.Context, productID uuid.UUID, delta int, reason, actorID string) (*dto.ProductResponse, error)
	CreateProduct(ctx context.Context, req dto.CreateProductRequest, actorID string) (*dto.ProductResponse, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, req dto.UpdateProductRequest, actorID string) (*dto.ProductResponse, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID, actorID string) error
}

// Option customises a stock service.
type Option func(*stockService)

// WithClock replaces the wall clock used for ledger timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *stockService) { s.now = now }
}

type stockService struct {
	products repository.ProductRepository
	logs     repository.InventoryLogRepository
	cache    *repository.ProductCache
	alerts   StockAlertPublisher
	now      func() time.Time
}

func NewStockService(
	products repository.ProductRepository,
	logs repository.InventoryLogRepository,
	cache *repository.ProductCache,
	alerts StockAlertPublisher,
	opts ...Option,
) StockService {
	s := &stockService{
		products: products,
		logs:     logs,
		cache:    cache,
		alerts:   alerts,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// runTx executes fn inside a GORM transaction. Errors that already carry a
// domain kind pass through; a duplicate key becomes a conflict and anything
// else is reported as a persistence failure.
func runTx(ctx context.Context, db *gorm.DB, op string, fn func(tx *gorm.DB) error) error {
	err := db.WithContext(ctx).Transaction(fn)
	switch {
	case err == nil:
		return nil
	case isDomainError(err):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s: duplicate key", ErrConflict, op)
	default:
		return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
	}
}

func notFound(id uuid.UUID) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// ── Adjust ────────────────────────────────────────────────────────────────────
//   1. Conditional increment (0 <= quantity + delta <= MaxQuantity); the row
//      stays locked until commit
//   2. 0 rows → NotFound or Conflict, nothing written
//   3. Read the clock, re-read, stamp status, append the ledger entry
//   4. COMMIT, then invalidate cache and publish alerts
// The clock is read only while the row lock is held, so ledger timestamps of
// one product follow its commit order.

func (s *stockService) Adjust(ctx context.Context, productID uuid.UUID, delta int, reason, actorID string) (*dto.ProductResponse, error) {
	reason = strings.TrimSpace(reason)
	if delta == 0 {
		return nil, validationf("quantityDelta must be non-zero")
	}
	if delta > model.MaxQuantity || delta < -model.MaxQuantity {
		return nil, validationf("quantityDelta must be within ±%d", model.MaxQuantity)
	}
	if reason == "" {
		return nil, validationf("reason is required")
	}
	if actorID == "" {
		return nil, validationf("actor is required")
	}

	var updated *model.Product
	var prevStatus model.StockStatus
	err := runTx(ctx, s.products.DB(), "adjust stock", func(tx *gorm.DB) error {
		ok, err := s.products.ApplyStockDeltaTx(tx, productID, delta)
		if err != nil {
			return err
		}
		if !ok {
			p, err := s.products.FindByIDTx(tx, productID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound(productID)
			}
			if err != nil {
				return err
			}
			if delta > 0 {
				return conflictf("capacity exceeded: quantity %d, delta %d, max %d", p.Quantity, delta, model.MaxQuantity)
			}
			return conflictf("insufficient stock: quantity %d, delta %d", p.Quantity, delta)
		}

		now := s.now()
		p, err := s.products.FindByIDTx(tx, productID)
		if err != nil {
			return err
		}
		prevStatus = p.Status
		if err := s.stampTx(tx, p, now); err != nil {
			return err
		}
		if err := s.logs.AppendTx(tx, newLogEntry(p, delta, reason, actorID, now)); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("product_id", productID.String()).
		Int("delta", delta).
		Int("quantity", updated.Quantity).
		Str("status", string(updated.Status)).
		Str("actor", actorID).
		Msg("stock adjusted")

	s.afterCommit(ctx, updated, prevStatus)
	return productToResponse(updated), nil
}

// ── UpdateProduct ─────────────────────────────────────────────────────────────
// Descriptive fields only. A threshold change re-derives the status inside the
// same transaction.

func (s *stockService) UpdateProduct(ctx context.Context, productID uuid.UUID, req dto.UpdateProductRequest, actorID string) (*dto.ProductResponse, error) {
	changes, err := updateChanges(req)
	if err != nil {
		return nil, err
	}

	var updated *model.Product
	var prevStatus model.StockStatus
	err = runTx(ctx, s.products.DB(), "update product", func(tx *gorm.DB) error {
		ok, err := s.products.UpdateDetailsTx(tx, productID, changes, req.Version)
		if err != nil {
			return err
		}
		if !ok {
			return staleOrMissing(tx, s.products, productID, req.Version)
		}

		p, err := s.products.FindByIDTx(tx, productID)
		if err != nil {
			return err
		}
		prevStatus = p.Status
		if err := s.stampTx(tx, p, s.now()); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("product_id", productID.String()).
		Str("actor", actorID).
		Int("version", updated.Version).
		Msg("product updated")

	s.afterCommit(ctx, updated, prevStatus)
	return productToResponse(updated), nil
}

func updateChanges(req dto.UpdateProductRequest) (repository.ProductChanges, error) {
	var ch repository.ProductChanges
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return ch, validationf("name must not be empty")
		}
		ch.Name = &name
	}
	if req.Category != nil {
		cat := strings.TrimSpace(*req.Category)
		if cat == "" {
			return ch, validationf("category must not be empty")
		}
		ch.Category = &cat
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return ch, validationf("price must be >= 0")
		}
		ch.Price = req.Price
	}
	if req.Unit != nil {
		u := model.Unit(*req.Unit)
		if !u.Valid() {
			return ch, validationf("unknown unit %q", *req.Unit)
		}
		ch.Unit = &u
	}
	if req.MinStockLevel != nil {
		if *req.MinStockLevel < 0 {
			return ch, validationf("minStockLevel must be >= 0")
		}
		ch.MinStockLevel = req.MinStockLevel
	}
	return ch, nil
}

// staleOrMissing explains an update that matched no row. Without an expected
// version the only way to miss is a vanished row; a present row with no
// version check means the statement itself misbehaved.
func staleOrMissing(tx *gorm.DB, products repository.ProductRepository, id uuid.UUID, version *int) error {
	_, err := products.FindByIDTx(tx, id)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound(id)
	case err != nil:
		return err
	case version != nil:
		return conflictf("version %d is stale", *version)
	default:
		return fmt.Errorf("%w: update of %s matched no row", ErrPersistence, id)
	}
}

// stampTx persists the derived status and the write time. Callers hold the
// row lock.
func (s *stockService) stampTx(tx *gorm.DB, p *model.Product, at time.Time) error {
	next := classifyStock(p.Quantity, p.MinStockLevel)
	if err := s.products.StampTx(tx, p.ID, next, at); err != nil {
		return err
	}
	p.Status = next
	p.UpdatedAt = at
	return nil
}

// afterCommit runs best-effort side effects. It never changes the outcome of
// the mutation that triggered it.
// The request context may already be cancelled once the client has its
// answer, so side effects run on a detached context.
func (s *stockService) afterCommit(ctx context.Context, p *model.Product, prevStatus model.StockStatus) {
	ctx = context.WithoutCancel(ctx)
	s.cache.Invalidate(ctx, p)

	if s.alerts == nil || !isAlertTransition(prevStatus, p.Status) {
		return
	}
	payload := worker.StockAlertPayload{
		ProductID:      p.ID.String(),
		SKU:            p.SKU,
		Name:           p.Name,
		Quantity:       p.Quantity,
		MinStockLevel:  p.MinStockLevel,
		Status:         string(p.Status),
		PreviousStatus: string(prevStatus),
		OccurredAt:     s.now(),
	}
	if err := s.alerts.EnqueueStockAlert(ctx, payload); err != nil {
		log.Warn().Err(err).Str("product_id", payload.ProductID).Msg("failed to enqueue stock alert")
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"stockledger/internal/dto"
	"stockledger/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductService serves read-only product queries.
type ProductService interface {
	GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error)
	GetBySKU(ctx context.Context, sku string) (*dto.ProductResponse, error)
	List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error)
	StockAlerts(ctx context.Context) ([]dto.StockAlertResponse, error)
}

type productService struct {
	repo  repository.ProductRepository
	cache *repository.ProductCache
}

func NewProductService(repo repository.ProductRepository, cache *repository.ProductCache) ProductService {
	return &productService{repo: repo, cache: cache}
}

func (s *productService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, id.String())
	}
	return productToResponse(p), nil
}

// GetBySKU reads through the Redis cache.
func (s *productService) GetBySKU(ctx context.Context, sku string) (*dto.ProductResponse, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" {
		return nil, validationf("sku is required")
	}
	if p, ok := s.cache.Get(ctx, sku); ok {
		return productToResponse(p), nil
	}
	p, err := s.repo.FindBySKU(ctx, sku)
	if err != nil {
		return nil, lookupError(err, sku)
	}
	s.cache.Set(ctx, p)
	return productToResponse(p), nil
}

func (s *productService) List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: list products: %w", ErrPersistence, err)
	}

	data := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		data = append(data, *productToResponse(&products[i]))
	}
	return &dto.ProductListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
	}, nil
}

func (s *productService) StockAlerts(ctx context.Context) ([]dto.StockAlertResponse, error) {
	products, err := s.repo.ListNotInStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: stock alerts: %w", ErrPersistence, err)
	}
	out := make([]dto.StockAlertResponse, 0, len(products))
	for _, p := range products {
		out = append(out, dto.StockAlertResponse{
			ProductID:     p.ID.String(),
			SKU:           p.SKU,
			Name:          p.Name,
			Quantity:      p.Quantity,
			MinStockLevel: p.MinStockLevel,
			Status:        string(p.Status),
		})
	}
	return out, nil
}

func lookupError(err error, key string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return fmt.Errorf("%w: lookup %s: %w", ErrPersistence, key, err)
}

// cmd/seedproducts creates a few demo products through the stock service, so
// each one gets its "Initial stock" ledger entry. Existing SKUs are skipped.
// Usage: go run ./cmd/seedproducts
package main

import (
	"context"
	"errors"

	"stockledger/internal/config"
	"stockledger/internal/dto"
	"stockledger/internal/infra"
	"stockledger/internal/repository"
	"stockledger/internal/service"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const seedActor = "seed"

func main() {
	cfg, err := config.Load()
	if err != nil {
		infra.SetupLogger("development", "info")
		log.Fatal().Err(err).Msg("failed to load config")
	}
	infra.SetupLogger(cfg.Env, cfg.LogLevel)

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	svc := service.NewStockService(
		repository.NewProductRepository(db),
		repository.NewInventoryLogRepository(db),
		nil, nil,
	)

	minLow := 10
	seeds := []dto.CreateProductRequest{
		{Name: "Copy paper A4", SKU: "PAP-A4", Category: "Stationery", Price: decimal.RequireFromString("4.90"), Unit: "box", InitialQuantity: 40},
		{Name: "Olive oil", SKU: "OIL-OLV-1L", Category: "Grocery", Price: decimal.RequireFromString("8.75"), Unit: "litre", InitialQuantity: 6},
		{Name: "Basmati rice", SKU: "RICE-BAS", Category: "Grocery", Price: decimal.RequireFromString("3.20"), Unit: "kg", InitialQuantity: 120, MinStockLevel: &minLow},
		{Name: "USB-C cable", SKU: "CAB-USBC", Category: "Electronics", Price: decimal.RequireFromString("6.00"), Unit: "pcs"},
	}

	ctx := context.Background()
	for _, req := range seeds {
		p, err := svc.CreateProduct(ctx, req, seedActor)
		switch {
		case errors.Is(err, service.ErrConflict):
			log.Info().Str("sku", req.SKU).Msg("already present, skipped")
		case err != nil:
			log.Fatal().Err(err).Str("sku", req.SKU).Msg("seed failed")
		default:
			log.Info().Str("sku", p.SKU).Int("quantity", p.Quantity).Str("status", p.Status).Msg("seeded")
		}
	}
}

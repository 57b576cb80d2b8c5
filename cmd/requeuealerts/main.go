// cmd/requeuealerts moves dead-lettered stock alerts back onto the alert queue
// once the webhook receiver is healthy again.
// Usage: go run ./cmd/requeuealerts -limit 100
package main

import (
	"context"
	"flag"
	"time"

	"stockledger/internal/config"
	"stockledger/internal/infra"
	"stockledger/internal/worker"

	"github.com/rs/zerolog/log"
)

func main() {
	limit := flag.Int("limit", 0, "max alerts to requeue, 0 for all")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		infra.SetupLogger("development", "info")
		log.Fatal().Err(err).Msg("failed to load config")
	}
	infra.SetupLogger(cfg.Env, cfg.LogLevel)

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if rdb == nil {
		log.Fatal().Msg("REDIS_URL is required")
	}
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	moved, err := worker.RequeueDLQ(ctx, rdb, worker.QueueStockAlerts, *limit)
	if err != nil {
		log.Error().Err(err).Int("moved", moved).Msg("requeue stopped early")
		return
	}
	left, _ := worker.DLQLength(ctx, rdb, worker.QueueStockAlerts)
	log.Info().Int("moved", moved).Int64("left", left).Msg("stock alerts requeued")
}

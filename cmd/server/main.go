package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"stockledger/internal/config"
	"stockledger/internal/infra"
	"stockledger/internal/router"
	"stockledger/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		infra.SetupLogger("development", "info")
		log.Fatal().Err(err).Msg("failed to load config")
	}
	infra.SetupLogger(cfg.Env, cfg.LogLevel)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("stock ledger stopped")
	}
	log.Info().Msg("stock ledger exited")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if rdb != nil {
		defer rdb.Close()
		// runs before rdb.Close: workers finish their current alert first
		defer startAlertWorkers(ctx, cfg, rdb)()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router.New(cfg, db, rdb),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Str("env", cfg.Env).Msg("stock ledger listening")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		stop() // lets the alert workers exit
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// startAlertWorkers consumes the stock alert queue until ctx ends and
// schedules the dead-letter redrive. Without a webhook URL the workers still
// drain the queue and log each alert. The returned func waits for both.
func startAlertWorkers(ctx context.Context, cfg *config.Config, rdb *redis.Client) func() {
	var sender worker.AlertSender
	if wh := infra.NewWebhookClient(cfg.AlertWebhookURL, time.Duration(cfg.AlertWebhookTimeoutSeconds)*time.Second); wh != nil {
		sender = wh
	} else {
		log.Warn().Msg("ALERT_WEBHOOK_URL not set, stock alerts will only be logged")
	}
	cb := infra.NewCircuitBreaker(infra.DefaultCBConfig("alert-webhook"))
	wait := worker.StartWorkerPool(ctx, rdb, &worker.WorkerHandlers{
		StockAlert: worker.NewAlertWorker(sender, cb, rdb, time.Second),
	}, cfg.WorkerPoolSize)

	if sender == nil {
		return wait
	}
	redriver := worker.NewRedriver(rdb, cb, cfg.AlertRedriveBatch)
	if err := redriver.Start(cfg.AlertRedriveSchedule); err != nil {
		log.Error().Err(err).Msg("redrive not scheduled")
	}
	return func() {
		redriver.Stop()
		wait()
	}
}

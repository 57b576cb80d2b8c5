package worker

import (
	"context"
	"time"

	"stockledger/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Redriver periodically moves dead-lettered stock alerts back onto the alert
// queue so they get another delivery round once the webhook recovers.
type Redriver struct {
	rdb   *redis.Client
	cb    *infra.CircuitBreaker
	batch int
	cron  *cron.Cron
}

// NewRedriver shares cb with the alert workers: while it is open a redrive
// would only bounce the alerts straight back into the DLQ.
func NewRedriver(rdb *redis.Client, cb *infra.CircuitBreaker, batch int) *Redriver {
	return &Redriver{rdb: rdb, cb: cb, batch: batch, cron: cron.New()}
}

// Start schedules RunOnce on a standard cron spec ("*/10 * * * *",
// "@every 5m"). An empty spec disables redriving.
func (r *Redriver) Start(spec string) error {
	if spec == "" {
		log.Info().Msg("redrive: disabled")
		return nil
	}
	_, err := r.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		_, _ = r.RunOnce(ctx)
	})
	if err != nil {
		return err
	}
	r.cron.Start()
	log.Info().Str("schedule", spec).Int("batch", r.batch).Msg("redrive: scheduled")
	return nil
}

// Stop waits for a running redrive to finish.
func (r *Redriver) Stop() {
	<-r.cron.Stop().Done()
}

// RunOnce requeues up to batch dead alerts. It is a no-op while the breaker
// is open.
func (r *Redriver) RunOnce(ctx context.Context) (int, error) {
	if r.cb != nil && r.cb.State() == infra.CBOpen {
		log.Debug().Str("breaker", r.cb.Name()).Msg("redrive: breaker open, skipped")
		return 0, nil
	}
	moved, err := RequeueDLQ(ctx, r.rdb, QueueStockAlerts, r.batch)
	if err != nil {
		log.Error().Err(err).Int("moved", moved).Msg("redrive: stopped early")
		return moved, err
	}
	if moved > 0 {
		log.Info().Int("moved", moved).Msg("redrive: alerts requeued")
	}
	return moved, nil
}

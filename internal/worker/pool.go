package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueStockAlerts = "jobs:stock_alerts"

	jobTypeStockAlert = "stock_alert"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// StockAlertPayload describes a product whose status just moved into
// LOW_STOCK or OUT_OF_STOCK.
type StockAlertPayload struct {
	ProductID      string    `json:"productId"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	MinStockLevel  int       `json:"minStockLevel"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previousStatus"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP. A nil Dispatcher, or one without
// a client, drops jobs silently.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueStockAlert pushes a stock alert job to Redis.
func (d *Dispatcher) EnqueueStockAlert(ctx context.Context, payload StockAlertPayload) error {
	return d.enqueue(ctx, QueueStockAlerts, jobTypeStockAlert, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	if d == nil || d.rdb == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{Type: jobType, Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// JobHandler processes one decoded job payload.
type JobHandler interface {
	Process(ctx context.Context, queue string, raw json.RawMessage)
}

// WorkerHandlers groups the processors wired at the composition root.
type WorkerHandlers struct {
	StockAlert JobHandler
}

// StartWorkerPool runs n consumers of the alert queue until ctx is done. The
// returned func blocks until every consumer has exited.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, n int) (wait func()) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			consume(ctx, rdb, handlers, id)
		}(i)
	}
	log.Info().Int("workers", n).Str("queue", QueueStockAlerts).Msg("worker pool started")
	return wg.Wait
}

// consume blocks on BRPOP in 5s slices so cancellation is noticed promptly.
// Redis errors back off up to 30s instead of spinning.
func consume(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, id int) {
	backoff := time.Second
	for ctx.Err() == nil {
		res, err := rdb.BRPop(ctx, 5*time.Second, QueueStockAlerts).Result()
		switch {
		case err == nil:
			backoff = time.Second
			if len(res) == 2 {
				processJob(ctx, handlers, res[0], res[1])
			}
		case errors.Is(err, redis.Nil), ctx.Err() != nil:
		default:
			log.Warn().Err(err).Int("worker", id).Dur("retry_in", backoff).Msg("worker: queue read failed")
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, 30*time.Second)
		}
	}
	log.Info().Int("worker", id).Msg("worker stopped")
}

func processJob(ctx context.Context, handlers *WorkerHandlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("worker: undecodable job dropped")
		return
	}
	switch job.Type {
	case jobTypeStockAlert:
		if handlers == nil || handlers.StockAlert == nil {
			log.Warn().Str("queue", queue).Msg("worker: no stock alert handler, job dropped")
			return
		}
		handlers.StockAlert.Process(ctx, queue, job.Payload)
	default:
		log.Warn().Str("type", job.Type).Str("queue", queue).Msg("worker: unknown job type")
	}
}

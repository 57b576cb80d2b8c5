package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"stockledger/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const alertMaxAttempts = 3

// AlertSender delivers one alert. *infra.WebhookClient implements it.
type AlertSender interface {
	Post(ctx context.Context, body interface{}) error
}

// AlertWorker delivers stock alerts to the configured webhook. Delivery is
// retried with exponential backoff behind a circuit breaker; alerts that
// still fail land in the DLQ.
type AlertWorker struct {
	sender      AlertSender
	cb          *infra.CircuitBreaker
	rdb         *redis.Client
	baseBackoff time.Duration
}

// NewAlertWorker builds a worker. A nil sender only logs alerts.
func NewAlertWorker(sender AlertSender, cb *infra.CircuitBreaker, rdb *redis.Client, baseBackoff time.Duration) *AlertWorker {
	if cb == nil {
		cb = infra.NewCircuitBreaker(infra.DefaultCBConfig("alert-webhook"))
	}
	return &AlertWorker{sender: sender, cb: cb, rdb: rdb, baseBackoff: baseBackoff}
}

// Process implements JobHandler.
func (w *AlertWorker) Process(ctx context.Context, queue string, raw json.RawMessage) {
	var payload StockAlertPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("alert_worker: invalid payload")
		SendToDLQ(ctx, w.rdb, queue, jobTypeStockAlert, raw, "invalid payload: "+err.Error(), 0)
		return
	}

	logEvt := log.Info().
		Str("product_id", payload.ProductID).
		Str("sku", payload.SKU).
		Str("status", payload.Status).
		Int("quantity", payload.Quantity)

	if isNilSender(w.sender) {
		logEvt.Msg("alert_worker: stock alert (no webhook configured)")
		return
	}

	attempts := 0
	err := withRetry(ctx, alertMaxAttempts, w.baseBackoff, func(attempt int) error {
		attempts = attempt + 1
		err := w.cb.Execute(func() error { return w.sender.Post(ctx, payload) })
		if err != nil {
			log.Warn().
				Err(err).
				Int("attempt", attempts).
				Str("product_id", payload.ProductID).
				Msg("alert_worker: delivery attempt failed")
		}
		return err
	})
	if err != nil {
		reason := err.Error()
		if errors.Is(err, infra.ErrCircuitOpen) {
			reason = "circuit open: " + reason
		}
		SendToDLQ(ctx, w.rdb, queue, jobTypeStockAlert, raw, reason, attempts)
		return
	}
	logEvt.Int("attempts", attempts).Msg("alert_worker: stock alert delivered")
}

func isNilSender(s AlertSender) bool {
	if s == nil {
		return true
	}
	c, ok := s.(*infra.WebhookClient)
	return ok && c == nil
}

// withRetry calls fn up to maxAttempts times with exponential backoff:
// attempt 1 is immediate, then base, 2*base, ...
// Returns nil if any attempt succeeds; the last error otherwise.
func withRetry(ctx context.Context, maxAttempts int, base time.Duration, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := base * time.Duration(1<<uint(i-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

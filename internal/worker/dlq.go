package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DLQPrefix namespaces the dead-letter list of each queue: dlq:jobs:stock_alerts.
const DLQPrefix = "dlq:"

// DLQEntry is a job that exhausted its delivery attempts.
type DLQEntry struct {
	OriginalQueue string          `json:"originalQueue"`
	JobType       string          `json:"jobType"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      time.Time       `json:"failedAt"`
	Attempts      int             `json:"attempts"`
}

// SendToDLQ parks a failed job. It never fails the caller: without Redis, or
// if the push itself fails, the job is logged and dropped.
func SendToDLQ(ctx context.Context, rdb *redis.Client, queue, jobType string, payload json.RawMessage, reason string, attempts int) {
	l := log.With().Str("queue", queue).Str("job_type", jobType).Str("reason", reason).Int("attempts", attempts).Logger()
	if rdb == nil {
		l.Error().RawJSON("payload", payload).Msg("dlq: redis disabled, job dropped")
		return
	}
	data, err := json.Marshal(DLQEntry{
		OriginalQueue: queue,
		JobType:       jobType,
		Payload:       payload,
		Reason:        reason,
		FailedAt:      time.Now().UTC(),
		Attempts:      attempts,
	})
	if err != nil {
		l.Error().Err(err).Msg("dlq: encode entry")
		return
	}
	if err := rdb.LPush(ctx, DLQPrefix+queue, data).Err(); err != nil {
		l.Error().Err(err).RawJSON("payload", payload).Msg("dlq: push failed, job dropped")
		return
	}
	l.Warn().Msg("dlq: job parked")
}

func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}

// RequeueDLQ moves up to limit parked jobs of queue back onto it, oldest
// first, with a fresh attempt budget. limit <= 0 drains the whole list.
// Entries that cannot be decoded stay parked at the head of the list.
func RequeueDLQ(ctx context.Context, rdb *redis.Client, queue string, limit int) (int, error) {
	key := DLQPrefix + queue
	moved := 0
	for limit <= 0 || moved < limit {
		raw, err := rdb.RPop(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("pop %s: %w", key, err)
		}

		var entry DLQEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			_ = rdb.LPush(ctx, key, raw).Err()
			return moved, fmt.Errorf("decode dlq entry: %w", err)
		}
		job, err := json.Marshal(Job{Type: entry.JobType, Payload: entry.Payload})
		if err == nil {
			err = rdb.LPush(ctx, entry.OriginalQueue, job).Err()
		}
		if err != nil {
			_ = rdb.RPush(ctx, key, raw).Err()
			return moved, fmt.Errorf("requeue onto %s: %w", entry.OriginalQueue, err)
		}
		moved++
	}
	return moved, nil
}

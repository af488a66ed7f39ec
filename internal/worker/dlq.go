package worker

// Dead letter queue: jobs that exhausted their retries land in a Redis list
// named dlq:{queue} so an operator can inspect or replay them. Entries are
// appended with RPUSH, oldest failure first.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

type DLQEntry struct {
	Queue    string          `json:"queue"`
	JobType  string          `json:"jobType"`
	Payload  json.RawMessage `json:"payload"`
	Reason   string          `json:"reason"`
	Attempts int             `json:"attempts"`
	FailedAt time.Time       `json:"failedAt"`
}

// SendToDLQ parks a failed job. Best effort: a DLQ write failure is logged
// and swallowed so it never takes the worker down with it.
func SendToDLQ(ctx context.Context, rdb *redis.Client, queue string, jobType string, payload json.RawMessage, reason string, attempts int) {
	data, err := json.Marshal(DLQEntry{
		Queue:    queue,
		JobType:  jobType,
		Payload:  payload,
		Reason:   reason,
		Attempts: attempts,
		FailedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: marshal")
		return
	}

	if err := rdb.RPush(ctx, DLQPrefix+queue, data).Err(); err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: push")
		return
	}

	log.Warn().
		Str("queue", queue).
		Str("job_type", jobType).
		Int("attempts", attempts).
		Str("reason", reason).
		Msg("job parked in dead letter queue")
}

// DLQLength reports how many jobs are parked for a queue.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}

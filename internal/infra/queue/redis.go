package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/okfn/ridl-curation/internal/metrics"
	"github.com/okfn/ridl-curation/internal/usecase"
)

// RedisQueue is the fire-and-forget mail queue: producers LPUSH jobs, the
// worker BRPOPs and hands them to the mailer. Delivery failures are logged
// and counted, never retried back into the producing request.
type RedisQueue struct {
	rdb *redis.Client
	key string
}

func NewRedisQueue(rdb *redis.Client, key string) *RedisQueue {
	return &RedisQueue{rdb: rdb, key: key}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job usecase.MailJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, "marshal mail job")
	}
	return q.rdb.LPush(ctx, q.key, payload).Err()
}

// Run consumes jobs until ctx is done. Meant to be started once from main
// as a goroutine.
func (q *RedisQueue) Run(ctx context.Context, mailer usecase.Mailer) {
	for {
		if ctx.Err() != nil {
			return
		}

		result, err := q.rdb.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			slog.ErrorContext(ctx, "mail queue pop failed",
				slog.String("error", err.Error()),
				slog.String("module", "queue"),
			)
			time.Sleep(time.Second)
			continue
		}
		if len(result) != 2 {
			continue
		}

		var job usecase.MailJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			slog.ErrorContext(ctx, "malformed mail job dropped",
				slog.String("error", err.Error()),
				slog.String("module", "queue"),
			)
			continue
		}

		if err := mailer.Send(ctx, job.To, job.Subject, job.Body); err != nil {
			metrics.NotificationFailures.Inc()
			slog.ErrorContext(ctx, "mail delivery failed",
				slog.String("error", err.Error()),
				slog.String("recipient", job.To.Email),
				slog.String("module", "queue"),
			)
		}
	}
}

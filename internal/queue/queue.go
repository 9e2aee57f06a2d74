// Package queue moves job IDs between the webhook server and the worker
// pool over a Redis list.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// blockTimeout bounds a single BRPOP wait so consumers notice cancellation.
const blockTimeout = 5 * time.Second

// Config holds the Redis connection and list key settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// Queue is a FIFO job-ID queue backed by a Redis list. Producers LPUSH,
// consumers BRPOP, so IDs come out in arrival order.
type Queue struct {
	rdb    *goredis.Client
	key    string
	logger *slog.Logger
}

// New connects to Redis and verifies the connection with a ping.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Queue, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address required")
	}
	if cfg.Key == "" {
		cfg.Key = "keepsake:jobs"
	}
	if logger == nil {
		logger = slog.Default()
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Queue{
		rdb:    rdb,
		key:    cfg.Key,
		logger: logger.With("component", "queue"),
	}, nil
}

// Enqueue pushes a job ID onto the queue.
func (q *Queue) Enqueue(ctx context.Context, jobID string) error {
	if err := q.rdb.LPush(ctx, q.key, jobID).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", jobID, err)
	}
	q.logger.Debug("job enqueued", "job_id", jobID)
	return nil
}

// Len reports the number of queued job IDs.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.rdb.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return n, nil
}

// Close releases the Redis connection.
func (q *Queue) Close() error {
	return q.rdb.Close()
}

// Handler processes a single dequeued job ID.
type Handler func(ctx context.Context, jobID string) error

// Consume runs concurrency blocking consumers until ctx is cancelled.
// Handler errors are logged and never stop the loop; the job lifecycle
// records its own failure state.
func (q *Queue) Consume(ctx context.Context, concurrency int, handler Handler) {
	if concurrency < 1 {
		concurrency = 1
	}
	q.logger.Info("consumers starting", "concurrency", concurrency, "key", q.key)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			log := q.logger.With("worker", worker)
			for {
				if ctx.Err() != nil {
					return
				}
				res, err := q.rdb.BRPop(ctx, blockTimeout, q.key).Result()
				if err != nil {
					if errors.Is(err, goredis.Nil) {
						continue
					}
					if ctx.Err() != nil {
						return
					}
					log.Error("dequeue failed", "error", err)
					time.Sleep(time.Second)
					continue
				}
				// BRPOP returns [key, value].
				if len(res) != 2 {
					continue
				}
				jobID := res[1]
				log.Debug("job dequeued", "job_id", jobID)
				if err := handler(ctx, jobID); err != nil {
					log.Error("job handler failed", "job_id", jobID, "error", err)
				}
			}
		}(i)
	}
	wg.Wait()
	q.logger.Info("consumers stopped")
}

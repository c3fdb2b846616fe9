package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/timmy/narrator/internal/config"
	"github.com/timmy/narrator/internal/logger"
)

// DefaultQueue is the redis list jobs are pushed onto.
const DefaultQueue = "q_narrator_jobs"

// Queue is a redis list of job ids. Any number of workers may pop from it;
// BRPOP hands each id to exactly one.
type Queue struct {
	rdb *redis.Client
	key string
}

func NewQueue(cfg config.RedisConfig) *Queue {
	key := cfg.Queue
	if key == "" {
		key = DefaultQueue
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Queue{rdb: rdb, key: key}
}

// Key returns the list name.
func (q *Queue) Key() string { return q.key }

func (q *Queue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

func (q *Queue) Enqueue(ctx context.Context, jobID string) error {
	if err := q.rdb.LPush(ctx, q.key, jobID).Err(); err != nil {
		return fmt.Errorf("push %s: %w", q.key, err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next job id. ok is false on timeout.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (string, bool, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("pop %s: %w", q.key, err)
	}
	return res[1], true, nil
}

func (q *Queue) Close() error {
	return q.rdb.Close()
}

// Consume pops job ids and processes them one at a time until ctx is done.
func (q *Queue) Consume(ctx context.Context, jobs *JobService) error {
	ctx = logger.SetComponent(ctx, "worker")
	logger.CtxInfo(ctx, "listening on %s", q.key)
	for {
		if ctx.Err() != nil {
			return nil
		}
		id, ok, err := q.Dequeue(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.FromContext(ctx).WithError(err).Error("dequeue failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		if !ok {
			continue
		}
		jctx := logger.SetJobID(ctx, id)
		if err := jobs.Process(jctx, id); err != nil {
			logger.CtxError(jctx, "job %s failed: %v", logger.GetJobID(jctx), err)
		}
	}
}

package queue

import (
	"codetective/internal/domain/model"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// GradingQueue carries grading jobs from submit to the worker pool over
// a Redis list.
type GradingQueue struct {
	rdb  *redis.Client
	name string
}

func NewGradingQueue(rdb *redis.Client, name string) *GradingQueue {
	return &GradingQueue{rdb: rdb, name: name}
}

func (q *GradingQueue) Enqueue(ctx context.Context, job *model.GradingJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal grading job: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("push grading job to queue %q: %w", q.name, err)
	}
	return nil
}

// Dequeue blocks until a job is available or ctx is cancelled.
func (q *GradingQueue) Dequeue(ctx context.Context) (*model.GradingJob, error) {
	values, err := q.rdb.BRPop(ctx, 0*time.Second, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // timeout, caller loops
		}
		return nil, err
	}
	if len(values) < 2 || values[1] == "" {
		return nil, nil
	}
	var job model.GradingJob
	if err := json.Unmarshal([]byte(values[1]), &job); err != nil {
		return nil, fmt.Errorf("unmarshal grading job: %w", err)
	}
	return &job, nil
}

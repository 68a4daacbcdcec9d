package generation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// QueueMessage is the wire format between API and media worker
type QueueMessage struct {
	JobID uuid.UUID `json:"job_id"`
	Kind  Kind      `json:"kind"`
}

// Enqueuer pushes jobs for the media worker
type Enqueuer interface {
	Enqueue(ctx context.Context, msg QueueMessage) error
}

// Queue is a Redis list shared by the API (producer) and the media worker
// (consumer).
type Queue struct {
	redis *redis.Client
	key   string
}

// NewQueue creates the job queue
func NewQueue(redisClient *redis.Client, key string) *Queue {
	if key == "" {
		key = "generation:jobs"
	}
	return &Queue{redis: redisClient, key: key}
}

// Enqueue pushes one job onto the queue
func (q *Queue) Enqueue(ctx context.Context, msg QueueMessage) error {
	if q.redis == nil {
		return errors.New("generation queue: redis not configured")
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return q.redis.LPush(ctx, q.key, data).Err()
}

// Dequeue blocks for up to timeout waiting for a job. Returns nil with no
// error when the wait timed out.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*QueueMessage, error) {
	if q.redis == nil {
		return nil, errors.New("generation queue: redis not configured")
	}
	vals, err := q.redis.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	// BRPOP returns [key, value]
	if len(vals) != 2 {
		return nil, nil
	}

	var msg QueueMessage
	if err := json.Unmarshal([]byte(vals[1]), &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Depth returns the number of waiting jobs
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	if q.redis == nil {
		return 0, nil
	}
	return q.redis.LLen(ctx, q.key).Result()
}

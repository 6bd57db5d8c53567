package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// RedisQueue implementa Queue sobre una lista de Redis (LPUSH / BRPOP).
// Varios workers pueden consumir la misma lista: Redis entrega cada elemento
// a exactamente un BRPOP, y el handoff del Enqueue es at-least-once.
type RedisQueue struct {
	client *rdb.Client
	key    string

	// PollTimeout acota cada BRPOP para poder chequear ctx. Default 5s.
	PollTimeout time.Duration
}

func NewRedisQueue(client *rdb.Client, key string) *RedisQueue {
	if key == "" {
		key = "notify:jobs"
	}
	return &RedisQueue{
		client:      client,
		key:         key,
		PollTimeout: 5 * time.Second,
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", q.key, err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*Job, error) {
	for {
		res, err := q.client.BRPop(ctx, q.PollTimeout, q.key).Result()
		if errors.Is(err, rdb.Nil) {
			// timeout del poll: rechequear ctx y volver a bloquear
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		// BRPop retorna [key, value]
		if len(res) != 2 {
			return nil, fmt.Errorf("brpop: unexpected reply %v", res)
		}
		var job Job
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return nil, fmt.Errorf("unmarshal job: %w", err)
		}
		return &job, nil
	}
}

var _ Queue = (*RedisQueue)(nil)

package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// popTimeout bounds each BLPOP so Pop notices a cancelled ctx.
const popTimeout = time.Second

type RedisQueue struct {
	client    *redis.Client
	queueName string
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{
		client:    client,
		queueName: "jobflow:tasks:pending",
	}
}

// Push adds a task ID to the end of the list
func (q *RedisQueue) Push(ctx context.Context, taskID string) error {
	return q.client.RPush(ctx, q.queueName, taskID).Err()
}

// Pop waits for a task ID and removes it from the front of the list
func (q *RedisQueue) Pop(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		result, err := q.client.BLPop(ctx, popTimeout, q.queueName).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return "", err
		}
		// BLPop returns a slice: [QueueName, Element]
		return result[1], nil
	}
}

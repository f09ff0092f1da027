package redis

import (
	"context"
	"encoding/json"
	"log/slog"

	"go-jobflow/internal/domain"

	"github.com/redis/go-redis/v9"
)

type RedisEventBus struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

func NewRedisEventBus(client *redis.Client, logger *slog.Logger) *RedisEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisEventBus{
		client:  client,
		channel: "jobflow:events:lifecycle",
		logger:  logger,
	}
}

// Publish broadcasts the event to the network
func (b *RedisEventBus) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Subscribe opens a continuous stream of lifecycle events. The stream is
// closed once ctx is done.
func (b *RedisEventBus) Subscribe(ctx context.Context) (<-chan domain.Event, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	// Wait for the subscription to be confirmed so no event published after
	// Subscribe returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	msgChan := make(chan domain.Event)

	// Forward from Redis to our Go channel
	go func() {
		defer close(msgChan)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event domain.Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.logger.Warn("Dropping malformed event", "error", err)
					continue
				}
				select {
				case msgChan <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return msgChan, nil
}

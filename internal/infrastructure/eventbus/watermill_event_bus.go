// Package eventbus provides the in-process lifecycle event bus.
package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"

	"go-jobflow/internal/domain"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	Topic                = "jobflow.lifecycle"
	eventTypeMetadataKey = "event_type"
)

type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber, logger *slog.Logger) *WatermillEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &WatermillEventBus{publisher: pub, subscriber: sub, logger: logger}
}

// NewGoChannelBus builds a bus on a single gochannel pub/sub. Events are
// only delivered to subscribers that exist at publish time.
func NewGoChannelBus(logger *slog.Logger) *WatermillEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            1000,
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		watermill.NewSlogLogger(logger),
	)
	return NewWatermillEventBus(pubSub, pubSub, logger)
}

func (eb *WatermillEventBus) Publish(_ context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(eventTypeMetadataKey, string(event.Type))

	return eb.publisher.Publish(Topic, msg)
}

func (eb *WatermillEventBus) Subscribe(ctx context.Context) (<-chan domain.Event, error) {
	messages, err := eb.subscriber.Subscribe(ctx, Topic)
	if err != nil {
		return nil, err
	}

	out := make(chan domain.Event)
	go func() {
		defer close(out)
		for msg := range messages {
			var event domain.Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				eb.logger.Warn("Dropping malformed event", "messageId", msg.UUID, "error", err)
				msg.Ack()
				continue
			}
			msg.Ack()

			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (eb *WatermillEventBus) Close() error {
	if err := eb.publisher.Close(); err != nil {
		return err
	}
	if any(eb.subscriber) != any(eb.publisher) {
		return eb.subscriber.Close()
	}
	return nil
}

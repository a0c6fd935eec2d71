package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Bus carries result events. With no brokers configured it is an in-process
// channel that also exposes a subscriber; with brokers it publishes to kafka.
type Bus struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

func NewBus(brokers []string, logger *slog.Logger) (*Bus, error) {
	if logger == nil {
		logger = slog.Default()
	}
	wmLogger := watermill.NewSlogLogger(logger)

	if len(brokers) == 0 {
		pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLogger)
		return &Bus{Publisher: pubSub, Subscriber: pubSub}, nil
	}

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}
	return &Bus{Publisher: publisher}, nil
}

func (b *Bus) Close() error {
	if err := b.Publisher.Close(); err != nil {
		return fmt.Errorf("failed to close publisher: %w", err)
	}
	return nil
}

// LogResults consumes a topic of the in-process bus and logs each result
// until ctx is done. It is a no-op for brokered buses.
func (b *Bus) LogResults(ctx context.Context, topic string, logger *slog.Logger) error {
	if b.Subscriber == nil {
		return nil
	}
	messages, err := b.Subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	go func() {
		for msg := range messages {
			var fields map[string]interface{}
			if err := json.Unmarshal(msg.Payload, &fields); err != nil {
				logger.Warn("Discarding malformed result event", "message_id", msg.UUID, "error", err)
				msg.Ack()
				continue
			}
			logger.Info("Placement result",
				"message_id", msg.UUID,
				"test_type", fields["testType"],
				"student_id", fields["studentId"],
				"marks", fields["marks"],
				"total_marks", fields["totalMarks"])
			msg.Ack()
		}
	}()
	return nil
}

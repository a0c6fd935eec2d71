package reporting

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const DefaultTopic = "placement.results"

// EventSink publishes results on a watermill topic
type EventSink struct {
	publisher message.Publisher
	topic     string
}

func NewEventSink(publisher message.Publisher, topic string) *EventSink {
	if topic == "" {
		topic = DefaultTopic
	}
	return &EventSink{publisher: publisher, topic: topic}
}

func (s *EventSink) Name() string { return "events" }

func (s *EventSink) Send(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), body)
	msg.Metadata.Set("test_type", p.TestType)
	msg.Metadata.Set("student_id", p.StudentID)
	msg.SetContext(ctx)

	if err := s.publisher.Publish(s.topic, msg); err != nil {
		return fmt.Errorf("failed to publish result: %w", err)
	}
	return nil
}

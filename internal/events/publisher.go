package events

import (
	"context"

	"github.com/zm-collect/service-booking/internal/platform/kafka"
)

// KafkaPublisher wraps booking events in CloudEvents and writes them to the booking topic.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
}

// NewKafkaPublisher creates a publisher writing to TopicBookingEvents.
func NewKafkaPublisher(producer *kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: TopicBookingEvents}
}

// Publish sends data as a CloudEvent of eventType, keyed by key.
func (p *KafkaPublisher) Publish(ctx context.Context, eventType, key string, data interface{}) error {
	ce, err := kafka.NewCloudEvent(Source, eventType, data)
	if err != nil {
		return err
	}
	ce.Subject = key
	return p.producer.PublishEvent(ctx, p.topic, key, ce)
}

// NoopPublisher drops every event. It is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, string, interface{}) error { return nil }

package events

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/zm-collect/service-booking/internal/application"
	bookingDomain "github.com/zm-collect/service-booking/internal/domain/booking"
	"github.com/zm-collect/service-booking/internal/platform/domain"
	"github.com/zm-collect/service-booking/internal/platform/kafka"
)

// crewTransitions maps crew event types to the state they move a booking to.
var crewTransitions = map[string]bookingDomain.State{
	CrewAssigned:        bookingDomain.StateAssigned,
	CollectionStarted:   bookingDomain.StateInProgress,
	CollectionCompleted: bookingDomain.StateFinished,
}

// CrewEventConsumer listens to crew events and advances bookings through their lifecycle.
type CrewEventConsumer struct {
	consumer *kafka.Consumer
	service  *application.BookingService
	logger   *zap.Logger
}

// NewCrewEventConsumer creates a new CrewEventConsumer.
func NewCrewEventConsumer(
	brokers []string,
	groupID string,
	service *application.BookingService,
	logger *zap.Logger,
) *CrewEventConsumer {
	return &CrewEventConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, TopicCrewEvents, logger),
		service:  service,
		logger:   logger,
	}
}

// Start begins consuming crew events. This blocks until the context is cancelled.
func (c *CrewEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *CrewEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *CrewEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from crew topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	target, ok := crewTransitions[cloudEvent.Type]
	if !ok {
		c.logger.Debug("ignoring unhandled crew event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}

	var evt CrewEvent
	if err := cloudEvent.ParseData(&evt); err != nil || evt.Token == "" {
		c.logger.Error("failed to parse crew event data",
			zap.String("type", cloudEvent.Type),
			zap.Error(err),
		)
		return nil
	}

	_, err = c.service.UpdateState(ctx, evt.Token, bookingDomain.Normal(target))
	switch domain.CodeOf(err) {
	case "":
		c.logger.Info("booking advanced by crew event",
			zap.String("token", evt.Token),
			zap.String("type", cloudEvent.Type),
			zap.String("state", target.String()),
		)
		return nil
	case domain.CodeNotFound, domain.CodeInvalidTransition, domain.CodeValidation:
		c.logger.Warn("skipping crew event",
			zap.String("token", evt.Token),
			zap.String("type", cloudEvent.Type),
			zap.Error(err),
		)
		return nil
	default:
		c.logger.Error("failed to apply crew event",
			zap.String("token", evt.Token),
			zap.String("type", cloudEvent.Type),
			zap.Error(err),
		)
		return err
	}
}

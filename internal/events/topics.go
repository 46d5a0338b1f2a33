// Package events connects the booking service to Kafka.
package events

// Topics and event types exchanged with other services.
const (
	TopicBookingEvents = "booking.events"
	TopicCrewEvents    = "crew.events"

	CrewAssigned        = "crew.assigned"
	CollectionStarted   = "collection.started"
	CollectionCompleted = "collection.completed"
)

// Source is the CloudEvents source of everything this service publishes.
const Source = "service-booking"

// CrewEvent is the payload of every crew.events message.
type CrewEvent struct {
	Token string `json:"token"`
}

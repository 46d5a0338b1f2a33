package booking

import "time"

// Event types published on the booking topic.
const (
	EventCreated      = "booking.created"
	EventStateChanged = "booking.state_changed"
	EventPurged       = "booking.purged"
)

// CreatedEvent is the payload of booking.created.
type CreatedEvent struct {
	Token          string `json:"token"`
	Municipality   string `json:"municipality"`
	Date           string `json:"date"`
	ApproxTimeSlot string `json:"approxTimeSlot"`
	ItemCount      int    `json:"itemCount"`
}

// StateChangedEvent is the payload of booking.state_changed.
type StateChangedEvent struct {
	Token          string    `json:"token"`
	From           State     `json:"from"`
	To             State     `json:"to"`
	Administrative bool      `json:"administrative"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// PurgedEvent is the payload of booking.purged.
type PurgedEvent struct {
	Token string `json:"token"`
}

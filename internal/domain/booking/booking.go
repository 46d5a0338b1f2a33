package booking

import (
	"time"

	"github.com/zm-collect/service-booking/internal/domain/slot"
	"github.com/zm-collect/service-booking/internal/platform/domain"
)

// Booking is the aggregate root for a bulky-waste collection request.
type Booking struct {
	id           int64
	token        string
	municipality string
	date         time.Time
	timeSlot     slot.TimeSlot
	items        []Item

	current  StateRecord
	previous []StateRecord

	slotReleased bool
	version      int64
	createdAt    time.Time
	updatedAt    time.Time
}

// NewBooking creates a booking in RECEIVED. Items must already be normalised by NewItems.
func NewBooking(
	token string,
	municipality string,
	date time.Time,
	timeSlot slot.TimeSlot,
	items []Item,
	now time.Time,
) (*Booking, error) {
	if token == "" {
		return nil, domain.NewValidationError("token is required")
	}
	if municipality == "" {
		return nil, domain.NewValidationError("municipality is required")
	}
	if date.IsZero() {
		return nil, domain.NewValidationError("date is required")
	}
	if !timeSlot.IsValid() {
		return nil, domain.NewValidationError("invalid time slot: " + timeSlot.String())
	}
	if len(items) == 0 || len(items) > MaxItems {
		return nil, domain.NewValidationError("a booking must list between 1 and 10 items")
	}

	now = now.UTC()
	return &Booking{
		token:        token,
		municipality: municipality,
		date:         CalendarDay(date, time.UTC),
		timeSlot:     timeSlot,
		items:        append([]Item(nil), items...),
		current:      StateRecord{State: StateReceived, Timestamp: now},
		previous:     []StateRecord{},
		version:      1,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id int64,
	token string,
	municipality string,
	date time.Time,
	timeSlot slot.TimeSlot,
	items []Item,
	current StateRecord,
	previous []StateRecord,
	slotReleased bool,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Booking {
	if previous == nil {
		previous = []StateRecord{}
	}
	return &Booking{
		id:           id,
		token:        token,
		municipality: municipality,
		date:         CalendarDay(date, time.UTC),
		timeSlot:     timeSlot,
		items:        items,
		current:      current,
		previous:     previous,
		slotReleased: slotReleased,
		version:      version,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

// --- Getters ---

// ID returns the internal sequence id; zero until the booking is stored.
func (b *Booking) ID() int64 { return b.id }

func (b *Booking) Token() string { return b.token }

func (b *Booking) Municipality() string { return b.municipality }

// Date returns the collection day as midnight UTC.
func (b *Booking) Date() time.Time { return b.date }

func (b *Booking) TimeSlot() slot.TimeSlot { return b.timeSlot }

// Items returns a copy of the booking's items.
func (b *Booking) Items() []Item { return append([]Item(nil), b.items...) }

// CurrentState returns the latest lifecycle record.
func (b *Booking) CurrentState() StateRecord { return b.current }

// State is shorthand for CurrentState().State.
func (b *Booking) State() State { return b.current.State }

// PreviousStates returns a copy of the history, oldest first.
func (b *Booking) PreviousStates() []StateRecord {
	return append([]StateRecord{}, b.previous...)
}

// SlotReleased reports whether the booking's reservation was returned to the ledger.
func (b *Booking) SlotReleased() bool { return b.slotReleased }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

func (b *Booking) CreatedAt() time.Time { return b.createdAt }

func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// Cell returns the ledger cell this booking occupies.
func (b *Booking) Cell() slot.Cell {
	return slot.NewCell(b.municipality, b.date, b.timeSlot)
}

// Reservation returns the reservation held by this booking.
func (b *Booking) Reservation() slot.Reservation {
	return slot.Reservation{Cell: b.Cell()}
}

// --- Behavior ---

// AssignID sets the internal id once, when the store first persists the booking.
func (b *Booking) AssignID(id int64) {
	if b.id == 0 {
		b.id = id
	}
}

// ApplyTransition moves the booking according to req. The previous current
// record is appended to the history only when the transition is accepted.
func (b *Booking) ApplyTransition(req TransitionRequest, now time.Time) (StateRecord, error) {
	next, err := Transition(b.current, req, now)
	if err != nil {
		return StateRecord{}, err
	}
	b.previous = append(b.previous, b.current)
	b.current = next
	b.updatedAt = next.Timestamp
	return next, nil
}

// SlotReleaseDue reports whether the current state obliges the booking to
// return its reservation. today is the service's current calendar day.
func (b *Booking) SlotReleaseDue(today time.Time) bool {
	if b.slotReleased {
		return false
	}
	switch b.current.State {
	case StateCancelled:
		return true
	case StateRemoved:
		return b.date.After(today)
	}
	return false
}

// HoldsFutureSlot reports whether purging the booking should return its reservation.
func (b *Booking) HoldsFutureSlot(today time.Time) bool {
	return !b.slotReleased && b.current.State != StateFinished && b.date.After(today)
}

// MarkSlotReleased records that the reservation was returned.
func (b *Booking) MarkSlotReleased() {
	b.slotReleased = true
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
}

// Clone returns a deep copy that shares no slices with b.
func (b *Booking) Clone() *Booking {
	c := *b
	c.items = append([]Item(nil), b.items...)
	c.previous = append([]StateRecord{}, b.previous...)
	return &c
}

package booking

import (
	"context"
	"sort"
)

// MutateFunc changes a booking inside the store's atomic unit. The context it
// receives carries the unit's transaction when the store has one.
type MutateFunc func(ctx context.Context, b *Booking) error

// Repository defines the persistence contract for booking aggregates.
type Repository interface {
	// Create stores a new booking. A token that exists or was retired yields CONFLICT.
	Create(ctx context.Context, b *Booking) error

	// FindByToken retrieves a booking by its token.
	FindByToken(ctx context.Context, token string) (*Booking, error)

	// List returns a snapshot of the bookings matching filter, in Sort order.
	List(ctx context.Context, filter Filter) ([]*Booking, error)

	// Mutate runs fn on the latest version of the booking while holding the
	// token's lock, and persists the result if fn succeeds.
	Mutate(ctx context.Context, token string, fn MutateFunc) (*Booking, error)

	// Purge runs fn under the token's lock, then deletes the booking and retires its token.
	Purge(ctx context.Context, token string, fn MutateFunc) error
}

// Filter narrows a listing. Zero fields match everything.
type Filter struct {
	Municipality string
	State        State
}

// Matches reports whether b satisfies every set field.
func (f Filter) Matches(b *Booking) bool {
	if f.Municipality != "" && b.municipality != f.Municipality {
		return false
	}
	if f.State != "" && b.current.State != f.State {
		return false
	}
	return true
}

// Sort orders bookings by date, then time slot, then token.
func Sort(bookings []*Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		a, b := bookings[i], bookings[j]
		if !a.date.Equal(b.date) {
			return a.date.Before(b.date)
		}
		if a.timeSlot != b.timeSlot {
			return a.timeSlot < b.timeSlot
		}
		return a.token < b.token
	})
}

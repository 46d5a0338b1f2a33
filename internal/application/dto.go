package application

import (
	"time"

	bookingDomain "github.com/zm-collect/service-booking/internal/domain/booking"
	"github.com/zm-collect/service-booking/internal/domain/slot"
)

// ItemDTO is one item of a booking on the wire.
type ItemDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateBookingRequest holds the data needed to create a new booking.
type CreateBookingRequest struct {
	Municipality   string    `json:"municipality" binding:"required"`
	Date           string    `json:"date" binding:"required"`
	ApproxTimeSlot string    `json:"approxTimeSlot" binding:"required"`
	Items          []ItemDTO `json:"items"`
}

// StateRecordDTO is the response representation of a lifecycle record.
type StateRecordDTO struct {
	State          string    `json:"state"`
	Timestamp      time.Time `json:"timestamp"`
	Administrative bool      `json:"administrative,omitempty"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	Token          string           `json:"token"`
	Municipality   string           `json:"municipality"`
	Date           string           `json:"date"`
	ApproxTimeSlot string           `json:"approxTimeSlot"`
	Items          []ItemDTO        `json:"items"`
	CurrentState   StateRecordDTO   `json:"currentState"`
	PreviousStates []StateRecordDTO `json:"previousStates"`
}

// SummaryDTO counts bookings per state.
type SummaryDTO struct {
	Total   int            `json:"total"`
	ByState map[string]int `json:"byState"`
}

// SlotAvailabilityDTO describes one window of a day.
type SlotAvailabilityDTO struct {
	ApproxTimeSlot string `json:"approxTimeSlot"`
	Reserved       int    `json:"reserved"`
	Capacity       int    `json:"capacity"`
	Available      int    `json:"available"`
}

func toStateRecordDTO(r bookingDomain.StateRecord) StateRecordDTO {
	return StateRecordDTO{
		State:          string(r.State),
		Timestamp:      r.Timestamp.UTC(),
		Administrative: r.Administrative,
	}
}

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	items := bk.Items()
	itemDTOs := make([]ItemDTO, len(items))
	for i, it := range items {
		itemDTOs[i] = ItemDTO{Name: it.Name, Description: it.Description}
	}

	prev := bk.PreviousStates()
	prevDTOs := make([]StateRecordDTO, len(prev))
	for i, r := range prev {
		prevDTOs[i] = toStateRecordDTO(r)
	}

	return BookingDTO{
		Token:          bk.Token(),
		Municipality:   bk.Municipality(),
		Date:           bk.Date().Format(bookingDomain.DateLayout),
		ApproxTimeSlot: string(bk.TimeSlot()),
		Items:          itemDTOs,
		CurrentState:   toStateRecordDTO(bk.CurrentState()),
		PreviousStates: prevDTOs,
	}
}

func toSummaryDTO(s bookingDomain.Summary) SummaryDTO {
	byState := make(map[string]int, len(s.ByState))
	for st, n := range s.ByState {
		byState[string(st)] = n
	}
	return SummaryDTO{Total: s.Total, ByState: byState}
}

func toSlotAvailabilityDTO(ts slot.TimeSlot, u slot.Usage) SlotAvailabilityDTO {
	return SlotAvailabilityDTO{
		ApproxTimeSlot: string(ts),
		Reserved:       u.Reserved,
		Capacity:       u.Capacity,
		Available:      u.Available(),
	}
}

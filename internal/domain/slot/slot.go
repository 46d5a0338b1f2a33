package slot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zm-collect/service-booking/internal/platform/domain"
)

// TimeSlot is an approximate collection window, rendered as its start hour "HH:MM:SS".
type TimeSlot string

// allTimeSlots are the one-hour windows of the 08:00-18:00 service day.
var allTimeSlots = []TimeSlot{
	"08:00:00", "09:00:00", "10:00:00", "11:00:00", "12:00:00",
	"13:00:00", "14:00:00", "15:00:00", "16:00:00", "17:00:00",
}

// AllTimeSlots returns the enumerated windows in chronological order.
func AllTimeSlots() []TimeSlot {
	out := make([]TimeSlot, len(allTimeSlots))
	copy(out, allTimeSlots)
	return out
}

// IsValid reports whether t is one of the enumerated windows.
func (t TimeSlot) IsValid() bool {
	for _, s := range allTimeSlots {
		if s == t {
			return true
		}
	}
	return false
}

// String returns the string representation of the window.
func (t TimeSlot) String() string {
	return string(t)
}

// ParseTimeSlot accepts "HH:MM" or "HH:MM:SS" and returns the canonical window.
func ParseTimeSlot(s string) (TimeSlot, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", domain.NewValidationError("time slot is required")
	}

	var t time.Time
	var err error
	if len(s) == len("15:04") {
		t, err = time.Parse("15:04", s)
	} else {
		t, err = time.Parse("15:04:05", s)
	}
	if err != nil {
		return "", domain.NewValidationError(fmt.Sprintf("invalid time slot: %s", s))
	}

	ts := TimeSlot(t.Format("15:04:05"))
	if !ts.IsValid() {
		return "", domain.NewValidationError(
			fmt.Sprintf("invalid time slot %s: must be on the hour between 08:00 and 17:00", s))
	}
	return ts, nil
}

// Cell identifies one capacity bucket.
type Cell struct {
	Municipality string
	Date         time.Time
	TimeSlot     TimeSlot
}

// NewCell normalises date to midnight UTC so equal calendar days compare equal.
func NewCell(municipality string, date time.Time, ts TimeSlot) Cell {
	return Cell{
		Municipality: municipality,
		Date:         time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
		TimeSlot:     ts,
	}
}

// Key is the arena key for the cell.
func (c Cell) Key() string {
	return c.Municipality + "|" + c.Date.Format(time.DateOnly) + "|" + string(c.TimeSlot)
}

func (c Cell) String() string {
	return fmt.Sprintf("%s on %s at %s", c.Municipality, c.Date.Format(time.DateOnly), c.TimeSlot)
}

// Reservation is one unit of capacity taken from a cell.
type Reservation struct {
	Cell Cell
}

// Usage describes how full a cell is.
type Usage struct {
	Reserved int
	Capacity int
}

// Available returns the remaining seats, never negative.
func (u Usage) Available() int {
	if u.Reserved >= u.Capacity {
		return 0
	}
	return u.Capacity - u.Reserved
}

// Ledger tracks per-cell occupancy.
type Ledger interface {
	// Reserve takes one unit from the cell or fails with CAPACITY_EXCEEDED.
	Reserve(ctx context.Context, cell Cell) (Reservation, error)

	// Release returns a unit previously taken by Reserve.
	Release(ctx context.Context, r Reservation) error

	// Usage reports the cell's current occupancy.
	Usage(ctx context.Context, cell Cell) (Usage, error)
}

// CapacityPolicy yields the ceiling for a municipality.
type CapacityPolicy struct {
	Default   int
	Overrides map[string]int
}

// For returns the capacity of every cell in municipality.
func (p CapacityPolicy) For(municipality string) int {
	if c, ok := p.Overrides[municipality]; ok {
		return c
	}
	// Config keys may arrive lower-cased.
	for name, c := range p.Overrides {
		if strings.EqualFold(name, municipality) {
			return c
		}
	}
	return p.Default
}

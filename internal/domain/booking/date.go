package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/zm-collect/service-booking/internal/platform/domain"
)

// DateLayout is the wire format of a collection date.
const DateLayout = time.DateOnly

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, domain.NewValidationError(fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", s))
	}
	return d, nil
}

// CalendarDay returns the calendar day of t as observed in loc, as midnight UTC.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsWeekend reports whether d falls on a Saturday or Sunday.
func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

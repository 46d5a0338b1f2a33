package booking

// Summary counts bookings per state.
type Summary struct {
	Total   int
	ByState map[State]int
}

// Summarize aggregates bookings. Every known state is present in ByState.
func Summarize(bookings []*Booking) Summary {
	s := Summary{ByState: make(map[State]int, len(orderedStates))}
	for _, st := range orderedStates {
		s.ByState[st] = 0
	}
	for _, b := range bookings {
		s.ByState[b.current.State]++
		s.Total++
	}
	return s
}

package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zm-collect/service-booking/internal/domain/slot"
	"github.com/zm-collect/service-booking/internal/platform/domain"
)

var testNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestBooking(t *testing.T, token string, date time.Time) *Booking {
	t.Helper()
	items, err := NewItems([]Item{{Name: "Mattress", Description: "Queen size"}})
	require.NoError(t, err)
	b, err := NewBooking(token, "Lisboa", date, "10:00:00", items, testNow)
	require.NoError(t, err)
	return b
}

func TestNewBooking_StartsReceived(t *testing.T) {
	b := newTestBooking(t, "tok-1", testNow.AddDate(0, 0, 30))

	assert.Equal(t, StateReceived, b.State())
	assert.Equal(t, testNow, b.CurrentState().Timestamp)
	assert.Empty(t, b.PreviousStates())
	assert.NotNil(t, b.PreviousStates())
	assert.Equal(t, int64(1), b.Version())
	assert.False(t, b.SlotReleased())
	assert.Equal(t, time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), b.Date())
}

func TestNewBooking_Validation(t *testing.T) {
	items := []Item{{Name: "Sofa", Description: "3 seats"}}
	date := testNow.AddDate(0, 0, 5)

	_, err := NewBooking("", "Lisboa", date, "10:00:00", items, testNow)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = NewBooking("t", "", date, "10:00:00", items, testNow)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = NewBooking("t", "Lisboa", date, "19:00:00", items, testNow)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = NewBooking("t", "Lisboa", date, "10:00:00", nil, testNow)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestNewItems(t *testing.T) {
	items, err := NewItems([]Item{{Name: "  Fridge ", Description: " old\t"}})
	require.NoError(t, err)
	assert.Equal(t, []Item{{Name: "Fridge", Description: "old"}}, items)

	_, err = NewItems(nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = NewItems([]Item{{Name: "Chair", Description: "   "}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	eleven := make([]Item, MaxItems+1)
	for i := range eleven {
		eleven[i] = Item{Name: "Box", Description: "cardboard"}
	}
	_, err = NewItems(eleven)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = NewItems(eleven[:MaxItems])
	assert.NoError(t, err)
}

func TestApplyTransition_HistoryAppendsOnlyOnSuccess(t *testing.T) {
	b := newTestBooking(t, "tok-1", testNow.AddDate(0, 0, 30))

	_, err := b.ApplyTransition(Normal(StateAssigned), testNow.Add(time.Minute))
	require.NoError(t, err)

	_, err = b.ApplyTransition(Normal(StateReceived), testNow.Add(2*time.Minute))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	assert.Equal(t, StateAssigned, b.State())
	prev := b.PreviousStates()
	require.Len(t, prev, 1)
	assert.Equal(t, StateReceived, prev[0].State)
}

func TestApplyTransition_FullWalk(t *testing.T) {
	b := newTestBooking(t, "tok-1", testNow.AddDate(0, 0, 30))
	for i, s := range []State{StateAssigned, StateInProgress, StateFinished} {
		_, err := b.ApplyTransition(Normal(s), testNow.Add(time.Duration(i+1)*time.Minute))
		require.NoError(t, err)
	}
	assert.Equal(t, StateFinished, b.State())

	states := []State{}
	for _, r := range b.PreviousStates() {
		states = append(states, r.State)
	}
	assert.Equal(t, []State{StateReceived, StateAssigned, StateInProgress}, states)

	_, err := b.ApplyTransition(Normal(StateAssigned), testNow.Add(time.Hour))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestSlotReleasePolicy(t *testing.T) {
	today := CalendarDay(testNow, time.UTC)
	future := testNow.AddDate(0, 0, 3)

	cancelled := newTestBooking(t, "a", future)
	_, err := cancelled.ApplyTransition(Normal(StateCancelled), testNow)
	require.NoError(t, err)
	assert.True(t, cancelled.SlotReleaseDue(today))
	cancelled.MarkSlotReleased()
	assert.False(t, cancelled.SlotReleaseDue(today))
	assert.False(t, cancelled.HoldsFutureSlot(today))

	removedFuture := newTestBooking(t, "b", future)
	_, err = removedFuture.ApplyTransition(AdministrativeOverride(StateRemoved), testNow)
	require.NoError(t, err)
	assert.True(t, removedFuture.SlotReleaseDue(today))

	removedPast := newTestBooking(t, "c", future)
	_, err = removedPast.ApplyTransition(AdministrativeOverride(StateRemoved), testNow)
	require.NoError(t, err)
	assert.False(t, removedPast.SlotReleaseDue(CalendarDay(future, time.UTC)))

	finished := newTestBooking(t, "d", future)
	for _, s := range []State{StateAssigned, StateInProgress, StateFinished} {
		_, err := finished.ApplyTransition(Normal(s), testNow)
		require.NoError(t, err)
	}
	assert.False(t, finished.SlotReleaseDue(today))
	assert.False(t, finished.HoldsFutureSlot(today))

	received := newTestBooking(t, "e", future)
	assert.False(t, received.SlotReleaseDue(today))
	assert.True(t, received.HoldsFutureSlot(today))
}

func TestClone_IsIndependent(t *testing.T) {
	b := newTestBooking(t, "tok-1", testNow.AddDate(0, 0, 30))
	c := b.Clone()
	_, err := c.ApplyTransition(Normal(StateAssigned), testNow)
	require.NoError(t, err)

	assert.Equal(t, StateReceived, b.State())
	assert.Empty(t, b.PreviousStates())
	assert.Len(t, c.PreviousStates(), 1)
}

func TestFilterAndSort(t *testing.T) {
	d1 := testNow.AddDate(0, 0, 2)
	d2 := testNow.AddDate(0, 0, 3)

	mk := func(token, municipality string, date time.Time, ts string) *Booking {
		b, err := NewBooking(token, municipality, date, slotOf(ts), []Item{{Name: "x", Description: "y"}}, testNow)
		require.NoError(t, err)
		return b
	}
	list := []*Booking{
		mk("z", "Porto", d2, "08:00:00"),
		mk("b", "Lisboa", d1, "11:00:00"),
		mk("a", "Lisboa", d1, "11:00:00"),
		mk("c", "Lisboa", d1, "09:00:00"),
	}
	Sort(list)

	var tokens []string
	for _, b := range list {
		tokens = append(tokens, b.Token())
	}
	assert.Equal(t, []string{"c", "a", "b", "z"}, tokens)

	f := Filter{Municipality: "Lisboa", State: StateReceived}
	assert.True(t, f.Matches(list[0]))
	assert.False(t, f.Matches(list[3]))
	assert.False(t, Filter{State: StateAssigned}.Matches(list[0]))
	assert.True(t, Filter{}.Matches(list[3]))
}

func TestSummarize(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.Total)
	assert.Len(t, s.ByState, len(AllStates()))
	assert.Equal(t, 0, s.ByState[StateReceived])

	a := newTestBooking(t, "a", testNow.AddDate(0, 0, 2))
	b := newTestBooking(t, "b", testNow.AddDate(0, 0, 2))
	_, err := b.ApplyTransition(Normal(StateAssigned), testNow)
	require.NoError(t, err)

	s = Summarize([]*Booking{a, b})
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.ByState[StateReceived])
	assert.Equal(t, 1, s.ByState[StateAssigned])
	assert.Equal(t, 0, s.ByState[StateFinished])
}

func TestUUIDTokenGenerator(t *testing.T) {
	gen := UUIDTokenGenerator{}
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		tok, err := gen.Generate()
		require.NoError(t, err)
		assert.Len(t, tok, 36)
		assert.False(t, seen[tok])
		seen[tok] = true
	}
}

func slotOf(s string) slot.TimeSlot { return slot.TimeSlot(s) }

package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	bookingDomain "github.com/zm-collect/service-booking/internal/domain/booking"
	"github.com/zm-collect/service-booking/internal/domain/slot"
	"github.com/zm-collect/service-booking/internal/platform/domain"
)

// EventPublisher delivers domain events after they are committed.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, key string, data interface{}) error
}

// MunicipalityRegistry answers which municipalities accept bookings.
type MunicipalityRegistry interface {
	IsValid(name string) bool
	IsBlacklisted(name string) bool
	List() []string
}

// Rules are the date constraints applied when a booking is created.
type Rules struct {
	MinLeadDays    int // values below 1 are treated as 1
	RejectWeekends bool
	Location       *time.Location
	RetryDelay     time.Duration
}

// Caller identifies who asked for a deletion.
type Caller int

const (
	CallerCustomer Caller = iota
	CallerStaff
)

// Option configures a BookingService.
type Option func(*BookingService)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *BookingService) { s.now = now }
}

// BookingService is the application service orchestrating booking use cases.
type BookingService struct {
	repo      bookingDomain.Repository
	ledger    slot.Ledger
	registry  MunicipalityRegistry
	tokens    bookingDomain.TokenGenerator
	publisher EventPublisher
	rules     Rules
	now       func() time.Time
	logger    *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	repo bookingDomain.Repository,
	ledger slot.Ledger,
	registry MunicipalityRegistry,
	tokens bookingDomain.TokenGenerator,
	publisher EventPublisher,
	rules Rules,
	logger *zap.Logger,
	opts ...Option,
) *BookingService {
	if rules.Location == nil {
		rules.Location = time.UTC
	}
	s := &BookingService{
		repo:      repo,
		ledger:    ledger,
		registry:  registry,
		tokens:    tokens,
		publisher: publisher,
		rules:     rules,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBooking validates the request, reserves capacity and stores a RECEIVED booking.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (string, error) {
	municipality, date, ts, items, err := s.validateCreate(req)
	if err != nil {
		return "", err
	}

	// Reserve is not idempotent and must not be retried.
	reservation, err := s.ledger.Reserve(ctx, slot.NewCell(municipality, date, ts))
	if err != nil {
		return "", err
	}

	token, err := s.tokens.Generate()
	if err != nil {
		s.compensate(ctx, reservation)
		return "", err
	}

	bk, err := bookingDomain.NewBooking(token, municipality, date, ts, items, s.now())
	if err != nil {
		s.compensate(ctx, reservation)
		return "", err
	}

	attempts := 0
	err = s.withRetry(ctx, func() error {
		attempts++
		cerr := s.repo.Create(ctx, bk)
		if cerr != nil && attempts > 1 && domain.CodeOf(cerr) == domain.CodeConflict {
			// The first attempt may have committed before its error surfaced.
			if existing, ferr := s.repo.FindByToken(ctx, token); ferr == nil && existing.Version() == bk.Version() {
				return nil
			}
		}
		return cerr
	})
	if err != nil {
		s.compensate(ctx, reservation)
		return "", err
	}

	s.publishEvent(ctx, bookingDomain.EventCreated, token, bookingDomain.CreatedEvent{
		Token:          token,
		Municipality:   municipality,
		Date:           date.Format(bookingDomain.DateLayout),
		ApproxTimeSlot: string(ts),
		ItemCount:      len(items),
	})

	s.logger.Info("booking created",
		zap.String("token", token),
		zap.String("municipality", municipality),
		zap.String("date", date.Format(bookingDomain.DateLayout)),
		zap.String("time_slot", string(ts)),
	)
	return token, nil
}

func (s *BookingService) validateCreate(req CreateBookingRequest) (string, time.Time, slot.TimeSlot, []bookingDomain.Item, error) {
	fail := func(err error) (string, time.Time, slot.TimeSlot, []bookingDomain.Item, error) {
		return "", time.Time{}, "", nil, err
	}

	municipality := strings.TrimSpace(req.Municipality)
	if municipality == "" {
		return fail(domain.NewValidationError("municipality is required"))
	}
	if s.registry.IsBlacklisted(municipality) {
		return fail(domain.NewValidationError(fmt.Sprintf("municipality %s does not accept bookings", municipality)))
	}
	if !s.registry.IsValid(municipality) {
		return fail(domain.NewValidationError(fmt.Sprintf("invalid municipality: %s", municipality)))
	}

	date, err := bookingDomain.ParseDate(req.Date)
	if err != nil {
		return fail(err)
	}
	earliest := s.today().AddDate(0, 0, max(s.rules.MinLeadDays, 1))
	if date.Before(earliest) {
		return fail(domain.NewValidationError(
			fmt.Sprintf("date must be on or after %s", earliest.Format(bookingDomain.DateLayout))))
	}
	if s.rules.RejectWeekends && bookingDomain.IsWeekend(date) {
		return fail(domain.NewValidationError("collections are not scheduled on weekends"))
	}

	ts, err := slot.ParseTimeSlot(req.ApproxTimeSlot)
	if err != nil {
		return fail(err)
	}

	raw := make([]bookingDomain.Item, len(req.Items))
	for i, it := range req.Items {
		raw[i] = bookingDomain.Item{Name: it.Name, Description: it.Description}
	}
	items, err := bookingDomain.NewItems(raw)
	if err != nil {
		return fail(err)
	}
	return municipality, date, ts, items, nil
}

// GetBooking retrieves a single booking by token.
func (s *BookingService) GetBooking(ctx context.Context, token string) (*BookingDTO, error) {
	bk, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// ListBookings returns the bookings matching filter in date, slot and token order.
func (s *BookingService) ListBookings(ctx context.Context, filter bookingDomain.Filter) ([]BookingDTO, error) {
	bookings, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	return dtos, nil
}

// Summarize counts the bookings matching filter per state.
func (s *BookingService) Summarize(ctx context.Context, filter bookingDomain.Filter) (*SummaryDTO, error) {
	bookings, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	result := toSummaryDTO(bookingDomain.Summarize(bookings))
	return &result, nil
}

// UpdateState applies req to the booking and releases its slot when the new state calls for it.
func (s *BookingService) UpdateState(ctx context.Context, token string, req bookingDomain.TransitionRequest) (*StateRecordDTO, error) {
	var from, to bookingDomain.StateRecord
	err := s.withRetry(ctx, func() error {
		_, merr := s.repo.Mutate(ctx, token, func(ctx context.Context, bk *bookingDomain.Booking) error {
			from = bk.CurrentState()
			rec, err := bk.ApplyTransition(req, s.now())
			if err != nil {
				return err
			}
			to = rec
			bk.IncrementVersion()
			return s.releaseIfDue(ctx, bk)
		})
		return merr
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, bookingDomain.EventStateChanged, token, bookingDomain.StateChangedEvent{
		Token:          token,
		From:           from.State,
		To:             to.State,
		Administrative: to.Administrative,
		OccurredAt:     to.Timestamp,
	})

	s.logger.Info("booking state changed",
		zap.String("token", token),
		zap.String("from", from.State.String()),
		zap.String("to", to.State.String()),
		zap.Bool("administrative", to.Administrative),
	)
	result := toStateRecordDTO(to)
	return &result, nil
}

// CancelOrRemove ends a booking: customers cancel it, staff remove it.
func (s *BookingService) CancelOrRemove(ctx context.Context, token string, caller Caller) (*StateRecordDTO, error) {
	if caller == CallerStaff {
		return s.UpdateState(ctx, token, bookingDomain.AdministrativeOverride(bookingDomain.StateRemoved))
	}
	return s.UpdateState(ctx, token, bookingDomain.Normal(bookingDomain.StateCancelled))
}

// PurgeBooking physically deletes a booking and retires its token.
func (s *BookingService) PurgeBooking(ctx context.Context, token string) error {
	err := s.withRetry(ctx, func() error {
		return s.repo.Purge(ctx, token, func(ctx context.Context, bk *bookingDomain.Booking) error {
			if !bk.HoldsFutureSlot(s.today()) {
				return nil
			}
			if err := s.ledger.Release(ctx, bk.Reservation()); err != nil {
				return err
			}
			bk.MarkSlotReleased()
			return nil
		})
	})
	if err != nil {
		return err
	}

	s.publishEvent(ctx, bookingDomain.EventPurged, token, bookingDomain.PurgedEvent{Token: token})
	s.logger.Info("booking purged", zap.String("token", token))
	return nil
}

// SlotAvailability reports the occupancy of every window of a day.
func (s *BookingService) SlotAvailability(ctx context.Context, municipality, date string) ([]SlotAvailabilityDTO, error) {
	if !s.registry.IsValid(municipality) {
		return nil, domain.NewNotFoundError("municipality", municipality)
	}
	day, err := bookingDomain.ParseDate(date)
	if err != nil {
		return nil, err
	}

	slots := slot.AllTimeSlots()
	out := make([]SlotAvailabilityDTO, 0, len(slots))
	for _, ts := range slots {
		u, err := s.ledger.Usage(ctx, slot.NewCell(municipality, day, ts))
		if err != nil {
			return nil, err
		}
		out = append(out, toSlotAvailabilityDTO(ts, u))
	}
	return out, nil
}

// Municipalities lists the municipalities that accept bookings.
func (s *BookingService) Municipalities() []string {
	all := s.registry.List()
	out := make([]string, 0, len(all))
	for _, m := range all {
		if !s.registry.IsBlacklisted(m) {
			out = append(out, m)
		}
	}
	return out
}

// IsKnownMunicipality reports whether name is in the registry.
func (s *BookingService) IsKnownMunicipality(name string) bool {
	return s.registry.IsValid(name)
}

// --- Helpers ---

func (s *BookingService) today() time.Time {
	return bookingDomain.CalendarDay(s.now(), s.rules.Location)
}

// releaseIfDue returns the booking's reservation inside the caller's atomic unit.
func (s *BookingService) releaseIfDue(ctx context.Context, bk *bookingDomain.Booking) error {
	if !bk.SlotReleaseDue(s.today()) {
		return nil
	}
	if err := s.ledger.Release(ctx, bk.Reservation()); err != nil {
		return err
	}
	bk.MarkSlotReleased()
	return nil
}

func (s *BookingService) compensate(ctx context.Context, r slot.Reservation) {
	// The request may already be cancelled; the seat must still be returned.
	if err := s.ledger.Release(context.WithoutCancel(ctx), r); err != nil {
		s.logger.Error("failed to release reservation after failed create",
			zap.String("cell", r.Cell.Key()),
			zap.Error(err),
		)
	}
}

// withRetry runs op and retries it once after RetryDelay if it fails with a retryable error.
func (s *BookingService) withRetry(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.rules.RetryDelay), 1),
		ctx,
	)
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !domain.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

func (s *BookingService) publishEvent(ctx context.Context, eventType, key string, data interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, key, data); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("event_type", eventType),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// Package memory provides process-local implementations of the booking store
// and slot ledger.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/zm-collect/service-booking/internal/domain/booking"
	"github.com/zm-collect/service-booking/internal/platform/domain"
)

// BookingStore keeps committed bookings as immutable snapshots. A committed
// snapshot is replaced, never edited, so readers need only the map lock.
type BookingStore struct {
	mu       sync.RWMutex
	records  map[string]*booking.Booking
	locks    map[string]*semaphore.Weighted
	retired  map[string]struct{}
	seq      int64
	lockWait time.Duration
}

// NewBookingStore creates an empty store. lockWait bounds how long a mutation
// waits for the per-token lock.
func NewBookingStore(lockWait time.Duration) *BookingStore {
	return &BookingStore{
		records:  make(map[string]*booking.Booking),
		locks:    make(map[string]*semaphore.Weighted),
		retired:  make(map[string]struct{}),
		lockWait: lockWait,
	}
}

// Create stores a new booking and assigns its internal id.
func (s *BookingStore) Create(_ context.Context, b *booking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[b.Token()]; ok {
		return domain.NewConflictError("booking token already exists")
	}
	if _, ok := s.retired[b.Token()]; ok {
		return domain.NewConflictError("booking token was retired")
	}

	s.seq++
	b.AssignID(s.seq)
	s.records[b.Token()] = b.Clone()
	s.locks[b.Token()] = semaphore.NewWeighted(1)
	return nil
}

// FindByToken retrieves a copy of the booking.
func (s *BookingStore) FindByToken(_ context.Context, token string) (*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.records[token]
	if !ok {
		return nil, domain.NewNotFoundError("booking", token)
	}
	return b.Clone(), nil
}

// List returns copies of the matching bookings, sorted.
func (s *BookingStore) List(_ context.Context, filter booking.Filter) ([]*booking.Booking, error) {
	s.mu.RLock()
	out := make([]*booking.Booking, 0, len(s.records))
	for _, b := range s.records {
		if filter.Matches(b) {
			out = append(out, b.Clone())
		}
	}
	s.mu.RUnlock()

	booking.Sort(out)
	return out, nil
}

// Mutate applies fn to a working copy under the token's lock and commits it if fn succeeds.
func (s *BookingStore) Mutate(ctx context.Context, token string, fn booking.MutateFunc) (*booking.Booking, error) {
	release, err := s.acquire(ctx, token)
	if err != nil {
		return nil, err
	}
	defer release()

	work, err := s.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := fn(ctx, work); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.records[token] = work.Clone()
	s.mu.Unlock()
	return work, nil
}

// Purge runs fn under the token's lock, then deletes the booking and retires its token.
func (s *BookingStore) Purge(ctx context.Context, token string, fn booking.MutateFunc) error {
	release, err := s.acquire(ctx, token)
	if err != nil {
		return err
	}
	defer release()

	work, err := s.FindByToken(ctx, token)
	if err != nil {
		return err
	}
	if fn != nil {
		if err := fn(ctx, work); err != nil {
			return err
		}
	}

	s.mu.Lock()
	delete(s.records, token)
	delete(s.locks, token)
	s.retired[token] = struct{}{}
	s.mu.Unlock()
	return nil
}

// acquire takes the token's lock, waiting at most lockWait.
func (s *BookingStore) acquire(ctx context.Context, token string) (func(), error) {
	s.mu.RLock()
	sem, ok := s.locks[token]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.NewNotFoundError("booking", token)
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()
	if err := sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, &domain.AppError{
				Code:    domain.CodeContention,
				Message: "request ended while waiting for booking " + token,
				Err:     ctx.Err(),
			}
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.NewContentionError("booking " + token + " is busy, try again")
		}
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}

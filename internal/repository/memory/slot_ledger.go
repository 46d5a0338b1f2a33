package memory

import (
	"context"
	"sync"

	"github.com/zm-collect/service-booking/internal/domain/slot"
	"github.com/zm-collect/service-booking/internal/platform/domain"
)

type cellCounter struct {
	mu       sync.Mutex
	reserved int
}

// SlotLedger is an arena of cells, each guarded by its own mutex. The arena
// lock is held only to look up or insert a cell.
type SlotLedger struct {
	mu     sync.RWMutex
	cells  map[string]*cellCounter
	policy slot.CapacityPolicy
}

// NewSlotLedger creates an empty ledger.
func NewSlotLedger(policy slot.CapacityPolicy) *SlotLedger {
	return &SlotLedger{
		cells:  make(map[string]*cellCounter),
		policy: policy,
	}
}

func (l *SlotLedger) cell(c slot.Cell) *cellCounter {
	key := c.Key()

	l.mu.RLock()
	cc, ok := l.cells[key]
	l.mu.RUnlock()
	if ok {
		return cc
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if cc, ok = l.cells[key]; !ok {
		cc = &cellCounter{}
		l.cells[key] = cc
	}
	return cc
}

// Reserve takes one seat or fails with CAPACITY_EXCEEDED.
func (l *SlotLedger) Reserve(_ context.Context, c slot.Cell) (slot.Reservation, error) {
	capacity := l.policy.For(c.Municipality)
	cc := l.cell(c)

	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.reserved >= capacity {
		return slot.Reservation{}, domain.NewCapacityExceededError("no capacity left for " + c.String())
	}
	cc.reserved++
	return slot.Reservation{Cell: c}, nil
}

// Release returns one seat. Releasing an empty cell is a no-op.
func (l *SlotLedger) Release(_ context.Context, r slot.Reservation) error {
	cc := l.cell(r.Cell)

	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.reserved > 0 {
		cc.reserved--
	}
	return nil
}

// Usage reports the cell's occupancy.
func (l *SlotLedger) Usage(_ context.Context, c slot.Cell) (slot.Usage, error) {
	capacity := l.policy.For(c.Municipality)

	l.mu.RLock()
	cc, ok := l.cells[c.Key()]
	l.mu.RUnlock()
	if !ok {
		return slot.Usage{Capacity: capacity}, nil
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	return slot.Usage{Reserved: cc.reserved, Capacity: capacity}, nil
}

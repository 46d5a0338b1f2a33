package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zm-collect/service-booking/internal/domain/slot"
	"github.com/zm-collect/service-booking/internal/platform/domain"
)

// SlotCellModel is one capacity cell of the slot ledger.
type SlotCellModel struct {
	Municipality string    `gorm:"primaryKey;size:120"`
	Date         time.Time `gorm:"primaryKey;type:date"`
	TimeSlot     string    `gorm:"primaryKey;size:8"`
	Reserved     int       `gorm:"not null;default:0"`
	Capacity     int       `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (SlotCellModel) TableName() string {
	return "slot_cells"
}

// GormSlotLedger keeps one row per cell. Reservation is a conditional
// increment, so concurrent callers cannot overshoot capacity.
type GormSlotLedger struct {
	db     *gorm.DB
	policy slot.CapacityPolicy
}

// NewGormSlotLedger creates a new GormSlotLedger.
func NewGormSlotLedger(db *gorm.DB, policy slot.CapacityPolicy) *GormSlotLedger {
	return &GormSlotLedger{db: db, policy: policy}
}

// Reserve takes one seat or fails with CAPACITY_EXCEEDED.
func (l *GormSlotLedger) Reserve(ctx context.Context, c slot.Cell) (slot.Reservation, error) {
	capacity := l.policy.For(c.Municipality)
	db := conn(ctx, l.db)

	row := SlotCellModel{
		Municipality: c.Municipality,
		Date:         c.Date,
		TimeSlot:     string(c.TimeSlot),
		Capacity:     capacity,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return slot.Reservation{}, translate("failed to initialise slot cell", err)
	}

	res := db.Model(&SlotCellModel{}).
		Where("municipality = ? AND date = ? AND time_slot = ? AND reserved < ?",
			c.Municipality, c.Date, string(c.TimeSlot), capacity).
		Updates(map[string]interface{}{
			"reserved":   gorm.Expr("reserved + 1"),
			"capacity":   capacity,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return slot.Reservation{}, translate("failed to reserve slot", res.Error)
	}
	if res.RowsAffected == 0 {
		return slot.Reservation{}, domain.NewCapacityExceededError("no capacity left for " + c.String())
	}
	return slot.Reservation{Cell: c}, nil
}

// Release returns one seat. Releasing an empty cell is a no-op.
func (l *GormSlotLedger) Release(ctx context.Context, r slot.Reservation) error {
	c := r.Cell
	err := conn(ctx, l.db).Model(&SlotCellModel{}).
		Where("municipality = ? AND date = ? AND time_slot = ? AND reserved > 0",
			c.Municipality, c.Date, string(c.TimeSlot)).
		Updates(map[string]interface{}{
			"reserved":   gorm.Expr("reserved - 1"),
			"updated_at": time.Now().UTC(),
		}).Error
	return translate("failed to release slot", err)
}

// Usage reports the cell's occupancy against the configured capacity.
func (l *GormSlotLedger) Usage(ctx context.Context, c slot.Cell) (slot.Usage, error) {
	capacity := l.policy.For(c.Municipality)

	var row SlotCellModel
	err := conn(ctx, l.db).
		Where("municipality = ? AND date = ? AND time_slot = ?", c.Municipality, c.Date, string(c.TimeSlot)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return slot.Usage{Capacity: capacity}, nil
	}
	if err != nil {
		return slot.Usage{}, translate("failed to read slot usage", err)
	}
	return slot.Usage{Reserved: row.Reserved, Capacity: capacity}, nil
}

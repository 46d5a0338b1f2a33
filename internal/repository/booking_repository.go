package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	bookingDomain "github.com/zm-collect/service-booking/internal/domain/booking"
	"github.com/zm-collect/service-booking/internal/domain/slot"
	"github.com/zm-collect/service-booking/internal/platform/domain"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID                  int64              `gorm:"primaryKey;autoIncrement"`
	Token               string             `gorm:"uniqueIndex;not null;size:36"`
	Municipality        string             `gorm:"not null;size:120;index"`
	Date                time.Time          `gorm:"type:date;not null;index"`
	TimeSlot            string             `gorm:"not null;size:8"`
	Items               json.RawMessage    `gorm:"type:jsonb;not null"`
	State               string             `gorm:"not null;size:20;index"`
	StateAt             time.Time          `gorm:"not null"`
	StateAdministrative bool               `gorm:"not null;default:false"`
	SlotReleased        bool               `gorm:"not null;default:false"`
	Version             int64              `gorm:"not null;default:1"`
	CreatedAt           time.Time          `gorm:"not null"`
	UpdatedAt           time.Time          `gorm:"not null"`
	History             []StateRecordModel `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// StateRecordModel is one row of a booking's lifecycle history.
type StateRecordModel struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	BookingID      int64     `gorm:"not null;uniqueIndex:idx_booking_history_seq"`
	Seq            int       `gorm:"not null;uniqueIndex:idx_booking_history_seq"`
	State          string    `gorm:"not null;size:20"`
	Timestamp      time.Time `gorm:"not null"`
	Administrative bool      `gorm:"not null;default:false"`
}

func (StateRecordModel) TableName() string {
	return "booking_state_history"
}

// RetiredTokenModel remembers purged tokens so they are never issued again.
type RetiredTokenModel struct {
	Token     string    `gorm:"primaryKey;size:36"`
	RetiredAt time.Time `gorm:"not null"`
}

func (RetiredTokenModel) TableName() string {
	return "retired_tokens"
}

type itemJSON struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// GormBookingRepository is the Postgres implementation of booking.Repository.
type GormBookingRepository struct {
	db       *gorm.DB
	lockWait time.Duration
}

// NewGormBookingRepository creates a new GormBookingRepository. lockWait bounds row lock waits.
func NewGormBookingRepository(db *gorm.DB, lockWait time.Duration) *GormBookingRepository {
	return &GormBookingRepository{db: db, lockWait: lockWait}
}

// Create persists a new booking.
func (r *GormBookingRepository) Create(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	err = conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		var retired int64
		if err := tx.Model(&RetiredTokenModel{}).Where("token = ?", model.Token).Count(&retired).Error; err != nil {
			return err
		}
		if retired > 0 {
			return domain.NewConflictError("booking token was retired")
		}
		return tx.Omit("History").Create(model).Error
	})
	if err != nil {
		return translate("failed to save booking", err)
	}
	bk.AssignID(model.ID)
	return nil
}

// FindByToken retrieves a booking with its history.
func (r *GormBookingRepository) FindByToken(ctx context.Context, token string) (*bookingDomain.Booking, error) {
	var model BookingModel
	err := conn(ctx, r.db).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("token = ?", token).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("booking", token)
		}
		return nil, translate("failed to find booking by token", err)
	}
	return toDomainBooking(&model)
}

// List retrieves the bookings matching filter, ordered by date, time slot and token.
func (r *GormBookingRepository) List(ctx context.Context, filter bookingDomain.Filter) ([]*bookingDomain.Booking, error) {
	q := conn(ctx, r.db).Model(&BookingModel{})
	if filter.Municipality != "" {
		q = q.Where("municipality = ?", filter.Municipality)
	}
	if filter.State != "" {
		q = q.Where("state = ?", string(filter.State))
	}

	var models []BookingModel
	if err := q.
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Order("date ASC").Order("time_slot ASC").Order("token ASC").
		Find(&models).Error; err != nil {
		return nil, translate("failed to list bookings", err)
	}

	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bk, err := toDomainBooking(&models[i])
		if err != nil {
			return nil, err
		}
		bookings[i] = bk
	}
	// Postgres text collation may differ from byte order for tokens.
	bookingDomain.Sort(bookings)
	return bookings, nil
}

// Mutate locks the booking row, applies fn and writes the result in one transaction.
func (r *GormBookingRepository) Mutate(ctx context.Context, token string, fn bookingDomain.MutateFunc) (*bookingDomain.Booking, error) {
	var result *bookingDomain.Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, bk, err := r.lockForUpdate(tx, token)
		if err != nil {
			return err
		}

		seen := len(model.History)
		if err := fn(withTx(ctx, tx), bk); err != nil {
			return err
		}

		updated, err := toBookingModel(bk)
		if err != nil {
			return fmt.Errorf("failed to convert booking to model: %w", err)
		}

		res := tx.Model(&BookingModel{}).
			Where("id = ? AND version = ?", model.ID, model.Version).
			Updates(map[string]interface{}{
				"state":                updated.State,
				"state_at":             updated.StateAt,
				"state_administrative": updated.StateAdministrative,
				"slot_released":        updated.SlotReleased,
				"version":              updated.Version,
				"updated_at":           updated.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NewConflictError("booking was modified by another transaction")
		}

		if len(updated.History) > seen {
			fresh := updated.History[seen:]
			for i := range fresh {
				fresh[i].BookingID = model.ID
			}
			if err := tx.Create(&fresh).Error; err != nil {
				return err
			}
		}

		result = bk
		return nil
	})
	if err != nil {
		return nil, translate("failed to update booking", err)
	}
	return result, nil
}

// Purge locks the booking row, applies fn, deletes the booking and retires its token.
func (r *GormBookingRepository) Purge(ctx context.Context, token string, fn bookingDomain.MutateFunc) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, bk, err := r.lockForUpdate(tx, token)
		if err != nil {
			return err
		}
		if fn != nil {
			if err := fn(withTx(ctx, tx), bk); err != nil {
				return err
			}
		}

		if err := tx.Where("booking_id = ?", model.ID).Delete(&StateRecordModel{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&BookingModel{}, model.ID).Error; err != nil {
			return err
		}
		return tx.Create(&RetiredTokenModel{Token: token, RetiredAt: time.Now().UTC()}).Error
	})
	return translate("failed to purge booking", err)
}

func (r *GormBookingRepository) lockForUpdate(tx *gorm.DB, token string) (*BookingModel, *bookingDomain.Booking, error) {
	if err := setLockTimeout(tx, r.lockWait); err != nil {
		return nil, nil, err
	}

	var model BookingModel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token = ?", token).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.NewNotFoundError("booking", token)
		}
		return nil, nil, err
	}
	if err := tx.Where("booking_id = ?", model.ID).Order("seq ASC").Find(&model.History).Error; err != nil {
		return nil, nil, err
	}

	bk, err := toDomainBooking(&model)
	if err != nil {
		return nil, nil, err
	}
	return &model, bk, nil
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) (*BookingModel, error) {
	items := bk.Items()
	raw := make([]itemJSON, len(items))
	for i, it := range items {
		raw[i] = itemJSON{Name: it.Name, Description: it.Description}
	}
	itemsJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal items: %w", err)
	}

	prev := bk.PreviousStates()
	history := make([]StateRecordModel, len(prev))
	for i, rec := range prev {
		history[i] = StateRecordModel{
			BookingID:      bk.ID(),
			Seq:            i,
			State:          string(rec.State),
			Timestamp:      rec.Timestamp,
			Administrative: rec.Administrative,
		}
	}

	cur := bk.CurrentState()
	return &BookingModel{
		ID:                  bk.ID(),
		Token:               bk.Token(),
		Municipality:        bk.Municipality(),
		Date:                bk.Date(),
		TimeSlot:            string(bk.TimeSlot()),
		Items:               itemsJSON,
		State:               string(cur.State),
		StateAt:             cur.Timestamp,
		StateAdministrative: cur.Administrative,
		SlotReleased:        bk.SlotReleased(),
		Version:             bk.Version(),
		CreatedAt:           bk.CreatedAt(),
		UpdatedAt:           bk.UpdatedAt(),
		History:             history,
	}, nil
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	var raw []itemJSON
	if err := json.Unmarshal(m.Items, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal items: %w", err)
	}
	items := make([]bookingDomain.Item, len(raw))
	for i, it := range raw {
		items[i] = bookingDomain.Item{Name: it.Name, Description: it.Description}
	}

	prev := make([]bookingDomain.StateRecord, len(m.History))
	for i, h := range m.History {
		prev[i] = bookingDomain.StateRecord{
			State:          bookingDomain.State(h.State),
			Timestamp:      h.Timestamp.UTC(),
			Administrative: h.Administrative,
		}
	}

	return bookingDomain.ReconstructBooking(
		m.ID,
		m.Token,
		m.Municipality,
		m.Date,
		slot.TimeSlot(m.TimeSlot),
		items,
		bookingDomain.StateRecord{
			State:          bookingDomain.State(m.State),
			Timestamp:      m.StateAt.UTC(),
			Administrative: m.StateAdministrative,
		},
		prev,
		m.SlotReleased,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

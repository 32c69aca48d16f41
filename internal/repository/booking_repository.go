package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/adikrnwn171/project-ticket-be/internal/models"
)

// BookingMutation edits a locked booking in place. paymentCount is the number
// of payments recorded for the booking at lock time.
type BookingMutation func(booking *models.Booking, paymentCount int64) error

type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id uint) (*models.Booking, error)
	List(ctx context.Context, limit, offset int) ([]models.Booking, int64, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Booking, int64, error)
	UpdateWith(ctx context.Context, id uint, apply BookingMutation) (*models.Booking, error)
	Delete(ctx context.Context, id uint) error
}

type GormBookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &GormBookingRepository{db: db}
}

// Create inserts the booking together with its passengers.
func (r *GormBookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	return translate(r.db.WithContext(ctx).Omit("User", "Payments").Create(booking).Error)
}

func (r *GormBookingRepository) GetByID(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Preload("Passengers").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&booking, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

func (r *GormBookingRepository) List(ctx context.Context, limit, offset int) ([]models.Booking, int64, error) {
	return r.list(r.db.WithContext(ctx), limit, offset)
}

func (r *GormBookingRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Booking, int64, error) {
	return r.list(r.db.WithContext(ctx).Where("user_id = ?", userID), limit, offset)
}

func (r *GormBookingRepository) list(query *gorm.DB, limit, offset int) ([]models.Booking, int64, error) {
	var total int64
	if err := query.Model(&models.Booking{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var bookings []models.Booking
	err := query.
		Preload("Passengers").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&bookings).Error
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// UpdateWith locks the booking row, hands it to apply and persists the result
// in the same transaction. Payment creation takes the same lock, so the
// payment count seen by apply cannot go stale before the write.
func (r *GormBookingRepository) UpdateWith(ctx context.Context, id uint, apply BookingMutation) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&booking, id).Error; err != nil {
			return err
		}

		var payments int64
		if err := tx.Model(&models.Payment{}).Where("booking_id = ?", id).Count(&payments).Error; err != nil {
			return err
		}

		if err := apply(&booking, payments); err != nil {
			return err
		}

		return tx.Omit(clause.Associations).Save(&booking).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

// Delete removes a booking without payments; passengers cascade.
func (r *GormBookingRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&booking, id).Error; err != nil {
			return err
		}

		var payments int64
		if err := tx.Model(&models.Payment{}).Where("booking_id = ?", id).Count(&payments).Error; err != nil {
			return err
		}
		if payments > 0 {
			return ErrConflict
		}

		return tx.Delete(&booking).Error
	})
	return translate(err)
}

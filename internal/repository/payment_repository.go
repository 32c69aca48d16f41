package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/adikrnwn171/project-ticket-be/internal/models"
)

// PaymentMutation edits a locked payment in place and reports whether the row
// must be written back.
type PaymentMutation func(payment *models.Payment) (bool, error)

type PaymentRepository interface {
	CreatePending(ctx context.Context, payment *models.Payment, bookingAmount int64) error
	GetByID(ctx context.Context, id uint) (*models.Payment, error)
	ListByBooking(ctx context.Context, bookingID uint) ([]models.Payment, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.Payment, int64, error)
	ModifyByOrderID(ctx context.Context, orderID string, apply PaymentMutation) (*models.Payment, error)
	ModifyByID(ctx context.Context, id uint, apply PaymentMutation) (*models.Payment, error)
}

type GormPaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &GormPaymentRepository{db: db}
}

// CreatePending inserts a payment while holding the booking row lock. The
// insert is refused with ErrConflict when the booking amount no longer equals
// bookingAmount or another active payment already exists for the booking.
func (r *GormPaymentRepository) CreatePending(ctx context.Context, payment *models.Payment, bookingAmount int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&booking, payment.BookingID).Error; err != nil {
			return err
		}
		if booking.Amount != bookingAmount {
			return ErrConflict
		}

		return tx.Omit(clause.Associations).Create(payment).Error
	})
	return translate(err)
}

func (r *GormPaymentRepository) GetByID(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Preload("Booking").First(&payment, id).Error; err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

func (r *GormPaymentRepository) ListByBooking(ctx context.Context, bookingID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("id ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *GormPaymentRepository) ListAll(ctx context.Context, limit, offset int) ([]models.Payment, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Payment{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Preload("Booking").
		Preload("Booking.User").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&payments).Error
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

func (r *GormPaymentRepository) ModifyByOrderID(ctx context.Context, orderID string, apply PaymentMutation) (*models.Payment, error) {
	return r.modify(ctx, apply, "order_id = ?", orderID)
}

func (r *GormPaymentRepository) ModifyByID(ctx context.Context, id uint, apply PaymentMutation) (*models.Payment, error) {
	return r.modify(ctx, apply, "id = ?", id)
}

// modify runs a locked read-modify-write so concurrent callbacks for the
// same payment are applied one after another.
func (r *GormPaymentRepository) modify(ctx context.Context, apply PaymentMutation, query string, args ...interface{}) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(query, args...).
			First(&payment).Error; err != nil {
			return err
		}

		changed, err := apply(&payment)
		if err != nil || !changed {
			return err
		}

		return tx.Omit(clause.Associations).Save(&payment).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

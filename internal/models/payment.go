package models

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentStatus is the reconciled state of a payment. Gateway statuses that
// have no internal meaning are stored verbatim.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSettled PaymentStatus = "SETTLED"
	PaymentStatusFailed  PaymentStatus = "FAILED"
	PaymentStatusExpired PaymentStatus = "EXPIRED"
)

// Terminal reports whether no further automatic transition may leave s.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusSettled, PaymentStatusFailed, PaymentStatusExpired:
		return true
	}
	return false
}

// Payment stores one gateway payment attempt for a booking.
type Payment struct {
	BaseModel
	BookingID        uint           `gorm:"index;not null" json:"booking_id"`
	Booking          *Booking       `json:"booking,omitempty"`
	OrderID          string         `gorm:"uniqueIndex;not null" json:"order_id"`
	PaymentMethod    *string        `json:"payment_method"`
	PaymentAmount    int64          `gorm:"not null" json:"payment_amount"`
	PaymentDate      *time.Time     `json:"payment_date"`
	PaymentStatus    PaymentStatus  `gorm:"index;not null" json:"payment_status"`
	PaymentCode      string         `json:"-"`
	SessionToken     string         `json:"-"`
	RedirectURL      string         `json:"redirect_url,omitempty"`
	ConflictFrom     PaymentStatus  `json:"conflict_from,omitempty"`
	ConflictAt       *time.Time     `json:"conflict_at,omitempty"`
	ConfirmedAt      *time.Time     `json:"confirmed_at,omitempty"`
	LastNotification datatypes.JSON `json:"-"`
}

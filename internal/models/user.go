package models

import (
	"time"
)

// User represents a registered customer account.
type User struct {
	BaseModel
	Name         string     `json:"name"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `json:"-"`
	Phone        string     `json:"phone"`
	OTP          string     `gorm:"column:otp" json:"-"`
	Verified     bool       `gorm:"not null;default:false" json:"verified"`
	ResetToken   string     `gorm:"index" json:"-"`
	ResetExpiry  *time.Time `json:"-"`
	Bookings     []Booking  `json:"bookings,omitempty"`
}

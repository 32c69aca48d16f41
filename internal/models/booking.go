package models

import (
	"time"
)

// Booking is a purchase intent linking a user to a flight at a fixed amount.
// Amounts are whole currency units (IDR has no minor unit in practice).
type Booking struct {
	BaseModel
	UserID     uint        `gorm:"index;not null" json:"user_id"`
	User       *User       `json:"user,omitempty"`
	FlightID   uint        `gorm:"index;not null" json:"flight_id"`
	OrderDate  time.Time   `json:"order_date"`
	Amount     int64       `gorm:"not null" json:"amount"`
	Passengers []Passenger `gorm:"constraint:OnDelete:CASCADE" json:"passengers,omitempty"`
	Payments   []Payment   `gorm:"constraint:OnDelete:RESTRICT" json:"payments,omitempty"`
}

// Passenger holds static traveler details captured with the booking.
type Passenger struct {
	BaseModel
	BookingID        uint       `gorm:"index;not null" json:"booking_id"`
	Name             string     `json:"name"`
	BornDate         *time.Time `json:"born_date"`
	Citizen          string     `json:"citizen"`
	IdentityNumber   string     `json:"identity_number"`
	PublisherCountry string     `json:"publisher_country"`
	ValidUntil       *time.Time `json:"valid_until"`
}

package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Topics published by the use cases. The mail collaborator subscribes to the
// user topics; payment topics feed ticketing and reporting.
const (
	TopicOTPRequested           = "user.otp_requested"
	TopicPasswordResetRequested = "user.password_reset_requested"
	TopicPaymentOpened          = "payment.opened"
	TopicPaymentStatusChanged   = "payment.status_changed"
)

// EventPublisher delivers domain events to a broker.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

type OTPRequestedEvent struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Code   string `json:"code"`
}

type PasswordResetRequestedEvent struct {
	UserID    uint      `json:"user_id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type PaymentOpenedEvent struct {
	PaymentID        uint   `json:"payment_id"`
	BookingID        uint   `json:"booking_id"`
	UserID           uint   `json:"user_id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Email            string `json:"email,omitempty"`
	ConfirmationCode string `json:"confirmation_code"`
	RedirectURL      string `json:"redirect_url"`
}

type PaymentStatusChangedEvent struct {
	PaymentID      uint       `json:"payment_id"`
	BookingID      uint       `json:"booking_id"`
	OrderID        string     `json:"order_id"`
	Status         string     `json:"status"`
	PreviousStatus string     `json:"previous_status"`
	Conflict       bool       `json:"conflict"`
	PaymentMethod  string     `json:"payment_method,omitempty"`
	PaymentDate    *time.Time `json:"payment_date,omitempty"`
}

// publishEvent sends an event and logs failures. Callers never fail a request
// because the broker is down.
func publishEvent(ctx context.Context, publisher EventPublisher, log logrus.FieldLogger, topic, key string, payload any) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, topic, key, payload); err != nil {
		log.WithError(err).WithFields(logrus.Fields{"topic": topic, "key": key}).Warn("failed to publish event")
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// Package gateway talks to the external payment provider.
package gateway

import (
	"context"
)

// TransactionDetails identifies the charge on the provider side.
type TransactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

// CustomerDetails is shown on the hosted payment page.
type CustomerDetails struct {
	FirstName string `json:"first_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// SessionRequest opens a hosted payment session.
type SessionRequest struct {
	TransactionDetails TransactionDetails `json:"transaction_details"`
	CustomerDetails    *CustomerDetails   `json:"customer_details,omitempty"`
	EnabledPayments    []string           `json:"enabled_payments,omitempty"`
}

// Session is the provider's answer: a token and the page the payer is sent to.
type Session struct {
	Token       string
	RedirectURL string
}

// Gateway creates payment sessions.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
}

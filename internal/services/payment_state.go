package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/adikrnwn171/project-ticket-be/internal/models"
)

// Outcome describes what a gateway notification did to the stored payment.
type Outcome string

const (
	OutcomeApplied      Outcome = "applied"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeIgnored      Outcome = "ignored"
	OutcomeConflict     Outcome = "conflict"
	OutcomeUnknownOrder Outcome = "unknown_order"
)

// Notification is a parsed Midtrans HTTP notification. Every field is optional.
type Notification struct {
	OrderID           string
	TransactionID     string
	TransactionStatus string
	FraudStatus       string
	PaymentType       string
	TransactionTime   string
	SettlementTime    string
	GrossAmount       string
	StatusCode        string
	SignatureKey      string
	Raw               json.RawMessage
}

// ParseNotification reads a notification body. Values may arrive as strings
// or numbers depending on the payment channel.
func ParseNotification(body []byte) (*Notification, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode notification: %w", err)
	}

	return &Notification{
		OrderID:           getString(payload, "order_id"),
		TransactionID:     getString(payload, "transaction_id"),
		TransactionStatus: strings.ToLower(getString(payload, "transaction_status")),
		FraudStatus:       strings.ToLower(getString(payload, "fraud_status")),
		PaymentType:       getString(payload, "payment_type"),
		TransactionTime:   getString(payload, "transaction_time"),
		SettlementTime:    getString(payload, "settlement_time"),
		GrossAmount:       getString(payload, "gross_amount"),
		StatusCode:        getString(payload, "status_code"),
		SignatureKey:      getString(payload, "signature_key"),
		Raw:               json.RawMessage(body),
	}, nil
}

func getString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			return strings.TrimSpace(v)
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		}
	}
	return ""
}

// mapGatewayStatus converts a Midtrans transaction status into the stored
// status. Statuses with no internal meaning are kept verbatim.
func mapGatewayStatus(transactionStatus, fraudStatus string) models.PaymentStatus {
	switch transactionStatus {
	case "settlement":
		return models.PaymentStatusSettled
	case "capture":
		if fraudStatus == "" || fraudStatus == "accept" {
			return models.PaymentStatusSettled
		}
	case "deny", "cancel", "failure":
		return models.PaymentStatusFailed
	case "expire":
		return models.PaymentStatusExpired
	case "pending":
		return models.PaymentStatusPending
	}
	return models.PaymentStatus(transactionStatus)
}

// decideTransition classifies moving a payment from current to target.
func decideTransition(current, target models.PaymentStatus) Outcome {
	if current.Terminal() {
		switch {
		case target == current:
			return OutcomeDuplicate
		case target.Terminal():
			return OutcomeConflict
		default:
			return OutcomeIgnored
		}
	}
	if target == current {
		return OutcomeDuplicate
	}
	return OutcomeApplied
}

// parseGrossAmount reads "150000.00" style amounts into whole units.
func parseGrossAmount(raw string) (int64, error) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("invalid gross_amount %q", raw)
	}
	if value != math.Trunc(value) {
		return 0, fmt.Errorf("fractional gross_amount %q", raw)
	}
	return int64(value), nil
}

// Midtrans reports local times in Western Indonesia Time.
var gatewayLocation = time.FixedZone("WIB", 7*60*60)

func parseGatewayTime(raw string) (*time.Time, bool) {
	if raw == "" {
		return nil, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, true
	}
	if t, err := time.ParseInLocation(time.DateTime, raw, gatewayLocation); err == nil {
		t = t.UTC()
		return &t, true
	}
	return nil, false
}

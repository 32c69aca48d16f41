package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/adikrnwn171/project-ticket-be/internal/gateway"
	"github.com/adikrnwn171/project-ticket-be/internal/models"
	"github.com/adikrnwn171/project-ticket-be/internal/repository"
)

// OpenPaymentInput is the payer's request to pay a booking. GrossAmount is
// informational only; the booking amount is always charged.
type OpenPaymentInput struct {
	UserID      uint
	BookingID   uint
	GrossAmount *int64
	FirstName   string
	Email       string
	Phone       string
	PaymentType string
}

type OpenPaymentResult struct {
	PaymentID   uint
	OrderID     string
	Token       string
	RedirectURL string
	Reused      bool
}

type ReconcileResult struct {
	Outcome Outcome
	Payment *models.Payment
}

type PaymentUseCase interface {
	Open(ctx context.Context, in OpenPaymentInput) (*OpenPaymentResult, error)
	Reconcile(ctx context.Context, n *Notification) (*ReconcileResult, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.Payment, int64, error)
	ConfirmCode(ctx context.Context, userID, paymentID uint, code string) (*models.Payment, error)
}

// PaymentService opens gateway sessions for bookings and folds gateway
// notifications back into the stored payments.
type PaymentService struct {
	bookings       repository.BookingRepository
	payments       repository.PaymentRepository
	gateway        gateway.Gateway
	otp            *OTPService
	publisher      EventPublisher
	log            logrus.FieldLogger
	gatewayTimeout time.Duration
	signatureKey   string
	now            func() time.Time
}

var _ PaymentUseCase = (*PaymentService)(nil)

type PaymentOption func(*PaymentService)

func WithGatewayTimeout(timeout time.Duration) PaymentOption {
	return func(s *PaymentService) {
		if timeout > 0 {
			s.gatewayTimeout = timeout
		}
	}
}

// WithSignatureKey enables notification signature checks with the gateway server key.
func WithSignatureKey(serverKey string) PaymentOption {
	return func(s *PaymentService) {
		s.signatureKey = serverKey
	}
}

func WithPaymentLogger(log logrus.FieldLogger) PaymentOption {
	return func(s *PaymentService) {
		if log != nil {
			s.log = log
		}
	}
}

func WithPaymentClock(now func() time.Time) PaymentOption {
	return func(s *PaymentService) {
		s.now = now
	}
}

func NewPaymentService(
	bookings repository.BookingRepository,
	payments repository.PaymentRepository,
	gw gateway.Gateway,
	otp *OTPService,
	publisher EventPublisher,
	opts ...PaymentOption,
) *PaymentService {
	s := &PaymentService{
		bookings:       bookings,
		payments:       payments,
		gateway:        gw,
		otp:            otp,
		publisher:      publisher,
		log:            discardLogger(),
		gatewayTimeout: 10 * time.Second,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open starts a gateway session for a booking owned by the caller. Nothing is
// written until the gateway has answered.
func (s *PaymentService) Open(ctx context.Context, in OpenPaymentInput) (*OpenPaymentResult, error) {
	if in.BookingID == 0 {
		return nil, InvalidInput("order_id is required")
	}

	booking, err := s.bookings.GetByID(ctx, in.BookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("booking not found")
		}
		return nil, Internal(err)
	}
	if booking.UserID != in.UserID {
		return nil, Forbidden("booking belongs to another user")
	}
	if booking.Amount <= 0 {
		return nil, InvalidInput("booking amount must be positive")
	}

	logger := s.log.WithFields(logrus.Fields{"booking_id": booking.ID, "user_id": in.UserID})

	existing, err := s.payments.ListByBooking(ctx, booking.ID)
	if err != nil {
		return nil, Internal(err)
	}
	for _, p := range existing {
		if p.PaymentStatus == models.PaymentStatusSettled {
			return nil, Conflict("booking is already paid")
		}
	}
	for _, p := range existing {
		if !p.PaymentStatus.Terminal() && p.SessionToken != "" {
			logger.WithField("order_id", p.OrderID).Info("reusing open payment session")
			return &OpenPaymentResult{
				PaymentID:   p.ID,
				OrderID:     p.OrderID,
				Token:       p.SessionToken,
				RedirectURL: p.RedirectURL,
				Reused:      true,
			}, nil
		}
	}

	if in.GrossAmount != nil && *in.GrossAmount != booking.Amount {
		logger.WithFields(logrus.Fields{
			"requested_amount": *in.GrossAmount,
			"booking_amount":   booking.Amount,
		}).Warn("ignoring payer supplied amount")
	}

	orderID := orderIDFor(booking.ID, len(existing))
	req := gateway.SessionRequest{
		TransactionDetails: gateway.TransactionDetails{
			OrderID:     orderID,
			GrossAmount: booking.Amount,
		},
	}
	if in.FirstName != "" || in.Email != "" || in.Phone != "" {
		req.CustomerDetails = &gateway.CustomerDetails{
			FirstName: strings.TrimSpace(in.FirstName),
			Email:     strings.TrimSpace(in.Email),
			Phone:     strings.TrimSpace(in.Phone),
		}
	}
	if in.PaymentType != "" {
		req.EnabledPayments = []string{in.PaymentType}
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	session, err := s.gateway.CreateSession(gwCtx, req)
	if err != nil {
		logger.WithError(err).WithField("order_id", orderID).Error("payment gateway call failed")
		return nil, GatewayUnavailable("payment gateway unavailable", err)
	}

	code, err := s.otp.Generate()
	if err != nil {
		return nil, Internal(err)
	}

	payment := &models.Payment{
		BookingID:     booking.ID,
		OrderID:       orderID,
		PaymentAmount: booking.Amount,
		PaymentStatus: models.PaymentStatusPending,
		PaymentCode:   code,
		SessionToken:  session.Token,
		RedirectURL:   session.RedirectURL,
	}
	if err := s.payments.CreatePending(ctx, payment, booking.Amount); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, NotFound("booking not found")
		case errors.Is(err, repository.ErrConflict):
			logger.WithError(err).WithField("order_id", orderID).Warn("payment insert refused, gateway session orphaned")
			return nil, Conflict("booking changed or already has an open payment")
		}
		return nil, Internal(fmt.Errorf("create payment: %w", err))
	}

	logger.WithFields(logrus.Fields{"payment_id": payment.ID, "order_id": orderID}).Info("payment opened")
	publishEvent(ctx, s.publisher, s.log, TopicPaymentOpened, orderID, PaymentOpenedEvent{
		PaymentID:        payment.ID,
		BookingID:        booking.ID,
		UserID:           booking.UserID,
		OrderID:          orderID,
		Amount:           payment.PaymentAmount,
		Email:            strings.TrimSpace(in.Email),
		ConfirmationCode: code,
		RedirectURL:      payment.RedirectURL,
	})

	return &OpenPaymentResult{
		PaymentID:   payment.ID,
		OrderID:     orderID,
		Token:       session.Token,
		RedirectURL: session.RedirectURL,
	}, nil
}

// orderIDFor derives the gateway order id: the booking id for the first
// attempt, "<id>-<n>" for later ones.
func orderIDFor(bookingID uint, previousAttempts int) string {
	if previousAttempts == 0 {
		return strconv.FormatUint(uint64(bookingID), 10)
	}
	return fmt.Sprintf("%d-%d", bookingID, previousAttempts+1)
}

// Reconcile applies a gateway notification. Only storage failures are
// returned as errors; every other case is reported through the outcome.
func (s *PaymentService) Reconcile(ctx context.Context, n *Notification) (*ReconcileResult, error) {
	if n == nil {
		return &ReconcileResult{Outcome: OutcomeIgnored}, nil
	}

	logger := s.log.WithFields(logrus.Fields{
		"order_id":           n.OrderID,
		"transaction_status": n.TransactionStatus,
		"fraud_status":       n.FraudStatus,
	})

	if n.OrderID == "" {
		logger.Warn("notification without order id")
		return &ReconcileResult{Outcome: OutcomeUnknownOrder}, nil
	}
	if s.signatureKey != "" && n.SignatureKey != "" &&
		!gateway.VerifyNotificationSignature(n.OrderID, n.StatusCode, n.GrossAmount, s.signatureKey, n.SignatureKey) {
		logger.Warn("notification signature mismatch")
		return &ReconcileResult{Outcome: OutcomeIgnored}, nil
	}
	if n.TransactionStatus == "" {
		logger.Warn("notification without transaction status")
		return &ReconcileResult{Outcome: OutcomeIgnored}, nil
	}

	var grossAmount *int64
	if n.GrossAmount != "" {
		amount, err := parseGrossAmount(n.GrossAmount)
		if err != nil {
			logger.WithError(err).Warn("ignoring notification with unreadable amount")
			return &ReconcileResult{Outcome: OutcomeIgnored}, nil
		}
		grossAmount = &amount
	}

	target := mapGatewayStatus(n.TransactionStatus, n.FraudStatus)
	paidAt, _ := parseGatewayTime(n.SettlementTime)
	if paidAt == nil {
		paidAt, _ = parseGatewayTime(n.TransactionTime)
	}

	var (
		outcome  Outcome
		previous models.PaymentStatus
	)
	payment, err := s.payments.ModifyByOrderID(ctx, n.OrderID, func(p *models.Payment) (bool, error) {
		previous = p.PaymentStatus

		if grossAmount != nil && *grossAmount != p.PaymentAmount {
			logger.WithFields(logrus.Fields{
				"notified_amount": *grossAmount,
				"payment_amount":  p.PaymentAmount,
			}).Warn("ignoring notification with mismatched amount")
			outcome = OutcomeIgnored
			return false, nil
		}

		outcome = decideTransition(p.PaymentStatus, target)
		switch outcome {
		case OutcomeIgnored:
			return false, nil
		case OutcomeDuplicate:
			if p.PaymentStatus.Terminal() || !detailsChanged(p, n.PaymentType, paidAt) {
				return false, nil
			}
			outcome = OutcomeApplied
		case OutcomeConflict:
			now := s.now().UTC()
			p.ConflictFrom = p.PaymentStatus
			p.ConflictAt = &now
		}

		p.PaymentStatus = target
		if n.PaymentType != "" {
			method := n.PaymentType
			p.PaymentMethod = &method
		}
		if paidAt != nil {
			p.PaymentDate = paidAt
		}
		p.LastNotification = datatypes.JSON(n.Raw)
		return true, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Warn("notification for unknown order")
			return &ReconcileResult{Outcome: OutcomeUnknownOrder}, nil
		}
		return nil, fmt.Errorf("reconcile order %s: %w", n.OrderID, err)
	}

	logger = logger.WithFields(logrus.Fields{
		"payment_id": payment.ID,
		"from":       previous,
		"to":         target,
		"outcome":    outcome,
	})
	switch outcome {
	case OutcomeConflict:
		logger.Warn("conflicting terminal status, last notification wins")
	case OutcomeApplied:
		logger.Info("payment status reconciled")
	default:
		logger.Debug("notification left payment unchanged")
	}

	if outcome == OutcomeApplied || outcome == OutcomeConflict {
		event := PaymentStatusChangedEvent{
			PaymentID:      payment.ID,
			BookingID:      payment.BookingID,
			OrderID:        payment.OrderID,
			Status:         string(payment.PaymentStatus),
			PreviousStatus: string(previous),
			Conflict:       outcome == OutcomeConflict,
			PaymentDate:    payment.PaymentDate,
		}
		if payment.PaymentMethod != nil {
			event.PaymentMethod = *payment.PaymentMethod
		}
		publishEvent(ctx, s.publisher, s.log, TopicPaymentStatusChanged, payment.OrderID, event)
	}

	return &ReconcileResult{Outcome: outcome, Payment: payment}, nil
}

func detailsChanged(p *models.Payment, method string, paidAt *time.Time) bool {
	if method != "" && (p.PaymentMethod == nil || *p.PaymentMethod != method) {
		return true
	}
	if paidAt != nil && (p.PaymentDate == nil || !p.PaymentDate.Equal(*paidAt)) {
		return true
	}
	return false
}

func (s *PaymentService) ListAll(ctx context.Context, limit, offset int) ([]models.Payment, int64, error) {
	payments, total, err := s.payments.ListAll(ctx, limit, offset)
	if err != nil {
		return nil, 0, Internal(err)
	}
	return payments, total, nil
}

// ConfirmCode checks the one-time code issued with a settled payment and
// clears it so it cannot be used twice.
func (s *PaymentService) ConfirmCode(ctx context.Context, userID, paymentID uint, code string) (*models.Payment, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, InvalidInput("code is required")
	}

	current, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("payment not found")
		}
		return nil, Internal(err)
	}
	if current.Booking == nil || current.Booking.UserID != userID {
		return nil, Forbidden("payment belongs to another user")
	}

	payment, err := s.payments.ModifyByID(ctx, paymentID, func(p *models.Payment) (bool, error) {
		if p.PaymentStatus != models.PaymentStatusSettled {
			return false, Conflict("payment is not settled")
		}
		if p.PaymentCode == "" {
			return false, Conflict("confirmation code already used")
		}
		if !s.otp.Validate(p.PaymentCode, code) {
			return false, InvalidInput("invalid confirmation code")
		}
		now := s.now().UTC()
		p.PaymentCode = ""
		p.ConfirmedAt = &now
		return true, nil
	})
	if err != nil {
		var appErr *AppError
		switch {
		case errors.As(err, &appErr):
			return nil, appErr
		case errors.Is(err, repository.ErrNotFound):
			return nil, NotFound("payment not found")
		}
		return nil, Internal(err)
	}
	return payment, nil
}

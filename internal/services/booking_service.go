package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/adikrnwn171/project-ticket-be/internal/models"
	"github.com/adikrnwn171/project-ticket-be/internal/repository"
)

type PassengerInput struct {
	Name             string
	BornDate         *time.Time
	Citizen          string
	IdentityNumber   string
	PublisherCountry string
	ValidUntil       *time.Time
}

type CreateBookingInput struct {
	UserID     uint
	FlightID   uint
	OrderDate  time.Time
	Amount     int64
	Passengers []PassengerInput
}

// UpdateBookingInput carries the fields a caller wants to change; nil means keep.
type UpdateBookingInput struct {
	FlightID  *uint
	OrderDate *time.Time
	Amount    *int64
}

type BookingUseCase interface {
	Create(ctx context.Context, in CreateBookingInput) (*models.Booking, error)
	Get(ctx context.Context, id uint) (*models.Booking, error)
	GetOwned(ctx context.Context, id, userID uint) (*models.Booking, error)
	List(ctx context.Context, limit, offset int) ([]models.Booking, int64, error)
	ListByOwner(ctx context.Context, userID uint, limit, offset int) ([]models.Booking, int64, error)
	Update(ctx context.Context, id, userID uint, in UpdateBookingInput) (*models.Booking, error)
	Delete(ctx context.Context, id, userID uint) error
}

type BookingService struct {
	bookings     repository.BookingRepository
	flights      repository.FlightRepository
	log          logrus.FieldLogger
	validateFare bool
	now          func() time.Time
}

var _ BookingUseCase = (*BookingService)(nil)

type BookingOption func(*BookingService)

// WithFareValidation requires booking amounts to equal the flight fare.
func WithFareValidation(enabled bool) BookingOption {
	return func(s *BookingService) {
		s.validateFare = enabled
	}
}

func WithBookingLogger(log logrus.FieldLogger) BookingOption {
	return func(s *BookingService) {
		if log != nil {
			s.log = log
		}
	}
}

func WithBookingClock(now func() time.Time) BookingOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(bookings repository.BookingRepository, flights repository.FlightRepository, opts ...BookingOption) *BookingService {
	s := &BookingService{
		bookings: bookings,
		flights:  flights,
		log:      discardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (*models.Booking, error) {
	if in.UserID == 0 {
		return nil, Unauthorized("authentication required")
	}
	if in.FlightID == 0 {
		return nil, InvalidInput("flight_id is required")
	}
	if in.Amount <= 0 {
		return nil, InvalidInput("amount must be positive")
	}
	if err := s.checkFare(ctx, in.FlightID, in.Amount); err != nil {
		return nil, err
	}

	orderDate := in.OrderDate
	if orderDate.IsZero() {
		orderDate = s.now()
	}

	booking := &models.Booking{
		UserID:    in.UserID,
		FlightID:  in.FlightID,
		OrderDate: orderDate.UTC(),
		Amount:    in.Amount,
	}
	for i, p := range in.Passengers {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, InvalidInput(fmt.Sprintf("passengers[%d].name is required", i))
		}
		booking.Passengers = append(booking.Passengers, models.Passenger{
			Name:             name,
			BornDate:         p.BornDate,
			Citizen:          strings.TrimSpace(p.Citizen),
			IdentityNumber:   strings.TrimSpace(p.IdentityNumber),
			PublisherCountry: strings.TrimSpace(p.PublisherCountry),
			ValidUntil:       p.ValidUntil,
		})
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, InvalidInput("booking references an unknown user or flight")
		}
		return nil, Internal(fmt.Errorf("create booking: %w", err))
	}

	s.log.WithFields(logrus.Fields{"booking_id": booking.ID, "user_id": booking.UserID}).Info("booking created")
	return booking, nil
}

func (s *BookingService) checkFare(ctx context.Context, flightID uint, amount int64) error {
	if !s.validateFare {
		return nil
	}
	flight, err := s.flights.GetByID(ctx, flightID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return InvalidInput("flight not found")
		}
		return Internal(err)
	}
	if flight.Fare != amount {
		return InvalidInput("amount does not match the flight fare")
	}
	return nil
}

func (s *BookingService) Get(ctx context.Context, id uint) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("booking not found")
		}
		return nil, Internal(err)
	}
	return booking, nil
}

func (s *BookingService) GetOwned(ctx context.Context, id, userID uint) (*models.Booking, error) {
	booking, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, Forbidden("booking belongs to another user")
	}
	return booking, nil
}

func (s *BookingService) List(ctx context.Context, limit, offset int) ([]models.Booking, int64, error) {
	bookings, total, err := s.bookings.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, Internal(err)
	}
	return bookings, total, nil
}

func (s *BookingService) ListByOwner(ctx context.Context, userID uint, limit, offset int) ([]models.Booking, int64, error) {
	bookings, total, err := s.bookings.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, Internal(err)
	}
	return bookings, total, nil
}

// Update changes a booking owned by userID. The amount is frozen once any
// payment exists for the booking.
func (s *BookingService) Update(ctx context.Context, id, userID uint, in UpdateBookingInput) (*models.Booking, error) {
	if in.Amount != nil && *in.Amount <= 0 {
		return nil, InvalidInput("amount must be positive")
	}
	if in.FlightID != nil && *in.FlightID == 0 {
		return nil, InvalidInput("flight_id must be positive")
	}

	booking, err := s.bookings.UpdateWith(ctx, id, func(b *models.Booking, payments int64) error {
		if b.UserID != userID {
			return Forbidden("booking belongs to another user")
		}

		if in.Amount != nil && *in.Amount != b.Amount {
			if payments > 0 {
				return Conflict("amount cannot change after a payment was opened")
			}
			b.Amount = *in.Amount
		}
		if in.FlightID != nil {
			b.FlightID = *in.FlightID
		}
		if in.OrderDate != nil {
			b.OrderDate = in.OrderDate.UTC()
		}

		if (in.Amount != nil || in.FlightID != nil) && payments == 0 {
			return s.checkFare(ctx, b.FlightID, b.Amount)
		}
		return nil
	})
	if err != nil {
		return nil, s.mapWriteError(err)
	}
	return booking, nil
}

func (s *BookingService) Delete(ctx context.Context, id, userID uint) error {
	booking, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if booking.UserID != userID {
		return Forbidden("booking belongs to another user")
	}

	if err := s.bookings.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return Conflict("booking has payments and cannot be deleted")
		}
		return s.mapWriteError(err)
	}
	return nil
}

func (s *BookingService) mapWriteError(err error) error {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, repository.ErrNotFound):
		return NotFound("booking not found")
	case errors.Is(err, repository.ErrConflict):
		return InvalidInput("booking references an unknown flight")
	}
	return Internal(err)
}

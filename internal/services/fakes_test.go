package services

import (
	"context"
	"sort"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/adikrnwn171/project-ticket-be/internal/gateway"
	"github.com/adikrnwn171/project-ticket-be/internal/models"
	"github.com/adikrnwn171/project-ticket-be/internal/repository"
)

// memStore backs the in-memory repositories with the same uniqueness rules
// the database enforces.
type memStore struct {
	mu       sync.Mutex
	nextID   uint
	users    map[uint]*models.User
	flights  map[uint]*models.Flight
	bookings map[uint]*models.Booking
	payments map[uint]*models.Payment
	writes   int
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[uint]*models.User{},
		flights:  map[uint]*models.Flight{},
		bookings: map[uint]*models.Booking{},
		payments: map[uint]*models.Payment{},
	}
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

type memUserRepo struct{ s *memStore }

func (r memUserRepo) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repository.ErrConflict
		}
	}
	user.ID = r.s.id()
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r memUserRepo) GetByID(_ context.Context, id uint) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r memUserRepo) GetByIDWithBookings(ctx context.Context, id uint) (*models.User, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bookings {
		if b.UserID == id {
			u.Bookings = append(u.Bookings, *b)
		}
	}
	return u, nil
}

func (r memUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memUserRepo) GetByResetToken(_ context.Context, token string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if token != "" && u.ResetToken == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memUserRepo) Update(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

type memFlightRepo struct{ s *memStore }

func (r memFlightRepo) GetByID(_ context.Context, id uint) (*models.Flight, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.flights[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

type memBookingRepo struct{ s *memStore }

func (r memBookingRepo) Create(_ context.Context, booking *models.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if booking.ID == 0 {
		booking.ID = r.s.id()
	}
	for i := range booking.Passengers {
		booking.Passengers[i].ID = r.s.id()
		booking.Passengers[i].BookingID = booking.ID
	}
	cp := *booking
	r.s.bookings[booking.ID] = &cp
	return nil
}

func (r memBookingRepo) GetByID(_ context.Context, id uint) (*models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	cp.Payments = r.s.paymentsFor(id)
	return &cp, nil
}

func (r memBookingRepo) List(_ context.Context, limit, offset int) ([]models.Booking, int64, error) {
	return r.filter(func(*models.Booking) bool { return true }, limit, offset)
}

func (r memBookingRepo) ListByUser(_ context.Context, userID uint, limit, offset int) ([]models.Booking, int64, error) {
	return r.filter(func(b *models.Booking) bool { return b.UserID == userID }, limit, offset)
}

func (r memBookingRepo) filter(keep func(*models.Booking) bool, limit, offset int) ([]models.Booking, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Booking
	for _, b := range r.s.bookings {
		if keep(b) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (r memBookingRepo) UpdateWith(_ context.Context, id uint, apply repository.BookingMutation) (*models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	if err := apply(&cp, int64(len(r.s.paymentsFor(id)))); err != nil {
		return nil, err
	}
	r.s.bookings[id] = &cp
	r.s.writes++
	out := cp
	return &out, nil
}

func (r memBookingRepo) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.bookings[id]; !ok {
		return repository.ErrNotFound
	}
	if len(r.s.paymentsFor(id)) > 0 {
		return repository.ErrConflict
	}
	delete(r.s.bookings, id)
	return nil
}

func (m *memStore) paymentsFor(bookingID uint) []models.Payment {
	var out []models.Payment
	for _, p := range m.payments {
		if p.BookingID == bookingID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memPaymentRepo struct{ s *memStore }

func (r memPaymentRepo) CreatePending(_ context.Context, payment *models.Payment, bookingAmount int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[payment.BookingID]
	if !ok {
		return repository.ErrNotFound
	}
	if b.Amount != bookingAmount {
		return repository.ErrConflict
	}
	for _, p := range r.s.payments {
		if p.OrderID == payment.OrderID {
			return repository.ErrConflict
		}
		if p.BookingID == payment.BookingID && !p.PaymentStatus.Terminal() {
			return repository.ErrConflict
		}
	}
	payment.ID = r.s.id()
	cp := *payment
	r.s.payments[payment.ID] = &cp
	r.s.writes++
	return nil
}

func (r memPaymentRepo) GetByID(_ context.Context, id uint) (*models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	if b, ok := r.s.bookings[p.BookingID]; ok {
		bc := *b
		cp.Booking = &bc
	}
	return &cp, nil
}

func (r memPaymentRepo) ListByBooking(_ context.Context, bookingID uint) ([]models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.paymentsFor(bookingID), nil
}

func (r memPaymentRepo) ListAll(_ context.Context, limit, offset int) ([]models.Payment, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Payment
	for _, p := range r.s.payments {
		cp := *p
		if b, ok := r.s.bookings[p.BookingID]; ok {
			bc := *b
			if u, ok := r.s.users[b.UserID]; ok {
				uc := *u
				bc.User = &uc
			}
			cp.Booking = &bc
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (r memPaymentRepo) ModifyByOrderID(_ context.Context, orderID string, apply repository.PaymentMutation) (*models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.payments {
		if p.OrderID == orderID {
			return r.modifyLocked(id, apply)
		}
	}
	return nil, repository.ErrNotFound
}

func (r memPaymentRepo) ModifyByID(_ context.Context, id uint, apply repository.PaymentMutation) (*models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.payments[id]; !ok {
		return nil, repository.ErrNotFound
	}
	return r.modifyLocked(id, apply)
}

func (r memPaymentRepo) modifyLocked(id uint, apply repository.PaymentMutation) (*models.Payment, error) {
	cp := *r.s.payments[id]
	changed, err := apply(&cp)
	if err != nil {
		return nil, err
	}
	if changed {
		stored := cp
		r.s.payments[id] = &stored
		r.s.writes++
	}
	return &cp, nil
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateSession(ctx context.Context, req gateway.SessionRequest) (*gateway.Session, error) {
	args := m.Called(ctx, req)
	if s, ok := args.Get(0).(*gateway.Session); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	args := m.Called(ctx, topic, key, payload)
	return args.Error(0)
}

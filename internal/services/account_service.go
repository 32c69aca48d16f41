package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/adikrnwn171/project-ticket-be/internal/models"
	"github.com/adikrnwn171/project-ticket-be/internal/repository"
	"github.com/adikrnwn171/project-ticket-be/internal/utils"
)

const minPasswordLength = 8

// TokenIssuer is the part of the credential service accounts depend on.
type TokenIssuer interface {
	Issue(user *models.User) (*TokenPair, error)
	VerifyRefresh(token string) (*Claims, error)
}

type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

type AccountUseCase interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	Verify(ctx context.Context, email, code string) error
	Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Me(ctx context.Context, userID uint) (*models.User, error)
}

type AccountService struct {
	users     repository.UserRepository
	tokens    TokenIssuer
	otp       *OTPService
	publisher EventPublisher
	log       logrus.FieldLogger
	resetTTL  time.Duration
	now       func() time.Time
}

var _ AccountUseCase = (*AccountService)(nil)

type AccountOption func(*AccountService)

func WithAccountLogger(log logrus.FieldLogger) AccountOption {
	return func(s *AccountService) {
		if log != nil {
			s.log = log
		}
	}
}

func WithPasswordResetTTL(ttl time.Duration) AccountOption {
	return func(s *AccountService) {
		if ttl > 0 {
			s.resetTTL = ttl
		}
	}
}

func WithAccountClock(now func() time.Time) AccountOption {
	return func(s *AccountService) {
		s.now = now
	}
}

func NewAccountService(users repository.UserRepository, tokens TokenIssuer, otp *OTPService, publisher EventPublisher, opts ...AccountOption) *AccountService {
	s := &AccountService{
		users:     users,
		tokens:    tokens,
		otp:       otp,
		publisher: publisher,
		log:       discardLogger(),
		resetTTL:  time.Hour,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if name == "" || email == "" || in.Password == "" {
		return nil, InvalidInput("name, email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, InvalidInput("invalid email address")
	}
	if len(in.Password) < minPasswordLength {
		return nil, InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, Internal(fmt.Errorf("hash password: %w", err))
	}
	code, err := s.otp.Generate()
	if err != nil {
		return nil, Internal(err)
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
		OTP:          code,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, Conflict("email already registered")
		}
		return nil, Internal(fmt.Errorf("create user: %w", err))
	}

	publishEvent(ctx, s.publisher, s.log, TopicOTPRequested, user.Email, OTPRequestedEvent{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Code:   code,
	})
	s.log.WithField("user_id", user.ID).Info("user registered")

	return user, nil
}

func (s *AccountService) Verify(ctx context.Context, email, code string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(code) == "" {
		return InvalidInput("email and otp are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFound("user not found")
		}
		return Internal(err)
	}
	if user.Verified {
		return nil
	}
	if !s.otp.Validate(user.OTP, strings.TrimSpace(code)) {
		return InvalidInput("invalid otp")
	}

	user.Verified = true
	user.OTP = ""
	if err := s.users.Update(ctx, user); err != nil {
		return Internal(fmt.Errorf("verify user: %w", err))
	}
	return nil
}

func (s *AccountService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, nil, InvalidInput("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, Unauthorized("invalid credentials")
		}
		return nil, nil, Internal(err)
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, nil, Unauthorized("invalid credentials")
	}
	if !user.Verified {
		return nil, nil, Unauthorized("account is not verified")
	}

	pair, err := s.tokens.Issue(user)
	if err != nil {
		return nil, nil, Internal(err)
	}
	return user, pair, nil
}

// Refresh exchanges a refresh token for a new pair. The account must still exist.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, Unauthorized("invalid token")
		}
		return nil, Internal(err)
	}

	pair, err := s.tokens.Issue(user)
	if err != nil {
		return nil, Internal(err)
	}
	return pair, nil
}

// ForgotPassword stores a reset token and publishes it. Unknown emails get the
// same answer as known ones.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return InvalidInput("email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Debug("password reset requested for unknown email")
			return nil
		}
		return Internal(err)
	}

	token, err := generateResetToken()
	if err != nil {
		return Internal(err)
	}
	expiresAt := s.now().Add(s.resetTTL)

	user.ResetToken = token
	user.ResetExpiry = &expiresAt
	if err := s.users.Update(ctx, user); err != nil {
		return Internal(fmt.Errorf("store reset token: %w", err))
	}

	publishEvent(ctx, s.publisher, s.log, TopicPasswordResetRequested, user.Email, PasswordResetRequestedEvent{
		UserID:    user.ID,
		Email:     user.Email,
		Token:     token,
		ExpiresAt: expiresAt,
	})
	return nil
}

func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return InvalidInput("reset token is required")
	}
	if len(newPassword) < minPasswordLength {
		return InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	user, err := s.users.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return InvalidInput("invalid or expired reset token")
		}
		return Internal(err)
	}
	if user.ResetExpiry == nil || !s.now().Before(*user.ResetExpiry) {
		return InvalidInput("invalid or expired reset token")
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return Internal(fmt.Errorf("hash password: %w", err))
	}

	user.PasswordHash = hash
	user.ResetToken = ""
	user.ResetExpiry = nil
	if err := s.users.Update(ctx, user); err != nil {
		return Internal(fmt.Errorf("reset password: %w", err))
	}
	return nil
}

func (s *AccountService) Me(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.GetByIDWithBookings(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("user not found")
		}
		return nil, Internal(err)
	}
	return user, nil
}

func generateResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

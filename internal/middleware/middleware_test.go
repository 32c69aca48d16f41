package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/adikrnwn171/project-ticket-be/internal/config"
	"github.com/adikrnwn171/project-ticket-be/internal/models"
	"github.com/adikrnwn171/project-ticket-be/internal/services"
)

// errorStatus mirrors the application error handler closely enough for these tests.
func errorStatus(c *fiber.Ctx, err error) error {
	switch services.KindOf(err) {
	case services.KindUnauthorized:
		return c.SendStatus(fiber.StatusUnauthorized)
	case services.KindTooManyRequests:
		return c.SendStatus(fiber.StatusTooManyRequests)
	}
	return c.SendStatus(fiber.StatusInternalServerError)
}

func newAuthApp(t *testing.T) (*fiber.App, *services.CredentialService) {
	t.Helper()
	creds, err := services.NewCredentialService(services.CredentialConfig{
		KeyID:      "k1",
		Secret:     "middleware-secret",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	})
	require.NoError(t, err)

	app := fiber.New(fiber.Config{ErrorHandler: errorStatus})
	app.Get("/me", AuthMiddleware(creds), func(c *fiber.Ctx) error {
		p, ok := CurrentPrincipal(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		id, _ := GetCurrentUserID(c)
		return c.JSON(fiber.Map{"id": id, "email": p.Email})
	})
	return app, creds
}

func TestAuthMiddleware(t *testing.T) {
	app, creds := newAuthApp(t)
	user := &models.User{Name: "ana", Email: "ana@example.com"}
	user.ID = 7
	pair, err := creds.Issue(user)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer " + pair.AccessToken, fiber.StatusOK},
		{"missing header", "", fiber.StatusUnauthorized},
		{"missing bearer prefix", pair.AccessToken, fiber.StatusUnauthorized},
		{"refresh token", "Bearer " + pair.RefreshToken, fiber.StatusUnauthorized},
		{"garbage", "Bearer nope", fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) Allow(ctx context.Context, key string) (RateDecision, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(RateDecision), args.Error(1)
}

func newLimitedApp(limiter RateLimiter, cfg config.RateLimitConfig) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: errorStatus})
	app.Post("/login", RateLimit(limiter, cfg, logrus.New()), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestRateLimit(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 5, Prefix: "rl:auth"}

	t.Run("allowed", func(t *testing.T) {
		limiter := &mockLimiter{}
		limiter.On("Allow", mock.Anything, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "rl:auth:ip:") && strings.HasSuffix(key, ":route:POST /login")
		})).Return(RateDecision{Allowed: true, Remaining: 4}, nil).Once()

		resp, err := newLimitedApp(limiter, cfg).Test(httptest.NewRequest(http.MethodPost, "/login", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "5", resp.Header.Get("X-RateLimit-Limit"))
		assert.Equal(t, "4", resp.Header.Get("X-RateLimit-Remaining"))
		limiter.AssertExpectations(t)
	})

	t.Run("blocked", func(t *testing.T) {
		limiter := &mockLimiter{}
		limiter.On("Allow", mock.Anything, mock.Anything).
			Return(RateDecision{Allowed: false, RetryAfter: 1500 * time.Millisecond}, nil).Once()

		resp, err := newLimitedApp(limiter, cfg).Test(httptest.NewRequest(http.MethodPost, "/login", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, "2", resp.Header.Get("Retry-After"))
	})

	t.Run("limiter error fails open", func(t *testing.T) {
		limiter := &mockLimiter{}
		limiter.On("Allow", mock.Anything, mock.Anything).Return(RateDecision{}, errors.New("redis down")).Once()

		resp, err := newLimitedApp(limiter, cfg).Test(httptest.NewRequest(http.MethodPost, "/login", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("disabled", func(t *testing.T) {
		limiter := &mockLimiter{}
		disabled := cfg
		disabled.Enabled = false

		resp, err := newLimitedApp(limiter, disabled).Test(httptest.NewRequest(http.MethodPost, "/login", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		limiter.AssertNotCalled(t, "Allow", mock.Anything, mock.Anything)

		resp, err = newLimitedApp(nil, cfg).Test(httptest.NewRequest(http.MethodPost, "/login", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}

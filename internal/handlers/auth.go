package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/adikrnwn171/project-ticket-be/internal/models"
	"github.com/adikrnwn171/project-ticket-be/internal/services"
)

// AuthHandler bundles dependencies for account endpoints.
type AuthHandler struct {
	accounts services.AccountUseCase
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(accounts services.AccountUseCase) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       uint             `json:"id"`
	Name     string           `json:"name"`
	Email    string           `json:"email"`
	Phone    string           `json:"phone"`
	Verified bool             `json:"verified"`
	Bookings []models.Booking `json:"bookings,omitempty"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Phone:    u.Phone,
		Verified: u.Verified,
		Bookings: u.Bookings,
	}
}

// Register creates an account and sends the verification code.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.accounts.Register(c.UserContext(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":  "success",
		"message": "verification code sent to email",
		"data":    toUserResponse(user),
	})
}

// Verify confirms the email with the one-time code.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if err := h.accounts.Verify(c.UserContext(), req.Email, req.OTP); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"status": "success", "message": "account verified"})
}

// Login authenticates a verified account and issues tokens.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, tokens, err := h.accounts.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"status": "success",
		"data": fiber.Map{
			"user":   toUserResponse(user),
			"tokens": tokens,
		},
	})
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	tokens, err := h.accounts.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"status": "success", "data": tokens})
}

func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if err := h.accounts.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "if the email is registered, a reset link has been sent",
	})
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if err := h.accounts.ResetPassword(c.UserContext(), req.Token, req.Password); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"status": "success", "message": "password updated"})
}

// Me returns the caller with their bookings.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	user, err := h.accounts.Me(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"status": "success", "data": toUserResponse(user)})
}

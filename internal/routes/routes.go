package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/adikrnwn171/project-ticket-be/internal/handlers"
	"github.com/adikrnwn171/project-ticket-be/internal/middleware"
	"github.com/adikrnwn171/project-ticket-be/internal/services"
)

// Dependencies are the use cases and shared middleware the routes are built from.
type Dependencies struct {
	Accounts  services.AccountUseCase
	Bookings  services.BookingUseCase
	Payments  services.PaymentUseCase
	Tokens    middleware.TokenVerifier
	RateLimit fiber.Handler
	Log       logrus.FieldLogger
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, deps Dependencies) {
	authHandler := handlers.NewAuthHandler(deps.Accounts)
	bookingHandler := handlers.NewBookingHandler(deps.Bookings)
	paymentHandler := handlers.NewPaymentHandler(deps.Payments, deps.Log)

	requireAuth := middleware.AuthMiddleware(deps.Tokens)
	limit := deps.RateLimit
	if limit == nil {
		limit = func(c *fiber.Ctx) error { return c.Next() }
	}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", limit, authHandler.Register)
	auth.Post("/verify", limit, authHandler.Verify)
	auth.Post("/login", limit, authHandler.Login)
	auth.Post("/refresh", limit, authHandler.Refresh)
	auth.Post("/forgot-password", limit, authHandler.ForgotPassword)
	auth.Post("/reset-password", limit, authHandler.ResetPassword)
	auth.Get("/me", requireAuth, authHandler.Me)

	// Bookings
	bookings := api.Group("/bookings", requireAuth)
	bookings.Post("/", bookingHandler.Create)
	bookings.Get("/", bookingHandler.List)
	bookings.Get("/me", bookingHandler.ListMine)
	bookings.Get("/:id", bookingHandler.Get)
	bookings.Put("/:id", bookingHandler.Update)
	bookings.Delete("/:id", bookingHandler.Delete)

	// Payments; the gateway notification is unauthenticated and registered first.
	payments := api.Group("/payments")
	payments.Post("/notification", paymentHandler.Notification)
	payments.Post("/", requireAuth, paymentHandler.Create)
	payments.Get("/", requireAuth, paymentHandler.List)
	payments.Post("/:id/confirm", requireAuth, limit, paymentHandler.Confirm)
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"

	"github.com/adikrnwn171/project-ticket-be/internal/cache"
	"github.com/adikrnwn171/project-ticket-be/internal/config"
	"github.com/adikrnwn171/project-ticket-be/internal/database"
	"github.com/adikrnwn171/project-ticket-be/internal/events"
	"github.com/adikrnwn171/project-ticket-be/internal/gateway"
	"github.com/adikrnwn171/project-ticket-be/internal/handlers"
	"github.com/adikrnwn171/project-ticket-be/internal/middleware"
	"github.com/adikrnwn171/project-ticket-be/internal/repository"
	"github.com/adikrnwn171/project-ticket-be/internal/routes"
	"github.com/adikrnwn171/project-ticket-be/internal/services"
)

func main() {
	cfg := config.Load()
	log := newLogger(cfg)

	db := database.Connect(cfg.DatabaseURL, log.IsLevelEnabled(logrus.DebugLevel))

	publisher, err := events.NewPublisher(events.Config{
		Broker:       cfg.EventBroker,
		KafkaBrokers: cfg.KafkaBrokers,
		RabbitMQURL:  cfg.RabbitMQURL,
		TopicPrefix:  cfg.EventTopicPrefix,
	}, log.WithField("component", "events"))
	if err != nil {
		log.WithError(err).Fatal("failed to configure event publisher")
	}
	defer publisher.Close()

	credentials, err := services.NewCredentialService(services.CredentialConfig{
		KeyID:        cfg.JWTKeyID,
		Secret:       cfg.JWTSecret,
		PreviousKeys: cfg.JWTPreviousKeys,
		Issuer:       cfg.JWTIssuer,
		AccessTTL:    cfg.AccessTokenTTL,
		RefreshTTL:   cfg.RefreshTokenTTL,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to configure credentials")
	}

	users := repository.NewUserRepository(db)
	flights := repository.NewFlightRepository(db)
	bookings := repository.NewBookingRepository(db)
	payments := repository.NewPaymentRepository(db)
	otp := services.NewOTPService()

	paymentOpts := []services.PaymentOption{
		services.WithGatewayTimeout(cfg.GatewayTimeout),
		services.WithPaymentLogger(log.WithField("component", "payments")),
	}
	if cfg.MidtransVerifySigned {
		paymentOpts = append(paymentOpts, services.WithSignatureKey(cfg.MidtransServerKey))
	}

	var limiter middleware.RateLimiter
	if rdb := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log); rdb != nil {
		defer rdb.Close()
		limiter = middleware.NewRedisTokenBucket(rdb, cfg.RateLimit)
	}

	app := fiber.New(fiber.Config{
		AppName:      "Project Ticket Backend",
		ErrorHandler: handlers.ErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.Register(app, routes.Dependencies{
		Accounts: services.NewAccountService(users, credentials, otp, publisher,
			services.WithAccountLogger(log.WithField("component", "accounts")),
			services.WithPasswordResetTTL(cfg.PasswordResetTTL),
		),
		Bookings: services.NewBookingService(bookings, flights,
			services.WithFareValidation(cfg.ValidateFare),
			services.WithBookingLogger(log.WithField("component", "bookings")),
		),
		Payments: services.NewPaymentService(bookings, payments,
			gateway.NewMidtransClient(cfg.MidtransServerKey, cfg.MidtransBaseURL, cfg.GatewayTimeout),
			otp, publisher, paymentOpts...,
		),
		Tokens:    credentials,
		RateLimit: middleware.RateLimit(limiter, cfg.RateLimit, log.WithField("component", "ratelimit")),
		Log:       log.WithField("component", "http"),
	})

	go func() {
		log.Infof("Starting server on :%s", cfg.AppPort)
		if err := app.Listen(":" + cfg.AppPort); err != nil {
			log.WithError(err).Fatal("fiber.Listen error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if cfg.LogFormat == "json" || cfg.Env == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

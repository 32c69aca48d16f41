package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"

	"github.com/adikrnwn171/project-ticket-be/internal/services"
)

var kindStatus = map[services.ErrorKind]int{
	services.KindInvalidInput:       fiber.StatusBadRequest,
	services.KindUnauthorized:       fiber.StatusUnauthorized,
	services.KindForbidden:          fiber.StatusForbidden,
	services.KindNotFound:           fiber.StatusNotFound,
	services.KindConflict:           fiber.StatusConflict,
	services.KindTooManyRequests:    fiber.StatusTooManyRequests,
	services.KindGatewayUnavailable: fiber.StatusBadGateway,
	services.KindInternal:           fiber.StatusInternalServerError,
}

// ErrorHandler renders every error as {"status": "fail"|"error", "message": ...}.
// Internal failures are logged and reported with a generic message.
func ErrorHandler(log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "internal server error"

		var appErr *services.AppError
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &appErr):
			code = kindStatus[appErr.Kind]
			if appErr.Kind != services.KindInternal {
				message = appErr.Message
			}
		case errors.As(err, &fiberErr):
			code = fiberErr.Code
			message = fiberErr.Message
		}

		if code >= fiber.StatusInternalServerError {
			entry := log.WithError(err).WithFields(logrus.Fields{
				"method": c.Method(),
				"path":   c.Path(),
				"status": code,
			})
			if rid, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok {
				entry = entry.WithField("request_id", rid)
			}
			entry.Error("request failed")
		}

		status := "fail"
		if code >= fiber.StatusInternalServerError {
			status = "error"
		}
		return c.Status(code).JSON(fiber.Map{
			"status":  status,
			"message": message,
		})
	}
}

func badRequest(message string) error {
	return services.InvalidInput(message)
}

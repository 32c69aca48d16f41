package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/adikrnwn171/project-ticket-be/internal/services"
	"github.com/adikrnwn171/project-ticket-be/internal/utils"
)

// PaymentHandler exposes checkout and the gateway notification endpoint.
type PaymentHandler struct {
	payments services.PaymentUseCase
	log      logrus.FieldLogger
}

func NewPaymentHandler(payments services.PaymentUseCase, log logrus.FieldLogger) *PaymentHandler {
	return &PaymentHandler{payments: payments, log: log}
}

type createPaymentRequest struct {
	OrderID     flexibleID     `json:"order_id"`
	GrossAmount flexibleAmount `json:"gross_amount"`
	FirstName   string         `json:"first_name"`
	Email       string         `json:"email"`
	Phone       string         `json:"phone"`
	PaymentType string         `json:"payment_type"`
}

type confirmPaymentRequest struct {
	Code string `json:"code"`
}

// Create opens a gateway session for the caller's booking.
func (h *PaymentHandler) Create(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req createPaymentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	in := services.OpenPaymentInput{
		UserID:      userID,
		BookingID:   uint(req.OrderID),
		FirstName:   req.FirstName,
		Email:       req.Email,
		Phone:       req.Phone,
		PaymentType: req.PaymentType,
	}
	if req.GrossAmount.Set {
		amount := req.GrossAmount.Value
		in.GrossAmount = &amount
	}

	res, err := h.payments.Open(c.UserContext(), in)
	if err != nil {
		return err
	}

	status := fiber.StatusCreated
	if res.Reused {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(fiber.Map{
		"url":      res.RedirectURL,
		"token":    res.Token,
		"order_id": res.OrderID,
		"message":  "success",
	})
}

// Notification receives gateway callbacks. It always answers 200 "OK" so the
// gateway stops retrying; outcomes and failures are only logged.
func (h *PaymentHandler) Notification(c *fiber.Ctx) error {
	body := append([]byte(nil), c.Body()...)

	n, err := services.ParseNotification(body)
	if err != nil {
		h.log.WithError(err).Warn("unreadable payment notification")
		return c.Status(fiber.StatusOK).SendString("OK")
	}

	res, err := h.payments.Reconcile(c.UserContext(), n)
	if err != nil {
		h.log.WithError(err).WithField("order_id", n.OrderID).Error("payment notification not applied")
		return c.Status(fiber.StatusOK).SendString("OK")
	}

	h.log.WithFields(logrus.Fields{"order_id": n.OrderID, "outcome": res.Outcome}).Debug("payment notification handled")
	return c.Status(fiber.StatusOK).SendString("OK")
}

// List returns all payments with their booking and user.
func (h *PaymentHandler) List(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	payments, total, err := h.payments.ListAll(c.UserContext(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return paginated(c, pg, payments, total)
}

// Confirm checks the one-time code of a settled payment.
func (h *PaymentHandler) Confirm(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req confirmPaymentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	payment, err := h.payments.ConfirmCode(c.UserContext(), userID, id, req.Code)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "success", "data": payment})
}

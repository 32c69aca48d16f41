package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/adikrnwn171/project-ticket-be/internal/services"
	"github.com/adikrnwn171/project-ticket-be/internal/utils"
)

// BookingHandler exposes booking endpoints for authenticated users.
type BookingHandler struct {
	bookings services.BookingUseCase
}

func NewBookingHandler(bookings services.BookingUseCase) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

type passengerRequest struct {
	Name             string `json:"name"`
	BornDate         string `json:"born_date"`
	Citizen          string `json:"citizen"`
	IdentityNumber   string `json:"identity_number"`
	PublisherCountry string `json:"publisher_country"`
	ValidUntil       string `json:"valid_until"`
}

type createBookingRequest struct {
	FlightID   flexibleID         `json:"flight_id"`
	OrderDate  string             `json:"order_date"`
	Amount     flexibleAmount     `json:"amount"`
	Passengers []passengerRequest `json:"passengers"`
}

type updateBookingRequest struct {
	FlightID  *flexibleID    `json:"flight_id"`
	OrderDate *string        `json:"order_date"`
	Amount    flexibleAmount `json:"amount"`
}

func (h *BookingHandler) Create(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req createBookingRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	in := services.CreateBookingInput{
		UserID:   userID,
		FlightID: uint(req.FlightID),
		Amount:   req.Amount.Value,
	}
	orderDate, err := parseDate("order_date", req.OrderDate)
	if err != nil {
		return err
	}
	if orderDate != nil {
		in.OrderDate = *orderDate
	}

	for _, p := range req.Passengers {
		born, err := parseDate("born_date", p.BornDate)
		if err != nil {
			return err
		}
		validUntil, err := parseDate("valid_until", p.ValidUntil)
		if err != nil {
			return err
		}
		in.Passengers = append(in.Passengers, services.PassengerInput{
			Name:             p.Name,
			BornDate:         born,
			Citizen:          p.Citizen,
			IdentityNumber:   p.IdentityNumber,
			PublisherCountry: p.PublisherCountry,
			ValidUntil:       validUntil,
		})
	}

	booking, err := h.bookings.Create(c.UserContext(), in)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "data": booking})
}

// List returns every booking.
func (h *BookingHandler) List(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	bookings, total, err := h.bookings.List(c.UserContext(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return paginated(c, pg, bookings, total)
}

// ListMine returns the caller's bookings.
func (h *BookingHandler) ListMine(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	pg := utils.ParsePagination(c)
	bookings, total, err := h.bookings.ListByOwner(c.UserContext(), userID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return paginated(c, pg, bookings, total)
}

func (h *BookingHandler) Get(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	booking, err := h.bookings.GetOwned(c.UserContext(), id, userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "success", "data": booking})
}

func (h *BookingHandler) Update(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req updateBookingRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	var in services.UpdateBookingInput
	if req.FlightID != nil {
		flightID := uint(*req.FlightID)
		in.FlightID = &flightID
	}
	if req.Amount.Set {
		amount := req.Amount.Value
		in.Amount = &amount
	}
	if req.OrderDate != nil {
		var orderDate *time.Time
		if orderDate, err = parseDate("order_date", *req.OrderDate); err != nil {
			return err
		}
		in.OrderDate = orderDate
	}

	booking, err := h.bookings.Update(c.UserContext(), id, userID, in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "success", "data": booking})
}

func (h *BookingHandler) Delete(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.bookings.Delete(c.UserContext(), id, userID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "success", "message": "booking deleted"})
}

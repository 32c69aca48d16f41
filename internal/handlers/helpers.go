package handlers

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/adikrnwn171/project-ticket-be/internal/middleware"
	"github.com/adikrnwn171/project-ticket-be/internal/services"
	"github.com/adikrnwn171/project-ticket-be/internal/utils"
)

func currentUserID(c *fiber.Ctx) (uint, error) {
	id, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return 0, services.Unauthorized("authentication required")
	}
	return id, nil
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("invalid " + name)
	}
	return uint(id), nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return badRequest("invalid request body")
	}
	return nil
}

func paginated(c *fiber.Ctx, pg utils.Pagination, data any, total int64) error {
	return c.JSON(fiber.Map{
		"status": "success",
		"data":   data,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// flexibleID accepts 42 or "42".
type flexibleID uint

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", data)
	}
	*f = flexibleID(n)
	return nil
}

// flexibleAmount accepts 150000, 150000.00 or "150000".
type flexibleAmount struct {
	Value int64
	Set   bool
}

func (f *flexibleAmount) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q", data)
	}
	f.Value = int64(v)
	f.Set = true
	return nil
}

// parseDate reads RFC 3339 timestamps or plain YYYY-MM-DD dates.
func parseDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, badRequest("invalid " + field)
}

// Package repository holds the gorm-backed stores for users, flights,
// bookings and payments. Callers match the sentinel errors below with
// errors.Is instead of inspecting gorm or driver errors.
package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a write collides with existing state: a
// duplicate unique key, a restricted foreign key, or a locked precondition
// that no longer holds.
var ErrConflict = errors.New("conflict")

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		return errors.Join(ErrConflict, err)
	}
	return err
}

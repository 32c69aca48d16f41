package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/adikrnwn171/project-ticket-be/internal/models"
)

// FlightRepository reads fares owned by the catalog.
type FlightRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Flight, error)
}

type GormFlightRepository struct {
	db *gorm.DB
}

func NewFlightRepository(db *gorm.DB) FlightRepository {
	return &GormFlightRepository{db: db}
}

func (r *GormFlightRepository) GetByID(ctx context.Context, id uint) (*models.Flight, error) {
	var flight models.Flight
	if err := r.db.WithContext(ctx).First(&flight, id).Error; err != nil {
		return nil, translate(err)
	}
	return &flight, nil
}

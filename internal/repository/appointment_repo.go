package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"carebook/internal/domain"
)

type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	var a domain.Appointment
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// FindStaleConfirmed returns confirmed appointments scheduled before cutoff
// that were never attended, for the hourly safety-net task.
func (r *AppointmentRepository) FindStaleConfirmed(ctx context.Context, cutoff time.Time, limit int) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_at < ?", domain.AppointmentConfirmed, cutoff).
		Order("scheduled_at asc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"carebook/internal/domain"
)

type PendingBookingRepository struct {
	db *gorm.DB
}

func NewPendingBookingRepository(db *gorm.DB) *PendingBookingRepository {
	return &PendingBookingRepository{db: db}
}

func (r *PendingBookingRepository) GetByID(ctx context.Context, id int64) (*domain.PendingBooking, error) {
	var b domain.PendingBooking
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PendingBookingRepository) GetByTxRef(ctx context.Context, txRef string) (*domain.PendingBooking, error) {
	var b domain.PendingBooking
	if err := r.db.WithContext(ctx).Where("tx_ref = ?", txRef).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// FindExpired returns non-terminal bookings past their deadline, oldest first,
// capped for the sweeper's batch.
func (r *PendingBookingRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]domain.PendingBooking, error) {
	var rows []domain.PendingBooking
	err := r.db.WithContext(ctx).
		Where("status IN ? AND expires_at < ?",
			[]string{string(domain.PendingBookingPending), string(domain.PendingBookingPaymentInitiated)}, now).
		Order("expires_at asc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkPaymentInitiated attaches the gateway reference and moves the booking to
// payment_initiated, guarded on the booking still being pending. Returns false
// when the booking expired or advanced in the meantime.
func (r *PendingBookingRepository) MarkPaymentInitiated(ctx context.Context, id int64, txRef string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.PendingBooking{}).
		Where("id = ? AND status = ?", id, domain.PendingBookingPending).
		Updates(map[string]any{
			"tx_ref": txRef,
			"status": domain.PendingBookingPaymentInitiated,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"carebook/internal/domain"
)

type TimeSlotRepository struct {
	db *gorm.DB
}

func NewTimeSlotRepository(db *gorm.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

// SlotFilter narrows FindAvailable. Zero values mean "no filter".
type SlotFilter struct {
	CaregiverID   int64
	DateFrom      time.Time
	DateTo        time.Time
	IncludeLocked bool // include slots whose lock has not expired yet
	Limit         int
}

func (r *TimeSlotRepository) GetByID(ctx context.Context, id int64) (*domain.TimeSlot, error) {
	var s domain.TimeSlot
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// InsertIgnoreDuplicates persists generated slots, silently skipping rows that
// collide on (caregiver_id, date, start_time). Returns the number actually
// inserted, so generation is idempotent across reruns.
func (r *TimeSlotRepository) InsertIgnoreDuplicates(ctx context.Context, slots []domain.TimeSlot) (int, error) {
	inserted := 0
	for i := range slots {
		if err := r.db.WithContext(ctx).Create(&slots[i]).Error; err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint") || strings.Contains(msg, "unique failed")
}

// FindAvailable lists bookable slots ordered by date then start time. Slots on
// today's date whose start time is already behind the wall clock are dropped;
// locked slots with a live lock are dropped unless IncludeLocked. The page is
// always capped.
func (r *TimeSlotRepository) FindAvailable(ctx context.Context, f SlotFilter, now time.Time, maxPageSize int) ([]domain.TimeSlot, error) {
	limit := f.Limit
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	q := r.db.WithContext(ctx).Model(&domain.TimeSlot{})
	if f.IncludeLocked {
		q = q.Where("status IN ?", []string{string(domain.SlotAvailable), string(domain.SlotLocked)})
	} else {
		q = q.Where(
			"status = ? OR (status = ? AND locked_until < ?)",
			domain.SlotAvailable, domain.SlotLocked, now,
		)
	}
	if f.CaregiverID != 0 {
		q = q.Where("caregiver_id = ?", f.CaregiverID)
	}
	if !f.DateFrom.IsZero() {
		q = q.Where("date >= ?", truncateToDay(f.DateFrom))
	}
	if !f.DateTo.IsZero() {
		q = q.Where("date <= ?", truncateToDay(f.DateTo))
	}

	// For today, a slot starting at or before the current wall-clock time is
	// gone already.
	today := truncateToDay(now)
	q = q.Where("date > ? OR (date = ? AND start_time > ?)", today, today, now.Format("15:04"))

	var slots []domain.TimeSlot
	if err := q.Order("date asc, start_time asc").Limit(limit).Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

// FindOrphanedLocked returns locked slots whose deadline has passed, for the
// sweeper's second pass. Matching ledger rows may or may not exist.
func (r *TimeSlotRepository) FindOrphanedLocked(ctx context.Context, now time.Time, limit int) ([]domain.TimeSlot, error) {
	var slots []domain.TimeSlot
	err := r.db.WithContext(ctx).
		Where("status = ? AND locked_until IS NOT NULL AND locked_until < ?", domain.SlotLocked, now).
		Order("locked_until asc").
		Limit(limit).
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// ReleaseIfLocked reverts a single slot to available, guarded on it still
// being locked so a slot booked in the meantime is never downgraded.
func (r *TimeSlotRepository) ReleaseIfLocked(ctx context.Context, slotID int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.TimeSlot{}).
		Where("id = ? AND status = ?", slotID, domain.SlotLocked).
		Updates(map[string]any{
			"status":       domain.SlotAvailable,
			"locked_until": nil,
			"is_booked":    false,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

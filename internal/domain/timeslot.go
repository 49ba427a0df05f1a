package domain

import "time"

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotLocked    SlotStatus = "locked"
	SlotBooked    SlotStatus = "booked"
)

// TimeSlot is a fixed-duration, priced, bookable window for one caregiver.
// (caregiver_id, date, start_time) is unique: slot generation may run twice
// over the same range without producing duplicates.
type TimeSlot struct {
	ID          int64      `gorm:"primaryKey" json:"id"`
	CaregiverID int64      `gorm:"not null;uniqueIndex:idx_caregiver_date_start" json:"caregiver_id"`
	Date        time.Time  `gorm:"not null;uniqueIndex:idx_caregiver_date_start" json:"date"`
	StartTime   string     `gorm:"type:varchar(5);not null;uniqueIndex:idx_caregiver_date_start" json:"start_time"`
	EndTime     string     `gorm:"type:varchar(5);not null" json:"end_time"`
	Duration    int        `gorm:"not null" json:"duration"` // minutes
	Price       float64    `gorm:"not null" json:"price"`
	Status      SlotStatus `gorm:"type:varchar(20);default:'available';index" json:"status"`
	IsBooked    bool       `gorm:"default:false" json:"is_booked"`
	// LockedUntil is set while status=locked; a locked slot whose deadline has
	// passed is reclaimable by the sweeper.
	LockedUntil   *time.Time `gorm:"index" json:"locked_until,omitempty"`
	AppointmentID *int64     `json:"appointment_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (TimeSlot) TableName() string { return "time_slots" }

// Lockable reports whether a lock request may proceed: the slot is free, or it
// already carries an unexpired lock (benign duplicate of the same request).
func (s *TimeSlot) Lockable(now time.Time) bool {
	if s.Status == SlotAvailable {
		return true
	}
	return s.Status == SlotLocked && s.LockedUntil != nil && s.LockedUntil.After(now)
}

package domain

import "time"

// Specialty is reference data: the fee schedule applied when a slot in this
// specialty is locked. Bookings snapshot the fees, so later fee changes do not
// affect in-flight or converted bookings.
type Specialty struct {
	ID         int64   `gorm:"primaryKey" json:"id"`
	Name       string  `gorm:"type:varchar(120);not null" json:"name"`
	BookingFee float64 `gorm:"not null" json:"booking_fee"`
	SessionFee float64 `gorm:"not null" json:"session_fee"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Specialty) TableName() string { return "specialties" }

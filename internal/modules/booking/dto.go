package booking

import (
	"time"

	"carebook/internal/domain"
)

type LockSlotRequest struct {
	TimeSlotID  int64              `json:"time_slot_id" binding:"required"`
	PatientID   int64              `json:"-"`
	SpecialtyID int64              `json:"specialty_id" binding:"required"`
	SessionType domain.SessionType `json:"session_type" binding:"required,oneof=in_person virtual"`
	Notes       string             `json:"notes"`
	LocationID  *int64             `json:"location_id"`
}

type LockResult struct {
	Slot           *domain.TimeSlot       `json:"slot"`
	PendingBooking *domain.PendingBooking `json:"pending_booking"`
	ExpiresAt      time.Time              `json:"expires_at"`
}

type ConvertResult struct {
	Appointment    *domain.Appointment    `json:"appointment"`
	PendingBooking *domain.PendingBooking `json:"pending_booking"`
}

type ReleaseResult struct {
	PendingBooking *domain.PendingBooking `json:"pending_booking"`
	Slot           *domain.TimeSlot       `json:"slot"`
	// Released reports whether this call moved the booking to the release
	// reason; false on a terminal no-op. SlotReleased reports whether the slot
	// actually went back to available.
	Released     bool `json:"released"`
	SlotReleased bool `json:"slot_released"`
}

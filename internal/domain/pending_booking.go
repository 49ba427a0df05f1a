package domain

import "time"

type PendingBookingStatus string

const (
	PendingBookingPending          PendingBookingStatus = "pending"
	PendingBookingPaymentInitiated PendingBookingStatus = "payment_initiated"
	PendingBookingPaymentCompleted PendingBookingStatus = "payment_completed"
	PendingBookingPaymentFailed    PendingBookingStatus = "payment_failed"
	PendingBookingExpired          PendingBookingStatus = "expired"
	PendingBookingConverted        PendingBookingStatus = "converted"
)

type SessionType string

const (
	SessionInPerson SessionType = "in_person"
	SessionVirtual  SessionType = "virtual"
)

// PendingBooking is the ledger row for a booking attempt in flight: a slot
// lock plus booking intent, awaiting payment confirmation. Fees are a snapshot
// of the specialty at lock time. Terminal statuses (converted, expired,
// payment_failed) never reverse.
type PendingBooking struct {
	ID          int64       `gorm:"primaryKey" json:"id"`
	TimeSlotID  int64       `gorm:"not null;index" json:"time_slot_id"`
	PatientID   int64       `gorm:"not null;index" json:"patient_id"`
	CaregiverID int64       `gorm:"not null" json:"caregiver_id"`
	SpecialtyID int64       `gorm:"not null" json:"specialty_id"`
	LocationID  *int64      `json:"location_id,omitempty"`
	SessionType SessionType `gorm:"type:varchar(20);not null" json:"session_type"`
	Notes       string      `gorm:"type:text" json:"notes,omitempty"`

	BookingFee  float64 `gorm:"not null" json:"booking_fee"`
	SessionFee  float64 `gorm:"not null" json:"session_fee"`
	TotalAmount float64 `gorm:"not null" json:"total_amount"`

	// TxRef is assigned when payment is initiated; webhook and verify calls
	// look bookings up by it.
	TxRef *string `gorm:"type:varchar(64);uniqueIndex" json:"tx_ref,omitempty"`

	Status                   PendingBookingStatus `gorm:"type:varchar(20);default:'pending';index:idx_pending_status_expiry" json:"status"`
	ExpiresAt                time.Time            `gorm:"not null;index:idx_pending_status_expiry" json:"expires_at"`
	ConvertedToAppointmentID *int64               `json:"converted_to_appointment_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PendingBooking) TableName() string { return "pending_bookings" }

func (b *PendingBooking) Terminal() bool {
	switch b.Status {
	case PendingBookingConverted, PendingBookingExpired, PendingBookingPaymentFailed:
		return true
	}
	return false
}

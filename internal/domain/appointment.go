package domain

import "time"

type AppointmentStatus string

const (
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentAttended  AppointmentStatus = "attended"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

type FeePaymentStatus string

const (
	FeeCompleted FeePaymentStatus = "completed"
	FeePending   FeePaymentStatus = "pending"
)

// Appointment is the confirmed booking, created exactly once per converted
// PendingBooking. The two fee statuses reflect the two-part payment model: the
// booking fee secures the slot at conversion time, the session fee is
// collected around the time of service.
type Appointment struct {
	ID          int64       `gorm:"primaryKey" json:"id"`
	PatientID   int64       `gorm:"not null;index" json:"patient_id"`
	CaregiverID int64       `gorm:"not null;index" json:"caregiver_id"`
	SpecialtyID int64       `gorm:"not null" json:"specialty_id"`
	LocationID  *int64      `json:"location_id,omitempty"`
	SessionType SessionType `gorm:"type:varchar(20);not null" json:"session_type"`

	ScheduledAt time.Time `gorm:"not null;index" json:"scheduled_at"`
	Duration    int       `gorm:"not null" json:"duration"` // minutes
	TotalCost   float64   `gorm:"not null" json:"total_cost"`

	Status           AppointmentStatus `gorm:"type:varchar(20);default:'confirmed';index" json:"status"`
	BookingFeeStatus FeePaymentStatus  `gorm:"type:varchar(20)" json:"booking_fee_status"`
	SessionFeeStatus FeePaymentStatus  `gorm:"type:varchar(20)" json:"session_fee_status"`

	// Teleconference metadata, set after conversion commits for virtual
	// sessions. Provisioning failures leave these empty and are retried.
	RoomID       string `gorm:"type:varchar(128)" json:"room_id,omitempty"`
	HostJoinURL  string `gorm:"type:text" json:"host_join_url,omitempty"`
	GuestJoinURL string `gorm:"type:text" json:"guest_join_url,omitempty"`

	Notes              string     `gorm:"type:text" json:"notes,omitempty"`
	CancellationReason string     `gorm:"type:text" json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (Appointment) TableName() string { return "appointments" }

package notification

import (
	"context"

	"go.uber.org/zap"
)

// Event type constants shared with the downstream delivery service.
const (
	TypeBookingConfirmed = "booking.confirmed"
	TypePaymentFailed    = "booking.payment_failed"
	TypeBookingExpired   = "booking.expired"
)

// Sender satisfies the booking module's NotificationSender. Actual email/SMS
// delivery is an external collaborator; this implementation records the event
// and hands off. Failures are the caller's to log, never to propagate.
type Sender struct {
	log *zap.Logger
}

func NewSender(log *zap.Logger) *Sender {
	return &Sender{log: log}
}

func (s *Sender) NotifyBookingConfirmed(ctx context.Context, patientID, appointmentID int64) error {
	s.log.Info("notification dispatched",
		zap.String("type", TypeBookingConfirmed),
		zap.Int64("patient_id", patientID),
		zap.Int64("appointment_id", appointmentID))
	return nil
}

func (s *Sender) NotifyPaymentFailed(ctx context.Context, patientID, pendingBookingID int64) error {
	s.log.Info("notification dispatched",
		zap.String("type", TypePaymentFailed),
		zap.Int64("patient_id", patientID),
		zap.Int64("pending_booking_id", pendingBookingID))
	return nil
}

func (s *Sender) NotifyBookingExpired(ctx context.Context, patientID, pendingBookingID int64) error {
	s.log.Info("notification dispatched",
		zap.String("type", TypeBookingExpired),
		zap.Int64("patient_id", patientID),
		zap.Int64("pending_booking_id", pendingBookingID))
	return nil
}

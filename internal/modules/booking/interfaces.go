package booking

import "context"

// RoomProvisioner provisions a teleconference room for a virtual session. It
// runs after the conversion transaction commits: a provisioning failure never
// rolls back an appointment, it is logged and retried by the caller side.
type RoomProvisioner interface {
	ProvisionRoom(ctx context.Context, appointmentID, patientID, caregiverID int64) (roomID, hostJoinURL, guestJoinURL string, err error)
}

// NotificationSender delivers fire-and-forget booking events after commit.
// Delivery failures are logged, never surfaced as booking failures.
type NotificationSender interface {
	NotifyBookingConfirmed(ctx context.Context, patientID, appointmentID int64) error
	NotifyPaymentFailed(ctx context.Context, patientID, pendingBookingID int64) error
	NotifyBookingExpired(ctx context.Context, patientID, pendingBookingID int64) error
}

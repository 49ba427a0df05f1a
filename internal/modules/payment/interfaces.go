package payment

import (
	"context"

	"carebook/internal/domain"
	"carebook/internal/modules/booking"
)

// BookingConverter is the downstream core: a validated payment outcome either
// converts the pending booking or releases it.
type BookingConverter interface {
	Convert(ctx context.Context, pendingBookingID int64, paymentRef string) (*booking.ConvertResult, error)
	Release(ctx context.Context, pendingBookingID int64, reason domain.PendingBookingStatus) (*booking.ReleaseResult, error)
}

// PaymentGateway abstracts the processor client for tests.
type PaymentGateway interface {
	Initiate(ctx context.Context, amount float64, email, txRef, callbackURL, returnURL string) (string, error)
	Verify(ctx context.Context, txRef string) (string, error)
}

// PendingBookingReader is the ledger access the payment flow needs.
type PendingBookingReader interface {
	GetByID(ctx context.Context, id int64) (*domain.PendingBooking, error)
	GetByTxRef(ctx context.Context, txRef string) (*domain.PendingBooking, error)
	MarkPaymentInitiated(ctx context.Context, id int64, txRef string) (bool, error)
}

package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"carebook/internal/domain"
	"carebook/internal/modules/booking"
	"carebook/internal/pkg/clock"
)

var (
	ErrInvalidSignature  = errors.New("invalid webhook signature")
	ErrAmountMismatch    = errors.New("amount mismatch")
	ErrBookingNotPayable = errors.New("booking is not payable")
)

type Service struct {
	ledger    PendingBookingReader
	converter BookingConverter
	gateway   PaymentGateway
	clk       clock.Clock
	log       *zap.Logger

	webhookSecret string
	callbackURL   string
	returnURL     string
}

func NewService(ledger PendingBookingReader, converter BookingConverter, gateway PaymentGateway, clk clock.Clock, log *zap.Logger, webhookSecret, callbackURL, returnURL string) *Service {
	return &Service{
		ledger:        ledger,
		converter:     converter,
		gateway:       gateway,
		clk:           clk,
		log:           log,
		webhookSecret: webhookSecret,
		callbackURL:   callbackURL,
		returnURL:     returnURL,
	}
}

// InitiatePayment assigns a transaction reference to a pending booking and
// obtains a hosted checkout URL. Re-initiating an already-initiated booking
// reuses its tx_ref, so an abandoned checkout tab can be retried.
func (s *Service) InitiatePayment(ctx context.Context, patientID int64, req InitiatePaymentRequest) (*InitiatePaymentResponse, error) {
	pb, err := s.ledger.GetByID(ctx, req.PendingBookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, booking.ErrPendingBookingNotFound
		}
		return nil, fmt.Errorf("load pending booking %d: %w", req.PendingBookingID, err)
	}
	if pb.PatientID != patientID {
		return nil, ErrBookingNotPayable
	}
	if pb.ExpiresAt.Before(s.clk.Now()) {
		return nil, ErrBookingNotPayable
	}

	var txRef string
	switch pb.Status {
	case domain.PendingBookingPending:
		txRef = "PAY-" + uuid.NewString()
	case domain.PendingBookingPaymentInitiated:
		if pb.TxRef == nil {
			return nil, fmt.Errorf("booking %d initiated without tx_ref", pb.ID)
		}
		txRef = *pb.TxRef
	default:
		return nil, ErrBookingNotPayable
	}

	checkoutURL, err := s.gateway.Initiate(ctx, pb.TotalAmount, req.Email, txRef, s.callbackURL, s.returnURL)
	if err != nil {
		return nil, fmt.Errorf("gateway initiate failed: %w", err)
	}

	if pb.Status == domain.PendingBookingPending {
		ok, err := s.ledger.MarkPaymentInitiated(ctx, pb.ID, txRef)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Expired or advanced between read and write; the checkout URL is
			// useless and a late payment will be bounced by the webhook path.
			return nil, ErrBookingNotPayable
		}
	}

	return &InitiatePaymentResponse{TxRef: txRef, CheckoutURL: checkoutURL, Amount: pb.TotalAmount}, nil
}

// HandleWebhook settles the booking behind a processor callback. The HMAC
// signature must validate before anything in the payload is trusted.
// Duplicate deliveries are safe: conversion is idempotent and a repeated
// failure lands on a terminal ledger row.
func (s *Service) HandleWebhook(ctx context.Context, signature string, body []byte) (*WebhookResult, error) {
	if !s.signatureValid(signature, body) {
		s.log.Warn("webhook signature rejected")
		return nil, ErrInvalidSignature
	}

	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}
	if p.TxRef == "" {
		return nil, fmt.Errorf("webhook payload missing tx_ref")
	}

	pb, err := s.ledger.GetByTxRef(ctx, p.TxRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, booking.ErrPendingBookingNotFound
		}
		return nil, fmt.Errorf("load booking for tx_ref %s: %w", p.TxRef, err)
	}

	if p.Amount != 0 && p.Amount != pb.TotalAmount {
		s.log.Error("webhook amount mismatch",
			zap.String("tx_ref", p.TxRef),
			zap.Float64("callback_amount", p.Amount),
			zap.Float64("expected_amount", pb.TotalAmount))
		return nil, ErrAmountMismatch
	}

	return s.settle(ctx, pb, p.TxRef, p.Status)
}

// VerifyAndSettle is the polling fallback for a webhook that never arrived:
// ask the processor directly, then settle the same way.
func (s *Service) VerifyAndSettle(ctx context.Context, txRef string) (*WebhookResult, error) {
	pb, err := s.ledger.GetByTxRef(ctx, txRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, booking.ErrPendingBookingNotFound
		}
		return nil, fmt.Errorf("load booking for tx_ref %s: %w", txRef, err)
	}

	status, err := s.gateway.Verify(ctx, txRef)
	if err != nil {
		return nil, fmt.Errorf("gateway verify failed: %w", err)
	}
	return s.settle(ctx, pb, txRef, status)
}

func (s *Service) settle(ctx context.Context, pb *domain.PendingBooking, txRef, status string) (*WebhookResult, error) {
	switch status {
	case "success":
		res, err := s.converter.Convert(ctx, pb.ID, txRef)
		if err != nil {
			return nil, err
		}
		return &WebhookResult{TxRef: txRef, Outcome: "converted", AppointmentID: &res.Appointment.ID}, nil
	case "failed", "cancelled":
		if _, err := s.converter.Release(ctx, pb.ID, domain.PendingBookingPaymentFailed); err != nil {
			return nil, err
		}
		return &WebhookResult{TxRef: txRef, Outcome: "released"}, nil
	default:
		// Still pending on the processor side; nothing to settle.
		return &WebhookResult{TxRef: txRef, Outcome: "ignored"}, nil
	}
}

func (s *Service) signatureValid(signature string, body []byte) bool {
	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

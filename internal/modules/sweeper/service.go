package sweeper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"carebook/internal/domain"
	"carebook/internal/modules/booking"
	"carebook/internal/pkg/clock"
	"carebook/internal/repository"
)

// Releaser is the transactional core the sweeper drives. The sweeper itself
// only finds work; every state change goes through the sanctioned paths.
type Releaser interface {
	Release(ctx context.Context, pendingBookingID int64, reason domain.PendingBookingStatus) (*booking.ReleaseResult, error)
	CancelAppointment(ctx context.Context, appointmentID int64, reason string) (*domain.Appointment, error)
}

type Service struct {
	ledger *repository.PendingBookingRepository
	slots  *repository.TimeSlotRepository
	appts  *repository.AppointmentRepository
	core   Releaser
	clk    clock.Clock
	log    *zap.Logger

	batchSize  int
	staleAfter time.Duration
}

func NewService(ledger *repository.PendingBookingRepository, slots *repository.TimeSlotRepository, appts *repository.AppointmentRepository, core Releaser, clk clock.Clock, log *zap.Logger, batchSize int, staleAfter time.Duration) *Service {
	return &Service{
		ledger:     ledger,
		slots:      slots,
		appts:      appts,
		core:       core,
		clk:        clk,
		log:        log,
		batchSize:  batchSize,
		staleAfter: staleAfter,
	}
}

type SweepResult struct {
	PendingBookingsExpired int      `json:"pending_bookings_expired"`
	SlotsReleased          int      `json:"slots_released"`
	Errors                 []string `json:"errors"`
	DurationMs             int64    `json:"duration_ms"`
}

// SweepExpiredLocks reclaims pending bookings past their deadline, then, as a
// second pass, releases locked slots whose deadline passed but have no live
// ledger row (orphans). One item failing never aborts the batch.
func (s *Service) SweepExpiredLocks(ctx context.Context) SweepResult {
	started := time.Now()
	res := SweepResult{Errors: []string{}}

	expired, err := s.ledger.FindExpired(ctx, s.clk.Now(), s.batchSize)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("query expired bookings: %v", err))
	}
	for _, pb := range expired {
		r, err := s.core.Release(ctx, pb.ID, domain.PendingBookingExpired)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("release booking %d: %v", pb.ID, err))
			continue
		}
		// r is nil when the row vanished, and a booking settled between the
		// query and the release comes back as a no-op; neither counts.
		if r == nil || !r.Released {
			continue
		}
		res.PendingBookingsExpired++
		if r.SlotReleased {
			res.SlotsReleased++
		}
	}

	orphans, err := s.slots.FindOrphanedLocked(ctx, s.clk.Now(), s.batchSize)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("query orphaned slots: %v", err))
	}
	for _, slot := range orphans {
		ok, err := s.slots.ReleaseIfLocked(ctx, slot.ID)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("release slot %d: %v", slot.ID, err))
			continue
		}
		if ok {
			res.SlotsReleased++
		}
	}

	res.DurationMs = time.Since(started).Milliseconds()
	s.log.Info("expiry sweep finished",
		zap.Int("pending_bookings_expired", res.PendingBookingsExpired),
		zap.Int("slots_released", res.SlotsReleased),
		zap.Int("errors", len(res.Errors)),
		zap.Int64("duration_ms", res.DurationMs))
	for _, e := range res.Errors {
		s.log.Error("sweep item failed", zap.String("detail", e))
	}
	return res
}

// CancelStaleAppointments is the appointment-level safety net: confirmed
// appointments whose scheduled time is further in the past than the
// configured threshold and were never attended get cancelled, releasing any
// still-linked slot.
func (s *Service) CancelStaleAppointments(ctx context.Context) (int, []string) {
	cutoff := s.clk.Now().Add(-s.staleAfter)
	stale, err := s.appts.FindStaleConfirmed(ctx, cutoff, s.batchSize)
	if err != nil {
		s.log.Error("query stale appointments failed", zap.Error(err))
		return 0, []string{err.Error()}
	}

	cancelled := 0
	var errs []string
	for _, a := range stale {
		if _, err := s.core.CancelAppointment(ctx, a.ID, "not attended"); err != nil {
			errs = append(errs, fmt.Sprintf("cancel appointment %d: %v", a.ID, err))
			continue
		}
		cancelled++
	}

	s.log.Info("stale appointment sweep finished",
		zap.Int("cancelled", cancelled),
		zap.Int("errors", len(errs)))
	return cancelled, errs
}

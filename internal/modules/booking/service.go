package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"carebook/internal/domain"
	"carebook/internal/pkg/clock"
)

// Service is the only sanctioned path for slot state changes. Correctness
// rests on database transactions plus exclusive row locks, not on in-process
// mutexes: multiple server instances may share one database. Lock order is
// fixed repo-wide: PendingBooking row first, then TimeSlot row.
type Service struct {
	db      *gorm.DB
	rooms   RoomProvisioner
	notifs  NotificationSender
	clk     clock.Clock
	log     *zap.Logger
	lockTTL time.Duration
}

func NewService(db *gorm.DB, rooms RoomProvisioner, notifs NotificationSender, clk clock.Clock, log *zap.Logger, lockTTL time.Duration) *Service {
	return &Service{
		db:      db,
		rooms:   rooms,
		notifs:  notifs,
		clk:     clk,
		log:     log,
		lockTTL: lockTTL,
	}
}

// LockSlot reserves a slot for a patient: slot moves available→locked and a
// pending ledger row is written, atomically. Concurrent calls for the same
// slot serialize on the slot's row lock; exactly one wins, the rest get
// ErrSlotUnavailable.
func (s *Service) LockSlot(ctx context.Context, req LockSlotRequest) (*LockResult, error) {
	var out *LockResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.LockSlotTx(tx, req)
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LockSlotTx is the reentrant form: it runs inside a caller-managed
// transaction and neither commits nor rolls back.
func (s *Service) LockSlotTx(tx *gorm.DB, req LockSlotRequest) (*LockResult, error) {
	var slot domain.TimeSlot
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&slot, req.TimeSlotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}

	now := s.clk.Now()
	if !slot.Lockable(now) {
		return nil, ErrSlotUnavailable
	}

	// A live lock means some booking attempt already holds this slot. The
	// same patient retrying (double submit, page reload) gets their existing
	// pending booking back; anyone else is turned away.
	if slot.Status == domain.SlotLocked {
		var existing domain.PendingBooking
		err := tx.Where("time_slot_id = ? AND status IN ?", slot.ID,
			[]string{string(domain.PendingBookingPending), string(domain.PendingBookingPaymentInitiated)}).
			First(&existing).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrSlotUnavailable
			}
			return nil, err
		}
		if existing.PatientID != req.PatientID {
			return nil, ErrSlotUnavailable
		}
		return &LockResult{Slot: &slot, PendingBooking: &existing, ExpiresAt: existing.ExpiresAt}, nil
	}

	var specialty domain.Specialty
	if err := tx.First(&specialty, req.SpecialtyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSpecialtyNotFound
		}
		return nil, err
	}

	expiresAt := now.Add(s.lockTTL)

	// Status-guarded update: the WHERE clause re-checks availability so the
	// read-then-write section stays correct even on engines that ignore the
	// locking clause (SQLite in tests).
	res := tx.Model(&domain.TimeSlot{}).
		Where("id = ? AND status = ?", slot.ID, domain.SlotAvailable).
		Updates(map[string]any{
			"status":       domain.SlotLocked,
			"locked_until": expiresAt,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrSlotUnavailable
	}
	slot.Status = domain.SlotLocked
	slot.LockedUntil = &expiresAt

	pb := domain.PendingBooking{
		TimeSlotID:  slot.ID,
		PatientID:   req.PatientID,
		CaregiverID: slot.CaregiverID,
		SpecialtyID: req.SpecialtyID,
		LocationID:  req.LocationID,
		SessionType: req.SessionType,
		Notes:       req.Notes,
		BookingFee:  specialty.BookingFee,
		SessionFee:  specialty.SessionFee,
		TotalAmount: specialty.BookingFee + specialty.SessionFee,
		Status:      domain.PendingBookingPending,
		ExpiresAt:   expiresAt,
	}
	if err := tx.Create(&pb).Error; err != nil {
		return nil, err
	}

	return &LockResult{Slot: &slot, PendingBooking: &pb, ExpiresAt: expiresAt}, nil
}

// Convert promotes a paid pending booking into a confirmed appointment,
// exactly once. Duplicate webhook deliveries land on the idempotent path and
// get the already-created appointment back. A success arriving after the lock
// was reclaimed is rejected with ErrSlotUnavailable.
func (s *Service) Convert(ctx context.Context, pendingBookingID int64, paymentRef string) (*ConvertResult, error) {
	var out *ConvertResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pb domain.PendingBooking
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&pb, pendingBookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPendingBookingNotFound
			}
			return err
		}

		if pb.Status == domain.PendingBookingConverted {
			if pb.ConvertedToAppointmentID == nil {
				return fmt.Errorf("pending booking %d converted without appointment reference", pb.ID)
			}
			var appt domain.Appointment
			if err := tx.First(&appt, *pb.ConvertedToAppointmentID).Error; err != nil {
				return err
			}
			out = &ConvertResult{Appointment: &appt, PendingBooking: &pb}
			return nil
		}
		if pb.Terminal() {
			// Already released (expiry or failure callback); the slot may be
			// held by someone else by now.
			return ErrSlotUnavailable
		}

		var slot domain.TimeSlot
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&slot, pb.TimeSlotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSlotNotFound
			}
			return err
		}
		if slot.Status == domain.SlotBooked {
			return ErrSlotUnavailable
		}

		scheduledAt, err := slotStart(&slot)
		if err != nil {
			return err
		}

		appt := domain.Appointment{
			PatientID:        pb.PatientID,
			CaregiverID:      pb.CaregiverID,
			SpecialtyID:      pb.SpecialtyID,
			LocationID:       pb.LocationID,
			SessionType:      pb.SessionType,
			ScheduledAt:      scheduledAt,
			Duration:         slot.Duration,
			TotalCost:        pb.TotalAmount,
			Status:           domain.AppointmentConfirmed,
			BookingFeeStatus: domain.FeeCompleted,
			SessionFeeStatus: domain.FeePending,
			Notes:            pb.Notes,
		}
		if err := tx.Create(&appt).Error; err != nil {
			return err
		}

		pbUpdates := map[string]any{
			"status":                      domain.PendingBookingConverted,
			"converted_to_appointment_id": appt.ID,
		}
		if pb.TxRef == nil && paymentRef != "" {
			pbUpdates["tx_ref"] = paymentRef
		}
		res := tx.Model(&domain.PendingBooking{}).
			Where("id = ? AND status IN ?", pb.ID,
				[]string{string(domain.PendingBookingPending), string(domain.PendingBookingPaymentInitiated)}).
			Updates(pbUpdates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost a race with another conversion or a release; force the
			// transaction to roll back the appointment insert.
			return ErrSlotUnavailable
		}
		pb.Status = domain.PendingBookingConverted
		pb.ConvertedToAppointmentID = &appt.ID

		if err := tx.Model(&domain.TimeSlot{}).Where("id = ?", slot.ID).Updates(map[string]any{
			"status":         domain.SlotBooked,
			"is_booked":      true,
			"appointment_id": appt.ID,
			"locked_until":   nil,
		}).Error; err != nil {
			return err
		}

		out = &ConvertResult{Appointment: &appt, PendingBooking: &pb}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterConvert(ctx, out)
	return out, nil
}

// afterConvert runs the slow external calls once the transaction has
// committed, so row locks are never held across network I/O.
func (s *Service) afterConvert(ctx context.Context, res *ConvertResult) {
	appt := res.Appointment
	if appt.SessionType == domain.SessionVirtual && appt.RoomID == "" && s.rooms != nil {
		roomID, hostURL, guestURL, err := s.rooms.ProvisionRoom(ctx, appt.ID, appt.PatientID, appt.CaregiverID)
		if err != nil {
			s.log.Error("teleconference provisioning failed",
				zap.Int64("appointment_id", appt.ID), zap.Error(err))
		} else if err := s.db.WithContext(ctx).Model(&domain.Appointment{}).Where("id = ?", appt.ID).Updates(map[string]any{
			"room_id":        roomID,
			"host_join_url":  hostURL,
			"guest_join_url": guestURL,
		}).Error; err != nil {
			s.log.Error("saving teleconference room failed",
				zap.Int64("appointment_id", appt.ID), zap.Error(err))
		} else {
			appt.RoomID = roomID
			appt.HostJoinURL = hostURL
			appt.GuestJoinURL = guestURL
		}
	}

	if s.notifs != nil {
		if err := s.notifs.NotifyBookingConfirmed(ctx, appt.PatientID, appt.ID); err != nil {
			s.log.Warn("booking confirmed notification failed",
				zap.Int64("appointment_id", appt.ID), zap.Error(err))
		}
	}
}

// Release terminates a pending booking with the given reason and, when the
// slot is still merely locked, returns it to the pool. A slot already booked
// through a conversion is never downgraded: converted is the terminal
// authority. A missing ledger row is a no-op success (already cleaned up).
func (s *Service) Release(ctx context.Context, pendingBookingID int64, reason domain.PendingBookingStatus) (*ReleaseResult, error) {
	if reason != domain.PendingBookingPaymentFailed && reason != domain.PendingBookingExpired {
		return nil, fmt.Errorf("%w: invalid release reason %q", ErrValidation, reason)
	}

	var out *ReleaseResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pb domain.PendingBooking
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&pb, pendingBookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		var slot domain.TimeSlot
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&slot, pb.TimeSlotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSlotNotFound
			}
			return err
		}

		if pb.Terminal() {
			// Converted stays converted, expired stays expired; nothing to do.
			out = &ReleaseResult{PendingBooking: &pb, Slot: &slot}
			return nil
		}

		res := tx.Model(&domain.PendingBooking{}).
			Where("id = ? AND status IN ?", pb.ID,
				[]string{string(domain.PendingBookingPending), string(domain.PendingBookingPaymentInitiated)}).
			Update("status", reason)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSlotUnavailable
		}
		pb.Status = reason

		slotReleased := false
		if slot.Status == domain.SlotLocked {
			if err := tx.Model(&domain.TimeSlot{}).
				Where("id = ? AND status = ?", slot.ID, domain.SlotLocked).
				Updates(map[string]any{
					"status":       domain.SlotAvailable,
					"locked_until": nil,
					"is_booked":    false,
				}).Error; err != nil {
				return err
			}
			slot.Status = domain.SlotAvailable
			slot.LockedUntil = nil
			slot.IsBooked = false
			slotReleased = true
		}

		out = &ReleaseResult{PendingBooking: &pb, Slot: &slot, Released: true, SlotReleased: slotReleased}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out != nil && out.Released && s.notifs != nil {
		var nerr error
		switch reason {
		case domain.PendingBookingExpired:
			nerr = s.notifs.NotifyBookingExpired(ctx, out.PendingBooking.PatientID, out.PendingBooking.ID)
		case domain.PendingBookingPaymentFailed:
			nerr = s.notifs.NotifyPaymentFailed(ctx, out.PendingBooking.PatientID, out.PendingBooking.ID)
		}
		if nerr != nil {
			s.log.Warn("release notification failed",
				zap.Int64("pending_booking_id", out.PendingBooking.ID), zap.Error(nerr))
		}
	}
	return out, nil
}

// CancelAppointment cancels a confirmed appointment and frees a slot still
// linked to it. Used by the stale-appointment safety net; idempotent on an
// already-cancelled appointment.
func (s *Service) CancelAppointment(ctx context.Context, appointmentID int64, reason string) (*domain.Appointment, error) {
	var out *domain.Appointment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var appt domain.Appointment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&appt, appointmentID).Error; err != nil {
			return err
		}
		if appt.Status == domain.AppointmentCancelled {
			out = &appt
			return nil
		}

		now := s.clk.Now()
		if err := tx.Model(&domain.Appointment{}).Where("id = ?", appt.ID).Updates(map[string]any{
			"status":              domain.AppointmentCancelled,
			"cancellation_reason": reason,
			"cancelled_at":        now,
		}).Error; err != nil {
			return err
		}
		appt.Status = domain.AppointmentCancelled
		appt.CancellationReason = reason
		appt.CancelledAt = &now

		if err := tx.Model(&domain.TimeSlot{}).
			Where("appointment_id = ? AND status = ?", appt.ID, domain.SlotBooked).
			Updates(map[string]any{
				"status":         domain.SlotAvailable,
				"is_booked":      false,
				"appointment_id": nil,
				"locked_until":   nil,
			}).Error; err != nil {
			return err
		}

		out = &appt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetPendingBooking serves the status-polling endpoint.
func (s *Service) GetPendingBooking(ctx context.Context, id int64) (*domain.PendingBooking, error) {
	var pb domain.PendingBooking
	if err := s.db.WithContext(ctx).First(&pb, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPendingBookingNotFound
		}
		return nil, err
	}
	return &pb, nil
}

func slotStart(slot *domain.TimeSlot) (time.Time, error) {
	t, err := time.Parse("15:04", slot.StartTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("slot %d has malformed start_time %q: %w", slot.ID, slot.StartTime, err)
	}
	d := slot.Date.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}

package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"carebook/internal/config"
	"carebook/internal/database"
	"carebook/internal/modules/booking"
	"carebook/internal/modules/sweeper"
	"carebook/internal/notification"
	"carebook/internal/pkg/clock"
	"carebook/internal/pkg/logger"
	"carebook/internal/repository"
)

// One-shot sweep for external cron setups that prefer not to rely on the API
// process's in-process scheduler.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zl, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatal(err)
	}
	defer zl.Sync()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("db connect failed", zap.Error(err))
	}

	clk := clock.Real()
	notifs := notification.NewSender(zl)
	bookingService := booking.NewService(db, nil, notifs, clk, zl, cfg.SlotLockTTL)
	sweeperService := sweeper.NewService(
		repository.NewPendingBookingRepository(db),
		repository.NewTimeSlotRepository(db),
		repository.NewAppointmentRepository(db),
		bookingService, clk, zl, cfg.SweepBatchSize, cfg.StaleAfter)

	ctx := context.Background()
	res := sweeperService.SweepExpiredLocks(ctx)
	cancelled, _ := sweeperService.CancelStaleAppointments(ctx)

	zl.Info("sweep run complete",
		zap.Int("pending_bookings_expired", res.PendingBookingsExpired),
		zap.Int("slots_released", res.SlotsReleased),
		zap.Int("stale_appointments_cancelled", cancelled),
		zap.Int("errors", len(res.Errors)))
}

package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"carebook/internal/config"
	"carebook/internal/database"
	"carebook/internal/middleware"
	"carebook/internal/modules/booking"
	"carebook/internal/modules/payment"
	"carebook/internal/modules/slots"
	"carebook/internal/modules/sweeper"
	"carebook/internal/notification"
	"carebook/internal/pkg/clock"
	jwtsvc "carebook/internal/pkg/jwt"
	"carebook/internal/pkg/logger"
	"carebook/internal/repository"
	"carebook/internal/scheduler"
	"carebook/internal/teleconference"
)

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
	if err := database.Migrate(db); err != nil {
		zl.Fatal("db migrate failed", zap.Error(err))
	}

	clk := clock.Real()

	slotRepo := repository.NewTimeSlotRepository(db)
	ledgerRepo := repository.NewPendingBookingRepository(db)
	apptRepo := repository.NewAppointmentRepository(db)

	rooms := teleconference.NewClient(cfg.TeleconfBaseURL, cfg.TeleconfAPIKey)
	notifs := notification.NewSender(zl)

	bookingService := booking.NewService(db, rooms, notifs, clk, zl, cfg.SlotLockTTL)
	slotsService := slots.NewService(slotRepo, clk, cfg.FindSlotsPageSize)
	gateway := payment.NewGateway(cfg.GatewayBaseURL, cfg.GatewaySecretKey)
	paymentService := payment.NewService(ledgerRepo, bookingService, gateway, clk, zl,
		cfg.GatewayWebhookSecret, cfg.GatewayCallbackURL, cfg.GatewayReturnURL)
	sweeperService := sweeper.NewService(ledgerRepo, slotRepo, apptRepo, bookingService, clk, zl,
		cfg.SweepBatchSize, cfg.StaleAfter)

	sched := scheduler.New(zl)
	sched.Add(scheduler.Task{
		Name:  "expiry-sweep",
		Every: cfg.SweepInterval,
		Run:   func(ctx context.Context) { sweeperService.SweepExpiredLocks(ctx) },
	})
	sched.Add(scheduler.Task{
		Name:  "stale-appointments",
		Every: cfg.StaleSweepEvery,
		Run:   func(ctx context.Context) { sweeperService.CancelStaleAppointments(ctx) },
	})
	sched.Start(context.Background())

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTAccessTTL)

	slotsHandler := slots.NewHandler(slotsService)
	bookingHandler := booking.NewHandler(bookingService)
	paymentHandler := payment.NewHandler(paymentService)
	sweeperHandler := sweeper.NewHandler(sweeperService)

	r := gin.Default()

	v1 := r.Group("/api/v1")
	{
		// public: slot browsing and the gateway callback
		slotsHandler.RegisterPublicRoutes(v1)
		paymentHandler.RegisterWebhookRoutes(v1)

		authed := v1.Group("/")
		authed.Use(middleware.Auth(j))
		{
			bookingHandler.RegisterRoutes(authed)
			paymentHandler.RegisterRoutes(authed)

			caregiver := authed.Group("/")
			caregiver.Use(middleware.RequireRole("caregiver"))
			slotsHandler.RegisterCaregiverRoutes(caregiver)

			admin := authed.Group("/")
			admin.Use(middleware.RequireRole("admin"))
			sweeperHandler.RegisterRoutes(admin)
		}
	}

	zl.Info("listening", zap.String("addr", cfg.HTTPAddr))
	if err := r.Run(cfg.HTTPAddr); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

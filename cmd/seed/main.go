package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"carebook/internal/database"
	"carebook/internal/domain"
	"carebook/internal/modules/slots"
	"carebook/internal/pkg/clock"
	"carebook/internal/repository"
)

// Dev seeding: specialties and two weeks of generated slots for a few
// caregivers.
func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "carebook.db"
	}

	db, err := database.Connect(dsn)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := database.Migrate(db); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	log.Println("Cleaning old data...")
	db.Exec("DELETE FROM appointments")
	db.Exec("DELETE FROM pending_bookings")
	db.Exec("DELETE FROM time_slots")
	db.Exec("DELETE FROM specialties")

	log.Println("Creating specialties...")
	specialties := []domain.Specialty{
		{Name: "General Practice", BookingFee: 1000, SessionFee: 4000},
		{Name: "Physiotherapy", BookingFee: 1500, SessionFee: 6000},
		{Name: "Mental Health", BookingFee: 2000, SessionFee: 8000},
	}
	for i := range specialties {
		if err := db.Create(&specialties[i]).Error; err != nil {
			log.Fatal("specialty seed failed:", err)
		}
	}

	log.Println("Generating slots...")
	slotService := slots.NewService(repository.NewTimeSlotRepository(db), clock.Real(), 500)

	weekly := map[string][]slots.AvailabilityWindow{
		"monday":    {{Start: "09:00", End: "13:00"}, {Start: "14:00", End: "17:00"}},
		"tuesday":   {{Start: "09:00", End: "13:00"}},
		"wednesday": {{Start: "09:00", End: "17:00"}},
		"thursday":  {{Start: "10:00", End: "16:00"}},
		"friday":    {{Start: "09:00", End: "12:00"}},
	}

	start := time.Now().UTC()
	end := start.AddDate(0, 0, 14)

	for caregiverID := int64(1); caregiverID <= 3; caregiverID++ {
		res, err := slotService.Generate(context.Background(), slots.GenerateRequest{
			CaregiverID:        caregiverID,
			StartDate:          start.Format("2006-01-02"),
			EndDate:            end.Format("2006-01-02"),
			WeeklyAvailability: weekly,
			SlotDuration:       30,
			HourlyRate:         10000,
		})
		if err != nil {
			log.Fatal("slot generation failed:", err)
		}
		log.Printf("caregiver %d: generated=%d inserted=%d", caregiverID, res.Generated, res.Inserted)
	}

	log.Println("Seed complete.")
}

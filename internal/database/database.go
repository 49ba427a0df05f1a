package database

import (
	"log"
	"strings"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"carebook/internal/domain"
)

func Connect(dsn string) (*gorm.DB, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		log.Println("Connecting to PostgreSQL...")
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	}

	log.Println("Using SQLite for local development:", dsn)

	return gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		&gorm.Config{},
	)
}

// Migrate creates the booking core tables. The indexes behind the sweeper's
// batch query (status+expires_at) and the webhook lookup (tx_ref unique) come
// from the entity tags.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Specialty{},
		&domain.TimeSlot{},
		&domain.PendingBooking{},
		&domain.Appointment{},
	)
}

package db

import (
	"context"
	"log"

	"cinebook/internal/models"

	"github.com/uptrace/bun"
)

// Migrate creates the catalog and booking tables if they are missing.
func Migrate(db *bun.DB) {
	ctx := context.Background()

	tables := []interface{}{
		(*models.Movie)(nil),
		(*models.Show)(nil),
		(*models.Booking)(nil),
	}

	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			log.Fatalf("create table failed: %v", err)
		}
	}

	log.Println("✅ movies, shows and bookings tables ready")
}

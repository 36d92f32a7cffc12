package store

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// Migration 001: core tables
		{
			ID: "001_core_tables",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&User{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&ScheduleDay{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&ScheduleSegment{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("users", "schedule_days", "schedule_segments")
			},
		},

		// Migration 002: append-only logs
		{
			ID: "002_logs",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&EmotionalReading{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&Intervention{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("emotional_readings", "interventions")
			},
		},
	})

	return m.Migrate()
}

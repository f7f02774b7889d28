package db

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"medtransport-dispatch/config"
	"medtransport-dispatch/internal/logging"
	"medtransport-dispatch/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		dialector = postgres.Open(cfg.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newLogger(cfg.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	switch {
	case cfg.Driver == "sqlite":
		// SQLite has a single writer; sharing one connection queues transactions
		// instead of failing them with "database is locked".
		if cfg.MaxOpenConns > 1 {
			logging.Logger.Warnf("database.max_open_conns=%d ignored for sqlite", cfg.MaxOpenConns)
		}
		sqlDB.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.EnableConstraints && cfg.Driver != "sqlite" {
		logging.Logger.Info("Applying status CHECK constraints...")
		if err := applyConstraints(db); err != nil {
			logging.Logger.Warnf("Failed to apply some constraints: %v. Continuing without them.", err)
		}
	}

	logging.Logger.Info("Database initialization complete.")
	return db, nil
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	logging.Logger.Info("Running database migrations...")
	if err := db.AutoMigrate(
		&model.Unit{},
		&model.Incident{},
		&model.TimelineEvent{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

func newLogger(level string) logger.Interface {
	lvl := logger.Warn
	switch level {
	case "silent":
		lvl = logger.Silent
	case "error":
		lvl = logger.Error
	case "info":
		lvl = logger.Info
	}
	return logger.New(logging.Logger, logger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  lvl,
		IgnoreRecordNotFoundError: true,
	})
}

func applyConstraints(db *gorm.DB) error {
	ddls := []string{
		"ALTER TABLE units DROP CONSTRAINT IF EXISTS units_status_valid;",
		"ALTER TABLE units ADD CONSTRAINT units_status_valid CHECK (status IN " +
			"('AVAILABLE','EN_ROUTE','AT_FACILITY','TRANSPORTING','OUT_OF_SERVICE','OFF_DUTY'));",

		"ALTER TABLE incidents DROP CONSTRAINT IF EXISTS incidents_status_valid;",
		"ALTER TABLE incidents ADD CONSTRAINT incidents_status_valid CHECK (status IN " +
			"('PENDING','ASSIGNED','EN_ROUTE','ON_SCENE','TRANSPORTING','COMPLETED','CANCELLED'));",

		// An in-flight unit must point at its incident.
		"ALTER TABLE units DROP CONSTRAINT IF EXISTS units_incident_when_busy;",
		"ALTER TABLE units ADD CONSTRAINT units_incident_when_busy CHECK " +
			"(status <> 'EN_ROUTE' OR current_incident_id IS NOT NULL);",

		"CREATE INDEX IF NOT EXISTS idx_units_org_status ON units (organization_id, status);",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}

package database

import (
	"fmt"
	"time"

	"github.com/carebook/carebook/internal/config"
	"github.com/carebook/carebook/internal/domain/appointment"
	"github.com/carebook/carebook/internal/domain/patient"
	"github.com/carebook/carebook/internal/domain/provider"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: false,
		DisableAutomaticPing:                     false,
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: false,
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	if err := db.Exec("CREATE SCHEMA IF NOT EXISTS scheduling").Error; err != nil {
		return fmt.Errorf("creating schema scheduling: %w", err)
	}

	models := []any{
		&provider.Provider{},
		&provider.ServiceOffering{},
		&provider.WeeklyAvailability{},
		&provider.ScheduleOverride{},
		&patient.Patient{},
		&appointment.Appointment{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	if err := ensureOverlapConstraint(db); err != nil {
		return fmt.Errorf("creating overlap constraint: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

// overlapConstraintDDL is the store-level guarantee that at most one active
// appointment occupies a provider time range. The scheduled columns migrate
// as timestamptz, so the range must be a tstzrange. Violations surface as
// SQLSTATE 23P01 and are mapped to the slot-unavailable error by the
// repository.
const overlapConstraintDDL = `
	ALTER TABLE scheduling.appointments
	ADD CONSTRAINT appointments_no_active_overlap
	EXCLUDE USING gist (
		provider_id WITH =,
		tstzrange(scheduled_start, scheduled_end) WITH &&
	)
	WHERE (status IN ('pending_payment', 'confirmed', 'checked_in', 'in_progress'))
`

func ensureOverlapConstraint(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS btree_gist").Error; err != nil {
		return err
	}

	var exists bool
	err := db.Raw(
		`SELECT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'appointments_no_active_overlap')`,
	).Scan(&exists).Error
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	return db.Exec(overlapConstraintDDL).Error
}

func createIndexes(db *gorm.DB) error {
	indexes := []struct {
		name  string
		query string
	}{
		{
			name:  "idx_appointments_provider_schedule",
			query: `CREATE INDEX IF NOT EXISTS idx_appointments_provider_schedule ON scheduling.appointments (provider_id, scheduled_start, scheduled_end) WHERE status IN ('pending_payment', 'confirmed', 'checked_in', 'in_progress')`,
		},
		{
			name:  "idx_appointments_patient_upcoming",
			query: `CREATE INDEX IF NOT EXISTS idx_appointments_patient_upcoming ON scheduling.appointments (patient_id, scheduled_start)`,
		},
		{
			name:  "idx_weekly_availability_provider_day",
			query: `CREATE INDEX IF NOT EXISTS idx_weekly_availability_provider_day ON scheduling.weekly_availability (provider_id, day_of_week)`,
		},
		{
			name:  "idx_schedule_overrides_provider_range",
			query: `CREATE INDEX IF NOT EXISTS idx_schedule_overrides_provider_range ON scheduling.schedule_overrides (provider_id, starts_at, ends_at)`,
		},
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.query).Error; err != nil {
			return fmt.Errorf("creating index %s: %w", idx.name, err)
		}
	}

	return nil
}

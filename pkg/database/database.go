package database

import (
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/config"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/billing"
	mr "github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/patient"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens the pool. TranslateError is on so unique violations surface
// as gorm.ErrDuplicatedKey, which the repository layer maps to store.ErrConflict.
func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.New(zap.NewStdLog(log.Named("gorm")), gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		PrepareStmt:    true,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: cfg.DSN(),
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

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

	for _, schema := range []string{"clinical", "billing", "auth", "audit"} {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}

	models := []any{
		&domain.User{},
		&domain.AuditLog{},
		&patient.Patient{},
		&appointment.Appointment{},
		&mr.MedicalRecord{},
		&billing.Bill{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	createIndexes(db, log)

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

// createIndexes adds the composite and partial indexes AutoMigrate cannot
// express. Failures are logged and skipped; they only cost query speed.
func createIndexes(db *gorm.DB, log *zap.Logger) {
	indexes := []struct {
		name  string
		query string
	}{
		{
			name:  "idx_appointments_doctor_schedule",
			query: `CREATE INDEX IF NOT EXISTS idx_appointments_doctor_schedule ON clinical.appointments (doctor_id, scheduled_at, status)`,
		},
		{
			name:  "idx_patients_name_trgm",
			query: `CREATE INDEX IF NOT EXISTS idx_patients_name_trgm ON clinical.patients USING gin ((first_name || ' ' || last_name) gin_trgm_ops)`,
		},
		{
			name:  "idx_bills_unpaid",
			query: `CREATE INDEX IF NOT EXISTS idx_bills_unpaid ON billing.bills (patient_id, bill_date) WHERE payment_status IN ('PENDING', 'PARTIAL')`,
		},
		{
			name:  "idx_medical_records_timeline",
			query: `CREATE INDEX IF NOT EXISTS idx_medical_records_timeline ON clinical.medical_records (patient_id, visit_date DESC)`,
		},
	}

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error; err != nil {
		log.Warn("pg_trgm extension unavailable", zap.Error(err))
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.query).Error; err != nil {
			log.Warn("skipping index", zap.String("index", idx.name), zap.Error(err))
		}
	}
}

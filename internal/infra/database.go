package infra

import (
	"fmt"

	"github.com/zolijavos/KGC-3-sub017/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate,
// then applies the idempotent SQL patches GORM cannot express (the partial
// unique index that enforces one active session per location).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates/updates all tables and applies schema patches.
// Also used by integration test setups.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.StockMovement{},
		&model.SequenceCounter{},
		&model.CashRegisterSession{},
		&model.SaleTransaction{},
		&model.SaleItem{},
		&model.SalePayment{},
		&model.PaymentRefund{},
		&model.ZReport{},
		&model.AuditEvent{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot produce.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// At most one active session per (tenant, location): enforced at the
		// DB level so the service-layer guard cannot be raced. A session
		// pending variance approval still holds the register.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_active
		    ON cash_register_sessions (tenant_id, location_id)
		    WHERE status IN ('OPEN', 'SUSPENDED', 'PENDING_APPROVAL')`,
		// Retry cron scans only unrendered reports.
		`CREATE INDEX IF NOT EXISTS idx_zreports_pending_render
		    ON z_reports (created_at)
		    WHERE render_status IN ('pending', 'failed')`,
	}
	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("schema patch: %w", err)
		}
	}
	return nil
}

package infra

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jrrjunior25/pdv-fiscal/internal/model"
)

// NewDatabase opens a GORM connection backed by pgx, runs AutoMigrate and then
// applies the idempotent SQL patches GORM cannot express (partial indexes).
// TranslateError is on so unique violations surface as gorm.ErrDuplicatedKey.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
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
// Shared with integration tests so they get the exact production schema.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Shift{},
		&model.CashMovement{},
		&model.Sale{},
		&model.SaleItem{},
		&model.SalePayment{},
		&model.Commission{},
		&model.FinancialMovement{},
		&model.FiscalConfig{},
		&model.FiscalDocument{},
		&model.PixCharge{},
		&model.StockMovement{},
		&model.InventoryAlert{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot express.
// Every statement is guarded so re-running on a patched schema is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// One OPEN shift per operator. The partial unique index makes the
		// open-shift rule hold under concurrent requests; the second insert
		// fails with a unique violation instead of racing a SELECT.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'uq_shifts_open_user') THEN
		    CREATE UNIQUE INDEX uq_shifts_open_user
		        ON shifts (user_id)
		        WHERE status = 'OPEN';
		  END IF;
		END $$`,
		// Partial index backing the fiscal retry cron query.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_fiscal_documents_pending_retry') THEN
		    CREATE INDEX idx_fiscal_documents_pending_retry
		        ON fiscal_documents (next_retry_at)
		        WHERE status IN ('PENDENTE', 'ERRO') AND next_retry_at IS NOT NULL;
		  END IF;
		END $$`,
		// Open-alert lookups during stock movements.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_inventory_alerts_open') THEN
		    CREATE INDEX idx_inventory_alerts_open
		        ON inventory_alerts (product_id, type)
		        WHERE resolved = false;
		  END IF;
		END $$`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("schema patch: %w", err)
		}
	}
	return nil
}

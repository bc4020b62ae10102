package infra

import (
	"fmt"

	"gestionventas/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens a GORM connection backed by pgx and brings the schema up
// to date. TranslateError is required: repositories rely on
// gorm.ErrDuplicatedKey to detect racing inserts.
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

// RunMigrations creates or updates every table, then applies the idempotent
// SQL patches that AutoMigrate cannot express. Patches are Postgres-only and
// skipped on other dialects (sqlite in tests).
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Producto{},
		&model.Cliente{},
		&model.Proforma{},
		&model.ProformaItem{},
		&model.Venta{},
		&model.VentaItem{},
		&model.Contador{},
		&model.MovimientoStock{},
		&model.Auditoria{},
		&model.Comprobante{},
		&model.Usuario{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL statements. Each one is guarded by an
// existence check so re-running on an already-patched DB is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// Last line of defence for the no-oversell invariant; the service
		// already rejects the write before it reaches the database.
		{"check productos.stock >= 0", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_productos_stock_no_negativo') THEN
    ALTER TABLE productos ADD CONSTRAINT chk_productos_stock_no_negativo CHECK (stock >= 0);
  END IF;
END $$`},
		{"check contadores.seq >= 0", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_contadores_seq_no_negativo') THEN
    ALTER TABLE contadores ADD CONSTRAINT chk_contadores_seq_no_negativo CHECK (seq >= 0);
  END IF;
END $$`},
		// A proforma can be consumed by at most one sale.
		{"unique ventas.proforma_id", `
CREATE UNIQUE INDEX IF NOT EXISTS idx_ventas_proforma_unica
    ON ventas (proforma_id) WHERE proforma_id IS NOT NULL`},
		// partial index for the retry cron query
		{"partial index comprobantes pending retry", `
CREATE INDEX IF NOT EXISTS idx_comprobantes_pending_retry
    ON comprobantes (next_retry_at)
    WHERE estado = 'pendiente' AND next_retry_at IS NOT NULL`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}

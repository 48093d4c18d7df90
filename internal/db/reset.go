package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/crate/testdrive/internal/logger"
)

// Resetter empties tables between tests. It only deletes rows; schemas and
// table structure are left alone, and tables that do not exist are skipped.
type Resetter struct {
	db *gorm.DB
}

// NewResetter creates a resetter working on db
func NewResetter(db *gorm.DB) *Resetter {
	return &Resetter{db: db}
}

// Reset empties every given table. Tables are independent, so a failure on
// one table is recorded and the remaining tables are still reset.
func (r *Resetter) Reset(ctx context.Context, tables []TableRef) error {
	var errs []error
	for _, table := range tables {
		if err := r.resetTable(ctx, table); err != nil {
			errs = append(errs, fmt.Errorf("failed to reset %s: %w", table, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Resetter) resetTable(ctx context.Context, table TableRef) error {
	if err := table.Validate(); err != nil {
		return err
	}

	exists, err := TableExists(ctx, r.db, table)
	if err != nil {
		return err
	}
	if !exists {
		logger.DebugWithFields("skipping reset of missing table", map[string]interface{}{"table": table.String()})
		return nil
	}

	tx := r.db.WithContext(ctx)
	if err := tx.Exec("DELETE FROM " + table.String()).Error; err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if SupportsRefresh(r.db) {
		if err := tx.Exec("REFRESH TABLE " + table.String()).Error; err != nil {
			return fmt.Errorf("refresh: %w", err)
		}
	}
	logger.DebugWithFields("reset table", map[string]interface{}{"table": table.String()})
	return nil
}

// TableExists reports whether table exists. A missing schema counts as a missing table.
func TableExists(ctx context.Context, db *gorm.DB, table TableRef) (bool, error) {
	tx := db.WithContext(ctx)
	var count int64

	switch db.Dialector.Name() {
	case "sqlite":
		// Schemas are attached databases in SQLite.
		if err := tx.Raw("SELECT count(*) FROM pragma_database_list WHERE name = ?", table.Schema).Scan(&count).Error; err != nil {
			return false, fmt.Errorf("failed to look up schema %s: %w", table.Schema, err)
		}
		if count == 0 {
			return false, nil
		}
		query := "SELECT count(*) FROM " + QuoteIdent(table.Schema) + ".sqlite_master WHERE type = 'table' AND name = ?"
		if err := tx.Raw(query, table.Name).Scan(&count).Error; err != nil {
			return false, fmt.Errorf("failed to look up table %s: %w", table, err)
		}
	default:
		query := "SELECT count(*) FROM information_schema.tables WHERE table_schema = ? AND table_name = ?"
		if err := tx.Raw(query, table.Schema, table.Name).Scan(&count).Error; err != nil {
			return false, fmt.Errorf("failed to look up table %s: %w", table, err)
		}
	}
	return count > 0, nil
}

// CountRows returns the number of rows in table
func CountRows(ctx context.Context, db *gorm.DB, table TableRef) (int64, error) {
	var count int64
	if err := db.WithContext(ctx).Raw("SELECT count(*) FROM " + table.String()).Scan(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", table, err)
	}
	return count, nil
}

// Package repos contains table accessors used by the toolkit's subsystems
package repos

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/crate/testdrive/internal/config"
	"github.com/crate/testdrive/internal/db"
	"github.com/crate/testdrive/internal/db/models"
)

const retentionPolicyColumns = "id, strategy, table_schema, table_name, partition_column, retention_period, target_repository_name"

// RetentionPolicyRepository provides access to the retention policy table.
// The table lives in the configured subsystem schema.
type RetentionPolicyRepository struct {
	db    *gorm.DB
	table db.TableRef
}

// NewRetentionPolicyRepository creates a repository bound to the schema from settings
func NewRetentionPolicyRepository(gdb *gorm.DB, settings *config.Settings) (*RetentionPolicyRepository, error) {
	schema, err := db.SchemaFor(settings, models.NamespaceExt)
	if err != nil {
		return nil, err
	}
	return &RetentionPolicyRepository{
		db:    gdb,
		table: db.TableRef{Schema: schema, Name: models.RetentionPolicyTable},
	}, nil
}

// Table returns the fully qualified table the repository writes to
func (r *RetentionPolicyRepository) Table() db.TableRef {
	return r.table
}

// EnsureTable creates the table if it does not exist yet
func (r *RetentionPolicyRepository) EnsureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	strategy TEXT NOT NULL,
	table_schema TEXT,
	table_name TEXT,
	partition_column TEXT,
	retention_period INTEGER,
	target_repository_name TEXT
)`, r.table)
	if err := r.db.WithContext(ctx).Exec(ddl).Error; err != nil {
		return fmt.Errorf("failed to create %s: %w", r.table, err)
	}
	return nil
}

// Create inserts a policy and makes it visible to readers
func (r *RetentionPolicyRepository) Create(ctx context.Context, policy *models.RetentionPolicy) error {
	if err := policy.Validate(); err != nil {
		return fmt.Errorf("invalid retention policy: %w", err)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?)", r.table, retentionPolicyColumns)
	err := r.db.WithContext(ctx).Exec(stmt,
		policy.ID,
		string(policy.Strategy),
		policy.TableSchema,
		policy.TableName,
		policy.PartitionColumn,
		policy.RetentionPeriod,
		policy.TargetRepositoryName,
	).Error
	if err != nil {
		return fmt.Errorf("failed to insert retention policy %s: %w", policy.ID, err)
	}
	return r.refresh(ctx)
}

// List returns all policies ordered by id
func (r *RetentionPolicyRepository) List(ctx context.Context) ([]models.RetentionPolicy, error) {
	var policies []models.RetentionPolicy
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id", retentionPolicyColumns, r.table)
	if err := r.db.WithContext(ctx).Raw(query).Scan(&policies).Error; err != nil {
		return nil, fmt.Errorf("failed to list retention policies: %w", err)
	}
	return policies, nil
}

// Count returns the number of stored policies
func (r *RetentionPolicyRepository) Count(ctx context.Context) (int64, error) {
	return db.CountRows(ctx, r.db, r.table)
}

func (r *RetentionPolicyRepository) refresh(ctx context.Context) error {
	if !db.SupportsRefresh(r.db) {
		return nil
	}
	if err := r.db.WithContext(ctx).Exec("REFRESH TABLE " + r.table.String()).Error; err != nil {
		return fmt.Errorf("failed to refresh %s: %w", r.table, err)
	}
	return nil
}

package test

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/crate/testdrive/internal/db"
)

// NewFileBasedTestDB creates a new file-based SQLite database for testing.
// Each given schema is attached as its own database file so that
// "schema"."table" identifiers resolve the same way they do on CrateDB.
// It returns the database connection and the path to the temporary directory.
func NewFileBasedTestDB(schemas ...string) (*gorm.DB, string, error) {
	tmpDir, err := os.MkdirTemp("", "testdrive_test")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create temporary directory: %w", err)
	}
	gdb, err := OpenFileBasedTestDB(tmpDir, schemas...)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return nil, "", err
	}
	return gdb, tmpDir, nil
}

// OpenFileBasedTestDB opens another connection to a database created by
// NewFileBasedTestDB. Schemas must be given in the same order.
func OpenFileBasedTestDB(dir string, schemas ...string) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(dir, "main.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Attached databases are per connection.
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	for i, schema := range schemas {
		path := filepath.Join(dir, fmt.Sprintf("schema_%d.db", i))
		if err := gdb.Exec("ATTACH DATABASE ? AS "+db.QuoteIdent(schema), path).Error; err != nil {
			_ = db.Close(gdb)
			return nil, fmt.Errorf("failed to attach schema %s: %w", schema, err)
		}
	}
	return gdb, nil
}

// CleanupTestDB closes the database connection and removes the temporary directory.
func CleanupTestDB(gdb *gorm.DB, tmpDir string) {
	if err := db.Close(gdb); err != nil {
		fmt.Printf("Error closing database connection: %v\n", err)
	}
	if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
		fmt.Printf("Error removing temporary directory: %v\n", rmErr)
	}
}

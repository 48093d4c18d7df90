// Package db provides database connectivity and the canvas reset protocol
package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/crate/testdrive/internal/logger"
)

// Database configuration constants
const (
	// DefaultHost is the default database host
	DefaultHost = "localhost"
	// DefaultPort is the default PostgreSQL wire protocol port of CrateDB
	DefaultPort = 5432
	// DefaultUser is the default CrateDB superuser
	DefaultUser = "crate"
	// DefaultDBName is the database name CrateDB reports; it is otherwise ignored
	DefaultDBName = "doc"
)

// Options represents database connection configuration options
type Options struct {
	Host     string
	User     string
	Password string
	DBName   string
	Port     int
	LogLevel gormlogger.LogLevel
}

// DSN renders the options as a libpq style connection string
func (o Options) DSN() string {
	o = setDefaults(o)
	dsn := fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=disable",
		o.Host, o.Port, o.User, o.DBName)
	if o.Password != "" {
		dsn += " password=" + o.Password
	}
	return dsn
}

// New creates a new database connection with the given options
func New(opts Options) (*gorm.DB, error) {
	opts = setDefaults(opts)
	return Open(opts.DSN(), opts.LogLevel)
}

// Open connects to CrateDB through its PostgreSQL wire protocol endpoint.
// The simple protocol is used because CrateDB does not support every
// extended-protocol feature pgx relies on for statement caching.
func Open(dsn string, level gormlogger.LogLevel) (*gorm.DB, error) {
	if level == 0 {
		level = gormlogger.Warn
	}
	newLogger := gormlogger.New(
		logger.GormWriter(),
		gormlogger.Config{
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: newLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Close closes the connection pool behind db. A nil db is ignored.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.Close()
}

// SupportsRefresh reports whether the connected engine needs REFRESH TABLE
// to make written rows visible to subsequent queries. Every postgres-dialect
// connection opened by this package talks to CrateDB.
func SupportsRefresh(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}

func setDefaults(opts Options) Options {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.User == "" {
		opts.User = DefaultUser
	}
	if opts.DBName == "" {
		opts.DBName = DefaultDBName
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.LogLevel == 0 {
		opts.LogLevel = gormlogger.Warn
	}
	return opts
}

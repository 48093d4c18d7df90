// Package constants provides centralized definitions of constants used throughout the application
package constants

// Environment variable names
const (
	// EnvExtSchema is the environment variable naming the schema which holds the
	// toolkit's subsystem tables (retention policies and friends)
	EnvExtSchema = "CRATEDB_EXT_SCHEMA"

	// EnvLogLevel is the environment variable selecting the logrus level
	EnvLogLevel = "LOG_LEVEL"

	// EnvCrateDBImage overrides the container image used for the test service
	EnvCrateDBImage = "TESTDRIVE_CRATEDB_IMAGE"

	// EnvKeepService leaves the test service running after the session ends
	EnvKeepService = "TESTDRIVE_KEEP"
)

// Schema names
const (
	// DefaultExtSchema is the production default for EnvExtSchema
	DefaultExtSchema = "ext"

	// TestdriveExtSchema is the subsystem schema reserved for test sessions
	TestdriveExtSchema = "testdrive-ext"

	// TestdriveDataSchema is the schema holding example and test data
	TestdriveDataSchema = "testdrive-data"

	// TestdriveIOSchema is the schema the I/O adapters (InfluxDB, MongoDB) import into
	TestdriveIOSchema = "testdrive"
)

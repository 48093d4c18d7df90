// Package models declares the tables the toolkit and its example data live in
package models

// Namespace identifies which schema a declared table belongs to.
// The concrete schema name is resolved at runtime from configuration.
type Namespace int

const (
	// NamespaceExt holds subsystem bookkeeping tables, schema from CRATEDB_EXT_SCHEMA
	NamespaceExt Namespace = iota
	// NamespaceData holds example and test data
	NamespaceData
	// NamespaceIO holds tables written by the I/O adapters
	NamespaceIO
)

// String returns the namespace name
func (n Namespace) String() string {
	switch n {
	case NamespaceExt:
		return "ext"
	case NamespaceData:
		return "data"
	case NamespaceIO:
		return "io"
	default:
		return "unknown"
	}
}

// Declaration names a table owned by the toolkit or by its test data
type Declaration struct {
	Namespace Namespace
	Table     string
}

// Table names
const (
	RetentionPolicyTable       = "retention_policy"
	RawMetricsTable            = "raw_metrics"
	SensorReadingsTable        = "sensor_readings"
	TestdriveTable             = "testdrive"
	FoobarTable                = "foobar"
	FoobarUniqueSingleTable    = "foobar_unique_single"
	FoobarUniqueCompositeTable = "foobar_unique_composite"
	DemoTable                  = "demo"
)

var declarations = []Declaration{
	{Namespace: NamespaceExt, Table: RetentionPolicyTable},
	{Namespace: NamespaceData, Table: RawMetricsTable},
	{Namespace: NamespaceData, Table: SensorReadingsTable},
	{Namespace: NamespaceData, Table: TestdriveTable},
	{Namespace: NamespaceData, Table: FoobarTable},
	{Namespace: NamespaceData, Table: FoobarUniqueSingleTable},
	{Namespace: NamespaceData, Table: FoobarUniqueCompositeTable},
	// written by the InfluxDB and MongoDB importers
	{Namespace: NamespaceIO, Table: DemoTable},
}

// Declarations returns every declared table, in declaration order
func Declarations() []Declaration {
	out := make([]Declaration, len(declarations))
	copy(out, declarations)
	return out
}

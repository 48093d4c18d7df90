// Package test provides the fixtures for integration tests against a live
// CrateDB and the cloud control-plane API.
//
// A Session is scoped to a test binary: Run starts it from TestMain, pins
// CRATEDB_EXT_SCHEMA to testdrive-ext, starts one CrateDB container and
// tears everything down when the tests are done or the process is
// interrupted. Each test then leases the shared service through Canvas,
// which empties the reset tables first, so no test sees rows written by
// another.
//
// Example Usage:
//
//	func TestMain(m *testing.M) {
//	    os.Exit(test.Run(m))
//	}
//
//	func TestImport(t *testing.T) {
//	    svc := test.Canvas(t)
//	    sim := test.CloudCluster(t)
//
//	    // svc.DB() talks to CrateDB, sim.URL() to the simulated cloud API
//	}
package test

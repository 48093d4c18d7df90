// Package mocks provides in-process stand-ins for the external systems a
// test session talks to.
//
//   - CloudSimulator: the cloud control-plane API, served over httptest, with
//     canned responses per route and a call count state machine
//   - MockService: a database service with function fields, for exercising
//     session wiring without Docker
//
// Example usage:
//
//	sim := mocks.NewCloudSimulator()
//	defer sim.Close()
//	if err := sim.RegisterCluster(mocks.DefaultClusterID); err != nil {
//		t.Fatal(err)
//	}
//	client := sim.Client() // requests for console.cratedb.cloud reach sim
package mocks

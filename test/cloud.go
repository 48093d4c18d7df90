package test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crate/testdrive/test/mocks"
)

// CloudCluster starts a cloud API simulator for one test, with the import
// job lifecycle of mocks.DefaultClusterID registered. It is closed when the
// test ends.
func CloudCluster(t testing.TB) *mocks.CloudSimulator {
	t.Helper()
	sim := mocks.NewCloudSimulator()
	t.Cleanup(sim.Close)
	require.NoError(t, sim.RegisterCluster(mocks.DefaultClusterID), "failed to register cluster stubs")
	return sim
}

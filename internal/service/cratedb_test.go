package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/crate/testdrive/internal/constants"
	"github.com/crate/testdrive/internal/db"
	"github.com/crate/testdrive/internal/service"
	"github.com/crate/testdrive/test"
)

// fakeDocker records calls and returns configured responses.
// Embeds client.APIClient so unused methods panic if called.
type fakeDocker struct {
	client.APIClient

	createErrs []error
	startErr   error
	stopErr    error
	inspectErr error
	// hostPorts assigns host ports to published container ports; unset ports get 40000+n
	hostPorts map[int]int

	createdCfg  *container.Config
	createdHost *container.HostConfig
	calls       []string
}

func (f *fakeDocker) ContainerCreate(_ context.Context, cfg *container.Config, hostCfg *container.HostConfig, _ *network.NetworkingConfig, _ *ocispec.Platform, _ string) (container.CreateResponse, error) {
	f.calls = append(f.calls, "Create")
	f.createdCfg = cfg
	f.createdHost = hostCfg
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		return container.CreateResponse{}, err
	}
	return container.CreateResponse{ID: "abc"}, nil
}

func (f *fakeDocker) ImagePull(_ context.Context, _ string, _ image.PullOptions) (io.ReadCloser, error) {
	f.calls = append(f.calls, "Pull")
	return io.NopCloser(strings.NewReader(`{"status":"done"}`)), nil
}

func (f *fakeDocker) ContainerStart(_ context.Context, _ string, _ container.StartOptions) error {
	f.calls = append(f.calls, "Start")
	return f.startErr
}

func (f *fakeDocker) ContainerInspect(_ context.Context, _ string) (container.InspectResponse, error) {
	f.calls = append(f.calls, "Inspect")
	if f.inspectErr != nil {
		return container.InspectResponse{}, f.inspectErr
	}
	ports := nat.PortMap{}
	n := 0
	for port, bindings := range f.createdHost.PortBindings {
		hostPort := bindings[0].HostPort
		if hostPort == "" {
			if hp, ok := f.hostPorts[port.Int()]; ok {
				hostPort = strconv.Itoa(hp)
			} else {
				hostPort = strconv.Itoa(40000 + n)
				n++
			}
		}
		ports[port] = []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: hostPort}}
	}
	return container.InspectResponse{
		ContainerJSONBase: &container.ContainerJSONBase{
			State: &container.State{Running: true},
		},
		NetworkSettings: &container.NetworkSettings{
			NetworkSettingsBase: container.NetworkSettingsBase{Ports: ports},
		},
	}, nil
}

func (f *fakeDocker) ContainerStop(_ context.Context, _ string, _ container.StopOptions) error {
	f.calls = append(f.calls, "Stop")
	return f.stopErr
}

func (f *fakeDocker) ContainerRemove(_ context.Context, _ string, _ container.RemoveOptions) error {
	f.calls = append(f.calls, "Remove")
	return nil
}

func noopReady(_ context.Context, _ string) error { return nil }

// sqliteOpener hands out a SQLite database standing in for CrateDB.
func sqliteOpener(t *testing.T) service.Opener {
	return func(_ string) (*gorm.DB, error) {
		gdb, dir, err := test.NewFileBasedTestDB(constants.TestdriveDataSchema)
		if err != nil {
			return nil, err
		}
		t.Cleanup(func() { test.CleanupTestDB(gdb, dir) })
		return gdb, nil
	}
}

func newTestService(t *testing.T, docker *fakeDocker, opts ...service.Option) *service.CrateDB {
	t.Helper()
	base := []service.Option{
		service.WithContainerName("testdrive-cratedb-test"),
		service.WithReadinessCheck(noopReady),
		service.WithOpener(sqliteOpener(t)),
	}
	return service.NewCrateDB(docker, append(base, opts...)...)
}

func TestStartupOptionsArgs(t *testing.T) {
	args := service.StartupOptions{"http.port": "44209", "discovery.type": "single-node"}.Args()
	assert.Equal(t, []string{"-Cdiscovery.type=single-node", "-Chttp.port=44209"}, args)
}

func TestPortMappingContainerPorts(t *testing.T) {
	assert.Equal(t, []int{4200, 5432, 44209}, service.PortMapping{44209: 0, 5432: 0, 4200: 1}.ContainerPorts())
}

func TestEndpoint(t *testing.T) {
	e := service.Endpoint{Host: "127.0.0.1", PostgresPort: 40001, HTTPPort: 40002}
	assert.Equal(t, "host=127.0.0.1 port=40001 user=crate dbname=doc sslmode=disable", e.DSN())
	assert.Equal(t, "http://127.0.0.1:40002/", e.HTTPURL())
	assert.Empty(t, service.Endpoint{Host: "127.0.0.1"}.HTTPURL())
}

func TestStart_CreatesContainer(t *testing.T) {
	docker := &fakeDocker{hostPorts: map[int]int{5432: 45432, 44209: 54209}}
	svc := newTestService(t, docker,
		service.WithPortMapping(service.PortMapping{44209: 0}),
		service.WithStartupOptions(service.StartupOptions{"http.port": "44209"}),
	)

	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { _ = svc.Stop(context.Background()) })

	want := []string{"Create", "Start", "Inspect"}
	assert.True(t, slices.Equal(docker.calls, want), "calls = %v, want %v", docker.calls, want)

	assert.Equal(t, []string{"crate", "-Cdiscovery.type=single-node", "-Chttp.port=44209"}, docker.createdCfg.Cmd)
	assert.Contains(t, docker.createdCfg.ExposedPorts, nat.Port("5432/tcp"))
	assert.Contains(t, docker.createdCfg.ExposedPorts, nat.Port("44209/tcp"))
	assert.Equal(t, "", docker.createdHost.PortBindings[nat.Port("44209/tcp")][0].HostPort)

	endpoint := svc.Endpoint()
	assert.Equal(t, 45432, endpoint.PostgresPort)
	assert.Equal(t, 54209, endpoint.HTTPPort)
	assert.Equal(t, "http://127.0.0.1:54209/", endpoint.HTTPURL())
	assert.NotNil(t, svc.DB())
}

func TestStart_FixedHostPort(t *testing.T) {
	docker := &fakeDocker{}
	svc := newTestService(t, docker, service.WithPortMapping(service.PortMapping{4200: 14200}))

	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { _ = svc.Stop(context.Background()) })

	assert.Equal(t, "14200", docker.createdHost.PortBindings[nat.Port("4200/tcp")][0].HostPort)
	assert.Equal(t, 14200, svc.Endpoint().HTTPPort)
}

func TestStart_IsOncePerService(t *testing.T) {
	docker := &fakeDocker{}
	svc := newTestService(t, docker)

	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { _ = svc.Stop(context.Background()) })
	first := svc.Endpoint()

	require.NoError(t, svc.Start(context.Background()))
	assert.Equal(t, []string{"Create", "Start", "Inspect"}, docker.calls)
	assert.Equal(t, first, svc.Endpoint(), "endpoint must stay stable")
}

func TestStart_PullsMissingImage(t *testing.T) {
	docker := &fakeDocker{createErrs: []error{errdefs.ErrNotFound}}
	svc := newTestService(t, docker)

	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { _ = svc.Stop(context.Background()) })

	assert.Equal(t, []string{"Create", "Pull", "Create", "Start", "Inspect"}, docker.calls)
}

func TestStart_Failures(t *testing.T) {
	tests := []struct {
		name   string
		docker *fakeDocker
		opts   []service.Option
	}{
		{
			name:   "create fails",
			docker: &fakeDocker{createErrs: []error{errors.New("port is already allocated")}},
		},
		{
			name:   "start fails",
			docker: &fakeDocker{startErr: errors.New("container exited")},
		},
		{
			name:   "inspect fails",
			docker: &fakeDocker{inspectErr: errors.New("daemon unreachable")},
		},
		{
			name:   "never ready",
			docker: &fakeDocker{},
			opts: []service.Option{service.WithReadinessCheck(func(_ context.Context, _ string) error {
				return errors.New("connection refused")
			})},
		},
		{
			name:   "open fails",
			docker: &fakeDocker{},
			opts: []service.Option{service.WithOpener(func(_ string) (*gorm.DB, error) {
				return nil, errors.New("bad dsn")
			})},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, tt.docker, tt.opts...)

			require.Error(t, svc.Start(context.Background()))
			assert.ErrorIs(t, svc.Reset(context.Background(), nil), service.ErrNotStarted)

			// the half-started container is still cleaned up
			require.NoError(t, svc.Stop(context.Background()))
			assert.Contains(t, tt.docker.calls, "Remove")
		})
	}
}

func TestStop(t *testing.T) {
	t.Run("never started", func(t *testing.T) {
		docker := &fakeDocker{}
		svc := newTestService(t, docker)

		require.NoError(t, svc.Stop(context.Background()))
		assert.Empty(t, docker.calls)
	})

	t.Run("start then stop", func(t *testing.T) {
		docker := &fakeDocker{}
		svc := newTestService(t, docker)

		require.NoError(t, svc.Start(context.Background()))
		require.NoError(t, svc.Stop(context.Background()))
		assert.Equal(t, []string{"Create", "Start", "Inspect", "Stop", "Remove"}, docker.calls)
		assert.Nil(t, svc.DB())
	})

	t.Run("second stop is a no-op", func(t *testing.T) {
		docker := &fakeDocker{}
		svc := newTestService(t, docker)

		require.NoError(t, svc.Start(context.Background()))
		require.NoError(t, svc.Stop(context.Background()))
		require.NoError(t, svc.Stop(context.Background()))
		assert.Equal(t, []string{"Create", "Start", "Inspect", "Stop", "Remove"}, docker.calls)
	})

	t.Run("container already gone", func(t *testing.T) {
		docker := &fakeDocker{stopErr: errdefs.ErrNotFound}
		svc := newTestService(t, docker)

		require.NoError(t, svc.Start(context.Background()))
		require.NoError(t, svc.Stop(context.Background()))
	})

	t.Run("stop failure is reported", func(t *testing.T) {
		docker := &fakeDocker{stopErr: errors.New("daemon unreachable")}
		svc := newTestService(t, docker)

		require.NoError(t, svc.Start(context.Background()))
		assert.Error(t, svc.Stop(context.Background()))
	})

	t.Run("keep leaves the container", func(t *testing.T) {
		docker := &fakeDocker{}
		svc := newTestService(t, docker, service.WithKeep(true))

		require.NoError(t, svc.Start(context.Background()))
		require.NoError(t, svc.Stop(context.Background()))
		assert.NotContains(t, docker.calls, "Stop")
		assert.NotContains(t, docker.calls, "Remove")
	})
}

func TestReset_DelegatesToResetProtocol(t *testing.T) {
	ctx := context.Background()
	docker := &fakeDocker{}
	svc := newTestService(t, docker)
	require.NoError(t, svc.Start(ctx))
	t.Cleanup(func() { _ = svc.Stop(ctx) })

	table := db.TableRef{Schema: constants.TestdriveDataSchema, Name: "foobar"}
	require.NoError(t, svc.DB().Exec(fmt.Sprintf("CREATE TABLE %s (id INTEGER)", table)).Error)
	require.NoError(t, svc.DB().Exec(fmt.Sprintf("INSERT INTO %s (id) VALUES (1), (2)", table)).Error)

	missing := db.TableRef{Schema: constants.TestdriveDataSchema, Name: "never_created"}
	require.NoError(t, svc.Reset(ctx, []db.TableRef{table, missing}))
	require.NoError(t, svc.Reset(ctx, []db.TableRef{table, missing}))

	n, err := db.CountRows(ctx, svc.DB(), table)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStartStopWithEmptyResetList(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, &fakeDocker{})

	require.NoError(t, svc.Start(ctx))
	require.NoError(t, svc.Reset(ctx, nil))
	require.NoError(t, svc.Stop(ctx))
}

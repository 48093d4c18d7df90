package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crate/testdrive/internal/db"
	"github.com/crate/testdrive/internal/logger"
)

const (
	// DefaultImage is the CrateDB image used when none is configured
	DefaultImage = "crate/crate:5.10"
	// DefaultStartTimeout bounds how long Start waits for readiness
	DefaultStartTimeout = 2 * time.Minute

	// PostgresPort is the container port of CrateDB's PostgreSQL wire protocol listener
	PostgresPort = 5432
	// DefaultHTTPPort is the container port of CrateDB's HTTP listener unless http.port says otherwise
	DefaultHTTPPort = 4200

	httpPortSetting = "http.port"
	localhost       = "127.0.0.1"
)

// Opener connects to a started service
type Opener func(dsn string) (*gorm.DB, error)

func defaultOpener(dsn string) (*gorm.DB, error) {
	return db.Open(dsn, 0)
}

// CrateDB runs a single-node CrateDB as a Docker container.
type CrateDB struct {
	docker       client.APIClient
	ownsDocker   bool
	image        string
	name         string
	ports        PortMapping
	settings     StartupOptions
	readyCheck   ReadinessCheck
	opener       Opener
	startTimeout time.Duration
	keep         bool

	mu       sync.Mutex
	created  bool
	started  bool
	endpoint Endpoint
	gdb      *gorm.DB
}

var _ Handle = (*CrateDB)(nil)

// Option configures a CrateDB service
type Option func(*CrateDB)

// WithImage overrides the container image
func WithImage(img string) Option {
	return func(c *CrateDB) {
		if img != "" {
			c.image = img
		}
	}
}

// WithContainerName overrides the generated container name
func WithContainerName(name string) Option {
	return func(c *CrateDB) { c.name = name }
}

// WithPortMapping publishes container ports on the host
func WithPortMapping(ports PortMapping) Option {
	return func(c *CrateDB) {
		for containerPort, hostPort := range ports {
			c.ports[containerPort] = hostPort
		}
	}
}

// WithStartupOptions sets CrateDB settings passed on the command line
func WithStartupOptions(settings StartupOptions) Option {
	return func(c *CrateDB) {
		for k, v := range settings {
			c.settings[k] = v
		}
	}
}

// WithReadinessCheck overrides the default readiness check (WaitReady)
func WithReadinessCheck(fn ReadinessCheck) Option {
	return func(c *CrateDB) { c.readyCheck = fn }
}

// WithOpener overrides how the database connection is opened after readiness
func WithOpener(fn Opener) Option {
	return func(c *CrateDB) { c.opener = fn }
}

// WithStartTimeout bounds how long Start waits for the service
func WithStartTimeout(d time.Duration) Option {
	return func(c *CrateDB) { c.startTimeout = d }
}

// WithKeep leaves the container running when the service is stopped
func WithKeep(keep bool) Option {
	return func(c *CrateDB) { c.keep = keep }
}

// NewCrateDB creates a Docker-based CrateDB service. Nothing is started until Start.
func NewCrateDB(docker client.APIClient, opts ...Option) *CrateDB {
	c := &CrateDB{
		docker:       docker,
		image:        DefaultImage,
		name:         "testdrive-cratedb-" + uuid.NewString()[:8],
		ports:        PortMapping{PostgresPort: 0},
		settings:     StartupOptions{"discovery.type": "single-node"},
		readyCheck:   WaitReady,
		opener:       defaultOpener,
		startTimeout: DefaultStartTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewCrateDBFromEnv creates a CrateDB service with a Docker client from the
// environment. The client is closed by Stop.
func NewCrateDBFromEnv(opts ...Option) (*CrateDB, error) {
	docker, err := NewDockerClient()
	if err != nil {
		return nil, err
	}
	c := NewCrateDB(docker, opts...)
	c.ownsDocker = true
	return c, nil
}

// Name returns the container name
func (c *CrateDB) Name() string {
	return c.name
}

// Start creates and starts the container, resolves its host ports and waits
// until the PostgreSQL endpoint accepts connections. Calling Start on a
// started service does nothing.
func (c *CrateDB) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.startTimeout)
	defer cancel()

	containerCfg, hostCfg := c.containerConfig()
	logger.InfoWithFields("starting CrateDB", map[string]interface{}{
		"container": c.name,
		"image":     c.image,
		"args":      containerCfg.Cmd,
	})

	// Marked before creation so that Stop cleans up a half-started container.
	c.created = true
	if err := createAndStart(ctx, c.docker, c.name, c.image, containerCfg, hostCfg, nil); err != nil {
		return fmt.Errorf("failed to start CrateDB container %s: %w", c.name, err)
	}

	endpoint, err := c.resolveEndpoint(ctx)
	if err != nil {
		return err
	}

	if err := c.readyCheck(ctx, endpoint.DSN()); err != nil {
		return fmt.Errorf("CrateDB container %s did not become ready: %w", c.name, err)
	}

	gdb, err := c.opener(endpoint.DSN())
	if err != nil {
		return err
	}

	c.endpoint = endpoint
	c.gdb = gdb
	c.started = true
	logger.InfoWithFields("CrateDB ready", map[string]interface{}{
		"container": c.name,
		"dsn":       endpoint.DSN(),
		"http":      endpoint.HTTPURL(),
	})
	return nil
}

// Reset empties the given tables on the running service
func (c *CrateDB) Reset(ctx context.Context, tables []db.TableRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return ErrNotStarted
	}
	return db.NewResetter(c.gdb).Reset(ctx, tables)
}

// Stop closes the connection and removes the container. It is safe to call
// after a failed Start and more than once.
func (c *CrateDB) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.gdb != nil {
		if err := db.Close(c.gdb); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database connection: %w", err))
		}
		c.gdb = nil
	}

	if c.created {
		if c.keep {
			logger.WarnWithFields("leaving CrateDB running", map[string]interface{}{"container": c.name})
		} else if err := stopAndRemove(ctx, c.docker, c.name); err != nil {
			errs = append(errs, err)
		} else {
			logger.InfoWithFields("CrateDB stopped", map[string]interface{}{"container": c.name})
		}
		c.created = false
	}
	c.started = false

	if c.ownsDocker {
		if closer, ok := c.docker.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close docker client: %w", err))
			}
		}
		c.ownsDocker = false
	}
	return errors.Join(errs...)
}

// DB returns the connection to the running service, nil before Start
func (c *CrateDB) DB() *gorm.DB {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gdb
}

// Endpoint returns the resolved host endpoint, zero before Start
func (c *CrateDB) Endpoint() Endpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoint
}

func (c *CrateDB) httpContainerPort() int {
	if raw, ok := c.settings[httpPortSetting]; ok {
		if port, err := strconv.Atoi(raw); err == nil {
			return port
		}
	}
	return DefaultHTTPPort
}

func (c *CrateDB) containerConfig() (*container.Config, *container.HostConfig) {
	exposed := make(nat.PortSet, len(c.ports))
	bindings := make(nat.PortMap, len(c.ports))
	for _, containerPort := range c.ports.ContainerPorts() {
		port := natPort(containerPort)
		exposed[port] = struct{}{}

		hostPort := ""
		if hp := c.ports[containerPort]; hp != 0 {
			hostPort = strconv.Itoa(hp)
		}
		bindings[port] = []nat.PortBinding{{HostIP: localhost, HostPort: hostPort}}
	}

	containerCfg := &container.Config{
		Image:        c.image,
		Cmd:          append([]string{"crate"}, c.settings.Args()...),
		Env:          []string{"CRATE_HEAP_SIZE=1g"},
		ExposedPorts: exposed,
		Labels:       map[string]string{"org.testdrive.service": "cratedb"},
	}
	hostCfg := &container.HostConfig{
		PortBindings: bindings,
	}
	return containerCfg, hostCfg
}

func (c *CrateDB) resolveEndpoint(ctx context.Context) (Endpoint, error) {
	info, err := c.docker.ContainerInspect(ctx, c.name)
	if err != nil {
		return Endpoint{}, fmt.Errorf("inspect CrateDB container %s: %w", c.name, err)
	}
	if info.NetworkSettings == nil {
		return Endpoint{}, fmt.Errorf("CrateDB container %s has no network settings", c.name)
	}

	endpoint := Endpoint{Host: localhost, Ports: make(map[int]int, len(c.ports))}
	for _, containerPort := range c.ports.ContainerPorts() {
		bindings := info.NetworkSettings.Ports[natPort(containerPort)]
		if len(bindings) == 0 {
			return Endpoint{}, fmt.Errorf("container port %d of %s is not published", containerPort, c.name)
		}
		hostPort, err := strconv.Atoi(bindings[0].HostPort)
		if err != nil {
			return Endpoint{}, fmt.Errorf("container port %d of %s: invalid host port %q", containerPort, c.name, bindings[0].HostPort)
		}
		endpoint.Ports[containerPort] = hostPort
	}

	endpoint.PostgresPort = endpoint.Ports[PostgresPort]
	endpoint.HTTPPort = endpoint.Ports[c.httpContainerPort()]
	return endpoint, nil
}

func natPort(port int) nat.Port {
	return nat.Port(fmt.Sprintf("%d/tcp", port))
}

// Package service manages the database service instance shared by a test session.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"

	"gorm.io/gorm"

	"github.com/crate/testdrive/internal/db"
)

// ErrNotStarted is returned by operations which need a running service
var ErrNotStarted = errors.New("service not started")

// Service is the lifecycle contract of a database service instance
type Service interface {
	// Start launches the service and blocks until it accepts connections
	Start(ctx context.Context) error
	// Reset empties the given tables, tolerating tables which do not exist
	Reset(ctx context.Context, tables []db.TableRef) error
	// Stop terminates the service and releases its host resources
	Stop(ctx context.Context) error
}

// Handle is a running service as seen by tests
type Handle interface {
	Service
	DB() *gorm.DB
	Endpoint() Endpoint
}

// PortMapping maps container ports to host ports. A host port of 0 lets the
// engine pick any free port; the pick is resolved once at start and stays
// fixed for the life of the service.
type PortMapping map[int]int

// ContainerPorts returns the mapped container ports in ascending order
func (m PortMapping) ContainerPorts() []int {
	ports := make([]int, 0, len(m))
	for p := range m {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	return ports
}

// StartupOptions are settings passed verbatim to the service at launch
type StartupOptions map[string]string

// Args renders the options as CrateDB -C<key>=<value> arguments, sorted by key
func (o StartupOptions) Args() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, len(keys))
	for _, k := range keys {
		args = append(args, fmt.Sprintf("-C%s=%s", k, o[k]))
	}
	return args
}

// Endpoint is where a started service can be reached from the host
type Endpoint struct {
	Host         string
	PostgresPort int
	HTTPPort     int
	// Ports holds the resolved host port of every published container port
	Ports map[int]int
}

// DSN returns the PostgreSQL wire protocol connection string
func (e Endpoint) DSN() string {
	return db.Options{Host: e.Host, Port: e.PostgresPort}.DSN()
}

// HTTPURL returns the base URL of the HTTP endpoint, or "" if it is not published
func (e Endpoint) HTTPURL() string {
	if e.HTTPPort == 0 {
		return ""
	}
	return "http://" + net.JoinHostPort(e.Host, strconv.Itoa(e.HTTPPort)) + "/"
}

package test

import (
	"strconv"
	"time"

	"github.com/crate/testdrive/internal/constants"
	"github.com/crate/testdrive/internal/db"
	"github.com/crate/testdrive/internal/service"
)

// DefaultTestTimeout bounds the canvas reset done for each test
const DefaultTestTimeout = 30 * time.Second

// DefaultSessionTimeout bounds session start, which may include an image pull
const DefaultSessionTimeout = 5 * time.Minute

// DefaultHTTPPort is the CrateDB HTTP port inside the session container. It is
// published on any free host port.
const DefaultHTTPPort = 44209

// DefaultEnv returns the environment pinned for a session
func DefaultEnv() map[string]string {
	return map[string]string{
		constants.EnvExtSchema: constants.TestdriveExtSchema,
	}
}

// DefaultPortMapping returns the ports published by the session container
func DefaultPortMapping() service.PortMapping {
	return service.PortMapping{DefaultHTTPPort: 0}
}

// DefaultStartupOptions returns the settings the session container starts with
func DefaultStartupOptions() service.StartupOptions {
	return service.StartupOptions{"http.port": strconv.Itoa(DefaultHTTPPort)}
}

// Option configures a Session.
type Option func(*Session)

// WithService runs the session against the given service instead of a
// Docker-managed CrateDB.
func WithService(svc service.Handle) Option {
	return func(s *Session) {
		s.svc = svc
	}
}

// WithResetTables replaces the tables emptied before each test. By default
// they are derived from the table catalog and the pinned settings.
func WithResetTables(tables ...db.TableRef) Option {
	return func(s *Session) {
		s.resetTables = append([]db.TableRef{}, tables...)
	}
}

// WithEnv pins an additional environment variable for the session.
func WithEnv(key, value string) Option {
	return func(s *Session) {
		s.env[key] = value
	}
}

// WithTimeout returns an option that sets the session start timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Session) {
		s.timeout = timeout
	}
}

// WithServiceOptions passes options to the Docker-managed CrateDB.
func WithServiceOptions(opts ...service.Option) Option {
	return func(s *Session) {
		s.serviceOpts = append(s.serviceOpts, opts...)
	}
}

// WithCleanupFunc returns an option that adds a cleanup function to be
// called when the session is closed. Cleanups run in reverse order.
func WithCleanupFunc(cleanup func()) Option {
	return func(s *Session) {
		if cleanup != nil {
			s.cleanups = append(s.cleanups, cleanup)
		}
	}
}

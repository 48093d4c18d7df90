package test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	rootconfig "github.com/crate/testdrive/config"
	"github.com/crate/testdrive/internal/config"
	"github.com/crate/testdrive/internal/constants"
	"github.com/crate/testdrive/internal/db"
	"github.com/crate/testdrive/internal/logger"
	"github.com/crate/testdrive/internal/service"
)

const stopTimeout = time.Minute

// current is the session started by Run
var current atomic.Pointer[Session]

// Session owns the database service shared by every test of a package.
// Tests lease it through Canvas, which empties the reset tables first.
type Session struct {
	svc         service.Handle
	serviceOpts []service.Option
	resetTables []db.TableRef
	env         map[string]string
	timeout     time.Duration
	cleanups    []func()

	guard   *config.Guard
	started atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

// NewSession creates a session. Nothing happens until Start.
func NewSession(opts ...Option) *Session {
	s := &Session{
		env:     DefaultEnv(),
		timeout: DefaultSessionTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start pins the environment, starts the service and empties the reset
// tables. The environment is pinned before the service starts.
func (s *Session) Start(ctx context.Context) error {
	if s.started.Load() {
		return nil
	}

	guard, err := config.ApplyGuard(s.env)
	if err != nil {
		return fmt.Errorf("failed to isolate environment: %w", err)
	}
	s.guard = guard

	if s.resetTables == nil {
		tables, err := db.DefaultCatalog(guard.Settings())
		if err != nil {
			return fmt.Errorf("failed to resolve reset tables: %w", err)
		}
		s.resetTables = tables
	}

	if s.svc == nil {
		svc, err := s.newCrateDB()
		if err != nil {
			return err
		}
		s.svc = svc
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start database service: %w", err)
	}
	if err := s.svc.Reset(ctx, s.resetTables); err != nil {
		return fmt.Errorf("failed initial reset: %w", err)
	}

	s.started.Store(true)
	logger.InfoWithFields("test session started", map[string]interface{}{
		"ext_schema":   guard.Settings().ExtSchema,
		"reset_tables": len(s.resetTables),
	})
	return nil
}

func (s *Session) newCrateDB() (*service.CrateDB, error) {
	opts := []service.Option{
		service.WithImage(rootconfig.GetEnv(constants.EnvCrateDBImage, service.DefaultImage)),
		service.WithPortMapping(DefaultPortMapping()),
		service.WithStartupOptions(DefaultStartupOptions()),
		service.WithKeep(rootconfig.GetEnv(constants.EnvKeepService, "") != ""),
		service.WithStartTimeout(s.timeout),
	}
	svc, err := service.NewCrateDBFromEnv(append(opts, s.serviceOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create database service: %w", err)
	}
	return svc, nil
}

// Close stops the service, runs the cleanup functions and restores the
// environment. Only the first call does anything.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.svc != nil {
			ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			if err := s.svc.Stop(ctx); err != nil {
				errs = append(errs, fmt.Errorf("failed to stop database service: %w", err))
			}
			cancel()
		}
		for i := len(s.cleanups) - 1; i >= 0; i-- {
			s.cleanups[i]()
		}
		if s.guard != nil {
			if err := s.guard.Restore(); err != nil {
				errs = append(errs, fmt.Errorf("failed to restore environment: %w", err))
			}
		}
		s.started.Store(false)
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// Service returns the session's service, nil before Start
func (s *Session) Service() service.Handle {
	return s.svc
}

// Settings returns the settings seen by the code under test, nil before Start
func (s *Session) Settings() *config.Settings {
	if s.guard == nil {
		return nil
	}
	return s.guard.Settings()
}

// ResetTables returns the tables emptied before each test
func (s *Session) ResetTables() []db.TableRef {
	return append([]db.TableRef(nil), s.resetTables...)
}

// Canvas empties the reset tables and returns the service. A failed reset
// fails t only; the next Canvas call resets again.
func (s *Session) Canvas(t testing.TB) service.Handle {
	t.Helper()
	require.True(t, s.started.Load(), "test session not started")

	ctx, cancel := context.WithTimeout(context.Background(), DefaultTestTimeout)
	defer cancel()
	require.NoError(t, s.svc.Reset(ctx, s.resetTables), "failed to reset canvas")
	return s.svc
}

// Current returns the session started by Run, or nil
func Current() *Session {
	return current.Load()
}

// Canvas leases the session started by Run. See Session.Canvas.
func Canvas(t testing.TB) service.Handle {
	t.Helper()
	s := Current()
	require.NotNil(t, s, "no test session; call test.Run from TestMain")
	return s.Canvas(t)
}

// Run starts a session, runs the tests and closes the session. It is meant
// for TestMain:
//
//	func TestMain(m *testing.M) {
//		os.Exit(test.Run(m))
//	}
//
// A session that fails to start makes Run return 1 before any test runs.
// SIGINT and SIGTERM close the session before the process exits.
func Run(m *testing.M, opts ...Option) int {
	logger.InitializeAndConfigure()

	s := NewSession(opts...)
	if err := s.Start(context.Background()); err != nil {
		logger.Errorf("test session failed to start: %v", err)
		if cerr := s.Close(); cerr != nil {
			logger.Errorf("test session teardown: %v", cerr)
		}
		return 1
	}
	current.Store(s)
	defer current.Store(nil)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigs:
			logger.Warnf("received %s, closing test session", sig)
			if err := s.Close(); err != nil {
				logger.Errorf("test session teardown: %v", err)
			}
			os.Exit(1)
		case <-done:
		}
	}()

	code := m.Run()

	signal.Stop(sigs)
	close(done)
	if err := s.Close(); err != nil {
		logger.Errorf("test session teardown: %v", err)
		if code == 0 {
			code = 1
		}
	}
	return code
}

package mocks

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/crate/testdrive/internal/db"
	"github.com/crate/testdrive/internal/service"
)

// MockService implements service.Handle with configurable behavior.
// Unset functions succeed; Reset falls back to the reset protocol on DB.
type MockService struct {
	StartFunc func(ctx context.Context) error
	ResetFunc func(ctx context.Context, tables []db.TableRef) error
	StopFunc  func(ctx context.Context) error

	Database *gorm.DB
	Addr     service.Endpoint

	mu         sync.Mutex
	StartCalls int
	ResetCalls [][]db.TableRef
	StopCalls  int
}

var _ service.Handle = (*MockService)(nil)

// NewMockService creates a MockService backed by gdb
func NewMockService(gdb *gorm.DB) *MockService {
	return &MockService{
		Database: gdb,
		Addr:     service.Endpoint{Host: "127.0.0.1", PostgresPort: 5432, HTTPPort: 44209},
	}
}

// Start records the call and runs StartFunc
func (m *MockService) Start(ctx context.Context) error {
	m.mu.Lock()
	m.StartCalls++
	m.mu.Unlock()
	if m.StartFunc != nil {
		return m.StartFunc(ctx)
	}
	return nil
}

// Reset records the call and runs ResetFunc
func (m *MockService) Reset(ctx context.Context, tables []db.TableRef) error {
	m.mu.Lock()
	m.ResetCalls = append(m.ResetCalls, append([]db.TableRef(nil), tables...))
	m.mu.Unlock()
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, tables)
	}
	if m.Database == nil {
		return nil
	}
	return db.NewResetter(m.Database).Reset(ctx, tables)
}

// Stop records the call and runs StopFunc
func (m *MockService) Stop(ctx context.Context) error {
	m.mu.Lock()
	m.StopCalls++
	m.mu.Unlock()
	if m.StopFunc != nil {
		return m.StopFunc(ctx)
	}
	return nil
}

// DB returns the configured database
func (m *MockService) DB() *gorm.DB {
	return m.Database
}

// Endpoint returns the configured endpoint
func (m *MockService) Endpoint() service.Endpoint {
	return m.Addr
}

// Counts returns the number of Start, Reset and Stop calls so far
func (m *MockService) Counts() (starts, resets, stops int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.StartCalls, len(m.ResetCalls), m.StopCalls
}

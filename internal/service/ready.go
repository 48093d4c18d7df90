package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ReadinessCheck blocks until the service at dsn accepts connections or ctx ends.
type ReadinessCheck func(ctx context.Context, dsn string) error

const (
	readyAttemptTimeout = 2 * time.Second
	readyPollInterval   = 500 * time.Millisecond
)

// WaitReady polls the PostgreSQL wire endpoint until a connection succeeds.
func WaitReady(ctx context.Context, dsn string) error {
	for {
		attemptCtx, cancel := context.WithTimeout(ctx, readyAttemptTimeout)
		conn, err := pgx.Connect(attemptCtx, dsn)
		cancel()
		if err == nil {
			_ = conn.Close(context.Background())
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for database at %s: %w (last error: %v)", dsn, ctx.Err(), err)
		case <-time.After(readyPollInterval):
		}
	}
}

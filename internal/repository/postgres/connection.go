package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// ConnectOptions controls the connect-with-retry loop and pool sizing.
type ConnectOptions struct {
	Attempts     int
	Backoff      time.Duration
	MaxOpenConns int
	MaxIdleConns int
}

// Connect opens and pings PostgreSQL, retrying while the database comes up.
func Connect(ctx context.Context, logger *slog.Logger, databaseURL string, opts ConnectOptions) (*sql.DB, error) {
	if opts.Attempts <= 0 {
		opts.Attempts = 30
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 2 * time.Second
	}

	var err error
	for i := 0; i < opts.Attempts; i++ {
		var db *sql.DB
		db, err = sql.Open("postgres", databaseURL)
		if err == nil {
			if opts.MaxOpenConns > 0 {
				db.SetMaxOpenConns(opts.MaxOpenConns)
			}
			if opts.MaxIdleConns > 0 {
				db.SetMaxIdleConns(opts.MaxIdleConns)
			}
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = db.PingContext(pingCtx)
			cancel()
			if err == nil {
				logger.Info("connected to postgres")
				return db, nil
			}
			_ = db.Close()
		}

		logger.Warn("postgres not ready, retrying", "attempt", i+1, "backoff", opts.Backoff, "err", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.Backoff):
		}
	}
	return nil, fmt.Errorf("could not connect to database after %d attempts: %w", opts.Attempts, err)
}

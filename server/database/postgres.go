package database

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/ctolnik/work-eye/server/activity"
	"github.com/ctolnik/work-eye/zapctx"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	slowWrite = 100 * time.Millisecond
	slowRead  = 200 * time.Millisecond

	// SQLSTATE query_canceled, raised when statement_timeout fires.
	codeQueryCanceled = "57014"
)

// Options configures the Postgres pool.
type Options struct {
	URL              string
	MaxConns         int32
	MinConns         int32
	StatementTimeout time.Duration
}

// Store is the Postgres implementation of the ingest and reporting stores.
// Each write is one statement; concurrent snapshots for the same row are
// serialized by Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, opts Options) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Postgres URL: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	if opts.StatementTimeout > 0 {
		cfg.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(opts.StatementTimeout.Milliseconds(), 10)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", classify(err))
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping Postgres: %w", classify(err))
	}
	return &Store{pool: pool}, nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Ping(ctx context.Context) error {
	return classify(s.pool.Ping(ctx))
}

func (s *Store) Close() {
	s.pool.Close()
}

// classify marks connectivity failures and statement timeouts as
// activity.ErrStoreUnavailable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, activity.ErrStoreUnavailable) {
		return err
	}
	var connErr *pgconn.ConnectError
	var netErr net.Error
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr) && pgErr.Code == codeQueryCanceled,
		errors.As(err, &connErr),
		errors.As(err, &netErr),
		pgconn.Timeout(err),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", activity.ErrStoreUnavailable, err)
	}
	return err
}

// observe classifies err and logs failed or slow statements.
func observe(ctx context.Context, op, table string, start time.Time, err error) error {
	duration := time.Since(start)
	if err != nil {
		err = classify(err)
		zapctx.Error(ctx, "Postgres query failed",
			zap.Error(err),
			zap.String("op", op),
			zap.String("table", table),
			zap.Duration("duration", duration),
		)
		return err
	}

	threshold := slowWrite
	if op == "select" {
		threshold = slowRead
	}
	if duration > threshold {
		zapctx.Warn(ctx, "Slow query detected",
			zap.String("op", op),
			zap.String("table", table),
			zap.Duration("duration", duration),
		)
	}
	return nil
}

func dateParam(t time.Time) string {
	return t.Format("2006-01-02")
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

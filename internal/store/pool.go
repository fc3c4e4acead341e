// Package store provides pooled PostgreSQL access for orgtrace: a
// bounded pgx pool with connectivity retry, schema management, and
// error classification shared by every layer above it.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Config holds connection settings for the store.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	MinConns int32
	MaxConns int32
}

// DSN renders the config as a postgres:// URL.
func (c Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.Database == "" {
		c.Database = "temporal_org"
	}
	if c.MinConns == 0 {
		c.MinConns = 1
	}
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}
	return c
}

// Querier is the minimal query surface shared by the pool, an open
// transaction, and the Store itself. Repositories accept a Querier so
// the same code runs inside and outside transactions.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// retryBackoff is the pause before the single retry of a round-trip
// that failed with a connectivity error.
const retryBackoff = 250 * time.Millisecond

// Store wraps a pgx pool. Its Querier methods retry a round-trip once
// when the failure is connectivity-shaped, then report ErrUnavailable.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

var _ Querier = (*Store)(nil)

// Open connects a bounded pool and verifies it with a ping.
func Open(ctx context.Context, cfg Config, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	pc, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: parse dsn: %v", ErrInvalidArgument, err)
	}
	pc.MinConns = cfg.MinConns
	pc.MaxConns = cfg.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}

	log.Debug("store connected",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.Int32("max_conns", cfg.MaxConns))

	return &Store{pool: pool, log: log}, nil
}

// Pool exposes the underlying pool for callers that manage their own
// retry (transactions, the database/sql adapter).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Begin opens a transaction. Transactions are not retried; a
// connectivity failure mid-transaction surfaces as ErrUnavailable and
// the caller rolls back.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, s.classify(err)
	}
	return tx, nil
}

func (s *Store) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if isConnectivity(err) {
		s.log.Warn("query failed, retrying once", zap.Error(err))
		if sleepCtx(ctx, retryBackoff) != nil {
			return nil, ctx.Err()
		}
		rows, err = s.pool.Query(ctx, sql, args...)
	}
	if err != nil {
		return nil, s.classify(err)
	}
	return rows, nil
}

func (s *Store) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if isConnectivity(err) {
		s.log.Warn("exec failed, retrying once", zap.Error(err))
		if sleepCtx(ctx, retryBackoff) != nil {
			return pgconn.CommandTag{}, ctx.Err()
		}
		tag, err = s.pool.Exec(ctx, sql, args...)
	}
	if err != nil {
		return pgconn.CommandTag{}, s.classify(err)
	}
	return tag, nil
}

// QueryRow defers errors to Scan, so the retry happens there: the
// returned row re-issues the query once if Scan fails on connectivity.
func (s *Store) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return &retryRow{s: s, ctx: ctx, sql: sql, args: args}
}

type retryRow struct {
	s    *Store
	ctx  context.Context
	sql  string
	args []any
}

func (r *retryRow) Scan(dest ...any) error {
	err := r.s.pool.QueryRow(r.ctx, r.sql, r.args...).Scan(dest...)
	if isConnectivity(err) {
		r.s.log.Warn("query row failed, retrying once", zap.Error(err))
		if sleepCtx(r.ctx, retryBackoff) != nil {
			return r.ctx.Err()
		}
		err = r.s.pool.QueryRow(r.ctx, r.sql, r.args...).Scan(dest...)
	}
	if err != nil {
		return r.s.classify(err)
	}
	return nil
}

// classify maps driver errors onto the store's error kinds. pgx.ErrNoRows
// passes through untouched so repositories can translate it per query.
func (s *Store) classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if isConnectivity(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

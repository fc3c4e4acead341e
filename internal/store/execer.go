package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Execer is the minimal surface the schema manager needs: statement
// execution plus a transactional scope. Two adapters are provided so
// the CLI (database/sql via lib/pq) and the runtime (pgxpool) share the
// same DDL code.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) error
	// Tx runs fn with a transaction-backed Execer, committing on nil
	// and rolling back on error.
	Tx(ctx context.Context, fn func(Execer) error) error
}

// SQLExecer adapts a *sql.DB.
type SQLExecer struct {
	DB *sql.DB
}

func (e SQLExecer) ExecContext(ctx context.Context, query string, args ...any) error {
	_, err := e.DB.ExecContext(ctx, query, args...)
	return err
}

func (e SQLExecer) Tx(ctx context.Context, fn func(Execer) error) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(sqlTxExecer{tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type sqlTxExecer struct {
	tx *sql.Tx
}

func (e sqlTxExecer) ExecContext(ctx context.Context, query string, args ...any) error {
	_, err := e.tx.ExecContext(ctx, query, args...)
	return err
}

// Nested Tx reuses the open transaction.
func (e sqlTxExecer) Tx(ctx context.Context, fn func(Execer) error) error {
	return fn(e)
}

// PoolExecer adapts a *pgxpool.Pool.
type PoolExecer struct {
	Pool *pgxpool.Pool
}

func (e PoolExecer) ExecContext(ctx context.Context, query string, args ...any) error {
	_, err := e.Pool.Exec(ctx, query, args...)
	return err
}

func (e PoolExecer) Tx(ctx context.Context, fn func(Execer) error) error {
	tx, err := e.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(pgxTxExecer{tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type pgxTxExecer struct {
	tx pgx.Tx
}

func (e pgxTxExecer) ExecContext(ctx context.Context, query string, args ...any) error {
	_, err := e.tx.Exec(ctx, query, args...)
	return err
}

func (e pgxTxExecer) Tx(ctx context.Context, fn func(Execer) error) error {
	return fn(e)
}

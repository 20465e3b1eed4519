// internal/database/store.go
package database

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/pokerbets/internal/store"
)

//go:embed schema.sql
var schema string

// PostgresStore implements store.Store on a pgx pool. Writers lock the rows
// they read with SELECT ... FOR UPDATE.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the ledger tables if they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(&pgTx{ctx: ctx, tx: tx})
	})
}

func (s *PostgresStore) View(ctx context.Context, fn func(tx store.Tx) error) error {
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	return pgx.BeginTxFunc(ctx, s.pool, opts, func(tx pgx.Tx) error {
		return fn(&pgTx{ctx: ctx, tx: tx, readOnly: true})
	})
}

// Close is a no-op; the pool belongs to whoever opened it.
func (s *PostgresStore) Close() error { return nil }

type pgTx struct {
	ctx      context.Context
	tx       pgx.Tx
	readOnly bool
}

func (t *pgTx) lockClause() string {
	if t.readOnly {
		return ""
	}
	return " FOR UPDATE"
}

func (t *pgTx) writable() error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	return nil
}

// uniqueViolation maps a primary-key or unique conflict to store.ErrExists.
func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return store.ErrExists
	}
	return err
}

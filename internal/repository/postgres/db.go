package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
	}
}

// maxTxAttempts bounds how often a transaction that lost a serialization
// race is replayed.
const maxTxAttempts = 3

// RunTx runs fn in a transaction, serializable unless opts says otherwise.
// Serialization failures and deadlocks replay fn from the start; fn must
// therefore only touch the database through tx.
func (s *Store) RunTx(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx DB) error,
) error {
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable, AccessMode: pgx.ReadWrite}
	if opts != nil {
		txOpts = *opts
	}

	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.runOnce(ctx, txOpts, fn)
		if err == nil || !IsRetryable(err) || ctx.Err() != nil {
			return err
		}
	}

	return err
}

func (s *Store) runOnce(ctx context.Context, txOpts pgx.TxOptions, fn func(ctx context.Context, tx DB) error) error {
	tx, err := s.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return translateDBErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", translateDBErr(err))
	}

	return nil
}

func (s *Store) Catalog() *CatalogRepo          { return &CatalogRepo{pool: s.pool} }
func (s *Store) Runs() *RunRepo                 { return &RunRepo{pool: s.pool} }
func (s *Store) Reservations() *ReservationRepo { return &ReservationRepo{pool: s.pool} }
func (s *Store) Payments() *PaymentRepo         { return &PaymentRepo{pool: s.pool} }
func (s *Store) Query() *QueryRepo              { return &QueryRepo{pool: s.pool} }

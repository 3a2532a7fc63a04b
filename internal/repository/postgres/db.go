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

func (s *Store) RunTx(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx DB) error,
) error {
	txOpts := pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	}

	if opts != nil {
		txOpts.IsoLevel = opts.IsoLevel
		txOpts.AccessMode = opts.AccessMode
		txOpts.DeferrableMode = opts.DeferrableMode
	}

	tx, err := s.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return err
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

func (s *Store) Journal() *JournalRepo        { return &JournalRepo{pool: s.pool, store: s} }
func (s *Store) Projections() *ProjectionRepo { return &ProjectionRepo{pool: s.pool} }

// EnsureSchema creates the journal and projection tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const op = "postgres.Store.EnsureSchema"

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ledger_txs (
			seq           BIGSERIAL PRIMARY KEY,
			hash          TEXT NOT NULL UNIQUE,
			tx_type       TEXT NOT NULL,
			from_addr     TEXT NOT NULL,
			value         BIGINT NOT NULL DEFAULT 0,
			payload       JSONB,
			status        TEXT NOT NULL,
			error_kind    TEXT,
			result        JSONB,
			submitted_at  TIMESTAMPTZ NOT NULL,
			applied_at    TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			event_id         BIGINT PRIMARY KEY,
			organizer        TEXT NOT NULL,
			name             TEXT NOT NULL,
			description      TEXT NOT NULL,
			venue            TEXT NOT NULL,
			event_date       TIMESTAMPTZ NOT NULL,
			ticket_price     BIGINT NOT NULL,
			max_tickets      BIGINT NOT NULL,
			tickets_sold     BIGINT NOT NULL,
			tickets_refunded BIGINT NOT NULL,
			refund_deadline  TIMESTAMPTZ NOT NULL,
			status           TEXT NOT NULL,
			funds_withdrawn  BOOLEAN NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tickets (
			ticket_id      BIGINT PRIMARY KEY,
			event_id       BIGINT NOT NULL REFERENCES events(event_id),
			owner          TEXT NOT NULL,
			purchase_price BIGINT NOT NULL,
			status         TEXT NOT NULL,
			purchased_at   TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS tickets_owner_idx ON tickets(owner)`,
		`CREATE INDEX IF NOT EXISTS ledger_txs_status_idx ON ledger_txs(status)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tixledger/tixledger/internal/domain"
)

// JournalRepo persists the transaction journal: every submitted transaction
// is appended pending, then finalized confirmed/failed together with the
// event/ticket projections it touched, in one database transaction.
type JournalRepo struct {
	pool  *pgxpool.Pool
	store *Store
	db    DB
}

func (r *JournalRepo) With(db DB) *JournalRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *JournalRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Append inserts the transaction with status pending and assigns its
// journal sequence number.
func (r *JournalRepo) Append(ctx context.Context, tx *domain.Transaction) error {
	const op = "postgres.JournalRepo.Append"

	err := r.handle().QueryRow(ctx,
		`INSERT INTO ledger_txs(hash, tx_type, from_addr, value, payload, status, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING seq`,
		tx.Hash, string(tx.Type), tx.From.String(), int64(tx.Value),
		[]byte(tx.Payload), string(tx.Status), tx.SubmittedAt,
	).Scan(&tx.Seq)
	if err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return nil
}

// Finalize records the terminal status of an applied transaction and upserts
// the projections it touched, atomically.
func (r *JournalRepo) Finalize(
	ctx context.Context,
	tx *domain.Transaction,
	events []domain.Event,
	tickets []domain.Ticket,
) error {
	const op = "postgres.JournalRepo.Finalize"

	err := r.store.RunTx(ctx, nil, func(ctx context.Context, db DB) error {
		tag, err := db.Exec(ctx,
			`UPDATE ledger_txs
			    SET status = $2, error_kind = NULLIF($3, ''), result = $4, applied_at = $5
			  WHERE hash = $1`,
			tx.Hash, string(tx.Status), tx.ErrorKind, []byte(tx.Result), tx.AppliedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("unknown transaction %s", tx.Hash)
		}

		proj := r.store.Projections().With(db)
		for i := range events {
			if err := proj.UpsertEvent(ctx, &events[i]); err != nil {
				return err
			}
		}
		if err := proj.UpsertTickets(ctx, tickets); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return nil
}

// Get returns the transaction with the given hash.
func (r *JournalRepo) Get(ctx context.Context, hash string) (*domain.Transaction, error) {
	const op = "postgres.JournalRepo.Get"

	row := r.handle().QueryRow(ctx,
		`SELECT seq, hash, tx_type, from_addr, value, payload,
		        status, COALESCE(error_kind, ''), result, submitted_at, applied_at
		   FROM ledger_txs
		  WHERE hash = $1`,
		hash,
	)

	tx, err := scanTx(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return tx, nil
}

// ReplayConfirmed streams every confirmed transaction in journal order.
// Used at boot to rebuild ledger state.
func (r *JournalRepo) ReplayConfirmed(
	ctx context.Context,
	fn func(tx *domain.Transaction) error,
) error {
	const op = "postgres.JournalRepo.ReplayConfirmed"

	rows, err := r.handle().Query(ctx,
		`SELECT seq, hash, tx_type, from_addr, value, payload,
		        status, COALESCE(error_kind, ''), result, submitted_at, applied_at
		   FROM ledger_txs
		  WHERE status = $1
		  ORDER BY seq ASC`,
		string(domain.TxConfirmed),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	defer rows.Close()

	for rows.Next() {
		tx, err := scanTx(rows)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := fn(tx); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTx(row rowScanner) (*domain.Transaction, error) {
	var (
		tx       domain.Transaction
		txType   string
		fromAddr string
		value    int64
		status   string
		payload  []byte
		result   []byte
	)

	if err := row.Scan(
		&tx.Seq, &tx.Hash, &txType, &fromAddr, &value, &payload,
		&status, &tx.ErrorKind, &result, &tx.SubmittedAt, &tx.AppliedAt,
	); err != nil {
		return nil, err
	}

	from, err := domain.ParseAddress(fromAddr)
	if err != nil {
		return nil, err
	}

	tx.Type = domain.TxType(txType)
	tx.From = from
	tx.Value = domain.Amount(value)
	tx.Status = domain.TxStatus(status)
	tx.Payload = payload
	tx.Result = result

	return &tx, nil
}

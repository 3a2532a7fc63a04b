// Package memory provides an in-process journal for tests and ephemeral
// deployments. It mirrors the Postgres journal's contract; projections are
// accepted and discarded.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/tixledger/tixledger/internal/domain"
	"github.com/tixledger/tixledger/internal/repository"
)

type Journal struct {
	mu     sync.RWMutex
	seq    int64
	byHash map[string]*domain.Transaction
	order  []string
}

func NewJournal() *Journal {
	return &Journal{byHash: make(map[string]*domain.Transaction)}
}

func (j *Journal) Append(ctx context.Context, tx *domain.Transaction) error {
	const op = "memory.Journal.Append"

	j.mu.Lock()
	defer j.mu.Unlock()

	if _, ok := j.byHash[tx.Hash]; ok {
		return fmt.Errorf("%s: %w", op, repository.ErrConflict)
	}

	j.seq++
	tx.Seq = j.seq

	cp := *tx
	j.byHash[tx.Hash] = &cp
	j.order = append(j.order, tx.Hash)

	return nil
}

func (j *Journal) Finalize(
	ctx context.Context,
	tx *domain.Transaction,
	events []domain.Event,
	tickets []domain.Ticket,
) error {
	const op = "memory.Journal.Finalize"

	j.mu.Lock()
	defer j.mu.Unlock()

	stored, ok := j.byHash[tx.Hash]
	if !ok {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	stored.Status = tx.Status
	stored.ErrorKind = tx.ErrorKind
	stored.Result = tx.Result
	stored.AppliedAt = tx.AppliedAt

	return nil
}

func (j *Journal) Get(ctx context.Context, hash string) (*domain.Transaction, error) {
	const op = "memory.Journal.Get"

	j.mu.RLock()
	defer j.mu.RUnlock()

	tx, ok := j.byHash[hash]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	cp := *tx
	return &cp, nil
}

// All returns copies of every journaled transaction in seq order.
func (j *Journal) All() []*domain.Transaction {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]*domain.Transaction, 0, len(j.order))
	for _, hash := range j.order {
		cp := *j.byHash[hash]
		out = append(out, &cp)
	}

	return out
}

func (j *Journal) ReplayConfirmed(
	ctx context.Context,
	fn func(tx *domain.Transaction) error,
) error {
	const op = "memory.Journal.ReplayConfirmed"

	j.mu.RLock()
	txs := make([]*domain.Transaction, 0, len(j.order))
	for _, hash := range j.order {
		if tx := j.byHash[hash]; tx.Status == domain.TxConfirmed {
			cp := *tx
			txs = append(txs, &cp)
		}
	}
	j.mu.RUnlock()

	for _, tx := range txs {
		if err := fn(tx); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

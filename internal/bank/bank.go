// Package bank is the value-transfer boundary of the ledger. The ledger
// mutates its own state first and calls the bank last, so a failed transfer
// can roll the whole operation back without ever exposing partial state.
package bank

import (
	"errors"
	"sync"

	"github.com/tixledger/tixledger/internal/domain"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrTransferFailed    = errors.New("transfer failed")
)

// Bank moves value between account addresses. Implementations must treat
// every call as fallible; the ledger relies on the error to decide whether
// to commit or roll back the surrounding operation.
type Bank interface {
	// Credit adds amount to the account. Returns ErrTransferFailed when the
	// recipient cannot accept the value.
	Credit(to domain.Address, amount domain.Amount) error

	// Debit removes amount from the account. Returns ErrInsufficientFunds
	// when the balance does not cover it.
	Debit(from domain.Address, amount domain.Amount) error

	// Balance reports the current balance of the account.
	Balance(of domain.Address) domain.Amount
}

// MemoryBank is an in-process Bank backed by a map of account balances.
type MemoryBank struct {
	mu       sync.RWMutex
	balances map[domain.Address]domain.Amount
}

func NewMemoryBank() *MemoryBank {
	return &MemoryBank{balances: make(map[domain.Address]domain.Amount)}
}

func (b *MemoryBank) Credit(to domain.Address, amount domain.Amount) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.balances[to] += amount
	return nil
}

func (b *MemoryBank) Debit(from domain.Address, amount domain.Amount) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.balances[from] < amount {
		return ErrInsufficientFunds
	}

	b.balances[from] -= amount
	return nil
}

func (b *MemoryBank) Balance(of domain.Address) domain.Amount {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.balances[of]
}

package bank_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tixledger/tixledger/internal/bank"
	"github.com/tixledger/tixledger/internal/domain"
)

var acct = domain.MustParseAddress("0x00000000000000000000000000000000000000aa")

func TestMemoryBank_CreditDebit(t *testing.T) {
	b := bank.NewMemoryBank()

	assert.Zero(t, b.Balance(acct))

	require.NoError(t, b.Credit(acct, 100))
	assert.Equal(t, domain.Amount(100), b.Balance(acct))

	require.NoError(t, b.Debit(acct, 60))
	assert.Equal(t, domain.Amount(40), b.Balance(acct))

	err := b.Debit(acct, 41)
	assert.ErrorIs(t, err, bank.ErrInsufficientFunds)
	assert.Equal(t, domain.Amount(40), b.Balance(acct), "failed debit must not move funds")
}

func TestMemoryBank_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	b := bank.NewMemoryBank()
	require.NoError(t, b.Credit(acct, 50))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Debit(acct, 1)
		}()
	}
	wg.Wait()

	assert.Zero(t, b.Balance(acct))
}

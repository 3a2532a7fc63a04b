package submit_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tixledger/tixledger/internal/bank"
	"github.com/tixledger/tixledger/internal/domain"
	"github.com/tixledger/tixledger/internal/ledger"
	"github.com/tixledger/tixledger/internal/repository/memory"
	"github.com/tixledger/tixledger/internal/service/submit"
)

var (
	admin     = domain.MustParseAddress("0x00000000000000000000000000000000000000ad")
	organizer = domain.MustParseAddress("0x0000000000000000000000000000000000000001")
	alice     = domain.MustParseAddress("0x0000000000000000000000000000000000000002")
)

type fixture struct {
	ledger  *ledger.Ledger
	bank    *bank.MemoryBank
	journal *memory.Journal
	svc     *submit.Service
}

func newFixture(t *testing.T, journal *memory.Journal) *fixture {
	t.Helper()

	b := bank.NewMemoryBank()
	l := ledger.New(b, ledger.Config{Admin: admin})
	svc := submit.New(l, journal, nil, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), submit.Config{QueueSize: 16})

	return &fixture{ledger: l, bank: b, journal: journal, svc: svc}
}

func (f *fixture) start(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() { _ = f.svc.Run(ctx) }()
}

// awaitTerminal polls the journal until the transaction leaves pending.
func (f *fixture) awaitTerminal(t *testing.T, hash string) *domain.Transaction {
	t.Helper()

	var got *domain.Transaction
	require.Eventually(t, func() bool {
		tx, err := f.svc.GetTransaction(context.Background(), hash)
		if err != nil || tx.Status == domain.TxPending {
			return false
		}
		got = tx
		return true
	}, 2*time.Second, 5*time.Millisecond)

	return got
}

func createParams() domain.CreateEventParams {
	return domain.CreateEventParams{
		Name:           "GopherCon",
		Description:    "A conference",
		Venue:          "Berlin",
		Date:           time.Now().Add(48 * time.Hour),
		TicketPrice:    100,
		MaxTickets:     10,
		RefundDeadline: time.Now().Add(24 * time.Hour),
	}
}

func TestSubmit_PendingThenConfirmed(t *testing.T) {
	f := newFixture(t, memory.NewJournal())
	f.start(t)

	tx, err := f.svc.Submit(context.Background(), domain.TxDeposit, alice, 500, nil, "")
	require.NoError(t, err)

	assert.Equal(t, domain.TxPending, tx.Status)
	assert.Regexp(t, `^0x[0-9a-f]{64}$`, tx.Hash)

	final := f.awaitTerminal(t, tx.Hash)
	assert.Equal(t, domain.TxConfirmed, final.Status)
	assert.Empty(t, final.ErrorKind)
	require.NotNil(t, final.AppliedAt)

	assert.Equal(t, domain.Amount(500), f.bank.Balance(alice))
}

func TestSubmit_FailedTransactionRecordsKind(t *testing.T) {
	f := newFixture(t, memory.NewJournal())
	f.start(t)

	p := createParams()
	p.Name = ""

	tx, err := f.svc.Submit(context.Background(), domain.TxCreateEvent, organizer, 0, p, "")
	require.NoError(t, err, "validation failures surface in the envelope, not at submission")

	final := f.awaitTerminal(t, tx.Hash)
	assert.Equal(t, domain.TxFailed, final.Status)
	assert.Equal(t, "EmptyString", final.ErrorKind)
	assert.Nil(t, final.Result)

	assert.Zero(t, f.ledger.EventCount())
}

func TestSubmit_CreateEventResultCarriesID(t *testing.T) {
	f := newFixture(t, memory.NewJournal())
	f.start(t)

	tx, err := f.svc.Submit(context.Background(), domain.TxCreateEvent, organizer, 0, createParams(), "")
	require.NoError(t, err)

	final := f.awaitTerminal(t, tx.Hash)
	require.Equal(t, domain.TxConfirmed, final.Status)

	var res domain.CreateEventResult
	require.NoError(t, json.Unmarshal(final.Result, &res))
	assert.Equal(t, uint64(1), res.EventID)
}

func TestSubmit_AppliesInOrder(t *testing.T) {
	f := newFixture(t, memory.NewJournal())
	f.start(t)

	ctx := context.Background()

	dep, err := f.svc.Submit(ctx, domain.TxDeposit, alice, 300, nil, "")
	require.NoError(t, err)

	create, err := f.svc.Submit(ctx, domain.TxCreateEvent, organizer, 0, createParams(), "")
	require.NoError(t, err)

	buy, err := f.svc.Submit(ctx, domain.TxPurchaseTickets, alice, 300,
		domain.PurchaseParams{EventID: 1, Quantity: 3}, "")
	require.NoError(t, err)

	require.Equal(t, domain.TxConfirmed, f.awaitTerminal(t, dep.Hash).Status)
	require.Equal(t, domain.TxConfirmed, f.awaitTerminal(t, create.Hash).Status)

	final := f.awaitTerminal(t, buy.Hash)
	require.Equal(t, domain.TxConfirmed, final.Status)

	var res domain.PurchaseResult
	require.NoError(t, json.Unmarshal(final.Result, &res))
	assert.Equal(t, []uint64{1, 2, 3}, res.TicketIDs)

	assert.Zero(t, f.bank.Balance(alice))
	assert.Len(t, f.ledger.TicketsByOwner(alice), 3)
}

func TestSubmit_QueueOverflowFinalizesFailed(t *testing.T) {
	journal := memory.NewJournal()
	b := bank.NewMemoryBank()
	l := ledger.New(b, ledger.Config{Admin: admin})

	// Single-slot queue with no applier running: the second submission
	// overflows.
	svc := submit.New(l, journal, nil, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), submit.Config{QueueSize: 1})

	tx, err := svc.Submit(context.Background(), domain.TxDeposit, alice, 100, nil, "")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), domain.TxDeposit, alice, 100, nil, "")
	assert.ErrorIs(t, err, submit.ErrQueueFull)

	// No row may be left pending forever: the overflowed transaction is
	// journaled and closed out as failed.
	all := journal.All()
	require.Len(t, all, 2)
	assert.Equal(t, tx.Hash, all[0].Hash)
	assert.Equal(t, domain.TxPending, all[0].Status)
	assert.Equal(t, domain.TxFailed, all[1].Status)
	assert.Equal(t, "QueueFull", all[1].ErrorKind)
}

func TestSubmit_ConcurrentSubmissionsReplayDeterministically(t *testing.T) {
	journal := memory.NewJournal()
	first := newFixture(t, journal)
	first.start(t)

	ctx := context.Background()

	// Race a batch of creations: queue order must match journal order so a
	// replayed boot assigns the same ids the live run recorded.
	const n = 8
	hashes := make([]string, n)
	names := make([]string, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := createParams()
			p.Name = fmt.Sprintf("event-%d", i)
			names[i] = p.Name

			tx, err := first.svc.Submit(ctx, domain.TxCreateEvent, organizer, 0, p, "")
			if err == nil {
				hashes[i] = tx.Hash
			}
		}(i)
	}
	wg.Wait()

	byName := make(map[string]uint64, n)
	for i := 0; i < n; i++ {
		require.NotEmpty(t, hashes[i])
		final := first.awaitTerminal(t, hashes[i])
		require.Equal(t, domain.TxConfirmed, final.Status)

		var res domain.CreateEventResult
		require.NoError(t, json.Unmarshal(final.Result, &res))
		byName[names[i]] = res.EventID
	}

	second := newFixture(t, journal)
	require.NoError(t, second.svc.Replay(ctx))

	assert.Equal(t, first.ledger.ListEvents(), second.ledger.ListEvents())

	// Every recorded result id must resolve to the same event after replay.
	for name, id := range byName {
		ev, err := second.ledger.GetEvent(id)
		require.NoError(t, err)
		assert.Equal(t, name, ev.Name)
	}
}

func TestGetTransaction_Unknown(t *testing.T) {
	f := newFixture(t, memory.NewJournal())

	_, err := f.svc.GetTransaction(context.Background(), "0xdeadbeef")
	assert.ErrorIs(t, err, submit.ErrTxNotFound)
}

func TestReplay_RebuildsLedgerFromJournal(t *testing.T) {
	journal := memory.NewJournal()

	first := newFixture(t, journal)
	first.start(t)

	ctx := context.Background()

	dep, err := first.svc.Submit(ctx, domain.TxDeposit, alice, 1000, nil, "")
	require.NoError(t, err)
	create, err := first.svc.Submit(ctx, domain.TxCreateEvent, organizer, 0, createParams(), "")
	require.NoError(t, err)
	buy, err := first.svc.Submit(ctx, domain.TxPurchaseTickets, alice, 200,
		domain.PurchaseParams{EventID: 1, Quantity: 2}, "")
	require.NoError(t, err)

	// A failed transaction must not be part of the replayed history.
	badBuy, err := first.svc.Submit(ctx, domain.TxPurchaseTickets, alice, 1,
		domain.PurchaseParams{EventID: 1, Quantity: 1}, "")
	require.NoError(t, err)

	require.Equal(t, domain.TxConfirmed, first.awaitTerminal(t, dep.Hash).Status)
	require.Equal(t, domain.TxConfirmed, first.awaitTerminal(t, create.Hash).Status)
	require.Equal(t, domain.TxConfirmed, first.awaitTerminal(t, buy.Hash).Status)
	require.Equal(t, domain.TxFailed, first.awaitTerminal(t, badBuy.Hash).Status)

	// Cold start against the same journal.
	second := newFixture(t, journal)
	require.NoError(t, second.svc.Replay(ctx))

	assert.Equal(t, first.ledger.EventCount(), second.ledger.EventCount())
	assert.Equal(t, first.ledger.TicketCount(), second.ledger.TicketCount())
	assert.Equal(t, first.bank.Balance(alice), second.bank.Balance(alice))

	ev1, err := first.ledger.GetEvent(1)
	require.NoError(t, err)
	ev2, err := second.ledger.GetEvent(1)
	require.NoError(t, err)
	assert.Equal(t, ev1, ev2)

	assert.Equal(t, first.ledger.TicketsByOwner(alice), second.ledger.TicketsByOwner(alice))
}

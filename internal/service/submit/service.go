// Package submit is the transaction surface of the ledger. Submission
// journals a pending transaction and hands back its hash immediately; a
// single applier goroutine drains the queue, applies each transaction to
// the ledger in order, and finalizes it confirmed or failed. Callers
// observe exactly the three states the envelope exposes.
package submit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tixledger/tixledger/internal/domain"
	"github.com/tixledger/tixledger/internal/ledger"
	"github.com/tixledger/tixledger/internal/monitoring"
	"github.com/tixledger/tixledger/internal/repository"
	redisrepo "github.com/tixledger/tixledger/internal/repository/redis"
)

// Journal is the durable record of every transaction. Satisfied by the
// Postgres journal in production and the memory journal in tests.
type Journal interface {
	Append(ctx context.Context, tx *domain.Transaction) error
	Finalize(ctx context.Context, tx *domain.Transaction, events []domain.Event, tickets []domain.Ticket) error
	Get(ctx context.Context, hash string) (*domain.Transaction, error)
	ReplayConfirmed(ctx context.Context, fn func(tx *domain.Transaction) error) error
}

type Config struct {
	QueueSize int
}

type Service struct {
	ledger  *ledger.Ledger
	journal Journal
	cache   *redisrepo.Cache
	pubsub  *redisrepo.EventsPubSub
	limiter *redisrepo.SlidingWindowLimiter
	logger  *slog.Logger

	// enqueueMu couples seq assignment with the enqueue so queue order is
	// journal order. Replay rebuilds by seq; the two must never diverge.
	enqueueMu sync.Mutex
	queue     chan *domain.Transaction
}

func New(
	l *ledger.Ledger,
	journal Journal,
	cache *redisrepo.Cache,
	pubsub *redisrepo.EventsPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	return &Service{
		ledger:  l,
		journal: journal,
		cache:   cache,
		pubsub:  pubsub,
		limiter: limiter,
		logger:  logger,
		queue:   make(chan *domain.Transaction, cfg.QueueSize),
	}
}

// Submit journals a pending transaction and enqueues it for application.
//
// Parameters:
//   - ctx: request-scoped context.
//   - txType: the operation the transaction performs.
//   - from: caller identity; authorization happens at apply time.
//   - value: attached payment in the smallest currency unit.
//   - payload: operation parameters, marshaled into the envelope.
//   - rlKey: rate-limit key, or "" to skip limiting.
//
// Returns:
//   - *domain.Transaction: the pending envelope, hash assigned.
//   - error: submit.ErrRateLimited or submit.ErrQueueFull.
func (s *Service) Submit(
	ctx context.Context,
	txType domain.TxType,
	from domain.Address,
	value domain.Amount,
	payload any,
	rlKey string,
) (*domain.Transaction, error) {
	const op = "service.submit.Submit"

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s: %w: retry in %s", op, ErrRateLimited, retry)
		}
	}

	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidPayload)
		}
		raw = b
	}

	now := time.Now().UTC()
	tx := &domain.Transaction{
		Hash:        domain.TxHash(txType, from, value, raw, now, uuid.NewString()),
		Type:        txType,
		From:        from,
		Value:       value,
		Payload:     raw,
		Status:      domain.TxPending,
		SubmittedAt: now,
	}

	s.enqueueMu.Lock()
	if err := s.journal.Append(ctx, tx); err != nil {
		s.enqueueMu.Unlock()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	select {
	case s.queue <- tx:
		s.enqueueMu.Unlock()
	default:
		s.enqueueMu.Unlock()
		// The row is already journaled; close it out as failed so it does
		// not sit pending forever.
		tx.Status = domain.TxFailed
		tx.ErrorKind = "QueueFull"
		if err := s.journal.Finalize(ctx, tx, nil, nil); err != nil && s.logger != nil {
			s.logger.Error("failed to finalize overflowed transaction", "hash", tx.Hash, "error", err)
		}
		return nil, fmt.Errorf("%s: %w", op, ErrQueueFull)
	}

	monitoring.TxSubmitted(txType)
	monitoring.SetQueueDepth(len(s.queue))

	return tx, nil
}

// GetTransaction returns the submitted/confirmed/failed view of a
// transaction by hash.
func (s *Service) GetTransaction(ctx context.Context, hash string) (*domain.Transaction, error) {
	const op = "service.submit.GetTransaction"

	tx, err := s.journal.Get(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrTxNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return tx, nil
}

// Run drains the applier queue until ctx is canceled. Exactly one Run loop
// may be active: it is the serialization point for all ledger mutations.
func (s *Service) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tx := <-s.queue:
			s.process(ctx, tx)
			monitoring.SetQueueDepth(len(s.queue))
		}
	}
}

// Replay rebuilds ledger state from the confirmed journal. Called once at
// boot before Run starts.
func (s *Service) Replay(ctx context.Context) error {
	const op = "service.submit.Replay"

	var count int
	err := s.journal.ReplayConfirmed(ctx, func(tx *domain.Transaction) error {
		at := tx.SubmittedAt
		if tx.AppliedAt != nil {
			at = *tx.AppliedAt
		}

		if _, _, _, err := s.apply(tx, at, true); err != nil {
			return fmt.Errorf("replay %s: %w", tx.Hash, err)
		}

		count++
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if s.logger != nil {
		s.logger.Info("journal replayed", "transactions", count)
	}

	return nil
}

func (s *Service) process(ctx context.Context, tx *domain.Transaction) {
	start := time.Now()
	appliedAt := start.UTC()
	tx.AppliedAt = &appliedAt

	result, events, tickets, err := s.apply(tx, appliedAt, false)
	if err != nil {
		tx.Status = domain.TxFailed
		tx.ErrorKind = ledger.Kind(err)
	} else {
		tx.Status = domain.TxConfirmed
		tx.Result = result
	}

	if err := s.journal.Finalize(ctx, tx, events, tickets); err != nil {
		// The ledger already moved; losing the journal write is fatal for
		// consistency, so make it loud and leave the row pending.
		if s.logger != nil {
			s.logger.Error("failed to finalize transaction", "hash", tx.Hash, "error", err)
		}
		return
	}

	for i := range events {
		_ = s.cache.InvalidateEvent(ctx, events[i].EventID)
		_ = s.pubsub.PublishEventChanged(ctx, events[i].EventID)
	}

	monitoring.TxApplied(tx.Type, tx.Status, time.Since(start))
	monitoring.SetPaused(s.ledger.Paused())
}

// apply dispatches the transaction to the ledger and collects snapshots of
// the rows it touched for projection. Shared by the applier and Replay;
// replay skips throughput metrics so restarts do not double-count.
func (s *Service) apply(
	tx *domain.Transaction,
	now time.Time,
	replay bool,
) (json.RawMessage, []domain.Event, []domain.Ticket, error) {
	switch tx.Type {
	case domain.TxCreateEvent:
		var p domain.CreateEventParams
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return nil, nil, nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}

		id, err := s.ledger.CreateEvent(tx.From, p, now)
		if err != nil {
			return nil, nil, nil, err
		}

		result, _ := json.Marshal(domain.CreateEventResult{EventID: id})
		events, tickets := s.snapshot(id, nil)
		return result, events, tickets, nil

	case domain.TxCancelEvent, domain.TxCompleteEvent, domain.TxWithdrawFunds:
		var p domain.EventParams
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return nil, nil, nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}

		var result json.RawMessage
		switch tx.Type {
		case domain.TxCancelEvent:
			if err := s.ledger.CancelEvent(tx.From, p.EventID, now); err != nil {
				return nil, nil, nil, err
			}
		case domain.TxCompleteEvent:
			if err := s.ledger.CompleteEvent(tx.From, p.EventID, now); err != nil {
				return nil, nil, nil, err
			}
		case domain.TxWithdrawFunds:
			amount, err := s.ledger.WithdrawEventFunds(tx.From, p.EventID, now)
			if err != nil {
				return nil, nil, nil, err
			}
			result, _ = json.Marshal(domain.WithdrawResult{Amount: amount})
		}

		events, tickets := s.snapshot(p.EventID, nil)
		return result, events, tickets, nil

	case domain.TxPurchaseTickets:
		var p domain.PurchaseParams
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return nil, nil, nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}

		ids, err := s.ledger.PurchaseTickets(tx.From, p.EventID, p.Quantity, tx.Value, now)
		if err != nil {
			return nil, nil, nil, err
		}

		if !replay {
			monitoring.AddTicketsSold(uint64(len(ids)))
		}
		result, _ := json.Marshal(domain.PurchaseResult{TicketIDs: ids})
		events, tickets := s.snapshot(p.EventID, ids)
		return result, events, tickets, nil

	case domain.TxRequestRefund, domain.TxValidateTicket:
		var p domain.TicketParams
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return nil, nil, nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}

		var err error
		if tx.Type == domain.TxRequestRefund {
			err = s.ledger.RequestRefund(tx.From, p.TicketID, now)
		} else {
			err = s.ledger.ValidateTicket(tx.From, p.TicketID, now)
		}
		if err != nil {
			return nil, nil, nil, err
		}

		t, err := s.ledger.GetTicket(p.TicketID)
		if err != nil {
			return nil, nil, nil, err
		}

		events, tickets := s.snapshot(t.EventID, []uint64{p.TicketID})
		return nil, events, tickets, nil

	case domain.TxTransferTicket:
		var p domain.TransferParams
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return nil, nil, nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}

		if err := s.ledger.TransferTicket(tx.From, p.TicketID, p.NewOwner, now); err != nil {
			return nil, nil, nil, err
		}

		t, err := s.ledger.GetTicket(p.TicketID)
		if err != nil {
			return nil, nil, nil, err
		}

		events, tickets := s.snapshot(t.EventID, []uint64{p.TicketID})
		return nil, events, tickets, nil

	case domain.TxDeposit:
		if err := s.ledger.Deposit(tx.From, tx.Value, now); err != nil {
			return nil, nil, nil, err
		}
		return nil, nil, nil, nil

	case domain.TxPause:
		if err := s.ledger.Pause(tx.From); err != nil {
			return nil, nil, nil, err
		}
		return nil, nil, nil, nil

	case domain.TxUnpause:
		if err := s.ledger.Unpause(tx.From); err != nil {
			return nil, nil, nil, err
		}
		return nil, nil, nil, nil

	default:
		return nil, nil, nil, fmt.Errorf("%w: unknown type %q", ErrInvalidPayload, tx.Type)
	}
}

// snapshot fetches projection copies of an event and a set of tickets.
func (s *Service) snapshot(eventID uint64, ticketIDs []uint64) ([]domain.Event, []domain.Ticket) {
	var events []domain.Event
	if ev, err := s.ledger.GetEvent(eventID); err == nil {
		events = append(events, *ev)
	}

	var tickets []domain.Ticket
	for _, id := range ticketIDs {
		if t, err := s.ledger.GetTicket(id); err == nil {
			tickets = append(tickets, *t)
		}
	}

	return events, tickets
}

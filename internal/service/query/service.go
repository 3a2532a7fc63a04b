package query

import (
	"context"
	"fmt"
	"time"

	"github.com/tixledger/tixledger/internal/bank"
	"github.com/tixledger/tixledger/internal/domain"
	"github.com/tixledger/tixledger/internal/ledger"
	redisrepo "github.com/tixledger/tixledger/internal/repository/redis"
)

type Config struct {
	EventSummaryTTL time.Duration
	AvailabilityTTL time.Duration
}

// Service answers read-only queries. The ledger is authoritative; the hot
// event views go through the Redis cache, invalidated whenever a confirmed
// transaction touches the event. Rejections are the ledger's own typed
// conditions so the transport can map them uniformly.
type Service struct {
	ledger *ledger.Ledger
	bank   bank.Bank
	cache  *redisrepo.Cache
	cfg    Config
}

func New(l *ledger.Ledger, b bank.Bank, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.EventSummaryTTL <= 0 {
		cfg.EventSummaryTTL = 60 * time.Second
	}

	if cfg.AvailabilityTTL <= 0 {
		cfg.AvailabilityTTL = 15 * time.Second
	}

	return &Service{
		ledger: l,
		bank:   b,
		cache:  cache,
		cfg:    cfg,
	}
}

// GetEvent retrieves one event through the summary cache.
func (s *Service) GetEvent(ctx context.Context, eventID uint64) (*domain.Event, error) {
	const op = "service.query.GetEvent"

	event, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyEventSummary(eventID),
		s.cfg.EventSummaryTTL,
		func(ctx context.Context) (domain.Event, error) {
			ev, err := s.ledger.GetEvent(eventID)
			if err != nil {
				return domain.Event{}, err
			}
			return *ev, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &event, nil
}

// ListEvents returns every event ordered by id, newest last.
func (s *Service) ListEvents(ctx context.Context) []domain.Event {
	return s.ledger.ListEvents()
}

// Availability retrieves maxTickets - ticketsSold through the
// availability cache.
func (s *Service) Availability(ctx context.Context, eventID uint64) (*domain.Availability, error) {
	const op = "service.query.Availability"

	avail, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyEventAvailability(eventID),
		s.cfg.AvailabilityTTL,
		func(ctx context.Context) (domain.Availability, error) {
			a, err := s.ledger.AvailableTickets(eventID)
			if err != nil {
				return domain.Availability{}, err
			}
			return *a, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &avail, nil
}

func (s *Service) GetTicket(ctx context.Context, ticketID uint64) (*domain.Ticket, error) {
	const op = "service.query.GetTicket"

	t, err := s.ledger.GetTicket(ticketID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

// TicketsByOwner lists the tickets currently held by an account.
func (s *Service) TicketsByOwner(ctx context.Context, owner domain.Address) []domain.Ticket {
	return s.ledger.TicketsByOwner(owner)
}

// IsTicketValid is the organizer-gated admission predicate.
func (s *Service) IsTicketValid(ctx context.Context, caller domain.Address, ticketID uint64) (bool, error) {
	const op = "service.query.IsTicketValid"

	valid, err := s.ledger.IsTicketValid(caller, ticketID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return valid, nil
}

// Balance reports an account's funds.
func (s *Service) Balance(ctx context.Context, of domain.Address) domain.Amount {
	return s.bank.Balance(of)
}

// EventCount returns the id of the most recently created event.
func (s *Service) EventCount(ctx context.Context) uint64 {
	return s.ledger.EventCount()
}

// Paused reports the global guard state.
func (s *Service) Paused(ctx context.Context) bool {
	return s.ledger.Paused()
}

package admin

import (
	"context"
	"fmt"

	"github.com/tixledger/tixledger/internal/domain"
	"github.com/tixledger/tixledger/internal/service/submit"
)

// Service carries the administrator surface: the global pause switch.
// Pause and unpause travel through the journal like every other mutation,
// so replay restores the guard state after a restart. The ledger itself
// rejects callers other than the configured administrator.
type Service struct {
	submit *submit.Service
}

func New(sub *submit.Service) *Service {
	return &Service{submit: sub}
}

// Pause engages the global guard. All state-mutating entry points reject
// with Paused until unpaused; reads remain available.
func (s *Service) Pause(ctx context.Context, caller domain.Address) (*domain.Transaction, error) {
	const op = "service.admin.Pause"

	tx, err := s.submit.Submit(ctx, domain.TxPause, caller, 0, nil, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return tx, nil
}

// Unpause releases the global guard.
func (s *Service) Unpause(ctx context.Context, caller domain.Address) (*domain.Transaction, error) {
	const op = "service.admin.Unpause"

	tx, err := s.submit.Submit(ctx, domain.TxUnpause, caller, 0, nil, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return tx, nil
}

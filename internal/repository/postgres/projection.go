package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tixledger/tixledger/internal/domain"
)

// ProjectionRepo maintains queryable rows mirroring the ledger's events and
// tickets. Rows are upserted whenever a transaction confirms; the in-memory
// ledger remains the authority, the projection is the durable record.
type ProjectionRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ProjectionRepo) With(db DB) *ProjectionRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ProjectionRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *ProjectionRepo) UpsertEvent(ctx context.Context, ev *domain.Event) error {
	const op = "postgres.ProjectionRepo.UpsertEvent"

	_, err := r.handle().Exec(ctx,
		`INSERT INTO events(
			event_id, organizer, name, description, venue, event_date,
			ticket_price, max_tickets, tickets_sold, tickets_refunded,
			refund_deadline, status, funds_withdrawn)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (event_id) DO UPDATE SET
			tickets_sold     = EXCLUDED.tickets_sold,
			tickets_refunded = EXCLUDED.tickets_refunded,
			status           = EXCLUDED.status,
			funds_withdrawn  = EXCLUDED.funds_withdrawn`,
		int64(ev.EventID), ev.Organizer.String(), ev.Name, ev.Description, ev.Venue,
		ev.Date, int64(ev.TicketPrice), int64(ev.MaxTickets), int64(ev.TicketsSold),
		int64(ev.TicketsRefunded), ev.RefundDeadline, string(ev.Status), ev.FundsWithdrawn,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return nil
}

func (r *ProjectionRepo) UpsertTickets(ctx context.Context, tickets []domain.Ticket) error {
	const op = "postgres.ProjectionRepo.UpsertTickets"

	if len(tickets) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range tickets {
		t := &tickets[i]
		batch.Queue(
			`INSERT INTO tickets(ticket_id, event_id, owner, purchase_price, status, purchased_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (ticket_id) DO UPDATE SET
				owner  = EXCLUDED.owner,
				status = EXCLUDED.status`,
			int64(t.TicketID), int64(t.EventID), t.Owner.String(),
			int64(t.PurchasePrice), string(t.Status), t.PurchasedAt,
		)
	}

	if err := r.handle().SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return nil
}

// Package ledger implements the event-ticketing state machine. Every
// mutating operation is applied atomically under a single mutex, mirroring
// the strict serial ordering the original execution platform provides: the
// availability check and the inventory increment can never interleave, and
// internal state is always mutated before any outbound value transfer.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/tixledger/tixledger/internal/bank"
	"github.com/tixledger/tixledger/internal/domain"
)

// DefaultMaxPerPurchase caps tickets per transaction to bound the work a
// single call can do and the front-running exposure of large grabs.
const DefaultMaxPerPurchase = 10

type Config struct {
	// Admin is the only address allowed to toggle the pause switch.
	Admin domain.Address
	// MaxPerPurchase overrides DefaultMaxPerPurchase when > 0.
	MaxPerPurchase uint64
}

// Ledger owns the explicit event/ticket store. Instantiate one per test;
// there are no process-wide singletons.
type Ledger struct {
	mu sync.Mutex

	admin          domain.Address
	maxPerPurchase uint64
	bank           bank.Bank

	paused    bool
	events    map[uint64]*domain.Event
	tickets   map[uint64]*domain.Ticket
	eventSeq  uint64
	ticketSeq uint64
}

func New(b bank.Bank, cfg Config) *Ledger {
	maxPer := cfg.MaxPerPurchase
	if maxPer == 0 {
		maxPer = DefaultMaxPerPurchase
	}

	return &Ledger{
		admin:          cfg.Admin,
		maxPerPurchase: maxPer,
		bank:           b,
		events:         make(map[uint64]*domain.Event),
		tickets:        make(map[uint64]*domain.Ticket),
	}
}

// CreateEvent persists a new Active event and returns its id. Ids form a
// strictly increasing sequence starting at 1; they are never reused.
func (l *Ledger) CreateEvent(caller domain.Address, p domain.CreateEventParams, now time.Time) (uint64, error) {
	const op = "ledger.CreateEvent"

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.paused {
		return 0, fmt.Errorf("%s: %w", op, ErrPaused)
	}
	if caller.IsZero() {
		return 0, fmt.Errorf("%s: %w", op, ErrZeroAddress)
	}
	if p.Name == "" || p.Description == "" || p.Venue == "" {
		return 0, fmt.Errorf("%s: %w", op, ErrEmptyString)
	}
	if !p.Date.After(now) {
		return 0, fmt.Errorf("%s: %w", op, ErrInvalidDate)
	}
	if !p.RefundDeadline.After(now) || p.RefundDeadline.After(p.Date) {
		return 0, fmt.Errorf("%s: %w", op, ErrInvalidDate)
	}
	if p.TicketPrice <= 0 {
		return 0, fmt.Errorf("%s: %w", op, ErrZeroPrice)
	}
	if p.MaxTickets == 0 {
		return 0, fmt.Errorf("%s: %w", op, ErrZeroTickets)
	}

	l.eventSeq++
	id := l.eventSeq

	l.events[id] = &domain.Event{
		EventID:        id,
		Organizer:      caller,
		Name:           p.Name,
		Description:    p.Description,
		Venue:          p.Venue,
		Date:           p.Date,
		TicketPrice:    p.TicketPrice,
		MaxTickets:     p.MaxTickets,
		RefundDeadline: p.RefundDeadline,
		Status:         domain.EventActive,
	}

	return id, nil
}

// CancelEvent moves an Active event to the terminal Canceled status. Once
// canceled, every Valid ticket becomes refund-eligible with no deadline.
func (l *Ledger) CancelEvent(caller domain.Address, eventID uint64, now time.Time) error {
	const op = "ledger.CancelEvent"

	l.mu.Lock()
	defer l.mu.Unlock()

	ev, err := l.activeEventOwnedBy(caller, eventID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	ev.Status = domain.EventCanceled
	return nil
}

// CompleteEvent moves an Active event to the terminal Completed status,
// enabling withdrawal. The event date must have passed.
func (l *Ledger) CompleteEvent(caller domain.Address, eventID uint64, now time.Time) error {
	const op = "ledger.CompleteEvent"

	l.mu.Lock()
	defer l.mu.Unlock()

	ev, err := l.activeEventOwnedBy(caller, eventID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if now.Before(ev.Date) {
		return fmt.Errorf("%s: %w", op, ErrEventNotEnded)
	}

	ev.Status = domain.EventCompleted
	return nil
}

// PurchaseTickets mints quantity tickets for the caller against the attached
// payment value and returns the minted ticket ids. The availability check,
// the buyer debit and the mint happen under one lock acquisition: two
// concurrent purchases racing for the last ticket cannot both succeed.
func (l *Ledger) PurchaseTickets(caller domain.Address, eventID, quantity uint64, value domain.Amount, now time.Time) ([]uint64, error) {
	const op = "ledger.PurchaseTickets"

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.paused {
		return nil, fmt.Errorf("%s: %w", op, ErrPaused)
	}
	if caller.IsZero() {
		return nil, fmt.Errorf("%s: %w", op, ErrZeroAddress)
	}

	ev, ok := l.events[eventID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrEventDoesNotExist)
	}
	if ev.Status != domain.EventActive {
		return nil, fmt.Errorf("%s: %w", op, ErrEventNotActive)
	}
	if quantity == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrZeroQuantity)
	}
	if quantity > l.maxPerPurchase {
		return nil, fmt.Errorf("%s: %w", op, ErrExceedsMaxPerPurchase)
	}
	if ev.TicketsSold+quantity > ev.MaxTickets {
		return nil, fmt.Errorf("%s: %w", op, ErrSoldOut)
	}
	if ev.TicketPrice > math.MaxInt64/domain.Amount(quantity) {
		return nil, fmt.Errorf("%s: %w", op, ErrIncorrectPayment)
	}
	if total := ev.TicketPrice * domain.Amount(quantity); value != total {
		return nil, fmt.Errorf("%s: %w", op, ErrIncorrectPayment)
	}

	// Capture the attached value before any state mutation so a failed
	// debit leaves the ledger untouched.
	if err := l.bank.Debit(caller, value); err != nil {
		if errors.Is(err, bank.ErrInsufficientFunds) {
			return nil, fmt.Errorf("%s: %w", op, ErrInsufficientFunds)
		}
		return nil, fmt.Errorf("%s: %w", op, ErrETHTransferFailed)
	}

	ids := make([]uint64, 0, quantity)
	for i := uint64(0); i < quantity; i++ {
		l.ticketSeq++
		id := l.ticketSeq
		l.tickets[id] = &domain.Ticket{
			TicketID:      id,
			EventID:       eventID,
			Owner:         caller,
			PurchasePrice: ev.TicketPrice,
			Status:        domain.TicketValid,
			PurchasedAt:   now,
		}
		ids = append(ids, id)
	}

	ev.TicketsSold += quantity
	return ids, nil
}

// TransferTicket reassigns ownership of a Valid ticket. Status and purchase
// price are unchanged.
func (l *Ledger) TransferTicket(caller domain.Address, ticketID uint64, newOwner domain.Address, now time.Time) error {
	const op = "ledger.TransferTicket"

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.paused {
		return fmt.Errorf("%s: %w", op, ErrPaused)
	}

	t, ok := l.tickets[ticketID]
	if !ok {
		return fmt.Errorf("%s: %w", op, ErrTicketDoesNotExist)
	}
	if t.Owner != caller {
		return fmt.Errorf("%s: %w", op, ErrNotTicketOwner)
	}
	if newOwner.IsZero() {
		return fmt.Errorf("%s: %w", op, ErrZeroAddress)
	}
	if newOwner == caller {
		return fmt.Errorf("%s: %w", op, ErrTransferToSelf)
	}
	if t.Status != domain.TicketValid {
		return fmt.Errorf("%s: %w", op, ErrTicketNotValid)
	}

	t.Owner = newOwner
	return nil
}

// RequestRefund marks a Valid ticket Refunded and returns its purchase price
// to the owner. Eligibility: the event is Canceled, or Active with the
// refund deadline still open. The status change happens before the outbound
// transfer; if the transfer fails the whole operation rolls back.
func (l *Ledger) RequestRefund(caller domain.Address, ticketID uint64, now time.Time) error {
	const op = "ledger.RequestRefund"

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.paused {
		return fmt.Errorf("%s: %w", op, ErrPaused)
	}

	t, ok := l.tickets[ticketID]
	if !ok {
		return fmt.Errorf("%s: %w", op, ErrTicketDoesNotExist)
	}
	if t.Owner != caller {
		return fmt.Errorf("%s: %w", op, ErrNotTicketOwner)
	}
	if t.Status != domain.TicketValid {
		return fmt.Errorf("%s: %w", op, ErrTicketNotValid)
	}

	ev := l.events[t.EventID]
	eligible := ev.Status == domain.EventCanceled ||
		(ev.Status == domain.EventActive && now.Before(ev.RefundDeadline))
	if !eligible {
		return fmt.Errorf("%s: %w", op, ErrRefundDeadlinePassed)
	}

	t.Status = domain.TicketRefunded
	ev.TicketsRefunded++

	if err := l.bank.Credit(t.Owner, t.PurchasePrice); err != nil {
		t.Status = domain.TicketValid
		ev.TicketsRefunded--
		return fmt.Errorf("%s: %w", op, ErrETHTransferFailed)
	}

	return nil
}

// IsTicketValid reports whether the ticket exists, is Valid, and belongs to
// an Active event. Only the organizer of the ticket's event may ask.
func (l *Ledger) IsTicketValid(caller domain.Address, ticketID uint64) (bool, error) {
	const op = "ledger.IsTicketValid"

	l.mu.Lock()
	defer l.mu.Unlock()

	valid, _, err := l.ticketValidLocked(caller, ticketID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return valid, nil
}

// ValidateTicket marks a ticket Used at admission time. One-way: a Used
// ticket can never be refunded, transferred, or validated again.
func (l *Ledger) ValidateTicket(caller domain.Address, ticketID uint64, now time.Time) error {
	const op = "ledger.ValidateTicket"

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.paused {
		return fmt.Errorf("%s: %w", op, ErrPaused)
	}

	valid, t, err := l.ticketValidLocked(caller, ticketID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !valid {
		return fmt.Errorf("%s: %w", op, ErrTicketNotValid)
	}

	t.Status = domain.TicketUsed
	return nil
}

// WithdrawEventFunds pays the organizer the net proceeds of a Completed
// event: ticketPrice * (ticketsSold - ticketsRefunded). The withdrawn flag
// is set before the transfer and cleared again if the transfer fails.
func (l *Ledger) WithdrawEventFunds(caller domain.Address, eventID uint64, now time.Time) (domain.Amount, error) {
	const op = "ledger.WithdrawEventFunds"

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.paused {
		return 0, fmt.Errorf("%s: %w", op, ErrPaused)
	}

	ev, ok := l.events[eventID]
	if !ok {
		return 0, fmt.Errorf("%s: %w", op, ErrEventDoesNotExist)
	}
	if ev.Organizer != caller {
		return 0, fmt.Errorf("%s: %w", op, ErrNotOrganizer)
	}
	if ev.Status != domain.EventCompleted {
		return 0, fmt.Errorf("%s: %w", op, ErrEventNotEnded)
	}
	if ev.FundsWithdrawn {
		return 0, fmt.Errorf("%s: %w", op, ErrNoFundsToWithdraw)
	}

	balance := ev.TicketPrice * domain.Amount(ev.TicketsSold-ev.TicketsRefunded)
	if balance <= 0 {
		return 0, fmt.Errorf("%s: %w", op, ErrNoFundsToWithdraw)
	}

	ev.FundsWithdrawn = true

	if err := l.bank.Credit(ev.Organizer, balance); err != nil {
		ev.FundsWithdrawn = false
		return 0, fmt.Errorf("%s: %w", op, ErrETHTransferFailed)
	}

	return balance, nil
}

// Deposit credits the caller's account with the attached value. Funding is
// journaled like every other mutation so replay reconstructs balances.
func (l *Ledger) Deposit(caller domain.Address, value domain.Amount, now time.Time) error {
	const op = "ledger.Deposit"

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.paused {
		return fmt.Errorf("%s: %w", op, ErrPaused)
	}
	if caller.IsZero() {
		return fmt.Errorf("%s: %w", op, ErrZeroAddress)
	}
	if value <= 0 {
		return fmt.Errorf("%s: %w", op, ErrIncorrectPayment)
	}

	if err := l.bank.Credit(caller, value); err != nil {
		return fmt.Errorf("%s: %w", op, ErrETHTransferFailed)
	}

	return nil
}

// Pause engages the global guard: every state-mutating entry point rejects
// with Paused until Unpause. Read-only queries remain available.
func (l *Ledger) Pause(caller domain.Address) error {
	const op = "ledger.Pause"

	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.admin {
		return fmt.Errorf("%s: %w", op, ErrNotAdmin)
	}

	l.paused = true
	return nil
}

func (l *Ledger) Unpause(caller domain.Address) error {
	const op = "ledger.Unpause"

	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.admin {
		return fmt.Errorf("%s: %w", op, ErrNotAdmin)
	}

	l.paused = false
	return nil
}

func (l *Ledger) Paused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paused
}

// --- Read-only queries ---

func (l *Ledger) GetEvent(eventID uint64) (*domain.Event, error) {
	const op = "ledger.GetEvent"

	l.mu.Lock()
	defer l.mu.Unlock()

	ev, ok := l.events[eventID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrEventDoesNotExist)
	}

	cp := *ev
	return &cp, nil
}

// ListEvents returns all events ordered by id.
func (l *Ledger) ListEvents() []domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.Event, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, *ev)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].EventID < out[j].EventID })
	return out
}

func (l *Ledger) GetTicket(ticketID uint64) (*domain.Ticket, error) {
	const op = "ledger.GetTicket"

	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.tickets[ticketID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrTicketDoesNotExist)
	}

	cp := *t
	return &cp, nil
}

// TicketsByOwner returns the owner's tickets ordered by id.
func (l *Ledger) TicketsByOwner(owner domain.Address) []domain.Ticket {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []domain.Ticket
	for _, t := range l.tickets {
		if t.Owner == owner {
			out = append(out, *t)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].TicketID < out[j].TicketID })
	return out
}

// AvailableTickets reports maxTickets - ticketsSold for the event.
func (l *Ledger) AvailableTickets(eventID uint64) (*domain.Availability, error) {
	const op = "ledger.AvailableTickets"

	l.mu.Lock()
	defer l.mu.Unlock()

	ev, ok := l.events[eventID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrEventDoesNotExist)
	}

	return &domain.Availability{
		EventID:     ev.EventID,
		MaxTickets:  ev.MaxTickets,
		TicketsSold: ev.TicketsSold,
		Available:   ev.MaxTickets - ev.TicketsSold,
	}, nil
}

func (l *Ledger) EventCount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.eventSeq
}

func (l *Ledger) TicketCount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ticketSeq
}

// --- helpers (callers hold l.mu) ---

func (l *Ledger) activeEventOwnedBy(caller domain.Address, eventID uint64) (*domain.Event, error) {
	if l.paused {
		return nil, ErrPaused
	}

	ev, ok := l.events[eventID]
	if !ok {
		return nil, ErrEventDoesNotExist
	}
	if ev.Organizer != caller {
		return nil, ErrNotOrganizer
	}
	if ev.Status != domain.EventActive {
		return nil, ErrEventNotActive
	}

	return ev, nil
}

func (l *Ledger) ticketValidLocked(caller domain.Address, ticketID uint64) (bool, *domain.Ticket, error) {
	t, ok := l.tickets[ticketID]
	if !ok {
		return false, nil, ErrTicketDoesNotExist
	}

	ev := l.events[t.EventID]
	if ev.Organizer != caller {
		return false, nil, ErrNotOrganizer
	}

	valid := t.Status == domain.TicketValid && ev.Status == domain.EventActive
	return valid, t, nil
}

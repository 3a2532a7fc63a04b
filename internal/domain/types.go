package domain

import "time"

// Amount is a monetary value in the smallest currency unit (wei).
// The ledger never deals in fractional amounts.
type Amount int64

type EventStatus string

const (
	EventActive    EventStatus = "active"
	EventCanceled  EventStatus = "canceled"
	EventCompleted EventStatus = "completed"
)

type TicketStatus string

const (
	TicketValid    TicketStatus = "valid"
	TicketUsed     TicketStatus = "used"
	TicketRefunded TicketStatus = "refunded"
)

// Event is an organizer-owned sellable unit. Core fields are immutable after
// creation; only Status, TicketsSold, TicketsRefunded and FundsWithdrawn change.
type Event struct {
	EventID         uint64      `json:"eventId"`
	Organizer       Address     `json:"organizer"`
	Name            string      `json:"name"`
	Description     string      `json:"description"`
	Venue           string      `json:"venue"`
	Date            time.Time   `json:"date"`
	TicketPrice     Amount      `json:"ticketPrice"`
	MaxTickets      uint64      `json:"maxTickets"`
	TicketsSold     uint64      `json:"ticketsSold"`
	TicketsRefunded uint64      `json:"ticketsRefunded"`
	RefundDeadline  time.Time   `json:"refundDeadline"`
	Status          EventStatus `json:"status"`
	FundsWithdrawn  bool        `json:"fundsWithdrawn"`
}

// Ticket is a unique claim against one Event, minted on purchase.
type Ticket struct {
	TicketID      uint64       `json:"ticketId"`
	EventID       uint64       `json:"eventId"`
	Owner         Address      `json:"owner"`
	PurchasePrice Amount       `json:"purchasePrice"`
	Status        TicketStatus `json:"status"`
	PurchasedAt   time.Time    `json:"purchasedAt"`
}

// Availability is the sellable-inventory view of a single event.
type Availability struct {
	EventID     uint64 `json:"eventId"`
	MaxTickets  uint64 `json:"maxTickets"`
	TicketsSold uint64 `json:"ticketsSold"`
	Available   uint64 `json:"available"`
}

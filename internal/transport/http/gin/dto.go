package httpgin

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tixledger/tixledger/internal/domain"
)

type CreateEventRequest struct {
	From           string `json:"from" binding:"required"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Venue          string `json:"venue"`
	Date           string `json:"date" binding:"required"`
	TicketPrice    int64  `json:"ticket_price"`
	MaxTickets     uint64 `json:"max_tickets"`
	RefundDeadline string `json:"refund_deadline" binding:"required"`
}

type PurchaseRequest struct {
	From     string `json:"from" binding:"required"`
	Quantity uint64 `json:"quantity"`
	Value    int64  `json:"value"`
}

type TransferRequest struct {
	From     string `json:"from" binding:"required"`
	NewOwner string `json:"new_owner" binding:"required"`
}

type CallerRequest struct {
	From string `json:"from" binding:"required"`
}

type DepositRequest struct {
	Value int64 `json:"value"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// SubmitResponse acknowledges an accepted transaction. The caller polls
// /transactions/{hash} for the terminal status.
type SubmitResponse struct {
	TxHash string `json:"tx_hash"`
	Status string `json:"status"`
}

type TicketValidityResponse struct {
	TicketID uint64 `json:"ticket_id"`
	Valid    bool   `json:"valid"`
}

type BalanceResponse struct {
	Address    string `json:"address"`
	Balance    int64  `json:"balance"`
	BalanceETH string `json:"balance_eth"`
}

// EventView decorates the ledger event with a human-readable price.
type EventView struct {
	domain.Event
	TicketPriceETH string `json:"ticketPriceEth"`
}

type TicketView struct {
	domain.Ticket
	PurchasePriceETH string `json:"purchasePriceEth"`
}

// weiDecimals converts smallest-unit amounts to whole-coin display strings.
const weiDecimals = -18

func formatETH(a domain.Amount) string {
	return decimal.New(int64(a), weiDecimals).String()
}

func newEventView(ev domain.Event) EventView {
	return EventView{Event: ev, TicketPriceETH: formatETH(ev.TicketPrice)}
}

func newEventViews(evs []domain.Event) []EventView {
	out := make([]EventView, 0, len(evs))
	for _, ev := range evs {
		out = append(out, newEventView(ev))
	}
	return out
}

func newTicketView(t domain.Ticket) TicketView {
	return TicketView{Ticket: t, PurchasePriceETH: formatETH(t.PurchasePrice)}
}

func newTicketViews(ts []domain.Ticket) []TicketView {
	out := make([]TicketView, 0, len(ts))
	for _, t := range ts {
		out = append(out, newTicketView(t))
	}
	return out
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

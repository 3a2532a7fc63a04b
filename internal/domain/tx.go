package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxConfirmed TxStatus = "confirmed"
	TxFailed    TxStatus = "failed"
)

type TxType string

const (
	TxCreateEvent     TxType = "create_event"
	TxCancelEvent     TxType = "cancel_event"
	TxCompleteEvent   TxType = "complete_event"
	TxPurchaseTickets TxType = "purchase_tickets"
	TxRequestRefund   TxType = "request_refund"
	TxTransferTicket  TxType = "transfer_ticket"
	TxValidateTicket  TxType = "validate_ticket"
	TxWithdrawFunds   TxType = "withdraw_funds"
	TxDeposit         TxType = "deposit"
	TxPause           TxType = "pause"
	TxUnpause         TxType = "unpause"
)

// Transaction is the envelope for every state-mutating call. Callers observe
// exactly three states: pending after submission, then confirmed or failed.
type Transaction struct {
	Seq         int64           `json:"seq"`
	Hash        string          `json:"hash"`
	Type        TxType          `json:"type"`
	From        Address         `json:"from"`
	Value       Amount          `json:"value"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Status      TxStatus        `json:"status"`
	ErrorKind   string          `json:"errorKind,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	SubmittedAt time.Time       `json:"submittedAt"`
	AppliedAt   *time.Time      `json:"appliedAt,omitempty"`
}

// TxHash derives the transaction identifier from the envelope contents plus a
// caller-supplied nonce, so two identical submissions still get distinct hashes.
func TxHash(txType TxType, from Address, value Amount, payload []byte, submittedAt time.Time, nonce string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%d|%s|", txType, from, value, submittedAt.UnixNano(), nonce)
	h.Write(payload)
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

// CreateEventParams is the payload of a create_event transaction.
type CreateEventParams struct {
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Venue          string    `json:"venue"`
	Date           time.Time `json:"date"`
	TicketPrice    Amount    `json:"ticketPrice"`
	MaxTickets     uint64    `json:"maxTickets"`
	RefundDeadline time.Time `json:"refundDeadline"`
}

// EventParams is the payload of cancel_event, complete_event and
// withdraw_funds transactions.
type EventParams struct {
	EventID uint64 `json:"eventId"`
}

// PurchaseParams is the payload of a purchase_tickets transaction. The
// attached payment travels in the envelope's Value field.
type PurchaseParams struct {
	EventID  uint64 `json:"eventId"`
	Quantity uint64 `json:"quantity"`
}

// TicketParams is the payload of request_refund and validate_ticket
// transactions.
type TicketParams struct {
	TicketID uint64 `json:"ticketId"`
}

// TransferParams is the payload of a transfer_ticket transaction.
type TransferParams struct {
	TicketID uint64  `json:"ticketId"`
	NewOwner Address `json:"newOwner"`
}

// CreateEventResult carries the newly assigned event id so callers can route
// to the event without a separate lookup.
type CreateEventResult struct {
	EventID uint64 `json:"eventId"`
}

// PurchaseResult lists the minted ticket ids.
type PurchaseResult struct {
	TicketIDs []uint64 `json:"ticketIds"`
}

// WithdrawResult reports the net proceeds transferred to the organizer.
type WithdrawResult struct {
	Amount Amount `json:"amount"`
}

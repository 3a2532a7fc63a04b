package ledger

import "errors"

// Every rejection is a typed, stable condition. The Kind string is the
// machine-matchable identifier recorded in the transaction journal and
// returned over the API; the message is the single user-facing text.
var (
	ErrEventDoesNotExist     = errors.New("event does not exist")
	ErrTicketDoesNotExist    = errors.New("ticket does not exist")
	ErrNotOrganizer          = errors.New("only the event organizer can perform this action")
	ErrNotTicketOwner        = errors.New("caller is not the owner of this ticket")
	ErrNotAdmin              = errors.New("only the administrator can perform this action")
	ErrEventNotActive        = errors.New("event is not active")
	ErrEventNotEnded         = errors.New("event has not ended yet")
	ErrEmptyString           = errors.New("required field cannot be empty")
	ErrZeroAddress           = errors.New("cannot use the zero address")
	ErrInvalidDate           = errors.New("event date must be in the future")
	ErrZeroPrice             = errors.New("ticket price must be greater than zero")
	ErrZeroTickets           = errors.New("must have at least one ticket")
	ErrZeroQuantity          = errors.New("quantity must be at least 1")
	ErrExceedsMaxPerPurchase = errors.New("quantity exceeds the per-purchase maximum")
	ErrSoldOut               = errors.New("not enough tickets available")
	ErrIncorrectPayment      = errors.New("attached payment does not match the ticket price")
	ErrInsufficientFunds     = errors.New("insufficient account balance")
	ErrRefundDeadlinePassed  = errors.New("refund deadline has passed")
	ErrTicketNotValid        = errors.New("ticket is no longer valid")
	ErrTransferToSelf        = errors.New("cannot transfer ticket to yourself")
	ErrNoFundsToWithdraw     = errors.New("no funds available to withdraw")
	ErrETHTransferFailed     = errors.New("value transfer failed")
	ErrPaused                = errors.New("ledger is paused")
)

var kinds = map[error]string{
	ErrEventDoesNotExist:     "EventDoesNotExist",
	ErrTicketDoesNotExist:    "TicketDoesNotExist",
	ErrNotOrganizer:          "NotOrganizer",
	ErrNotTicketOwner:        "NotTicketOwner",
	ErrNotAdmin:              "NotAdmin",
	ErrEventNotActive:        "EventNotActive",
	ErrEventNotEnded:         "EventNotEnded",
	ErrEmptyString:           "EmptyString",
	ErrZeroAddress:           "ZeroAddress",
	ErrInvalidDate:           "InvalidDate",
	ErrZeroPrice:             "ZeroPrice",
	ErrZeroTickets:           "ZeroTickets",
	ErrZeroQuantity:          "ZeroQuantity",
	ErrExceedsMaxPerPurchase: "ExceedsMaxPerPurchase",
	ErrSoldOut:               "SoldOut",
	ErrIncorrectPayment:      "IncorrectPayment",
	ErrInsufficientFunds:     "InsufficientFunds",
	ErrRefundDeadlinePassed:  "RefundDeadlinePassed",
	ErrTicketNotValid:        "TicketNotValid",
	ErrTransferToSelf:        "TransferToSelf",
	ErrNoFundsToWithdraw:     "NoFundsToWithdraw",
	ErrETHTransferFailed:     "ETHTransferFailed",
	ErrPaused:                "Paused",
}

// Kind returns the stable identifier for a ledger rejection, or "Internal"
// for anything that is not one of the typed conditions.
func Kind(err error) string {
	for sentinel, kind := range kinds {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return "Internal"
}

package submit

import "errors"

var (
	ErrTxNotFound     = errors.New("transaction not found")
	ErrQueueFull      = errors.New("applier queue is full")
	ErrRateLimited    = errors.New("rate limited")
	ErrInvalidPayload = errors.New("invalid transaction payload")
)

package domain

import "errors"

var (
	// ErrConfiguration is returned when required endpoint or address settings are missing.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidInput is returned for malformed caller-supplied parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized is returned when a verify call has no valid caller identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRPC is returned when the chain endpoint is unreachable or answers with an error.
	// Callers may retry; already-credited deposits are deduplicated.
	ErrRPC = errors.New("rpc error")

	// ErrDecode marks a single malformed log entry.
	ErrDecode = errors.New("decode error")

	// ErrLedgerWrite marks a failed ledger transaction for a single event.
	ErrLedgerWrite = errors.New("ledger write error")

	// ErrAlreadyCredited is returned by ledger stores when the tx hash is already recorded.
	ErrAlreadyCredited = errors.New("transaction already credited")

	// ErrVerifyInProgress is returned when another verification for the same user holds the lock.
	ErrVerifyInProgress = errors.New("verification already in progress")
)

package domain

import "errors"

// Sentinel errors for the session and ledger. Callers classify failures
// with errors.Is; wrapped messages carry the detail.
var (
	// ErrValidation marks a locally rejected stake or parameter. Nothing
	// is sent to the server and no balance is touched.
	ErrValidation = errors.New("validation failed")

	// ErrPhase marks an operation attempted outside its valid phase.
	ErrPhase = errors.New("wrong phase")

	// ErrInsufficientBalance marks a stake exceeding the unreserved balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNotFound marks a cancel against a market with no stake.
	ErrNotFound = errors.New("not found")

	// ErrEmptyStakes marks a confirm or rebet with nothing staged.
	ErrEmptyStakes = errors.New("no stakes")

	// ErrConnection marks a transport or handshake failure. Retried with
	// backoff up to the cap, then surfaced as the terminal error state.
	ErrConnection = errors.New("connection failed")

	// ErrProtocol marks a malformed inbound frame. Logged and dropped.
	ErrProtocol = errors.New("protocol violation")

	// ErrStaleData marks a push for a non-current round. Discarded.
	ErrStaleData = errors.New("stale data")
)

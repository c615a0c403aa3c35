package domain

import (
	"errors"
	"fmt"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Connection errors
	ErrNotConnected   = errors.New("seller has no live connection")
	ErrRegistryClosed = errors.New("connection registry is shut down")

	// Auth errors
	ErrAuthFailed   = errors.New("authentication failed")
	ErrTokenMissing = errors.New("authentication token missing")
	ErrTokenExpired = errors.New("authentication token expired")

	// Broker errors
	ErrBrokerUnavailable = errors.New("event broker unreachable")

	// Client errors
	ErrClientClosed = errors.New("client explicitly disconnected")
)

// ─── Typed Errors ───────────────────────────────────────────────────────────

// InsufficientCreditsError is returned by the ledger when a seller's balance
// cannot cover an action's cost. It is an expected control-flow outcome, not
// a failure: no state is mutated and the HTTP layer maps it to 402.
type InsufficientCreditsError struct {
	Balance  int64
	Required int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: balance=%d required=%d", e.Balance, e.Required)
}

// UnknownActionTypeError is returned when an action type has no entry in the
// cost table. This is a configuration error and is always explicit — an
// unknown action is never silently treated as free.
type UnknownActionTypeError struct {
	ActionType string
}

func (e *UnknownActionTypeError) Error() string {
	return fmt.Sprintf("unknown action type: %q", e.ActionType)
}

// Package inventory implements the ticket inventory engine: capacity
// accounting per ticket type, short-lived reservations (holds), and
// the atomic allocation of reservations into orders and tickets. All
// operations are safe under concurrent invocation; the net effect of
// concurrent holds, commits and releases against one ticket type is
// equivalent to some serial order of those calls.
package inventory

import "errors"

// Sentinel errors returned by the engine. Handlers translate these
// into HTTP responses; none of them is swallowed internally.
var (
	// ErrNotFound is returned when a referenced ticket type, event,
	// reservation or order does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidQuantity is returned when a requested quantity is
	// below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrInsufficientAvailability is returned by Hold when the
	// requested quantity exceeds the available count, including
	// capacity claimed by other active holds. The caller should
	// re-query availability and let the user adjust the quantity.
	ErrInsufficientAvailability = errors.New("insufficient availability")

	// ErrReservationExpired is returned by Allocate when the
	// reservation's TTL has passed. The caller must start a new hold.
	ErrReservationExpired = errors.New("reservation expired")

	// ErrReservationAlreadyTerminal is returned when an operation
	// targets a reservation that was already released or expired.
	ErrReservationAlreadyTerminal = errors.New("reservation already terminal")

	// ErrCapacityExceeded is returned when the ledger's guarded
	// update rejects a commit that would overshoot total capacity.
	// After a valid, unexpired reservation this should be
	// structurally impossible; if it happens it is logged as a
	// severity-high anomaly and surfaced as a retryable condition.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrForbidden is returned when the caller does not own the
	// resource the operation targets.
	ErrForbidden = errors.New("forbidden")
)

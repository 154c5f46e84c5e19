package inventory

import (
	"context"
	"time"
)

// Ledger is the authoritative capacity accountant per ticket type.
// It is the only component that mutates committed counts, and it
// does so exclusively through the store's guarded CommitCapacity
// primitive, so two concurrent commits can never both succeed on
// stale availability.
type Ledger struct {
	store Store
	now   func() time.Time
}

// NewLedger returns a Ledger backed by the given store.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// Availability reports the current counters for a ticket type.
// Expired holds do not count as held even before the sweeper has
// reconciled them.
func (l *Ledger) Availability(ctx context.Context, ticketTypeID string) (Availability, error) {
	return l.store.Availability(ctx, ticketTypeID, l.now().UTC())
}

// Commit atomically increases the committed count by qty. It fails
// with ErrCapacityExceeded when committed + qty would exceed total
// capacity at the instant of application, and ErrNotFound when the
// ticket type does not exist. Commit only moves the counter; orders
// and tickets are the allocation engine's job.
func (l *Ledger) Commit(ctx context.Context, ticketTypeID string, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	return l.store.Within(ctx, func(tx Tx) error {
		if _, err := tx.TicketTypeForUpdate(ctx, ticketTypeID); err != nil {
			return err
		}
		ok, err := tx.CommitCapacity(ctx, ticketTypeID, qty)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCapacityExceeded
		}
		return nil
	})
}

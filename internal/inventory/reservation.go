package inventory

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/monitoring"
)

// Manager creates and retires reservations: short-lived claims that
// reduce the availability other buyers see before a sale commits.
// Admission decisions count committed capacity plus every other
// active hold under the same serialization guard the ledger uses, so
// two buyers racing for the last unit cannot both win.
type Manager struct {
	store      Store
	defaultTTL time.Duration
	now        func() time.Time
}

// NewManager returns a Manager. defaultTTL is applied when Hold is
// called with a non-positive ttl.
func NewManager(store Store, defaultTTL time.Duration) *Manager {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &Manager{store: store, defaultTTL: defaultTTL, now: time.Now}
}

// Hold claims qty units of a ticket type for userID until the TTL
// passes. Expired holds are reconciled first, inside the same
// transaction, so stale claims never block a new buyer. Fails with
// ErrInsufficientAvailability when qty exceeds what is left after
// committed capacity and other active holds.
func (m *Manager) Hold(ctx context.Context, ticketTypeID string, userID uint64, qty int, ttl time.Duration) (*model.Reservation, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	var res *model.Reservation
	err := m.store.Within(ctx, func(tx Tx) error {
		tt, err := tx.TicketTypeForUpdate(ctx, ticketTypeID)
		if err != nil {
			return err
		}
		now := m.now().UTC()
		// expire-on-read: reconcile overdue holds before admission
		if _, err := tx.ExpireDue(ctx, now, ticketTypeID); err != nil {
			return err
		}
		held, err := tx.ActiveHoldQuantity(ctx, ticketTypeID, now)
		if err != nil {
			return err
		}
		if qty > tt.TotalCapacity-tt.CommittedCount-held {
			return ErrInsufficientAvailability
		}
		res = &model.Reservation{
			ID:           uuid.NewString(),
			TicketTypeID: ticketTypeID,
			UserID:       userID,
			Quantity:     qty,
			State:        model.ReservationActive,
			ExpiresAt:    now.Add(ttl),
			CreatedAt:    now,
		}
		return tx.InsertReservation(ctx, res)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Release cancels an active reservation, returning its quantity to
// availability. Only the user who placed the hold may release it.
// Releasing a reservation that already reached a terminal state is a
// no-op, so retries are safe. Returns ErrNotFound for an unknown
// reservation.
func (m *Manager) Release(ctx context.Context, reservationID string, userID uint64) error {
	return m.store.Within(ctx, func(tx Tx) error {
		res, err := tx.Reservation(ctx, reservationID)
		if err != nil {
			return err
		}
		if res.UserID != userID {
			return ErrForbidden
		}
		if res.State.Terminal() {
			return nil
		}
		to := model.ReservationReleased
		if !res.ExpiresAt.After(m.now().UTC()) {
			to = model.ReservationExpired
		}
		_, err = tx.SetReservationState(ctx, reservationID, model.ReservationActive, to)
		return err
	})
}

// SweepExpired flips every overdue ACTIVE reservation to EXPIRED and
// reports how many were flipped. It runs under the same transaction
// guard as Hold, so it can never resurrect capacity that a
// concurrent allocation is committing.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	var n int
	err := m.store.Within(ctx, func(tx Tx) error {
		var err error
		n, err = tx.ExpireDue(ctx, m.now().UTC(), "")
		return err
	})
	return n, err
}

// Run periodically sweeps expired reservations until ctx is
// cancelled. Availability reads are already expiry-aware, so the
// sweep is bookkeeping rather than a correctness requirement.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := m.SweepExpired(ctx)
			if err != nil {
				log.Printf("inventory: sweep failed: %v", err)
				continue
			}
			if n > 0 {
				monitoring.SweptReservationsTotal.Add(float64(n))
				log.Printf("inventory: expired %d overdue reservations", n)
			}
		}
	}
}

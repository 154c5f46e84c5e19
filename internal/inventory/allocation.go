package inventory

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/monitoring"
)

// Engine converts a still-active, unexpired reservation into a
// permanent order plus one ticket row per unit, exactly once. The
// whole conversion runs inside a single store transaction: marking
// the reservation committed, committing ledger capacity, and
// inserting the order and tickets either all succeed or leave no
// trace. A repeated call for an already-committed reservation
// returns the original order instead of creating a duplicate.
type Engine struct {
	store Store
	now   func() time.Time
}

// NewEngine returns an Engine backed by the given store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// Allocate finalizes the reservation into an order owned by buyerID.
// The unit price is snapshotted from the ticket type at commit time.
// paymentRef is the external payment confirmation carried on the
// order. Fails with ErrForbidden when the reservation belongs to a
// different user, ErrReservationExpired when its TTL has passed, and
// ErrReservationAlreadyTerminal when it was released or expired.
func (e *Engine) Allocate(ctx context.Context, reservationID string, buyerID uint64, paymentRef string) (*model.Order, error) {
	var order *model.Order
	err := e.store.Within(ctx, func(tx Tx) error {
		res, err := tx.Reservation(ctx, reservationID)
		if err != nil {
			return err
		}
		if res.UserID != buyerID {
			return ErrForbidden
		}
		switch res.State {
		case model.ReservationCommitted:
			// Idempotent replay: hand back the order the first
			// successful call created.
			existing, err := tx.OrderByReservation(ctx, reservationID)
			if err != nil {
				return err
			}
			order = existing
			return nil
		case model.ReservationReleased, model.ReservationExpired:
			return ErrReservationAlreadyTerminal
		}
		now := e.now().UTC()
		if !res.ExpiresAt.After(now) {
			return ErrReservationExpired
		}
		tt, err := tx.TicketTypeForUpdate(ctx, res.TicketTypeID)
		if err != nil {
			return err
		}
		ok, err := tx.SetReservationState(ctx, reservationID, model.ReservationActive, model.ReservationCommitted)
		if err != nil {
			return err
		}
		if !ok {
			return ErrReservationAlreadyTerminal
		}
		ok, err = tx.CommitCapacity(ctx, res.TicketTypeID, res.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			// A valid unexpired hold was admitted against capacity
			// the ledger now refuses; the hold accounting invariant
			// is broken somewhere.
			monitoring.CapacityAnomaliesTotal.Inc()
			log.Printf("SEVERE: inventory: ledger rejected commit for valid reservation %s (ticket type %s, qty %d)",
				reservationID, res.TicketTypeID, res.Quantity)
			return ErrCapacityExceeded
		}
		line := model.OrderLine{TicketTypeID: tt.ID, Quantity: res.Quantity, UnitPrice: tt.Price}
		order = &model.Order{
			ID:            uuid.NewString(),
			UserID:        buyerID,
			ReservationID: reservationID,
			Status:        model.OrderCompleted,
			Lines:         []model.OrderLine{line},
			Total:         line.Subtotal(),
			PaymentRef:    paymentRef,
			CreatedAt:     now,
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		tickets := make([]model.Ticket, 0, res.Quantity)
		for i := 0; i < res.Quantity; i++ {
			tickets = append(tickets, model.Ticket{
				ID:           uuid.NewString(),
				OrderID:      order.ID,
				TicketTypeID: tt.ID,
				UserID:       buyerID,
				CreatedAt:    now,
			})
		}
		return tx.InsertTickets(ctx, tickets)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

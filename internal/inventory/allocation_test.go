package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/model"
)

func TestAllocateCreatesOrderAndTickets(t *testing.T) {
	store, ttID := seedTicketType(2)
	mgr := NewManager(store, 5*time.Minute)
	eng := NewEngine(store)
	ctx := context.Background()

	res, err := mgr.Hold(ctx, ttID, 7, 2, 0)
	require.NoError(t, err)

	order, err := eng.Allocate(ctx, res.ID, 7, "pay_123")
	require.NoError(t, err)
	assert.Equal(t, model.OrderCompleted, order.Status)
	assert.Equal(t, res.ID, order.ReservationID)
	assert.Equal(t, "pay_123", order.PaymentRef)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, 2, order.Lines[0].Quantity)
	assert.True(t, order.Total.Equal(decimal.NewFromFloat(51.00)), "total %s", order.Total)

	tickets, err := store.TicketsForUser(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, tickets, 2)

	// The hold converted into committed capacity.
	av, err := store.Availability(ctx, ttID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 2, av.Committed)
	assert.Equal(t, 0, av.Held)
	assert.Equal(t, 0, av.Available)
}

func TestAllocateIsIdempotent(t *testing.T) {
	store, ttID := seedTicketType(3)
	mgr := NewManager(store, 5*time.Minute)
	eng := NewEngine(store)
	ctx := context.Background()

	res, err := mgr.Hold(ctx, ttID, 7, 2, 0)
	require.NoError(t, err)

	first, err := eng.Allocate(ctx, res.ID, 7, "pay_123")
	require.NoError(t, err)
	replay, err := eng.Allocate(ctx, res.ID, 7, "pay_456")
	require.NoError(t, err)

	assert.Equal(t, first.ID, replay.ID)
	assert.Equal(t, first.PaymentRef, replay.PaymentRef)

	// No duplicate tickets and no double commit.
	tickets, err := store.TicketsForUser(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, tickets, 2)
	av, err := store.Availability(ctx, ttID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 2, av.Committed)
}

func TestAllocateExpiredReservation(t *testing.T) {
	store, ttID := seedTicketType(2)
	mgr := NewManager(store, 5*time.Minute)
	eng := NewEngine(store)
	ctx := context.Background()

	res, err := mgr.Hold(ctx, ttID, 7, 2, 60*time.Second)
	require.NoError(t, err)

	eng.now = func() time.Time { return res.ExpiresAt.Add(time.Second) }

	_, err = eng.Allocate(ctx, res.ID, 7, "")
	assert.ErrorIs(t, err, ErrReservationExpired)

	// Nothing was committed and the freed capacity is sellable again.
	av, err := store.Availability(ctx, ttID, eng.now())
	require.NoError(t, err)
	assert.Equal(t, 0, av.Committed)
	assert.Equal(t, 2, av.Available)
}

func TestAllocateReleasedReservation(t *testing.T) {
	store, ttID := seedTicketType(2)
	mgr := NewManager(store, 5*time.Minute)
	eng := NewEngine(store)
	ctx := context.Background()

	res, err := mgr.Hold(ctx, ttID, 7, 1, 0)
	require.NoError(t, err)
	require.NoError(t, mgr.Release(ctx, res.ID, 7))

	_, err = eng.Allocate(ctx, res.ID, 7, "")
	assert.ErrorIs(t, err, ErrReservationAlreadyTerminal)
}

func TestAllocateWrongBuyer(t *testing.T) {
	store, ttID := seedTicketType(2)
	mgr := NewManager(store, 5*time.Minute)
	eng := NewEngine(store)
	ctx := context.Background()

	res, err := mgr.Hold(ctx, ttID, 7, 1, 0)
	require.NoError(t, err)

	_, err = eng.Allocate(ctx, res.ID, 8, "")
	assert.ErrorIs(t, err, ErrForbidden)

	// The hold is still intact for its owner.
	order, err := eng.Allocate(ctx, res.ID, 7, "")
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
}

// failingStore wraps MemoryStore and injects a failure into
// InsertTickets, simulating a crash in the middle of an allocation.
type failingStore struct {
	*MemoryStore
	failInsertTickets bool
}

type failingTx struct {
	Tx
	s *failingStore
}

func (s *failingStore) Within(ctx context.Context, fn func(tx Tx) error) error {
	return s.MemoryStore.Within(ctx, func(tx Tx) error {
		return fn(&failingTx{Tx: tx, s: s})
	})
}

func (t *failingTx) InsertTickets(ctx context.Context, tickets []model.Ticket) error {
	if t.s.failInsertTickets {
		return errors.New("simulated insert failure")
	}
	return t.Tx.InsertTickets(ctx, tickets)
}

// guardedStore wraps MemoryStore and forces the ledger's capacity
// guard to refuse a commit, simulating hold accounting and the ledger
// disagreeing about a valid reservation.
type guardedStore struct {
	*MemoryStore
	refuseCommit bool
}

type guardedTx struct {
	Tx
	s *guardedStore
}

func (s *guardedStore) Within(ctx context.Context, fn func(tx Tx) error) error {
	return s.MemoryStore.Within(ctx, func(tx Tx) error {
		return fn(&guardedTx{Tx: tx, s: s})
	})
}

func (t *guardedTx) CommitCapacity(ctx context.Context, ticketTypeID string, qty int) (bool, error) {
	if t.s.refuseCommit {
		return false, nil
	}
	return t.Tx.CommitCapacity(ctx, ticketTypeID, qty)
}

func TestAllocateCapacityGuardRefusalRollsBack(t *testing.T) {
	mem, ttID := seedTicketType(2)
	store := &guardedStore{MemoryStore: mem, refuseCommit: true}
	mgr := NewManager(store, 5*time.Minute)
	eng := NewEngine(store)
	ctx := context.Background()

	res, err := mgr.Hold(ctx, ttID, 7, 1, 0)
	require.NoError(t, err)

	_, err = eng.Allocate(ctx, res.ID, 7, "")
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	// The whole conversion rolled back: nothing committed, no order or
	// tickets, and the hold is still active.
	av, err := mem.Availability(ctx, ttID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 0, av.Committed)
	assert.Equal(t, 1, av.Held)

	tickets, err := mem.TicketsForUser(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, tickets)

	// The surface is retryable: once the guard agrees again, the same
	// reservation converts.
	store.refuseCommit = false
	order, err := eng.Allocate(ctx, res.ID, 7, "")
	require.NoError(t, err)
	assert.Equal(t, res.ID, order.ReservationID)
}

func TestAllocateMidwayFailureLeavesNoTrace(t *testing.T) {
	mem, ttID := seedTicketType(2)
	store := &failingStore{MemoryStore: mem, failInsertTickets: true}
	mgr := NewManager(store, 5*time.Minute)
	eng := NewEngine(store)
	ctx := context.Background()

	res, err := mgr.Hold(ctx, ttID, 7, 2, 0)
	require.NoError(t, err)

	_, err = eng.Allocate(ctx, res.ID, 7, "pay_123")
	require.Error(t, err)

	// All-or-nothing: the reservation is still active, nothing was
	// committed, and no order or tickets exist.
	av, err := mem.Availability(ctx, ttID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 0, av.Committed)
	assert.Equal(t, 2, av.Held)

	tickets, err := mem.TicketsForUser(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, tickets)

	// Once the fault clears, the same reservation converts cleanly.
	store.failInsertTickets = false
	order, err := eng.Allocate(ctx, res.ID, 7, "pay_123")
	require.NoError(t, err)
	assert.Len(t, order.Lines, 1)

	av, err = mem.Availability(ctx, ttID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 2, av.Committed)
	assert.Equal(t, 0, av.Held)
}

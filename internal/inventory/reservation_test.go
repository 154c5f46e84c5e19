package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/model"
)

func TestHoldReducesAvailability(t *testing.T) {
	store, ttID := seedTicketType(10)
	mgr := NewManager(store, 5*time.Minute)
	ctx := context.Background()

	res, err := mgr.Hold(ctx, ttID, 7, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationActive, res.State)
	assert.Equal(t, 3, res.Quantity)
	assert.True(t, res.ExpiresAt.After(time.Now()))

	av, err := store.Availability(ctx, ttID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 3, av.Held)
	assert.Equal(t, 7, av.Available)
	assert.Equal(t, 0, av.Committed)
}

func TestHoldValidation(t *testing.T) {
	store, ttID := seedTicketType(10)
	mgr := NewManager(store, 5*time.Minute)
	ctx := context.Background()

	_, err := mgr.Hold(ctx, ttID, 7, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = mgr.Hold(ctx, uuid.NewString(), 7, 1, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHoldRejectsWhenOthersHoldRemainder(t *testing.T) {
	store, ttID := seedTicketType(5)
	mgr := NewManager(store, 5*time.Minute)
	ctx := context.Background()

	_, err := mgr.Hold(ctx, ttID, 1, 4, 0)
	require.NoError(t, err)

	// Four of five units are claimed; two more cannot be admitted.
	_, err = mgr.Hold(ctx, ttID, 2, 2, 0)
	assert.ErrorIs(t, err, ErrInsufficientAvailability)

	// The last unit is still available.
	_, err = mgr.Hold(ctx, ttID, 2, 1, 0)
	assert.NoError(t, err)
}

func TestConcurrentHoldsLastUnitExactlyOneWins(t *testing.T) {
	const workers = 10

	store, ttID := seedTicketType(1)
	mgr := NewManager(store, 5*time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(user uint64) {
			defer wg.Done()
			_, err := mgr.Hold(ctx, ttID, user, 1, 0)
			results <- err
		}(uint64(i + 1))
	}
	wg.Wait()
	close(results)

	won := 0
	for err := range results {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientAvailability)
		}
	}
	assert.Equal(t, 1, won)
}

func TestReleaseReturnsCapacityAndIsIdempotent(t *testing.T) {
	store, ttID := seedTicketType(2)
	mgr := NewManager(store, 5*time.Minute)
	ctx := context.Background()

	res, err := mgr.Hold(ctx, ttID, 7, 2, 0)
	require.NoError(t, err)

	require.NoError(t, mgr.Release(ctx, res.ID, 7))

	av, err := store.Availability(ctx, ttID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 0, av.Held)
	assert.Equal(t, 2, av.Available)

	// Releasing again is a no-op, not an error.
	require.NoError(t, mgr.Release(ctx, res.ID, 7))

	// Only the hold's owner may release it.
	assert.ErrorIs(t, mgr.Release(ctx, res.ID, 8), ErrForbidden)

	assert.ErrorIs(t, mgr.Release(ctx, uuid.NewString(), 7), ErrNotFound)
}

func TestExpiredHoldReturnsCapacity(t *testing.T) {
	store, ttID := seedTicketType(2)
	mgr := NewManager(store, 5*time.Minute)
	ctx := context.Background()

	res, err := mgr.Hold(ctx, ttID, 7, 2, 60*time.Second)
	require.NoError(t, err)

	// Move the manager's clock past the TTL.
	mgr.now = func() time.Time { return res.ExpiresAt.Add(time.Second) }

	// A new buyer can claim the full capacity; admission reconciles
	// the overdue hold inside the same transaction.
	res2, err := mgr.Hold(ctx, ttID, 8, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, res2.Quantity)

	// The overdue reservation was flipped to EXPIRED, not deleted.
	var state model.ReservationState
	err = store.Within(ctx, func(tx Tx) error {
		r, err := tx.Reservation(ctx, res.ID)
		if err != nil {
			return err
		}
		state = r.State
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, model.ReservationExpired, state)
}

func TestSweepExpired(t *testing.T) {
	store, ttID := seedTicketType(10)
	mgr := NewManager(store, 5*time.Minute)
	ctx := context.Background()

	r1, err := mgr.Hold(ctx, ttID, 1, 2, time.Minute)
	require.NoError(t, err)
	r2, err := mgr.Hold(ctx, ttID, 2, 3, time.Hour)
	require.NoError(t, err)

	mgr.now = func() time.Time { return r1.ExpiresAt.Add(time.Second) }

	n, err := mgr.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// The long-lived hold is untouched.
	av, err := store.Availability(ctx, ttID, mgr.now())
	require.NoError(t, err)
	assert.Equal(t, r2.Quantity, av.Held)

	// Nothing left to sweep.
	n, err = mgr.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// seedTicketType creates an event with one ticket type of the given
// capacity and returns the store plus the ticket type id.
func seedTicketType(capacity int) (*MemoryStore, string) {
	store := NewMemoryStore()
	eventID := uuid.NewString()
	store.AddEvent(model.Event{
		ID:          eventID,
		OrganizerID: 1,
		Title:       "Harbour Lights Festival",
		StartsAt:    time.Now().Add(48 * time.Hour),
	})
	ttID := uuid.NewString()
	store.AddTicketType(model.TicketType{
		ID:            ttID,
		EventID:       eventID,
		Name:          "General Admission",
		Price:         decimal.NewFromFloat(25.50),
		TotalCapacity: capacity,
	})
	return store, ttID
}

func TestLedgerCommitWithinCapacity(t *testing.T) {
	store, ttID := seedTicketType(3)
	ledger := NewLedger(store)
	ctx := context.Background()

	require.NoError(t, ledger.Commit(ctx, ttID, 2))

	av, err := ledger.Availability(ctx, ttID)
	require.NoError(t, err)
	assert.Equal(t, 2, av.Committed)
	assert.Equal(t, 1, av.Available)
}

func TestLedgerCommitRejectsOverCapacity(t *testing.T) {
	store, ttID := seedTicketType(2)
	ledger := NewLedger(store)
	ctx := context.Background()

	require.NoError(t, ledger.Commit(ctx, ttID, 2))
	assert.ErrorIs(t, ledger.Commit(ctx, ttID, 1), ErrCapacityExceeded)

	// A failed commit must not move the counter.
	av, err := ledger.Availability(ctx, ttID)
	require.NoError(t, err)
	assert.Equal(t, 2, av.Committed)
	assert.Equal(t, 0, av.Available)
}

func TestLedgerCommitValidation(t *testing.T) {
	store, ttID := seedTicketType(5)
	ledger := NewLedger(store)
	ctx := context.Background()

	assert.ErrorIs(t, ledger.Commit(ctx, ttID, 0), ErrInvalidQuantity)
	assert.ErrorIs(t, ledger.Commit(ctx, ttID, -3), ErrInvalidQuantity)
	assert.ErrorIs(t, ledger.Commit(ctx, uuid.NewString(), 1), ErrNotFound)
}

func TestLedgerConcurrentCommitsNeverOversell(t *testing.T) {
	const capacity = 5
	const workers = 20

	store, ttID := seedTicketType(capacity)
	ledger := NewLedger(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- ledger.Commit(ctx, ttID, 1)
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrCapacityExceeded)
		}
	}
	assert.Equal(t, capacity, succeeded)

	av, err := ledger.Availability(ctx, ttID)
	require.NoError(t, err)
	assert.Equal(t, capacity, av.Committed)
	assert.Equal(t, 0, av.Available)
}

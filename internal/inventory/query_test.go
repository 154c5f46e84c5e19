package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListAvailabilityReflectsHoldsAndCommits(t *testing.T) {
	store, ttID := seedTicketType(10)
	mgr := NewManager(store, 5*time.Minute)
	eng := NewEngine(store)
	facade := NewFacade(store)
	ctx := context.Background()

	// One committed sale of 2, one active hold of 3.
	sold, err := mgr.Hold(ctx, ttID, 7, 2, 0)
	require.NoError(t, err)
	_, err = eng.Allocate(ctx, sold.ID, 7, "")
	require.NoError(t, err)
	_, err = mgr.Hold(ctx, ttID, 8, 3, 0)
	require.NoError(t, err)

	av, err := facade.AvailabilityFor(ctx, ttID)
	require.NoError(t, err)
	assert.Equal(t, 10, av.Total)
	assert.Equal(t, 2, av.Committed)
	assert.Equal(t, 3, av.Held)
	assert.Equal(t, 5, av.Available)

	var eventID string
	store.mu.Lock()
	eventID = store.ticketTypes[ttID].EventID
	store.mu.Unlock()

	list, err := facade.ListAvailability(ctx, eventID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 5, list[0].Available)
	assert.Equal(t, "General Admission", list[0].Name)

	_, err = facade.ListAvailability(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTicketsForUserIsolation(t *testing.T) {
	store, ttID := seedTicketType(10)
	mgr := NewManager(store, 5*time.Minute)
	eng := NewEngine(store)
	facade := NewFacade(store)
	ctx := context.Background()

	for _, buyer := range []uint64{7, 8} {
		res, err := mgr.Hold(ctx, ttID, buyer, 2, 0)
		require.NoError(t, err)
		_, err = eng.Allocate(ctx, res.ID, buyer, "")
		require.NoError(t, err)
	}

	mine, err := facade.TicketsForUser(ctx, 7)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, tk := range mine {
		assert.Equal(t, "Harbour Lights Festival", tk.EventTitle)
		assert.False(t, tk.Used)
	}

	// A user with no purchases sees an empty list, never someone
	// else's tickets.
	none, err := facade.TicketsForUser(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestOrganizerViewOwnershipCheck(t *testing.T) {
	store, ttID := seedTicketType(10)
	mgr := NewManager(store, 5*time.Minute)
	eng := NewEngine(store)
	facade := NewFacade(store)
	ctx := context.Background()

	store.AddUser(7, "buyer@example.com")

	res, err := mgr.Hold(ctx, ttID, 7, 2, 0)
	require.NoError(t, err)
	_, err = eng.Allocate(ctx, res.ID, 7, "")
	require.NoError(t, err)

	var eventID string
	store.mu.Lock()
	eventID = store.ticketTypes[ttID].EventID
	store.mu.Unlock()

	// The seeded event belongs to organizer 1.
	roster, err := facade.OrganizerView(ctx, eventID, 1)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "buyer@example.com", roster[0].Email)
	assert.Equal(t, uint64(7), roster[0].UserID)

	// Any other caller is rejected, organizer role or not.
	_, err = facade.OrganizerView(ctx, eventID, 2)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = facade.OrganizerView(ctx, uuid.NewString(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

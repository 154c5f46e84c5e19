package inventory

import (
	"context"
	"time"
)

// Facade is the read-only projection served to the presentation
// layer. Availability numbers reflect committed capacity plus active
// holds, so they never promise units a concurrent buyer already
// claimed.
type Facade struct {
	store Store
	now   func() time.Time
}

// NewFacade returns a Facade backed by the given store.
func NewFacade(store Store) *Facade {
	return &Facade{store: store, now: time.Now}
}

// AvailabilityFor reports the full capacity breakdown of one ticket
// type. Returns ErrNotFound for an unknown id.
func (f *Facade) AvailabilityFor(ctx context.Context, ticketTypeID string) (Availability, error) {
	return f.store.Availability(ctx, ticketTypeID, f.now().UTC())
}

// ListAvailability reports name, price and available count for every
// ticket type of an event. Returns ErrNotFound for an unknown event.
func (f *Facade) ListAvailability(ctx context.Context, eventID string) ([]TicketTypeAvailability, error) {
	return f.store.ListAvailability(ctx, eventID, f.now().UTC())
}

// TicketsForUser returns the caller's own tickets with joined order,
// ticket type and event data. Tickets owned by other users are never
// included.
func (f *Facade) TicketsForUser(ctx context.Context, userID uint64) ([]TicketDetail, error) {
	return f.store.TicketsForUser(ctx, userID)
}

// OrganizerView returns the attendee roster of an event. Fails with
// ErrForbidden unless requesterID owns the event.
func (f *Facade) OrganizerView(ctx context.Context, eventID string, requesterID uint64) ([]Attendee, error) {
	organizer, err := f.store.EventOrganizer(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if organizer != requesterID {
		return nil, ErrForbidden
	}
	return f.store.AttendeeRoster(ctx, eventID)
}

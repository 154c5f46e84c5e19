package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// Availability is the ledger's read projection for one ticket type.
// Available is always Total - Committed - Held and never negative.
type Availability struct {
	TicketTypeID string `json:"ticket_type_id"`
	Total        int    `json:"total"`
	Committed    int    `json:"committed"`
	Held         int    `json:"held"`
	Available    int    `json:"available"`
}

// TicketTypeAvailability is one row of the per-event availability
// listing served to buyers.
type TicketTypeAvailability struct {
	TicketTypeID string          `json:"ticket_type_id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Available    int             `json:"available"`
}

// TicketDetail is a ticket joined with its order, ticket type and
// event, as shown in the "my tickets" view.
type TicketDetail struct {
	TicketID       string     `json:"ticket_id"`
	OrderID        string     `json:"order_id"`
	EventID        string     `json:"event_id"`
	EventTitle     string     `json:"event_title"`
	TicketTypeName string     `json:"ticket_type_name"`
	Used           bool       `json:"used"`
	UsedAt         *time.Time `json:"used_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Attendee is one row of the organizer's attendee roster.
type Attendee struct {
	TicketID       string     `json:"ticket_id"`
	TicketTypeName string     `json:"ticket_type_name"`
	UserID         uint64     `json:"user_id"`
	Email          string     `json:"email"`
	Used           bool       `json:"used"`
	UsedAt         *time.Time `json:"used_at,omitempty"`
}

// Tx exposes the conditional primitives the engine composes inside
// one atomic unit. Every mutation is guarded: state transitions and
// capacity commits report via their boolean result whether the guard
// held, so a blind read-then-write is never possible through this
// interface. Implementations must serialize concurrent transactions
// that touch the same ticket type row.
type Tx interface {
	// TicketTypeForUpdate loads a ticket type and locks it against
	// concurrent transactions for the remainder of the unit. Returns
	// ErrNotFound when no such ticket type exists.
	TicketTypeForUpdate(ctx context.Context, id string) (*model.TicketType, error)

	// ActiveHoldQuantity sums the quantities of all ACTIVE,
	// unexpired reservations for the ticket type as of now.
	ActiveHoldQuantity(ctx context.Context, ticketTypeID string, now time.Time) (int, error)

	// ExpireDue flips ACTIVE reservations whose expiry has passed to
	// EXPIRED and reports how many were flipped. An empty
	// ticketTypeID expires across all ticket types.
	ExpireDue(ctx context.Context, now time.Time, ticketTypeID string) (int, error)

	// Reservation loads a reservation with the same locking
	// semantics as TicketTypeForUpdate. Returns ErrNotFound when it
	// does not exist.
	Reservation(ctx context.Context, id string) (*model.Reservation, error)

	// InsertReservation persists a new reservation row.
	InsertReservation(ctx context.Context, res *model.Reservation) error

	// SetReservationState transitions a reservation from one state
	// to another. It reports false when the reservation was not in
	// the expected from state at the instant of application.
	SetReservationState(ctx context.Context, id string, from, to model.ReservationState) (bool, error)

	// CommitCapacity increases the committed count of a ticket type
	// by qty. It reports false when committed + qty would exceed
	// total capacity; the check and the increment are a single
	// atomic operation.
	CommitCapacity(ctx context.Context, ticketTypeID string, qty int) (bool, error)

	// InsertOrder persists an order together with its lines.
	InsertOrder(ctx context.Context, o *model.Order) error

	// InsertTickets persists one row per issued ticket.
	InsertTickets(ctx context.Context, tickets []model.Ticket) error

	// OrderByReservation loads the order allocated from the given
	// reservation. Returns ErrNotFound when no order exists.
	OrderByReservation(ctx context.Context, reservationID string) (*model.Order, error)
}

// Store is the persistence contract of the inventory engine. Within
// runs fn inside a transaction: either every mutation fn performed is
// visible afterwards or none is, and no other caller observes an
// intermediate state. The remaining methods are read-only
// projections used by the ledger and the query facade.
type Store interface {
	Within(ctx context.Context, fn func(tx Tx) error) error

	// Availability reports capacity counters for one ticket type as
	// of now. Returns ErrNotFound for an unknown ticket type.
	Availability(ctx context.Context, ticketTypeID string, now time.Time) (Availability, error)

	// ListAvailability reports availability for every ticket type of
	// an event. Returns ErrNotFound for an unknown event.
	ListAvailability(ctx context.Context, eventID string, now time.Time) ([]TicketTypeAvailability, error)

	// TicketsForUser returns the tickets owned by userID, joined
	// with order, ticket type and event data. Never returns tickets
	// owned by anyone else.
	TicketsForUser(ctx context.Context, userID uint64) ([]TicketDetail, error)

	// AttendeeRoster returns every issued ticket for an event along
	// with its owner. Authorization is the facade's job.
	AttendeeRoster(ctx context.Context, eventID string) ([]Attendee, error)

	// EventOrganizer returns the owning user of an event. Returns
	// ErrNotFound for an unknown event.
	EventOrganizer(ctx context.Context, eventID string) (uint64, error)
}

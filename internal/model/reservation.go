package model

import "time"

// ReservationState enumerates the lifecycle of a reservation. A
// reservation starts ACTIVE and moves to exactly one terminal state:
// COMMITTED via allocation, RELEASED via explicit cancel, or EXPIRED
// when its TTL passes. Terminal states are final.
type ReservationState string

const (
	ReservationActive    ReservationState = "ACTIVE"
	ReservationCommitted ReservationState = "COMMITTED"
	ReservationReleased  ReservationState = "RELEASED"
	ReservationExpired   ReservationState = "EXPIRED"
)

// Terminal reports whether the state permits no further transitions.
func (s ReservationState) Terminal() bool {
	return s == ReservationCommitted || s == ReservationReleased || s == ReservationExpired
}

// Reservation represents a temporary claim on ticket inventory made
// during checkout, as stored in the `reservations` table. While
// ACTIVE and unexpired it reduces the availability other buyers see
// without committing a sale. Holds are advisory: a client must
// re-validate availability if the hold expires before checkout
// completes.
//
// Fields:
//  ID           – UUID primary key.
//  TicketTypeID – ticket type being held.
//  UserID       – user who holds the tickets.
//  Quantity     – number of units held (>= 1).
//  State        – current lifecycle state.
//  ExpiresAt    – hard deadline after which the hold no longer counts.
//  CreatedAt    – when the hold was created.
type Reservation struct {
	ID           string           // reservations.id
	TicketTypeID string           // reservations.ticket_type_id
	UserID       uint64           // reservations.user_id
	Quantity     int              // reservations.quantity
	State        ReservationState // reservations.state
	ExpiresAt    time.Time        // reservations.expires_at
	CreatedAt    time.Time        // reservations.created_at
}

package model

import "time"

// Ticket represents one individually redeemable admission unit as
// stored in the `tickets` table. Exactly `quantity` rows exist per
// order line. The used flag transitions false to true at most once
// at check-in; undoing a check-in is a separate audited organizer
// action.
//
// Fields:
//  ID           – UUID primary key.
//  OrderID      – order this ticket was issued under.
//  TicketTypeID – admission category.
//  UserID       – owning (purchasing) user.
//  Used         – whether the ticket has been redeemed at the door.
//  UsedAt       – when the ticket was redeemed (null until check-in).
//  CreatedAt    – creation timestamp.
type Ticket struct {
	ID           string     // tickets.id
	OrderID      string     // tickets.order_id
	TicketTypeID string     // tickets.ticket_type_id
	UserID       uint64     // tickets.user_id
	Used         bool       // tickets.used
	UsedAt       *time.Time // tickets.used_at (nullable)
	CreatedAt    time.Time  // tickets.created_at
}

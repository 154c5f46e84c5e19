package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketType represents one purchasable admission category of an
// event (e.g. "General", "VIP") as stored in the `ticket_types`
// table. TotalCapacity is immutable after creation; CommittedCount
// only ever grows through the inventory ledger's guarded update, so
// `committed_count <= total_capacity` holds at all times. Available
// capacity is derived: total minus committed minus active holds.
//
// Fields:
//  ID             – UUID primary key.
//  EventID        – event this category belongs to.
//  Name           – display name of the category.
//  Description    – optional description.
//  Price          – unit price; snapshotted into orders at allocation.
//  TotalCapacity  – maximum number of tickets that may ever be sold.
//  CommittedCount – tickets permanently sold so far.
//  CreatedAt      – creation timestamp.
type TicketType struct {
	ID             string          // ticket_types.id
	EventID        string          // ticket_types.event_id
	Name           string          // ticket_types.name
	Description    *string         // ticket_types.description (nullable)
	Price          decimal.Decimal // ticket_types.price
	TotalCapacity  int             // ticket_types.total_capacity
	CommittedCount int             // ticket_types.committed_count
	CreatedAt      time.Time       // ticket_types.created_at
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus enumerates the states of a completed purchase. Orders
// are created COMPLETED by the allocation engine; REFUNDED exists in
// the model as an extension point but no operation performs the
// transition or the matching ledger reversal yet.
type OrderStatus string

const (
	OrderCompleted OrderStatus = "COMPLETED"
	OrderRefunded  OrderStatus = "REFUNDED"
)

// OrderLine is one (ticket type, quantity, unit price) entry of an
// order, stored in the `order_lines` table. The unit price is
// snapshotted at allocation time and never re-read from the ticket
// type.
type OrderLine struct {
	TicketTypeID string          // order_lines.ticket_type_id
	Quantity     int             // order_lines.quantity
	UnitPrice    decimal.Decimal // order_lines.unit_price
}

// Subtotal returns quantity times the snapshotted unit price.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order represents a completed purchase as stored in the `orders`
// table, one per checkout transaction. The reservation reference is
// unique, which anchors allocation idempotency: a second allocation
// attempt for the same reservation finds this row instead of
// creating a duplicate. Total always equals the sum of line
// subtotals at commit time.
//
// Fields:
//  ID            – UUID primary key.
//  UserID        – buyer.
//  ReservationID – reservation this order was allocated from (unique).
//  Status        – COMPLETED or REFUNDED.
//  Lines         – snapshotted purchase lines.
//  Total         – sum of line subtotals.
//  PaymentRef    – external payment confirmation reference.
//  CreatedAt     – creation timestamp.
type Order struct {
	ID            string          // orders.id
	UserID        uint64          // orders.user_id
	ReservationID string          // orders.reservation_id
	Status        OrderStatus     // orders.status
	Lines         []OrderLine     // order_lines rows
	Total         decimal.Decimal // orders.total
	PaymentRef    string          // orders.payment_ref
	CreatedAt     time.Time       // orders.created_at
}

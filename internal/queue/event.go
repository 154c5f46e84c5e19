// Package queue defines message payloads exchanged over the message broker.
package queue

// OrderCompletedEvent is published when a reservation is successfully
// converted into an order. It carries enough information for downstream
// consumers to log, notify, or trigger analytics without querying the
// primary database.
type OrderCompletedEvent struct {
	OrderID       string `json:"order_id"`
	ReservationID string `json:"reservation_id"`
	UserID        uint64 `json:"user_id"`
	EventID       string `json:"event_id"`
	EventTitle    string `json:"event_title"`
	TicketType    string `json:"ticket_type"`
	Quantity      int    `json:"quantity"`
	Total         string `json:"total"`
	CompletedAt   string `json:"completed_at"`
}

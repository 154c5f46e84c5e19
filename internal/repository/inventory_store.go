package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-ticketing/internal/inventory"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// InventoryStore is the MySQL implementation of inventory.Store. The
// serialization the engine requires comes from InnoDB row locks:
// TicketTypeForUpdate and Reservation issue SELECT ... FOR UPDATE, so
// two transactions working on the same ticket type queue up behind
// each other, and every counter mutation is a guarded UPDATE whose
// condition is evaluated at the instant of application.
type InventoryStore struct {
	db *sql.DB
}

// NewInventoryStore returns an InventoryStore bound to the database.
func NewInventoryStore(db *sql.DB) *InventoryStore { return &InventoryStore{db: db} }

// DB exposes the underlying handle for callers that need to compose
// their own transactions (e.g. event creation with ticket types).
func (s *InventoryStore) DB() *sql.DB { return s.db }

// Within implements inventory.Store. The transaction is rolled back
// whenever fn returns an error, so a mid-sequence failure leaves the
// system in its pre-call state.
func (s *InventoryStore) Within(ctx context.Context, fn func(tx inventory.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&invTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// holdSubquery computes the quantity claimed by unexpired ACTIVE
// reservations. Counting expires_at > now instead of waiting for the
// sweeper makes every availability read expiry-aware.
const holdSubquery = `COALESCE((SELECT SUM(r.quantity) FROM reservations r
    WHERE r.ticket_type_id = tt.id AND r.state = 'ACTIVE' AND r.expires_at > ?), 0)`

// Availability implements inventory.Store.
func (s *InventoryStore) Availability(ctx context.Context, ticketTypeID string, now time.Time) (inventory.Availability, error) {
	const q = `SELECT tt.total_capacity, tt.committed_count, ` + holdSubquery + `
               FROM ticket_types tt WHERE tt.id = ?`
	var av inventory.Availability
	av.TicketTypeID = ticketTypeID
	err := s.db.QueryRowContext(ctx, q, now.UTC(), ticketTypeID).
		Scan(&av.Total, &av.Committed, &av.Held)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return inventory.Availability{}, inventory.ErrNotFound
		}
		return inventory.Availability{}, err
	}
	av.Available = av.Total - av.Committed - av.Held
	return av, nil
}

// ListAvailability implements inventory.Store.
func (s *InventoryStore) ListAvailability(ctx context.Context, eventID string, now time.Time) ([]inventory.TicketTypeAvailability, error) {
	// Verify the event exists first so an unknown id is NotFound
	// rather than an empty list.
	if _, err := s.EventOrganizer(ctx, eventID); err != nil {
		return nil, err
	}
	const q = `SELECT tt.id, tt.name, tt.price, tt.total_capacity, tt.committed_count, ` + holdSubquery + `
               FROM ticket_types tt WHERE tt.event_id = ? ORDER BY tt.name`
	rows, err := s.db.QueryContext(ctx, q, now.UTC(), eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []inventory.TicketTypeAvailability{}
	for rows.Next() {
		var (
			row      inventory.TicketTypeAvailability
			priceRaw string
			total    int
			commit   int
			held     int
		)
		if err := rows.Scan(&row.TicketTypeID, &row.Name, &priceRaw, &total, &commit, &held); err != nil {
			return nil, err
		}
		if row.Price, err = decimal.NewFromString(priceRaw); err != nil {
			return nil, err
		}
		row.Available = total - commit - held
		out = append(out, row)
	}
	return out, rows.Err()
}

// TicketsForUser implements inventory.Store.
func (s *InventoryStore) TicketsForUser(ctx context.Context, userID uint64) ([]inventory.TicketDetail, error) {
	const q = `SELECT t.id, t.order_id, e.id, e.title, tt.name, t.used, t.used_at, t.created_at
               FROM tickets t
               JOIN ticket_types tt ON tt.id = t.ticket_type_id
               JOIN events e ON e.id = tt.event_id
               WHERE t.user_id = ?
               ORDER BY t.created_at DESC, t.id`
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []inventory.TicketDetail{}
	for rows.Next() {
		var (
			d      inventory.TicketDetail
			usedAt sql.NullTime
		)
		if err := rows.Scan(&d.TicketID, &d.OrderID, &d.EventID, &d.EventTitle,
			&d.TicketTypeName, &d.Used, &usedAt, &d.CreatedAt); err != nil {
			return nil, err
		}
		if usedAt.Valid {
			ua := usedAt.Time
			d.UsedAt = &ua
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// AttendeeRoster implements inventory.Store.
func (s *InventoryStore) AttendeeRoster(ctx context.Context, eventID string) ([]inventory.Attendee, error) {
	const q = `SELECT t.id, tt.name, t.user_id, u.email, t.used, t.used_at
               FROM tickets t
               JOIN ticket_types tt ON tt.id = t.ticket_type_id
               JOIN users u ON u.id = t.user_id
               WHERE tt.event_id = ?
               ORDER BY t.created_at, t.id`
	rows, err := s.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []inventory.Attendee{}
	for rows.Next() {
		var (
			a      inventory.Attendee
			usedAt sql.NullTime
		)
		if err := rows.Scan(&a.TicketID, &a.TicketTypeName, &a.UserID, &a.Email, &a.Used, &usedAt); err != nil {
			return nil, err
		}
		if usedAt.Valid {
			ua := usedAt.Time
			a.UsedAt = &ua
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// EventOrganizer implements inventory.Store.
func (s *InventoryStore) EventOrganizer(ctx context.Context, eventID string) (uint64, error) {
	var organizer uint64
	err := s.db.QueryRowContext(ctx,
		`SELECT organizer_id FROM events WHERE id = ?`, eventID).Scan(&organizer)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, inventory.ErrNotFound
		}
		return 0, err
	}
	return organizer, nil
}

// invTx implements inventory.Tx over one *sql.Tx.
type invTx struct {
	tx *sql.Tx
}

func (t *invTx) TicketTypeForUpdate(ctx context.Context, id string) (*model.TicketType, error) {
	const q = `SELECT id, event_id, name, description, price, total_capacity, committed_count, created_at
               FROM ticket_types WHERE id = ? FOR UPDATE`
	var (
		tt       model.TicketType
		desc     sql.NullString
		priceRaw string
	)
	err := t.tx.QueryRowContext(ctx, q, id).Scan(&tt.ID, &tt.EventID, &tt.Name, &desc,
		&priceRaw, &tt.TotalCapacity, &tt.CommittedCount, &tt.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, inventory.ErrNotFound
		}
		return nil, err
	}
	if desc.Valid {
		d := desc.String
		tt.Description = &d
	}
	if tt.Price, err = decimal.NewFromString(priceRaw); err != nil {
		return nil, err
	}
	return &tt, nil
}

func (t *invTx) ActiveHoldQuantity(ctx context.Context, ticketTypeID string, now time.Time) (int, error) {
	const q = `SELECT COALESCE(SUM(quantity), 0) FROM reservations
               WHERE ticket_type_id = ? AND state = 'ACTIVE' AND expires_at > ?`
	var held int
	err := t.tx.QueryRowContext(ctx, q, ticketTypeID, now.UTC()).Scan(&held)
	return held, err
}

func (t *invTx) ExpireDue(ctx context.Context, now time.Time, ticketTypeID string) (int, error) {
	q := `UPDATE reservations SET state = 'EXPIRED' WHERE state = 'ACTIVE' AND expires_at <= ?`
	args := []interface{}{now.UTC()}
	if ticketTypeID != "" {
		q += ` AND ticket_type_id = ?`
		args = append(args, ticketTypeID)
	}
	res, err := t.tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (t *invTx) Reservation(ctx context.Context, id string) (*model.Reservation, error) {
	const q = `SELECT id, ticket_type_id, user_id, quantity, state, expires_at, created_at
               FROM reservations WHERE id = ? FOR UPDATE`
	var r model.Reservation
	err := t.tx.QueryRowContext(ctx, q, id).Scan(&r.ID, &r.TicketTypeID, &r.UserID,
		&r.Quantity, &r.State, &r.ExpiresAt, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, inventory.ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (t *invTx) InsertReservation(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations (id, ticket_type_id, user_id, quantity, state, expires_at, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := t.tx.ExecContext(ctx, q, res.ID, res.TicketTypeID, res.UserID,
		res.Quantity, string(res.State), res.ExpiresAt.UTC(), res.CreatedAt.UTC())
	return err
}

func (t *invTx) SetReservationState(ctx context.Context, id string, from, to model.ReservationState) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE reservations SET state = ? WHERE id = ? AND state = ?`,
		string(to), id, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (t *invTx) CommitCapacity(ctx context.Context, ticketTypeID string, qty int) (bool, error) {
	// The availability check and the increment are one statement, so
	// two commits racing on the same row cannot both pass on stale
	// counts.
	const q = `UPDATE ticket_types SET committed_count = committed_count + ?
               WHERE id = ? AND committed_count + ? <= total_capacity`
	res, err := t.tx.ExecContext(ctx, q, qty, ticketTypeID, qty)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (t *invTx) InsertOrder(ctx context.Context, o *model.Order) error {
	const q = `INSERT INTO orders (id, user_id, reservation_id, status, total, payment_ref, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := t.tx.ExecContext(ctx, q, o.ID, o.UserID, o.ReservationID,
		string(o.Status), o.Total.StringFixed(2), o.PaymentRef, o.CreatedAt.UTC())
	if err != nil {
		return err
	}
	if len(o.Lines) == 0 {
		return nil
	}
	lq := `INSERT INTO order_lines (order_id, ticket_type_id, quantity, unit_price) VALUES `
	args := make([]interface{}, 0, len(o.Lines)*4)
	for i, l := range o.Lines {
		if i > 0 {
			lq += ","
		}
		lq += "(?, ?, ?, ?)"
		args = append(args, o.ID, l.TicketTypeID, l.Quantity, l.UnitPrice.StringFixed(2))
	}
	_, err = t.tx.ExecContext(ctx, lq, args...)
	return err
}

func (t *invTx) InsertTickets(ctx context.Context, tickets []model.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	q := `INSERT INTO tickets (id, order_id, ticket_type_id, user_id, used, created_at) VALUES `
	args := make([]interface{}, 0, len(tickets)*6)
	for i, tk := range tickets {
		if i > 0 {
			q += ","
		}
		q += "(?, ?, ?, ?, ?, ?)"
		args = append(args, tk.ID, tk.OrderID, tk.TicketTypeID, tk.UserID, tk.Used, tk.CreatedAt.UTC())
	}
	_, err := t.tx.ExecContext(ctx, q, args...)
	return err
}

func (t *invTx) OrderByReservation(ctx context.Context, reservationID string) (*model.Order, error) {
	const q = `SELECT id, user_id, reservation_id, status, total, payment_ref, created_at
               FROM orders WHERE reservation_id = ?`
	var (
		o        model.Order
		totalRaw string
	)
	err := t.tx.QueryRowContext(ctx, q, reservationID).Scan(&o.ID, &o.UserID,
		&o.ReservationID, &o.Status, &totalRaw, &o.PaymentRef, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, inventory.ErrNotFound
		}
		return nil, err
	}
	if o.Total, err = decimal.NewFromString(totalRaw); err != nil {
		return nil, err
	}
	const lq = `SELECT ticket_type_id, quantity, unit_price FROM order_lines WHERE order_id = ?`
	rows, err := t.tx.QueryContext(ctx, lq, o.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			l        model.OrderLine
			priceRaw string
		)
		if err := rows.Scan(&l.TicketTypeID, &l.Quantity, &priceRaw); err != nil {
			return nil, err
		}
		if l.UnitPrice, err = decimal.NewFromString(priceRaw); err != nil {
			return nil, err
		}
		o.Lines = append(o.Lines, l)
	}
	return &o, rows.Err()
}

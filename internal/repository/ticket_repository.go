package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// TicketRepo manages check-in state transitions on sold tickets.
// Every transition is recorded in the checkin_audit table so a gate
// dispute can be reconstructed later.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo constructs a TicketRepo with the given DB handle.
func NewTicketRepo(db *sql.DB) *TicketRepo {
	return &TicketRepo{db: db}
}

// ticketGateRow is the locked projection both transitions operate on.
type ticketGateRow struct {
	used        bool
	organizerID uint64
}

func (r *TicketRepo) lockTicket(ctx context.Context, tx *sql.Tx, ticketID string) (ticketGateRow, error) {
	const q = `SELECT t.used, e.organizer_id
               FROM tickets t
               JOIN ticket_types tt ON tt.id = t.ticket_type_id
               JOIN events e ON e.id = tt.event_id
               WHERE t.id = ? FOR UPDATE`
	var row ticketGateRow
	err := tx.QueryRowContext(ctx, q, ticketID).Scan(&row.used, &row.organizerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return row, ErrNotFound
		}
		return row, err
	}
	return row, nil
}

// CheckIn marks a ticket as used at the gate. Only the organizer of
// the ticket's event may check it in. Returns ErrConflict when the
// ticket was already used, so a double scan is rejected rather than
// silently accepted.
func (r *TicketRepo) CheckIn(ctx context.Context, ticketID string, organizerID uint64) error {
	return r.transition(ctx, ticketID, organizerID, true)
}

// UndoCheckIn reverts a mistaken check-in. Returns ErrConflict when
// the ticket is not currently marked used.
func (r *TicketRepo) UndoCheckIn(ctx context.Context, ticketID string, organizerID uint64) error {
	return r.transition(ctx, ticketID, organizerID, false)
}

func (r *TicketRepo) transition(ctx context.Context, ticketID string, organizerID uint64, toUsed bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	row, err := r.lockTicket(ctx, tx, ticketID)
	if err != nil {
		return err
	}
	if row.organizerID != organizerID {
		return ErrForbidden
	}
	if row.used == toUsed {
		return ErrConflict
	}

	now := time.Now().UTC()
	action := "CHECKIN"
	if toUsed {
		_, err = tx.ExecContext(ctx,
			"UPDATE tickets SET used=1, used_at=? WHERE id=?", now, ticketID)
	} else {
		action = "UNDO"
		_, err = tx.ExecContext(ctx,
			"UPDATE tickets SET used=0, used_at=NULL WHERE id=?", ticketID)
	}
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO checkin_audit (ticket_id, actor_id, action, created_at) VALUES (?,?,?,?)",
		ticketID, organizerID, action, now); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// AuditTrail returns the check-in history of a ticket, oldest first.
func (r *TicketRepo) AuditTrail(ctx context.Context, ticketID string) ([]CheckinAuditRow, error) {
	const q = `SELECT id, ticket_id, actor_id, action, created_at
               FROM checkin_audit WHERE ticket_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CheckinAuditRow{}
	for rows.Next() {
		var a CheckinAuditRow
		if err := rows.Scan(&a.ID, &a.TicketID, &a.ActorID, &a.Action, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CheckinAuditRow mirrors one row of the checkin_audit table.
type CheckinAuditRow struct {
	ID        uint64    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	ActorID   uint64    `json:"actor_id"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

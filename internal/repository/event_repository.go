package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// EventRepo manages persistence for events and their ticket types.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the given DB handle.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

// DB exposes the underlying sql.DB for callers that need to begin
// transactions spanning multiple repositories.
func (r *EventRepo) DB() *sql.DB { return r.db }

// Create inserts an event together with its ticket types in one
// transaction. IDs are generated here and assigned back to the models.
// An event with zero ticket types is allowed; types can be added later.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event, types []model.TicketType) error {
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

	now := time.Now().UTC()
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.CreatedAt = now
	ev.UpdatedAt = now
	const q = `INSERT INTO events
        (id, organizer_id, title, description, starts_at, address, city, country, latitude, longitude, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q, ev.ID, ev.OrganizerID, ev.Title, ev.Description,
		ev.StartsAt.UTC(), ev.Address, ev.City, ev.Country, ev.Latitude, ev.Longitude,
		ev.CreatedAt, ev.UpdatedAt); err != nil {
		return err
	}
	for i := range types {
		tt := &types[i]
		if tt.ID == "" {
			tt.ID = uuid.NewString()
		}
		tt.EventID = ev.ID
		tt.CreatedAt = now
		const tq = `INSERT INTO ticket_types
            (id, event_id, name, description, price, total_capacity, committed_count, created_at)
            VALUES (?, ?, ?, ?, ?, ?, 0, ?)`
		if _, err := tx.ExecContext(ctx, tq, tt.ID, tt.EventID, tt.Name, tt.Description,
			tt.Price.StringFixed(2), tt.TotalCapacity, tt.CreatedAt); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// AddTicketType appends a ticket type to an existing event after
// verifying ownership. Returns ErrForbidden when the event belongs to
// a different organizer and ErrNotFound for an unknown event.
func (r *EventRepo) AddTicketType(ctx context.Context, eventID string, ownerID uint64, tt *model.TicketType) error {
	var organizer uint64
	err := r.db.QueryRowContext(ctx,
		"SELECT organizer_id FROM events WHERE id=?", eventID).Scan(&organizer)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if organizer != ownerID {
		return ErrForbidden
	}
	if tt.ID == "" {
		tt.ID = uuid.NewString()
	}
	tt.EventID = eventID
	tt.CreatedAt = time.Now().UTC()
	const q = `INSERT INTO ticket_types
        (id, event_id, name, description, price, total_capacity, committed_count, created_at)
        VALUES (?, ?, ?, ?, ?, ?, 0, ?)`
	_, err = r.db.ExecContext(ctx, q, tt.ID, tt.EventID, tt.Name, tt.Description,
		tt.Price.StringFixed(2), tt.TotalCapacity, tt.CreatedAt)
	return err
}

// GetByID retrieves an event by its ID. Returns ErrNotFound if there
// is no matching row.
func (r *EventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	const q = `SELECT id, organizer_id, title, description, starts_at, address, city, country,
               latitude, longitude, created_at, updated_at FROM events WHERE id = ?`
	var (
		ev   model.Event
		desc sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(&ev.ID, &ev.OrganizerID, &ev.Title, &desc,
		&ev.StartsAt, &ev.Address, &ev.City, &ev.Country, &ev.Latitude, &ev.Longitude,
		&ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if desc.Valid {
		d := desc.String
		ev.Description = &d
	}
	return &ev, nil
}

// EventSearchQuery defines filters and pagination for browsing events.
// The bounding box is applied only when all four coordinates are set.
type EventSearchQuery struct {
	Search     string
	City       string
	TimeFilter string
	MinLat     *float64
	MaxLat     *float64
	MinLng     *float64
	MaxLng     *float64
	Page       int
	PageSize   int
}

// PublicEventRow is the projection served to unauthenticated browsing.
type PublicEventRow struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	StartsAt  string  `json:"starts_at"`
	Address   string  `json:"address"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SearchUpcoming returns events matching the query plus the total
// count before pagination.
func (r *EventRepo) SearchUpcoming(ctx context.Context, q EventSearchQuery) ([]PublicEventRow, int64, error) {
	where := []string{}
	args := []any{}

	switch strings.ToLower(q.TimeFilter) {
	case "any":
	default:
		where = append(where, "e.starts_at >= NOW()")
	}

	if q.Search != "" {
		where = append(where, "LOWER(e.title) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Search)+"%")
	}
	if q.City != "" {
		where = append(where, "LOWER(e.city) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.City)+"%")
	}
	if q.MinLat != nil && q.MaxLat != nil && q.MinLng != nil && q.MaxLng != nil {
		where = append(where, "e.latitude BETWEEN ? AND ?", "e.longitude BETWEEN ? AND ?")
		args = append(args, *q.MinLat, *q.MaxLat, *q.MinLng, *q.MaxLng)
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	countSQL := `SELECT COUNT(*) FROM events e WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 20
	}
	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize

	dataSQL := `SELECT
            e.id,
            e.title,
            DATE_FORMAT(e.starts_at, '%Y-%m-%d %T') AS starts_at,
            e.address,
            e.city,
            e.country,
            e.latitude,
            e.longitude
        FROM events e
        WHERE ` + cond + `
        ORDER BY e.starts_at ASC
        LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, dataSQL, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []PublicEventRow{}
	for rows.Next() {
		var e PublicEventRow
		if err := rows.Scan(&e.ID, &e.Title, &e.StartsAt, &e.Address, &e.City, &e.Country,
			&e.Latitude, &e.Longitude); err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// ListByOwner returns all events created by the given organizer,
// newest start date first.
func (r *EventRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Event, error) {
	const q = `SELECT id, organizer_id, title, description, starts_at, address, city, country,
               latitude, longitude, created_at, updated_at
               FROM events WHERE organizer_id = ? ORDER BY starts_at DESC`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Event{}
	for rows.Next() {
		var (
			ev   model.Event
			desc sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.OrganizerID, &ev.Title, &desc, &ev.StartsAt,
			&ev.Address, &ev.City, &ev.Country, &ev.Latitude, &ev.Longitude,
			&ev.CreatedAt, &ev.UpdatedAt); err != nil {
			return nil, err
		}
		if desc.Valid {
			d := desc.String
			ev.Description = &d
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// TicketTypes returns the ticket types of an event ordered by name.
func (r *EventRepo) TicketTypes(ctx context.Context, eventID string) ([]model.TicketType, error) {
	const q = `SELECT id, event_id, name, description, price, total_capacity, committed_count, created_at
               FROM ticket_types WHERE event_id = ? ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.TicketType{}
	for rows.Next() {
		var (
			tt       model.TicketType
			desc     sql.NullString
			priceRaw string
		)
		if err := rows.Scan(&tt.ID, &tt.EventID, &tt.Name, &desc, &priceRaw,
			&tt.TotalCapacity, &tt.CommittedCount, &tt.CreatedAt); err != nil {
			return nil, err
		}
		if desc.Valid {
			d := desc.String
			tt.Description = &d
		}
		if tt.Price, err = decimal.NewFromString(priceRaw); err != nil {
			return nil, err
		}
		out = append(out, tt)
	}
	return out, rows.Err()
}

// TicketTypeByID fetches a single ticket type. Returns ErrNotFound if
// there is no matching row.
func (r *EventRepo) TicketTypeByID(ctx context.Context, id string) (*model.TicketType, error) {
	const q = `SELECT id, event_id, name, description, price, total_capacity, committed_count, created_at
               FROM ticket_types WHERE id = ?`
	var (
		tt       model.TicketType
		desc     sql.NullString
		priceRaw string
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(&tt.ID, &tt.EventID, &tt.Name, &desc,
		&priceRaw, &tt.TotalCapacity, &tt.CommittedCount, &tt.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
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

// Delete removes an event and its dependent rows. It fails with
// ErrForbidden when ownerID does not own the event and with
// ErrConflict when any ticket has been sold for it. Active holds are
// cancelled by the cascade since no capacity was committed for them.
func (r *EventRepo) Delete(ctx context.Context, eventID string, ownerID uint64) error {
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

	var organizer uint64
	err = tx.QueryRowContext(ctx,
		"SELECT organizer_id FROM events WHERE id=? FOR UPDATE", eventID).Scan(&organizer)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if organizer != ownerID {
		return ErrForbidden
	}

	var sold int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tickets t
         JOIN ticket_types tt ON tt.id = t.ticket_type_id
         WHERE tt.event_id = ?`, eventID).Scan(&sold)
	if err != nil {
		return err
	}
	if sold > 0 {
		return ErrConflict
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE r FROM reservations r
         JOIN ticket_types tt ON tt.id = r.ticket_type_id
         WHERE tt.event_id = ?`, eventID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM ticket_types WHERE event_id = ?", eventID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM events WHERE id = ?", eventID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

package inventory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// MemoryStore is an in-process Store used by tests and local
// development. A single mutex serializes every transaction, which
// trivially satisfies the per-ticket-type linearizability the engine
// requires. Within snapshots the maps before running fn and restores
// them when fn fails, giving the same all-or-nothing visibility as
// the MySQL store.
type MemoryStore struct {
	mu           sync.Mutex
	events       map[string]model.Event
	ticketTypes  map[string]model.TicketType
	reservations map[string]model.Reservation
	orders       map[string]model.Order
	orderByRes   map[string]string
	tickets      map[string]model.Ticket
	userEmails   map[uint64]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:       map[string]model.Event{},
		ticketTypes:  map[string]model.TicketType{},
		reservations: map[string]model.Reservation{},
		orders:       map[string]model.Order{},
		orderByRes:   map[string]string{},
		tickets:      map[string]model.Ticket{},
		userEmails:   map[uint64]string{},
	}
}

// AddEvent seeds an event.
func (s *MemoryStore) AddEvent(ev model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.ID] = ev
}

// AddTicketType seeds a ticket type.
func (s *MemoryStore) AddTicketType(tt model.TicketType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticketTypes[tt.ID] = tt
}

// AddUser seeds an email for roster joins.
func (s *MemoryStore) AddUser(id uint64, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userEmails[id] = email
}

type memSnapshot struct {
	ticketTypes  map[string]model.TicketType
	reservations map[string]model.Reservation
	orders       map[string]model.Order
	orderByRes   map[string]string
	tickets      map[string]model.Ticket
}

func (s *MemoryStore) snapshot() memSnapshot {
	snap := memSnapshot{
		ticketTypes:  make(map[string]model.TicketType, len(s.ticketTypes)),
		reservations: make(map[string]model.Reservation, len(s.reservations)),
		orders:       make(map[string]model.Order, len(s.orders)),
		orderByRes:   make(map[string]string, len(s.orderByRes)),
		tickets:      make(map[string]model.Ticket, len(s.tickets)),
	}
	for k, v := range s.ticketTypes {
		snap.ticketTypes[k] = v
	}
	for k, v := range s.reservations {
		snap.reservations[k] = v
	}
	for k, v := range s.orders {
		lines := make([]model.OrderLine, len(v.Lines))
		copy(lines, v.Lines)
		v.Lines = lines
		snap.orders[k] = v
	}
	for k, v := range s.orderByRes {
		snap.orderByRes[k] = v
	}
	for k, v := range s.tickets {
		snap.tickets[k] = v
	}
	return snap
}

func (s *MemoryStore) restore(snap memSnapshot) {
	s.ticketTypes = snap.ticketTypes
	s.reservations = snap.reservations
	s.orders = snap.orders
	s.orderByRes = snap.orderByRes
	s.tickets = snap.tickets
}

// Within runs fn while holding the store lock, rolling every
// mutation back when fn returns an error.
func (s *MemoryStore) Within(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshot()
	if err := fn(&memTx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *MemoryStore) heldQuantity(ticketTypeID string, now time.Time) int {
	held := 0
	for _, r := range s.reservations {
		if r.TicketTypeID == ticketTypeID && r.State == model.ReservationActive && r.ExpiresAt.After(now) {
			held += r.Quantity
		}
	}
	return held
}

// Availability implements Store.
func (s *MemoryStore) Availability(ctx context.Context, ticketTypeID string, now time.Time) (Availability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tt, ok := s.ticketTypes[ticketTypeID]
	if !ok {
		return Availability{}, ErrNotFound
	}
	held := s.heldQuantity(ticketTypeID, now)
	return Availability{
		TicketTypeID: ticketTypeID,
		Total:        tt.TotalCapacity,
		Committed:    tt.CommittedCount,
		Held:         held,
		Available:    tt.TotalCapacity - tt.CommittedCount - held,
	}, nil
}

// ListAvailability implements Store.
func (s *MemoryStore) ListAvailability(ctx context.Context, eventID string, now time.Time) ([]TicketTypeAvailability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[eventID]; !ok {
		return nil, ErrNotFound
	}
	out := []TicketTypeAvailability{}
	for _, tt := range s.ticketTypes {
		if tt.EventID != eventID {
			continue
		}
		held := s.heldQuantity(tt.ID, now)
		out = append(out, TicketTypeAvailability{
			TicketTypeID: tt.ID,
			Name:         tt.Name,
			Price:        tt.Price,
			Available:    tt.TotalCapacity - tt.CommittedCount - held,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// TicketsForUser implements Store.
func (s *MemoryStore) TicketsForUser(ctx context.Context, userID uint64) ([]TicketDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []TicketDetail{}
	for _, t := range s.tickets {
		if t.UserID != userID {
			continue
		}
		tt := s.ticketTypes[t.TicketTypeID]
		ev := s.events[tt.EventID]
		out = append(out, TicketDetail{
			TicketID:       t.ID,
			OrderID:        t.OrderID,
			EventID:        ev.ID,
			EventTitle:     ev.Title,
			TicketTypeName: tt.Name,
			Used:           t.Used,
			UsedAt:         t.UsedAt,
			CreatedAt:      t.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TicketID < out[j].TicketID })
	return out, nil
}

// AttendeeRoster implements Store.
func (s *MemoryStore) AttendeeRoster(ctx context.Context, eventID string) ([]Attendee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Attendee{}
	for _, t := range s.tickets {
		tt := s.ticketTypes[t.TicketTypeID]
		if tt.EventID != eventID {
			continue
		}
		out = append(out, Attendee{
			TicketID:       t.ID,
			TicketTypeName: tt.Name,
			UserID:         t.UserID,
			Email:          s.userEmails[t.UserID],
			Used:           t.Used,
			UsedAt:         t.UsedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TicketID < out[j].TicketID })
	return out, nil
}

// EventOrganizer implements Store.
func (s *MemoryStore) EventOrganizer(ctx context.Context, eventID string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[eventID]
	if !ok {
		return 0, ErrNotFound
	}
	return ev.OrganizerID, nil
}

// memTx operates on the maps while the store lock is held by Within.
type memTx struct {
	s *MemoryStore
}

func (tx *memTx) TicketTypeForUpdate(ctx context.Context, id string) (*model.TicketType, error) {
	tt, ok := tx.s.ticketTypes[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := tt
	return &cp, nil
}

func (tx *memTx) ActiveHoldQuantity(ctx context.Context, ticketTypeID string, now time.Time) (int, error) {
	return tx.s.heldQuantity(ticketTypeID, now), nil
}

func (tx *memTx) ExpireDue(ctx context.Context, now time.Time, ticketTypeID string) (int, error) {
	n := 0
	for id, r := range tx.s.reservations {
		if ticketTypeID != "" && r.TicketTypeID != ticketTypeID {
			continue
		}
		if r.State == model.ReservationActive && !r.ExpiresAt.After(now) {
			r.State = model.ReservationExpired
			tx.s.reservations[id] = r
			n++
		}
	}
	return n, nil
}

func (tx *memTx) Reservation(ctx context.Context, id string) (*model.Reservation, error) {
	r, ok := tx.s.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := r
	return &cp, nil
}

func (tx *memTx) InsertReservation(ctx context.Context, res *model.Reservation) error {
	tx.s.reservations[res.ID] = *res
	return nil
}

func (tx *memTx) SetReservationState(ctx context.Context, id string, from, to model.ReservationState) (bool, error) {
	r, ok := tx.s.reservations[id]
	if !ok || r.State != from {
		return false, nil
	}
	r.State = to
	tx.s.reservations[id] = r
	return true, nil
}

func (tx *memTx) CommitCapacity(ctx context.Context, ticketTypeID string, qty int) (bool, error) {
	tt, ok := tx.s.ticketTypes[ticketTypeID]
	if !ok {
		return false, nil
	}
	if tt.CommittedCount+qty > tt.TotalCapacity {
		return false, nil
	}
	tt.CommittedCount += qty
	tx.s.ticketTypes[ticketTypeID] = tt
	return true, nil
}

func (tx *memTx) InsertOrder(ctx context.Context, o *model.Order) error {
	cp := *o
	cp.Lines = make([]model.OrderLine, len(o.Lines))
	copy(cp.Lines, o.Lines)
	tx.s.orders[o.ID] = cp
	tx.s.orderByRes[o.ReservationID] = o.ID
	return nil
}

func (tx *memTx) InsertTickets(ctx context.Context, tickets []model.Ticket) error {
	for _, t := range tickets {
		tx.s.tickets[t.ID] = t
	}
	return nil
}

func (tx *memTx) OrderByReservation(ctx context.Context, reservationID string) (*model.Order, error) {
	id, ok := tx.s.orderByRes[reservationID]
	if !ok {
		return nil, ErrNotFound
	}
	o := tx.s.orders[id]
	cp := o
	cp.Lines = make([]model.OrderLine, len(o.Lines))
	copy(cp.Lines, o.Lines)
	return &cp, nil
}

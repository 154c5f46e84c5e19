// This file defines handlers for event management and public browsing.
// Organizers create events with their ticket types; anyone may browse
// upcoming events and per-type availability without authentication.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-ticketing/internal/inventory"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// EventHandler bundles the event repository and the availability facade.
type EventHandler struct {
	Events *repository.EventRepo
	Facade *inventory.Facade
}

// NewEventHandler constructs an EventHandler. Both dependencies must be
// non-nil.
func NewEventHandler(ev *repository.EventRepo, f *inventory.Facade) *EventHandler {
	if ev == nil || f == nil {
		panic("nil dependency passed to NewEventHandler")
	}
	return &EventHandler{Events: ev, Facade: f}
}

type ticketTypeReq struct {
	Name          string  `json:"name"`
	Description   *string `json:"description"`
	Price         string  `json:"price"`
	TotalCapacity int     `json:"total_capacity"`
}

type createEventReq struct {
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	StartsAt    time.Time       `json:"starts_at"`
	Address     string          `json:"address"`
	City        string          `json:"city"`
	Country     string          `json:"country"`
	Latitude    float64         `json:"latitude"`
	Longitude   float64         `json:"longitude"`
	TicketTypes []ticketTypeReq `json:"ticket_types"`
}

func parseTicketType(in ticketTypeReq) (model.TicketType, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.TicketType{}, errors.New("ticket type name is required")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(in.Price))
	if err != nil || price.IsNegative() {
		return model.TicketType{}, errors.New("invalid price")
	}
	if in.TotalCapacity < 1 {
		return model.TicketType{}, errors.New("total_capacity must be positive")
	}
	return model.TicketType{
		Name:          name,
		Description:   in.Description,
		Price:         price,
		TotalCapacity: in.TotalCapacity,
	}, nil
}

// CreateEvent handles POST /v1/owner/events. The event and all its
// ticket types are inserted in one transaction.
func (h *EventHandler) CreateEvent(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	if req.StartsAt.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at is required"})
	}

	types := make([]model.TicketType, 0, len(req.TicketTypes))
	for _, in := range req.TicketTypes {
		tt, err := parseTicketType(in)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		types = append(types, tt)
	}

	ev := model.Event{
		OrganizerID: userID,
		Title:       req.Title,
		Description: req.Description,
		StartsAt:    req.StartsAt.UTC(),
		Address:     strings.TrimSpace(req.Address),
		City:        strings.TrimSpace(req.City),
		Country:     strings.TrimSpace(req.Country),
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}
	if err := h.Events.Create(c.Request().Context(), &ev, types); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"event": ev, "ticket_types": types})
}

// AddTicketType handles POST /v1/owner/events/:id/ticket-types.
func (h *EventHandler) AddTicketType(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID := strings.TrimSpace(c.Param("id"))
	var in ticketTypeReq
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	tt, err := parseTicketType(in)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Events.AddTicketType(c.Request().Context(), eventID, userID, &tt); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create ticket type failed"})
	}
	return c.JSON(http.StatusCreated, tt)
}

// ListMyEvents handles GET /v1/owner/events.
func (h *EventHandler) ListMyEvents(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	events, err := h.Events.ListByOwner(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": events})
}

// DeleteEvent handles DELETE /v1/owner/events/:id. Deletion is refused
// with 409 once any ticket has been sold.
func (h *EventHandler) DeleteEvent(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID := strings.TrimSpace(c.Param("id"))
	if err := h.Events.Delete(c.Request().Context(), eventID, userID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "event has sold tickets"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// BrowseEvents handles GET /v1/events. Filters: search (title), city,
// time ("any" includes past events), plus an optional geographic
// bounding box of min_lat/max_lat/min_lng/max_lng. Results are
// paginated via page and page_size.
func (h *EventHandler) BrowseEvents(c echo.Context) error {
	q := repository.EventSearchQuery{
		Search:     strings.TrimSpace(c.QueryParam("search")),
		City:       strings.TrimSpace(c.QueryParam("city")),
		TimeFilter: strings.TrimSpace(c.QueryParam("time")),
	}
	q.Page, _ = strconv.Atoi(c.QueryParam("page"))
	q.PageSize, _ = strconv.Atoi(c.QueryParam("page_size"))

	coords := [4]*float64{}
	for i, key := range []string{"min_lat", "max_lat", "min_lng", "max_lng"} {
		raw := strings.TrimSpace(c.QueryParam(key))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + key})
		}
		coords[i] = &v
	}
	q.MinLat, q.MaxLat, q.MinLng, q.MaxLng = coords[0], coords[1], coords[2], coords[3]

	items, total, err := h.Events.SearchUpcoming(c.Request().Context(), q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "total": total})
}

// GetEvent handles GET /v1/events/:id. The response includes the event
// plus live availability per ticket type.
func (h *EventHandler) GetEvent(c echo.Context) error {
	eventID := strings.TrimSpace(c.Param("id"))
	ev, err := h.Events.GetByID(c.Request().Context(), eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	availability, err := h.Facade.ListAvailability(c.Request().Context(), eventID)
	if err != nil && !errors.Is(err, inventory.ErrNotFound) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"event": ev, "ticket_types": availability})
}

// EventAvailability handles GET /v1/events/:id/availability.
func (h *EventHandler) EventAvailability(c echo.Context) error {
	eventID := strings.TrimSpace(c.Param("id"))
	availability, err := h.Facade.ListAvailability(c.Request().Context(), eventID)
	if err != nil {
		return mapInventoryErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": availability})
}

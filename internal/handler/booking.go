// Package handler exposes HTTP handlers for both authenticated and public
// endpoints. This file defines the customer booking flow: placing a hold
// on a ticket type, releasing it, checking out, and listing owned tickets.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/inventory"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/monitoring"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
	queue_publisher "github.com/iliyamo/event-ticketing/internal/service"
)

// BookingHandler groups the inventory engine components used by the
// customer booking flow. JWT authentication and role validation are
// assumed to have been performed by middleware.
type BookingHandler struct {
	Manager *inventory.Manager
	Engine  *inventory.Engine
	Facade  *inventory.Facade
	Events  *repository.EventRepo
}

// NewBookingHandler constructs a BookingHandler. All dependencies must
// be non-nil.
func NewBookingHandler(m *inventory.Manager, e *inventory.Engine, f *inventory.Facade, ev *repository.EventRepo) *BookingHandler {
	if m == nil || e == nil || f == nil || ev == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Manager: m, Engine: e, Facade: f, Events: ev}
}

// mapInventoryErr translates engine sentinels into HTTP responses so
// every booking endpoint reports failures consistently.
func mapInventoryErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, inventory.ErrInvalidQuantity):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be a positive integer"})
	case errors.Is(err, inventory.ErrInsufficientAvailability):
		return c.JSON(http.StatusConflict, echo.Map{"error": "not enough tickets available"})
	case errors.Is(err, inventory.ErrReservationExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": "reservation expired"})
	case errors.Is(err, inventory.ErrReservationAlreadyTerminal):
		return c.JSON(http.StatusGone, echo.Map{"error": "reservation already finalized"})
	case errors.Is(err, inventory.ErrCapacityExceeded):
		return c.JSON(http.StatusConflict, echo.Map{"error": "capacity exceeded"})
	case errors.Is(err, inventory.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// HoldTickets handles POST /v1/ticket-types/:id/hold. The body must
// contain a positive "quantity". On success it returns 201 with the
// reservation id and its expiration timestamp.
func (h *BookingHandler) HoldTickets(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ticketTypeID := strings.TrimSpace(c.Param("id"))
	if ticketTypeID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket type id"})
	}
	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	res, err := h.Manager.Hold(c.Request().Context(), ticketTypeID, userID, body.Quantity, 0)
	if err != nil {
		switch {
		case errors.Is(err, inventory.ErrInvalidQuantity):
			monitoring.HoldsTotal.WithLabelValues("invalid").Inc()
		case errors.Is(err, inventory.ErrInsufficientAvailability):
			monitoring.HoldsTotal.WithLabelValues("insufficient").Inc()
		default:
			monitoring.HoldsTotal.WithLabelValues("error").Inc()
		}
		return mapInventoryErr(c, err)
	}
	monitoring.HoldsTotal.WithLabelValues("created").Inc()
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id": res.ID,
		"ticket_type_id": res.TicketTypeID,
		"quantity":       res.Quantity,
		"expires_at":     res.ExpiresAt,
	})
}

// ReleaseHold handles DELETE /v1/reservations/:id. Releasing a
// reservation that already reached a terminal state succeeds with no
// effect, so client retries are harmless.
func (h *BookingHandler) ReleaseHold(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	if err := h.Manager.Release(c.Request().Context(), id, userID); err != nil {
		return mapInventoryErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Checkout handles POST /v1/reservations/:id/checkout. It converts the
// caller's active reservation into an order and tickets. The optional
// "payment_ref" carries an external payment confirmation id. Repeating
// the call after success returns the same order again.
func (h *BookingHandler) Checkout(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var body struct {
		PaymentRef string `json:"payment_ref"`
	}
	_ = c.Bind(&body)

	order, err := h.Engine.Allocate(c.Request().Context(), id, userID, strings.TrimSpace(body.PaymentRef))
	if err != nil {
		switch {
		case errors.Is(err, inventory.ErrReservationExpired):
			monitoring.AllocationsTotal.WithLabelValues("expired").Inc()
		case errors.Is(err, inventory.ErrReservationAlreadyTerminal):
			monitoring.AllocationsTotal.WithLabelValues("terminal").Inc()
		case errors.Is(err, inventory.ErrForbidden):
			monitoring.AllocationsTotal.WithLabelValues("forbidden").Inc()
		default:
			monitoring.AllocationsTotal.WithLabelValues("error").Inc()
		}
		return mapInventoryErr(c, err)
	}
	monitoring.AllocationsTotal.WithLabelValues("completed").Inc()

	// Publish the completion event best-effort; the sale is already
	// durable, so a broker outage must not fail the request.
	go h.publishCompleted(order)

	lines := make([]echo.Map, 0, len(order.Lines))
	for _, l := range order.Lines {
		lines = append(lines, echo.Map{
			"ticket_type_id": l.TicketTypeID,
			"quantity":       l.Quantity,
			"unit_price":     l.UnitPrice.StringFixed(2),
		})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"order_id":       order.ID,
		"reservation_id": order.ReservationID,
		"status":         order.Status,
		"total":          order.Total.StringFixed(2),
		"payment_ref":    order.PaymentRef,
		"lines":          lines,
		"created_at":     order.CreatedAt,
	})
}

// publishCompleted enriches the order with event and ticket type names
// and sends it to the order.completed queue. Errors are logged inside
// the publisher and otherwise ignored.
func (h *BookingHandler) publishCompleted(order *model.Order) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ev := queue.OrderCompletedEvent{
		OrderID:       order.ID,
		ReservationID: order.ReservationID,
		UserID:        order.UserID,
		Total:         order.Total.StringFixed(2),
		CompletedAt:   order.CreatedAt.Format(time.RFC3339),
	}
	if len(order.Lines) > 0 {
		ev.Quantity = order.Lines[0].Quantity
		if tt, err := h.Events.TicketTypeByID(ctx, order.Lines[0].TicketTypeID); err == nil {
			ev.TicketType = tt.Name
			ev.EventID = tt.EventID
			if e, err := h.Events.GetByID(ctx, tt.EventID); err == nil {
				ev.EventTitle = e.Title
			}
		}
	}
	_ = queue_publisher.PublishOrderCompleted(ctx, ev)
}

// MyTickets handles GET /v1/my-tickets. Only tickets owned by the
// authenticated user are returned.
func (h *BookingHandler) MyTickets(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tickets, err := h.Facade.TicketsForUser(c.Request().Context(), userID)
	if err != nil {
		return mapInventoryErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": tickets})
}

// Availability handles GET /v1/ticket-types/:id/availability. It is a
// public projection, so no authentication is required.
func (h *BookingHandler) Availability(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket type id"})
	}
	av, err := h.Facade.AvailabilityFor(c.Request().Context(), id)
	if err != nil {
		return mapInventoryErr(c, err)
	}
	return c.JSON(http.StatusOK, av)
}

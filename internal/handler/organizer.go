// This file defines organizer-only operations on sold tickets: the
// attendee roster and gate check-in transitions.
package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/inventory"
	"github.com/iliyamo/event-ticketing/internal/monitoring"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// OrganizerHandler bundles the read facade and the ticket repository
// used by organizer endpoints. Role middleware guarantees the caller
// carries the ORGANIZER role; ownership of the specific event or ticket
// is still verified per request.
type OrganizerHandler struct {
	Facade  *inventory.Facade
	Tickets *repository.TicketRepo
}

// NewOrganizerHandler constructs an OrganizerHandler. Both dependencies
// must be non-nil.
func NewOrganizerHandler(f *inventory.Facade, t *repository.TicketRepo) *OrganizerHandler {
	if f == nil || t == nil {
		panic("nil dependency passed to NewOrganizerHandler")
	}
	return &OrganizerHandler{Facade: f, Tickets: t}
}

// Attendees handles GET /v1/owner/events/:id/attendees. Only the
// organizer who owns the event may view its roster; anyone else gets
// 403 even if they hold the ORGANIZER role.
func (h *OrganizerHandler) Attendees(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID := strings.TrimSpace(c.Param("id"))
	roster, err := h.Facade.OrganizerView(c.Request().Context(), eventID, userID)
	if err != nil {
		return mapInventoryErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": roster})
}

// CheckIn handles POST /v1/owner/tickets/:id/checkin. A second scan of
// the same ticket returns 409 so gate staff notice the duplicate.
func (h *OrganizerHandler) CheckIn(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ticketID := strings.TrimSpace(c.Param("id"))
	if err := h.Tickets.CheckIn(c.Request().Context(), ticketID, userID); err != nil {
		return h.mapCheckinErr(c, err, "duplicate")
	}
	monitoring.CheckinsTotal.WithLabelValues("checked_in").Inc()
	return c.JSON(http.StatusOK, echo.Map{"ticket_id": ticketID, "used": true})
}

// UndoCheckIn handles DELETE /v1/owner/tickets/:id/checkin.
func (h *OrganizerHandler) UndoCheckIn(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ticketID := strings.TrimSpace(c.Param("id"))
	if err := h.Tickets.UndoCheckIn(c.Request().Context(), ticketID, userID); err != nil {
		return h.mapCheckinErr(c, err, "not_checked_in")
	}
	monitoring.CheckinsTotal.WithLabelValues("undone").Inc()
	return c.JSON(http.StatusOK, echo.Map{"ticket_id": ticketID, "used": false})
}

// AuditTrail handles GET /v1/owner/tickets/:id/audit.
func (h *OrganizerHandler) AuditTrail(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ticketID := strings.TrimSpace(c.Param("id"))
	trail, err := h.Tickets.AuditTrail(c.Request().Context(), ticketID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": trail})
}

func (h *OrganizerHandler) mapCheckinErr(c echo.Context, err error, conflictLabel string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		monitoring.CheckinsTotal.WithLabelValues("error").Inc()
		return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
	case errors.Is(err, repository.ErrForbidden):
		monitoring.CheckinsTotal.WithLabelValues("forbidden").Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrConflict):
		monitoring.CheckinsTotal.WithLabelValues(conflictLabel).Inc()
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflicting check-in state"})
	}
	monitoring.CheckinsTotal.WithLabelValues("error").Inc()
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

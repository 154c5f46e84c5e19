package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/handler"    // organizer handlers
	"github.com/iliyamo/event-ticketing/internal/middleware" // JWT + role middlewares
)

// RegisterOwner registers ORGANIZER-scoped endpoints under /v1/owner.
// All routes require a valid JWT and the ORGANIZER role. Ownership of
// the specific event or ticket is verified inside the handlers, so one
// organizer can never read or mutate another organizer's data.
func RegisterOwner(e *echo.Echo, ev *handler.EventHandler, o *handler.OrganizerHandler, jwtSecret string) {
	g := e.Group(
		"/v1/owner",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ORGANIZER"),
	)

	// ---- Events ----
	g.POST("/events", ev.CreateEvent)
	g.GET("/events", ev.ListMyEvents)
	g.DELETE("/events/:id", ev.DeleteEvent)
	g.POST("/events/:id/ticket-types", ev.AddTicketType)

	// ---- Attendees and gate check-in ----
	g.GET("/events/:id/attendees", o.Attendees)
	g.POST("/tickets/:id/checkin", o.CheckIn)
	g.DELETE("/tickets/:id/checkin", o.UndoCheckIn)
	g.GET("/tickets/:id/audit", o.AuditTrail)
}

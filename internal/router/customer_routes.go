package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/middleware"
)

// RegisterCustomer registers customer-scoped endpoints under /v1. All
// routes require a valid JWT and the CUSTOMER role. Customers can place
// holds on ticket types, release them, check out into orders and list
// their own tickets.
func RegisterCustomer(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("CUSTOMER"),
	)
	// Note: availability endpoints are registered on the public router so
	// that guests can inspect remaining capacity. Customer-specific
	// endpoints begin here.
	g.POST("/ticket-types/:id/hold", h.HoldTickets)
	g.DELETE("/reservations/:id", h.ReleaseHold)
	g.POST("/reservations/:id/checkout", h.Checkout)
	g.GET("/my-tickets", h.MyTickets)
}

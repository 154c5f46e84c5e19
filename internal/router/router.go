package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/event-ticketing/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/event-ticketing/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance: the health check and the Prometheus
// metrics endpoint.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler. This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
	// Expose Prometheus metrics in the standard text format.
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers all authentication-related routes and applies
// the necessary middleware. Unauthenticated operations live under
// /v1/auth, while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Operations that do not require an existing session: register, login
	// and the refresh variants. Each handler is responsible for generating
	// or exchanging tokens.
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh rotates the refresh token; refresh-access issues a new access
	// token while reusing the existing refresh token.
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout does not require JWT authentication. The handler accepts a
	// JSON body containing a `refresh_token` and invalidates that token,
	// or revokes all sessions when called with a bearer token.
	g.POST("/logout", a.Logout)

	// Routes that require a valid access token. Both roles may query
	// their own identity.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("ORGANIZER", "CUSTOMER"))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers unauthenticated browse endpoints. These
// routes return sanitized event data and live availability and apply no
// JWT or role middleware.
func RegisterPublic(e *echo.Echo, ev *handler.EventHandler, b *handler.BookingHandler) {
	// Browse upcoming events with optional title/city filters and a
	// geographic bounding box.
	e.GET("/v1/events", ev.BrowseEvents)
	// Event details including per-type availability.
	e.GET("/v1/events/:id", ev.GetEvent)
	// Availability listing only, for clients polling before checkout.
	e.GET("/v1/events/:id/availability", ev.EventAvailability)
	// Capacity breakdown of a single ticket type.
	e.GET("/v1/ticket-types/:id/availability", b.Availability)
}

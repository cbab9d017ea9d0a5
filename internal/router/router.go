package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/workspace-reservation/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/workspace-reservation/internal/middleware" // import middleware for JWT authentication and role enforcement
	"github.com/iliyamo/workspace-reservation/internal/model"      // role names
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while the profile endpoint lives under the protected /v1 prefix.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Unauthenticated session operations: register and login both return a
	// signed access token on success.
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	// The profile endpoint requires a valid access token.  Both roles are
	// accepted; the middleware rejects missing or unknown roles.
	auth := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleEmployee),
	)
	auth.GET("/me", a.Me)
}

// RegisterBooking registers the reservation lifecycle and availability
// endpoints under /v1.  All routes require a valid JWT; ownership and
// state-machine rules are enforced by the booking engine.  slotCache,
// when non-nil, is applied only to the alternative-slot search since it
// is the one read-heavy endpoint worth caching for a short TTL.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, r *handler.ResourceHandler, jwtSecret string, slotCache echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleEmployee),
	)

	// ---- Bookings ----
	g.POST("/bookings", b.Create)
	g.GET("/bookings", b.ListMine)
	g.GET("/bookings/:id", b.Get)
	g.POST("/bookings/:id/cancel", b.Cancel)
	g.POST("/bookings/:id/check-in", b.CheckIn)
	g.POST("/bookings/:id/check-out", b.CheckOut)

	// ---- Resources ----
	g.GET("/resources", r.List)
	g.GET("/resources/:id", r.Get)
	if slotCache != nil {
		g.GET("/resources/:id/slots", b.AlternativeSlots, slotCache)
	} else {
		g.GET("/resources/:id/slots", b.AlternativeSlots)
	}
}

// RegisterAdmin registers ADMIN-scoped directory management endpoints
// under /v1/admin.  All routes require a valid JWT and the ADMIN role.
func RegisterAdmin(e *echo.Echo, r *handler.ResourceHandler, jwtSecret string) {
	// Attach middlewares at group construction time for clarity.
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	g.POST("/resources", r.Create)
	g.PUT("/resources/:id/maintenance", r.SetMaintenance)
	g.PATCH("/resources/:id/maintenance", r.SetMaintenance) // alias for clients that use PATCH
	g.PUT("/resources/:id/block", r.SetBlock)
	g.PATCH("/resources/:id/block", r.SetBlock)
}

package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/labreserve/labreserve/internal/handler"
	"github.com/labreserve/labreserve/internal/middleware"
	"github.com/labreserve/labreserve/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance. Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Used by load balancers and monitoring to verify the service is up.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies
// the necessary middleware. Unauthenticated operations live under
// /v1/auth, while protected session endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token and returns a new pair.
	g.POST("/refresh", a.Refresh)
	// Revokes a single session by its refresh token; no JWT required.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
	auth.POST("/logout-all", a.LogoutAll)
}

// RegisterLabs registers the lab catalog and availability routes. Every
// route requires a valid access token; mutations are restricted to
// admins.
func RegisterLabs(e *echo.Echo, h *handler.LabHandler, jwtSecret string) {
	g := e.Group("/v1/labs")
	g.Use(middleware.JWTAuth(jwtSecret))

	// Read endpoints are open to every authenticated role.
	g.GET("", h.ListLabs)
	g.GET("/:id", h.GetLab)
	g.GET("/:id/availability", h.Availability)

	// Catalog mutations are an admin concern.
	admin := middleware.RequireRole(model.RoleAdmin)
	g.POST("", h.CreateLab, admin)
	g.PATCH("/:id", h.UpdateLab, admin)
	g.DELETE("/:id", h.DisableLab, admin)
}

// RegisterReservations registers the reservation lifecycle routes. All
// of them require a valid access token; role checks beyond that are
// enforced by the reservation core, which knows the approval policy.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string) {
	g := e.Group("/v1/reservations")
	g.Use(middleware.JWTAuth(jwtSecret))

	g.POST("", h.Create, middleware.RequireRole(model.RoleLecturer, model.RoleStudent))
	g.GET("", h.Query)
	g.GET("/:id", h.Get)
	g.GET("/:id/history", h.History)
	g.PATCH("/:id/decision", h.Decide, middleware.RequireRole(model.RoleAdmin, model.RoleLecturer))
	g.PATCH("/:id/cancel", h.Cancel)
}

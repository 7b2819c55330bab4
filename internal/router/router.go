package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // Echo web framework used for routing

    "github.com/aubrac/kermesse-ticketing/internal/handler"    // handlers implementing the endpoints
    "github.com/aubrac/kermesse-ticketing/internal/middleware" // JWT, role, rate-limit and cache middleware
    "github.com/aubrac/kermesse-ticketing/internal/validation" // role constants shared with the engine
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance. Currently it exposes only a health check,
// used by load balancers and monitoring to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers authentication routes and the authenticated /v1/me
// endpoint. Login and token exchange live under /v1/auth and carry no
// middleware; /v1/me requires a valid access token with a known role.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    g := e.Group("/v1/auth")
    g.POST("/login", a.Login)
    g.POST("/refresh", a.Refresh)
    g.POST("/refresh-access", a.RefreshAccess)
    g.POST("/logout", a.Logout)

    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.Use(middleware.RequireRole(validation.RoleAdmin, validation.RoleProvider))
    auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated catalog browse endpoints.
// They are wrapped in the Redis response cache when one is configured;
// pass a nil middleware to serve uncached.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
    g := e.Group("/v1")
    if cache != nil {
        g.Use(cache)
    }
    g.GET("/activities", p.GetActivities)
    g.GET("/passes", p.GetPasses)
    g.GET("/time-slots", p.GetTimeSlots)
}

// RegisterValidation registers the validation surface and the admin audit
// endpoints. Scanning is open to providers and admins and is rate
// limited per agent to absorb scanner retry storms; the ledger listing,
// CSV export, revocation and agent management are admin-only.
func RegisterValidation(e *echo.Echo, v *handler.ValidationHandler, hist *handler.HistoryHandler, agents *handler.AgentHandler, jwtSecret string, rate echo.MiddlewareFunc) {
    scan := e.Group("/v1")
    scan.Use(middleware.JWTAuth(jwtSecret))
    scan.Use(middleware.RequireRole(validation.RoleProvider, validation.RoleAdmin))
    if rate != nil {
        scan.Use(rate)
    }
    scan.POST("/validations", v.Validate)

    admin := e.Group("/v1")
    admin.Use(middleware.JWTAuth(jwtSecret))
    admin.Use(middleware.RequireRole(validation.RoleAdmin))
    admin.GET("/validations", hist.List)
    admin.GET("/validations/export", hist.Export)
    admin.POST("/validations/:id/revoke", v.Revoke)
    admin.POST("/admin/agents", agents.Create)
    admin.GET("/admin/agents", agents.List)
    admin.POST("/admin/agents/:id/deactivate", agents.Deactivate)
}

package router

import (
	"github.com/labstack/echo/v4"

	"github.com/ckck92/BLG-WEBSITE/internal/handler"
	"github.com/ckck92/BLG-WEBSITE/internal/middleware"
	"github.com/ckck92/BLG-WEBSITE/internal/model"
)

// RegisterAdmin registers admin-scoped endpoints under /v1/admin.  All
// routes require a valid JWT with the admin role.  purge runs after shop
// hours changes so cached catalog responses are dropped.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, r *handler.ReservationHandler, jwtSecret string, limit, purge echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
		limit,
	)

	// ---- Reservations ----
	g.GET("/reservations", a.List)
	g.GET("/reservations/:id", r.Get)
	g.PATCH("/reservations/:id/status", a.UpdateStatus)
	g.POST("/reservations/:id/reschedule", a.Reschedule)
	g.POST("/reservations/:id/cancel", r.Cancel)

	// ---- Shop ----
	g.PUT("/shop-hours/:day", a.UpdateShopHours, purge)

	// ---- Reports ----
	g.GET("/revenue", a.Revenue)
	g.GET("/revenue/export", a.ExportRevenue)

	// ---- Operations ----
	g.POST("/sweep", a.Sweep)
	g.GET("/logs", a.Logs)
}

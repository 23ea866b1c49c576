package router

import (
	"github.com/labstack/echo/v4"

	"github.com/ckck92/BLG-WEBSITE/internal/handler"
	"github.com/ckck92/BLG-WEBSITE/internal/middleware"
	"github.com/ckck92/BLG-WEBSITE/internal/model"
)

// RegisterClient registers the booking endpoints.  Every route requires a
// valid JWT with the client role.  Ownership is checked by the service.
func RegisterClient(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	protect := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleClient),
		limit,
	}
	e.POST("/v1/reservations/preview", h.Preview, protect...)
	e.POST("/v1/reservations", h.Create, protect...)
	e.GET("/v1/reservations/:id", h.Get, protect...)
	e.POST("/v1/reservations/:id/cancel", h.Cancel, protect...)
	e.GET("/v1/my-reservations", h.ListMine, protect...)
}

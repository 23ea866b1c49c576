// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ckck92/BLG-WEBSITE/internal/handler"
)

// RegisterRoutes registers the unauthenticated operational endpoints.
// /metrics is only exposed when withMetrics is set.
func RegisterRoutes(e *echo.Echo, ready *handler.ReadyHandler, withMetrics bool) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", ready.Ready)
	if withMetrics {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}
}

// RegisterPublic registers the catalog endpoints used by the booking form.
// They need no token and sit behind the response cache.
func RegisterPublic(e *echo.Echo, h *handler.CatalogHandler, limit, cache echo.MiddlewareFunc) {
	g := e.Group("/v1", limit, cache)
	g.GET("/services", h.ListServices)
	g.GET("/services/:id/addons", h.AddonCandidates)
	g.GET("/seats", h.ListSeats)
	g.GET("/shop-hours", h.ListShopHours)
	g.GET("/slots", h.AvailableSlots)
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ckck92/BLG-WEBSITE/internal/service"
)

// CatalogHandler serves the public booking form data.
type CatalogHandler struct {
	respond
	svc *service.SchedulingService
}

func NewCatalogHandler(svc *service.SchedulingService, log zerolog.Logger) *CatalogHandler {
	if svc == nil {
		panic("nil service passed to NewCatalogHandler")
	}
	return &CatalogHandler{respond: respond{log: log}, svc: svc}
}

// ListServices handles GET /v1/services.
func (h *CatalogHandler) ListServices(c echo.Context) error {
	groups, err := h.svc.ServicesForSelection(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, groups)
}

// AddonCandidates handles GET /v1/services/:id/addons.
func (h *CatalogHandler) AddonCandidates(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid service id")
	}
	addons, err := h.svc.AddonCandidates(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"base_service_id": id, "addons": addons})
}

// ListSeats handles GET /v1/seats.
func (h *CatalogHandler) ListSeats(c echo.Context) error {
	seats, err := h.svc.ListSeats(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, seats)
}

// ListShopHours handles GET /v1/shop-hours.
func (h *CatalogHandler) ListShopHours(c echo.Context) error {
	hours, err := h.svc.ListShopHours(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, hours)
}

// AvailableSlots handles GET /v1/slots?date=YYYY-MM-DD.
func (h *CatalogHandler) AvailableSlots(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		return badRequest(c, "date is required")
	}
	slots, err := h.svc.AvailableSlots(c.Request().Context(), date)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"date": date, "slots": slots})
}

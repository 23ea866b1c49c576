package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ckck92/BLG-WEBSITE/internal/model"
	"github.com/ckck92/BLG-WEBSITE/internal/service"
)

// ReservationHandler serves the client booking endpoints.
type ReservationHandler struct {
	respond
	svc *service.SchedulingService
}

func NewReservationHandler(svc *service.SchedulingService, log zerolog.Logger) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{respond: respond{log: log}, svc: svc}
}

type previewRequest struct {
	ServiceIDs []uint64 `json:"service_ids" validate:"required,min=1,dive,gt=0"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// Preview handles POST /v1/reservations/preview.  It totals a service
// selection without booking it.
func (h *ReservationHandler) Preview(c echo.Context) error {
	var req previewRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	sel, err := h.svc.PreviewSelection(c.Request().Context(), req.ServiceIDs)
	if err != nil {
		return h.fail(c, err)
	}
	addons := sel.Addons
	if addons == nil {
		addons = []model.Service{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"base_service":           sel.Base,
		"addons":                 addons,
		"total_price_cents":      sel.TotalPriceCents,
		"total_duration_minutes": sel.TotalDurationMinutes,
	})
}

// Create handles POST /v1/reservations.
func (h *ReservationHandler) Create(c echo.Context) error {
	actor, err := getActor(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req model.ReservationRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	res, err := h.svc.CreateReservation(c.Request().Context(), actor.ID, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// ListMine handles GET /v1/my-reservations?status=.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	actor, err := getActor(c)
	if err != nil {
		return h.fail(c, err)
	}
	statuses, err := parseStatuses(c.QueryParam("status"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	list, err := h.svc.ListMyReservations(c.Request().Context(), actor.ID, statuses)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Get handles GET /v1/reservations/:id and GET /v1/admin/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	actor, err := getActor(c)
	if err != nil {
		return h.fail(c, err)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	res, err := h.svc.GetReservation(c.Request().Context(), id, actor)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservation":       res,
		"cancelled_by_role": res.CancelledByRole(),
	})
}

// Cancel handles POST /v1/reservations/:id/cancel and its admin twin.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	actor, err := getActor(c)
	if err != nil {
		return h.fail(c, err)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	var req cancelRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}
	res, err := h.svc.CancelReservation(c.Request().Context(), id, actor, req.Reason)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

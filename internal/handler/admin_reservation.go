package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ckck92/BLG-WEBSITE/internal/model"
	"github.com/ckck92/BLG-WEBSITE/internal/report"
	"github.com/ckck92/BLG-WEBSITE/internal/repository"
	"github.com/ckck92/BLG-WEBSITE/internal/service"
)

// AuditLister reads the admin log.
type AuditLister interface {
	List(ctx context.Context, f repository.AuditFilter) ([]model.AuditRecord, error)
}

// SweepRunner runs one expiry sweep; ran is false when another instance
// holds the sweep lock.
type SweepRunner interface {
	RunOnce(ctx context.Context) (count int, ran bool, err error)
}

// AdminHandler serves the admin reservation, shop hours, revenue and
// operations endpoints.
type AdminHandler struct {
	respond
	svc     *service.SchedulingService
	audit   AuditLister
	sweeper SweepRunner
	loc     *time.Location
	now     func() time.Time
}

func NewAdminHandler(svc *service.SchedulingService, audit AuditLister, sweeper SweepRunner, loc *time.Location, log zerolog.Logger) *AdminHandler {
	if svc == nil || audit == nil || sweeper == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AdminHandler{respond: respond{log: log}, svc: svc, audit: audit, sweeper: sweeper, loc: loc, now: time.Now}
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending accepted on_hold ongoing completed cancelled"`
}

type rescheduleRequest struct {
	Date string `json:"date" validate:"required"`
	Time string `json:"time" validate:"required"`
}

type shopHoursRequest struct {
	IsOpen    bool   `json:"is_open"`
	OpenTime  string `json:"open_time"`
	CloseTime string `json:"close_time"`
}

// List handles GET /v1/admin/reservations?status=.
func (h *AdminHandler) List(c echo.Context) error {
	statuses, err := parseStatuses(c.QueryParam("status"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	list, err := h.svc.ListReservations(c.Request().Context(), statuses)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// UpdateStatus handles PATCH /v1/admin/reservations/:id/status.
func (h *AdminHandler) UpdateStatus(c echo.Context) error {
	actor, err := getActor(c)
	if err != nil {
		return h.fail(c, err)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	var req statusRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	res, err := h.svc.UpdateStatus(c.Request().Context(), id, model.Status(req.Status), actor)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Reschedule handles POST /v1/admin/reservations/:id/reschedule.
func (h *AdminHandler) Reschedule(c echo.Context) error {
	actor, err := getActor(c)
	if err != nil {
		return h.fail(c, err)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	var req rescheduleRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	res, err := h.svc.RescheduleReservation(c.Request().Context(), id, req.Date, req.Time, actor)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// UpdateShopHours handles PUT /v1/admin/shop-hours/:day.
func (h *AdminHandler) UpdateShopHours(c echo.Context) error {
	actor, err := getActor(c)
	if err != nil {
		return h.fail(c, err)
	}
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil || day < 0 || day > 6 {
		return badRequest(c, "day must be 0 (Sunday) to 6 (Saturday)")
	}
	var req shopHoursRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	hours := model.ShopHours{DayOfWeek: day, IsOpen: req.IsOpen, OpenTime: req.OpenTime, CloseTime: req.CloseTime}
	if err := h.svc.UpdateShopHours(c.Request().Context(), hours, actor); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, hours)
}

// Revenue handles GET /v1/admin/revenue.
func (h *AdminHandler) Revenue(c echo.Context) error {
	sum, err := h.svc.Revenue(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}

// ExportRevenue handles GET /v1/admin/revenue/export?from=&to=.  Dates are
// shop-local and inclusive; the default period is the current month.
func (h *AdminHandler) ExportRevenue(c echo.Context) error {
	now := h.now().In(h.loc)
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, h.loc)
	to := from.AddDate(0, 1, 0)
	if v := c.QueryParam("from"); v != "" {
		d, err := time.ParseInLocation("2006-01-02", v, h.loc)
		if err != nil {
			return badRequest(c, "from must be YYYY-MM-DD")
		}
		from = d
	}
	if v := c.QueryParam("to"); v != "" {
		d, err := time.ParseInLocation("2006-01-02", v, h.loc)
		if err != nil {
			return badRequest(c, "to must be YYYY-MM-DD")
		}
		to = d.AddDate(0, 0, 1)
	}

	list, err := h.svc.CompletedReservations(c.Request().Context(), from, to)
	if err != nil {
		return h.fail(c, err)
	}
	var buf bytes.Buffer
	if err := report.WriteRevenue(&buf, list, h.loc); err != nil {
		return h.fail(c, fmt.Errorf("render revenue export: %w", err))
	}
	name := fmt.Sprintf("revenue_%s_%s.xlsx", from.Format("20060102"), to.AddDate(0, 0, -1).Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// Sweep handles POST /v1/admin/sweep.
func (h *AdminHandler) Sweep(c echo.Context) error {
	n, ran, err := h.sweeper.RunOnce(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	status := http.StatusOK
	if !ran {
		status = http.StatusAccepted
	}
	return c.JSON(status, echo.Map{"ran": ran, "cancelled": n})
}

// Logs handles GET /v1/admin/logs?action=&limit=.
func (h *AdminHandler) Logs(c echo.Context) error {
	f := repository.AuditFilter{Action: c.QueryParam("action")}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			return badRequest(c, "limit must be between 1 and 1000")
		}
		f.Limit = n
	}
	logs, err := h.audit.List(c.Request().Context(), f)
	if err != nil {
		return h.fail(c, err)
	}
	if logs == nil {
		logs = []model.AuditRecord{}
	}
	return c.JSON(http.StatusOK, logs)
}

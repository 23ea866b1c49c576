// Package handler exposes the scheduling service over HTTP.  Handlers
// assume JWTAuth and RequireRole have already run for protected routes.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ckck92/BLG-WEBSITE/internal/middleware"
	"github.com/ckck92/BLG-WEBSITE/internal/model"
	"github.com/ckck92/BLG-WEBSITE/internal/service"
)

var errUnauthenticated = errors.New("unauthenticated")

// getActor returns the authenticated caller.
func getActor(c echo.Context) (model.Actor, error) {
	a := middleware.ActorFrom(c)
	if a.ID == "" {
		return model.Actor{}, errUnauthenticated
	}
	return a, nil
}

func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// parseStatuses reads a comma separated ?status= list.
func parseStatuses(raw string) ([]model.Status, error) {
	var out []model.Status
	for _, p := range strings.Split(raw, ",") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		st, err := model.ParseStatus(p)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": "invalid_request"})
}

// respond maps service errors to HTTP responses.
type respond struct {
	log zerolog.Logger
}

func (r respond) fail(c echo.Context, err error) error {
	var (
		ve *service.ValidationError
		nf *service.NotFoundError
		ce *service.ConflictError
		se *service.StateError
		fe *fieldErrors
	)
	switch {
	case errors.Is(err, errUnauthenticated):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": "unauthorized"})
	case errors.As(err, &fe):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": fe.Error(), "code": "invalid_request", "fields": fe.fields})
	case errors.As(err, &ve):
		if ve.Check == "" {
			return badRequest(c, ve.Reason)
		}
		body := echo.Map{"error": ve.Reason, "code": "unavailable", "check": ve.Check}
		if ve.Details != nil {
			body["details"] = ve.Details
		}
		return c.JSON(http.StatusUnprocessableEntity, body)
	case errors.As(err, &nf):
		return c.JSON(http.StatusNotFound, echo.Map{"error": nf.Error(), "code": "not_found"})
	case errors.As(err, &ce):
		return c.JSON(http.StatusConflict, echo.Map{"error": ce.Reason, "code": "slot_taken"})
	case errors.As(err, &se):
		return c.JSON(http.StatusConflict, echo.Map{
			"error": se.Error(), "code": "invalid_transition", "from": se.From, "to": se.To,
		})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "code": "forbidden"})
	}
	id, _ := c.Get(middleware.CtxRequestID).(string)
	r.log.Error().Err(err).Str("request_id", id).Str("path", c.Path()).Msg("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error", "code": "internal"})
}

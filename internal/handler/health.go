package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Health is the liveness probe.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// ReadyHandler reports whether the database and, when configured, Redis
// answer a ping.
type ReadyHandler struct {
	db  *sql.DB
	rdb *redis.Client
}

func NewReadyHandler(db *sql.DB, rdb *redis.Client) *ReadyHandler {
	return &ReadyHandler{db: db, rdb: rdb}
}

func (h *ReadyHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := echo.Map{"database": "ok"}
	ready := true
	if err := h.db.PingContext(ctx); err != nil {
		checks["database"] = err.Error()
		ready = false
	}
	if h.rdb != nil {
		checks["redis"] = "ok"
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			ready = false
		}
	}
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, echo.Map{"ready": ready, "checks": checks})
}

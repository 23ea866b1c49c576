package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/ckck92/BLG-WEBSITE/internal/model"
)

// ActorFrom returns the caller stored by JWTAuth.  The zero Actor is
// returned for anonymous requests.
func ActorFrom(c echo.Context) model.Actor {
	id, _ := c.Get(CtxUserID).(string)
	role, _ := c.Get(CtxRole).(string)
	return model.Actor{ID: id, Role: model.Role(role)}
}

// userID is the rate limit identity: the caller id or "anon".
func userID(c echo.Context) string {
	if id, ok := c.Get(CtxUserID).(string); ok && id != "" {
		return id
	}
	return "anon"
}

package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ckck92/BLG-WEBSITE/internal/model"
)

// RequireRole rejects requests whose role claim is not one of roles.  It
// must run after JWTAuth.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allowed[ActorFrom(c).Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "code": "forbidden"})
			}
			return next(c)
		}
	}
}

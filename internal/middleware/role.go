package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware that allows the request through only when
// the role claim injected by JWTAuth matches one of the allowed values.
// Comparison is case-insensitive.  Admin surfaces (sweep triggers,
// allowance changes, denied-boarding resolution) use RequireRole("ADMIN").
func RequireRole(allowed ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if role == "" {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "missing role"})
			}
			for _, a := range allowed {
				if strings.EqualFold(role, a) {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient role"})
		}
	}
}

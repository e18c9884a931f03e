package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/studyon/billing/internal/core/domain"
)

// RBAC lets the request through when the caller holds any of allowedRoles.
// It must run after Auth. Refusals surface as domain.ErrForbidden so the
// central error handler renders them.
func RBAC(allowedRoles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			roles, _ := c.Get("roles").([]string)
			if !domain.HasAnyRole(roles, allowedRoles...) {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}

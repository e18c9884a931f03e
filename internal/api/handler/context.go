package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ctxAccountID returns the account id injected by the Auth middleware.
// An empty value means the route was mounted without authentication.
func ctxAccountID(c echo.Context) (string, error) {
	id, _ := c.Get("account_id").(string)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return id, nil
}

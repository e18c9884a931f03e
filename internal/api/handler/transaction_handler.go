package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/studyon/billing/internal/core/ports"
)

type TransactionHandler struct {
	service ports.TransactionService
}

func NewTransactionHandler(service ports.TransactionService) *TransactionHandler {
	return &TransactionHandler{service: service}
}

// History handles GET /api/v1/transactions?type=&course_code=&skip_expired=.
// Only the caller's own entries are returned.
func (h *TransactionHandler) History(c echo.Context) error {
	accountID, err := ctxAccountID(c)
	if err != nil {
		return err
	}

	skipExpired := false
	if raw := c.QueryParam("skip_expired"); raw != "" {
		skipExpired, err = strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "skip_expired must be a boolean")
		}
	}

	txs, err := h.service.History(c.Request().Context(), ports.HistoryInput{
		AccountID:   accountID,
		Type:        c.QueryParam("type"),
		CourseCode:  c.QueryParam("course_code"),
		SkipExpired: skipExpired,
	})
	if err != nil {
		return err
	}

	resp := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		resp = append(resp, toTransactionResponse(t))
	}
	return c.JSON(http.StatusOK, resp)
}

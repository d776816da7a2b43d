package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kaldera-app/backend/internal/service"
)

type BalanceHandler struct {
	balances service.BalanceService
}

// NewBalanceHandler creates a new balance handler
func NewBalanceHandler(balances service.BalanceService) *BalanceHandler {
	return &BalanceHandler{balances: balances}
}

// GetBalance handles GET /api/v1/users/:user_id/balance/:date
// The response is computed on the fly when no row has been materialized
// yet, so a day with events never reads as missing.
func (h *BalanceHandler) GetBalance(c *gin.Context) {
	userID := c.Param("user_id")
	date := c.Param("date")

	balance, err := h.balances.GetDay(c.Request.Context(), userID, date)
	if err != nil {
		writeServiceError(c, err, "Balance", date)
		return
	}

	c.JSON(http.StatusOK, balance)
}

// RecomputeBalance handles POST /api/v1/users/:user_id/balance/:date/recompute
func (h *BalanceHandler) RecomputeBalance(c *gin.Context) {
	userID := c.Param("user_id")
	date := c.Param("date")

	balance, err := h.balances.RecomputeDay(c.Request.Context(), userID, date)
	if err != nil {
		writeServiceError(c, err, "Balance", date)
		return
	}

	c.JSON(http.StatusAccepted, balance.ToResponse())
}

// RecomputeRange handles POST /api/v1/users/:user_id/recompute?from=&to=
// Explicit re-aggregation of a date span, used after goal changes or
// historical imports.
func (h *BalanceHandler) RecomputeRange(c *gin.Context) {
	userID := c.Param("user_id")
	from := c.Query("from")
	to := c.Query("to")

	days, err := h.balances.RecomputeRange(c.Request.Context(), userID, from, to)
	if err != nil {
		writeServiceError(c, err, "Balance range", "")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"user_id":         userID,
		"from":            from,
		"to":              to,
		"days_recomputed": days,
	})
}

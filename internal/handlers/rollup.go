package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kaldera-app/backend/internal/models"
	"github.com/kaldera-app/backend/internal/service"
)

type RollupHandler struct {
	rollups service.RollupService
}

// NewRollupHandler creates a new rollup handler
func NewRollupHandler(rollups service.RollupService) *RollupHandler {
	return &RollupHandler{rollups: rollups}
}

// GetRollups handles GET /api/v1/users/:user_id/rollups?granularity=&from=&to=
// Rollups are derived on demand from the event log; enum and range
// validation happens in the service so the field errors are aggregated.
func (h *RollupHandler) GetRollups(c *gin.Context) {
	userID := c.Param("user_id")
	granularity := models.Granularity(c.Query("granularity"))
	from := c.Query("from")
	to := c.Query("to")

	resp, err := h.rollups.Rollup(c.Request.Context(), userID, granularity, from, to)
	if err != nil {
		writeServiceError(c, err, "Rollup", "")
		return
	}

	c.JSON(http.StatusOK, resp)
}

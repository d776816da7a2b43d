package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kaldera-app/backend/internal/models"
	"github.com/kaldera-app/backend/internal/service"
)

type ProfileHandler struct {
	profiles service.ProfileService
}

// NewProfileHandler creates a new metabolic profile handler
func NewProfileHandler(profiles service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// CalculateProfile handles POST /api/v1/metabolic-profiles
// User attributes arrive by value in the request body; the result is
// stored as a new version and the prior active version is deactivated.
func (h *ProfileHandler) CalculateProfile(c *gin.Context) {
	var req models.CalculateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	profile, err := h.profiles.Calculate(c.Request.Context(), &req)
	if err != nil {
		writeServiceError(c, err, "Metabolic profile", "")
		return
	}

	c.JSON(http.StatusCreated, profile)
}

// GetActiveProfile handles GET /api/v1/users/:user_id/metabolic-profile
// The response carries an expired flag so clients know to recalculate.
func (h *ProfileHandler) GetActiveProfile(c *gin.Context) {
	userID := c.Param("user_id")

	profile, err := h.profiles.Active(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err, "Metabolic profile", userID)
		return
	}

	c.JSON(http.StatusOK, profile)
}

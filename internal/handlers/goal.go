package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kaldera-app/backend/internal/apierror"
	"github.com/kaldera-app/backend/internal/models"
	"github.com/kaldera-app/backend/internal/service"
)

type GoalHandler struct {
	goals service.GoalService
}

// NewGoalHandler creates a new goal handler
func NewGoalHandler(goals service.GoalService) *GoalHandler {
	return &GoalHandler{goals: goals}
}

// CreateGoal handles POST /api/v1/goals
func (h *GoalHandler) CreateGoal(c *gin.Context) {
	var req models.CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	goal, err := h.goals.Create(c.Request.Context(), &req)
	if err != nil {
		writeServiceError(c, err, "Goal", "")
		return
	}

	c.JSON(http.StatusCreated, goal)
}

// UpdateGoal handles PUT /api/v1/goals/:id
// Partial update: absent fields are unchanged, explicit nulls clear the
// optional targets.
func (h *GoalHandler) UpdateGoal(c *gin.Context) {
	goalID := c.Param("id")

	var req models.UpdateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	goal, err := h.goals.Update(c.Request.Context(), goalID, &req)
	if err != nil {
		writeServiceError(c, err, "Goal", goalID)
		return
	}

	c.JSON(http.StatusOK, goal)
}

// DeactivateGoal handles POST /api/v1/goals/:id/deactivate
// Goals are never deleted; deactivation is idempotent.
func (h *GoalHandler) DeactivateGoal(c *gin.Context) {
	goalID := c.Param("id")

	goal, err := h.goals.Deactivate(c.Request.Context(), goalID)
	if err != nil {
		writeServiceError(c, err, "Goal", goalID)
		return
	}

	c.JSON(http.StatusOK, goal)
}

// GetActiveGoal handles GET /api/v1/users/:user_id/goals/active?date=
// The date defaults to today (UTC).
func (h *GoalHandler) GetActiveGoal(c *gin.Context) {
	userID := c.Param("user_id")
	date := c.DefaultQuery("date", time.Now().UTC().Format(models.DateLayout))

	goal, err := h.goals.ResolveActive(c.Request.Context(), userID, date)
	if err != nil {
		writeServiceError(c, err, "Goal", date)
		return
	}
	if goal == nil {
		requestID := apierror.GetRequestID(c)
		apierror.WriteProblem(c, apierror.NewNotFoundError(requestID, "Active goal", date))
		return
	}

	c.JSON(http.StatusOK, goal)
}

// ListGoals handles GET /api/v1/users/:user_id/goals
// Returns the full history including deactivated goals.
func (h *GoalHandler) ListGoals(c *gin.Context) {
	userID := c.Param("user_id")

	goals, err := h.goals.History(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err, "Goals", userID)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"goals": goals,
		"count": len(goals),
	})
}

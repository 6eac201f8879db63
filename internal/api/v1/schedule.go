package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/subcycle/subcycle/internal/api/dto"
	ierr "github.com/subcycle/subcycle/internal/errors"
	"github.com/subcycle/subcycle/internal/logger"
	"github.com/subcycle/subcycle/internal/service"
)

// ScheduleHandler handles recurring schedule endpoints
type ScheduleHandler struct {
	scheduleManager service.RecurringScheduleManager
	logger          *logger.Logger
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(scheduleManager service.RecurringScheduleManager, logger *logger.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleManager: scheduleManager,
		logger:          logger,
	}
}

// UpdateSchedule handles PUT /v1/schedules/:id. Ownership of the schedule
// and of any patched-in payment method is enforced for customer callers.
func (h *ScheduleHandler) UpdateSchedule(c *gin.Context) {
	scheduleID := c.Param("id")
	if scheduleID == "" {
		c.Error(ierr.NewError("schedule id is required").
			WithHint("Provide the schedule id in the URL").
			Mark(ierr.ErrValidation))
		return
	}

	var req dto.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request payload").
			Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	updated, err := h.scheduleManager.UpdateSchedule(c.Request.Context(), scheduleID, req.ToScheduleUpdateInput())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewScheduleResponse(updated))
}

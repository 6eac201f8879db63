package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/subcycle/subcycle/internal/api/dto"
	"github.com/subcycle/subcycle/internal/logger"
	"github.com/subcycle/subcycle/internal/service"
)

// SubscriptionHandler handles subscription preview endpoints
type SubscriptionHandler struct {
	orchestrator service.SubscriptionOrchestrator
	logger       *logger.Logger
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(orchestrator service.SubscriptionOrchestrator, logger *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// PreviewSubscriptions handles GET /v1/products/:id/subscription-preview.
// Query parameters other than reserved ones are passed through as custom
// inputs, mirroring the line custom fields of a real purchase.
func (h *SubscriptionHandler) PreviewSubscriptions(c *gin.Context) {
	productID := c.Param("id")

	customInputs := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			customInputs[key] = values[0]
		}
	}

	subs, err := h.orchestrator.PreviewSubscriptionsForProduct(c.Request.Context(), productID, customInputs)
	if err != nil {
		c.Error(err)
		return
	}

	items := make([]dto.SubscriptionPreviewResponse, 0, len(subs))
	for _, sub := range subs {
		items = append(items, dto.NewSubscriptionPreviewResponse(sub))
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": len(items),
	})
}

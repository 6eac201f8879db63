package v1

import (
	"io"
	"net/http"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gin-gonic/gin"
	"github.com/subcycle/subcycle/internal/config"
	"github.com/subcycle/subcycle/internal/logger"
	"github.com/subcycle/subcycle/internal/pubsub"
	"github.com/subcycle/subcycle/internal/sentry"
	"github.com/subcycle/subcycle/internal/service"
)

// HeaderGatewaySignature carries the gateway's HMAC hex digest of the body.
const HeaderGatewaySignature = "X-Gateway-Signature"

// WebhookHandler receives gateway notifications at the HTTP edge. It only
// authenticates and enqueues; reconciliation happens on the worker side so
// the gateway gets its 202 fast.
type WebhookHandler struct {
	config     *config.Configuration
	reconciler service.WebhookReconciler
	pubSub     pubsub.Publisher
	sentry     *sentry.Service
	logger     *logger.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(
	cfg *config.Configuration,
	reconciler service.WebhookReconciler,
	pubSub pubsub.PubSub,
	sentrySvc *sentry.Service,
	logger *logger.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		config:     cfg,
		reconciler: reconciler,
		pubSub:     pubSub,
		sentry:     sentrySvc,
		logger:     logger,
	}
}

// HandleGatewayWebhook handles POST /v1/webhooks/gateway. The signature is
// verified over the exact raw bytes before any parsing; unsigned or
// mis-signed deliveries are rejected with 401.
func (h *WebhookHandler) HandleGatewayWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Errorw("failed to read webhook body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "failed to read request body",
		})
		return
	}

	signature := c.GetHeader(HeaderGatewaySignature)
	if err := h.reconciler.VerifySignature(body, signature); err != nil {
		// A bad signature on this endpoint is either misconfiguration or
		// someone probing it. Both deserve attention.
		h.sentry.CaptureException(err)
		h.logger.Warnw("rejected webhook with invalid signature",
			"remote_addr", c.ClientIP(),
			"signature_present", signature != "",
		)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "invalid webhook signature",
		})
		return
	}

	// No request context on the message: its lifetime ends with this
	// response, while the worker owns the delivery's lifetime.
	msg := message.NewMessage(watermill.NewUUID(), body)

	if err := h.pubSub.Publish(c.Request.Context(), h.config.Webhook.Topic, msg); err != nil {
		h.logger.Errorw("failed to enqueue webhook", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status": "accepted",
	})
}

package handler

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/subcycle/subcycle/internal/config"
	"github.com/subcycle/subcycle/internal/logger"
	"github.com/subcycle/subcycle/internal/pubsub"
	pubsubRouter "github.com/subcycle/subcycle/internal/pubsub/router"
	"github.com/subcycle/subcycle/internal/service"
)

// Handler consumes inbound gateway webhooks off the queue and runs them
// through the reconciler. Signature verification already happened at the
// HTTP edge; everything on the topic is authenticated.
type Handler interface {
	RegisterHandler(router *pubsubRouter.Router)
}

type handler struct {
	pubSub     pubsub.PubSub
	config     *config.Webhook
	reconciler service.WebhookReconciler
	logger     *logger.Logger
}

// NewHandler creates a new webhook handler
func NewHandler(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	reconciler service.WebhookReconciler,
	logger *logger.Logger,
) Handler {
	return &handler{
		pubSub:     pubSub,
		config:     &cfg.Webhook,
		reconciler: reconciler,
		logger:     logger,
	}
}

func (h *handler) RegisterHandler(router *pubsubRouter.Router) {
	router.AddNoPublishHandler(
		"gateway_webhook_handler",
		h.config.Topic,
		h.pubSub,
		h.processMessage,
	)
}

// processMessage reconciles a single webhook delivery. A returned error
// triggers the router's bounded retry; the reconciler's processed-event
// check keeps redeliveries from double-emitting.
func (h *handler) processMessage(msg *message.Message) error {
	ctx := msg.Context()

	h.logger.Debugw("processing gateway webhook",
		"message_uuid", msg.UUID,
	)

	return h.reconciler.Reconcile(ctx, msg.Payload)
}

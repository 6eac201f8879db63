package webhook

import (
	"github.com/subcycle/subcycle/internal/config"
	"github.com/subcycle/subcycle/internal/logger"
	"github.com/subcycle/subcycle/internal/pubsub"
	"github.com/subcycle/subcycle/internal/pubsub/memory"
	"github.com/subcycle/subcycle/internal/types"
	"github.com/subcycle/subcycle/internal/webhook/handler"
	"go.uber.org/fx"
)

// Module provides all webhook-related dependencies
var Module = fx.Options(
	fx.Provide(
		providePubSub,
		handler.NewHandler,
	),
)

func providePubSub(
	cfg *config.Configuration,
	logger *logger.Logger,
) pubsub.PubSub {
	switch cfg.Webhook.PubSub {
	case types.MemoryPubSub:
		return memory.NewPubSub(cfg, logger)
	}
	panic("unsupported pubsub type")
}

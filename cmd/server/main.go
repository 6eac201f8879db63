package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/subcycle/subcycle/internal/api"
	v1 "github.com/subcycle/subcycle/internal/api/v1"
	"github.com/subcycle/subcycle/internal/cache"
	"github.com/subcycle/subcycle/internal/config"
	"github.com/subcycle/subcycle/internal/domain/catalog"
	"github.com/subcycle/subcycle/internal/domain/customer"
	"github.com/subcycle/subcycle/internal/domain/order"
	"github.com/subcycle/subcycle/internal/domain/subscription"
	"github.com/subcycle/subcycle/internal/gateway"
	"github.com/subcycle/subcycle/internal/httpclient"
	"github.com/subcycle/subcycle/internal/logger"
	"github.com/subcycle/subcycle/internal/publisher"
	"github.com/subcycle/subcycle/internal/pubsub"
	pubsubRouter "github.com/subcycle/subcycle/internal/pubsub/router"
	"github.com/subcycle/subcycle/internal/repository"
	"github.com/subcycle/subcycle/internal/sentry"
	"github.com/subcycle/subcycle/internal/service"
	"github.com/subcycle/subcycle/internal/types"
	"github.com/subcycle/subcycle/internal/validator"
	"github.com/subcycle/subcycle/internal/webhook"
	"github.com/subcycle/subcycle/internal/webhook/handler"
	"go.uber.org/fx"
)

func init() {
	// Billing arithmetic assumes UTC everywhere
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			validator.NewValidator,
			config.NewConfig,
			logger.NewLogger,
			sentry.NewSentryService,
			cache.NewInMemoryCache,
			httpclient.NewDefaultClient,

			// Repositories
			provideOrderRepository,
			provideCustomerRepository,
			provideCatalogRepository,

			// Gateway
			gateway.NewRESTClient,

			// Strategy
			provideStrategy,

			// PubSub router
			pubsubRouter.NewRouter,
		),
	)

	// Webhook module (pubsub + queue handler)
	opts = append(opts, webhook.Module)

	// Service layer
	opts = append(opts,
		fx.Provide(
			publisher.NewEventPublisher,
			provideServiceParams,
			service.NewSubscriptionOrchestrator,
			service.NewRecurringScheduleManager,
			service.NewWebhookReconciler,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideOrderRepository() order.Repository {
	return repository.NewInMemoryOrderRepository()
}

func provideCustomerRepository() customer.Repository {
	return repository.NewInMemoryCustomerRepository()
}

func provideCatalogRepository() catalog.Repository {
	return repository.NewInMemoryCatalogRepository()
}

func provideStrategy() subscription.Strategy {
	return subscription.NewDefaultStrategy()
}

func provideServiceParams(
	log *logger.Logger,
	cfg *config.Configuration,
	orderRepo order.Repository,
	customerRepo customer.Repository,
	catalogRepo catalog.Repository,
	gatewayClient gateway.Client,
	strategy subscription.Strategy,
	eventPublisher publisher.EventPublisher,
	inMemCache cache.Cache,
) service.ServiceParams {
	return service.ServiceParams{
		Logger:       log,
		Config:       cfg,
		OrderRepo:    orderRepo,
		CustomerRepo: customerRepo,
		CatalogRepo:  catalogRepo,
		Gateway:      gatewayClient,
		Strategy:     strategy,
		Publisher:    eventPublisher,
		Cache:        inMemCache,
	}
}

func provideHandlers(
	cfg *config.Configuration,
	log *logger.Logger,
	orchestrator service.SubscriptionOrchestrator,
	scheduleManager service.RecurringScheduleManager,
	reconciler service.WebhookReconciler,
	pubSub pubsub.PubSub,
	sentrySvc *sentry.Service,
) api.Handlers {
	return api.Handlers{
		Health:       v1.NewHealthHandler(),
		Subscription: v1.NewSubscriptionHandler(orchestrator, log),
		Schedule:     v1.NewScheduleHandler(scheduleManager, log),
		Webhook:      v1.NewWebhookHandler(cfg, reconciler, pubSub, sentrySvc, log),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration) *gin.Engine {
	return api.NewRouter(handlers, cfg)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	router *pubsubRouter.Router,
	webhookHandler handler.Handler,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal:
		startAPIServer(lc, r, cfg, log)
		startMessageRouter(lc, router, webhookHandler, log)
	case types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
	case types.ModeWorker:
		startMessageRouter(lc, router, webhookHandler, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting API server...")
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}

func startMessageRouter(
	lc fx.Lifecycle,
	router *pubsubRouter.Router,
	webhookHandler handler.Handler,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting message router...")
			webhookHandler.RegisterHandler(router)
			go func() {
				if err := router.Run(); err != nil {
					log.Errorw("message router stopped", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping message router...")
			return router.Close()
		},
	})
}

package api

import (
	v1 "github.com/subcycle/subcycle/internal/api/v1"
	"github.com/gin-gonic/gin"
	"github.com/subcycle/subcycle/internal/config"
	"github.com/subcycle/subcycle/internal/rest/middleware"
	"github.com/subcycle/subcycle/internal/types"
)

type Handlers struct {
	Health       *v1.HealthHandler
	Subscription *v1.SubscriptionHandler
	Schedule     *v1.ScheduleHandler
	Webhook      *v1.WebhookHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration) *gin.Engine {
	if cfg.Deployment.Mode != types.ModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.CallerContextMiddleware,
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	// Inbound gateway notifications
	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/gateway", handlers.Webhook.HandleGatewayWebhook)
	}

	// Subscription preview
	products := router.Group("/products")
	{
		products.GET("/:id/subscription-preview", handlers.Subscription.PreviewSubscriptions)
	}

	// Recurring schedule management
	schedules := router.Group("/schedules")
	{
		schedules.PUT("/:id", handlers.Schedule.UpdateSchedule)
	}
}

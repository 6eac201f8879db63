package service

import (
	"github.com/subcycle/subcycle/internal/cache"
	"github.com/subcycle/subcycle/internal/config"
	"github.com/subcycle/subcycle/internal/domain/catalog"
	"github.com/subcycle/subcycle/internal/domain/customer"
	"github.com/subcycle/subcycle/internal/domain/order"
	"github.com/subcycle/subcycle/internal/domain/subscription"
	"github.com/subcycle/subcycle/internal/gateway"
	"github.com/subcycle/subcycle/internal/logger"
	"github.com/subcycle/subcycle/internal/publisher"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration

	// Repositories
	OrderRepo    order.Repository
	CustomerRepo customer.Repository
	CatalogRepo  catalog.Repository

	// Gateway and strategy
	Gateway  gateway.Client
	Strategy subscription.Strategy

	// Infra
	Publisher publisher.EventPublisher
	Cache     cache.Cache
}

package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/subcycle/subcycle/internal/cache"
	"github.com/subcycle/subcycle/internal/config"
	"github.com/subcycle/subcycle/internal/logger"
	"github.com/subcycle/subcycle/internal/repository"
	"github.com/subcycle/subcycle/internal/types"
	"github.com/subcycle/subcycle/internal/validator"
)

// Stores holds the in-memory repositories for testing. They are concrete so
// tests can seed data directly.
type Stores struct {
	OrderRepo    *repository.InMemoryOrderRepository
	CustomerRepo *repository.InMemoryCustomerRepository
	CatalogRepo  *repository.InMemoryCatalogRepository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	stores    Stores
	gateway   *FakeGateway
	publisher *InMemoryEventPublisher
	cache     cache.Cache
	logger    *logger.Logger
	config    *config.Configuration
	now       time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	cfg := &config.Configuration{
		Deployment: config.DeploymentConfig{Mode: types.ModeLocal},
		Logging: config.LoggingConfig{
			Level: types.LogLevelInfo,
		},
		Gateway: config.GatewayConfig{
			BaseURL:       "https://gateway.test",
			APIKey:        "test-api-key",
			WebhookSecret: "test-webhook-secret",
		},
		Webhook: config.DefaultWebhookConfig(),
	}
	var err error
	s.config = cfg
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		OrderRepo:    repository.NewInMemoryOrderRepository(),
		CustomerRepo: repository.NewInMemoryCustomerRepository(),
		CatalogRepo:  repository.NewInMemoryCatalogRepository(),
	}
	s.gateway = NewFakeGateway()
	s.publisher = NewInMemoryEventPublisher()
	s.cache = cache.NewInMemoryCache()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns the test stores
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetGateway returns the fake gateway
func (s *BaseServiceTestSuite) GetGateway() *FakeGateway {
	return s.gateway
}

// GetPublisher returns the recording event publisher
func (s *BaseServiceTestSuite) GetPublisher() *InMemoryEventPublisher {
	return s.publisher
}

// GetCache returns the test cache
func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetNow returns the current time when the test started
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}

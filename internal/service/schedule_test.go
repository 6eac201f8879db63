package service

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
	"github.com/subcycle/subcycle/internal/domain/catalog"
	"github.com/subcycle/subcycle/internal/domain/customer"
	"github.com/subcycle/subcycle/internal/domain/order"
	"github.com/subcycle/subcycle/internal/domain/subscription"
	ierr "github.com/subcycle/subcycle/internal/errors"
	"github.com/subcycle/subcycle/internal/gateway"
	"github.com/subcycle/subcycle/internal/testutil"
	"github.com/subcycle/subcycle/internal/types"
)

type ScheduleManagerTestSuite struct {
	testutil.BaseServiceTestSuite
	manager RecurringScheduleManager
	fixed   time.Time
}

func TestScheduleManager(t *testing.T) {
	suite.Run(t, new(ScheduleManagerTestSuite))
}

func (s *ScheduleManagerTestSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	// Wednesday, so calendar-anchored start dates are unambiguous
	s.fixed = time.Date(2024, time.November, 20, 10, 0, 0, 0, time.UTC)
	s.manager = s.newManager(subscription.NewDefaultStrategyWithClock(s.clock()))
}

func (s *ScheduleManagerTestSuite) clock() func() time.Time {
	fixed := s.fixed
	return func() time.Time { return fixed }
}

func (s *ScheduleManagerTestSuite) newManager(strategy subscription.Strategy) RecurringScheduleManager {
	stores := s.GetStores()
	params := ServiceParams{
		Logger:       s.GetLogger(),
		Config:       s.GetConfig(),
		OrderRepo:    stores.OrderRepo,
		CustomerRepo: stores.CustomerRepo,
		CatalogRepo:  stores.CatalogRepo,
		Gateway:      s.GetGateway(),
		Strategy:     strategy,
		Publisher:    s.GetPublisher(),
		Cache:        s.GetCache(),
	}
	orchestrator := NewSubscriptionOrchestrator(params)
	return NewRecurringScheduleManagerWithClock(params, orchestrator, s.clock())
}

func (s *ScheduleManagerTestSuite) seedCustomer(gatewayCustomerID string) *customer.Customer {
	cust := &customer.Customer{
		ID:                "cust_1",
		FirstName:         "Ada",
		LastName:          "Lind",
		Email:             "ada@example.com",
		GatewayCustomerID: gatewayCustomerID,
	}
	s.GetStores().CustomerRepo.Seed(cust)
	return cust
}

func (s *ScheduleManagerTestSuite) seedMonthlyVariant() *catalog.Variant {
	variant := &catalog.Variant{
		ID:        "var_sub",
		ProductID: "prod_1",
		Name:      "Streaming Plan",
		ListPrice: 4000,
		Recurring: &catalog.RecurringSettings{
			Interval:         types.IntervalMonth,
			IntervalCount:    1,
			StartMoment:      types.StartOfNextInterval,
			DurationInterval: types.IntervalYear,
			DurationCount:    1,
		},
	}
	s.GetStores().CatalogRepo.SeedProduct(&catalog.Product{ID: "prod_1", Name: "Streaming Box"}, variant)
	return variant
}

func (s *ScheduleManagerTestSuite) seedOrder(variantID string) *order.Order {
	ord := &order.Order{
		ID:           "ord_1",
		Code:         "A-1001",
		CustomerID:   "cust_1",
		CurrencyCode: "USD",
		Lines: []*order.Line{
			{ID: "line_1", VariantID: variantID, Quantity: 1, UnitPrice: 4000},
		},
	}
	s.GetStores().OrderRepo.Seed(ord)
	return ord
}

func (s *ScheduleManagerTestSuite) TestGetOrCreateCustomer_CreatesOnce() {
	s.seedCustomer("")

	first, err := s.manager.GetOrCreateCustomer(s.GetContext(), "cust_1")
	s.NoError(err)
	s.NotEmpty(first)

	second, err := s.manager.GetOrCreateCustomer(s.GetContext(), "cust_1")
	s.NoError(err)
	s.Equal(first, second)
	s.Equal(1, s.GetGateway().CreateCustomerCalls)
}

func (s *ScheduleManagerTestSuite) TestGetOrCreateCustomer_ReusesGatewayMatch() {
	s.seedCustomer("")
	s.GetGateway().SeedCustomer(gateway.Customer{ID: "gwcust_existing", Email: "ada@example.com"})

	id, err := s.manager.GetOrCreateCustomer(s.GetContext(), "cust_1")
	s.NoError(err)
	s.Equal("gwcust_existing", id)
	s.Equal(0, s.GetGateway().CreateCustomerCalls)

	cust, err := s.GetStores().CustomerRepo.Get(s.GetContext(), "cust_1")
	s.NoError(err)
	s.Equal("gwcust_existing", cust.GatewayCustomerID)
}

func (s *ScheduleManagerTestSuite) TestGetOrCreateCustomer_DuplicateEmailsPickDeterministic() {
	s.seedCustomer("")
	s.GetGateway().SeedCustomer(gateway.Customer{ID: "gwcust_b", Email: "ada@example.com"})
	s.GetGateway().SeedCustomer(gateway.Customer{ID: "gwcust_a", Email: "ada@example.com"})

	id, err := s.manager.GetOrCreateCustomer(s.GetContext(), "cust_1")
	s.NoError(err)
	s.Equal("gwcust_a", id)
	s.Equal(0, s.GetGateway().CreateCustomerCalls)
}

func (s *ScheduleManagerTestSuite) TestGetOrCreateCustomer_UnknownCustomer() {
	_, err := s.manager.GetOrCreateCustomer(s.GetContext(), "cust_missing")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *ScheduleManagerTestSuite) TestGetOrCreatePaymentMethod_ReusesMatchingCard() {
	s.GetGateway().SeedPaymentMethod(gateway.PaymentMethod{
		ID:          "pm_stored",
		CustomerID:  "gwcust_1",
		Type:        gateway.PaymentMethodCard,
		Last4:       "4242",
		ExpiryMonth: 12,
		ExpiryYear:  2027,
	})

	method, err := s.manager.GetOrCreatePaymentMethod(s.GetContext(), "gwcust_1", gateway.PaymentMethodInput{
		Type: gateway.PaymentMethodCard,
		Card: &gateway.CardInput{Number: "4111111111114242", ExpiryMonth: 12, ExpiryYear: 2027},
	})
	s.NoError(err)
	s.Equal("pm_stored", method.ID)
}

func (s *ScheduleManagerTestSuite) TestGetOrCreatePaymentMethod_CreatesOnExpiryMismatch() {
	s.GetGateway().SeedPaymentMethod(gateway.PaymentMethod{
		ID:          "pm_stored",
		CustomerID:  "gwcust_1",
		Type:        gateway.PaymentMethodCard,
		Last4:       "4242",
		ExpiryMonth: 12,
		ExpiryYear:  2026,
	})

	method, err := s.manager.GetOrCreatePaymentMethod(s.GetContext(), "gwcust_1", gateway.PaymentMethodInput{
		Type: gateway.PaymentMethodCard,
		Card: &gateway.CardInput{Number: "4111111111114242", ExpiryMonth: 12, ExpiryYear: 2027},
	})
	s.NoError(err)
	s.NotEqual("pm_stored", method.ID)
}

func (s *ScheduleManagerTestSuite) TestGetOrCreatePaymentMethod_ReusesMatchingBankDebit() {
	s.GetGateway().SeedPaymentMethod(gateway.PaymentMethod{
		ID:            "pm_bank",
		CustomerID:    "gwcust_1",
		Type:          gateway.PaymentMethodBankDebit,
		MaskedAccount: "******4321",
	})

	method, err := s.manager.GetOrCreatePaymentMethod(s.GetContext(), "gwcust_1", gateway.PaymentMethodInput{
		Type:      gateway.PaymentMethodBankDebit,
		BankDebit: &gateway.BankDebitInput{AccountNumber: "9876554321", RoutingNumber: "021000021"},
	})
	s.NoError(err)
	s.Equal("pm_bank", method.ID)
}

func (s *ScheduleManagerTestSuite) TestGetOrCreatePaymentMethod_InvalidInput() {
	_, err := s.manager.GetOrCreatePaymentMethod(s.GetContext(), "gwcust_1", gateway.PaymentMethodInput{
		Type: gateway.PaymentMethodCard,
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *ScheduleManagerTestSuite) TestCreateSchedulesForOrder() {
	s.seedCustomer("")
	s.seedMonthlyVariant()
	s.seedOrder("var_sub")

	created, err := s.manager.CreateSchedulesForOrder(s.GetContext(), "ord_1", "pm_1")
	s.NoError(err)
	s.Len(created, 1)

	sched := created[0]
	s.Equal(types.ScheduleStatusActive, sched.Status)
	s.Equal(types.Money(4000), sched.Amount)
	s.Equal(types.FrequencyMonthly, sched.Frequency)
	s.Equal("pm_1", sched.PaymentMethodID)
	s.True(sched.Active)

	// First period is paid at checkout: the schedule starts one month out,
	// and the bounded duration leaves 11 recurring charges.
	s.Require().NotNil(sched.NextRunDate)
	s.Equal(time.Date(2024, time.December, 20, 10, 0, 0, 0, time.UTC), *sched.NextRunDate)
	s.Equal(11, sched.NumLeft)

	// The schedule id lands on the line's correlation token
	line, err := s.GetStores().OrderRepo.FindLineByScheduleID(s.GetContext(), sched.ID)
	s.NoError(err)
	s.Equal("line_1", line.ID)
	s.True(lo.Contains(line.ScheduleIDs, sched.ID))

	events := s.GetPublisher().SubscriptionEvents()
	s.Require().Len(events, 1)
	s.Equal(types.EventSubscriptionCreated, events[0].EventName)
	s.Equal(sched.ID, events[0].ScheduleID)
}

func (s *ScheduleManagerTestSuite) TestCreateSchedulesForOrder_NoSubscriptionLines() {
	s.seedCustomer("")
	variant := &catalog.Variant{ID: "var_plain", ProductID: "prod_1", Name: "One-off", ListPrice: 1500}
	s.GetStores().CatalogRepo.SeedProduct(&catalog.Product{ID: "prod_1", Name: "Streaming Box"}, variant)
	s.seedOrder("var_plain")

	created, err := s.manager.CreateSchedulesForOrder(s.GetContext(), "ord_1", "pm_1")
	s.NoError(err)
	s.Nil(created)
	s.Equal(0, s.GetGateway().CreateCustomerCalls)
	s.Equal(0, s.GetGateway().CreateScheduleCalls)
}

func (s *ScheduleManagerTestSuite) TestCreateSchedulesForOrder_NextRunDateOmittedWhenStartIsToday() {
	s.seedCustomer("")
	s.seedMonthlyVariant()
	s.seedOrder("var_sub")

	// The gateway-managed strategy starts schedules on the purchase day, so
	// the gateway must charge immediately instead of being given a date.
	manager := s.newManager(subscription.NewGatewayManagedStrategyWithClock(s.clock()))

	created, err := manager.CreateSchedulesForOrder(s.GetContext(), "ord_1", "pm_1")
	s.NoError(err)
	s.Require().Len(created, 1)
	s.Nil(created[0].NextRunDate)
}

func (s *ScheduleManagerTestSuite) TestCreateSchedulesForOrder_ConcurrentTokenReads() {
	// Webhook resolution scans correlation tokens while schedule creation
	// appends to them; every token write must go through the repository's
	// lock. Run with -race.
	s.seedCustomer("")
	s.seedMonthlyVariant()
	s.seedOrder("var_sub")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			_, _ = s.GetStores().OrderRepo.FindLineByScheduleID(s.GetContext(), "sched_0001")
		}
	}()

	created, err := s.manager.CreateSchedulesForOrder(s.GetContext(), "ord_1", "pm_1")
	<-done
	s.NoError(err)
	s.Require().Len(created, 1)

	line, err := s.GetStores().OrderRepo.FindLineByScheduleID(s.GetContext(), created[0].ID)
	s.NoError(err)
	s.Equal("line_1", line.ID)
	s.True(line.HasScheduleID(created[0].ID))
}

func (s *ScheduleManagerTestSuite) TestCreateSchedulesForOrder_RetriesTransientGatewayFailure() {
	s.seedCustomer("")
	s.seedMonthlyVariant()
	s.seedOrder("var_sub")
	s.GetGateway().FailCreateScheduleTimes = 1

	created, err := s.manager.CreateSchedulesForOrder(s.GetContext(), "ord_1", "pm_1")
	s.NoError(err)
	s.Len(created, 1)
	s.Equal(2, s.GetGateway().CreateScheduleCalls)
}

func (s *ScheduleManagerTestSuite) TestCreateSchedulesForOrder_GatewayRejectionNotRetried() {
	// A 4xx rejection is final; only transient failures go through backoff.
	s.seedCustomer("")
	s.seedMonthlyVariant()
	s.seedOrder("var_sub")
	s.GetGateway().FailCreateScheduleWith = ierr.NewError("gateway rejected the request").
		WithHint("The gateway rejected the request").
		Mark(ierr.ErrValidation)

	_, err := s.manager.CreateSchedulesForOrder(s.GetContext(), "ord_1", "pm_1")
	s.Error(err)
	s.True(ierr.IsValidation(err))
	s.Equal(1, s.GetGateway().CreateScheduleCalls)
}

func (s *ScheduleManagerTestSuite) TestCreateSchedulesForOrder_UnmappableCadence() {
	s.seedCustomer("")
	variant := s.seedMonthlyVariant()
	variant.Recurring.IntervalCount = 5
	s.seedOrder("var_sub")

	_, err := s.manager.CreateSchedulesForOrder(s.GetContext(), "ord_1", "pm_1")
	s.Error(err)
	s.True(ierr.IsValidation(err))
	s.Equal(0, s.GetGateway().CreateScheduleCalls)
}

func (s *ScheduleManagerTestSuite) TestUpdateSchedule_Operator() {
	s.GetGateway().SeedSchedule(&gateway.Schedule{
		ID:         "sched_1",
		CustomerID: "gwcust_1",
		Title:      "Streaming Plan",
		Amount:     4000,
		Status:     types.ScheduleStatusActive,
	})

	updated, err := s.manager.UpdateSchedule(s.GetContext(), "sched_1", gateway.ScheduleUpdateInput{
		Title: lo.ToPtr("Streaming Plan (renamed)"),
	})
	s.NoError(err)
	s.Equal("Streaming Plan (renamed)", updated.Title)

	events := s.GetPublisher().SubscriptionEvents()
	s.Require().Len(events, 1)
	s.Equal(types.EventSubscriptionUpdated, events[0].EventName)
	s.Equal("Streaming Plan (renamed)", events[0].Input["title"])
}

func (s *ScheduleManagerTestSuite) TestUpdateSchedule_OwningCustomer() {
	s.seedCustomer("gwcust_1")
	s.GetGateway().SeedSchedule(&gateway.Schedule{
		ID:         "sched_1",
		CustomerID: "gwcust_1",
		Amount:     4000,
	})

	ctx := testutil.SetupCustomerContext("cust_1")
	updated, err := s.manager.UpdateSchedule(ctx, "sched_1", gateway.ScheduleUpdateInput{
		Amount: lo.ToPtr(types.Money(4500)),
	})
	s.NoError(err)
	s.Equal(types.Money(4500), updated.Amount)
}

func (s *ScheduleManagerTestSuite) TestUpdateSchedule_ForeignScheduleDenied() {
	s.seedCustomer("gwcust_1")
	s.GetGateway().SeedSchedule(&gateway.Schedule{
		ID:         "sched_1",
		CustomerID: "gwcust_other",
		Amount:     4000,
	})

	ctx := testutil.SetupCustomerContext("cust_1")
	_, err := s.manager.UpdateSchedule(ctx, "sched_1", gateway.ScheduleUpdateInput{
		Amount: lo.ToPtr(types.Money(4500)),
	})
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))
	s.Empty(s.GetPublisher().SubscriptionEvents())
}

func (s *ScheduleManagerTestSuite) TestUpdateSchedule_ForeignPaymentMethodDenied() {
	// Owning the schedule is not enough: the patched-in payment method must
	// belong to the same customer.
	s.seedCustomer("gwcust_1")
	s.GetGateway().SeedSchedule(&gateway.Schedule{
		ID:         "sched_1",
		CustomerID: "gwcust_1",
	})
	s.GetGateway().SeedPaymentMethod(gateway.PaymentMethod{
		ID:         "pm_foreign",
		CustomerID: "gwcust_other",
		Type:       gateway.PaymentMethodCard,
	})

	ctx := testutil.SetupCustomerContext("cust_1")
	_, err := s.manager.UpdateSchedule(ctx, "sched_1", gateway.ScheduleUpdateInput{
		PaymentMethodID: lo.ToPtr("pm_foreign"),
	})
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))
}

func (s *ScheduleManagerTestSuite) TestUpdateSchedule_CustomerWithoutGatewayRecord() {
	s.seedCustomer("")

	ctx := testutil.SetupCustomerContext("cust_1")
	_, err := s.manager.UpdateSchedule(ctx, "sched_1", gateway.ScheduleUpdateInput{
		Active: lo.ToPtr(false),
	})
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))
}

func (s *ScheduleManagerTestSuite) TestUpdateSchedule_UnknownScheduleForCustomer() {
	s.seedCustomer("gwcust_1")

	ctx := testutil.SetupCustomerContext("cust_1")
	_, err := s.manager.UpdateSchedule(ctx, "sched_missing", gateway.ScheduleUpdateInput{
		Active: lo.ToPtr(false),
	})
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/subcycle/subcycle/internal/domain/proration"
	"github.com/subcycle/subcycle/internal/domain/subscription"
	ierr "github.com/subcycle/subcycle/internal/errors"
	"github.com/subcycle/subcycle/internal/gateway"
	"github.com/subcycle/subcycle/internal/types"
)

// scheduleCreateMaxRetries bounds retries of one gateway schedule creation.
const scheduleCreateMaxRetries = 3

// RecurringScheduleManager drives the gateway side of a subscription sale:
// customer resolution, payment method reuse, schedule creation against
// captured orders, and authorized schedule updates.
type RecurringScheduleManager interface {
	// GetOrCreateCustomer resolves the gateway customer id for a local
	// customer, creating the gateway record when none exists. The mapping is
	// persisted before return so a second call never creates a duplicate.
	GetOrCreateCustomer(ctx context.Context, customerID string) (string, error)

	// GetOrCreatePaymentMethod reuses a stored method matching the input
	// (card by last4 and expiry, bank debit by masked account) or creates one.
	GetOrCreatePaymentMethod(ctx context.Context, gatewayCustomerID string, input gateway.PaymentMethodInput) (*gateway.PaymentMethod, error)

	// CreateSchedulesForOrder creates one gateway schedule per defined
	// subscription of the order and records each schedule id on its order
	// line's correlation token. Safe to re-run after a partial failure.
	CreateSchedulesForOrder(ctx context.Context, orderID string, paymentMethodID string) ([]*gateway.Schedule, error)

	// UpdateSchedule patches a gateway schedule. Customer callers must own
	// both the schedule and any payment method they patch in; operators
	// bypass ownership.
	UpdateSchedule(ctx context.Context, scheduleID string, patch gateway.ScheduleUpdateInput) (*gateway.Schedule, error)
}

type recurringScheduleManager struct {
	ServiceParams
	orchestrator SubscriptionOrchestrator
	orderLocks   *keyedMutex
	now          func() time.Time
}

// NewRecurringScheduleManager creates a new schedule manager.
func NewRecurringScheduleManager(params ServiceParams, orchestrator SubscriptionOrchestrator) RecurringScheduleManager {
	return NewRecurringScheduleManagerWithClock(params, orchestrator, time.Now)
}

// NewRecurringScheduleManagerWithClock is NewRecurringScheduleManager with an
// injectable clock for date-sensitive tests.
func NewRecurringScheduleManagerWithClock(params ServiceParams, orchestrator SubscriptionOrchestrator, now func() time.Time) RecurringScheduleManager {
	return &recurringScheduleManager{
		ServiceParams: params,
		orchestrator:  orchestrator,
		orderLocks:    newKeyedMutex(),
		now:           now,
	}
}

func (s *recurringScheduleManager) GetOrCreateCustomer(ctx context.Context, customerID string) (string, error) {
	cust, err := s.CustomerRepo.Get(ctx, customerID)
	if err != nil {
		return "", err
	}

	if cust.GatewayCustomerID != "" {
		return cust.GatewayCustomerID, nil
	}

	matches, err := s.Gateway.FindCustomersByEmail(ctx, cust.Email)
	if err != nil {
		return "", err
	}

	var gatewayCustomerID string
	switch {
	case len(matches) == 0:
		created, err := s.Gateway.CreateCustomer(ctx, gateway.CustomerInput{
			Email:     cust.Email,
			FirstName: cust.FirstName,
			LastName:  cust.LastName,
		})
		if err != nil {
			return "", err
		}
		gatewayCustomerID = created.ID

	case len(matches) == 1:
		gatewayCustomerID = matches[0].ID

	default:
		// Duplicate gateway customers are a data quality problem, not a
		// checkout blocker. Pick deterministically so every caller lands on
		// the same record.
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].ID < matches[j].ID
		})
		gatewayCustomerID = matches[0].ID
		s.Logger.Warnw("multiple gateway customers share one email",
			"customer_id", customerID,
			"email", cust.Email,
			"match_count", len(matches),
			"picked_gateway_customer_id", gatewayCustomerID,
		)
	}

	// Persist the mapping before returning it: once a caller has seen the
	// id, every later resolution must short-circuit on the local record.
	if err := s.CustomerRepo.SaveGatewayCustomerID(ctx, customerID, gatewayCustomerID); err != nil {
		return "", err
	}
	return gatewayCustomerID, nil
}

func (s *recurringScheduleManager) GetOrCreatePaymentMethod(ctx context.Context, gatewayCustomerID string, input gateway.PaymentMethodInput) (*gateway.PaymentMethod, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	stored, err := s.Gateway.ListPaymentMethods(ctx, gatewayCustomerID)
	if err != nil {
		return nil, err
	}

	for i := range stored {
		method := &stored[i]
		if method.Type != input.Type {
			continue
		}
		switch input.Type {
		case gateway.PaymentMethodCard:
			if method.Last4 == input.Card.Last4() &&
				method.ExpiryMonth == input.Card.ExpiryMonth &&
				method.ExpiryYear == input.Card.ExpiryYear {
				return method, nil
			}
		case gateway.PaymentMethodBankDebit:
			if method.MaskedAccount == input.BankDebit.MaskedAccount() {
				return method, nil
			}
		}
	}

	return s.Gateway.CreatePaymentMethod(ctx, gatewayCustomerID, input)
}

func (s *recurringScheduleManager) CreateSchedulesForOrder(ctx context.Context, orderID string, paymentMethodID string) ([]*gateway.Schedule, error) {
	// Single writer per order. Retried runs and concurrent workers for the
	// same order serialize here; different orders proceed in parallel.
	unlock := s.orderLocks.lock(orderID)
	defer unlock()

	ord, err := s.OrderRepo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	subs, err := s.orchestrator.GetSubscriptionsForOrder(ctx, ord)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, nil
	}

	gatewayCustomerID, err := s.GetOrCreateCustomer(ctx, ord.CustomerID)
	if err != nil {
		return nil, err
	}

	created := make([]*gateway.Schedule, 0, len(subs))
	for _, sub := range subs {
		input, err := s.buildScheduleInput(sub.Subscription.Name, &sub.Subscription.Recurring, paymentMethodID)
		if err != nil {
			return created, err
		}

		sched, err := s.createScheduleWithRetry(ctx, gatewayCustomerID, input)
		if err != nil {
			return created, err
		}
		created = append(created, sched)

		if err := s.appendCorrelationToken(ctx, sub.OrderLineID, sched.ID); err != nil {
			return created, err
		}

		if err := s.Publisher.PublishSubscriptionUpdated(ctx, &types.SubscriptionUpdatedEvent{
			EventName:  types.EventSubscriptionCreated,
			ScheduleID: sched.ID,
			OccurredAt: s.now(),
		}); err != nil {
			s.Logger.Errorw("failed to publish subscription created event",
				"schedule_id", sched.ID,
				"error", err,
			)
		}
	}

	s.Logger.Infow("created recurring schedules for order",
		"order_id", orderID,
		"schedule_count", len(created),
	)
	return created, nil
}

func (s *recurringScheduleManager) buildScheduleInput(name string, rec *subscription.Recurring, paymentMethodID string) (gateway.ScheduleInput, error) {
	freq, err := types.FrequencyFromInterval(rec.Interval, rec.IntervalCount)
	if err != nil {
		return gateway.ScheduleInput{}, err
	}

	input := gateway.ScheduleInput{
		Title:           name,
		Amount:          rec.Amount,
		Frequency:       freq,
		PaymentMethodID: paymentMethodID,
		Active:          true,
	}

	if rec.EndDate != nil {
		cycles, err := proration.BillingCyclesLeft(rec.StartDate, *rec.EndDate, rec.Interval, rec.IntervalCount)
		if err != nil {
			return gateway.ScheduleInput{}, err
		}
		input.NumLeft = cycles
	}

	// The gateway rejects a next-run date that is not strictly in the
	// future. When the first charge falls today, leave it unset so the
	// gateway charges immediately.
	if !types.SameDay(rec.StartDate, s.now()) {
		start := rec.StartDate
		input.NextRunDate = &start
	}

	return input, nil
}

func (s *recurringScheduleManager) UpdateSchedule(ctx context.Context, scheduleID string, patch gateway.ScheduleUpdateInput) (*gateway.Schedule, error) {
	if types.GetUserRole(ctx) == types.RoleCustomer {
		if err := s.authorizeCustomerUpdate(ctx, scheduleID, patch); err != nil {
			return nil, err
		}
	}

	updated, err := s.Gateway.UpdateSchedule(ctx, scheduleID, patch)
	if err != nil {
		return nil, err
	}

	if err := s.Publisher.PublishSubscriptionUpdated(ctx, &types.SubscriptionUpdatedEvent{
		EventName:  types.EventSubscriptionUpdated,
		ScheduleID: scheduleID,
		Input:      patchDetails(patch),
		OccurredAt: s.now(),
	}); err != nil {
		s.Logger.Errorw("failed to publish subscription updated event",
			"schedule_id", scheduleID,
			"error", err,
		)
	}
	return updated, nil
}

// authorizeCustomerUpdate enforces both ownership checks independently: the
// schedule must belong to the caller's gateway customer, and a patched-in
// payment method must belong to the same customer. Either failure denies.
func (s *recurringScheduleManager) authorizeCustomerUpdate(ctx context.Context, scheduleID string, patch gateway.ScheduleUpdateInput) error {
	customerID := types.GetCustomerID(ctx)
	if customerID == "" {
		return ierr.NewError("no customer in request context").
			WithHint("Customer authentication is required to update a schedule").
			Mark(ierr.ErrPermissionDenied)
	}

	cust, err := s.CustomerRepo.Get(ctx, customerID)
	if err != nil {
		return err
	}
	if cust.GatewayCustomerID == "" {
		return ierr.NewError("customer has no gateway record").
			WithHint("You do not have any recurring schedules").
			Mark(ierr.ErrPermissionDenied)
	}

	schedules, err := s.Gateway.ListSchedules(ctx, []string{scheduleID})
	if err != nil {
		return err
	}
	if len(schedules) == 0 {
		return ierr.NewError("schedule not found").
			WithReportableDetails(map[string]any{
				"schedule_id": scheduleID,
			}).
			Mark(ierr.ErrNotFound)
	}

	if schedules[0].CustomerID != cust.GatewayCustomerID {
		s.Logger.Warnw("customer attempted to update a schedule they do not own",
			"customer_id", customerID,
			"schedule_id", scheduleID,
		)
		return ierr.NewError("schedule does not belong to the caller").
			WithHint("You can only update your own schedules").
			Mark(ierr.ErrPermissionDenied)
	}

	if patch.PaymentMethodID != nil {
		methods, err := s.Gateway.ListPaymentMethods(ctx, cust.GatewayCustomerID)
		if err != nil {
			return err
		}
		owned := false
		for i := range methods {
			if methods[i].ID == *patch.PaymentMethodID {
				owned = true
				break
			}
		}
		if !owned {
			s.Logger.Warnw("customer attempted to attach a payment method they do not own",
				"customer_id", customerID,
				"schedule_id", scheduleID,
				"payment_method_id", *patch.PaymentMethodID,
			)
			return ierr.NewError("payment method does not belong to the caller").
				WithHint("You can only use your own payment methods").
				Mark(ierr.ErrPermissionDenied)
		}
	}
	return nil
}

func patchDetails(patch gateway.ScheduleUpdateInput) map[string]any {
	details := make(map[string]any)
	if patch.Title != nil {
		details["title"] = *patch.Title
	}
	if patch.Amount != nil {
		details["amount"] = *patch.Amount
	}
	if patch.Frequency != nil {
		details["frequency"] = *patch.Frequency
	}
	if patch.PaymentMethodID != nil {
		details["payment_method_id"] = *patch.PaymentMethodID
	}
	if patch.NextRunDate != nil {
		details["next_run_date"] = patch.NextRunDate.Format(types.GatewayDateFormat)
	}
	if patch.NumLeft != nil {
		details["num_left"] = *patch.NumLeft
	}
	if patch.Active != nil {
		details["active"] = *patch.Active
	}
	return details
}

func (s *recurringScheduleManager) createScheduleWithRetry(ctx context.Context, gatewayCustomerID string, input gateway.ScheduleInput) (*gateway.Schedule, error) {
	var sched *gateway.Schedule

	operation := func() error {
		var err error
		sched, err = s.Gateway.CreateSchedule(ctx, gatewayCustomerID, input)
		if err == nil {
			return nil
		}
		if !ierr.IsHTTPClient(err) {
			return backoff.Permanent(err)
		}
		s.Logger.Warnw("transient gateway failure creating schedule, will retry",
			"title", input.Title,
			"error", err,
		)
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), scheduleCreateMaxRetries),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return sched, nil
}

// appendCorrelationToken records the schedule id on its order line, skipping
// ids already present so a replayed run cannot duplicate them. The line is
// re-read through the repository and only written via SaveCorrelationToken:
// webhook resolution reads the token concurrently, so the repository's lock
// must guard every write to it.
func (s *recurringScheduleManager) appendCorrelationToken(ctx context.Context, orderLineID, scheduleID string) error {
	lines, err := s.OrderRepo.FindLinesByIDs(ctx, []string{orderLineID})
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return ierr.NewError("order line not found").
			WithReportableDetails(map[string]any{
				"order_line_id": orderLineID,
			}).
			Mark(ierr.ErrNotFound)
	}
	line := lines[0]

	if line.HasScheduleID(scheduleID) {
		return nil
	}

	tokens := append(append([]string{}, line.ScheduleIDs...), scheduleID)
	return s.OrderRepo.SaveCorrelationToken(ctx, line.ID, tokens)
}

// keyedMutex hands out one mutex per key, created on first use.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

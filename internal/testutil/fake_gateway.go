package testutil

import (
	"context"
	"fmt"
	"sync"

	ierr "github.com/subcycle/subcycle/internal/errors"
	"github.com/subcycle/subcycle/internal/gateway"
	"github.com/subcycle/subcycle/internal/types"
)

// FakeGateway is an in-memory gateway.Client that records every mutating
// call. Transient failures can be injected to exercise retry paths.
type FakeGateway struct {
	mu sync.Mutex

	customers      []gateway.Customer
	paymentMethods map[string][]gateway.PaymentMethod
	schedules      map[string]*gateway.Schedule
	transactions   map[string][]gateway.Transaction

	nextID int

	// CreateCustomerCalls counts gateway customer creations.
	CreateCustomerCalls int

	// CreateScheduleCalls counts every CreateSchedule attempt, including
	// injected failures.
	CreateScheduleCalls int

	// CreateScheduleInputs records the inputs of successful creations.
	CreateScheduleInputs []gateway.ScheduleInput

	// FailCreateScheduleTimes makes the next N CreateSchedule calls fail
	// with a transient error.
	FailCreateScheduleTimes int

	// FailCreateScheduleWith makes every CreateSchedule call fail with the
	// given error until cleared.
	FailCreateScheduleWith error
}

var _ gateway.Client = (*FakeGateway)(nil)

// NewFakeGateway creates an empty fake gateway.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		paymentMethods: make(map[string][]gateway.PaymentMethod),
		schedules:      make(map[string]*gateway.Schedule),
		transactions:   make(map[string][]gateway.Transaction),
	}
}

func (f *FakeGateway) genID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s_%04d", prefix, f.nextID)
}

// SeedCustomer registers an existing gateway customer.
func (f *FakeGateway) SeedCustomer(cust gateway.Customer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.customers = append(f.customers, cust)
}

// SeedPaymentMethod registers a stored payment method.
func (f *FakeGateway) SeedPaymentMethod(method gateway.PaymentMethod) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paymentMethods[method.CustomerID] = append(f.paymentMethods[method.CustomerID], method)
}

// SeedSchedule registers an existing schedule.
func (f *FakeGateway) SeedSchedule(sched *gateway.Schedule) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schedules[sched.ID] = sched
}

// Schedules returns all stored schedules.
func (f *FakeGateway) Schedules() []*gateway.Schedule {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*gateway.Schedule, 0, len(f.schedules))
	for _, s := range f.schedules {
		out = append(out, s)
	}
	return out
}

func (f *FakeGateway) FindCustomersByEmail(ctx context.Context, email string) ([]gateway.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matches []gateway.Customer
	for _, c := range f.customers {
		if c.Email == email {
			matches = append(matches, c)
		}
	}
	return matches, nil
}

func (f *FakeGateway) CreateCustomer(ctx context.Context, input gateway.CustomerInput) (*gateway.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CreateCustomerCalls++
	cust := gateway.Customer{
		ID:        f.genID("gwcust"),
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Active:    true,
	}
	f.customers = append(f.customers, cust)
	return &cust, nil
}

func (f *FakeGateway) UpdateCustomer(ctx context.Context, id string, input gateway.CustomerInput) (*gateway.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.customers {
		if f.customers[i].ID == id {
			f.customers[i].Email = input.Email
			f.customers[i].FirstName = input.FirstName
			f.customers[i].LastName = input.LastName
			return &f.customers[i], nil
		}
	}
	return nil, notFound("gateway customer", id)
}

func (f *FakeGateway) ListPaymentMethods(ctx context.Context, customerID string) ([]gateway.PaymentMethod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gateway.PaymentMethod{}, f.paymentMethods[customerID]...), nil
}

func (f *FakeGateway) CreatePaymentMethod(ctx context.Context, customerID string, input gateway.PaymentMethodInput) (*gateway.PaymentMethod, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	method := gateway.PaymentMethod{
		ID:         f.genID("pm"),
		CustomerID: customerID,
		Type:       input.Type,
	}
	switch input.Type {
	case gateway.PaymentMethodCard:
		method.Last4 = input.Card.Last4()
		method.ExpiryMonth = input.Card.ExpiryMonth
		method.ExpiryYear = input.Card.ExpiryYear
	case gateway.PaymentMethodBankDebit:
		method.MaskedAccount = input.BankDebit.MaskedAccount()
		method.RoutingNumber = input.BankDebit.RoutingNumber
	}
	f.paymentMethods[customerID] = append(f.paymentMethods[customerID], method)
	return &method, nil
}

func (f *FakeGateway) UpdatePaymentMethod(ctx context.Context, id string, input gateway.PaymentMethodInput) (*gateway.PaymentMethod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for customerID, methods := range f.paymentMethods {
		for i := range methods {
			if methods[i].ID == id {
				method := &f.paymentMethods[customerID][i]
				if input.Type == gateway.PaymentMethodCard && input.Card != nil {
					method.Last4 = input.Card.Last4()
					method.ExpiryMonth = input.Card.ExpiryMonth
					method.ExpiryYear = input.Card.ExpiryYear
				}
				return method, nil
			}
		}
	}
	return nil, notFound("payment method", id)
}

func (f *FakeGateway) DeletePaymentMethod(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for customerID, methods := range f.paymentMethods {
		for i := range methods {
			if methods[i].ID == id {
				f.paymentMethods[customerID] = append(methods[:i], methods[i+1:]...)
				return nil
			}
		}
	}
	return notFound("payment method", id)
}

func (f *FakeGateway) CreateSchedule(ctx context.Context, customerID string, input gateway.ScheduleInput) (*gateway.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CreateScheduleCalls++
	if f.FailCreateScheduleWith != nil {
		return nil, f.FailCreateScheduleWith
	}
	if f.FailCreateScheduleTimes > 0 {
		f.FailCreateScheduleTimes--
		return nil, ierr.NewError("gateway unavailable").
			WithHint("The gateway is temporarily unavailable").
			Mark(ierr.ErrHTTPClient)
	}

	sched := &gateway.Schedule{
		ID:              f.genID("sched"),
		CustomerID:      customerID,
		PaymentMethodID: input.PaymentMethodID,
		Title:           input.Title,
		Amount:          input.Amount,
		Frequency:       input.Frequency,
		Status:          types.ScheduleStatusActive,
		NextRunDate:     input.NextRunDate,
		NumLeft:         input.NumLeft,
		Active:          input.Active,
	}
	f.schedules[sched.ID] = sched
	f.CreateScheduleInputs = append(f.CreateScheduleInputs, input)
	return sched, nil
}

func (f *FakeGateway) UpdateSchedule(ctx context.Context, id string, input gateway.ScheduleUpdateInput) (*gateway.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sched, ok := f.schedules[id]
	if !ok {
		return nil, notFound("schedule", id)
	}
	if input.Title != nil {
		sched.Title = *input.Title
	}
	if input.Amount != nil {
		sched.Amount = *input.Amount
	}
	if input.Frequency != nil {
		sched.Frequency = *input.Frequency
	}
	if input.PaymentMethodID != nil {
		sched.PaymentMethodID = *input.PaymentMethodID
	}
	if input.NextRunDate != nil {
		sched.NextRunDate = input.NextRunDate
	}
	if input.NumLeft != nil {
		sched.NumLeft = *input.NumLeft
	}
	if input.Active != nil {
		sched.Active = *input.Active
	}
	return sched, nil
}

func (f *FakeGateway) ListSchedules(ctx context.Context, ids []string) ([]gateway.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]gateway.Schedule, 0, len(ids))
	for _, id := range ids {
		if sched, ok := f.schedules[id]; ok {
			out = append(out, *sched)
		}
	}
	return out, nil
}

func (f *FakeGateway) ListScheduleTransactions(ctx context.Context, scheduleID string) ([]gateway.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gateway.Transaction{}, f.transactions[scheduleID]...), nil
}

func (f *FakeGateway) CreateCharge(ctx context.Context, input gateway.ChargeInput) (*gateway.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	txn := gateway.Transaction{
		ID:           f.genID("txn"),
		Status:       "approved",
		Amount:       input.Amount,
		CustomFields: input.CustomFields,
	}
	f.transactions[""] = append(f.transactions[""], txn)
	return &txn, nil
}

func (f *FakeGateway) Refund(ctx context.Context, transactionID string, amount *types.Money, reason string) (*gateway.RefundResult, error) {
	result := &gateway.RefundResult{
		TransactionID: transactionID,
		Status:        "refunded",
	}
	if amount != nil {
		result.Amount = *amount
	}
	return result, nil
}

func notFound(entity, id string) error {
	return ierr.NewError(entity + " not found").
		WithReportableDetails(map[string]any{
			"id": id,
		}).
		Mark(ierr.ErrNotFound)
}

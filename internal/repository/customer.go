package repository

import (
	"context"
	"sync"

	"github.com/subcycle/subcycle/internal/domain/customer"
	ierr "github.com/subcycle/subcycle/internal/errors"
)

// InMemoryCustomerRepository is a thread-safe in-process customer store.
type InMemoryCustomerRepository struct {
	mu        sync.RWMutex
	customers map[string]*customer.Customer
}

// NewInMemoryCustomerRepository creates an empty customer repository.
func NewInMemoryCustomerRepository() *InMemoryCustomerRepository {
	return &InMemoryCustomerRepository{
		customers: make(map[string]*customer.Customer),
	}
}

// Seed inserts a customer.
func (r *InMemoryCustomerRepository) Seed(cust *customer.Customer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customers[cust.ID] = cust
}

func (r *InMemoryCustomerRepository) Get(ctx context.Context, id string) (*customer.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cust, ok := r.customers[id]
	if !ok {
		return nil, ierr.NewError("customer not found").
			WithHintf("Customer with ID %s was not found", id).
			WithReportableDetails(map[string]any{
				"customer_id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return cust, nil
}

func (r *InMemoryCustomerRepository) GetByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, cust := range r.customers {
		if cust.Email == email {
			return cust, nil
		}
	}
	return nil, ierr.NewError("customer not found").
		WithHintf("Customer with email %s was not found", email).
		Mark(ierr.ErrNotFound)
}

func (r *InMemoryCustomerRepository) Update(ctx context.Context, cust *customer.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.customers[cust.ID]; !ok {
		return ierr.NewError("customer not found").
			WithReportableDetails(map[string]any{
				"customer_id": cust.ID,
			}).
			Mark(ierr.ErrNotFound)
	}
	r.customers[cust.ID] = cust
	return nil
}

func (r *InMemoryCustomerRepository) SaveGatewayCustomerID(ctx context.Context, customerID, gatewayCustomerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cust, ok := r.customers[customerID]
	if !ok {
		return ierr.NewError("customer not found").
			WithReportableDetails(map[string]any{
				"customer_id": customerID,
			}).
			Mark(ierr.ErrNotFound)
	}
	cust.GatewayCustomerID = gatewayCustomerID
	return nil
}

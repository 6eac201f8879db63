package customer

import (
	"context"
)

// Repository defines the interface for customer data access
type Repository interface {
	Get(ctx context.Context, id string) (*Customer, error)
	GetByEmail(ctx context.Context, email string) (*Customer, error)
	Update(ctx context.Context, customer *Customer) error

	// SaveGatewayCustomerID durably records the gateway mapping for the
	// customer. Must be written before schedule creation proceeds.
	SaveGatewayCustomerID(ctx context.Context, customerID, gatewayCustomerID string) error
}

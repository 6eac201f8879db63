package gateway

import (
	"context"

	"github.com/subcycle/subcycle/internal/types"
)

// Client is the operation surface this engine requires from a recurring
// payment gateway. The exact wire shape is provider-specific; the REST
// implementation in this package is one rendition. Amounts cross this
// boundary in minor units and are converted to the gateway's major units
// inside the implementation, never by callers.
type Client interface {
	FindCustomersByEmail(ctx context.Context, email string) ([]Customer, error)
	CreateCustomer(ctx context.Context, input CustomerInput) (*Customer, error)
	UpdateCustomer(ctx context.Context, id string, input CustomerInput) (*Customer, error)

	ListPaymentMethods(ctx context.Context, customerID string) ([]PaymentMethod, error)
	CreatePaymentMethod(ctx context.Context, customerID string, input PaymentMethodInput) (*PaymentMethod, error)
	UpdatePaymentMethod(ctx context.Context, id string, input PaymentMethodInput) (*PaymentMethod, error)
	DeletePaymentMethod(ctx context.Context, id string) error

	CreateSchedule(ctx context.Context, customerID string, input ScheduleInput) (*Schedule, error)
	UpdateSchedule(ctx context.Context, id string, input ScheduleUpdateInput) (*Schedule, error)
	ListSchedules(ctx context.Context, ids []string) ([]Schedule, error)
	ListScheduleTransactions(ctx context.Context, scheduleID string) ([]Transaction, error)

	CreateCharge(ctx context.Context, input ChargeInput) (*Transaction, error)
	Refund(ctx context.Context, transactionID string, amount *types.Money, reason string) (*RefundResult, error)
}

package testutil

import (
	"context"

	"github.com/subcycle/subcycle/internal/types"
)

func SetupContext() context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, types.CtxRequestID, types.GenerateUUID())
	ctx = context.WithValue(ctx, types.CtxUserRole, types.RoleOperator)
	return ctx
}

// SetupCustomerContext returns a context authenticated as the given customer.
func SetupCustomerContext(customerID string) context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, types.CtxRequestID, types.GenerateUUID())
	ctx = context.WithValue(ctx, types.CtxCustomerID, customerID)
	ctx = context.WithValue(ctx, types.CtxUserRole, types.RoleCustomer)
	return ctx
}

package types

import (
	"context"
)

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

const (
	CtxRequestID  ContextKey = "ctx_request_id"
	CtxCustomerID ContextKey = "ctx_customer_id"
	CtxUserRole   ContextKey = "ctx_user_role"
)

// Headers set by the upstream edge proxy and echoed on responses.
const (
	HeaderRequestID  = "X-Request-ID"
	HeaderCustomerID = "X-Customer-ID"
	HeaderUserRole   = "X-User-Role"
)

// UserRole distinguishes end customers from back-office operators. Operators
// bypass the ownership checks on schedule updates, customers never do.
type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleOperator UserRole = "operator"
)

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

func GetCustomerID(ctx context.Context) string {
	if customerID, ok := ctx.Value(CtxCustomerID).(string); ok {
		return customerID
	}
	return ""
}

func GetUserRole(ctx context.Context) UserRole {
	if role, ok := ctx.Value(CtxUserRole).(UserRole); ok {
		return role
	}
	return RoleCustomer
}

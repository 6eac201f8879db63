package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/subcycle/subcycle/internal/types"
)

func RequestIDMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	requestID := c.GetHeader(types.HeaderRequestID)
	if requestID == "" {
		requestID = types.GenerateUUIDWithPrefix(types.IDPrefixRequest)
	}

	ctx = context.WithValue(ctx, types.CtxRequestID, requestID)
	c.Request = c.Request.WithContext(ctx)

	c.Header(types.HeaderRequestID, requestID)

	c.Next()
}

// CallerContextMiddleware lifts the caller identity headers set by the edge
// proxy into the request context. An absent role header means customer; the
// proxy strips these headers from external traffic before setting them.
func CallerContextMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	if customerID := c.GetHeader(types.HeaderCustomerID); customerID != "" {
		ctx = context.WithValue(ctx, types.CtxCustomerID, customerID)
	}

	role := types.RoleCustomer
	if headerRole := c.GetHeader(types.HeaderUserRole); headerRole == string(types.RoleOperator) {
		role = types.RoleOperator
	}
	ctx = context.WithValue(ctx, types.CtxUserRole, role)

	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

package customer

import (
	"github.com/subcycle/subcycle/internal/types"
)

// Customer represents a local customer record. At most one gateway customer
// id is ever mapped to it; the mapping is written once and reused on every
// later checkout to avoid duplicate gateway customers for one email.
type Customer struct {
	// ID is the unique identifier for the customer
	ID string `db:"id" json:"id"`

	// Name is the name of the customer
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`

	// Email is the email of the customer
	Email string `db:"email" json:"email"`

	// GatewayCustomerID is the gateway-side customer id, empty until the
	// first recurring checkout resolves or creates one
	GatewayCustomerID string `db:"gateway_customer_id" json:"gateway_customer_id"`

	types.BaseModel
}

// FullName joins first and last name for gateway profile creation.
func (c *Customer) FullName() string {
	if c.FirstName == "" {
		return c.LastName
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

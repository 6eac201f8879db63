package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// ID prefixes for locally generated identifiers.
const (
	IDPrefixOrder     = "ord"
	IDPrefixOrderLine = "line"
	IDPrefixCustomer  = "cust"
	IDPrefixEvent     = "evt"
	IDPrefixRequest   = "req"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex ord_0ujsswThIGTUYm2K8FjOOfXtY1K
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

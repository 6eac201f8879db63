package catalog

import (
	"github.com/subcycle/subcycle/internal/types"
)

// Product groups purchasable variants. Subscription settings live on the
// variant: two variants of one product can have different billing shapes.
type Product struct {
	// ID is the unique identifier for the product
	ID string `db:"id" json:"id"`

	// Name is the display name of the product
	Name string `db:"name" json:"name"`

	// VariantIDs are the purchasable variants of this product
	VariantIDs []string `db:"variant_ids" json:"variant_ids"`

	types.BaseModel
}

// Variant is a purchasable catalog item.
type Variant struct {
	// ID is the unique identifier for the variant
	ID string `db:"id" json:"id"`

	// ProductID is the owning product
	ProductID string `db:"product_id" json:"product_id"`

	// Name is the display name of the variant
	Name string `db:"name" json:"name"`

	// ListPrice is the catalog price in minor units
	ListPrice types.Money `db:"list_price" json:"list_price"`

	// PriceIncludesTax records whether ListPrice is gross or net
	PriceIncludesTax bool `db:"price_includes_tax" json:"price_includes_tax"`

	// Recurring holds the subscription shape, nil for one-time purchases
	Recurring *RecurringSettings `db:"recurring" json:"recurring,omitempty"`

	types.BaseModel
}

// RecurringSettings is the per-variant subscription configuration the
// strategies read. Interval and count define the billing cadence; Duration
// optionally bounds the subscription's total life, from which the number of
// billing cycles is derived at schedule-creation time.
type RecurringSettings struct {
	Interval      types.SubscriptionInterval `db:"interval" json:"interval"`
	IntervalCount int                        `db:"interval_count" json:"interval_count"`
	StartMoment   types.StartMoment          `db:"start_moment" json:"start_moment"`

	// DurationInterval/DurationCount bound the total subscription length.
	// Zero DurationCount means open-ended.
	DurationInterval types.SubscriptionInterval `db:"duration_interval" json:"duration_interval,omitempty"`
	DurationCount    int                        `db:"duration_count" json:"duration_count,omitempty"`

	// DownpaymentAllowed permits a line-level down payment custom field
	DownpaymentAllowed bool `db:"downpayment_allowed" json:"downpayment_allowed"`
}

// IsSubscription reports whether the variant carries a recurring shape.
func (v *Variant) IsSubscription() bool {
	return v.Recurring != nil && v.Recurring.IntervalCount > 0
}

package order

import (
	"github.com/samber/lo"
	"github.com/subcycle/subcycle/internal/types"
)

// Order is the unit an external order-management component hands us after
// checkout. Totals and tax are computed upstream; this core only reads them.
type Order struct {
	// ID is the unique identifier for the order
	ID string `db:"id" json:"id"`

	// Code is the human-facing order code. Never used as a correlation key:
	// codes can collide across channels, schedule ids cannot.
	Code string `db:"code" json:"code"`

	// CustomerID is the local customer the order belongs to
	CustomerID string `db:"customer_id" json:"customer_id"`

	// CurrencyCode is the ISO 4217 currency of all line amounts
	CurrencyCode string `db:"currency_code" json:"currency_code"`

	// Lines are the purchasable items on this order
	Lines []*Line `json:"lines"`

	types.BaseModel
}

// Line is a single purchasable position on an order.
type Line struct {
	// ID is the unique identifier for the order line
	ID string `db:"id" json:"id"`

	// OrderID is the owning order
	OrderID string `db:"order_id" json:"order_id"`

	// VariantID references the catalog variant that was purchased
	VariantID string `db:"variant_id" json:"variant_id"`

	// Quantity purchased
	Quantity int `db:"quantity" json:"quantity"`

	// UnitPrice is the captured price per unit in minor units
	UnitPrice types.Money `db:"unit_price" json:"unit_price"`

	// CustomFields is the caller-supplied key/value bag attached at
	// add-to-cart time (down payment, duration overrides, ...)
	CustomFields map[string]string `db:"custom_fields" json:"custom_fields"`

	// ScheduleIDs is the correlation token: the gateway schedule ids spawned
	// by this line. Written at schedule-creation time, append-only afterward.
	// It is the sole join key between gateway webhooks and this line.
	ScheduleIDs []string `db:"schedule_ids" json:"schedule_ids"`

	types.BaseModel
}

// HasScheduleID reports whether the given schedule id is already part of the
// line's correlation token. Exact membership, never substring: schedule ids
// can be numeric prefixes of one another.
func (l *Line) HasScheduleID(scheduleID string) bool {
	return lo.Contains(l.ScheduleIDs, scheduleID)
}

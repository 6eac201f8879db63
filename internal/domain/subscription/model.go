package subscription

import (
	"time"

	ierr "github.com/subcycle/subcycle/internal/errors"
	"github.com/subcycle/subcycle/internal/types"
)

// Subscription is a computed price/interval definition for a purchasable
// item, not yet bound to the payment gateway. It is produced fresh on every
// preview or definition call and never mutated afterward.
type Subscription struct {
	// Name is the human-readable label the schedule will carry
	Name string `json:"name"`

	// PriceIncludesTax records whether the amounts are gross or net
	PriceIncludesTax bool `json:"price_includes_tax"`

	// AmountDueNow is charged at checkout, in minor units. May be zero.
	AmountDueNow types.Money `json:"amount_due_now"`

	// Recurring is the amount and cadence of every future charge
	Recurring Recurring `json:"recurring"`
}

// Recurring describes the repeating part of a subscription.
type Recurring struct {
	// Amount charged per cycle, in minor units. Always positive.
	Amount types.Money `json:"amount"`

	// Interval and IntervalCount define the cadence, e.g. every 2 weeks
	Interval      types.SubscriptionInterval `json:"interval"`
	IntervalCount int                        `json:"interval_count"`

	// StartDate is the first recurring charge date
	StartDate time.Time `json:"start_date"`

	// EndDate bounds the subscription, nil for open-ended
	EndDate *time.Time `json:"end_date,omitempty"`
}

// Validate enforces the invariants every defined subscription must hold:
// a strictly positive recurring amount and a non-negative amount due now.
func (s *Subscription) Validate() error {
	if err := s.Recurring.Interval.Validate(); err != nil {
		return err
	}
	if s.Recurring.IntervalCount < 1 {
		return ierr.NewError("recurring interval count must be at least 1").
			WithHint("Subscription cadence must span at least one interval").
			WithReportableDetails(map[string]any{
				"name":           s.Name,
				"interval_count": s.Recurring.IntervalCount,
			}).
			Mark(ierr.ErrValidation)
	}
	if !s.Recurring.Amount.IsPositive() {
		return ierr.NewError("recurring amount must be greater than zero").
			WithHint("A subscription cannot recur for a zero or negative amount").
			WithReportableDetails(map[string]any{
				"name":             s.Name,
				"recurring_amount": s.Recurring.Amount,
			}).
			Mark(ierr.ErrValidation)
	}
	if s.AmountDueNow.IsNegative() {
		return ierr.NewError("amount due now cannot be negative").
			WithHint("The checkout amount of a subscription cannot be negative").
			WithReportableDetails(map[string]any{
				"name":           s.Name,
				"amount_due_now": s.AmountDueNow,
			}).
			Mark(ierr.ErrValidation)
	}
	if s.Recurring.EndDate != nil && s.Recurring.EndDate.Before(s.Recurring.StartDate) {
		return ierr.NewError("subscription end date precedes start date").
			WithHint("Subscription duration must end after it starts").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// LineSubscription is a defined subscription bound to the order line and
// catalog variant that produced it. The order line id is the correlation
// identifier carried through schedule creation.
type LineSubscription struct {
	Subscription

	OrderLineID string `json:"order_line_id"`
	VariantID   string `json:"variant_id"`
}

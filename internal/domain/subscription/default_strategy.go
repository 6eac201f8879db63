package subscription

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/subcycle/subcycle/internal/domain/catalog"
	"github.com/subcycle/subcycle/internal/domain/order"
	"github.com/subcycle/subcycle/internal/domain/proration"
	ierr "github.com/subcycle/subcycle/internal/errors"
	"github.com/subcycle/subcycle/internal/types"
)

// CustomFieldDownpayment is the line custom field carrying a down payment in
// minor units. Only honored when the variant allows down payments.
const CustomFieldDownpayment = "downpayment"

// DefaultStrategy prices a subscription at the catalog list price. The first
// period is paid at checkout, so the recurring schedule starts one interval
// from now. A down payment, when the variant allows one, anchors the schedule
// at the variant's start moment instead and prorates the days in between at
// the subscription's day rate.
type DefaultStrategy struct {
	now func() time.Time
}

func NewDefaultStrategy() *DefaultStrategy {
	return &DefaultStrategy{now: func() time.Time { return time.Now().UTC() }}
}

// NewDefaultStrategyWithClock pins the strategy to a fixed clock. Test use.
func NewDefaultStrategyWithClock(now func() time.Time) *DefaultStrategy {
	return &DefaultStrategy{now: now}
}

func (s *DefaultStrategy) IsSubscription(ctx context.Context, variant *catalog.Variant) (bool, error) {
	return variant.IsSubscription(), nil
}

func (s *DefaultStrategy) DefineSubscription(ctx context.Context, variant *catalog.Variant, ord *order.Order, customFields map[string]string, quantity int) ([]Subscription, error) {
	return s.compute(variant, customFields, quantity)
}

func (s *DefaultStrategy) PreviewSubscription(ctx context.Context, variant *catalog.Variant, customInputs map[string]string) ([]Subscription, error) {
	return s.compute(variant, customInputs, 1)
}

func (s *DefaultStrategy) compute(variant *catalog.Variant, customFields map[string]string, quantity int) ([]Subscription, error) {
	rec := variant.Recurring
	if rec == nil {
		return nil, ierr.NewError("variant does not carry a subscription").
			WithHintf("Variant '%s' has no recurring settings", variant.ID).
			Mark(ierr.ErrValidation)
	}
	if quantity < 1 {
		quantity = 1
	}

	price := types.Money(int64(variant.ListPrice) * int64(quantity))
	now := s.now()

	if raw, ok := customFields[CustomFieldDownpayment]; ok && raw != "" {
		return s.computeWithDownpayment(variant, rec, price, raw, now)
	}

	// First period is paid at checkout, so the schedule starts one interval
	// out from the purchase date.
	start, err := types.NextOccurrence(now, rec.Interval, rec.IntervalCount)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid subscription cadence on variant").
			Mark(ierr.ErrValidation)
	}

	sub := Subscription{
		Name:             variant.Name,
		PriceIncludesTax: variant.PriceIncludesTax,
		AmountDueNow:     price,
		Recurring: Recurring{
			Amount:        price,
			Interval:      rec.Interval,
			IntervalCount: rec.IntervalCount,
			StartDate:     start,
		},
	}

	if rec.DurationCount > 0 {
		end, err := types.NextOccurrence(now, rec.DurationInterval, rec.DurationCount)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Invalid subscription duration on variant").
				Mark(ierr.ErrValidation)
		}
		sub.Recurring.EndDate = &end
	}

	return []Subscription{sub}, nil
}

// computeWithDownpayment anchors the schedule at the variant's start moment,
// spreads the down payment across the remaining billing cycles, and charges
// the down payment plus a day-rate proration for the gap until the anchor.
func (s *DefaultStrategy) computeWithDownpayment(variant *catalog.Variant, rec *catalog.RecurringSettings, price types.Money, raw string, now time.Time) ([]Subscription, error) {
	if !rec.DownpaymentAllowed {
		return nil, ierr.NewError("down payment not allowed for this variant").
			WithHintf("Variant '%s' does not accept down payments", variant.ID).
			Mark(ierr.ErrValidation)
	}
	downpaymentValue, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || downpaymentValue < 0 {
		return nil, ierr.NewError("invalid down payment value").
			WithHintf("Down payment '%s' is not a non-negative amount in minor units", raw).
			Mark(ierr.ErrValidation)
	}
	downpayment := types.Money(downpaymentValue)
	if rec.DurationCount <= 0 {
		return nil, ierr.NewError("down payment requires a bounded subscription").
			WithHint("A down payment can only be spread over a fixed duration").
			Mark(ierr.ErrValidation)
	}

	start, err := proration.NextStartDate(now, rec.Interval, rec.StartMoment)
	if err != nil {
		return nil, err
	}
	end, err := types.NextOccurrence(start, rec.DurationInterval, rec.DurationCount)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid subscription duration on variant").
			Mark(ierr.ErrValidation)
	}

	cycles, err := proration.BillingCyclesLeft(start, end, rec.Interval, rec.IntervalCount)
	if err != nil {
		return nil, err
	}
	if cycles == 0 {
		return nil, ierr.NewError("subscription duration contains no billing cycle").
			WithHint("The subscription would end before its first recurring charge").
			Mark(ierr.ErrValidation)
	}

	perCycleReduction := types.MoneyFromDecimal(
		downpayment.Decimal().Div(decimal.NewFromInt(int64(cycles))).Round(0))
	recurringAmount := price - perCycleReduction
	if !recurringAmount.IsPositive() {
		return nil, ierr.NewError("down payment exceeds the subscription price").
			WithHint("Reduce the down payment so a positive recurring amount remains").
			WithReportableDetails(map[string]any{
				"downpayment":    downpayment,
				"price_per_unit": price,
				"billing_cycles": cycles,
			}).
			Mark(ierr.ErrValidation)
	}

	// Total value settled over the duration, used to derive the day rate for
	// the gap between purchase and the anchored start date.
	durationTotal := types.Money(int64(recurringAmount)*int64(cycles)) + downpayment
	rate, err := proration.DayRate(durationTotal, rec.DurationInterval, rec.DurationCount)
	if err != nil {
		return nil, err
	}
	proratedDays, err := proration.DaysUntilNextStartDate(now, rec.Interval, rec.StartMoment)
	if err != nil {
		return nil, err
	}

	sub := Subscription{
		Name:             variant.Name,
		PriceIncludesTax: variant.PriceIncludesTax,
		AmountDueNow:     downpayment + types.Money(int64(rate)*int64(proratedDays)),
		Recurring: Recurring{
			Amount:        recurringAmount,
			Interval:      rec.Interval,
			IntervalCount: rec.IntervalCount,
			StartDate:     start,
			EndDate:       &end,
		},
	}
	return []Subscription{sub}, nil
}

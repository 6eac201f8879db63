package subscription

import (
	"context"
	"time"

	"github.com/subcycle/subcycle/internal/domain/catalog"
	"github.com/subcycle/subcycle/internal/domain/order"
	ierr "github.com/subcycle/subcycle/internal/errors"
	"github.com/subcycle/subcycle/internal/types"
)

// GatewayManagedStrategy defers the entire charge to the gateway: nothing is
// due at checkout and the schedule starts immediately, so the gateway issues
// the first charge itself. Used for deployments where the first payment is
// collected out of band (invoicing, bank mandates).
type GatewayManagedStrategy struct {
	now func() time.Time
}

func NewGatewayManagedStrategy() *GatewayManagedStrategy {
	return &GatewayManagedStrategy{now: func() time.Time { return time.Now().UTC() }}
}

// NewGatewayManagedStrategyWithClock pins the strategy to a fixed clock.
func NewGatewayManagedStrategyWithClock(now func() time.Time) *GatewayManagedStrategy {
	return &GatewayManagedStrategy{now: now}
}

func (s *GatewayManagedStrategy) IsSubscription(ctx context.Context, variant *catalog.Variant) (bool, error) {
	return variant.IsSubscription(), nil
}

func (s *GatewayManagedStrategy) DefineSubscription(ctx context.Context, variant *catalog.Variant, ord *order.Order, customFields map[string]string, quantity int) ([]Subscription, error) {
	return s.compute(variant, quantity)
}

func (s *GatewayManagedStrategy) PreviewSubscription(ctx context.Context, variant *catalog.Variant, customInputs map[string]string) ([]Subscription, error) {
	return s.compute(variant, 1)
}

func (s *GatewayManagedStrategy) compute(variant *catalog.Variant, quantity int) ([]Subscription, error) {
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

	sub := Subscription{
		Name:             variant.Name,
		PriceIncludesTax: variant.PriceIncludesTax,
		AmountDueNow:     0,
		Recurring: Recurring{
			Amount:        price,
			Interval:      rec.Interval,
			IntervalCount: rec.IntervalCount,
			// Starting today makes the gateway issue the first charge.
			StartDate: types.StartOfDay(now),
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

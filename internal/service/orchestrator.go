package service

import (
	"context"

	"github.com/sourcegraph/conc/pool"
	"github.com/subcycle/subcycle/internal/domain/order"
	"github.com/subcycle/subcycle/internal/domain/subscription"
	ierr "github.com/subcycle/subcycle/internal/errors"
)

// maxIsSubscriptionConcurrency caps the fan-out of per-line variant checks.
const maxIsSubscriptionConcurrency = 8

// SubscriptionOrchestrator walks an order's lines, asks the configured
// strategy which are subscriptions, and turns them into fully defined
// subscription values ready for schedule creation.
type SubscriptionOrchestrator interface {
	// GetSubscriptionLines returns the order lines the strategy recognizes
	// as subscriptions, in the order they appear on the order.
	GetSubscriptionLines(ctx context.Context, ord *order.Order) ([]*order.Line, error)

	// GetSubscriptionsForOrder defines a subscription for every subscription
	// line of the order. Any defined subscription with a non-positive
	// recurring amount fails the whole call.
	GetSubscriptionsForOrder(ctx context.Context, ord *order.Order) ([]*subscription.LineSubscription, error)

	// PreviewSubscriptionsForProduct previews subscriptions across all
	// variants of a product. Variants that fail to preview are logged and
	// skipped so one bad variant cannot blank a product page.
	PreviewSubscriptionsForProduct(ctx context.Context, productID string, customInputs map[string]string) ([]*subscription.LineSubscription, error)
}

type subscriptionOrchestrator struct {
	ServiceParams
}

// NewSubscriptionOrchestrator creates a new subscription orchestrator. The
// strategy is an explicit dependency: swapping policies is a wiring change,
// not a code change.
func NewSubscriptionOrchestrator(params ServiceParams) SubscriptionOrchestrator {
	return &subscriptionOrchestrator{
		ServiceParams: params,
	}
}

func (o *subscriptionOrchestrator) GetSubscriptionLines(ctx context.Context, ord *order.Order) ([]*order.Line, error) {
	if ord == nil {
		return nil, ierr.NewError("order is required").
			Mark(ierr.ErrValidation)
	}

	// Checks run concurrently and land in an index-addressed slice, so the
	// returned lines keep their order regardless of completion order.
	flags := make([]bool, len(ord.Lines))
	p := pool.New().
		WithContext(ctx).
		WithMaxGoroutines(maxIsSubscriptionConcurrency).
		WithCancelOnError()

	for i := range ord.Lines {
		i := i
		line := ord.Lines[i]
		p.Go(func(ctx context.Context) error {
			variant, err := o.CatalogRepo.GetVariant(ctx, line.VariantID)
			if err != nil {
				return err
			}
			isSub, err := o.Strategy.IsSubscription(ctx, variant)
			if err != nil {
				return err
			}
			flags[i] = isSub
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	lines := make([]*order.Line, 0, len(ord.Lines))
	for i := range ord.Lines {
		if flags[i] {
			lines = append(lines, ord.Lines[i])
		}
	}
	return lines, nil
}

func (o *subscriptionOrchestrator) GetSubscriptionsForOrder(ctx context.Context, ord *order.Order) ([]*subscription.LineSubscription, error) {
	lines, err := o.GetSubscriptionLines(ctx, ord)
	if err != nil {
		return nil, err
	}

	result := make([]*subscription.LineSubscription, 0, len(lines))
	for _, line := range lines {
		variant, err := o.CatalogRepo.GetVariant(ctx, line.VariantID)
		if err != nil {
			return nil, err
		}

		subs, err := o.Strategy.DefineSubscription(ctx, variant, ord, line.CustomFields, line.Quantity)
		if err != nil {
			return nil, err
		}

		for i := range subs {
			sub := subs[i]
			if err := sub.Validate(); err != nil {
				return nil, ierr.WithError(err).
					WithHint("A defined subscription failed validation, aborting the order").
					WithReportableDetails(map[string]any{
						"order_id":      ord.ID,
						"order_line_id": line.ID,
						"variant_id":    variant.ID,
					}).
					Mark(ierr.ErrValidation)
			}
			result = append(result, &subscription.LineSubscription{
				Subscription: sub,
				OrderLineID:  line.ID,
				VariantID:    variant.ID,
			})
		}
	}

	o.Logger.Debugw("defined subscriptions for order",
		"order_id", ord.ID,
		"subscription_lines", len(lines),
		"subscriptions", len(result),
	)
	return result, nil
}

func (o *subscriptionOrchestrator) PreviewSubscriptionsForProduct(ctx context.Context, productID string, customInputs map[string]string) ([]*subscription.LineSubscription, error) {
	product, err := o.CatalogRepo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	variants, err := o.CatalogRepo.ListVariantsByProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}

	result := make([]*subscription.LineSubscription, 0, len(variants))
	for _, variant := range variants {
		isSub, err := o.Strategy.IsSubscription(ctx, variant)
		if err != nil {
			o.Logger.Errorw("failed to classify variant for preview",
				"product_id", productID,
				"variant_id", variant.ID,
				"error", err,
			)
			continue
		}
		if !isSub {
			continue
		}

		subs, err := o.Strategy.PreviewSubscription(ctx, variant, customInputs)
		if err != nil {
			// Preview is best effort: a variant with inconsistent recurring
			// settings must not hide its siblings.
			o.Logger.Errorw("failed to preview subscription for variant",
				"product_id", productID,
				"variant_id", variant.ID,
				"error", err,
			)
			continue
		}

		for i := range subs {
			result = append(result, &subscription.LineSubscription{
				Subscription: subs[i],
				VariantID:    variant.ID,
			})
		}
	}
	return result, nil
}

package subscription

import (
	"context"

	"github.com/subcycle/subcycle/internal/domain/catalog"
	"github.com/subcycle/subcycle/internal/domain/order"
)

// Strategy is the pluggable policy deciding whether a catalog variant is a
// subscription and what its price and schedule look like. Deployments may
// supply their own; Default and GatewayManaged are the reference variants.
//
// All methods return a slice of subscriptions: a single line may legitimately
// spawn several schedules (an installment plan plus a membership, say), and
// normalizing to a slice keeps callers free of shape sniffing.
type Strategy interface {
	// IsSubscription must be cheap: it runs once per line on every cart
	// mutation. Implementations should avoid network calls.
	IsSubscription(ctx context.Context, variant *catalog.Variant) (bool, error)

	// DefineSubscription is invoked once per line after payment capture and
	// before schedule creation. customFields is the caller-supplied bag
	// attached to the order line at add-to-cart time.
	DefineSubscription(ctx context.Context, variant *catalog.Variant, ord *order.Order, customFields map[string]string, quantity int) ([]Subscription, error)

	// PreviewSubscription performs the same computation as DefineSubscription
	// without an order line, for pre-purchase display. Given equivalent
	// inputs it must produce the same shape, with no side effects.
	PreviewSubscription(ctx context.Context, variant *catalog.Variant, customInputs map[string]string) ([]Subscription, error)
}

package dto

import (
	"github.com/subcycle/subcycle/internal/domain/subscription"
	"github.com/subcycle/subcycle/internal/types"
)

// SubscriptionPreviewResponse is one previewed subscription for a variant.
type SubscriptionPreviewResponse struct {
	VariantID        string            `json:"variant_id"`
	Name             string            `json:"name"`
	PriceIncludesTax bool              `json:"price_includes_tax"`
	AmountDueNow     types.Money       `json:"amount_due_now"`
	Recurring        RecurringResponse `json:"recurring"`
}

// RecurringResponse describes the repeating part of a previewed subscription.
type RecurringResponse struct {
	Amount        types.Money `json:"amount"`
	Interval      string      `json:"interval"`
	IntervalCount int         `json:"interval_count"`
	StartDate     string      `json:"start_date"`
	EndDate       string      `json:"end_date,omitempty"`
}

// NewSubscriptionPreviewResponse converts a defined subscription to its
// response form. Dates are rendered yyyy-mm-dd, matching the gateway's
// customer-facing convention.
func NewSubscriptionPreviewResponse(sub *subscription.LineSubscription) SubscriptionPreviewResponse {
	resp := SubscriptionPreviewResponse{
		VariantID:        sub.VariantID,
		Name:             sub.Name,
		PriceIncludesTax: sub.PriceIncludesTax,
		AmountDueNow:     sub.AmountDueNow,
		Recurring: RecurringResponse{
			Amount:        sub.Recurring.Amount,
			Interval:      string(sub.Recurring.Interval),
			IntervalCount: sub.Recurring.IntervalCount,
			StartDate:     sub.Recurring.StartDate.Format(types.GatewayDateFormat),
		},
	}
	if sub.Recurring.EndDate != nil {
		resp.Recurring.EndDate = sub.Recurring.EndDate.Format(types.GatewayDateFormat)
	}
	return resp
}

package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subcycle/subcycle/internal/domain/catalog"
	ierr "github.com/subcycle/subcycle/internal/errors"
	"github.com/subcycle/subcycle/internal/types"
)

// 2024-11-20 is a Wednesday
var fixedNow = time.Date(2024, time.November, 20, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func monthlyVariant() *catalog.Variant {
	return &catalog.Variant{
		ID:        "variant-1",
		ProductID: "product-1",
		Name:      "Gold Membership",
		ListPrice: 4000,
		Recurring: &catalog.RecurringSettings{
			Interval:         types.IntervalMonth,
			IntervalCount:    1,
			StartMoment:      types.StartOfNextInterval,
			DurationInterval: types.IntervalYear,
			DurationCount:    1,
		},
	}
}

func TestDefaultStrategy_IsSubscription(t *testing.T) {
	s := NewDefaultStrategyWithClock(fixedClock)
	ctx := context.Background()

	isSub, err := s.IsSubscription(ctx, monthlyVariant())
	require.NoError(t, err)
	assert.True(t, isSub)

	isSub, err = s.IsSubscription(ctx, &catalog.Variant{ID: "plain", ListPrice: 100})
	require.NoError(t, err)
	assert.False(t, isSub)
}

func TestDefaultStrategy_DefineSubscription(t *testing.T) {
	s := NewDefaultStrategyWithClock(fixedClock)
	ctx := context.Background()

	subs, err := s.DefineSubscription(ctx, monthlyVariant(), nil, nil, 1)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	sub := subs[0]
	assert.Equal(t, "Gold Membership", sub.Name)
	// First period is paid at checkout
	assert.Equal(t, types.Money(4000), sub.AmountDueNow)
	assert.Equal(t, types.Money(4000), sub.Recurring.Amount)
	assert.Equal(t, time.Date(2024, time.December, 20, 10, 0, 0, 0, time.UTC), sub.Recurring.StartDate)
	require.NotNil(t, sub.Recurring.EndDate)
	assert.Equal(t, time.Date(2025, time.November, 20, 10, 0, 0, 0, time.UTC), *sub.Recurring.EndDate)
	assert.NoError(t, sub.Validate())
}

func TestDefaultStrategy_QuantityMultipliesPrice(t *testing.T) {
	s := NewDefaultStrategyWithClock(fixedClock)

	subs, err := s.DefineSubscription(context.Background(), monthlyVariant(), nil, nil, 3)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, types.Money(12000), subs[0].AmountDueNow)
	assert.Equal(t, types.Money(12000), subs[0].Recurring.Amount)
}

func TestDefaultStrategy_OpenEndedVariant(t *testing.T) {
	variant := monthlyVariant()
	variant.Recurring.DurationCount = 0

	s := NewDefaultStrategyWithClock(fixedClock)
	subs, err := s.DefineSubscription(context.Background(), variant, nil, nil, 1)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Nil(t, subs[0].Recurring.EndDate)
}

func TestDefaultStrategy_Downpayment(t *testing.T) {
	variant := monthlyVariant()
	variant.Recurring.DownpaymentAllowed = true

	s := NewDefaultStrategyWithClock(fixedClock)
	subs, err := s.DefineSubscription(context.Background(), variant, nil, map[string]string{
		CustomFieldDownpayment: "12000",
	}, 1)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	sub := subs[0]
	// Schedule is anchored at the first of next month, twelve monthly
	// cycles until 2025-12-01
	assert.Equal(t, time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC), sub.Recurring.StartDate)
	require.NotNil(t, sub.Recurring.EndDate)
	assert.Equal(t, time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC), *sub.Recurring.EndDate)

	// 12000 spread over 12 cycles reduces each charge by 1000
	assert.Equal(t, types.Money(3000), sub.Recurring.Amount)

	// Duration total 3000*12+12000 = 48000 gives a day rate of 132;
	// 11 days until the anchor
	assert.Equal(t, types.Money(12000+132*11), sub.AmountDueNow)
	assert.NoError(t, sub.Validate())
}

func TestDefaultStrategy_DownpaymentErrors(t *testing.T) {
	s := NewDefaultStrategyWithClock(fixedClock)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*catalog.Variant)
		payment string
	}{
		{
			name:    "not allowed on variant",
			mutate:  func(v *catalog.Variant) {},
			payment: "12000",
		},
		{
			name: "not a number",
			mutate: func(v *catalog.Variant) {
				v.Recurring.DownpaymentAllowed = true
			},
			payment: "a lot",
		},
		{
			name: "negative",
			mutate: func(v *catalog.Variant) {
				v.Recurring.DownpaymentAllowed = true
			},
			payment: "-100",
		},
		{
			name: "open ended duration",
			mutate: func(v *catalog.Variant) {
				v.Recurring.DownpaymentAllowed = true
				v.Recurring.DurationCount = 0
			},
			payment: "12000",
		},
		{
			name: "swallows the whole recurring amount",
			mutate: func(v *catalog.Variant) {
				v.Recurring.DownpaymentAllowed = true
			},
			payment: "48000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			variant := monthlyVariant()
			tt.mutate(variant)

			_, err := s.DefineSubscription(ctx, variant, nil, map[string]string{
				CustomFieldDownpayment: tt.payment,
			}, 1)
			require.Error(t, err)
			assert.True(t, ierr.IsValidation(err))
		})
	}
}

func TestDefaultStrategy_PreviewMatchesDefine(t *testing.T) {
	variant := monthlyVariant()
	variant.Recurring.DownpaymentAllowed = true
	inputs := map[string]string{CustomFieldDownpayment: "6000"}

	s := NewDefaultStrategyWithClock(fixedClock)
	defined, err := s.DefineSubscription(context.Background(), variant, nil, inputs, 1)
	require.NoError(t, err)
	previewed, err := s.PreviewSubscription(context.Background(), variant, inputs)
	require.NoError(t, err)

	assert.Equal(t, defined, previewed)
}

func TestGatewayManagedStrategy(t *testing.T) {
	s := NewGatewayManagedStrategyWithClock(fixedClock)

	subs, err := s.DefineSubscription(context.Background(), monthlyVariant(), nil, nil, 1)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	sub := subs[0]
	// The gateway issues the first charge itself
	assert.Equal(t, types.Money(0), sub.AmountDueNow)
	assert.Equal(t, types.Money(4000), sub.Recurring.Amount)
	assert.Equal(t, time.Date(2024, time.November, 20, 0, 0, 0, 0, time.UTC), sub.Recurring.StartDate)
	assert.NoError(t, sub.Validate())
}

func TestGatewayManagedStrategy_NoRecurringSettings(t *testing.T) {
	s := NewGatewayManagedStrategyWithClock(fixedClock)

	_, err := s.DefineSubscription(context.Background(), &catalog.Variant{ID: "plain"}, nil, nil, 1)
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

package proration

import (
	"time"

	"github.com/shopspring/decimal"
	ierr "github.com/subcycle/subcycle/internal/errors"
	"github.com/subcycle/subcycle/internal/types"
)

// All functions in this package are pure: identical input yields identical
// output regardless of call order, so they are safe on concurrent pricing
// requests without synchronization.

// maxCycleIterations bounds the occurrence walk in BillingCyclesLeft so a
// degenerate start/end pair cannot spin forever.
const maxCycleIterations = 10000

// DayRate annualizes a total price over its duration and divides it into a
// per-day amount, rounding half away from zero to the smallest currency unit.
// Equivalent annualized prices yield the same rate: a 400.00 yearly total, an
// 800.00 two-year total and a 200.00 six-month total all come to 1.10 a day.
func DayRate(totalPrice types.Money, durationInterval types.SubscriptionInterval, durationCount int) (types.Money, error) {
	if err := durationInterval.Validate(); err != nil {
		return 0, err
	}
	if durationCount <= 0 {
		return 0, ierr.NewError("duration count must be positive").
			WithHint("Subscription duration must span at least one interval").
			WithReportableDetails(map[string]any{
				"duration_count": durationCount,
			}).
			Mark(ierr.ErrValidation)
	}

	annualized := decimal.NewFromInt(durationInterval.PerYear()).
		Div(decimal.NewFromInt(int64(durationCount))).
		Mul(totalPrice.Decimal())

	rate := annualized.Div(decimal.NewFromInt(365)).Round(0)
	return types.MoneyFromDecimal(rate), nil
}

// BillingCyclesLeft counts the calendar-aligned occurrences of the given
// frequency in [start, end): the occurrence at start itself counts, one
// falling exactly on end does not. Occurrences are walked with clamped
// calendar arithmetic, not naive day division, so monthly cycles anchored
// on the 31st behave correctly across short months.
func BillingCyclesLeft(start, end time.Time, interval types.SubscriptionInterval, count int) (int, error) {
	if err := interval.Validate(); err != nil {
		return 0, err
	}
	if count <= 0 {
		return 0, ierr.NewError("interval count must be positive").
			WithHint("Billing frequency must span at least one interval").
			Mark(ierr.ErrValidation)
	}

	occurrence := types.StartOfDay(start)
	boundary := types.StartOfDay(end)

	cycles := 0
	for occurrence.Before(boundary) {
		cycles++
		if cycles > maxCycleIterations {
			return 0, ierr.NewError("billing cycle count exceeds supported range").
				WithHintf("More than %d cycles between start and end date", maxCycleIterations).
				WithReportableDetails(map[string]any{
					"start_date": start.Format(types.GatewayDateFormat),
					"end_date":   end.Format(types.GatewayDateFormat),
				}).
				Mark(ierr.ErrValidation)
		}
		next, err := types.NextOccurrence(occurrence, interval, count)
		if err != nil {
			return 0, ierr.WithError(err).
				WithHint("Invalid billing frequency").
				Mark(ierr.ErrValidation)
		}
		occurrence = next
	}

	return cycles, nil
}

// NextStartDate resolves the calendar boundary a subscription is anchored to:
// either the start of the next interval (next Monday, first of next month,
// January 1st) or the end of the current one (Sunday, last of month, Dec 31).
func NextStartDate(now time.Time, interval types.SubscriptionInterval, moment types.StartMoment) (time.Time, error) {
	if err := moment.Validate(); err != nil {
		return time.Time{}, err
	}

	today := types.StartOfDay(now)

	switch interval {
	case types.IntervalDay:
		if moment == types.EndOfCurrentInterval {
			return today, nil
		}
		return today.AddDate(0, 0, 1), nil
	case types.IntervalWeek:
		// Weeks run Monday through Sunday.
		daysSinceMonday := (int(today.Weekday()) + 6) % 7
		monday := today.AddDate(0, 0, -daysSinceMonday)
		if moment == types.EndOfCurrentInterval {
			return monday.AddDate(0, 0, 6), nil
		}
		return monday.AddDate(0, 0, 7), nil
	case types.IntervalMonth:
		firstOfNext := time.Date(today.Year(), today.Month()+1, 1, 0, 0, 0, 0, today.Location())
		if moment == types.EndOfCurrentInterval {
			return firstOfNext.AddDate(0, 0, -1), nil
		}
		return firstOfNext, nil
	case types.IntervalYear:
		firstOfNext := time.Date(today.Year()+1, time.January, 1, 0, 0, 0, 0, today.Location())
		if moment == types.EndOfCurrentInterval {
			return firstOfNext.AddDate(0, 0, -1), nil
		}
		return firstOfNext, nil
	default:
		return time.Time{}, ierr.NewError("invalid subscription interval").
			WithHintf("Cannot compute a start date for interval '%s'", interval).
			Mark(ierr.ErrValidation)
	}
}

// DaysUntilNextStartDate returns the whole days from the start of now's day
// to the boundary NextStartDate resolves.
func DaysUntilNextStartDate(now time.Time, interval types.SubscriptionInterval, moment types.StartMoment) (int, error) {
	boundary, err := NextStartDate(now, interval, moment)
	if err != nil {
		return 0, err
	}

	// Count calendar days rather than dividing a duration by 24h, so DST
	// transitions inside the span do not skew the result.
	days := 0
	current := types.StartOfDay(now)
	for current.Before(boundary) {
		days++
		next := current.Add(24 * time.Hour)
		current = types.StartOfDay(next)
	}
	return days, nil
}

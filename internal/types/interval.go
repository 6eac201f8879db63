package types

import (
	ierr "github.com/subcycle/subcycle/internal/errors"
	"github.com/samber/lo"
)

// SubscriptionInterval is the calendar unit a recurring price is expressed in.
type SubscriptionInterval string

const (
	IntervalDay   SubscriptionInterval = "day"
	IntervalWeek  SubscriptionInterval = "week"
	IntervalMonth SubscriptionInterval = "month"
	IntervalYear  SubscriptionInterval = "year"
)

func (i SubscriptionInterval) String() string {
	return string(i)
}

// PerYear returns how many of this interval fit in one year. Used to
// annualize a price before computing a day rate.
func (i SubscriptionInterval) PerYear() int64 {
	switch i {
	case IntervalDay:
		return 365
	case IntervalWeek:
		return 52
	case IntervalMonth:
		return 12
	case IntervalYear:
		return 1
	default:
		return 0
	}
}

func (i SubscriptionInterval) Validate() error {
	allowed := []SubscriptionInterval{
		IntervalDay,
		IntervalWeek,
		IntervalMonth,
		IntervalYear,
	}
	if !lo.Contains(allowed, i) {
		return ierr.NewError("invalid subscription interval").
			WithHint("Invalid subscription interval").
			WithReportableDetails(map[string]any{
				"interval":       i,
				"allowed_values": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// StartMoment determines where in the current interval a subscription's
// first recurring charge is anchored.
type StartMoment string

const (
	// StartOfNextInterval anchors the schedule at the first day of the next
	// calendar interval (next Monday, first of next month, Jan 1).
	StartOfNextInterval StartMoment = "start_of_next_interval"
	// EndOfCurrentInterval anchors the schedule at the last day of the
	// current calendar interval.
	EndOfCurrentInterval StartMoment = "end_of_current_interval"
)

func (s StartMoment) Validate() error {
	allowed := []StartMoment{StartOfNextInterval, EndOfCurrentInterval}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid start moment").
			WithHint("Invalid start moment").
			WithReportableDetails(map[string]any{
				"start_moment":   s,
				"allowed_values": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

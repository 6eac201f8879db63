package types

import (
	"fmt"

	ierr "github.com/subcycle/subcycle/internal/errors"
	"github.com/samber/lo"
)

// ScheduleStatus is the gateway-assigned status of a recurring schedule.
// The local system never transitions these itself; it only reads them.
type ScheduleStatus string

const (
	ScheduleStatusActive   ScheduleStatus = "active"
	ScheduleStatusDeclined ScheduleStatus = "declined"
	ScheduleStatusError    ScheduleStatus = "error"
	ScheduleStatusFinished ScheduleStatus = "finished"
	ScheduleStatusFailed   ScheduleStatus = "failed"
)

func (s ScheduleStatus) String() string {
	return string(s)
}

// ScheduleFrequency is the gateway's fixed vocabulary for recurrence.
// Not every (interval, count) pair maps onto one; see FrequencyFromInterval.
type ScheduleFrequency string

const (
	FrequencyDaily        ScheduleFrequency = "daily"
	FrequencyWeekly       ScheduleFrequency = "weekly"
	FrequencyBiweekly     ScheduleFrequency = "biweekly"
	FrequencyMonthly      ScheduleFrequency = "monthly"
	FrequencyBimonthly    ScheduleFrequency = "bimonthly"
	FrequencyQuarterly    ScheduleFrequency = "quarterly"
	FrequencySemiannually ScheduleFrequency = "semiannually"
	FrequencyAnnually     ScheduleFrequency = "annually"
)

func (f ScheduleFrequency) String() string {
	return string(f)
}

func (f ScheduleFrequency) Validate() error {
	allowed := []ScheduleFrequency{
		FrequencyDaily,
		FrequencyWeekly,
		FrequencyBiweekly,
		FrequencyMonthly,
		FrequencyBimonthly,
		FrequencyQuarterly,
		FrequencySemiannually,
		FrequencyAnnually,
	}
	if !lo.Contains(allowed, f) {
		return ierr.NewError("invalid schedule frequency").
			WithHint("Invalid schedule frequency").
			WithReportableDetails(map[string]any{
				"frequency":      f,
				"allowed_values": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// FrequencyFromInterval maps a calendar interval and multiplier onto the
// gateway's frequency enum. An unmappable pair (say, every 5 weeks) is a
// non-retryable validation error: the order is mispriced, not the network.
func FrequencyFromInterval(interval SubscriptionInterval, count int) (ScheduleFrequency, error) {
	type key struct {
		interval SubscriptionInterval
		count    int
	}
	mapping := map[key]ScheduleFrequency{
		{IntervalDay, 1}:   FrequencyDaily,
		{IntervalWeek, 1}:  FrequencyWeekly,
		{IntervalWeek, 2}:  FrequencyBiweekly,
		{IntervalMonth, 1}: FrequencyMonthly,
		{IntervalMonth, 2}: FrequencyBimonthly,
		{IntervalMonth, 3}: FrequencyQuarterly,
		{IntervalMonth, 6}: FrequencySemiannually,
		{IntervalYear, 1}:  FrequencyAnnually,
	}

	freq, ok := mapping[key{interval, count}]
	if !ok {
		return "", ierr.NewError(fmt.Sprintf("no gateway frequency for interval '%d %s'", count, interval)).
			WithHint("The billing interval is not supported by the payment gateway").
			WithReportableDetails(map[string]any{
				"interval":       interval,
				"interval_count": count,
			}).
			Mark(ierr.ErrValidation)
	}
	return freq, nil
}


package proration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subcycle/subcycle/internal/types"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDayRate(t *testing.T) {
	tests := []struct {
		name     string
		total    types.Money
		interval types.SubscriptionInterval
		count    int
		want     types.Money
	}{
		{
			name:     "one year total",
			total:    40000,
			interval: types.IntervalYear,
			count:    1,
			want:     110,
		},
		{
			name:     "two year total at double the price",
			total:    80000,
			interval: types.IntervalYear,
			count:    2,
			want:     110,
		},
		{
			name:     "six month total at half the price",
			total:    20000,
			interval: types.IntervalMonth,
			count:    6,
			want:     110,
		},
		{
			name:     "twelve month total",
			total:    40000,
			interval: types.IntervalMonth,
			count:    12,
			want:     110,
		},
		{
			name:     "rounds half away from zero",
			total:    365 * 150,
			interval: types.IntervalYear,
			count:    1,
			want:     150,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DayRate(tt.total, tt.interval, tt.count)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDayRate_InvalidInput(t *testing.T) {
	_, err := DayRate(40000, types.IntervalYear, 0)
	assert.Error(t, err)

	_, err = DayRate(40000, "fortnight", 1)
	assert.Error(t, err)
}

func TestBillingCyclesLeft(t *testing.T) {
	// 2024-11-18 is a Monday
	start := date(2024, time.November, 18)

	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		interval types.SubscriptionInterval
		count    int
		want     int
	}{
		{
			name:     "weekly one day in counts the start occurrence",
			start:    start,
			end:      date(2024, time.November, 19),
			interval: types.IntervalWeek,
			count:    1,
			want:     1,
		},
		{
			name:     "weekly end on the next occurrence excludes it",
			start:    start,
			end:      date(2024, time.November, 25),
			interval: types.IntervalWeek,
			count:    1,
			want:     1,
		},
		{
			name:     "weekly end one past the second occurrence",
			start:    start,
			end:      date(2024, time.November, 26),
			interval: types.IntervalWeek,
			count:    1,
			want:     2,
		},
		{
			name:     "weekly mid second cycle",
			start:    start,
			end:      date(2024, time.December, 1),
			interval: types.IntervalWeek,
			count:    1,
			want:     2,
		},
		{
			name:     "daily full week",
			start:    start,
			end:      date(2024, time.November, 25),
			interval: types.IntervalDay,
			count:    1,
			want:     7,
		},
		{
			name:     "monthly over a year",
			start:    date(2024, time.January, 1),
			end:      date(2025, time.January, 1),
			interval: types.IntervalMonth,
			count:    1,
			want:     12,
		},
		{
			name:     "monthly anchored on the 31st across short months",
			start:    date(2024, time.January, 31),
			end:      date(2024, time.May, 1),
			interval: types.IntervalMonth,
			count:    1,
			want:     4,
		},
		{
			name:     "end before start yields zero",
			start:    start,
			end:      date(2024, time.November, 17),
			interval: types.IntervalWeek,
			count:    1,
			want:     0,
		},
		{
			name:     "end equal to start yields zero",
			start:    start,
			end:      start,
			interval: types.IntervalWeek,
			count:    1,
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BillingCyclesLeft(tt.start, tt.end, tt.interval, tt.count)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBillingCyclesLeft_InvalidInput(t *testing.T) {
	_, err := BillingCyclesLeft(date(2024, 1, 1), date(2024, 2, 1), types.IntervalMonth, 0)
	assert.Error(t, err)
}

func TestNextStartDate(t *testing.T) {
	// 2024-11-20 is a Wednesday
	now := time.Date(2024, time.November, 20, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		interval types.SubscriptionInterval
		moment   types.StartMoment
		want     time.Time
	}{
		{
			name:     "start of next week is next Monday",
			interval: types.IntervalWeek,
			moment:   types.StartOfNextInterval,
			want:     date(2024, time.November, 25),
		},
		{
			name:     "end of current week is Sunday",
			interval: types.IntervalWeek,
			moment:   types.EndOfCurrentInterval,
			want:     date(2024, time.November, 24),
		},
		{
			name:     "start of next month",
			interval: types.IntervalMonth,
			moment:   types.StartOfNextInterval,
			want:     date(2024, time.December, 1),
		},
		{
			name:     "end of current month",
			interval: types.IntervalMonth,
			moment:   types.EndOfCurrentInterval,
			want:     date(2024, time.November, 30),
		},
		{
			name:     "start of next year",
			interval: types.IntervalYear,
			moment:   types.StartOfNextInterval,
			want:     date(2025, time.January, 1),
		},
		{
			name:     "end of current year",
			interval: types.IntervalYear,
			moment:   types.EndOfCurrentInterval,
			want:     date(2024, time.December, 31),
		},
		{
			name:     "start of next day",
			interval: types.IntervalDay,
			moment:   types.StartOfNextInterval,
			want:     date(2024, time.November, 21),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextStartDate(now, tt.interval, tt.moment)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextStartDate_OnMonday(t *testing.T) {
	// A Monday anchors to the following Monday, not itself
	now := date(2024, time.November, 18)
	got, err := NextStartDate(now, types.IntervalWeek, types.StartOfNextInterval)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.November, 25), got)
}

func TestDaysUntilNextStartDate(t *testing.T) {
	// Wednesday to next Monday is 5 days
	now := time.Date(2024, time.November, 20, 9, 0, 0, 0, time.UTC)

	days, err := DaysUntilNextStartDate(now, types.IntervalWeek, types.StartOfNextInterval)
	require.NoError(t, err)
	assert.Equal(t, 5, days)

	days, err = DaysUntilNextStartDate(now, types.IntervalMonth, types.StartOfNextInterval)
	require.NoError(t, err)
	assert.Equal(t, 11, days)

	days, err = DaysUntilNextStartDate(now, types.IntervalDay, types.EndOfCurrentInterval)
	require.NoError(t, err)
	assert.Equal(t, 0, days)
}

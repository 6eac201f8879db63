package types

import (
	"fmt"
	"time"
)

// GatewayDateFormat is the yyyy-mm-dd form all dates take when crossing
// the gateway boundary.
const GatewayDateFormat = "2006-01-02"

// NextOccurrence advances start by one interval of the given unit count.
// For example:
// - If interval is month and count is 2, we add two months.
// - If interval is year and count is 1, we add one year.
// - If interval is week and count is 3, we add 21 days (3 weeks).
// Month arithmetic clamps to the last valid day (Jan 31 + 1 month = Feb 28/29)
// instead of overflowing into the next month.
func NextOccurrence(start time.Time, interval SubscriptionInterval, count int) (time.Time, error) {
	if count <= 0 {
		return start, fmt.Errorf("interval count must be a positive integer, got %d", count)
	}

	switch interval {
	case IntervalDay:
		return AddClampedDate(start, 0, 0, count), nil
	case IntervalWeek:
		return AddClampedDate(start, 0, 0, 7*count), nil
	case IntervalMonth:
		return AddClampedDate(start, 0, count, 0), nil
	case IntervalYear:
		return AddClampedDate(start, count, 0, 0), nil
	default:
		return start, fmt.Errorf("invalid subscription interval: %s", interval)
	}
}

// AddClampedDate adds the given years, months and days to t, clamping the day
// of month to the last valid day of the target month rather than letting it
// roll over the way time.AddDate does.
func AddClampedDate(t time.Time, years, months, days int) time.Time {
	y, m, d := t.Date()
	h, min, sec := t.Clock()

	newY := y + years
	newM := time.Month(int(m) + months)

	// Normalize month overflow in either direction, e.g. adding 2 months to
	// November lands on January of the next year.
	for newM > 12 {
		newM -= 12
		newY++
	}
	for newM < 1 {
		newM += 12
		newY--
	}

	// Find the last valid day of the new month
	firstOfNextMonth := time.Date(newY, newM+1, 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfNextMonth.Add(-24 * time.Hour).Day()

	newD := d
	if newD > lastDay {
		newD = lastDay
	}

	result := time.Date(newY, newM, newD, h, min, sec, t.Nanosecond(), t.Location())
	if days != 0 {
		result = result.AddDate(0, 0, days)
	}
	return result
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

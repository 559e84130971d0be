package subscriptions

import (
	"time"

	"github.com/abex/clubes-abex/pkg/enums"
)

// Window returns the entitlement period starting at start for the billing
// cycle. Month arithmetic clamps to the last day of the target month, so
// Jan 31 + 1 month is Feb 28 (or 29) rather than early March.
func Window(start time.Time, cycle enums.BillingCycle) (time.Time, time.Time) {
	switch cycle {
	case enums.BillingCycleAnnual:
		return start, addMonthsClamped(start, 12)
	default:
		return start, addMonthsClamped(start, 1)
	}
}

// TrialWindow returns a window lasting the given number of days.
func TrialWindow(start time.Time, days int) (time.Time, time.Time) {
	return start, start.AddDate(0, 0, days)
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	target := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(target.Year(), target.Month(), t.Location()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

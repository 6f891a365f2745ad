package slotgrid

import "time"

// Config bundles the grid parameters a view instance works with.
type Config struct {
	Window        Window
	AnchorMonth   time.Time
	WeeksPerMonth int
	Durations     []int
}

// WeekDates returns the five business days (Monday..Friday) of week weekIndex,
// counted from the Monday-aligned start of anchorMonth. weekIndex is the
// caller's contract to clamp; out-of-range values simply walk off the month.
func WeekDates(anchorMonth time.Time, weekIndex int) []time.Time {
	monthStart := time.Date(anchorMonth.Year(), anchorMonth.Month(), 1, 0, 0, 0, 0, anchorMonth.Location())

	// shift back to the Monday on or before the 1st
	offset := (int(monthStart.Weekday()) + 6) % 7
	monday := monthStart.AddDate(0, 0, -offset+7*weekIndex)

	dates := make([]time.Time, 5)
	for i := range dates {
		dates[i] = monday.AddDate(0, 0, i)
	}
	return dates
}

func DateString(t time.Time) string {
	return t.Format("2006-01-02")
}

package utils

import "time"

// DaysPastDue calculates how many whole days a due date is behind now.
// A due date in the future yields zero.
func DaysPastDue(dueDate, now time.Time) int {
	days := int(now.Sub(dueDate).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// DaysSince calculates whole days elapsed since t.
func DaysSince(t, now time.Time) int {
	return int(now.Sub(t).Hours() / 24)
}

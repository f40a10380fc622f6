package clock

import "time"

const layout = "2006-01-02T15:04:05Z"

func Now() string {
	return time.Now().UTC().Format(layout)
}

// Days returns the number of whole days elapsed between two times.
// Partial days are truncated, so a code added 29.9 days ago has seen 29 days.
func Days(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours() / 24)
}

// DaysAgo returns the moment the given number of days before now.
func DaysAgo(now time.Time, days int) time.Time {
	return now.Add(-time.Duration(days) * 24 * time.Hour)
}

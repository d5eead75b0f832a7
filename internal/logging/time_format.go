package logging

import "time"

// consoleTimeLayout renders local wall-clock time for console lines; the
// JSON handler emits UTC RFC3339 instead.
const consoleTimeLayout = "2006-01-02 15:04:05"

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format(consoleTimeLayout)
}

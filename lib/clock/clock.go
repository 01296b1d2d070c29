package clock

import "time"

const layout = "2006-01-02T15:04:05Z"

// Now returns the current UTC time formatted for API responses.
func Now() string {
	return time.Now().UTC().Format(layout)
}

// NowUTC returns the current time truncated to seconds, in UTC.
// Stored document timestamps use this so round-trips through the
// store compare equal.
func NowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

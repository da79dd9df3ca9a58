package api

import "time"

// The backend expects UTC timestamps with millisecond precision and a
// literal trailing "Z", e.g. "2024-05-03T11:42:07.123Z".
const reportedTimeLayout = "2006-01-02T15:04:05.000"

// FormatReportedTime renders t for the reportedDateTimeUtc field.
func FormatReportedTime(t time.Time) string {
	return t.UTC().Format(reportedTimeLayout) + "Z"
}

// ParseReportedTime is the inverse of FormatReportedTime.
func ParseReportedTime(s string) (time.Time, error) {
	return time.Parse(reportedTimeLayout+"Z07:00", s)
}

// Now renders the current instant for the reportedDateTimeUtc field.
func Now() string {
	return FormatReportedTime(time.Now())
}

package models

import "time"

// ISOTimeLayout is the canonical instant format: UTC with milliseconds.
const ISOTimeLayout = "2006-01-02T15:04:05.000Z"

// NormalizeTime truncates t to milliseconds in UTC, the precision natural
// keys are compared at.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func FormatISOTime(t time.Time) string {
	return NormalizeTime(t).Format(ISOTimeLayout)
}

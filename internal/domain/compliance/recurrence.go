package compliance

import (
	"strings"
	"time"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

const DefaultMaxRepeats = 52

func ParseFrequency(raw string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(raw)))
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return f, nil
	}
	return "", invalid("frequency", "unrecognized frequency %q", raw)
}

// Schedule expands start into count dates, start included.
//
// Monthly occurrences keep the start's day-of-month and clamp to the last day
// of shorter months. The anchor is always the start date, so Jan 31 yields
// Feb 29 (leap year) and then Mar 31 again.
func Schedule(start time.Time, freq Frequency, count int, maxRepeats int) ([]time.Time, error) {
	if maxRepeats <= 0 {
		maxRepeats = DefaultMaxRepeats
	}
	if count < 1 || count > maxRepeats {
		return nil, invalid("count", "must be in [1,%d], got %d", maxRepeats, count)
	}

	out := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		switch freq {
		case FrequencyDaily:
			out = append(out, start.AddDate(0, 0, i))
		case FrequencyWeekly:
			out = append(out, start.AddDate(0, 0, 7*i))
		case FrequencyMonthly:
			out = append(out, addMonthsClamped(start, i))
		default:
			return nil, invalid("frequency", "unrecognized frequency %q", freq)
		}
	}
	return out, nil
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

package preprocessing

import (
	"math"
	"time"
)

const clockLayout = "15:04"

func parseClock(s string) (time.Time, bool) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ScheduledStart combines the planned date with the "HH:MM" start time. A
// missing or malformed time leaves the start at midnight.
func ScheduledStart(date time.Time, clock string) time.Time {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	if t, ok := parseClock(clock); ok {
		d = d.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
	}
	return d
}

// LeadDays is the number of whole days between scheduling and the visit.
func LeadDays(entry, start time.Time) int {
	return int(math.Floor(start.Sub(entry).Hours() / 24))
}

// ArrivalDelta is arrival minus scheduled time in minutes. Negative means
// the patient was early. Values beyond the threshold are treated as
// registration errors and reported as unknown.
func ArrivalDelta(scheduled, arrival string, thresholdMinutes int) *float64 {
	s, ok := parseClock(scheduled)
	if !ok {
		return nil
	}
	a, ok := parseClock(arrival)
	if !ok {
		return nil
	}
	delta := a.Sub(s).Minutes()
	if math.Abs(delta) > float64(thresholdMinutes) {
		return nil
	}
	return &delta
}

func appointmentHour(clock string) *int {
	t, ok := parseClock(clock)
	if !ok {
		return nil
	}
	h := t.Hour()
	return &h
}

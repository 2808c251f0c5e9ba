package cumulative

import "time"

// LastVisit is the most recent earlier appointment of the same patient that
// started at least the exclusion buffer before the target. All fields are
// nil when there is none.
type LastVisit struct {
	Key       Key
	NoShow    *bool
	At        *time.Time
	DaysSince *int
}

// ResolveLastVisits performs a backward as-of match for every appointment of
// a validated patient history. The trailing pointer j only moves forward, so
// the sweep is linear in the number of appointments.
func ResolveLastVisits(h PatientHistory, opts Options) []LastVisit {
	appts := h.Appointments
	out := make([]LastVisit, len(appts))
	j := 0
	for i, a := range appts {
		out[i].Key = KeyOf(a)
		cutoff := a.ScheduledStart.Add(-opts.exclusion())
		for j < i && !appts[j].ScheduledStart.After(cutoff) {
			j++
		}
		if j == 0 {
			continue
		}
		prev := appts[j-1]
		noShow := prev.NoShow
		at := prev.ScheduledStart
		days := int(a.ScheduledStart.Sub(at) / day)
		out[i].NoShow = &noShow
		out[i].At = &at
		out[i].DaysSince = &days
	}
	return out
}

func visitIndex(visits []LastVisit) map[Key]LastVisit {
	m := make(map[Key]LastVisit, len(visits))
	for _, v := range visits {
		m[v.Key] = v
	}
	return m
}

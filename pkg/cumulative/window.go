package cumulative

import "time"

// WindowStats holds the rolling aggregates for one appointment over
// [T - span, T - exclusion).
type WindowStats struct {
	Key                 Key
	NumNoShows          int
	NumAppointments     int
	PercNoShows         *float64
	PunctualityMean     *float64
	NumNoShowsSpec      int
	NumAppointmentsSpec int
	PercNoShowsSpec     *float64
}

type observation struct {
	at      time.Time
	noShow  bool
	arrival *float64
}

// accumulator sums outcomes and punctuality over a contiguous run of
// observations. Arrival sums only cover observations with a known delta.
type accumulator struct {
	count        int
	noShows      int
	arrivalSum   float64
	arrivalCount int
}

func (a *accumulator) add(o observation) {
	a.count++
	if o.noShow {
		a.noShows++
	}
	if o.arrival != nil {
		a.arrivalSum += *o.arrival
		a.arrivalCount++
	}
}

func (a *accumulator) remove(o observation) {
	a.count--
	if o.noShow {
		a.noShows--
	}
	if o.arrival != nil {
		a.arrivalSum -= *o.arrival
		a.arrivalCount--
	}
}

func (a accumulator) minus(b accumulator) accumulator {
	return accumulator{
		count:        a.count - b.count,
		noShows:      a.noShows - b.noShows,
		arrivalSum:   a.arrivalSum - b.arrivalSum,
		arrivalCount: a.arrivalCount - b.arrivalCount,
	}
}

func (a accumulator) rate() *float64 {
	if a.count == 0 {
		return nil
	}
	r := float64(a.noShows) / float64(a.count)
	return &r
}

func (a accumulator) punctuality() *float64 {
	if a.arrivalCount == 0 {
		return nil
	}
	m := a.arrivalSum / float64(a.arrivalCount)
	return &m
}

// BuildWindows computes the rolling aggregates for every appointment of a
// validated patient history, both over all specialisms and restricted to the
// appointment's own specialism.
func BuildWindows(h PatientHistory, opts Options) []WindowStats {
	obs := make([]observation, len(h.Appointments))
	bySpec := make(map[string][]int)
	for i, a := range h.Appointments {
		obs[i] = observation{at: a.ScheduledStart, noShow: a.NoShow, arrival: a.ArrivalDelta}
		if a.Specialism != "" {
			bySpec[a.Specialism] = append(bySpec[a.Specialism], i)
		}
	}

	overall := roll(obs, opts.span(), opts.exclusion())
	out := make([]WindowStats, len(obs))
	for i, acc := range overall {
		out[i] = WindowStats{
			Key:             KeyOf(h.Appointments[i]),
			NumNoShows:      acc.noShows,
			NumAppointments: acc.count,
			PercNoShows:     acc.rate(),
			PunctualityMean: acc.punctuality(),
		}
	}

	for _, idx := range bySpec {
		sub := make([]observation, len(idx))
		for j, i := range idx {
			sub[j] = obs[i]
		}
		for j, acc := range roll(sub, opts.span(), opts.exclusion()) {
			i := idx[j]
			out[i].NumNoShowsSpec = acc.noShows
			out[i].NumAppointmentsSpec = acc.count
			out[i].PercNoShowsSpec = acc.rate()
		}
	}
	return out
}

// roll walks obs once with two trailing pointers. full covers [lo, i), the
// observations no older than span; recent covers [mid, i), the ones inside
// the exclusion buffer. Each observation enters and leaves each accumulator
// at most once. Requires exclusion < span so that lo <= mid.
func roll(obs []observation, span, exclusion time.Duration) []accumulator {
	out := make([]accumulator, len(obs))
	var full, recent accumulator
	lo, mid := 0, 0
	for i, o := range obs {
		if i > 0 {
			full.add(obs[i-1])
			recent.add(obs[i-1])
		}
		windowStart := o.at.Add(-span)
		for lo < i && obs[lo].at.Before(windowStart) {
			full.remove(obs[lo])
			lo++
		}
		cutoff := o.at.Add(-exclusion)
		for mid < i && obs[mid].at.Before(cutoff) {
			recent.remove(obs[mid])
			mid++
		}
		out[i] = full.minus(recent)
	}
	return out
}

func windowIndex(stats []WindowStats) map[Key]WindowStats {
	m := make(map[Key]WindowStats, len(stats))
	for _, s := range stats {
		m[s.Key] = s
	}
	return m
}

package cumulative

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synaptica-ai/noshow/pkg/common/models"
)

var base = time.Date(2019, 3, 4, 9, 30, 0, 0, time.UTC)

func at(days int) time.Time {
	return base.Add(time.Duration(days) * day)
}

func minutes(v float64) *float64 {
	return &v
}

func appt(patient string, days int, noShow bool) models.Appointment {
	return models.Appointment{
		PatientID:      patient,
		ScheduledStart: at(days),
		Specialism:     "GYN",
		NoShow:         noShow,
	}
}

func compute(t *testing.T, opts Options, records ...models.Appointment) []models.FeatureRecord {
	t.Helper()
	engine, err := NewEngine(opts)
	require.NoError(t, err)
	result, err := engine.Compute(context.Background(), records)
	require.NoError(t, err)
	return result.Records
}

func find(t *testing.T, rows []models.FeatureRecord, patient string, days int) models.FeatureRecord {
	t.Helper()
	for _, r := range rows {
		if r.PatientID == patient && r.ScheduledStart.Equal(at(days)) {
			return r
		}
	}
	t.Fatalf("no row for patient %s at day %d", patient, days)
	return models.FeatureRecord{}
}

func TestComputeOneYearScenario(t *testing.T) {
	opts := Options{HistoryYears: 1, ExclusionDays: 3}
	rows := compute(t, opts,
		appt("P", 0, true),
		appt("P", 100, false),
		appt("P", 400, true),
	)
	require.Len(t, rows, 3)

	target := find(t, rows, "P", 400)
	assert.Equal(t, 1, target.NumAppointments)
	assert.Equal(t, 0, target.NumNoShows)
	require.NotNil(t, target.PercNoShows)
	assert.Equal(t, 0.0, *target.PercNoShows)
	require.NotNil(t, target.LastKnownNoShow)
	assert.False(t, *target.LastKnownNoShow)
	require.NotNil(t, target.DaysSinceLastAppointment)
	assert.Equal(t, 300, *target.DaysSinceLastAppointment)
	assert.False(t, target.AppointmentLastWeek)

	first := find(t, rows, "P", 0)
	assert.Equal(t, 0, first.NumAppointments)
	assert.Equal(t, 0, first.NumNoShows)
	assert.Nil(t, first.PercNoShows)
	assert.Nil(t, first.PunctualityMean)
	assert.Nil(t, first.LastKnownNoShow)
	assert.Nil(t, first.DaysSinceLastAppointment)
	assert.False(t, first.AppointmentLastWeek)

	second := find(t, rows, "P", 100)
	assert.Equal(t, 1, second.NumAppointments)
	assert.Equal(t, 1, second.NumNoShows)
	require.NotNil(t, second.PercNoShows)
	assert.Equal(t, 1.0, *second.PercNoShows)
}

func TestAsOfSkipsExclusionBuffer(t *testing.T) {
	rows := compute(t, Options{HistoryYears: 5, ExclusionDays: 3},
		appt("P", 0, true),
		appt("P", 10, false),
		appt("P", 40, true),
	)

	target := find(t, rows, "P", 40)
	require.NotNil(t, target.LastKnownNoShow)
	assert.False(t, *target.LastKnownNoShow, "day 10 attended")
	require.NotNil(t, target.LastAppointmentAt)
	assert.True(t, target.LastAppointmentAt.Equal(at(10)))
	assert.Equal(t, 30, *target.DaysSinceLastAppointment)
}

func TestNearTermAppointmentsAreExcluded(t *testing.T) {
	rows := compute(t, Options{HistoryYears: 5, ExclusionDays: 3},
		appt("P", 0, true),
		appt("P", 2, true),
		appt("P", 4, false),
		appt("P", 10, false),
	)

	second := find(t, rows, "P", 2)
	assert.Equal(t, 0, second.NumAppointments)
	assert.Nil(t, second.LastKnownNoShow)

	third := find(t, rows, "P", 4)
	assert.Equal(t, 1, third.NumAppointments, "only day 0 is older than the buffer")
	assert.Equal(t, 1, third.NumNoShows)
	assert.Equal(t, 4, *third.DaysSinceLastAppointment)
	assert.True(t, third.AppointmentLastWeek)

	fourth := find(t, rows, "P", 10)
	assert.Equal(t, 3, fourth.NumAppointments)
	assert.Equal(t, 2, fourth.NumNoShows)
	assert.InDelta(t, 2.0/3.0, *fourth.PercNoShows, 1e-12)
	assert.False(t, *fourth.LastKnownNoShow)
	assert.Equal(t, 6, *fourth.DaysSinceLastAppointment)
	assert.True(t, fourth.AppointmentLastWeek)
}

func TestZeroExclusionStillIgnoresTheTargetRow(t *testing.T) {
	rows := compute(t, Options{HistoryYears: 1, ExclusionDays: 0},
		appt("P", 0, true),
		appt("P", 1, false),
	)

	second := find(t, rows, "P", 1)
	assert.Equal(t, 1, second.NumAppointments)
	assert.Equal(t, 1, second.NumNoShows)
	require.NotNil(t, second.LastKnownNoShow)
	assert.True(t, *second.LastKnownNoShow)
	assert.Equal(t, 1, *second.DaysSinceLastAppointment)
}

func TestPunctualityAveragesKnownArrivals(t *testing.T) {
	a := appt("P", 0, false)
	a.ArrivalDelta = minutes(10)
	b := appt("P", 10, false)
	c := appt("P", 20, false)
	c.ArrivalDelta = minutes(-4)
	d := appt("P", 30, false)

	rows := compute(t, DefaultOptions(), a, b, c, d)

	assert.Nil(t, find(t, rows, "P", 0).PunctualityMean)
	second := find(t, rows, "P", 10)
	require.NotNil(t, second.PunctualityMean)
	assert.Equal(t, 10.0, *second.PunctualityMean)

	last := find(t, rows, "P", 30)
	assert.Equal(t, 3, last.NumAppointments)
	require.NotNil(t, last.PunctualityMean)
	assert.Equal(t, 3.0, *last.PunctualityMean)
}

func TestPunctualityIsNullWithoutArrivals(t *testing.T) {
	rows := compute(t, DefaultOptions(), appt("P", 0, false), appt("P", 10, false))
	second := find(t, rows, "P", 10)
	assert.Equal(t, 1, second.NumAppointments)
	assert.Nil(t, second.PunctualityMean)
}

func TestSpecialismScopedCounts(t *testing.T) {
	gyn1 := appt("P", 0, true)
	kin1 := appt("P", 10, false)
	kin1.Specialism = "KIN"
	gyn2 := appt("P", 20, false)
	kin2 := appt("P", 30, true)
	kin2.Specialism = "KIN"

	rows := compute(t, DefaultOptions(), gyn1, kin1, gyn2, kin2)

	gyn := find(t, rows, "P", 20)
	assert.Equal(t, 2, gyn.NumAppointments)
	assert.Equal(t, 1, gyn.NumAppointmentsSpec)
	assert.Equal(t, 1, gyn.NumNoShowsSpec)
	assert.Equal(t, 1.0, *gyn.PercNoShowsSpec)

	kin := find(t, rows, "P", 30)
	assert.Equal(t, 3, kin.NumAppointments)
	assert.Equal(t, 1, kin.NumNoShows)
	assert.Equal(t, 1, kin.NumAppointmentsSpec)
	assert.Equal(t, 0, kin.NumNoShowsSpec)
	require.NotNil(t, kin.PercNoShowsSpec)
	assert.Equal(t, 0.0, *kin.PercNoShowsSpec, "scoped rate must use scoped counts")

	first := find(t, rows, "P", 10)
	assert.Equal(t, 0, first.NumAppointmentsSpec)
	assert.Nil(t, first.PercNoShowsSpec)
}

func TestEmptySpecialismHasNoScopedHistory(t *testing.T) {
	a := appt("P", 0, true)
	a.Specialism = ""
	b := appt("P", 10, true)
	b.Specialism = ""

	rows := compute(t, DefaultOptions(), a, b)
	second := find(t, rows, "P", 10)
	assert.Equal(t, 1, second.NumAppointments)
	assert.Equal(t, 0, second.NumAppointmentsSpec)
	assert.Nil(t, second.PercNoShowsSpec)
}

func TestHistoryDoesNotCrossPatients(t *testing.T) {
	rows := compute(t, DefaultOptions(),
		appt("A", 0, true),
		appt("B", 10, false),
		appt("A", 20, false),
	)

	b := find(t, rows, "B", 10)
	assert.Equal(t, 0, b.NumAppointments)
	assert.Nil(t, b.LastKnownNoShow)

	a := find(t, rows, "A", 20)
	assert.Equal(t, 1, a.NumAppointments)
	assert.True(t, *a.LastKnownNoShow)
}

func TestComputeIsDeterministic(t *testing.T) {
	records := randomAppointments(rand.New(rand.NewSource(7)), 20, 30)
	opts := Options{HistoryYears: 1, ExclusionDays: 3, Workers: 1}

	first := compute(t, opts, records...)
	second := compute(t, opts, records...)
	assert.Equal(t, first, second)

	shuffled := append([]models.Appointment(nil), records...)
	rand.New(rand.NewSource(11)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	assert.Equal(t, first, compute(t, opts, shuffled...))

	opts.Workers = 4
	assert.Equal(t, first, compute(t, opts, records...))
}

func TestComputeReportsStats(t *testing.T) {
	dup := appt("P", 0, false)
	dup.NoShow = true
	engine, err := NewEngine(DefaultOptions())
	require.NoError(t, err)

	result, err := engine.Compute(context.Background(), []models.Appointment{
		appt("P", 0, false), appt("Q", 5, false), dup,
	})
	require.NoError(t, err)
	assert.Equal(t, RunStats{InputRows: 3, Duplicates: 1, Patients: 2, OutputRows: 2}, result.Stats)
	assert.True(t, find(t, result.Records, "P", 0).NoShow, "last duplicate wins")
}

func TestComputeHistoriesRejectsBadOrder(t *testing.T) {
	engine, err := NewEngine(DefaultOptions())
	require.NoError(t, err)

	_, err = engine.ComputeHistories(context.Background(), []PatientHistory{{
		PatientID:    "P",
		Appointments: []models.Appointment{appt("P", 10, false), appt("P", 5, false)},
	}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfOrder))

	var inv *InvariantError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, "P", inv.PatientID)
	assert.True(t, inv.At.Equal(at(5)))

	_, err = engine.ComputeHistories(context.Background(), []PatientHistory{{
		PatientID:    "P",
		Appointments: []models.Appointment{appt("P", 5, false), appt("P", 5, true)},
	}})
	assert.True(t, errors.Is(err, ErrDuplicateKey))
}

func TestNewEngineValidatesOptions(t *testing.T) {
	cases := []Options{
		{HistoryYears: 0, ExclusionDays: 3},
		{HistoryYears: 1, ExclusionDays: -1},
		{HistoryYears: 1, ExclusionDays: 365},
	}
	for _, opts := range cases {
		_, err := NewEngine(opts)
		assert.ErrorIs(t, err, ErrInvalidConfig, "%+v", opts)
	}
}

// TestMatchesNaiveScan compares the two-pointer sweep with a direct rescan of
// every patient's history for each appointment.
func TestMatchesNaiveScan(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, opts := range []Options{
		{HistoryYears: 1, ExclusionDays: 3},
		{HistoryYears: 2, ExclusionDays: 0},
		{HistoryYears: 1, ExclusionDays: 30},
	} {
		records := randomAppointments(rng, 15, 60)
		rows := compute(t, opts, records...)
		normalized := Normalize(records)

		for _, row := range rows {
			want := naive(normalized, row.Appointment, opts)
			assert.Equal(t, want.NumAppointments, row.NumAppointments)
			assert.Equal(t, want.NumNoShows, row.NumNoShows)
			assert.Equal(t, want.NumAppointmentsSpec, row.NumAppointmentsSpec)
			assert.Equal(t, want.NumNoShowsSpec, row.NumNoShowsSpec)
			assert.Equal(t, want.LastKnownNoShow, row.LastKnownNoShow)
			assert.Equal(t, want.DaysSinceLastAppointment, row.DaysSinceLastAppointment)
			if want.PunctualityMean == nil {
				assert.Nil(t, row.PunctualityMean)
			} else {
				require.NotNil(t, row.PunctualityMean)
				assert.InDelta(t, *want.PunctualityMean, *row.PunctualityMean, 1e-9)
			}
		}
	}
}

func naive(all []models.Appointment, target models.Appointment, opts Options) models.CumulativeFeatures {
	var f models.CumulativeFeatures
	T := target.ScheduledStart
	lower := T.Add(-opts.span())
	upper := T.Add(-opts.exclusion())
	var arrivalSum float64
	var arrivalCount int
	var last *models.Appointment
	for i := range all {
		a := all[i]
		if a.PatientID != target.PatientID || !a.ScheduledStart.Before(T) {
			continue
		}
		if !a.ScheduledStart.Before(lower) && a.ScheduledStart.Before(upper) {
			f.NumAppointments++
			if a.NoShow {
				f.NumNoShows++
			}
			if a.ArrivalDelta != nil {
				arrivalSum += *a.ArrivalDelta
				arrivalCount++
			}
			if target.Specialism != "" && a.Specialism == target.Specialism {
				f.NumAppointmentsSpec++
				if a.NoShow {
					f.NumNoShowsSpec++
				}
			}
		}
		if !a.ScheduledStart.After(upper) && (last == nil || a.ScheduledStart.After(last.ScheduledStart)) {
			last = &all[i]
		}
	}
	if arrivalCount > 0 {
		m := arrivalSum / float64(arrivalCount)
		f.PunctualityMean = &m
	}
	if last != nil {
		ns := last.NoShow
		days := int(T.Sub(last.ScheduledStart) / day)
		f.LastKnownNoShow = &ns
		f.DaysSinceLastAppointment = &days
	}
	return f
}

func randomAppointments(rng *rand.Rand, patients, perPatient int) []models.Appointment {
	specs := []string{"GYN", "KIN", "CAR", ""}
	var out []models.Appointment
	for p := 0; p < patients; p++ {
		id := string(rune('A'+p%26)) + string(rune('a'+p/26))
		seen := make(map[int]bool)
		for len(seen) < perPatient {
			hour := rng.Intn(900 * 24)
			if seen[hour] {
				continue
			}
			seen[hour] = true
			a := models.Appointment{
				PatientID:      id,
				ScheduledStart: base.Add(time.Duration(hour) * time.Hour),
				Specialism:     specs[rng.Intn(len(specs))],
				NoShow:         rng.Intn(4) == 0,
			}
			if rng.Intn(3) > 0 {
				a.ArrivalDelta = minutes(float64(rng.Intn(61) - 30))
			}
			out = append(out, a)
		}
	}
	return out
}

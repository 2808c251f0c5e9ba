package predictor

import "github.com/synaptica-ai/noshow/pkg/common/models"

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// FeatureVector flattens a feature record into named model inputs.
//
// History counts and rates are null for patients without eligible history.
// The model was fit with those imputed as zero, so that happens here and
// not in the feature engine. Other nullable inputs are left out when
// unknown; an artifact that needs one fails with a missing feature error.
func FeatureVector(rec models.FeatureRecord) map[string]float64 {
	f := rec.CumulativeFeatures
	a := rec.Appointment

	v := map[string]float64{
		"num_no_shows":          float64(f.NumNoShows),
		"num_appointments":      float64(f.NumAppointments),
		"perc_no_shows":         0,
		"last_known_no_show":    0,
		"num_no_shows_spec":     float64(f.NumNoShowsSpec),
		"num_appointments_spec": float64(f.NumAppointmentsSpec),
		"appointment_last_week": boolFloat(f.AppointmentLastWeek),
		"same_day":              boolFloat(a.SameDay),
		"lead_days":             float64(a.LeadDays),
		"month":                 float64(a.Month),
	}
	if f.PercNoShows != nil {
		v["perc_no_shows"] = *f.PercNoShows
	}
	if f.LastKnownNoShow != nil {
		v["last_known_no_show"] = boolFloat(*f.LastKnownNoShow)
	}

	optional := map[string]*float64{
		"perc_no_shows_spec": f.PercNoShowsSpec,
		"punctuality_mean":   f.PunctualityMean,
		"distance_km":        a.DistanceKm,
	}
	for name, p := range optional {
		if p != nil {
			v[name] = *p
		}
	}
	optionalInt := map[string]*int{
		"days_since_last_appointment": f.DaysSinceLastAppointment,
		"age":                         a.Age,
		"hour":                        a.Hour,
		"duration":                    a.Duration,
	}
	for name, p := range optionalInt {
		if p != nil {
			v[name] = float64(*p)
		}
	}

	if a.Weekday != "" {
		v["weekday_"+a.Weekday] = 1
	}
	if a.Specialism != "" {
		v["specialism_"+a.Specialism] = 1
	}
	return v
}

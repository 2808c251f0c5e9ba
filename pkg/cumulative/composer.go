package cumulative

import (
	"fmt"

	"github.com/synaptica-ai/noshow/pkg/common/models"
)

const lastWeekDays = 7

// Compose joins window aggregates and as-of lookups onto the appointments.
// The three inputs must cover exactly the same keys; any difference points
// at an upstream ordering or normalization bug and is returned as
// ErrKeyMismatch instead of being filled with defaults.
func Compose(appts []models.Appointment, windows []WindowStats, visits []LastVisit) ([]models.FeatureRecord, error) {
	if len(windows) != len(appts) || len(visits) != len(appts) {
		return nil, fmt.Errorf("%d appointments, %d window rows, %d as-of rows: %w",
			len(appts), len(windows), len(visits), ErrKeyMismatch)
	}
	w := windowIndex(windows)
	v := visitIndex(visits)
	if len(w) != len(windows) || len(v) != len(visits) {
		return nil, fmt.Errorf("repeated key in intermediate output: %w", ErrDuplicateKey)
	}

	out := make([]models.FeatureRecord, len(appts))
	for i, a := range appts {
		key := KeyOf(a)
		ws, ok := w[key]
		if !ok {
			return nil, violation(ErrKeyMismatch, key)
		}
		lv, ok := v[key]
		if !ok {
			return nil, violation(ErrKeyMismatch, key)
		}
		out[i] = models.FeatureRecord{
			Appointment: a,
			CumulativeFeatures: models.CumulativeFeatures{
				NumNoShows:               ws.NumNoShows,
				NumAppointments:          ws.NumAppointments,
				PercNoShows:              ws.PercNoShows,
				PunctualityMean:          ws.PunctualityMean,
				NumNoShowsSpec:           ws.NumNoShowsSpec,
				NumAppointmentsSpec:      ws.NumAppointmentsSpec,
				PercNoShowsSpec:          ws.PercNoShowsSpec,
				LastKnownNoShow:          lv.NoShow,
				LastAppointmentAt:        lv.At,
				DaysSinceLastAppointment: lv.DaysSince,
				AppointmentLastWeek:      lv.DaysSince != nil && *lv.DaysSince <= lastWeekDays,
			},
		}
	}
	return out, nil
}

package storage

import (
	"time"

	"github.com/synaptica-ai/noshow/pkg/common/models"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }
func bptr(v bool) *bool       { return &v }
func tptr(v time.Time) *time.Time {
	return &v
}

var base = time.Date(2023, 5, 1, 9, 30, 0, 0, time.UTC)

func sampleRecords() []models.FeatureRecord {
	return []models.FeatureRecord{
		{
			Appointment: models.Appointment{
				PatientID:      "100",
				ScheduledStart: base,
				Specialism:     "CAR",
				Weekday:        "Monday",
				Month:          5,
				LeadDays:       12,
			},
		},
		{
			Appointment: models.Appointment{
				PatientID:      "100",
				ScheduledStart: base.AddDate(0, 1, 0),
				Specialism:     "CAR",
				NoShow:         true,
				ArrivalDelta:   fptr(-7.5),
				Age:            iptr(54),
				ZipCode:        iptr(7555),
				Hour:           iptr(9),
				DistanceKm:     fptr(3.25),
			},
			CumulativeFeatures: models.CumulativeFeatures{
				NumNoShows:               0,
				NumAppointments:          1,
				PercNoShows:              fptr(0),
				NumAppointmentsSpec:      1,
				PercNoShowsSpec:          fptr(0),
				LastKnownNoShow:          bptr(false),
				LastAppointmentAt:        tptr(base),
				DaysSinceLastAppointment: iptr(31),
			},
		},
		{
			Appointment: models.Appointment{
				PatientID:      "200",
				ScheduledStart: base.AddDate(0, 0, 3),
				Specialism:     "DER",
			},
		},
	}
}

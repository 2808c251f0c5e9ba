package cumulative

import (
	"sort"
	"time"

	"github.com/synaptica-ai/noshow/pkg/common/models"
)

// Key identifies an appointment. The timestamp is stored as Unix nanoseconds
// so that equal instants in different locations compare equal.
type Key struct {
	PatientID string
	Start     int64
}

func KeyOf(a models.Appointment) Key {
	return Key{PatientID: a.PatientID, Start: a.ScheduledStart.UnixNano()}
}

func (k Key) time() time.Time {
	return time.Unix(0, k.Start).UTC()
}

// PatientHistory is one patient's complete appointment sequence in strictly
// ascending start order.
type PatientHistory struct {
	PatientID    string
	Appointments []models.Appointment
}

// Normalize keeps the last record seen for every (patient, start) key and
// orders the result by (start, patient). The input slice is not modified.
func Normalize(records []models.Appointment) []models.Appointment {
	index := make(map[Key]int, len(records))
	out := make([]models.Appointment, 0, len(records))
	for _, rec := range records {
		key := KeyOf(rec)
		if pos, ok := index[key]; ok {
			out[pos] = rec
			continue
		}
		index[key] = len(out)
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].ScheduledStart, out[j].ScheduledStart
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return out[i].PatientID < out[j].PatientID
	})
	return out
}

// Partition groups normalized records by patient, preserving order within
// each patient. Patients are returned in order of their first appointment.
func Partition(sorted []models.Appointment) ([]PatientHistory, error) {
	index := make(map[string]int)
	var histories []PatientHistory
	for _, rec := range sorted {
		pos, ok := index[rec.PatientID]
		if !ok {
			pos = len(histories)
			index[rec.PatientID] = pos
			histories = append(histories, PatientHistory{PatientID: rec.PatientID})
		}
		histories[pos].Appointments = append(histories[pos].Appointments, rec)
	}

	for _, h := range histories {
		if err := h.Validate(); err != nil {
			return nil, err
		}
	}
	return histories, nil
}

// Validate checks that every appointment belongs to the patient and that
// start times strictly increase.
func (h PatientHistory) Validate() error {
	for i, rec := range h.Appointments {
		if rec.PatientID != h.PatientID {
			return violation(ErrKeyMismatch, KeyOf(rec))
		}
		if i == 0 {
			continue
		}
		prev := h.Appointments[i-1].ScheduledStart
		switch {
		case rec.ScheduledStart.Equal(prev):
			return violation(ErrDuplicateKey, KeyOf(rec))
		case rec.ScheduledStart.Before(prev):
			return violation(ErrOutOfOrder, KeyOf(rec))
		}
	}
	return nil
}

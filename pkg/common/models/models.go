package models

import (
	"time"
)

// Appointment is one scheduled visit after preprocessing. The descriptive
// columns are carried through the feature pipeline untouched.
type Appointment struct {
	PatientID      string    `json:"patient_id"`
	ScheduledStart time.Time `json:"scheduled_start"`
	Specialism     string    `json:"specialism"`
	NoShow         bool      `json:"no_show"`
	ArrivalDelta   *float64  `json:"arrival_delta"` // minutes; nil when unknown

	Sex         string   `json:"sex,omitempty"`
	Age         *int     `json:"age,omitempty"`
	ZipCode     *int     `json:"zip_code,omitempty"`
	City        string   `json:"city,omitempty"`
	Agenda      string   `json:"agenda,omitempty"`
	Description string   `json:"description,omitempty"`
	ConsultType string   `json:"consult_type,omitempty"`
	Code        string   `json:"code,omitempty"`
	Location    string   `json:"location,omitempty"`
	Duration    *int     `json:"duration,omitempty"`
	SameDay     bool     `json:"same_day"`
	LeadDays    int      `json:"lead_days"`
	Month       int      `json:"month"`
	Weekday     string   `json:"weekday"`
	Hour        *int     `json:"hour,omitempty"`
	DistanceKm  *float64 `json:"distance_km,omitempty"`
}

// CumulativeFeatures are the history-derived columns. Pointer fields are
// null when the patient has no eligible history.
type CumulativeFeatures struct {
	NumNoShows               int        `json:"num_no_shows"`
	NumAppointments          int        `json:"num_appointments"`
	PercNoShows              *float64   `json:"perc_no_shows"`
	PunctualityMean          *float64   `json:"punctuality_mean"`
	NumNoShowsSpec           int        `json:"num_no_shows_spec"`
	NumAppointmentsSpec      int        `json:"num_appointments_spec"`
	PercNoShowsSpec          *float64   `json:"perc_no_shows_spec"`
	LastKnownNoShow          *bool      `json:"last_known_no_show"`
	LastAppointmentAt        *time.Time `json:"last_appointment_at"`
	DaysSinceLastAppointment *int       `json:"days_since_last_appointment"`
	AppointmentLastWeek      bool       `json:"appointment_last_week"`
}

type FeatureRecord struct {
	Appointment
	CumulativeFeatures
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // appointments.extracted, features.computed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// Batch submission
type BatchRequest struct {
	Source     string           `json:"source"`
	OutputFrom *time.Time       `json:"output_from,omitempty"`
	Records    []RawAppointment `json:"records"`
}

type BatchResponse struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	InputRows  int       `json:"input_rows"`
	OutputRows int       `json:"output_rows"`
	Patients   int       `json:"patients"`
	Timestamp  time.Time `json:"timestamp"`
}

// RawAppointment mirrors one row of the scheduling extract before cleaning.
// Dates are already parsed; times of day stay "HH:MM" strings.
type RawAppointment struct {
	PatientID         string    `json:"patient_id"`
	Sex               string    `json:"sex,omitempty"`
	ZipCode           string    `json:"zip_code,omitempty"`
	City              string    `json:"city,omitempty"`
	Age               *int      `json:"age,omitempty"`
	EntryDate         time.Time `json:"entry_date"`
	StartDate         time.Time `json:"start_date"`
	StartTime         string    `json:"start_time,omitempty"`
	ArrivalTime       string    `json:"arrival_time,omitempty"`
	Agenda            string    `json:"agenda,omitempty"`
	SpecCode          string    `json:"spec_code,omitempty"`
	TariffDepartment  string    `json:"tariff_department,omitempty"`
	LocationID        string    `json:"location_id,omitempty"`
	Description       string    `json:"description,omitempty"`
	ConsultType       string    `json:"consult_type,omitempty"`
	Code              string    `json:"code,omitempty"`
	Duration          *int      `json:"duration,omitempty"`
	StatusKey         *int      `json:"status_key,omitempty"`
	CancelationReason string    `json:"cancelation_reason,omitempty"`
}

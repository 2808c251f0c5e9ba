package storage

import (
	"time"

	"github.com/synaptica-ai/noshow/pkg/common/models"
)

// FeatureRow is the flat, persisted form of a feature record. The same
// struct backs the Postgres table and the Parquet export; pointer columns
// are nullable in both.
type FeatureRow struct {
	ID             uint      `gorm:"primaryKey;column:id" parquet:"-" json:"-"`
	BatchID        string    `gorm:"column:batch_id;size:36;uniqueIndex:idx_feature_key,priority:3" parquet:"batch_id" json:"batch_id"`
	PatientID      string    `gorm:"column:patient_id;not null;uniqueIndex:idx_feature_key,priority:1;index" parquet:"patient_id" json:"patient_id"`
	ScheduledStart time.Time `gorm:"column:scheduled_start;not null;uniqueIndex:idx_feature_key,priority:2" parquet:"scheduled_start" json:"scheduled_start"`
	Specialism     string    `gorm:"column:specialism" parquet:"specialism" json:"specialism"`
	NoShow         bool      `gorm:"column:no_show" parquet:"no_show" json:"no_show"`
	ArrivalDelta   *float64  `gorm:"column:arrival_delta" parquet:"arrival_delta" json:"arrival_delta"`

	Sex         string   `gorm:"column:sex" parquet:"sex" json:"sex"`
	Age         *int     `gorm:"column:age" parquet:"age" json:"age"`
	ZipCode     *int     `gorm:"column:zip_code" parquet:"zip_code" json:"zip_code"`
	City        string   `gorm:"column:city" parquet:"city" json:"city"`
	Agenda      string   `gorm:"column:agenda" parquet:"agenda" json:"agenda"`
	Description string   `gorm:"column:description" parquet:"description" json:"description"`
	ConsultType string   `gorm:"column:consult_type" parquet:"consult_type" json:"consult_type"`
	Code        string   `gorm:"column:code" parquet:"code" json:"code"`
	Location    string   `gorm:"column:location" parquet:"location" json:"location"`
	Duration    *int     `gorm:"column:duration" parquet:"duration" json:"duration"`
	SameDay     bool     `gorm:"column:same_day" parquet:"same_day" json:"same_day"`
	LeadDays    int      `gorm:"column:lead_days" parquet:"lead_days" json:"lead_days"`
	Month       int      `gorm:"column:month" parquet:"month" json:"month"`
	Weekday     string   `gorm:"column:weekday" parquet:"weekday" json:"weekday"`
	Hour        *int     `gorm:"column:hour" parquet:"hour" json:"hour"`
	DistanceKm  *float64 `gorm:"column:distance_km" parquet:"distance_km" json:"distance_km"`

	NumNoShows               int        `gorm:"column:num_no_shows" parquet:"num_no_shows" json:"num_no_shows"`
	NumAppointments          int        `gorm:"column:num_appointments" parquet:"num_appointments" json:"num_appointments"`
	PercNoShows              *float64   `gorm:"column:perc_no_shows" parquet:"perc_no_shows" json:"perc_no_shows"`
	PunctualityMean          *float64   `gorm:"column:punctuality_mean" parquet:"punctuality_mean" json:"punctuality_mean"`
	NumNoShowsSpec           int        `gorm:"column:num_no_shows_spec" parquet:"num_no_shows_spec" json:"num_no_shows_spec"`
	NumAppointmentsSpec      int        `gorm:"column:num_appointments_spec" parquet:"num_appointments_spec" json:"num_appointments_spec"`
	PercNoShowsSpec          *float64   `gorm:"column:perc_no_shows_spec" parquet:"perc_no_shows_spec" json:"perc_no_shows_spec"`
	LastKnownNoShow          *bool      `gorm:"column:last_known_no_show" parquet:"last_known_no_show" json:"last_known_no_show"`
	LastAppointmentAt        *time.Time `gorm:"column:last_appointment_at" parquet:"last_appointment_at" json:"last_appointment_at"`
	DaysSinceLastAppointment *int       `gorm:"column:days_since_last_appointment" parquet:"days_since_last_appointment" json:"days_since_last_appointment"`
	AppointmentLastWeek      bool       `gorm:"column:appointment_last_week" parquet:"appointment_last_week" json:"appointment_last_week"`

	CreatedAt time.Time `gorm:"column:created_at" parquet:"-" json:"-"`
}

func (FeatureRow) TableName() string {
	return "appointment_features"
}

func NewFeatureRow(batchID string, rec models.FeatureRecord) FeatureRow {
	a, f := rec.Appointment, rec.CumulativeFeatures
	return FeatureRow{
		BatchID:        batchID,
		PatientID:      a.PatientID,
		ScheduledStart: a.ScheduledStart.UTC(),
		Specialism:     a.Specialism,
		NoShow:         a.NoShow,
		ArrivalDelta:   a.ArrivalDelta,

		Sex:         a.Sex,
		Age:         a.Age,
		ZipCode:     a.ZipCode,
		City:        a.City,
		Agenda:      a.Agenda,
		Description: a.Description,
		ConsultType: a.ConsultType,
		Code:        a.Code,
		Location:    a.Location,
		Duration:    a.Duration,
		SameDay:     a.SameDay,
		LeadDays:    a.LeadDays,
		Month:       a.Month,
		Weekday:     a.Weekday,
		Hour:        a.Hour,
		DistanceKm:  a.DistanceKm,

		NumNoShows:               f.NumNoShows,
		NumAppointments:          f.NumAppointments,
		PercNoShows:              f.PercNoShows,
		PunctualityMean:          f.PunctualityMean,
		NumNoShowsSpec:           f.NumNoShowsSpec,
		NumAppointmentsSpec:      f.NumAppointmentsSpec,
		PercNoShowsSpec:          f.PercNoShowsSpec,
		LastKnownNoShow:          f.LastKnownNoShow,
		LastAppointmentAt:        f.LastAppointmentAt,
		DaysSinceLastAppointment: f.DaysSinceLastAppointment,
		AppointmentLastWeek:      f.AppointmentLastWeek,
	}
}

func NewFeatureRows(batchID string, records []models.FeatureRecord) []FeatureRow {
	rows := make([]FeatureRow, len(records))
	for i, rec := range records {
		rows[i] = NewFeatureRow(batchID, rec)
	}
	return rows
}

func (r FeatureRow) Record() models.FeatureRecord {
	return models.FeatureRecord{
		Appointment: models.Appointment{
			PatientID:      r.PatientID,
			ScheduledStart: r.ScheduledStart.UTC(),
			Specialism:     r.Specialism,
			NoShow:         r.NoShow,
			ArrivalDelta:   r.ArrivalDelta,
			Sex:            r.Sex,
			Age:            r.Age,
			ZipCode:        r.ZipCode,
			City:           r.City,
			Agenda:         r.Agenda,
			Description:    r.Description,
			ConsultType:    r.ConsultType,
			Code:           r.Code,
			Location:       r.Location,
			Duration:       r.Duration,
			SameDay:        r.SameDay,
			LeadDays:       r.LeadDays,
			Month:          r.Month,
			Weekday:        r.Weekday,
			Hour:           r.Hour,
			DistanceKm:     r.DistanceKm,
		},
		CumulativeFeatures: models.CumulativeFeatures{
			NumNoShows:               r.NumNoShows,
			NumAppointments:          r.NumAppointments,
			PercNoShows:              r.PercNoShows,
			PunctualityMean:          r.PunctualityMean,
			NumNoShowsSpec:           r.NumNoShowsSpec,
			NumAppointmentsSpec:      r.NumAppointmentsSpec,
			PercNoShowsSpec:          r.PercNoShowsSpec,
			LastKnownNoShow:          r.LastKnownNoShow,
			LastAppointmentAt:        r.LastAppointmentAt,
			DaysSinceLastAppointment: r.DaysSinceLastAppointment,
			AppointmentLastWeek:      r.AppointmentLastWeek,
		},
	}
}

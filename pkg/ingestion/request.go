package ingestion

import (
	"fmt"
	"strings"
	"time"

	"github.com/synaptica-ai/noshow/pkg/common/models"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"02-01-2006",
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// RequestWrapper is the JSON body of POST /api/v1/batches. Dates travel as
// plain strings so extracts can be posted without reformatting.
type RequestWrapper struct {
	Source     string          `json:"source"`
	OutputFrom string          `json:"output_from,omitempty"`
	Records    []RecordWrapper `json:"records"`
}

type RecordWrapper struct {
	PatientID         string `json:"patient_id"`
	Sex               string `json:"sex,omitempty"`
	ZipCode           string `json:"zip_code,omitempty"`
	City              string `json:"city,omitempty"`
	Age               *int   `json:"age,omitempty"`
	EntryDate         string `json:"entry_date"`
	StartDate         string `json:"start_date"`
	StartTime         string `json:"start_time,omitempty"`
	ArrivalTime       string `json:"arrival_time,omitempty"`
	Agenda            string `json:"agenda,omitempty"`
	SpecCode          string `json:"spec_code,omitempty"`
	TariffDepartment  string `json:"tariff_department,omitempty"`
	LocationID        string `json:"location_id,omitempty"`
	Description       string `json:"description,omitempty"`
	ConsultType       string `json:"consult_type,omitempty"`
	Code              string `json:"code,omitempty"`
	Duration          *int   `json:"duration,omitempty"`
	StatusKey         *int   `json:"status_key,omitempty"`
	CancelationReason string `json:"cancelation_reason,omitempty"`
}

func (r RequestWrapper) ToModel() (models.BatchRequest, error) {
	req := models.BatchRequest{Source: r.Source, Records: make([]models.RawAppointment, len(r.Records))}
	if r.OutputFrom != "" {
		from, err := parseDate(r.OutputFrom)
		if err != nil {
			return models.BatchRequest{}, ValidationError{reason: fmt.Errorf("output_from: %w", err)}
		}
		req.OutputFrom = &from
	}
	for i, rec := range r.Records {
		raw, err := rec.ToModel()
		if err != nil {
			return models.BatchRequest{}, ValidationError{reason: fmt.Errorf("record %d: %w", i, err)}
		}
		req.Records[i] = raw
	}
	return req, nil
}

func (r RecordWrapper) ToModel() (models.RawAppointment, error) {
	entry, err := parseDate(r.EntryDate)
	if err != nil {
		return models.RawAppointment{}, fmt.Errorf("entry_date: %w", err)
	}
	start, err := parseDate(r.StartDate)
	if err != nil {
		return models.RawAppointment{}, fmt.Errorf("start_date: %w", err)
	}
	return models.RawAppointment{
		PatientID:         strings.TrimSpace(r.PatientID),
		Sex:               r.Sex,
		ZipCode:           r.ZipCode,
		City:              r.City,
		Age:               r.Age,
		EntryDate:         entry,
		StartDate:         start,
		StartTime:         r.StartTime,
		ArrivalTime:       r.ArrivalTime,
		Agenda:            r.Agenda,
		SpecCode:          r.SpecCode,
		TariffDepartment:  r.TariffDepartment,
		LocationID:        r.LocationID,
		Description:       r.Description,
		ConsultType:       r.ConsultType,
		Code:              r.Code,
		Duration:          r.Duration,
		StatusKey:         r.StatusKey,
		CancelationReason: r.CancelationReason,
	}, nil
}

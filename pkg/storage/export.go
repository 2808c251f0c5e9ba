package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/synaptica-ai/noshow/pkg/common/models"
)

const parquetFlushInterval = 100_000

// RecordWriter exports feature records to a file.
type RecordWriter interface {
	Write(records []models.FeatureRecord) error
	Count() int
	Close() error
}

// NewFileWriter opens a writer for format "csv" or "parquet".
func NewFileWriter(path, format string) (RecordWriter, error) {
	switch format {
	case "parquet":
		return NewParquetWriter(path)
	case "csv", "":
		return NewCSVWriter(path)
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// ParquetWriter handles writing feature rows to a Snappy compressed file.
type ParquetWriter struct {
	file   *os.File
	writer *parquet.GenericWriter[FeatureRow]
	count  int
}

func NewParquetWriter(filename string) (*ParquetWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet file: %w", err)
	}

	writer := parquet.NewGenericWriter[FeatureRow](file,
		parquet.Compression(&parquet.Snappy),
	)

	return &ParquetWriter{
		file:   file,
		writer: writer,
	}, nil
}

func (pw *ParquetWriter) Write(records []models.FeatureRecord) error {
	for _, rec := range records {
		if _, err := pw.writer.Write([]FeatureRow{NewFeatureRow("", rec)}); err != nil {
			return fmt.Errorf("failed to write parquet record: %w", err)
		}
		pw.count++

		// Flush row group periodically to bound memory usage
		if pw.count%parquetFlushInterval == 0 {
			if err := pw.writer.Flush(); err != nil {
				return fmt.Errorf("failed to flush parquet row group: %w", err)
			}
		}
	}
	return nil
}

func (pw *ParquetWriter) Close() error {
	if err := pw.writer.Close(); err != nil {
		pw.file.Close()
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return pw.file.Close()
}

func (pw *ParquetWriter) Count() int {
	return pw.count
}

var csvHeader = []string{
	"patient_id", "scheduled_start", "specialism", "no_show", "arrival_delta",
	"sex", "age", "zip_code", "city", "agenda", "description", "consult_type",
	"code", "location", "duration", "same_day", "lead_days", "month", "weekday",
	"hour", "distance_km",
	"num_no_shows", "num_appointments", "perc_no_shows", "punctuality_mean",
	"num_no_shows_spec", "num_appointments_spec", "perc_no_shows_spec",
	"last_known_no_show", "last_appointment_at", "days_since_last_appointment",
	"appointment_last_week",
}

// CSVWriter writes the same columns as the Parquet export. Nulls are empty
// cells.
type CSVWriter struct {
	closer io.Closer
	w      *csv.Writer
	count  int
}

func NewCSVWriter(filename string) (*CSVWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create csv file: %w", err)
	}
	cw, err := newCSVWriter(file, file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return cw, nil
}

func newCSVWriter(w io.Writer, closer io.Closer) (*CSVWriter, error) {
	cw := &CSVWriter{closer: closer, w: csv.NewWriter(w)}
	if err := cw.w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	return cw, nil
}

func (cw *CSVWriter) Write(records []models.FeatureRecord) error {
	for _, rec := range records {
		if err := cw.w.Write(csvRow(rec)); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
		cw.count++
	}
	return nil
}

func (cw *CSVWriter) Close() error {
	cw.w.Flush()
	if err := cw.w.Error(); err != nil {
		if cw.closer != nil {
			cw.closer.Close()
		}
		return err
	}
	if cw.closer != nil {
		return cw.closer.Close()
	}
	return nil
}

func (cw *CSVWriter) Count() int {
	return cw.count
}

func csvRow(rec models.FeatureRecord) []string {
	a, f := rec.Appointment, rec.CumulativeFeatures
	return []string{
		a.PatientID,
		a.ScheduledStart.UTC().Format(time.RFC3339),
		a.Specialism,
		strconv.FormatBool(a.NoShow),
		formatFloat(a.ArrivalDelta),
		a.Sex,
		formatInt(a.Age),
		formatInt(a.ZipCode),
		a.City,
		a.Agenda,
		a.Description,
		a.ConsultType,
		a.Code,
		a.Location,
		formatInt(a.Duration),
		strconv.FormatBool(a.SameDay),
		strconv.Itoa(a.LeadDays),
		strconv.Itoa(a.Month),
		a.Weekday,
		formatInt(a.Hour),
		formatFloat(a.DistanceKm),
		strconv.Itoa(f.NumNoShows),
		strconv.Itoa(f.NumAppointments),
		formatFloat(f.PercNoShows),
		formatFloat(f.PunctualityMean),
		strconv.Itoa(f.NumNoShowsSpec),
		strconv.Itoa(f.NumAppointmentsSpec),
		formatFloat(f.PercNoShowsSpec),
		formatBool(f.LastKnownNoShow),
		formatTime(f.LastAppointmentAt),
		formatInt(f.DaysSinceLastAppointment),
		strconv.FormatBool(f.AppointmentLastWeek),
	}
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatBool(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}

func formatTime(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}

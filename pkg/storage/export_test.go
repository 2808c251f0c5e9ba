package storage

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParquetWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.parquet")

	w, err := NewFileWriter(path, "parquet")
	require.NoError(t, err)
	require.NoError(t, w.Write(sampleRecords()))
	assert.Equal(t, 3, w.Count())
	require.NoError(t, w.Close())

	rows, err := parquet.ReadFile[FeatureRow](path)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	first := rows[0].Record()
	assert.Equal(t, "100", first.PatientID)
	assert.True(t, first.ScheduledStart.Equal(base))
	assert.Nil(t, first.PercNoShows)
	assert.Nil(t, first.LastKnownNoShow)
	assert.Nil(t, first.DaysSinceLastAppointment)

	second := rows[1].Record()
	assert.True(t, second.NoShow)
	require.NotNil(t, second.ArrivalDelta)
	assert.Equal(t, -7.5, *second.ArrivalDelta)
	require.NotNil(t, second.PercNoShows)
	assert.Equal(t, 0.0, *second.PercNoShows)
	require.NotNil(t, second.LastKnownNoShow)
	assert.False(t, *second.LastKnownNoShow)
	require.NotNil(t, second.LastAppointmentAt)
	assert.True(t, second.LastAppointmentAt.Equal(base))
	require.NotNil(t, second.DaysSinceLastAppointment)
	assert.Equal(t, 31, *second.DaysSinceLastAppointment)
}

func TestCSVWriterWritesEmptyCellsForNulls(t *testing.T) {
	var buf bytes.Buffer
	w, err := newCSVWriter(&buf, nil)
	require.NoError(t, err)
	require.NoError(t, w.Write(sampleRecords()))
	require.NoError(t, w.Close())

	lines, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, lines, 4)
	assert.Equal(t, csvHeader, lines[0])

	col := func(name string) int {
		for i, h := range csvHeader {
			if h == name {
				return i
			}
		}
		t.Fatalf("no column %s", name)
		return -1
	}

	assert.Equal(t, "2023-05-01T09:30:00Z", lines[1][col("scheduled_start")])
	assert.Equal(t, "", lines[1][col("perc_no_shows")])
	assert.Equal(t, "", lines[1][col("last_known_no_show")])
	assert.Equal(t, "0", lines[1][col("num_appointments")])

	assert.Equal(t, "-7.5", lines[2][col("arrival_delta")])
	assert.Equal(t, "0", lines[2][col("perc_no_shows")])
	assert.Equal(t, "false", lines[2][col("last_known_no_show")])
	assert.Equal(t, "31", lines[2][col("days_since_last_appointment")])
	assert.Equal(t, "true", lines[2][col("no_show")])
}

func TestNewFileWriterRejectsUnknownFormat(t *testing.T) {
	_, err := NewFileWriter(filepath.Join(t.TempDir(), "x"), "xlsx")
	assert.Error(t, err)
}

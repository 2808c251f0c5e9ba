package ingestion

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "\xEF\xBB\xBF" +
	"PATIENTNR;GESLACHT;POSTCODE;LEEFTIJD;INVOERDAT;STARTDATEPLAN;STARTTIMEPLAN;AANKOMST;SPECCODE;TARAFD;DESCRIPTION;CONSTYPE;CODE;DUUR;AfspraakstatusKey;REDEN;EXTRA\n" +
	"10;V;7555 DL;54;2023-01-01;2023-01-10;09:00;08:55;CAR;CAR;ZGT locatie Hengelo;H;E1;15;6;Patient niet verschenen (of te laat gemeld);x\n" +
	"10;V;7555 DL;54.0;2023-02-01 00:00:00;2023-02-15 00:00:00;10:30;;;CAR;ZGT locatie Hengelo;H;E1;;1;;x\n" +
	"10;V;7555 DL;54;2023-02-01;2023-02-20;10:30;;CAR;CAR;;H;TC;10;1;;x\n"

func TestCSVReader(t *testing.T) {
	r, err := NewCSVReader(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	first := rows[0]
	assert.Equal(t, "10", first.PatientID)
	assert.Equal(t, "7555 DL", first.ZipCode)
	assert.Equal(t, time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC), first.StartDate)
	assert.Equal(t, "08:55", first.ArrivalTime)
	require.NotNil(t, first.StatusKey)
	assert.Equal(t, 6, *first.StatusKey)
	require.NotNil(t, first.Duration)
	assert.Equal(t, 15, *first.Duration)
	assert.Equal(t, "Patient niet verschenen (of te laat gemeld)", first.CancelationReason)

	second := rows[1]
	assert.Equal(t, time.Date(2023, 2, 15, 0, 0, 0, 0, time.UTC), second.StartDate)
	assert.Equal(t, "", second.SpecCode)
	assert.Equal(t, "CAR", second.TariffDepartment)
	require.NotNil(t, second.Age)
	assert.Equal(t, 54, *second.Age)
	assert.Nil(t, second.Duration)
	assert.Equal(t, "", second.City)
}

func TestCSVReaderRequiresColumns(t *testing.T) {
	_, err := NewCSVReader(strings.NewReader("PATIENTNR;STARTDATEPLAN\n1;2023-01-01\n"))
	assert.ErrorContains(t, err, "INVOERDAT")
}

func TestCSVReaderReportsBadValues(t *testing.T) {
	r, err := NewCSVReader(strings.NewReader("PATIENTNR;INVOERDAT;STARTDATEPLAN;DUUR\n1;2023-01-01;soon;5\n"))
	require.NoError(t, err)
	_, err = r.Read()
	assert.ErrorContains(t, err, "line 2")

	r, err = NewCSVReader(strings.NewReader("PATIENTNR;INVOERDAT;STARTDATEPLAN;DUUR\n1;2023-01-01;2023-01-09;five\n"))
	require.NoError(t, err)
	_, err = r.Read()
	assert.ErrorContains(t, err, "DUUR")
}

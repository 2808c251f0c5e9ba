package ingestion

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/synaptica-ai/noshow/pkg/common/models"
)

// Column names of the scheduling extract.
const (
	colPatient     = "PATIENTNR"
	colSex         = "GESLACHT"
	colZip         = "POSTCODE"
	colCity        = "WOONPLAATS"
	colAge         = "LEEFTIJD"
	colEntryDate   = "INVOERDAT"
	colStartDate   = "STARTDATEPLAN"
	colStartTime   = "STARTTIMEPLAN"
	colArrival     = "AANKOMST"
	colAgenda      = "AGENDA"
	colSpecCode    = "SPECCODE"
	colTariffDept  = "TARAFD"
	colLocationID  = "LOCATIONID"
	colDescription = "DESCRIPTION"
	colConsultType = "CONSTYPE"
	colCode        = "CODE"
	colDuration    = "DUUR"
	colStatusKey   = "AfspraakstatusKey"
	colReason      = "REDEN"
)

var requiredColumns = []string{colPatient, colEntryDate, colStartDate}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVReader reads the semicolon separated appointment extract. Columns are
// located by header name; unknown columns are ignored.
type CSVReader struct {
	r     *csv.Reader
	index map[string]int
	line  int
}

func NewCSVReader(r io.Reader) (*CSVReader, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing column %s", col)
		}
	}
	return &CSVReader{r: cr, index: index, line: 1}, nil
}

func (c *CSVReader) field(row []string, col string) string {
	i, ok := c.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func optionalInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	// pandas writes nullable integers as "12.0"
	s = strings.TrimSuffix(s, ".0")
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Read returns the next row or io.EOF.
func (c *CSVReader) Read() (models.RawAppointment, error) {
	row, err := c.r.Read()
	if err != nil {
		return models.RawAppointment{}, err
	}
	c.line++

	entry, err := parseDate(c.field(row, colEntryDate))
	if err != nil {
		return models.RawAppointment{}, fmt.Errorf("line %d: %s: %w", c.line, colEntryDate, err)
	}
	start, err := parseDate(c.field(row, colStartDate))
	if err != nil {
		return models.RawAppointment{}, fmt.Errorf("line %d: %s: %w", c.line, colStartDate, err)
	}

	raw := models.RawAppointment{
		PatientID:         c.field(row, colPatient),
		Sex:               c.field(row, colSex),
		ZipCode:           c.field(row, colZip),
		City:              c.field(row, colCity),
		EntryDate:         entry,
		StartDate:         start,
		StartTime:         c.field(row, colStartTime),
		ArrivalTime:       c.field(row, colArrival),
		Agenda:            c.field(row, colAgenda),
		SpecCode:          c.field(row, colSpecCode),
		TariffDepartment:  c.field(row, colTariffDept),
		LocationID:        c.field(row, colLocationID),
		Description:       c.field(row, colDescription),
		ConsultType:       c.field(row, colConsultType),
		Code:              c.field(row, colCode),
		CancelationReason: c.field(row, colReason),
	}

	for _, f := range []struct {
		col string
		dst **int
	}{
		{colAge, &raw.Age},
		{colDuration, &raw.Duration},
		{colStatusKey, &raw.StatusKey},
	} {
		v, err := optionalInt(c.field(row, f.col))
		if err != nil {
			return models.RawAppointment{}, fmt.Errorf("line %d: %s: %w", c.line, f.col, err)
		}
		*f.dst = v
	}

	return raw, nil
}

func (c *CSVReader) ReadAll() ([]models.RawAppointment, error) {
	var out []models.RawAppointment
	for {
		raw, err := c.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
}

func ReadCSVFile(path string) ([]models.RawAppointment, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open extract: %w", err)
	}
	defer f.Close()

	r, err := NewCSVReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r.ReadAll()
}

package ingestion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/synaptica-ai/noshow/pkg/common/models"
)

func TestValidator(t *testing.T) {
	ok := models.RawAppointment{PatientID: "1", StartDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}

	tests := []struct {
		name  string
		v     *Validator
		req   models.BatchRequest
		valid bool
	}{
		{"valid", NewValidator(nil, 0), models.BatchRequest{Source: "hix", Records: []models.RawAppointment{ok}}, true},
		{"missing source", NewValidator(nil, 0), models.BatchRequest{Records: []models.RawAppointment{ok}}, false},
		{"source not allowed", NewValidator([]string{"HiX"}, 0), models.BatchRequest{Source: "epic", Records: []models.RawAppointment{ok}}, false},
		{"allowed source is case insensitive", NewValidator([]string{"HiX"}, 0), models.BatchRequest{Source: "hix", Records: []models.RawAppointment{ok}}, true},
		{"empty", NewValidator(nil, 0), models.BatchRequest{Source: "hix"}, false},
		{"too large", NewValidator(nil, 1), models.BatchRequest{Source: "hix", Records: []models.RawAppointment{ok, ok}}, false},
		{"missing patient", NewValidator(nil, 0), models.BatchRequest{Source: "hix", Records: []models.RawAppointment{{StartDate: ok.StartDate}}}, false},
		{"missing start", NewValidator(nil, 0), models.BatchRequest{Source: "hix", Records: []models.RawAppointment{{PatientID: "1"}}}, false},
		{"nil validator", nil, models.BatchRequest{Source: "hix", Records: []models.RawAppointment{ok}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.v.Validate(tt.req)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.True(t, IsValidationError(err), "got %v", err)
		})
	}
}

package ingestion

import (
	"errors"
	"fmt"
	"strings"

	"github.com/synaptica-ai/noshow/pkg/common/models"
)

var (
	errInvalidSource = errors.New("invalid source")
	errEmptyBatch    = errors.New("batch contains no records")
	errTooLarge      = errors.New("batch too large")
	errInvalidRecord = errors.New("invalid record")
)

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

type Validator struct {
	allowedSources map[string]struct{}
	maxRecords     int
}

// NewValidator accepts any source when sources is empty and any batch size
// when maxRecords is zero.
func NewValidator(sources []string, maxRecords int) *Validator {
	vs := make(map[string]struct{})
	for _, src := range sources {
		if trimmed := strings.TrimSpace(strings.ToLower(src)); trimmed != "" {
			vs[trimmed] = struct{}{}
		}
	}
	return &Validator{allowedSources: vs, maxRecords: maxRecords}
}

func (v *Validator) Validate(req models.BatchRequest) error {
	if v == nil {
		return ValidationError{reason: errors.New("validator not initialised")}
	}

	source := strings.TrimSpace(strings.ToLower(req.Source))
	if source == "" {
		return ValidationError{reason: fmt.Errorf("source required: %w", errInvalidSource)}
	}
	if len(v.allowedSources) > 0 {
		if _, ok := v.allowedSources[source]; !ok {
			return ValidationError{reason: fmt.Errorf("source '%s' not allowed: %w", source, errInvalidSource)}
		}
	}

	if len(req.Records) == 0 {
		return ValidationError{reason: errEmptyBatch}
	}
	if v.maxRecords > 0 && len(req.Records) > v.maxRecords {
		return ValidationError{reason: fmt.Errorf("%d records exceeds limit of %d: %w", len(req.Records), v.maxRecords, errTooLarge)}
	}

	for i, rec := range req.Records {
		if strings.TrimSpace(rec.PatientID) == "" {
			return ValidationError{reason: fmt.Errorf("record %d: patient id required: %w", i, errInvalidRecord)}
		}
		if rec.StartDate.IsZero() {
			return ValidationError{reason: fmt.Errorf("record %d: start date required: %w", i, errInvalidRecord)}
		}
	}

	return nil
}

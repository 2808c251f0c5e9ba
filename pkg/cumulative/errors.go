package cumulative

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidConfig = errors.New("invalid feature options")
	ErrDuplicateKey  = errors.New("duplicate appointment key")
	ErrOutOfOrder    = errors.New("appointments out of chronological order")
	ErrKeyMismatch   = errors.New("window and as-of outputs disagree on keys")
)

// InvariantError pins a fatal invariant violation to the record that
// exposed it.
type InvariantError struct {
	Err       error
	PatientID string
	At        time.Time
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%v: patient %s at %s", e.Err, e.PatientID, e.At.Format(time.RFC3339))
}

func (e *InvariantError) Unwrap() error {
	return e.Err
}

func violation(err error, key Key) error {
	return &InvariantError{Err: err, PatientID: key.PatientID, At: key.time()}
}

package cumulative

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

// Options is shared by the window builder and the as-of resolver. Both read
// ExclusionDays from the same value so they always agree on the blind spot.
type Options struct {
	HistoryYears  int
	ExclusionDays int
	// Workers bounds how many patients are processed concurrently.
	Workers int
}

func DefaultOptions() Options {
	return Options{
		HistoryYears:  5,
		ExclusionDays: 3,
		Workers:       1,
	}
}

func (o Options) Validate() error {
	if o.HistoryYears <= 0 {
		return fmt.Errorf("history years must be positive, got %d: %w", o.HistoryYears, ErrInvalidConfig)
	}
	if o.ExclusionDays < 0 {
		return fmt.Errorf("exclusion days must not be negative, got %d: %w", o.ExclusionDays, ErrInvalidConfig)
	}
	if o.exclusion() >= o.span() {
		return fmt.Errorf("exclusion of %d days does not fit a %d year window: %w", o.ExclusionDays, o.HistoryYears, ErrInvalidConfig)
	}
	return nil
}

// span is the rolling window length; a year is a fixed 365 days.
func (o Options) span() time.Duration {
	return time.Duration(o.HistoryYears) * 365 * day
}

func (o Options) exclusion() time.Duration {
	return time.Duration(o.ExclusionDays) * day
}

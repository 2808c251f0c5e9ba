package serving

import (
	"sort"
	"time"

	"github.com/synaptica-ai/noshow/pkg/common/models"
)

// Horizon returns how many days ahead predictions are made on a given day:
// three working days, so Monday and Tuesday look 3 days ahead and Wednesday
// to Friday look 5 days ahead. There is no run in the weekend.
func Horizon(weekday time.Weekday) (int, bool) {
	switch weekday {
	case time.Monday, time.Tuesday:
		return 3, true
	case time.Wednesday, time.Thursday, time.Friday:
		return 5, true
	default:
		return 0, false
	}
}

// TargetDate is the appointment date predictions are made for on day now.
func TargetDate(now time.Time) (time.Time, bool) {
	days, ok := Horizon(now.Weekday())
	if !ok {
		return time.Time{}, false
	}
	d := now.AddDate(0, 0, days)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), true
}

type Scored struct {
	Record models.FeatureRecord
	Score  float64
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SelectPredictionDate keeps the rows scheduled on the latest date present.
// Earlier rows were only history.
func SelectPredictionDate(records []models.FeatureRecord) []models.FeatureRecord {
	var latest time.Time
	for _, rec := range records {
		if d := dateOf(rec.ScheduledStart); d.After(latest) {
			latest = d
		}
	}
	var out []models.FeatureRecord
	for _, rec := range records {
		if dateOf(rec.ScheduledStart).Equal(latest) {
			out = append(out, rec)
		}
	}
	return out
}

// RankByScore sorts by descending score. Ties keep their input order.
func RankByScore(scored []Scored) {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
}

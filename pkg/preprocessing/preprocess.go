package preprocessing

import (
	"time"

	"github.com/synaptica-ai/noshow/pkg/common/logger"
	"github.com/synaptica-ai/noshow/pkg/common/models"
)

type Options struct {
	ArrivalThresholdMinutes int
	MinLeadDays             int
}

func DefaultOptions() Options {
	return Options{ArrivalThresholdMinutes: 60, MinLeadDays: 3}
}

type Stats struct {
	Input   int
	Output  int
	Dropped map[DropReason]int
}

// Preprocessor turns raw extract rows into appointments for the feature
// engine. It is safe for concurrent use.
type Preprocessor struct {
	rules ruleSet
	zips  ZipIndex
	opts  Options
}

func New(rules Rules, zips ZipIndex, opts Options) *Preprocessor {
	if zips == nil {
		zips = ZipIndex{}
	}
	return &Preprocessor{rules: rules.compile(), zips: zips, opts: opts}
}

// Process cleans, labels and enriches rows. Input order matters only for
// the same-day flag: the first row of a patient on a date is unflagged.
func (p *Preprocessor) Process(raws []models.RawAppointment) ([]models.Appointment, Stats) {
	stats := Stats{Input: len(raws), Dropped: make(map[DropReason]int)}
	out := make([]models.Appointment, 0, len(raws))

	type patientDay struct {
		patient string
		date    time.Time
	}
	seenDay := make(map[patientDay]bool)

	for _, raw := range raws {
		if reason, ok := p.rules.clean(raw); !ok {
			stats.Dropped[reason]++
			continue
		}
		noShow, ok := p.rules.target(raw)
		if !ok {
			stats.Dropped[DropStatusReason]++
			continue
		}

		day := patientDay{raw.PatientID, ScheduledStart(raw.StartDate, "")}
		sameDay := seenDay[day]
		seenDay[day] = true

		lead := LeadDays(raw.EntryDate, raw.StartDate)
		if lead < p.opts.MinLeadDays {
			stats.Dropped[DropShortLead]++
			continue
		}

		out = append(out, p.enrich(raw, noShow, sameDay, lead))
	}

	stats.Output = len(out)
	logger.Log.WithFields(map[string]interface{}{
		"input":   stats.Input,
		"output":  stats.Output,
		"dropped": stats.Input - stats.Output,
	}).Debug("appointments preprocessed")
	return out, stats
}

func (p *Preprocessor) enrich(raw models.RawAppointment, noShow, sameDay bool, lead int) models.Appointment {
	zip := Zip4(raw.ZipCode)
	location := Location(raw.Description)
	return models.Appointment{
		PatientID:      raw.PatientID,
		ScheduledStart: ScheduledStart(raw.StartDate, raw.StartTime),
		Specialism:     Specialism(raw),
		NoShow:         noShow,
		ArrivalDelta:   ArrivalDelta(raw.StartTime, raw.ArrivalTime, p.opts.ArrivalThresholdMinutes),

		Sex:         raw.Sex,
		Age:         raw.Age,
		ZipCode:     zip,
		City:        raw.City,
		Agenda:      raw.Agenda,
		Description: raw.Description,
		ConsultType: raw.ConsultType,
		Code:        raw.Code,
		Location:    location,
		Duration:    raw.Duration,
		SameDay:     sameDay,
		LeadDays:    lead,
		Month:       int(raw.StartDate.Month()),
		Weekday:     raw.StartDate.Weekday().String(),
		Hour:        appointmentHour(raw.StartTime),
		DistanceKm:  p.zips.Distance(zip, location),
	}
}

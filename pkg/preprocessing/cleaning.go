package preprocessing

import "github.com/synaptica-ai/noshow/pkg/common/models"

// DropReason names the first cleaning rule a row failed.
type DropReason string

const (
	DropEmergency        DropReason = "emergency"
	DropSpecialism       DropReason = "excluded_specialism"
	DropCallConsultation DropReason = "call_consultation"
	DropLocation         DropReason = "external_location"
	DropScheduledLate    DropReason = "scheduled_on_or_after_start"
	DropConsultType      DropReason = "consult_type"
	DropStatusReason     DropReason = "cancelled_not_no_show"
	DropShortLead        DropReason = "short_lead_time"
)

// Specialism is the spec code, falling back to the tariff department.
func Specialism(raw models.RawAppointment) string {
	if raw.SpecCode != "" {
		return raw.SpecCode
	}
	return raw.TariffDepartment
}

func (rs ruleSet) clean(raw models.RawAppointment) (DropReason, bool) {
	if rs.emergency[raw.SpecCode] && rs.emergency[raw.TariffDepartment] && rs.emergency[raw.Code] {
		return DropEmergency, false
	}
	if rs.specialisms[Specialism(raw)] {
		return DropSpecialism, false
	}
	if rs.calls[raw.Code] {
		return DropCallConsultation, false
	}
	if raw.Description != "" && !rs.locations[raw.Description] {
		return DropLocation, false
	}
	if !raw.EntryDate.Before(raw.StartDate) {
		return DropScheduledLate, false
	}
	if !rs.consult[raw.ConsultType] {
		return DropConsultType, false
	}
	return "", true
}

// target maps the status columns to the no-show label. Rows with a
// no-show status key but another reason are dropped: those were regular
// cancellations, not missed visits.
func (rs ruleSet) target(raw models.RawAppointment) (noShow bool, keep bool) {
	if raw.StatusKey == nil || !rs.statusKeys[*raw.StatusKey] {
		return false, true
	}
	if rs.reasons[raw.CancelationReason] {
		return true, true
	}
	return false, false
}

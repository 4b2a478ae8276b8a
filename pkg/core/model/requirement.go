package model

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// CareRequirement is a patient's still-unscheduled recurring service need
// for one week. It is derived from the care plan on every request.
type CareRequirement struct {
	OrganizationID int64
	PatientID      int64
	ServiceTypeID  int64

	// WeekStart is inclusive, WeekEnd is exclusive
	WeekStart time.Time
	WeekEnd   time.Time

	RemainingFrequencyPerWeek int
	RemainingDurationMinutes  int

	// Daily preferred visit window, in minutes from midnight
	PreferredStartMinute int
	PreferredEndMinute   int

	// VisitPattern is an optional RRULE (e.g. FREQ=WEEKLY;BYDAY=MO,WE,FR)
	// restricting which days of the week the visits should fall on
	VisitPattern string
}

// RequirementKey identifies a requirement within a week
type RequirementKey struct {
	PatientID     int64
	ServiceTypeID int64
	WeekStart     time.Time
}

// Key returns the idempotency key used by the suggestion ledger
func (r *CareRequirement) Key() RequirementKey {
	return RequirementKey{
		PatientID:     r.PatientID,
		ServiceTypeID: r.ServiceTypeID,
		WeekStart:     r.WeekStart,
	}
}

// VisitDuration is the length of one visit: the remaining minutes spread
// over the remaining visits
func (r *CareRequirement) VisitDuration() time.Duration {
	visits := max(r.RemainingFrequencyPerWeek, 1)
	return time.Duration(r.RemainingDurationMinutes/visits) * time.Minute
}

// PreferredWindowMinutes returns the daily window the visit should fall in.
// An empty or inverted window collapses to one visit length from the start.
func (r *CareRequirement) PreferredWindowMinutes() (start, end int) {
	start = r.PreferredStartMinute
	end = r.PreferredEndMinute
	if end <= start {
		end = start + int(r.VisitDuration()/time.Minute)
	}
	return start, end
}

// PreferredDays returns the midnights of the days inside the week on which a
// visit may be placed, in date order
func (r *CareRequirement) PreferredDays() ([]time.Time, error) {
	if r.VisitPattern == "" {
		var days []time.Time
		for day := StartOfDay(r.WeekStart); day.Before(r.WeekEnd); day = day.AddDate(0, 0, 1) {
			days = append(days, day)
		}
		return days, nil
	}

	opt, err := rrule.StrToROption(r.VisitPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid visit pattern %q: %w", r.VisitPattern, err)
	}
	opt.Dtstart = StartOfDay(r.WeekStart)

	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("invalid visit pattern %q: %w", r.VisitPattern, err)
	}

	seen := make(map[time.Time]bool)
	var days []time.Time
	for _, occurrence := range rule.Between(opt.Dtstart, r.WeekEnd, true) {
		day := StartOfDay(occurrence.In(r.WeekStart.Location()))
		if !day.Before(r.WeekEnd) || seen[day] {
			continue
		}
		seen[day] = true
		days = append(days, day)
	}
	return days, nil
}

// SlotOn returns the visit slot on the given day: the start of the preferred
// window plus one visit length
func (r *CareRequirement) SlotOn(day time.Time) (start, end time.Time) {
	windowStart, _ := r.PreferredWindowMinutes()
	start = AtMinute(day, windowStart)
	return start, start.Add(r.VisitDuration())
}

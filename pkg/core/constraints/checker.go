// Package constraints validates a single proposed visit against the hard
// scheduling rules (which reject it) and the soft rules (which only warn).
package constraints

import (
	"time"

	"github.com/carebridge/care-matching/pkg/core/model"
)

// Error kinds, reported in rule order
const (
	KindInvalidWindow       = "invalid_time_window"
	KindTimeConflict        = "time_conflict"
	KindStaffOnLeave        = "staff_on_leave"
	KindNotQualified        = "not_qualified"
	KindSchedulingLocked    = "scheduling_locked"
	KindWeeklyHoursExceeded = "max_weekly_hours_exceeded"
)

// Warning kinds
const (
	KindWeeklyHoursOverflow = "weekly_hours_overflow"
	KindTravelDistance      = "travel_distance"
	KindSkillBelowCompetent = "skill_below_competent"
	KindShortNotice         = "short_notice"
	KindPendingTimeOff      = "pending_time_off"
)

// Proposal is a candidate visit: who, for whom, what and when
type Proposal struct {
	StaffID       int64
	PatientID     int64
	ServiceTypeID int64
	Start         time.Time
	End           time.Time
}

// Facts is the current state the rules read. Assignments must contain every
// assignment of the staff member that could overlap the proposal or fall in
// the same week.
type Facts struct {
	Staff       *model.Staff
	Patient     *model.Patient
	ServiceType *model.ServiceType
	Assignments []model.Assignment
	Now         time.Time
}

// Result is the outcome of a validation. It is data, not an error: an
// invalid proposal is an expected, common result.
type Result struct {
	IsValid  bool
	Errors   []model.Violation
	Warnings []model.Violation
}

// Config holds the soft-rule thresholds
type Config struct {
	// TravelThresholdKm of zero disables the travel warning
	TravelThresholdKm float64

	// MinimumNotice is the lead time below which a visit is short notice
	MinimumNotice time.Duration
}

// DefaultConfig returns the documented defaults: 25 km and 24 hours
func DefaultConfig() Config {
	return Config{
		TravelThresholdKm: 25,
		MinimumNotice:     24 * time.Hour,
	}
}

// Rule is one scheduling rule
type Rule interface {
	// Name returns a human-readable identifier for this rule
	Name() string

	// Evaluate returns the rule's hard failures and soft warnings for the proposal
	Evaluate(cfg Config, facts *Facts, p Proposal) (errs []model.Violation, warnings []model.Violation)
}

// Checker runs the rules in a fixed order: conflicts, qualification, lock,
// hours, then the soft rules. Output is stable for identical input.
type Checker struct {
	cfg   Config
	rules []Rule
}

// NewChecker creates a checker with the standard rule set
func NewChecker(cfg Config) *Checker {
	return &Checker{
		cfg: cfg,
		rules: []Rule{
			&TimeConflictRule{},
			&QualificationRule{},
			&SchedulingLockRule{},
			&WeeklyHoursRule{},
			&TravelDistanceRule{},
			&ProficiencyRule{},
			&MinimumNoticeRule{},
			&PendingTimeOffRule{},
		},
	}
}

// Config returns the thresholds the checker was built with
func (c *Checker) Config() Config {
	return c.cfg
}

// Validate checks a proposal against every rule
func (c *Checker) Validate(facts *Facts, p Proposal) Result {
	result := Result{
		Errors:   []model.Violation{},
		Warnings: []model.Violation{},
	}

	if !p.End.After(p.Start) {
		result.Errors = append(result.Errors, model.Violation{
			Kind:    KindInvalidWindow,
			Message: "end must be after start",
		})
		return result
	}

	for _, rule := range c.rules {
		errs, warnings := rule.Evaluate(c.cfg, facts, p)
		result.Errors = append(result.Errors, errs...)
		result.Warnings = append(result.Warnings, warnings...)
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

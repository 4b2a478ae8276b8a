package suggest

import (
	"cmp"
	"slices"
	"time"

	"github.com/carebridge/care-matching/pkg/core/constraints"
	"github.com/carebridge/care-matching/pkg/core/matching"
	"github.com/carebridge/care-matching/pkg/core/model"
	"github.com/carebridge/care-matching/pkg/core/scoring"
)

// staffCandidate adapts a roster member to the ranking pipeline. Eligibility
// picks the visit slot, so it must run before scoring.
type staffCandidate struct {
	staff   *model.Staff
	snap    *model.Snapshot
	checker *constraints.Checker
	scorer  *scoring.Scorer

	// fixed restricts eligibility to the slot in start and end
	fixed bool

	eligible bool
	start    time.Time
	end      time.Time
	warnings []model.Violation
	errors   []model.Violation
}

func (c *staffCandidate) ID() int64 {
	return c.staff.ID
}

// IsEligible looks for a preferred day whose slot passes every hard rule.
// Days the staff member declared availability for are tried first.
func (c *staffCandidate) IsEligible(req *model.CareRequirement) bool {
	days, err := req.PreferredDays()
	if err != nil {
		return false
	}

	patient, _ := c.snap.Patient(req.PatientID)
	serviceType, _ := c.snap.ServiceType(req.ServiceTypeID)
	facts := &constraints.Facts{
		Staff:       c.staff,
		Patient:     patient,
		ServiceType: serviceType,
		Assignments: c.snap.Assignments(c.staff.ID),
		Now:         c.snap.Now(),
	}

	if c.fixed {
		return c.try(facts, req, c.start, c.end)
	}

	for _, day := range c.orderDays(req, days) {
		start, end := req.SlotOn(day)
		if c.try(facts, req, start, end) {
			return true
		}
	}
	return false
}

// try validates one slot, keeping the slot and its warnings when it passes
// and the hard failures when it does not
func (c *staffCandidate) try(facts *constraints.Facts, req *model.CareRequirement, start, end time.Time) bool {
	result := c.checker.Validate(facts, constraints.Proposal{
		StaffID:       c.staff.ID,
		PatientID:     req.PatientID,
		ServiceTypeID: req.ServiceTypeID,
		Start:         start,
		End:           end,
	})
	if !result.IsValid {
		c.errors = result.Errors
		return false
	}
	c.eligible = true
	c.start, c.end, c.warnings, c.errors = start, end, result.Warnings, nil
	return true
}

func (c *staffCandidate) ScoreFactors(req *model.CareRequirement) []matching.Factor {
	return c.scorer.Factors(req, c.staff, c.snap)
}

// orderDays puts days where the slot falls inside a declared availability
// block ahead of the rest, keeping date order within each group
func (c *staffCandidate) orderDays(req *model.CareRequirement, days []time.Time) []time.Time {
	ordered := slices.Clone(days)
	slices.SortStableFunc(ordered, func(a, b time.Time) int {
		return cmp.Compare(c.slotUnavailable(req, a), c.slotUnavailable(req, b))
	})
	return ordered
}

func (c *staffCandidate) slotUnavailable(req *model.CareRequirement, day time.Time) int {
	start, end := req.SlotOn(day)
	startMinute := model.MinuteOfDay(start)
	endMinute := startMinute + int(end.Sub(start)/time.Minute)
	for _, block := range c.staff.AvailabilityOn(day.Weekday()) {
		if block.StartMinute <= startMinute && endMinute <= block.EndMinute {
			return 0
		}
	}
	return 1
}

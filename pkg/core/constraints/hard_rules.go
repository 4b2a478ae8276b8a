package constraints

import (
	"fmt"

	"github.com/carebridge/care-matching/pkg/core/model"
)

const timeLayout = "2006-01-02 15:04"

// TimeConflictRule rejects proposals overlapping an existing active
// assignment or an approved time-off window. Intervals are half-open, so a
// visit may start exactly when the previous one ends.
type TimeConflictRule struct{}

func (r *TimeConflictRule) Name() string {
	return "TimeConflict"
}

func (r *TimeConflictRule) Evaluate(cfg Config, facts *Facts, p Proposal) ([]model.Violation, []model.Violation) {
	var errs []model.Violation

	for _, a := range facts.Assignments {
		if !a.IsActive() || a.StaffID != p.StaffID {
			continue
		}
		if model.Overlaps(p.Start, p.End, a.Start, a.End) {
			errs = append(errs, model.Violation{
				Kind: KindTimeConflict,
				Message: fmt.Sprintf("overlaps assignment %s (%s to %s)",
					a.ID, a.Start.Format(timeLayout), a.End.Format(timeLayout)),
			})
		}
	}

	for _, off := range facts.Staff.TimeOff {
		if off.Status != model.TimeOffApproved {
			continue
		}
		if model.Overlaps(p.Start, p.End, off.Start, off.End) {
			errs = append(errs, model.Violation{
				Kind: KindStaffOnLeave,
				Message: fmt.Sprintf("approved time off %s to %s",
					off.Start.Format(timeLayout), off.End.Format(timeLayout)),
			})
		}
	}

	return errs, nil
}

// QualificationRule rejects staff whose role is not mapped to the service type
type QualificationRule struct{}

func (r *QualificationRule) Name() string {
	return "Qualification"
}

func (r *QualificationRule) Evaluate(cfg Config, facts *Facts, p Proposal) ([]model.Violation, []model.Violation) {
	if facts.ServiceType != nil && facts.ServiceType.QualifiesRole(facts.Staff.RoleID) {
		return nil, nil
	}

	serviceName := fmt.Sprintf("service type %d", p.ServiceTypeID)
	if facts.ServiceType != nil {
		serviceName = facts.ServiceType.Name
	}

	return []model.Violation{{
		Kind:    KindNotQualified,
		Message: fmt.Sprintf("role %d is not qualified for %s", facts.Staff.RoleID, serviceName),
	}}, nil
}

// SchedulingLockRule rejects staff on an administrative hold
type SchedulingLockRule struct{}

func (r *SchedulingLockRule) Name() string {
	return "SchedulingLock"
}

func (r *SchedulingLockRule) Evaluate(cfg Config, facts *Facts, p Proposal) ([]model.Violation, []model.Violation) {
	if !facts.Staff.SchedulingLocked {
		return nil, nil
	}
	return []model.Violation{{
		Kind:    KindSchedulingLocked,
		Message: fmt.Sprintf("staff %d is locked from scheduling", facts.Staff.ID),
	}}, nil
}

// WeeklyHoursRule enforces the weekly-hours ceiling. Casual and
// overflow-eligible staff get a warning instead of an error.
type WeeklyHoursRule struct{}

func (r *WeeklyHoursRule) Name() string {
	return "WeeklyHours"
}

func (r *WeeklyHoursRule) Evaluate(cfg Config, facts *Facts, p Proposal) ([]model.Violation, []model.Violation) {
	ceiling := facts.Staff.MaxWeeklyHours
	if ceiling <= 0 {
		return nil, nil
	}

	var own []model.Assignment
	for _, a := range facts.Assignments {
		if a.StaffID == p.StaffID {
			own = append(own, a)
		}
	}
	existing := model.WeeklyHours(own, model.WeekStartOf(p.Start))
	projected := existing + p.End.Sub(p.Start).Hours()
	if projected <= ceiling {
		return nil, nil
	}

	v := model.Violation{
		Message: fmt.Sprintf("projected %.2fh exceeds weekly maximum of %.2fh", projected, ceiling),
	}
	if facts.Staff.CanExceedWeeklyHours() {
		v.Kind = KindWeeklyHoursOverflow
		return nil, []model.Violation{v}
	}
	v.Kind = KindWeeklyHoursExceeded
	return []model.Violation{v}, nil
}

package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/carebridge/care-matching/pkg/core/constraints"
	"github.com/carebridge/care-matching/pkg/core/model"
	"github.com/carebridge/care-matching/pkg/core/suggest"
)

// ValidateAssignment checks a proposed visit against the current state
// without writing anything. An invalid proposal is a result, not an error.
func (e *Engine) ValidateAssignment(ctx context.Context, orgID int64, p constraints.Proposal) (*constraints.Result, error) {
	staff, err := e.store.GetStaffMember(ctx, p.StaffID)
	if err != nil {
		return nil, err
	}
	if staff.OrganizationID != orgID {
		return nil, model.NewNotFound("staff", p.StaffID)
	}

	facts, err := e.loadFacts(ctx, staff, p.PatientID, p.ServiceTypeID)
	if err != nil {
		return nil, err
	}
	if p.End.After(p.Start) {
		from, to := factWindow(p.Start, p.End)
		facts.Assignments, err = e.store.GetStaffAssignments(ctx, staff.ID, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch assignments: %w", err)
		}
	}

	result := e.checker.Validate(facts, p)
	e.logger.Debug("Assignment validated",
		zap.Int64("staff_id", p.StaffID),
		zap.Bool("valid", result.IsValid),
		zap.Int("errors", len(result.Errors)),
		zap.Int("warnings", len(result.Warnings)))
	return &result, nil
}

// EligibleStaff splits the roster for a fixed slot
type EligibleStaff struct {
	Eligible   []suggest.Candidate
	Ineligible []suggest.Rejection
}

// GetEligibleStaff checks every staff member of the organization against a
// fixed slot and ranks those that pass
func (e *Engine) GetEligibleStaff(ctx context.Context, orgID, patientID, serviceTypeID int64, start, end time.Time) (*EligibleStaff, error) {
	if !end.After(start) {
		return nil, &model.ValidationError{Errors: []model.Violation{{
			Kind:    constraints.KindInvalidWindow,
			Message: "end must be after start",
		}}}
	}

	snap, err := e.loadSnapshot(ctx, orgID, model.WeekStartOf(start), model.WeekStartOf(start).Add(model.Week))
	if err != nil {
		return nil, err
	}
	if _, ok := snap.Patient(patientID); !ok {
		return nil, model.NewNotFound("patient", patientID)
	}
	if _, ok := snap.ServiceType(serviceTypeID); !ok {
		return nil, model.NewNotFound("service type", serviceTypeID)
	}

	minutes := int(end.Sub(start) / time.Minute)
	day := model.StartOfDay(start)
	req := &model.CareRequirement{
		OrganizationID:            orgID,
		PatientID:                 patientID,
		ServiceTypeID:             serviceTypeID,
		WeekStart:                 day,
		WeekEnd:                   day.AddDate(0, 0, 1),
		RemainingFrequencyPerWeek: 1,
		RemainingDurationMinutes:  minutes,
		PreferredStartMinute:      model.MinuteOfDay(start),
		PreferredEndMinute:        model.MinuteOfDay(start) + minutes,
	}

	eligible, rejected := e.generator.RankForSlot(req, start, end, snap)
	return &EligibleStaff{Eligible: eligible, Ineligible: rejected}, nil
}

// loadFacts reads the reference data a validation needs. Assignments are left to the caller.
func (e *Engine) loadFacts(ctx context.Context, staff *model.Staff, patientID, serviceTypeID int64) (*constraints.Facts, error) {
	patient, err := e.store.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	serviceType, err := e.store.GetServiceType(ctx, serviceTypeID)
	if err != nil {
		return nil, err
	}
	return &constraints.Facts{
		Staff:       staff,
		Patient:     patient,
		ServiceType: serviceType,
		Now:         e.now(),
	}, nil
}

// factWindow covers the proposal's week and any visit that could overlap it
func factWindow(start, end time.Time) (from, to time.Time) {
	weekStart := model.WeekStartOf(start)
	from = weekStart.AddDate(0, 0, -1)
	to = weekStart.Add(model.Week)
	if end.After(to) {
		to = end
	}
	return from, to
}

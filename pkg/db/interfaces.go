package db

import (
	"context"
	"time"

	"github.com/carebridge/care-matching/pkg/core/model"
)

// RequirementSource derives unscheduled care requirements from active care plans
type RequirementSource interface {
	// GetUnscheduledRequirements returns the requirements with visits still
	// to place in [weekStart, weekEnd). A nil patientID means every patient.
	GetUnscheduledRequirements(ctx context.Context, orgID int64, weekStart, weekEnd time.Time, patientID *int64) ([]model.CareRequirement, error)
}

// StaffDirectory reads the roster
type StaffDirectory interface {
	GetStaff(ctx context.Context, orgID int64) ([]model.Staff, error)
	GetStaffMember(ctx context.Context, staffID int64) (*model.Staff, error)
	GetOrganization(ctx context.Context, orgID int64) (*model.Organization, error)
}

// AssignmentReader reads scheduled visits
type AssignmentReader interface {
	// GetAssignments returns the organization's active assignments starting in [from, to)
	GetAssignments(ctx context.Context, orgID int64, from, to time.Time) ([]model.Assignment, error)

	// GetStaffAssignments returns the staff member's active assignments
	// overlapping [from, to)
	GetStaffAssignments(ctx context.Context, staffID int64, from, to time.Time) ([]model.Assignment, error)

	// GetContinuity returns every (staff, patient, service) pair with an active assignment
	GetContinuity(ctx context.Context, orgID int64) ([]model.ContinuityKey, error)
}

// ReferenceReader reads patients and service types
type ReferenceReader interface {
	GetServiceTypes(ctx context.Context) ([]model.ServiceType, error)
	GetServiceType(ctx context.Context, id int64) (*model.ServiceType, error)
	GetPatients(ctx context.Context, orgID int64) ([]model.Patient, error)
	GetPatient(ctx context.Context, id int64) (*model.Patient, error)
}

// SuggestionLedger is the append-only suggestion log
type SuggestionLedger interface {
	// InsertPendingSuggestion stores a pending suggestion unless one is
	// already pending for the same requirement key, in which case the
	// existing row is returned and created is false
	InsertPendingSuggestion(ctx context.Context, s *model.Suggestion) (stored *model.Suggestion, created bool, err error)

	GetSuggestion(ctx context.Context, id string) (*model.Suggestion, error)

	// UpdateSuggestionOutcome writes a decision. It fails with a
	// ConflictError if the stored row is no longer pending.
	UpdateSuggestionOutcome(ctx context.Context, s *model.Suggestion) error

	// ExpirePendingSuggestions moves pending rows whose week ended at or
	// before now to expired and returns them
	ExpirePendingSuggestions(ctx context.Context, now time.Time) ([]model.Suggestion, error)

	// CountOutcomes counts the organization's suggestions created in [from, to) by outcome
	CountOutcomes(ctx context.Context, orgID int64, from, to time.Time) (map[model.Outcome]int, error)
}

// CapabilityReader reads partner capability profiles
type CapabilityReader interface {
	GetCapabilityProfiles(ctx context.Context, serviceTypeID int64) ([]model.CapabilityProfile, error)
}

// AcceptTx is the unit of work of a single accept. Everything done through
// it commits or rolls back together.
type AcceptTx interface {
	// LockSuggestion reads the suggestion and holds its row until commit
	LockSuggestion(ctx context.Context, id string) (*model.Suggestion, error)

	// LockStaff reads the staff member and holds their row until commit,
	// serializing every accept that targets them
	LockStaff(ctx context.Context, staffID int64) (*model.Staff, error)

	// GetStaffAssignments returns the staff member's active assignments
	// overlapping [from, to)
	GetStaffAssignments(ctx context.Context, staffID int64, from, to time.Time) ([]model.Assignment, error)

	InsertAssignment(ctx context.Context, a *model.Assignment) error
	UpdateSuggestionOutcome(ctx context.Context, s *model.Suggestion) error
}

// Transactor runs accept units of work
type Transactor interface {
	// WithinAcceptTx runs fn in a transaction, committing if it returns nil
	WithinAcceptTx(ctx context.Context, fn func(tx AcceptTx) error) error
}

// Database defines the interface for all database operations.
// postgres.DB implements it.
type Database interface {
	RequirementSource
	StaffDirectory
	AssignmentReader
	ReferenceReader
	SuggestionLedger
	CapabilityReader
	Transactor
}

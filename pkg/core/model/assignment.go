package model

import "time"

// AssignmentStatus is the lifecycle state of a scheduled visit
type AssignmentStatus string

const (
	AssignmentPlanned   AssignmentStatus = "planned"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentCancelled AssignmentStatus = "cancelled"
)

// SSPOAcceptanceStatus tracks a partner organization's response to an assignment.
// It is independent of the suggestion outcome.
type SSPOAcceptanceStatus string

const (
	SSPONotApplicable SSPOAcceptanceStatus = ""
	SSPOPending       SSPOAcceptanceStatus = "pending"
	SSPOAccepted      SSPOAcceptanceStatus = "accepted"
	SSPODeclined      SSPOAcceptanceStatus = "declined"
)

// Assignment is a scheduled visit of a staff member to a patient
type Assignment struct {
	ID                   string
	OrganizationID       int64
	StaffID              int64
	PatientID            int64
	ServiceTypeID        int64
	Start                time.Time
	End                  time.Time
	Status               AssignmentStatus
	SSPOAcceptanceStatus SSPOAcceptanceStatus
	SuggestionID         string
	CreatedAt            time.Time
}

// IsActive returns true for assignments that still occupy the staff member's time
func (a *Assignment) IsActive() bool {
	return a.Status != AssignmentCancelled
}

// Hours returns the assignment length in hours
func (a *Assignment) Hours() float64 {
	return a.End.Sub(a.Start).Hours()
}

// ContinuityKey records that a staff member has an active assignment with a
// patient for a service type
type ContinuityKey struct {
	StaffID       int64
	PatientID     int64
	ServiceTypeID int64
}

// PartnerNotice is sent to a partner organization when one of its staff is assigned
type PartnerNotice struct {
	AssignmentID     string
	OrganizationID   int64
	OrganizationName string
	ContactEmail     string
	StaffName        string
	PatientID        int64
	ServiceTypeName  string
	Start            time.Time
	End              time.Time
}

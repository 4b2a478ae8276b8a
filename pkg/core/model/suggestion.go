package model

import "time"

// MatchTier is the discrete bucket derived from a confidence score
type MatchTier string

const (
	TierStrong   MatchTier = "strong"
	TierModerate MatchTier = "moderate"
	TierWeak     MatchTier = "weak"
	TierNone     MatchTier = "none"
)

// Outcome is the state of a suggestion in the ledger
type Outcome string

const (
	OutcomePending  Outcome = "pending"
	OutcomeAccepted Outcome = "accepted"
	OutcomeModified Outcome = "modified"
	OutcomeRejected Outcome = "rejected"
	OutcomeExpired  Outcome = "expired"
)

// Suggestion sources
const (
	SourceAutoAssign  = "auto_assign"
	SourceManualGrid  = "manual_grid"
	SourceMarketplace = "marketplace"
)

// SystemUserID is recorded as the decision maker for system-driven transitions
const SystemUserID int64 = 0

// Reason is one factor's part in a confidence score
type Reason struct {
	Factor       string  `json:"factor"`
	Weight       float64 `json:"weight"`
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
}

// CandidateScore is the transient scoring result for one staff member
type CandidateScore struct {
	StaffID   int64
	Score     float64
	MatchTier MatchTier
	Reasons   []Reason
}

// Modification records one field a human changed when accepting a suggestion
type Modification struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// Suggestion is a ledger row: a proposed pairing and its eventual outcome
type Suggestion struct {
	ID             string
	OrganizationID int64
	PatientID      int64
	ServiceTypeID  int64
	WeekStart      time.Time
	WeekEnd        time.Time

	SuggestedStaffID *int64
	SuggestedStart   *time.Time
	SuggestedEnd     *time.Time
	MatchTier        MatchTier
	ConfidenceScore  *float64
	ScoringFactors   []Reason
	Warnings         []Violation

	Outcome               Outcome
	OutcomeAt             *time.Time
	OutcomeUserID         *int64
	FinalStaffID          *int64
	FinalStart            *time.Time
	FinalEnd              *time.Time
	Modifications         []Modification
	RejectionReason       string
	TimeToDecisionSeconds *int64
	CreatedAssignmentID   *string

	Source    string
	CreatedAt time.Time
}

// Key returns the idempotency key of the requirement this suggestion answers
func (s *Suggestion) Key() RequirementKey {
	return RequirementKey{
		PatientID:     s.PatientID,
		ServiceTypeID: s.ServiceTypeID,
		WeekStart:     s.WeekStart,
	}
}

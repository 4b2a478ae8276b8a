// Package ledger holds the suggestion outcome state machine and the
// acceptance analytics computed over it.
package ledger

import (
	"fmt"
	"strconv"
	"time"

	"github.com/carebridge/care-matching/pkg/core/model"
)

// CanTransition reports whether a suggestion may move between outcomes.
// Only pending suggestions move; every other outcome is terminal.
func CanTransition(from, to model.Outcome) bool {
	if from != model.OutcomePending {
		return false
	}
	switch to {
	case model.OutcomeAccepted, model.OutcomeModified, model.OutcomeRejected, model.OutcomeExpired:
		return true
	default:
		return false
	}
}

// Decision is the human (or sweep) input that closes a suggestion
type Decision struct {
	Outcome         model.Outcome
	UserID          int64
	At              time.Time
	FinalStaffID    *int64
	FinalStart      *time.Time
	FinalEnd        *time.Time
	Modifications   []model.Modification
	RejectionReason string
	AssignmentID    *string
}

// Transition applies a decision to a pending suggestion, filling in the
// outcome timestamp, actor and decision latency
func Transition(s *model.Suggestion, d Decision) error {
	if !CanTransition(s.Outcome, d.Outcome) {
		return &model.ConflictError{Reason: fmt.Sprintf("suggestion %s cannot move from %s to %s", s.ID, s.Outcome, d.Outcome)}
	}
	if d.Outcome == model.OutcomeModified && len(d.Modifications) == 0 {
		return fmt.Errorf("modified outcome requires at least one modification")
	}

	at := d.At
	userID := d.UserID
	latency := int64(max(at.Sub(s.CreatedAt), 0) / time.Second)

	s.Outcome = d.Outcome
	s.OutcomeAt = &at
	s.OutcomeUserID = &userID
	s.TimeToDecisionSeconds = &latency
	s.FinalStaffID = d.FinalStaffID
	s.FinalStart = d.FinalStart
	s.FinalEnd = d.FinalEnd
	s.Modifications = d.Modifications
	s.RejectionReason = d.RejectionReason
	s.CreatedAssignmentID = d.AssignmentID
	return nil
}

// Resolved is a final placement compared against what was suggested
type Resolved struct {
	StaffID       int64
	Start         time.Time
	End           time.Time
	Outcome       model.Outcome
	Modifications []model.Modification
}

// Resolve merges an accept decision into the suggestion. Fields left nil
// keep the suggested value. The outcome is accepted when nothing differs,
// modified otherwise, with one modification per changed field.
func Resolve(s *model.Suggestion, staffID *int64, start, end *time.Time) (Resolved, error) {
	r := Resolved{Outcome: model.OutcomeAccepted, Modifications: []model.Modification{}}

	switch {
	case staffID != nil:
		r.StaffID = *staffID
	case s.SuggestedStaffID != nil:
		r.StaffID = *s.SuggestedStaffID
	default:
		return Resolved{}, fmt.Errorf("suggestion %s has no suggested staff, a staff member must be chosen", s.ID)
	}

	switch {
	case start != nil:
		r.Start = *start
	case s.SuggestedStart != nil:
		r.Start = *s.SuggestedStart
	default:
		return Resolved{}, fmt.Errorf("suggestion %s has no suggested start, a start must be chosen", s.ID)
	}

	switch {
	case end != nil:
		r.End = *end
	case s.SuggestedEnd != nil:
		r.End = *s.SuggestedEnd
	default:
		return Resolved{}, fmt.Errorf("suggestion %s has no suggested end, an end must be chosen", s.ID)
	}

	if s.SuggestedStaffID == nil || *s.SuggestedStaffID != r.StaffID {
		r.Modifications = append(r.Modifications, model.Modification{
			Field: "staff_id",
			From:  formatID(s.SuggestedStaffID),
			To:    strconv.FormatInt(r.StaffID, 10),
		})
	}
	if s.SuggestedStart == nil || !s.SuggestedStart.Equal(r.Start) {
		r.Modifications = append(r.Modifications, model.Modification{
			Field: "start",
			From:  formatTime(s.SuggestedStart),
			To:    r.Start.Format(time.RFC3339),
		})
	}
	if s.SuggestedEnd == nil || !s.SuggestedEnd.Equal(r.End) {
		r.Modifications = append(r.Modifications, model.Modification{
			Field: "end",
			From:  formatTime(s.SuggestedEnd),
			To:    r.End.Format(time.RFC3339),
		})
	}

	if len(r.Modifications) > 0 {
		r.Outcome = model.OutcomeModified
	}
	return r, nil
}

func formatID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

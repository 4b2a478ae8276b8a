package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carebridge/care-matching/pkg/core/constraints"
	"github.com/carebridge/care-matching/pkg/core/ledger"
	"github.com/carebridge/care-matching/pkg/core/model"
	"github.com/carebridge/care-matching/pkg/db"
)

// Violation kinds reported for caller input, alongside the constraint kinds
const (
	KindInvalidInput    = "invalid_input"
	KindInvalidDecision = "invalid_decision"
)

var validate = validator.New()

// Decision overrides parts of a suggestion on accept. Nil fields keep the
// suggested value.
type Decision struct {
	StaffID *int64     `yaml:"staff_id" validate:"omitempty,gt=0"`
	Start   *time.Time `yaml:"start"`
	End     *time.Time `yaml:"end"`
}

// BatchItem is one decision of an acceptBatch call
type BatchItem struct {
	SuggestionID string   `yaml:"suggestion_id" validate:"required,uuid"`
	Decision     Decision `yaml:",inline"`
	UserID       int64    `yaml:"user_id" validate:"gte=0"`
}

// BatchSuccess is an accepted batch item
type BatchSuccess struct {
	SuggestionID string
	AssignmentID string
}

// BatchFailure is a batch item that was not applied, with the reason
type BatchFailure struct {
	SuggestionID string
	Err          error
}

// BatchResult splits a batch by outcome. Items are independent: a failure
// never undoes an earlier success.
type BatchResult struct {
	BatchID    string
	Successful []BatchSuccess
	Failed     []BatchFailure
}

// accepted carries what the post-commit side effects need
type accepted struct {
	suggestion  *model.Suggestion
	assignment  *model.Assignment
	staff       *model.Staff
	serviceType *model.ServiceType
}

// AcceptSuggestion turns a pending suggestion into an assignment. The
// constraint check runs against the current state with the staff member's
// row locked, and the assignment and ledger update commit together.
// Accepting an already accepted suggestion returns its assignment.
func (e *Engine) AcceptSuggestion(ctx context.Context, suggestionID string, d Decision, userID int64) (string, error) {
	if err := validateInput(BatchItem{SuggestionID: suggestionID, Decision: d, UserID: userID}); err != nil {
		return "", err
	}

	var (
		done     *accepted
		existing string
	)
	err := e.store.WithinAcceptTx(ctx, func(tx db.AcceptTx) error {
		s, err := tx.LockSuggestion(ctx, suggestionID)
		if err != nil {
			return err
		}

		switch s.Outcome {
		case model.OutcomePending:
		case model.OutcomeAccepted, model.OutcomeModified:
			if s.CreatedAssignmentID != nil {
				existing = *s.CreatedAssignmentID
			}
			return nil
		default:
			return &model.ConflictError{Reason: fmt.Sprintf("suggestion %s is already %s", s.ID, s.Outcome)}
		}

		done, err = e.acceptPending(ctx, tx, s, d, userID)
		return err
	})
	if err != nil {
		return "", err
	}

	if done == nil {
		e.logger.Info("Suggestion already accepted",
			zap.String("suggestion_id", suggestionID),
			zap.String("assignment_id", existing))
		return existing, nil
	}

	s := done.suggestion
	e.logger.Info("Suggestion accepted",
		zap.String("suggestion_id", s.ID),
		zap.String("outcome", string(s.Outcome)),
		zap.Int64("user_id", userID),
		zap.Int64p("suggested_staff_id", s.SuggestedStaffID),
		zap.Int64("final_staff_id", done.assignment.StaffID),
		zap.Int("modifications", len(s.Modifications)),
		zap.Int64p("time_to_decision_seconds", s.TimeToDecisionSeconds),
		zap.String("assignment_id", done.assignment.ID))

	e.publish(ctx, s)
	if done.staff.IsPartner() {
		e.notifyPartner(ctx, done)
	}
	return done.assignment.ID, nil
}

// acceptPending runs inside the accept transaction
func (e *Engine) acceptPending(ctx context.Context, tx db.AcceptTx, s *model.Suggestion, d Decision, userID int64) (*accepted, error) {
	resolved, err := ledger.Resolve(s, d.StaffID, d.Start, d.End)
	if err != nil {
		return nil, &model.ValidationError{Errors: []model.Violation{{Kind: KindInvalidDecision, Message: err.Error()}}}
	}

	staff, err := tx.LockStaff(ctx, resolved.StaffID)
	if err != nil {
		return nil, err
	}
	if staff.OrganizationID != s.OrganizationID {
		return nil, model.NewNotFound("staff", resolved.StaffID)
	}

	facts, err := e.loadFacts(ctx, staff, s.PatientID, s.ServiceTypeID)
	if err != nil {
		return nil, err
	}
	if resolved.End.After(resolved.Start) {
		from, to := factWindow(resolved.Start, resolved.End)
		facts.Assignments, err = tx.GetStaffAssignments(ctx, staff.ID, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch staff assignments: %w", err)
		}
	}

	proposal := constraints.Proposal{
		StaffID:       staff.ID,
		PatientID:     s.PatientID,
		ServiceTypeID: s.ServiceTypeID,
		Start:         resolved.Start,
		End:           resolved.End,
	}
	result := e.checker.Validate(facts, proposal)
	if !result.IsValid {
		e.logger.Info("Accept rejected by constraint check",
			zap.String("suggestion_id", s.ID),
			zap.Int64("staff_id", staff.ID),
			zap.Stringers("errors", result.Errors))
		return nil, &model.ValidationError{Errors: result.Errors, Warnings: result.Warnings}
	}

	now := e.now()
	assignment := &model.Assignment{
		ID:             uuid.New().String(),
		OrganizationID: s.OrganizationID,
		StaffID:        staff.ID,
		PatientID:      s.PatientID,
		ServiceTypeID:  s.ServiceTypeID,
		Start:          resolved.Start,
		End:            resolved.End,
		Status:         model.AssignmentPlanned,
		SuggestionID:   s.ID,
		CreatedAt:      now,
	}
	if staff.IsPartner() {
		assignment.SSPOAcceptanceStatus = model.SSPOPending
	}
	if err := tx.InsertAssignment(ctx, assignment); err != nil {
		return nil, fmt.Errorf("failed to insert assignment: %w", err)
	}

	finalStaff, finalStart, finalEnd := resolved.StaffID, resolved.Start, resolved.End
	err = ledger.Transition(s, ledger.Decision{
		Outcome:       resolved.Outcome,
		UserID:        userID,
		At:            now,
		FinalStaffID:  &finalStaff,
		FinalStart:    &finalStart,
		FinalEnd:      &finalEnd,
		Modifications: resolved.Modifications,
		AssignmentID:  &assignment.ID,
	})
	if err != nil {
		return nil, err
	}
	if err := tx.UpdateSuggestionOutcome(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to update suggestion: %w", err)
	}

	return &accepted{
		suggestion:  s,
		assignment:  assignment,
		staff:       staff,
		serviceType: facts.ServiceType,
	}, nil
}

// AcceptBatch accepts each item in order, one transaction per item
func (e *Engine) AcceptBatch(ctx context.Context, items []BatchItem) *BatchResult {
	result := &BatchResult{
		BatchID:    uuid.New().String(),
		Successful: []BatchSuccess{},
		Failed:     []BatchFailure{},
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			result.Failed = append(result.Failed, BatchFailure{SuggestionID: item.SuggestionID, Err: err})
			continue
		}

		assignmentID, err := e.AcceptSuggestion(ctx, item.SuggestionID, item.Decision, item.UserID)
		if err != nil {
			result.Failed = append(result.Failed, BatchFailure{SuggestionID: item.SuggestionID, Err: err})
			continue
		}
		result.Successful = append(result.Successful, BatchSuccess{SuggestionID: item.SuggestionID, AssignmentID: assignmentID})
	}

	e.logger.Info("Batch accept finished",
		zap.String("batch_id", result.BatchID),
		zap.Int("successful", len(result.Successful)),
		zap.Int("failed", len(result.Failed)))
	return result
}

// notifyPartner tells the partner organization about the new assignment.
// The assignment is already committed, so failures are only logged.
func (e *Engine) notifyPartner(ctx context.Context, a *accepted) {
	if e.notifier == nil {
		return
	}
	log := e.logger.With(zap.String("assignment_id", a.assignment.ID))

	org, err := e.store.GetOrganization(ctx, *a.staff.PartnerOrganizationID)
	if err != nil {
		log.Warn("Failed to load partner organization", zap.Error(err))
		return
	}

	notice := model.PartnerNotice{
		AssignmentID:     a.assignment.ID,
		OrganizationID:   org.ID,
		OrganizationName: org.Name,
		ContactEmail:     org.ContactEmail,
		StaffName:        a.staff.Name,
		PatientID:        a.assignment.PatientID,
		ServiceTypeName:  a.serviceType.Name,
		Start:            a.assignment.Start,
		End:              a.assignment.End,
	}
	if err := e.notifier.NotifyPartnerAssignment(ctx, notice); err != nil {
		log.Warn("Failed to notify partner organization", zap.Int64("organization_id", org.ID), zap.Error(err))
		return
	}
	log.Info("Partner organization notified", zap.Int64("organization_id", org.ID))
}

// validateInput reports struct tag failures as a ValidationError
func validateInput(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate input: %w", err)
	}
	verr := &model.ValidationError{}
	for _, fe := range fieldErrs {
		verr.Errors = append(verr.Errors, model.Violation{
			Kind:    KindInvalidInput,
			Message: fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()),
		})
	}
	return verr
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/care-matching/pkg/core/constraints"
	"github.com/carebridge/care-matching/pkg/core/model"
)

func TestAcceptSuggestion_Verbatim(t *testing.T) {
	env := newTestEnv(t)
	s := env.generate(t).Suggestions[0]
	env.clock.now = env.clock.now.Add(90 * time.Second)

	assignmentID, err := env.engine.AcceptSuggestion(context.Background(), s.ID, Decision{}, 7)
	require.NoError(t, err)

	assignments := env.store.activeAssignments()
	require.Len(t, assignments, 1)
	a := assignments[0]
	assert.Equal(t, assignmentID, a.ID)
	assert.Equal(t, int64(1), a.StaffID)
	assert.Equal(t, int64(3), a.PatientID)
	assert.Equal(t, model.AssignmentPlanned, a.Status)
	assert.Equal(t, model.SSPONotApplicable, a.SSPOAcceptanceStatus)
	assert.Equal(t, s.ID, a.SuggestionID)

	stored := env.store.suggestionByPatient(t, 3)
	assert.Equal(t, model.OutcomeAccepted, stored.Outcome)
	assert.Equal(t, int64(7), *stored.OutcomeUserID)
	assert.Equal(t, int64(90), *stored.TimeToDecisionSeconds)
	assert.Equal(t, *stored.SuggestedStaffID, *stored.FinalStaffID)
	assert.Equal(t, assignmentID, *stored.CreatedAssignmentID)
	assert.Empty(t, stored.Modifications)

	require.Len(t, env.publisher.published, 1)
	assert.Equal(t, model.OutcomeAccepted, env.publisher.published[0].Outcome)
	assert.Empty(t, env.notifier.notices)
}

func TestAcceptSuggestion_ModifiedRecordsDiff(t *testing.T) {
	env := newTestEnv(t)
	s := env.generate(t).Suggestions[3]
	start := monday.Add(15 * time.Hour)
	end := start.Add(time.Hour)

	_, err := env.engine.AcceptSuggestion(context.Background(), s.ID, Decision{Start: &start, End: &end}, 7)
	require.NoError(t, err)

	stored := env.store.suggestionByPatient(t, 6)
	assert.Equal(t, model.OutcomeModified, stored.Outcome)
	assert.Equal(t, start, *stored.FinalStart)
	require.Len(t, stored.Modifications, 2)
	assert.Equal(t, "start", stored.Modifications[0].Field)
	assert.Equal(t, "end", stored.Modifications[1].Field)
	assert.Equal(t, start.Format(time.RFC3339), stored.Modifications[0].To)
}

func TestAcceptSuggestion_IsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	s := env.generate(t).Suggestions[0]

	first, err := env.engine.AcceptSuggestion(context.Background(), s.ID, Decision{}, 7)
	require.NoError(t, err)
	second, err := env.engine.AcceptSuggestion(context.Background(), s.ID, Decision{}, 7)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, env.store.activeAssignments(), 1)
	assert.Len(t, env.publisher.published, 1)
}

func TestAcceptSuggestion_RejectedIsConflict(t *testing.T) {
	env := newTestEnv(t)
	s := env.generate(t).Suggestions[0]

	_, err := env.engine.RejectSuggestion(context.Background(), s.ID, "family declined", 7)
	require.NoError(t, err)

	_, err = env.engine.AcceptSuggestion(context.Background(), s.ID, Decision{}, 7)

	var conflict *model.ConflictError
	assert.ErrorAs(t, err, &conflict)
	assert.Empty(t, env.store.activeAssignments())
}

func TestAcceptSuggestion_ConstraintFailureLeavesPending(t *testing.T) {
	env := newTestEnv(t)
	result := env.generate(t)

	_, err := env.engine.AcceptSuggestion(context.Background(), result.Suggestions[0].ID, Decision{}, 7)
	require.NoError(t, err)

	// patient 4 was suggested the same nurse for the same hour
	_, err = env.engine.AcceptSuggestion(context.Background(), result.Suggestions[1].ID, Decision{}, 7)

	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	require.NotEmpty(t, verr.Errors)
	assert.Equal(t, constraints.KindTimeConflict, verr.Errors[0].Kind)
	assert.Equal(t, model.OutcomePending, env.store.suggestionByPatient(t, 4).Outcome)
	assert.Len(t, env.store.activeAssignments(), 1)
}

func TestAcceptSuggestion_ReassignAfterConflict(t *testing.T) {
	env := newTestEnv(t)
	result := env.generate(t)

	_, err := env.engine.AcceptSuggestion(context.Background(), result.Suggestions[0].ID, Decision{}, 7)
	require.NoError(t, err)
	_, err = env.engine.AcceptSuggestion(context.Background(), result.Suggestions[1].ID, Decision{StaffID: ptr(int64(2))}, 7)
	require.NoError(t, err)

	stored := env.store.suggestionByPatient(t, 4)
	assert.Equal(t, model.OutcomeModified, stored.Outcome)
	require.Len(t, stored.Modifications, 1)
	assert.Equal(t, model.Modification{Field: "staff_id", From: "1", To: "2"}, stored.Modifications[0])
}

func TestAcceptSuggestion_PartnerStaffNotifiesAfterCommit(t *testing.T) {
	env := newTestEnv(t)
	s := env.generate(t).Suggestions[0]

	assignmentID, err := env.engine.AcceptSuggestion(context.Background(), s.ID, Decision{StaffID: ptr(int64(3))}, 7)
	require.NoError(t, err)

	assignments := env.store.activeAssignments()
	require.Len(t, assignments, 1)
	assert.Equal(t, model.SSPOPending, assignments[0].SSPOAcceptanceStatus)

	require.Len(t, env.notifier.notices, 1)
	notice := env.notifier.notices[0]
	assert.Equal(t, assignmentID, notice.AssignmentID)
	assert.Equal(t, int64(partnerOrg), notice.OrganizationID)
	assert.Equal(t, "dispatch@partner.example", notice.ContactEmail)
	assert.Equal(t, "Carol", notice.StaffName)
	assert.Equal(t, "Nursing", notice.ServiceTypeName)

	// the suggestion outcome is independent of the partner's response
	assert.Equal(t, model.OutcomeModified, env.store.suggestionByPatient(t, 3).Outcome)
}

func TestAcceptSuggestion_NotificationFailureKeepsAssignment(t *testing.T) {
	env := newTestEnv(t)
	env.notifier.err = errors.New("smtp down")
	s := env.generate(t).Suggestions[0]

	_, err := env.engine.AcceptSuggestion(context.Background(), s.ID, Decision{StaffID: ptr(int64(3))}, 7)

	require.NoError(t, err)
	assert.Len(t, env.store.activeAssignments(), 1)
}

func TestAcceptSuggestion_LedgerFailureWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.store.failOutcomeUpdate = errors.New("connection reset")
	s := env.generate(t).Suggestions[0]

	_, err := env.engine.AcceptSuggestion(context.Background(), s.ID, Decision{}, 7)

	require.Error(t, err)
	assert.Empty(t, env.store.activeAssignments())
	assert.Equal(t, model.OutcomePending, env.store.suggestionByPatient(t, 3).Outcome)
	assert.Empty(t, env.publisher.published)
}

func TestAcceptSuggestion_NoStaffToAccept(t *testing.T) {
	env := newTestEnv(t)
	s := env.generate(t).Suggestions[2]

	_, err := env.engine.AcceptSuggestion(context.Background(), s.ID, Decision{}, 7)

	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindInvalidDecision, verr.Errors[0].Kind)
}

func TestAcceptSuggestion_InvalidInput(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.AcceptSuggestion(context.Background(), "not-a-uuid", Decision{}, 7)

	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindInvalidInput, verr.Errors[0].Kind)
}

func TestAcceptSuggestion_UnknownSuggestion(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.AcceptSuggestion(context.Background(), "1b4e28ba-2fa1-11d2-883f-0016d3cca427", Decision{}, 7)

	var notFound *model.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestAcceptBatch_PartialFailure(t *testing.T) {
	env := newTestEnv(t)
	result := env.generate(t)
	p3, p4, p6 := result.Suggestions[0], result.Suggestions[1], result.Suggestions[3]

	batch := env.engine.AcceptBatch(context.Background(), []BatchItem{
		{SuggestionID: p3.ID, UserID: 7},
		{SuggestionID: p4.ID, UserID: 7},
		{SuggestionID: p6.ID, UserID: 7},
	})

	assert.NotEmpty(t, batch.BatchID)
	require.Len(t, batch.Successful, 2)
	assert.Equal(t, p3.ID, batch.Successful[0].SuggestionID)
	assert.Equal(t, p6.ID, batch.Successful[1].SuggestionID)

	require.Len(t, batch.Failed, 1)
	assert.Equal(t, p4.ID, batch.Failed[0].SuggestionID)
	var verr *model.ValidationError
	require.ErrorAs(t, batch.Failed[0].Err, &verr)
	assert.Equal(t, constraints.KindTimeConflict, verr.Errors[0].Kind)

	assert.Equal(t, model.OutcomeAccepted, env.store.suggestionByPatient(t, 3).Outcome)
	assert.Equal(t, model.OutcomePending, env.store.suggestionByPatient(t, 4).Outcome)
	assert.Equal(t, model.OutcomeAccepted, env.store.suggestionByPatient(t, 6).Outcome)
}

func TestAcceptBatch_NeverDoubleBooks(t *testing.T) {
	env := newTestEnv(t)
	result := env.generate(t)

	var items []BatchItem
	for _, s := range result.Suggestions {
		items = append(items, BatchItem{SuggestionID: s.ID, UserID: 7})
	}
	env.engine.AcceptBatch(context.Background(), items)

	assignments := env.store.activeAssignments()
	for i := range assignments {
		for j := i + 1; j < len(assignments); j++ {
			a, b := assignments[i], assignments[j]
			if a.StaffID != b.StaffID {
				continue
			}
			assert.False(t, model.Overlaps(a.Start, a.End, b.Start, b.End),
				"assignments %s and %s overlap", a.ID, b.ID)
		}
	}
}

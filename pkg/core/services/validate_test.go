package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/care-matching/pkg/core/constraints"
	"github.com/carebridge/care-matching/pkg/core/model"
)

func TestValidateAssignment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	start := monday.Add(9 * time.Hour)
	proposal := constraints.Proposal{StaffID: 1, PatientID: 3, ServiceTypeID: nursing, Start: start, End: start.Add(time.Hour)}

	result, err := env.engine.ValidateAssignment(ctx, homeOrg, proposal)
	require.NoError(t, err)
	assert.True(t, result.IsValid)

	s := env.generate(t).Suggestions[0]
	_, err = env.engine.AcceptSuggestion(ctx, s.ID, Decision{}, 7)
	require.NoError(t, err)

	// the same slot for patient 4 now collides
	proposal.PatientID = 4
	result, err = env.engine.ValidateAssignment(ctx, homeOrg, proposal)
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, constraints.KindTimeConflict, result.Errors[0].Kind)

	// validation never writes
	assert.Len(t, env.store.activeAssignments(), 1)
}

func TestValidateAssignment_IgnoresColleaguesHours(t *testing.T) {
	env := newTestEnv(t)
	for day := range 5 {
		start := monday.AddDate(0, 0, day).Add(8 * time.Hour)
		env.store.assignments = append(env.store.assignments, model.Assignment{
			ID:             fmt.Sprintf("bob-%d", day),
			OrganizationID: homeOrg,
			StaffID:        2,
			PatientID:      6,
			ServiceTypeID:  nursing,
			Start:          start,
			End:            start.Add(8 * time.Hour),
			Status:         model.AssignmentPlanned,
		})
	}
	start := monday.Add(9 * time.Hour)

	alice, err := env.engine.ValidateAssignment(context.Background(), homeOrg, constraints.Proposal{
		StaffID: 1, PatientID: 3, ServiceTypeID: nursing, Start: start, End: start.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.True(t, alice.IsValid, "errors: %v", alice.Errors)

	bob, err := env.engine.ValidateAssignment(context.Background(), homeOrg, constraints.Proposal{
		StaffID: 2, PatientID: 3, ServiceTypeID: nursing, Start: monday.AddDate(0, 0, 1).Add(16 * time.Hour), End: monday.AddDate(0, 0, 1).Add(17 * time.Hour),
	})
	require.NoError(t, err)
	require.False(t, bob.IsValid)
	assert.Equal(t, constraints.KindWeeklyHoursExceeded, bob.Errors[0].Kind)
}

func TestValidateAssignment_UnqualifiedAndInverted(t *testing.T) {
	env := newTestEnv(t)
	start := monday.Add(9 * time.Hour)

	result, err := env.engine.ValidateAssignment(context.Background(), homeOrg, constraints.Proposal{
		StaffID: 1, PatientID: 5, ServiceTypeID: physio, Start: start, End: start.Add(time.Hour),
	})
	require.NoError(t, err)
	require.False(t, result.IsValid)
	assert.Equal(t, constraints.KindNotQualified, result.Errors[0].Kind)

	result, err = env.engine.ValidateAssignment(context.Background(), homeOrg, constraints.Proposal{
		StaffID: 1, PatientID: 3, ServiceTypeID: nursing, Start: start, End: start,
	})
	require.NoError(t, err)
	require.False(t, result.IsValid)
	assert.Equal(t, constraints.KindInvalidWindow, result.Errors[0].Kind)
}

func TestValidateAssignment_StaffOutsideOrganization(t *testing.T) {
	env := newTestEnv(t)
	start := monday.Add(9 * time.Hour)

	_, err := env.engine.ValidateAssignment(context.Background(), 99, constraints.Proposal{
		StaffID: 1, PatientID: 3, ServiceTypeID: nursing, Start: start, End: start.Add(time.Hour),
	})

	var notFound *model.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestGetEligibleStaff(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.generate(t).Suggestions[0]
	_, err := env.engine.AcceptSuggestion(ctx, s.ID, Decision{}, 7)
	require.NoError(t, err)

	start := monday.Add(9 * time.Hour)
	eligible, err := env.engine.GetEligibleStaff(ctx, homeOrg, 4, nursing, start, start.Add(time.Hour))
	require.NoError(t, err)

	require.Len(t, eligible.Eligible, 2)
	assert.Equal(t, int64(2), eligible.Eligible[0].Staff.ID)
	assert.Equal(t, int64(3), eligible.Eligible[1].Staff.ID)
	assert.Equal(t, start, eligible.Eligible[0].Start)

	require.Len(t, eligible.Ineligible, 1)
	assert.Equal(t, int64(1), eligible.Ineligible[0].Staff.ID)
	assert.Equal(t, constraints.KindTimeConflict, eligible.Ineligible[0].Errors[0].Kind)
}

func TestGetEligibleStaff_InvalidSlot(t *testing.T) {
	env := newTestEnv(t)
	start := monday.Add(9 * time.Hour)

	_, err := env.engine.GetEligibleStaff(context.Background(), homeOrg, 4, nursing, start, start)

	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)
}

package suggest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/care-matching/pkg/core/constraints"
	"github.com/carebridge/care-matching/pkg/core/model"
	"github.com/carebridge/care-matching/pkg/core/scoring"
)

const (
	roleNurse = 10
	rolePSW   = 20
)

var monday = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

var clinic = &model.GeoPoint{Lat: 43.6532, Lng: -79.3832}

func newGenerator(t *testing.T, weights scoring.Weights) *Generator {
	t.Helper()
	scorer, err := scoring.NewScorer(weights, scoring.DefaultProximity())
	require.NoError(t, err)
	return NewGenerator(constraints.NewChecker(constraints.DefaultConfig()), scorer)
}

func nurse(id int64) model.Staff {
	return model.Staff{
		ID:             id,
		RoleID:         roleNurse,
		EmploymentType: model.EmploymentFullTime,
		MaxWeeklyHours: 40,
		Location:       clinic,
		Availability: []model.AvailabilityBlock{
			{Weekday: time.Monday, StartMinute: 8 * 60, EndMinute: 17 * 60},
			{Weekday: time.Wednesday, StartMinute: 8 * 60, EndMinute: 17 * 60},
		},
	}
}

func requirement(patientID, serviceTypeID int64) model.CareRequirement {
	return model.CareRequirement{
		OrganizationID:            1,
		PatientID:                 patientID,
		ServiceTypeID:             serviceTypeID,
		WeekStart:                 monday,
		WeekEnd:                   monday.AddDate(0, 0, 7),
		RemainingFrequencyPerWeek: 1,
		RemainingDurationMinutes:  60,
		PreferredStartMinute:      9 * 60,
		PreferredEndMinute:        10 * 60,
	}
}

func snapshot(staff []model.Staff, assignments []model.Assignment, continuity []model.ContinuityKey) *model.Snapshot {
	return model.NewSnapshot(model.SnapshotInput{
		Now:         monday.AddDate(0, 0, -7),
		Staff:       staff,
		Assignments: assignments,
		Continuity:  continuity,
		ServiceTypes: []model.ServiceType{
			{ID: 1, Name: "Nursing", QualifiedRoleIDs: []int64{roleNurse}},
			{ID: 2, Name: "Physiotherapy", QualifiedRoleIDs: []int64{99}},
		},
		Patients: []model.Patient{
			{ID: 3, Location: clinic},
			{ID: 4, Location: clinic},
		},
	})
}

func TestSuggest_PicksHighestScoringStaff(t *testing.T) {
	g := newGenerator(t, scoring.DefaultWeights())

	busy := nurse(1)
	idle := nurse(2)
	assignments := []model.Assignment{
		{ID: "a1", StaffID: 1, PatientID: 9, Start: monday.Add(30 * time.Hour), End: monday.Add(60 * time.Hour), Status: model.AssignmentPlanned},
	}
	req := requirement(3, 1)

	s := g.Suggest(&req, snapshot([]model.Staff{busy, idle}, assignments, nil), model.SourceAutoAssign)

	require.NotNil(t, s.SuggestedStaffID)
	assert.Equal(t, int64(2), *s.SuggestedStaffID)
	assert.Equal(t, model.OutcomePending, s.Outcome)
	assert.Equal(t, model.SourceAutoAssign, s.Source)
	require.NotNil(t, s.SuggestedStart)
	assert.Equal(t, monday.Add(9*time.Hour), *s.SuggestedStart)
	assert.Equal(t, monday.Add(10*time.Hour), *s.SuggestedEnd)
	require.NotNil(t, s.ConfidenceScore)
	assert.Len(t, s.ScoringFactors, 5)
}

func TestSuggest_EmptyPoolYieldsTierNone(t *testing.T) {
	g := newGenerator(t, scoring.DefaultWeights())
	// nobody holds the physiotherapy role
	req := requirement(3, 2)

	s := g.Suggest(&req, snapshot([]model.Staff{nurse(1), nurse(2)}, nil, nil), model.SourceAutoAssign)

	assert.Nil(t, s.SuggestedStaffID)
	assert.Nil(t, s.ConfidenceScore)
	assert.Equal(t, model.TierNone, s.MatchTier)
	assert.Empty(t, s.ScoringFactors)
	assert.Empty(t, s.Warnings)
}

func TestRankCandidates_HardRuleFailuresNeverScored(t *testing.T) {
	g := newGenerator(t, scoring.DefaultWeights())

	// perfect on every soft factor but locked
	locked := nurse(1)
	locked.SchedulingLocked = true
	continuity := []model.ContinuityKey{{StaffID: 1, PatientID: 3, ServiceTypeID: 1}}

	unqualified := nurse(2)
	unqualified.RoleID = rolePSW

	far := nurse(3)
	far.Location = &model.GeoPoint{Lat: 45.4215, Lng: -75.6972}

	req := requirement(3, 1)
	candidates := g.RankCandidates(&req, snapshot([]model.Staff{locked, unqualified, far}, nil, continuity))

	require.Len(t, candidates, 1)
	assert.Equal(t, int64(3), candidates[0].Staff.ID)
	assert.Equal(t, model.TierModerate, candidates[0].Score.MatchTier)
	// distance is a soft rule: eligible, but warned
	require.Len(t, candidates[0].Warnings, 1)
	assert.Equal(t, constraints.KindTravelDistance, candidates[0].Warnings[0].Kind)
}

func TestRankCandidates_MovesToNextDayWhenSlotIsTaken(t *testing.T) {
	g := newGenerator(t, scoring.DefaultWeights())

	staff := nurse(1)
	assignments := []model.Assignment{
		{ID: "a1", StaffID: 1, PatientID: 9, Start: monday.Add(9 * time.Hour), End: monday.Add(10 * time.Hour), Status: model.AssignmentPlanned},
	}
	req := requirement(3, 1)

	candidates := g.RankCandidates(&req, snapshot([]model.Staff{staff}, assignments, nil))

	require.Len(t, candidates, 1)
	// Monday is taken, Wednesday is the next declared available day
	assert.Equal(t, monday.AddDate(0, 0, 2).Add(9*time.Hour), candidates[0].Start)
}

func TestRankCandidates_ContinuityBreaksTies(t *testing.T) {
	// continuity carries no weight so both candidates score the same
	g := newGenerator(t, scoring.Weights{SkillMatch: 0.5, Availability: 0.5})

	a := nurse(5)
	b := nurse(2)
	continuity := []model.ContinuityKey{{StaffID: 5, PatientID: 3, ServiceTypeID: 1}}
	req := requirement(3, 1)

	candidates := g.RankCandidates(&req, snapshot([]model.Staff{a, b}, nil, continuity))

	require.Len(t, candidates, 2)
	assert.Equal(t, candidates[0].Score.Score, candidates[1].Score.Score)
	assert.Equal(t, int64(5), candidates[0].Staff.ID)
	assert.Equal(t, int64(2), candidates[1].Staff.ID)
}

func TestRankCandidates_UtilizationThenIDBreakTies(t *testing.T) {
	g := newGenerator(t, scoring.Weights{SkillMatch: 0.5, Availability: 0.5})

	assignments := []model.Assignment{
		{ID: "a1", StaffID: 1, PatientID: 9, Start: monday.Add(30 * time.Hour), End: monday.Add(34 * time.Hour), Status: model.AssignmentPlanned},
	}
	req := requirement(3, 1)

	candidates := g.RankCandidates(&req, snapshot([]model.Staff{nurse(3), nurse(1), nurse(2)}, assignments, nil))

	ids := make([]int64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.Staff.ID
	}
	assert.Equal(t, []int64{2, 3, 1}, ids)
}

func TestGenerate_IsDeterministicAndOrdered(t *testing.T) {
	g := newGenerator(t, scoring.DefaultWeights())
	snap := snapshot([]model.Staff{nurse(1), nurse(2), nurse(3)}, nil, nil)
	reqs := []model.CareRequirement{requirement(4, 1), requirement(3, 2), requirement(3, 1)}

	first := g.Generate(reqs, snap, model.SourceAutoAssign)
	second := g.Generate(reqs, snap, model.SourceAutoAssign)

	require.Len(t, first, 3)
	assert.Equal(t, first, second)

	assert.Equal(t, int64(3), first[0].PatientID)
	assert.Equal(t, int64(1), first[0].ServiceTypeID)
	assert.Equal(t, int64(3), first[1].PatientID)
	assert.Equal(t, int64(2), first[1].ServiceTypeID)
	assert.Equal(t, int64(4), first[2].PatientID)

	// greedy: the same nurse tops both nursing requirements
	assert.Equal(t, *first[0].SuggestedStaffID, *first[2].SuggestedStaffID)

	// the input slice is left untouched
	assert.Equal(t, int64(4), reqs[0].PatientID)
}

func TestRankForSlot_SplitsEligibleAndRejected(t *testing.T) {
	g := newGenerator(t, scoring.DefaultWeights())

	busy := nurse(1)
	free := nurse(2)
	psw := nurse(3)
	psw.RoleID = rolePSW
	assignments := []model.Assignment{
		{ID: "a1", StaffID: 1, PatientID: 9, Start: monday.Add(9 * time.Hour), End: monday.Add(11 * time.Hour), Status: model.AssignmentPlanned},
	}

	start := monday.Add(10 * time.Hour)
	end := start.Add(time.Hour)
	req := model.CareRequirement{
		OrganizationID:            1,
		PatientID:                 3,
		ServiceTypeID:             1,
		WeekStart:                 monday,
		WeekEnd:                   monday.AddDate(0, 0, 1),
		RemainingFrequencyPerWeek: 1,
		RemainingDurationMinutes:  60,
		PreferredStartMinute:      10 * 60,
		PreferredEndMinute:        11 * 60,
	}

	eligible, rejected := g.RankForSlot(&req, start, end, snapshot([]model.Staff{busy, free, psw}, assignments, nil))

	require.Len(t, eligible, 1)
	assert.Equal(t, int64(2), eligible[0].Staff.ID)
	assert.Equal(t, start, eligible[0].Start)

	require.Len(t, rejected, 2)
	assert.Equal(t, int64(1), rejected[0].Staff.ID)
	assert.Equal(t, constraints.KindTimeConflict, rejected[0].Errors[0].Kind)
	assert.Equal(t, int64(3), rejected[1].Staff.ID)
	assert.Equal(t, constraints.KindNotQualified, rejected[1].Errors[0].Kind)
}

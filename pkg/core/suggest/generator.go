// Package suggest produces one ranked staff suggestion per unscheduled care
// requirement. Selection is greedy per requirement: the same staff member
// may be the top pick for several requirements, and collisions are left to
// the constraint re-check at accept time.
package suggest

import (
	"cmp"
	"slices"
	"time"

	"github.com/carebridge/care-matching/pkg/core/constraints"
	"github.com/carebridge/care-matching/pkg/core/matching"
	"github.com/carebridge/care-matching/pkg/core/model"
	"github.com/carebridge/care-matching/pkg/core/scoring"
)

// Candidate is an eligible staff member with the slot they were validated for
type Candidate struct {
	Staff    *model.Staff
	Start    time.Time
	End      time.Time
	Score    model.CandidateScore
	Warnings []model.Violation
}

// Generator ranks staff for care requirements
type Generator struct {
	checker *constraints.Checker
	scorer  *scoring.Scorer
}

// NewGenerator creates a generator from a constraint checker and a scorer
func NewGenerator(checker *constraints.Checker, scorer *scoring.Scorer) *Generator {
	return &Generator{checker: checker, scorer: scorer}
}

// RankCandidates returns every staff member passing the hard rules for the
// requirement, best first. Ties are broken by continuity of care, then lower
// utilization, then lowest staff ID.
func (g *Generator) RankCandidates(req *model.CareRequirement, snap *model.Snapshot) []Candidate {
	roster := snap.Staff()
	pool := make([]*staffCandidate, len(roster))
	for i, staff := range roster {
		pool[i] = &staffCandidate{staff: staff, snap: snap, checker: g.checker, scorer: g.scorer}
	}

	return toCandidates(matching.Rank(req, pool, tieBreaker(req, snap)))
}

func toCandidates(ranked []matching.Ranked[*staffCandidate]) []Candidate {
	candidates := make([]Candidate, len(ranked))
	for i, r := range ranked {
		c := r.Candidate
		candidates[i] = Candidate{
			Staff:    c.staff,
			Start:    c.start,
			End:      c.end,
			Score:    scoring.CandidateScore(c.staff.ID, r.Factors),
			Warnings: c.warnings,
		}
	}
	return candidates
}

// Rejection is a staff member who failed a hard rule, with the failures
type Rejection struct {
	Staff  *model.Staff
	Errors []model.Violation
}

// RankForSlot checks every staff member against one fixed slot. Those
// passing are scored and ranked as in RankCandidates; the rest are returned
// with their hard failures, in staff ID order. The requirement's window
// should cover only the slot's day.
func (g *Generator) RankForSlot(req *model.CareRequirement, start, end time.Time, snap *model.Snapshot) ([]Candidate, []Rejection) {
	roster := snap.Staff()
	pool := make([]*staffCandidate, len(roster))
	for i, staff := range roster {
		pool[i] = &staffCandidate{
			staff:   staff,
			snap:    snap,
			checker: g.checker,
			scorer:  g.scorer,
			fixed:   true,
			start:   start,
			end:     end,
		}
	}

	ranked := matching.Rank(req, pool, tieBreaker(req, snap))

	var rejected []Rejection
	for _, c := range pool {
		if !c.eligible {
			rejected = append(rejected, Rejection{Staff: c.staff, Errors: c.errors})
		}
	}
	return toCandidates(ranked), rejected
}

// Suggest builds the pending suggestion for one requirement. An empty pool
// yields a suggestion with no staff and tier none.
func (g *Generator) Suggest(req *model.CareRequirement, snap *model.Snapshot, source string) model.Suggestion {
	suggestion := model.Suggestion{
		OrganizationID: req.OrganizationID,
		PatientID:      req.PatientID,
		ServiceTypeID:  req.ServiceTypeID,
		WeekStart:      req.WeekStart,
		WeekEnd:        req.WeekEnd,
		MatchTier:      model.TierNone,
		ScoringFactors: []model.Reason{},
		Warnings:       []model.Violation{},
		Outcome:        model.OutcomePending,
		Source:         source,
		CreatedAt:      snap.Now(),
	}

	candidates := g.RankCandidates(req, snap)
	if len(candidates) == 0 {
		return suggestion
	}

	best := candidates[0]
	staffID := best.Staff.ID
	score := best.Score.Score
	start, end := best.Start, best.End

	suggestion.SuggestedStaffID = &staffID
	suggestion.SuggestedStart = &start
	suggestion.SuggestedEnd = &end
	suggestion.MatchTier = best.Score.MatchTier
	suggestion.ConfidenceScore = &score
	suggestion.ScoringFactors = best.Score.Reasons
	if best.Warnings != nil {
		suggestion.Warnings = best.Warnings
	}
	return suggestion
}

// Generate builds one suggestion per requirement. Requirements are processed
// in patient, service type, week order so that repeated runs over unchanged
// data produce identical output.
func (g *Generator) Generate(reqs []model.CareRequirement, snap *model.Snapshot, source string) []model.Suggestion {
	ordered := slices.Clone(reqs)
	SortRequirements(ordered)

	suggestions := make([]model.Suggestion, 0, len(ordered))
	for i := range ordered {
		suggestions = append(suggestions, g.Suggest(&ordered[i], snap, source))
	}
	return suggestions
}

// SortRequirements orders requirements by patient, service type, then week
func SortRequirements(reqs []model.CareRequirement) {
	slices.SortStableFunc(reqs, func(a, b model.CareRequirement) int {
		if c := cmp.Compare(a.PatientID, b.PatientID); c != 0 {
			return c
		}
		if c := cmp.Compare(a.ServiceTypeID, b.ServiceTypeID); c != 0 {
			return c
		}
		return a.WeekStart.Compare(b.WeekStart)
	})
}

func tieBreaker(req *model.CareRequirement, snap *model.Snapshot) matching.TieBreaker[*staffCandidate] {
	return func(a, b matching.Ranked[*staffCandidate]) int {
		aCont := snap.HasContinuity(a.Candidate.staff.ID, req.PatientID, req.ServiceTypeID)
		bCont := snap.HasContinuity(b.Candidate.staff.ID, req.PatientID, req.ServiceTypeID)
		if aCont != bCont {
			if aCont {
				return -1
			}
			return 1
		}
		return cmp.Compare(
			scoring.UtilizationRatio(a.Candidate.staff, snap, req.WeekStart),
			scoring.UtilizationRatio(b.Candidate.staff, snap, req.WeekStart),
		)
	}
}

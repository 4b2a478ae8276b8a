// Package scoring computes the confidence score and match tier of a
// (care requirement, staff member) pair.
package scoring

import (
	"fmt"
	"slices"
	"time"

	"github.com/carebridge/care-matching/pkg/core/matching"
	"github.com/carebridge/care-matching/pkg/core/model"
)

// Factor names, in the order they appear in reasons
const (
	FactorSkillMatch   = "skill_match"
	FactorAvailability = "availability_overlap"
	FactorContinuity   = "continuity"
	FactorProximity    = "geographic_proximity"
	FactorUtilization  = "utilization_balance"
)

// UtilizationSaturation is the utilization ratio at which the balance factor reaches zero
const UtilizationSaturation = 0.9

// ProximityConfig shapes the proximity decay curve
type ProximityConfig struct {
	// CloseRadiusKm and nearer scores 1.0
	CloseRadiusKm float64 `yaml:"closeRadiusKm"`

	// MaxRadiusKm and farther scores 0.0, linear in between
	MaxRadiusKm float64 `yaml:"maxRadiusKm"`
}

// DefaultProximity returns the documented defaults: 5 km close, 40 km max
func DefaultProximity() ProximityConfig {
	return ProximityConfig{CloseRadiusKm: 5, MaxRadiusKm: 40}
}

// Scorer computes candidate scores
type Scorer struct {
	weights   Weights
	proximity ProximityConfig
}

// NewScorer validates the configuration and creates a scorer
func NewScorer(weights Weights, proximity ProximityConfig) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if proximity.CloseRadiusKm < 0 || proximity.MaxRadiusKm <= proximity.CloseRadiusKm {
		return nil, fmt.Errorf("proximity radii must satisfy 0 <= close < max, got close=%v max=%v",
			proximity.CloseRadiusKm, proximity.MaxRadiusKm)
	}
	return &Scorer{weights: weights, proximity: proximity}, nil
}

// Weights returns the weights the scorer was built with
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Factors returns the five weighted factors for a staff member
func (s *Scorer) Factors(req *model.CareRequirement, staff *model.Staff, snap *model.Snapshot) []matching.Factor {
	return []matching.Factor{
		{Name: FactorSkillMatch, Weight: s.weights.SkillMatch, Value: s.skillMatch(req, staff, snap)},
		{Name: FactorAvailability, Weight: s.weights.Availability, Value: availabilityOverlap(req, staff)},
		{Name: FactorContinuity, Weight: s.weights.Continuity, Value: continuity(req, staff, snap)},
		{Name: FactorProximity, Weight: s.weights.Proximity, Value: s.proximityValue(req, staff, snap)},
		{Name: FactorUtilization, Weight: s.weights.Utilization, Value: UtilizationBalance(UtilizationRatio(staff, snap, req.WeekStart))},
	}
}

// Score computes the full candidate score
func (s *Scorer) Score(req *model.CareRequirement, staff *model.Staff, snap *model.Snapshot) model.CandidateScore {
	return CandidateScore(staff.ID, s.Factors(req, staff, snap))
}

// CandidateScore builds the transient score value from computed factors
func CandidateScore(staffID int64, factors []matching.Factor) model.CandidateScore {
	sum := matching.Sum(factors)
	return model.CandidateScore{
		StaffID:   staffID,
		Score:     matching.Round(sum),
		MatchTier: TierFor(sum),
		Reasons:   Reasons(factors),
	}
}

// Reasons converts factors into the reasons list rendered to users
func Reasons(factors []matching.Factor) []model.Reason {
	reasons := make([]model.Reason, len(factors))
	for i, f := range factors {
		reasons[i] = model.Reason{
			Factor:       f.Name,
			Weight:       f.Weight,
			Value:        matching.Round(f.Value),
			Contribution: matching.Round(f.Contribution()),
		}
	}
	return reasons
}

// skillMatch is 1.0 when every required skill is held at the required
// level, reduced linearly for each missing or under-proficient skill
func (s *Scorer) skillMatch(req *model.CareRequirement, staff *model.Staff, snap *model.Snapshot) float64 {
	st, ok := snap.ServiceType(req.ServiceTypeID)
	if !ok || len(st.RequiredSkills) == 0 {
		return 1
	}

	met := 0
	for _, required := range st.RequiredSkills {
		skill, held := staff.Skill(required.SkillID, req.WeekStart)
		if held && skill.Proficiency >= required.MinProficiency {
			met++
		}
	}
	return float64(met) / float64(len(st.RequiredSkills))
}

// availabilityOverlap is the fraction of the preferred window covered by
// declared availability, averaged over the best-covered preferred days. As
// many days are counted as visits remain.
func availabilityOverlap(req *model.CareRequirement, staff *model.Staff) float64 {
	days, err := req.PreferredDays()
	if err != nil || len(days) == 0 {
		return 0
	}

	windowStart, windowEnd := req.PreferredWindowMinutes()
	windowLength := windowEnd - windowStart
	if windowLength <= 0 {
		return 0
	}

	coverage := make([]float64, len(days))
	for i, day := range days {
		coverage[i] = float64(coveredMinutes(staff.AvailabilityOn(day.Weekday()), windowStart, windowEnd)) / float64(windowLength)
	}

	// best-covered days first
	slices.Sort(coverage)
	slices.Reverse(coverage)

	visits := min(max(req.RemainingFrequencyPerWeek, 1), len(coverage))
	total := 0.0
	for _, c := range coverage[:visits] {
		total += c
	}
	return total / float64(visits)
}

// coveredMinutes counts the minutes of [start,end) covered by the union of the blocks
func coveredMinutes(blocks []model.AvailabilityBlock, start, end int) int {
	covered := 0
	for minute := start; minute < end; {
		next := end
		inside := false
		for _, b := range blocks {
			if b.StartMinute <= minute && minute < b.EndMinute {
				inside = true
				next = min(next, b.EndMinute)
			}
		}
		if inside {
			covered += next - minute
			minute = next
			continue
		}
		// jump to the next block start, if any
		next = end
		for _, b := range blocks {
			if b.StartMinute > minute && b.StartMinute < next {
				next = b.StartMinute
			}
		}
		minute = next
	}
	return covered
}

func continuity(req *model.CareRequirement, staff *model.Staff, snap *model.Snapshot) float64 {
	if snap.HasContinuity(staff.ID, req.PatientID, req.ServiceTypeID) {
		return 1
	}
	return 0
}

// proximityValue is 1.0 within the close radius, decaying linearly to 0 at
// the max radius. Unknown locations score 0.
func (s *Scorer) proximityValue(req *model.CareRequirement, staff *model.Staff, snap *model.Snapshot) float64 {
	patient, ok := snap.Patient(req.PatientID)
	if !ok {
		return 0
	}
	km, ok := model.DistanceKm(staff.Location, patient.Location)
	if !ok {
		return 0
	}
	return ProximityValue(km, s.proximity)
}

// ProximityValue maps a distance onto the decay curve
func ProximityValue(km float64, cfg ProximityConfig) float64 {
	switch {
	case km <= cfg.CloseRadiusKm:
		return 1
	case km >= cfg.MaxRadiusKm:
		return 0
	default:
		return (cfg.MaxRadiusKm - km) / (cfg.MaxRadiusKm - cfg.CloseRadiusKm)
	}
}

// UtilizationRatio is the staff member's scheduled hours in the
// requirement's week over their weekly ceiling. Staff without a ceiling
// are treated as idle.
func UtilizationRatio(staff *model.Staff, snap *model.Snapshot, weekOf time.Time) float64 {
	if staff.MaxWeeklyHours <= 0 {
		return 0
	}
	return snap.ScheduledHours(staff.ID, model.WeekStartOf(weekOf)) / staff.MaxWeeklyHours
}

// UtilizationBalance favors headroom: 1.0 when idle, 0 at or above saturation
func UtilizationBalance(ratio float64) float64 {
	if ratio >= UtilizationSaturation {
		return 0
	}
	if ratio <= 0 {
		return 1
	}
	return (UtilizationSaturation - ratio) / UtilizationSaturation
}

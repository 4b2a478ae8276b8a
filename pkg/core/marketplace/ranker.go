// Package marketplace ranks subcontracted partner organizations (SSPOs) for
// a service when internal staff cannot cover it. It runs the same ranking
// pipeline as staff suggestions, over capability profiles.
package marketplace

import (
	"cmp"
	"strings"
	"time"

	"github.com/carebridge/care-matching/pkg/core/matching"
	"github.com/carebridge/care-matching/pkg/core/model"
	"github.com/carebridge/care-matching/pkg/core/scoring"
)

// Capability score weights
const (
	QualityWeight    = 0.4
	AcceptanceWeight = 0.3
	CompletionWeight = 0.3
)

// Factor names
const (
	FactorQuality    = "quality_score"
	FactorAcceptance = "acceptance_rate"
	FactorCompletion = "completion_rate"
)

// Query describes the care a partner is sought for. A nil patient skips
// the service-area and special-care filters; a nil RequestedStart skips the
// day, window and notice checks.
type Query struct {
	ServiceTypeID  int64
	Patient        *model.Patient
	RequestedStart *time.Time
	EstimatedHours float64
}

// RankedOrganization is an eligible partner with its capability score
type RankedOrganization struct {
	Profile          model.CapabilityProfile
	Score            float64
	Reasons          []model.Reason
	AvailableHours   float64
	UtilizationRatio float64
}

// Ranker ranks capability profiles
type Ranker struct {
	now func() time.Time
}

// NewRanker creates a ranker reading the wall clock
func NewRanker() *Ranker {
	return &Ranker{now: time.Now}
}

// NewRankerWithClock creates a ranker with an injected clock
func NewRankerWithClock(now func() time.Time) *Ranker {
	return &Ranker{now: now}
}

// FindMatchingOrganizations filters the profiles to those able to take the
// query and ranks them by capability score. Ties go to the lower
// utilization ratio, then the lower organization ID.
func (r *Ranker) FindMatchingOrganizations(q Query, profiles []model.CapabilityProfile) []RankedOrganization {
	now := r.now()
	pool := make([]*orgCandidate, len(profiles))
	for i := range profiles {
		pool[i] = &orgCandidate{profile: &profiles[i], now: now}
	}

	ranked := matching.Rank(&q, pool, func(a, b matching.Ranked[*orgCandidate]) int {
		return cmp.Compare(a.Candidate.profile.UtilizationRatio(), b.Candidate.profile.UtilizationRatio())
	})

	result := make([]RankedOrganization, len(ranked))
	for i, org := range ranked {
		p := org.Candidate.profile
		result[i] = RankedOrganization{
			Profile:          *p,
			Score:            org.Score,
			Reasons:          scoring.Reasons(org.Factors),
			AvailableHours:   p.AvailableHours(),
			UtilizationRatio: matching.Round(p.UtilizationRatio()),
		}
	}
	return result
}

// Rankings ranks every current profile for a service type, with no patient filters
func (r *Ranker) Rankings(serviceTypeID int64, profiles []model.CapabilityProfile) []RankedOrganization {
	return r.FindMatchingOrganizations(Query{ServiceTypeID: serviceTypeID}, profiles)
}

// CapabilityScore is the weighted blend of quality, acceptance and completion
func CapabilityScore(p *model.CapabilityProfile) float64 {
	return matching.Total(capabilityFactors(p))
}

func capabilityFactors(p *model.CapabilityProfile) []matching.Factor {
	return []matching.Factor{
		{Name: FactorQuality, Weight: QualityWeight, Value: clamp(p.QualityScore)},
		{Name: FactorAcceptance, Weight: AcceptanceWeight, Value: clamp(p.AcceptanceRate)},
		{Name: FactorCompletion, Weight: CompletionWeight, Value: clamp(p.CompletionRate)},
	}
}

type orgCandidate struct {
	profile *model.CapabilityProfile
	now     time.Time
}

func (c *orgCandidate) ID() int64 {
	return c.profile.OrganizationID
}

func (c *orgCandidate) IsEligible(q *Query) bool {
	p := c.profile
	if p.ServiceTypeID != q.ServiceTypeID || !p.IsCurrent(c.now) {
		return false
	}
	if p.AvailableHours() < q.EstimatedHours {
		return false
	}

	if q.Patient != nil {
		if !ServesArea(p, q.Patient.PostalCode) {
			return false
		}
		// special care needs filter, they never just lower the score
		for _, need := range q.Patient.SpecialCareNeeds {
			if !p.HasFlag(need) {
				return false
			}
		}
	}

	if q.RequestedStart != nil {
		start := *q.RequestedStart
		if len(p.AvailableDays) > 0 && !p.ServesDay(start.Weekday()) {
			return false
		}
		if p.WindowEndMinute > p.WindowStartMinute {
			minute := model.MinuteOfDay(start)
			if minute < p.WindowStartMinute || minute >= p.WindowEndMinute {
				return false
			}
		}
		notice := time.Duration(p.MinNoticeHours * float64(time.Hour))
		if start.Sub(c.now) < notice {
			return false
		}
	}

	return true
}

func (c *orgCandidate) ScoreFactors(*Query) []matching.Factor {
	return capabilityFactors(c.profile)
}

// ServesArea matches a postal code against the profile's service-area
// prefixes, ignoring case and spaces. A profile with no areas serves everywhere.
func ServesArea(p *model.CapabilityProfile, postalCode string) bool {
	if len(p.ServiceAreas) == 0 {
		return true
	}
	code := normalizePostalCode(postalCode)
	if code == "" {
		return false
	}
	for _, area := range p.ServiceAreas {
		prefix := normalizePostalCode(area)
		if prefix != "" && strings.HasPrefix(code, prefix) {
			return true
		}
	}
	return false
}

func normalizePostalCode(code string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), " ", ""))
}

func clamp(v float64) float64 {
	return min(max(v, 0), 1)
}
